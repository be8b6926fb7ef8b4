package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"kada-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

const (
	tokenTTL    = 7 * 24 * time.Hour
	tokenIssuer = "kada"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// JWTCustomClaims ride in every access token. VendorID is nil for admins.
type JWTCustomClaims struct {
	UserID   uint            `json:"user_id"`
	Role     models.UserRole `json:"role"`
	VendorID *uint           `json:"vendor_id"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, user *models.User) (string, error) {
	now := time.Now()
	claims := &JWTCustomClaims{
		UserID:   user.ID,
		Role:     user.Role,
		VendorID: user.VendorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken accepts only HS256 tokens signed with secret. Vendor tokens must
// carry a vendor id.
func ParseToken(secret, raw string) (*JWTCustomClaims, error) {
	claims := &JWTCustomClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Role == models.RoleVendor && claims.VendorID == nil {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
