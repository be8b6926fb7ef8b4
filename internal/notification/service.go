package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"kada-backend/internal/config"
	"kada-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNoPublisher = errors.New("push publisher is not configured")

type Message struct {
	Title string            `json:"title" validate:"required,max=100"`
	Body  string            `json:"body" validate:"required,max=500"`
	Data  map[string]string `json:"data,omitempty"`
}

// pushJob is what the delivery worker consumes from the topic.
type pushJob struct {
	Token    string            `json:"token"`
	Platform string            `json:"platform"`
	VendorID uint              `json:"vendorId"`
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
}

type Counts struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

type Service struct {
	pub    Publisher
	logger *logrus.Logger
}

// NewService accepts a nil publisher; every send then counts as a failure.
func NewService(pub Publisher, logger *logrus.Logger) *Service {
	return &Service{pub: pub, logger: logger}
}

// Send publishes one job per device token and reports how many the broker
// accepted.
func (s *Service) Send(ctx context.Context, tokens []models.DeviceToken, msg Message) Counts {
	var counts Counts
	if len(tokens) == 0 {
		return counts
	}
	if s.pub == nil {
		config.LogError(s.logger, "notification", "Send", "push skipped", len(tokens), ErrNoPublisher)
		counts.Failure = len(tokens)
		return counts
	}

	results := make([]Result, 0, len(tokens))
	for _, t := range tokens {
		data, err := json.Marshal(pushJob{
			Token:    t.Token,
			Platform: t.Platform,
			VendorID: t.VendorID,
			Title:    msg.Title,
			Body:     msg.Body,
			Data:     msg.Data,
		})
		if err != nil {
			counts.Failure++
			continue
		}
		results = append(results, s.pub.Publish(ctx, data, map[string]string{
			"vendorId": fmt.Sprint(t.VendorID),
			"platform": t.Platform,
		}))
	}

	for _, r := range results {
		if _, err := r.Get(ctx); err != nil {
			counts.Failure++
			s.logger.WithError(err).Warn("push publish failed")
			continue
		}
		counts.Success++
	}

	s.logger.WithFields(logrus.Fields{"success": counts.Success, "failure": counts.Failure}).Info("push fan-out done")
	return counts
}

// SendToVendors fans out to every device of vendorIDs, or to all devices
// when vendorIDs is empty.
func (s *Service) SendToVendors(ctx context.Context, db *gorm.DB, vendorIDs []uint, msg Message) (Counts, error) {
	q := db.WithContext(ctx).Model(&models.DeviceToken{})
	if len(vendorIDs) > 0 {
		q = q.Where("vendor_id IN ?", vendorIDs)
	}
	var tokens []models.DeviceToken
	if err := q.Find(&tokens).Error; err != nil {
		return Counts{}, fmt.Errorf("load device tokens: %w", err)
	}
	return s.Send(ctx, tokens, msg), nil
}

// RegisterDevice upserts a token; a token moving to another vendor follows
// the latest login.
func RegisterDevice(ctx context.Context, db *gorm.DB, vendorID uint, token, platform string) (*models.DeviceToken, error) {
	dt := models.DeviceToken{VendorID: vendorID, Token: token, Platform: platform}
	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"vendor_id", "platform", "updated_at"}),
	}).Create(&dt).Error
	if err != nil {
		return nil, fmt.Errorf("register device: %w", err)
	}
	return &dt, nil
}
