package payment

import (
	"errors"
	"time"

	"kada-backend/internal/auth"
	"kada-backend/internal/config"
	"kada-backend/internal/database"
	"kada-backend/internal/httputil"
	"kada-backend/internal/mirror"
	"kada-backend/internal/subscription"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type CreateOrderRequest struct {
	Plan string `json:"plan" validate:"required"`
}

type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidSignature):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrOrderNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrPlanUnavailable), errors.Is(err, subscription.ErrPlanNotFound):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrGatewayNotConfigured):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	}
	return fiber.NewError(fiber.StatusBadGateway, "payment gateway error")
}

// POST /api/payments/orders
func CreateOrderHandler(cfg *config.Config, gw Gateway) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}
		var body CreateOrderRequest
		if err := httputil.ParseBody(c, &body); err != nil {
			return err
		}

		order, err := CreateOrder(c.UserContext(), database.DB, gw, vendorID, body.Plan)
		if err != nil {
			config.LogError(config.GetLogger(), "payment", "CreateOrderHandler", "order not created", body.Plan, err)
			return httpError(err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"order_id": order.GatewayOrderID,
			"amount":   mirror.ToPaise(order.Amount),
			"currency": "INR",
			"receipt":  order.Receipt,
			"key_id":   cfg.RazorpayKeyID,
			"plan":     order.PlanCode,
		})
	}
}

// POST /api/payments/verify - called by the app after checkout succeeds.
func VerifyPaymentHandler(cfg *config.Config, sync *mirror.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		vendorID, err := auth.VendorID(c)
		if err != nil {
			return err
		}
		var body VerifyRequest
		if err := httputil.ParseBody(c, &body); err != nil {
			return err
		}

		if !VerifyCheckoutSignature(cfg.RazorpayKeySecret, body.OrderID, body.PaymentID, body.Signature) {
			return httpError(ErrInvalidSignature)
		}

		res, err := MarkPaid(c.UserContext(), database.DB, body.OrderID, body.PaymentID, vendorID, time.Now())
		if err != nil {
			return httpError(err)
		}
		if res.Applied {
			sync.SyncSubscription(c.UserContext(), res.Order.VendorID, *res.Subscription)
		}

		return c.JSON(fiber.Map{
			"order":        res.Order,
			"subscription": res.Subscription,
			"applied":      res.Applied,
		})
	}
}

// POST /api/payments/webhook - gateway callback, authenticated by signature.
func WebhookHandler(cfg *config.Config, sync *mirror.SyncService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logger := config.GetLogger()
		body := c.Body()

		if !VerifyWebhookSignature(cfg.RazorpayWebhookSecret, body, c.Get("X-Razorpay-Signature")) {
			return httpError(ErrInvalidSignature)
		}

		orderID, paymentID, ok, err := parseWebhook(body)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid webhook payload")
		}
		if !ok {
			return c.JSON(fiber.Map{"status": "ignored"})
		}

		res, err := MarkPaid(c.UserContext(), database.DB, orderID, paymentID, 0, time.Now())
		if errors.Is(err, ErrOrderNotFound) {
			// not ours; acknowledge so the gateway stops retrying
			logger.WithFields(logrus.Fields{"order_id": orderID}).Warn("webhook for unknown order")
			return c.JSON(fiber.Map{"status": "ignored"})
		}
		if err != nil {
			config.LogError(logger, "payment", "WebhookHandler", "settlement failed", orderID, err)
			return fiber.NewError(fiber.StatusInternalServerError, "settlement failed")
		}
		if res.Applied {
			sync.SyncSubscription(c.UserContext(), res.Order.VendorID, *res.Subscription)
		}
		return c.JSON(fiber.Map{"status": "ok", "applied": res.Applied})
	}
}
