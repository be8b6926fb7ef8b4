package payment

import (
	"encoding/json"
)

const (
	EventPaymentCaptured = "payment.captured"
	EventOrderPaid       = "order.paid"
)

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

// parseWebhook extracts the order and payment ids of a settling event. ok is
// false for events that do not settle an order.
func parseWebhook(body []byte) (orderID, paymentID string, ok bool, err error) {
	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return "", "", false, err
	}
	if ev.Event != EventPaymentCaptured && ev.Event != EventOrderPaid {
		return "", "", false, nil
	}
	orderID = ev.Payload.Payment.Entity.OrderID
	if orderID == "" {
		orderID = ev.Payload.Order.Entity.ID
	}
	paymentID = ev.Payload.Payment.Entity.ID
	return orderID, paymentID, orderID != "", nil
}
