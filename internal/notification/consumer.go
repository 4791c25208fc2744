package notification

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopforge/commerce-backend/internal/observability"
	"github.com/shopforge/commerce-backend/internal/platform/apierr"
	"github.com/shopforge/commerce-backend/internal/platform/broker"
	"github.com/shopforge/commerce-backend/internal/platform/logger"
)

// ConsumerTopics are the domain streams the notification service reacts to.
var ConsumerTopics = []string{
	"support.case.opened.v1",
	"support.case.message.v1",
	"support.case.status.v1",
	"support.case.attachment.v1",
	"support.case.closed.v1",
	"order.status.changed.v1",
	"fulfillment.shipment.updated.v1",
}

// Consumer turns domain events into customer notifications, honoring
// opt-out preferences.
type Consumer struct {
	log     *logger.Logger
	metrics *observability.Metrics
	service Service
	repo    NotificationRepo
}

func NewConsumer(baseLog *logger.Logger, metrics *observability.Metrics, service Service, repo NotificationRepo) *Consumer {
	return &Consumer{
		log:     baseLog.With("service", "NotificationConsumer"),
		metrics: metrics,
		service: service,
		repo:    repo,
	}
}

func (c *Consumer) Register(bus *broker.Broker) {
	bus.Subscribe(ConsumerTopics, c.Handle)
}

func (c *Consumer) Handle(ctx context.Context, msg broker.Message) {
	var outcome string
	switch {
	case strings.HasPrefix(msg.Topic, "support.case."):
		outcome = c.handleSupportCase(ctx, msg.Topic, msg.Payload)
	case msg.Topic == "order.status.changed.v1":
		outcome = c.handleOrderStatus(ctx, msg.Payload)
	case msg.Topic == "fulfillment.shipment.updated.v1":
		outcome = c.handleShipmentUpdate(ctx, msg.Payload)
	default:
		outcome = "unsupported_topic"
	}

	if outcome == "processed" {
		c.metrics.IncEventProcessed(msg.Topic)
		return
	}
	c.metrics.IncEventDropped(msg.Topic, outcome)
}

func (c *Consumer) handleSupportCase(ctx context.Context, topic string, payload map[string]interface{}) string {
	ticket, ok := payload["ticket"].(map[string]interface{})
	if !ok {
		return "invalid_payload"
	}
	customerID, ok := parseCustomerID(ticket["customerId"])
	if !ok {
		return "missing_customer"
	}

	channel := strings.ToLower(stringOr(ticket["channel"], "email"))
	recipient := resolveRecipient(channel, customerID, ticket["customerEmail"], ticket["customerPhone"])
	if recipient == "" {
		return "no_recipient"
	}

	ticketID := stringOr(ticket["id"], "case")
	subject := fmt.Sprintf("Update for support case %s", ticketID)
	body := fmt.Sprintf("There is a new update on your support case '%s'.", stringOr(ticket["subject"], "Support case update"))
	switch stringOr(payload["changeType"], "") {
	case "conversation.added":
		if conversation, ok := payload["conversation"].(map[string]interface{}); ok {
			body = fmt.Sprintf("%s wrote: %s",
				titleCase(stringOr(conversation["authorType"], "agent")),
				stringOr(conversation["message"], "A new message has been posted to your case."))
		}
	case "attachment.added":
		body = "A new attachment has been added to your support case."
	case "status.changed":
		status := stringOr(payload["currentStatus"], stringOr(ticket["status"], "updated"))
		body = fmt.Sprintf("Your support case status is now %s.", titleCase(status))
	}
	if topic == "support.case.closed.v1" {
		subject = fmt.Sprintf("Support case %s closed", ticketID)
		body = fmt.Sprintf("Your support case '%s' has been closed.", stringOr(ticket["subject"], "Support case update"))
	}

	return c.dispatch(ctx, customerID, channel, recipient, subject, body, map[string]interface{}{
		"topic":    topic,
		"ticketId": ticket["id"],
	})
}

func (c *Consumer) handleOrderStatus(ctx context.Context, payload map[string]interface{}) string {
	customerID, ok := parseCustomerID(payload["customer_id"])
	if !ok {
		customerID, ok = parseCustomerID(payload["customerId"])
	}
	if !ok {
		return "missing_customer"
	}

	channel := strings.ToLower(stringOr(payload["channel"], "email"))
	recipient := resolveRecipient(channel, customerID, payload["customerEmail"], payload["customerPhone"])
	if recipient == "" {
		return "no_recipient"
	}

	status := titleCase(stringOr(payload["status"], "updated"))
	orderRef := "your order"
	subject := fmt.Sprintf("Your order is now %s", status)
	orderID := refString(payload["order_id"])
	if orderID == "" {
		orderID = refString(payload["orderId"])
	}
	if orderID != "" {
		orderRef = "order " + orderID
		subject = fmt.Sprintf("Order %s status updated to %s", orderID, status)
	}
	body := fmt.Sprintf("Your %s is now %s.", orderRef, status)

	return c.dispatch(ctx, customerID, channel, recipient, subject, body, map[string]interface{}{
		"topic":   "order.status.changed.v1",
		"orderId": payload["order_id"],
		"status":  payload["status"],
	})
}

func (c *Consumer) handleShipmentUpdate(ctx context.Context, payload map[string]interface{}) string {
	customerID, ok := parseCustomerID(payload["customer_id"])
	if !ok {
		customerID, ok = parseCustomerID(payload["customerId"])
	}
	if !ok {
		return "missing_customer"
	}

	channel := strings.ToLower(stringOr(payload["channel"], "email"))
	recipient := resolveRecipient(channel, customerID, payload["customerEmail"], payload["customerPhone"])
	if recipient == "" {
		return "no_recipient"
	}

	status := titleCase(stringOr(payload["status"], "updated"))
	tracking := stringOr(payload["trackingNumber"], "")
	subject := "Shipment status updated"
	body := fmt.Sprintf("Your shipment is now %s.", status)
	if tracking != "" {
		subject = fmt.Sprintf("Shipment update for %s", tracking)
		body = fmt.Sprintf("Your shipment %s is now %s.", tracking, status)
	}

	return c.dispatch(ctx, customerID, channel, recipient, subject, body, map[string]interface{}{
		"topic":          "fulfillment.shipment.updated.v1",
		"shipmentId":     payload["shipment_id"],
		"trackingNumber": payload["trackingNumber"],
		"status":         payload["status"],
	})
}

func (c *Consumer) dispatch(ctx context.Context, customerID int64, channel, recipient, subject, body string, metadata map[string]interface{}) string {
	optedIn, err := c.isOptedIn(ctx, customerID, channel)
	if err != nil {
		c.log.Error("preference lookup failed", "customer_id", customerID, "error", err)
		return "preference_error"
	}
	if !optedIn {
		return "opted_out"
	}

	view, err := c.service.CreateNotification(ctx, CreateNotificationRequest{
		Recipient: recipient,
		Channel:   channel,
		Subject:   &subject,
		Body:      body,
		Metadata:  metadata,
	})
	if err != nil {
		c.log.Error("notification create failed", "customer_id", customerID, "error", err)
		return "create_failed"
	}
	if _, err := c.service.SendNotification(ctx, view.ID); err != nil {
		if status, _ := apierr.StatusCode(err); status == http.StatusTooManyRequests {
			if _, failErr := c.service.FailNotification(ctx, view.ID, "rate_limit_exceeded"); failErr != nil {
				c.log.Error("notification fail mark failed", "notification_id", view.ID, "error", failErr)
			}
			return "rate_limited"
		}
		c.log.Error("notification send failed", "notification_id", view.ID, "error", err)
		return "send_failed"
	}
	return "processed"
}

func (c *Consumer) isOptedIn(ctx context.Context, customerID int64, channel string) (bool, error) {
	preferences, err := c.repo.GetPreferences(ctx, nil, customerID)
	if err != nil {
		return false, err
	}
	for _, pref := range preferences {
		if strings.EqualFold(pref.Channel, channel) {
			return pref.OptIn, nil
		}
	}
	return true, nil
}

func resolveRecipient(channel string, customerID int64, email, phone interface{}) string {
	switch strings.ToLower(channel) {
	case "email":
		if value := stringOr(email, ""); value != "" {
			return value
		}
		return fmt.Sprintf("customer-%d@example.com", customerID)
	case "sms":
		return stringOr(phone, "")
	}
	return ""
}

func parseCustomerID(raw interface{}) (int64, bool) {
	switch value := raw.(type) {
	case int64:
		return value, value > 0
	case int:
		return int64(value), value > 0
	case uint:
		return int64(value), value > 0
	case float64:
		return int64(value), value > 0
	case string:
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, value)
		if digits == "" {
			return 0, false
		}
		parsed, err := strconv.ParseInt(digits, 10, 64)
		return parsed, err == nil && parsed > 0
	}
	return 0, false
}

func refString(raw interface{}) string {
	switch value := raw.(type) {
	case string:
		return strings.TrimSpace(value)
	case int:
		return strconv.Itoa(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case uint:
		return strconv.FormatUint(uint64(value), 10)
	case float64:
		return strconv.FormatInt(int64(value), 10)
	}
	return ""
}

func stringOr(raw interface{}, fallback string) string {
	if value, ok := raw.(string); ok {
		if cleaned := strings.TrimSpace(value); cleaned != "" {
			return cleaned
		}
	}
	return fallback
}

func titleCase(value string) string {
	cleaned := strings.NewReplacer("_", " ", "-", " ").Replace(value)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "Updated"
	}
	return strings.ToUpper(cleaned[:1]) + strings.ToLower(cleaned[1:])
}
