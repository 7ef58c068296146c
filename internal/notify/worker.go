package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/common"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/events"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/queue"
)

// Handlers processes email tasks on the worker side.
type Handlers struct {
	Sender  common.EmailSender
	BaseURL string
}

// Register attaches the email task handlers to the mux.
func (h Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(queue.TypeActivationEmail, h.HandleActivationEmail)
	mux.HandleFunc(queue.TypeOrderStatusEmail, h.HandleOrderStatusEmail)
}

// HandleActivationEmail delivers the account activation link.
func (h Handlers) HandleActivationEmail(ctx context.Context, t *asynq.Task) error {
	var p queue.ActivationEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if h.Sender == nil {
		return nil
	}
	link := fmt.Sprintf("%s/activate?token=%s", strings.TrimRight(h.BaseURL, "/"), p.Token)
	body := fmt.Sprintf(
		"<p>Hi %s,</p><p>Confirm your email to activate your account:</p><p><a href=%q>%s</a></p>",
		p.Name, link, link)
	if err := h.Sender.Send(p.Email, "Activate your account", body); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("task", t.Type()).Msg("email delivery failed")
		queue.TasksProcessedTotal.WithLabelValues(t.Type(), "error").Inc()
		return err
	}
	queue.TasksProcessedTotal.WithLabelValues(t.Type(), "ok").Inc()
	return nil
}

// HandleOrderStatusEmail delivers an order lifecycle notification.
func (h Handlers) HandleOrderStatusEmail(ctx context.Context, t *asynq.Task) error {
	var p queue.OrderStatusEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if h.Sender == nil {
		return nil
	}
	subject, body := orderStatusContent(p)
	if err := h.Sender.Send(p.Email, subject, body); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("task", t.Type()).Msg("email delivery failed")
		queue.TasksProcessedTotal.WithLabelValues(t.Type(), "error").Inc()
		return err
	}
	queue.TasksProcessedTotal.WithLabelValues(t.Type(), "ok").Inc()
	return nil
}

func orderStatusContent(p queue.OrderStatusEmailPayload) (string, string) {
	var subject, lead string
	switch p.Topic {
	case events.TopicOrderCreated:
		subject = "We received your order"
		lead = "Your order has been placed and is awaiting confirmation."
	case events.TopicOrderPaid:
		subject = "Your order is confirmed"
		lead = "Payment is confirmed and your order is being prepared."
	case events.TopicOrderCanceled:
		subject = "Your order was canceled"
		lead = "Your order has been canceled."
	default:
		subject = "Order update"
		lead = "There is an update on your order."
	}
	body := fmt.Sprintf("<p>Hi %s,</p><p>%s</p><p>Order: %s</p>", p.Name, lead, p.OrderID)
	if p.Total > 0 {
		body += fmt.Sprintf("<p>Total: %d</p>", p.Total)
	}
	return subject, body
}
