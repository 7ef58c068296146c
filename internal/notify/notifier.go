package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/db"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/events"
	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/queue"
)

// UserLookup resolves the recipient for an event.
type UserLookup interface {
	GetUserByID(ctx context.Context, id pgtype.UUID) (db.User, error)
}

// EmailNotifier turns selected domain events into queued notification emails.
// It implements events.Notifier.
type EmailNotifier struct {
	Enqueue queue.Enqueuer
	Users   UserLookup
	Topics  map[string]bool
}

// DefaultEmailTopics lists the events that produce a customer email.
func DefaultEmailTopics() map[string]bool {
	return map[string]bool{
		events.TopicOrderCreated:  true,
		events.TopicOrderPaid:     true,
		events.TopicOrderCanceled: true,
	}
}

// Notify implements events.Notifier.
func (n EmailNotifier) Notify(ctx context.Context, event events.Event) error {
	if n.Topics != nil && !n.Topics[event.Topic] {
		return nil
	}
	if n.Users == nil {
		return nil
	}

	var payload struct {
		OrderID string `json:"orderId"`
		UserID  string `json:"userId"`
		Total   int64  `json:"total"`
	}
	if len(event.Payload) > 0 {
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return fmt.Errorf("email notify: decode payload: %w", err)
		}
	}
	if strings.TrimSpace(payload.UserID) == "" {
		return nil
	}
	var userID pgtype.UUID
	if err := userID.Scan(payload.UserID); err != nil {
		return fmt.Errorf("email notify: bad user id: %w", err)
	}
	user, err := n.Users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("email notify: lookup user: %w", err)
	}

	return n.Enqueue.EnqueueOrderStatusEmail(ctx, queue.OrderStatusEmailPayload{
		Email:   user.Email,
		Name:    user.Name,
		OrderID: payload.OrderID,
		Topic:   event.Topic,
		Total:   payload.Total,
	})
}
