package queue

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names. The worker registers a handler per type.
const (
	TypeActivationEmail  = "email:activation"
	TypeOrderStatusEmail = "email:order_status"
)

// Queue names, in descending priority.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
)

// ActivationEmailPayload carries everything needed to mail an activation link.
type ActivationEmailPayload struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

// OrderStatusEmailPayload carries an order lifecycle notification.
type OrderStatusEmailPayload struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	OrderID string `json:"orderId"`
	Topic   string `json:"topic"`
	Total   int64  `json:"total,omitempty"`
}

// NewActivationEmailTask builds the asynq task for an activation email.
func NewActivationEmailTask(p ActivationEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeActivationEmail, data), nil
}

// NewOrderStatusEmailTask builds the asynq task for an order status email.
func NewOrderStatusEmailTask(p OrderStatusEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeOrderStatusEmail, data), nil
}
