package notify

import (
	"context"

	"github.com/hicamnhungngn05-cmd/dkmv-tonghop1/internal/queue"
)

// QueueMailer hands activation emails to the background queue so registration
// never waits on SMTP.
type QueueMailer struct {
	Enqueue queue.Enqueuer
}

// SendActivation implements auth.ActivationMailer.
func (m QueueMailer) SendActivation(ctx context.Context, email, name, token string) error {
	return m.Enqueue.EnqueueActivationEmail(ctx, queue.ActivationEmailPayload{
		Email: email,
		Name:  name,
		Token: token,
	})
}
