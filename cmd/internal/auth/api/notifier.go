package authapi

import (
	"context"
	"time"

	"careerquest/cmd/internal/broker"
)

// PasswordResetMessage is the canonical payload for reset delivery.
type PasswordResetMessage struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ResetNotifier delivers password reset tokens to their owner.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, msg PasswordResetMessage) error
}

// NoopResetNotifier drops messages. Used when no broker is configured.
type NoopResetNotifier struct{}

// SendPasswordReset implements ResetNotifier.
func (NoopResetNotifier) SendPasswordReset(_ context.Context, _ PasswordResetMessage) error {
	return nil
}

// BrokerResetNotifier hands reset messages to a mailer worker via the broker.
type BrokerResetNotifier struct {
	Publisher broker.Publisher
}

// SendPasswordReset implements ResetNotifier.
func (n BrokerResetNotifier) SendPasswordReset(ctx context.Context, msg PasswordResetMessage) error {
	if n.Publisher == nil {
		return nil
	}
	return n.Publisher.Publish(ctx, broker.SubjectPasswordReset, msg)
}
