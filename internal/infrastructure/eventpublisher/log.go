package eventpublisher

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/iho/memledger/internal/domain"
)

// LogPublisher is a simple publisher that logs notifications.
type LogPublisher struct {
	logger zerolog.Logger
}

// NewLogPublisher creates a new LogPublisher.
func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs the notification.
func (p *LogPublisher) Publish(ctx context.Context, notification *domain.Notification) error {
	p.logger.Info().
		Str("notification_id", notification.ID).
		Str("account_id", notification.AccountID).
		Time("created_at", notification.CreatedAt).
		Msg(notification.Message)

	return nil
}
