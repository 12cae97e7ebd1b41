package mq

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoBroker is returned when subscribing without a configured broker.
var ErrNoBroker = errors.New("mq: no broker configured")

// LogBackend accepts publishes and only logs them. It is used when MQ_DRIVER
// is none so the API keeps working without a broker.
type LogBackend struct {
	logger *zap.Logger
}

// NewLogBackend builds a publish-only backend.
func NewLogBackend(logger *zap.Logger) *LogBackend {
	return &LogBackend{logger: logger}
}

func (b *LogBackend) Publish(_ context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	id := uuid.NewString()
	b.logger.Info("mq publish skipped (no broker)",
		zap.String("channel", channel),
		zap.String("message_id", id),
		zap.Int("bytes", len(data)),
		zap.Any("attributes", attrs),
	)
	return id, nil
}

func (b *LogBackend) Subscribe(context.Context, string, Handler) error {
	return ErrNoBroker
}

func (b *LogBackend) Close() error { return nil }
