package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogPublisher writes events to the log. It is used when no broker is configured.
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, event *Event) error {
	p.log.Info("Membership event",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Uint64("organization_id", event.OrganizationID),
		zap.String("email", event.Email),
	)
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
