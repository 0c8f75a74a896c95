package publisher

import (
	"context"

	"github.com/Checker-Finance/erclient/pkg/model"
)

// Publisher emits canonical envelopes to a broker.
type Publisher interface {
	PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error
	Close() error
}

// Nop discards everything; used when PUBLISHER=none.
type Nop struct{}

func (Nop) PublishEnvelope(context.Context, string, *model.Envelope) error { return nil }
func (Nop) Close() error                                                   { return nil }

func headers(env *model.Envelope, service string) map[string]string {
	return map[string]string{
		"event_type":     env.EventType,
		"correlation_id": env.CorrelationID.String(),
		"service":        service,
		"content_type":   "application/json",
		"site":           env.Site,
	}
}
