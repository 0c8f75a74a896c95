package publisher

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/erclient/internal/metrics"
	"github.com/Checker-Finance/erclient/pkg/model"
)

// JetStream is the part of nats.JetStreamContext the publisher needs.
type JetStream interface {
	PublishMsg(m *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATS publishes envelopes through JetStream.
type NATS struct {
	nc      *nats.Conn
	js      JetStream
	service string
	logger  *zap.Logger
}

// NewNATS enables JetStream on nc.
func NewNATS(nc *nats.Conn, service string, logger *zap.Logger) (*NATS, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	return newNATS(nc, js, service, logger), nil
}

func newNATS(nc *nats.Conn, js JetStream, service string, logger *zap.Logger) *NATS {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATS{nc: nc, js: js, service: service, logger: logger}
}

// PublishEnvelope serializes env and publishes it on subject (env.Topic when empty).
func (p *NATS) PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error {
	if subject == "" {
		subject = env.Topic
	}
	data, err := json.Marshal(env)
	if err != nil {
		p.logger.Error("publisher.marshal_failed",
			zap.String("subject", subject),
			zap.String("event_type", env.EventType),
			zap.Error(err),
		)
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range headers(env, p.service) {
		msg.Header.Set(k, v)
	}

	start := time.Now()
	_, err = p.js.PublishMsg(msg, nats.Context(ctx))
	metrics.ObserveDuration(metrics.MessageLatency, start, subject)

	if err != nil {
		p.logger.Error("publisher.publish_failed",
			zap.String("subject", subject),
			zap.String("event_type", env.EventType),
			zap.Error(err),
		)
		metrics.IncMessage(subject, "error")
		return err
	}

	p.logger.Debug("publisher.publish_success",
		zap.String("subject", subject),
		zap.String("event_type", env.EventType),
	)
	metrics.IncMessage(subject, "ok")
	return nil
}

func (p *NATS) Close() error {
	if p.nc != nil && p.nc.IsConnected() {
		return p.nc.Drain()
	}
	return nil
}
