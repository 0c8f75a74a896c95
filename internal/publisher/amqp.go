package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/Checker-Finance/erclient/internal/metrics"
	"github.com/Checker-Finance/erclient/pkg/model"
)

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQP publishes envelopes to a RabbitMQ exchange, using the subject as routing key.
type AMQP struct {
	conn     *amqp.Connection
	channel  Channel
	exchange string
	service  string
	logger   *zap.Logger
}

// NewAMQP dials url and opens a channel. An empty exchange means the default exchange.
func NewAMQP(url, exchange, service string, logger *zap.Logger) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	p := newAMQP(ch, exchange, service, logger)
	p.conn = conn
	return p, nil
}

func newAMQP(ch Channel, exchange, service string, logger *zap.Logger) *AMQP {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQP{channel: ch, exchange: exchange, service: service, logger: logger}
}

func (p *AMQP) PublishEnvelope(ctx context.Context, subject string, env *model.Envelope) error {
	if subject == "" {
		subject = env.Topic
	}
	body, err := json.Marshal(env)
	if err != nil {
		metrics.IncError("publisher", "marshal_failed")
		return err
	}

	table := amqp.Table{}
	for k, v := range headers(env, p.service) {
		table[k] = v
	}

	start := time.Now()
	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		subject, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     env.ID.String(),
			CorrelationId: env.CorrelationID.String(),
			Timestamp:     env.Timestamp,
			Type:          env.EventType,
			AppId:         p.service,
			Headers:       table,
			Body:          body,
		},
	)
	metrics.ObserveDuration(metrics.MessageLatency, start, subject)
	if err != nil {
		p.logger.Error("publisher.publish_failed",
			zap.String("routing_key", subject),
			zap.String("event_type", env.EventType),
			zap.Error(err),
		)
		metrics.IncMessage(subject, "error")
		return err
	}
	metrics.IncMessage(subject, "ok")
	return nil
}

func (p *AMQP) Close() error {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
