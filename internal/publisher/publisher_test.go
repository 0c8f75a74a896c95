package publisher

import (
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/erclient/pkg/model"
)

type mockJetStream struct {
	msgs []*nats.Msg
	err  error
}

func (m *mockJetStream) PublishMsg(msg *nats.Msg, _ ...nats.PubOpt) (*nats.PubAck, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.msgs = append(m.msgs, msg)
	return &nats.PubAck{Stream: "ER", Sequence: uint64(len(m.msgs))}, nil
}

type mockChannel struct {
	keys []string
	pubs []amqp.Publishing
	err  error
}

func (m *mockChannel) PublishWithContext(_ context.Context, _ string, key string, _, _ bool, msg amqp.Publishing) error {
	if m.err != nil {
		return m.err
	}
	m.keys = append(m.keys, key)
	m.pubs = append(m.pubs, msg)
	return nil
}

func (m *mockChannel) Close() error { return nil }

func testEnvelope(t *testing.T) *model.Envelope {
	t.Helper()
	env, err := model.NewEnvelope(model.TopicEventsSynced, "er.events.synced", "sandbox", uuid.Nil,
		model.EventSynced{Table: "earthranger.events", Count: 2, EventIDs: []string{"a", "b"}})
	require.NoError(t, err)
	return env
}

func TestNATS_PublishEnvelope(t *testing.T) {
	js := &mockJetStream{}
	p := newNATS(nil, js, "er-sync", nil)
	env := testEnvelope(t)

	require.NoError(t, p.PublishEnvelope(context.Background(), "", env))
	require.Len(t, js.msgs, 1)

	msg := js.msgs[0]
	assert.Equal(t, model.TopicEventsSynced, msg.Subject, "defaults to the envelope topic")
	assert.Equal(t, "er.events.synced", msg.Header.Get("event_type"))
	assert.Equal(t, env.CorrelationID.String(), msg.Header.Get("correlation_id"))
	assert.Equal(t, "er-sync", msg.Header.Get("service"))

	var decoded model.Envelope
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, env.ID, decoded.ID)
}

func TestNATS_PublishError(t *testing.T) {
	p := newNATS(nil, &mockJetStream{err: nats.ErrNoResponders}, "er-sync", nil)
	err := p.PublishEnvelope(context.Background(), "custom.subject", testEnvelope(t))
	assert.ErrorIs(t, err, nats.ErrNoResponders)
	assert.NoError(t, p.Close())
}

func TestAMQP_PublishEnvelope(t *testing.T) {
	ch := &mockChannel{}
	p := newAMQP(ch, "", "er-sync", nil)
	env := testEnvelope(t)

	require.NoError(t, p.PublishEnvelope(context.Background(), "er.sync.custom", env))
	require.Len(t, ch.pubs, 1)
	assert.Equal(t, "er.sync.custom", ch.keys[0])

	pub := ch.pubs[0]
	assert.Equal(t, "application/json", pub.ContentType)
	assert.Equal(t, amqp.Persistent, pub.DeliveryMode)
	assert.Equal(t, env.ID.String(), pub.MessageId)
	assert.Equal(t, "er.events.synced", pub.Headers["event_type"])
	assert.NoError(t, p.Close())
}

func TestAMQP_PublishError(t *testing.T) {
	p := newAMQP(&mockChannel{err: errors.New("channel closed")}, "er", "er-sync", nil)
	assert.EqualError(t, p.PublishEnvelope(context.Background(), "", testEnvelope(t)), "channel closed")
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.PublishEnvelope(context.Background(), "x", nil))
	assert.NoError(t, p.Close())
}
