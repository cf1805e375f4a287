package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSNS struct {
	publishedArn  string
	publishedType string
	publishedMsg  []byte
	err           error
}

func (m *mockSNS) Publish(_ context.Context, topicArn, eventType string, message []byte) error {
	m.publishedArn = topicArn
	m.publishedType = eventType
	m.publishedMsg = append([]byte(nil), message...)
	return m.err
}

type mockWriter struct {
	msgs []kafka.Message
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error { return nil }

func TestSNSPublisher_SendsJSON(t *testing.T) {
	sns := &mockSNS{}
	pub := NewSNSPublisher(sns, "arn:aws:sns:eu-west-2:000000000000:coffee-events")

	err := pub.Publish(context.Background(), Event{
		Type:    "order.created",
		Key:     "o-1",
		Payload: map[string]string{"order_id": "o-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:sns:eu-west-2:000000000000:coffee-events", sns.publishedArn)
	assert.Equal(t, "order.created", sns.publishedType)

	var out map[string]string
	require.NoError(t, json.Unmarshal(sns.publishedMsg, &out))
	assert.Equal(t, "o-1", out["order_id"])
}

func TestKafkaPublisher_KeysAndHeaders(t *testing.T) {
	w := &mockWriter{}
	pub := &KafkaPublisher{writer: w, topic: "coffee.orders"}

	require.NoError(t, pub.Publish(context.Background(), Event{Type: "payment.updated", Key: "o-2", Payload: struct{}{}}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("o-2"), w.msgs[0].Key)
	assert.Equal(t, "event_type", w.msgs[0].Headers[0].Key)
	assert.Equal(t, []byte("payment.updated"), w.msgs[0].Headers[0].Value)
}

func TestFanout_JoinsErrors(t *testing.T) {
	failing := NewSNSPublisher(&mockSNS{err: errors.New("throttled")}, "arn")
	ok := &KafkaPublisher{writer: &mockWriter{}, topic: "t"}

	f := NewFanout(zap.NewNop(), failing, ok, NoopPublisher{})
	err := f.Publish(context.Background(), Event{Type: "order.created", Payload: 1})
	assert.ErrorContains(t, err, "throttled")
	assert.NoError(t, f.Close())
}
