package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewKafkaConfig())
	var sent []byte
	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "weasl.auth" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "42" {
			return errors.New("unexpected key " + string(key))
		}
		sent, _ = msg.Value.Encode()
		return nil
	})

	p := NewKafkaPublisherWithProducer(producer, "weasl.auth")
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, p.Publish(context.Background(), Event{
		Type: TokenIssued, TenantID: 42, PrincipalID: "p1", Channel: "sms", At: at,
	}))
	require.NoError(t, p.Close())

	var got Event
	require.NoError(t, json.Unmarshal(sent, &got))
	assert.Equal(t, TokenIssued, got.Type)
	assert.Equal(t, int64(42), got.TenantID)
	assert.Equal(t, "sms", got.Channel)
}

func TestKafkaPublisher_Error(t *testing.T) {
	producer := mocks.NewSyncProducer(t, NewKafkaConfig())
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaPublisherWithProducer(producer, "weasl.auth")
	err := p.Publish(context.Background(), Event{Type: PrincipalLogin, TenantID: 1})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

type recorder struct{ got []Event }

func (r *recorder) Publish(ctx context.Context, e Event) error {
	r.got = append(r.got, e)
	return errors.New("broker down")
}
func (r *recorder) Close() error { return nil }

func TestEmit_FillsTimestampAndSwallowsErrors(t *testing.T) {
	r := &recorder{}
	Emit(context.Background(), r, Event{Type: TenantCreated, TenantID: 7})
	Emit(context.Background(), nil, Event{Type: TenantCreated})
	require.Len(t, r.got, 1)
	assert.False(t, r.got[0].At.IsZero())
}
