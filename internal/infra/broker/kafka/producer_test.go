package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSendsKeyedMessage(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	sp := mocks.NewSyncProducer(t, cfg)
	sp.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "booking.events.v1" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, _ := msg.Key.Encode()
		if string(key) != "b-1" {
			return errors.New("unexpected key " + string(key))
		}
		return nil
	})
	p := newProducer(sp)

	err := p.Publish(context.Background(), "booking.events.v1", "b-1", []byte(`{}`), map[string]string{"content-type": "application/cloudevents+json"})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}

func TestPublishWrapsBrokerError(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	sp := mocks.NewSyncProducer(t, cfg)
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)
	p := newProducer(sp)

	err := p.Publish(context.Background(), "deposit.events.v1", "North", nil, nil)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newProducer(nil)
	assert.ErrorIs(t, p.Publish(ctx, "t", "k", nil, nil), context.Canceled)
}

func TestBuildMessageOrdersHeaders(t *testing.T) {
	msg := buildMessage("t", "k", []byte("x"), map[string]string{"b": "2", "a": "1"})
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "a", string(msg.Headers[0].Key))
	assert.Equal(t, "b", string(msg.Headers[1].Key))
}

func TestNewProducerNeedsBrokers(t *testing.T) {
	_, err := NewProducer(nil, nil)
	assert.ErrorIs(t, err, ErrNoBrokers)
}
