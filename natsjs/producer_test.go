package natsjs

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	stream "github.com/pnvasko/stream-junction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSubscriptionProducerValidation(t *testing.T) {
	_, err := NewSubscriptionProducer[[]byte](nil, BytesCodec{})
	assert.Error(t, err)

	_, err = NewSubscriptionProducer[[]byte](&nats.Subscription{}, nil)
	assert.Error(t, err)
}

func TestNewSubjectSourceValidation(t *testing.T) {
	subjects := make(chan string)

	_, err := NewSubjectSource[[]byte](nil, subjects, BytesCodec{})
	assert.Error(t, err)

	_, err = NewSubjectSource[[]byte](&nats.Conn{}, subjects, nil)
	assert.Error(t, err)

	_, err = NewSubjectSource[[]byte](&nats.Conn{}, subjects, BytesCodec{},
		WithSubscribeRetry[[]byte](nil))
	assert.Error(t, err)

	ss, err := NewSubjectSource[[]byte](&nats.Conn{}, subjects, BytesCodec{},
		WithSubscribeRetry[[]byte](stream.NewMaxRetryDelay(time.Millisecond, 2)))
	require.NoError(t, err)
	require.NotNil(t, ss)
}

func TestSubjectSourceClosedFeed(t *testing.T) {
	subjects := make(chan string)
	close(subjects)

	ss, err := NewSubjectSource[[]byte](&nats.Conn{}, subjects, BytesCodec{})
	require.NoError(t, err)

	_, err = ss.Pull(context.Background())
	assert.ErrorIs(t, err, stream.ErrEndOfStream)
}

func TestSubjectSourceCancelStopsPull(t *testing.T) {
	subjects := make(chan string, 1)
	subjects <- "orders.created"

	ss, err := NewSubjectSource[[]byte](&nats.Conn{}, subjects, BytesCodec{})
	require.NoError(t, err)
	require.NoError(t, ss.Cancel(context.Background()))

	_, err = ss.Pull(context.Background())
	assert.ErrorIs(t, err, stream.ErrEndOfStream)
}
