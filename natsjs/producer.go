package natsjs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	stream "github.com/pnvasko/stream-junction"
	"go.uber.org/atomic"
)

// SubscriptionProducer exposes one synchronous NATS subscription as a
// pull-based producer. The subscription closes the stream when it
// becomes invalid (unsubscribed or connection closed); Cancel
// unsubscribes, idempotently.
type SubscriptionProducer[T any] struct {
	sub       *nats.Subscription
	codec     Codec[T]
	cancelled *atomic.Bool
}

func NewSubscriptionProducer[T any](sub *nats.Subscription, codec Codec[T]) (*SubscriptionProducer[T], error) {
	if sub == nil {
		return nil, fmt.Errorf("natsjs: subscription is required")
	}
	if codec == nil {
		return nil, fmt.Errorf("natsjs: codec is required")
	}
	return &SubscriptionProducer[T]{
		sub:       sub,
		codec:     codec,
		cancelled: atomic.NewBool(false),
	}, nil
}

func (sp *SubscriptionProducer[T]) Pull(ctx context.Context) (T, error) {
	var zero T
	if sp.cancelled.Load() {
		return zero, stream.ErrEndOfStream
	}
	msg, err := sp.sub.NextMsgWithContext(ctx)
	if err != nil {
		if errors.Is(err, nats.ErrBadSubscription) || errors.Is(err, nats.ErrConnectionClosed) {
			return zero, stream.ErrEndOfStream
		}
		return zero, err
	}
	return sp.codec.Decode(msg)
}

func (sp *SubscriptionProducer[T]) Cancel(ctx context.Context) error {
	if sp.cancelled.Swap(true) {
		return nil
	}
	if err := sp.sub.Unsubscribe(); err != nil && !errors.Is(err, nats.ErrBadSubscription) {
		return err
	}
	return nil
}

var _ stream.Producer[[]byte] = (*SubscriptionProducer[[]byte])(nil)

// SubjectSource turns a feed of subject names into a source-of-sources:
// each announced subject is subscribed to and handed to the junction as
// one producer. Closing the feed channel means no more subjects will
// ever appear.
type SubjectSource[T any] struct {
	conn      *nats.Conn
	subjects  <-chan string
	codec     Codec[T]
	retry     stream.Delay
	cancelled *atomic.Bool
}

type SubjectSourceOption[T any] func(*SubjectSource[T]) error

// WithSubscribeRetry retries transient subscribe failures with the
// given delay strategy instead of failing the whole merge.
func WithSubscribeRetry[T any](d stream.Delay) SubjectSourceOption[T] {
	return func(ss *SubjectSource[T]) error {
		if d == nil {
			return fmt.Errorf("natsjs: retry delay cannot be nil")
		}
		ss.retry = d
		return nil
	}
}

func NewSubjectSource[T any](conn *nats.Conn, subjects <-chan string, codec Codec[T], opts ...SubjectSourceOption[T]) (*SubjectSource[T], error) {
	if conn == nil {
		return nil, fmt.Errorf("natsjs: connection is required")
	}
	if codec == nil {
		return nil, fmt.Errorf("natsjs: codec is required")
	}
	ss := &SubjectSource[T]{
		conn:      conn,
		subjects:  subjects,
		codec:     codec,
		retry:     stream.NewMaxRetryDelay(time.Second, 3),
		cancelled: atomic.NewBool(false),
	}
	for _, opt := range opts {
		if err := opt(ss); err != nil {
			return nil, err
		}
	}
	return ss, nil
}

func (ss *SubjectSource[T]) Pull(ctx context.Context) (stream.Producer[T], error) {
	if ss.cancelled.Load() {
		return nil, stream.ErrEndOfStream
	}

	var subject string
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case name, ok := <-ss.subjects:
		if !ok {
			return nil, stream.ErrEndOfStream
		}
		subject = name
	}

	var lastErr error
	for attempt := uint64(0); ; attempt++ {
		sub, err := ss.conn.SubscribeSync(subject)
		if err == nil {
			return NewSubscriptionProducer(sub, ss.codec)
		}
		lastErr = err

		wait := ss.retry.WaitTime(attempt)
		if wait == stream.TermSignal {
			return nil, fmt.Errorf("natsjs: subscribe %q: %w", subject, lastErr)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (ss *SubjectSource[T]) Cancel(ctx context.Context) error {
	ss.cancelled.Store(true)
	return nil
}

var _ stream.SourceOfSources[[]byte] = (*SubjectSource[[]byte])(nil)
