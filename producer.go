package stream_junction

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/atomic"
)

// ErrEndOfStream is returned by Pull when a producer (or the outer
// source-of-sources) has no further values and closed normally.
var ErrEndOfStream = errors.New("stream junction: end of stream")

// Producer is one inner stream contributing values to a merged output.
//
// Pull blocks until the next value is available, the stream ends
// (ErrEndOfStream), the stream fails (any other error), or ctx is done.
// Cancel must be idempotent and safe to call concurrently with an
// in-flight Pull; after Cancel, Pull must eventually return.
type Producer[T any] interface {
	Pull(ctx context.Context) (T, error)
	Cancel(ctx context.Context) error
}

// SourceOfSources is the outer stream whose elements are producers.
// It has the same pull/cancel contract as Producer.
type SourceOfSources[T any] interface {
	Pull(ctx context.Context) (Producer[T], error)
	Cancel(ctx context.Context) error
}

// SliceProducer yields the elements of a slice in order, then closes.
type SliceProducer[T any] struct {
	mu        sync.Mutex
	values    []T
	next      int
	cancelled *atomic.Bool
}

func NewSliceProducer[T any](values []T) *SliceProducer[T] {
	return &SliceProducer[T]{
		values:    values,
		cancelled: atomic.NewBool(false),
	}
}

func (sp *SliceProducer[T]) Pull(ctx context.Context) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if sp.cancelled.Load() {
		return zero, ErrEndOfStream
	}
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.next >= len(sp.values) {
		return zero, ErrEndOfStream
	}
	v := sp.values[sp.next]
	sp.next++
	return v, nil
}

func (sp *SliceProducer[T]) Cancel(ctx context.Context) error {
	sp.cancelled.Store(true)
	return nil
}

var _ Producer[int] = (*SliceProducer[int])(nil)

// ChanProducer adapts a receive channel. The stream closes when the
// channel is closed. Cancel detaches from the channel without draining
// it; the channel's feeder owns its lifecycle.
type ChanProducer[T any] struct {
	ch        <-chan T
	cancelled *atomic.Bool
}

func NewChanProducer[T any](ch <-chan T) *ChanProducer[T] {
	return &ChanProducer[T]{ch: ch, cancelled: atomic.NewBool(false)}
}

func (cp *ChanProducer[T]) Pull(ctx context.Context) (T, error) {
	var zero T
	if cp.cancelled.Load() {
		return zero, ErrEndOfStream
	}
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case v, ok := <-cp.ch:
		if !ok {
			return zero, ErrEndOfStream
		}
		return v, nil
	}
}

func (cp *ChanProducer[T]) Cancel(ctx context.Context) error {
	cp.cancelled.Store(true)
	return nil
}

var _ Producer[int] = (*ChanProducer[int])(nil)

// FuncProducer builds a producer from plain functions. The cancel hook
// may be nil; it runs at most once.
type FuncProducer[T any] struct {
	pull       func(ctx context.Context) (T, error)
	cancelHook func(ctx context.Context) error
	cancelled  *atomic.Bool
}

func NewFuncProducer[T any](pull func(ctx context.Context) (T, error), cancel func(ctx context.Context) error) *FuncProducer[T] {
	return &FuncProducer[T]{
		pull:       pull,
		cancelHook: cancel,
		cancelled:  atomic.NewBool(false),
	}
}

func (fp *FuncProducer[T]) Pull(ctx context.Context) (T, error) {
	if fp.cancelled.Load() {
		var zero T
		return zero, ErrEndOfStream
	}
	return fp.pull(ctx)
}

func (fp *FuncProducer[T]) Cancel(ctx context.Context) error {
	if fp.cancelled.Swap(true) {
		return nil
	}
	if fp.cancelHook == nil {
		return nil
	}
	return fp.cancelHook(ctx)
}

var _ Producer[int] = (*FuncProducer[int])(nil)

// FuncSource builds a source-of-sources from plain functions. The
// cancel hook may be nil; it runs at most once.
type FuncSource[T any] struct {
	pull       func(ctx context.Context) (Producer[T], error)
	cancelHook func(ctx context.Context) error
	cancelled  *atomic.Bool
}

func NewFuncSource[T any](pull func(ctx context.Context) (Producer[T], error), cancel func(ctx context.Context) error) *FuncSource[T] {
	return &FuncSource[T]{
		pull:       pull,
		cancelHook: cancel,
		cancelled:  atomic.NewBool(false),
	}
}

func (fs *FuncSource[T]) Pull(ctx context.Context) (Producer[T], error) {
	if fs.cancelled.Load() {
		return nil, ErrEndOfStream
	}
	return fs.pull(ctx)
}

func (fs *FuncSource[T]) Cancel(ctx context.Context) error {
	if fs.cancelled.Swap(true) {
		return nil
	}
	if fs.cancelHook == nil {
		return nil
	}
	return fs.cancelHook(ctx)
}

var _ SourceOfSources[int] = (*FuncSource[int])(nil)

// ProducersSource yields an already-materialized set of producers one
// at a time, then closes.
type ProducersSource[T any] struct {
	mu        sync.Mutex
	producers []Producer[T]
	next      int
	cancelled *atomic.Bool
}

func NewProducersSource[T any](producers ...Producer[T]) *ProducersSource[T] {
	return &ProducersSource[T]{
		producers: producers,
		cancelled: atomic.NewBool(false),
	}
}

func (ps *ProducersSource[T]) Pull(ctx context.Context) (Producer[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ps.cancelled.Load() {
		return nil, ErrEndOfStream
	}
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.next >= len(ps.producers) {
		return nil, ErrEndOfStream
	}
	p := ps.producers[ps.next]
	ps.next++
	return p, nil
}

func (ps *ProducersSource[T]) Cancel(ctx context.Context) error {
	ps.cancelled.Store(true)
	return nil
}

var _ SourceOfSources[int] = (*ProducersSource[int])(nil)

// ChanSourceOfSources adapts a channel of producers; closing the
// channel signals that no more producers will ever arrive.
type ChanSourceOfSources[T any] struct {
	ch        <-chan Producer[T]
	cancelled *atomic.Bool
}

func NewChanSourceOfSources[T any](ch <-chan Producer[T]) *ChanSourceOfSources[T] {
	return &ChanSourceOfSources[T]{ch: ch, cancelled: atomic.NewBool(false)}
}

func (cs *ChanSourceOfSources[T]) Pull(ctx context.Context) (Producer[T], error) {
	if cs.cancelled.Load() {
		return nil, ErrEndOfStream
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case p, ok := <-cs.ch:
		if !ok {
			return nil, ErrEndOfStream
		}
		return p, nil
	}
}

func (cs *ChanSourceOfSources[T]) Cancel(ctx context.Context) error {
	cs.cancelled.Store(true)
	return nil
}

var _ SourceOfSources[int] = (*ChanSourceOfSources[int])(nil)
