package stream_junction

import (
	"context"
	"errors"

	"github.com/rs/xid"
)

// sourceEntry is the handle for one admitted producer. The id, held
// value and lifecycle bookkeeping belong to the coordinator loop; the
// worker only owns the producer capability, its context and the resume
// channel it parks on between pulls.
type sourceEntry[T any] struct {
	id       uint64
	sid      string
	producer Producer[T]

	ctx    context.Context
	cancel context.CancelFunc

	// resume carries one token per accepted value; the worker must not
	// issue the next pull before receiving it. Capacity 1 keeps the
	// coordinator's send non-blocking.
	resume chan struct{}

	// Coordinator-owned backpressure state.
	held    T
	hasHeld bool
}

func newSourceEntry[T any](parent context.Context, id uint64, p Producer[T]) *sourceEntry[T] {
	e := &sourceEntry[T]{
		id:       id,
		sid:      xid.New().String(),
		producer: p,
		resume:   make(chan struct{}, 1),
	}
	e.ctx, e.cancel = context.WithCancel(parent)
	return e
}

// runSource is the pull chain of one source: pull, report readiness,
// wait for the coordinator to grant the next pull. It exits on the
// source's own terminal state or, during shutdown, after running the
// producer's cancellation hook exactly once and acknowledging it.
func (j *Junction[T]) runSource(e *sourceEntry[T]) {
	for {
		v, err := e.producer.Pull(e.ctx)

		if cancelErr := e.ctx.Err(); cancelErr != nil && !errors.Is(err, ErrEndOfStream) {
			// Cancelled mid-pull, or the producer ignored the context
			// and produced anyway; either way the value is discarded.
			j.ackSourceCancel(e)
			return
		}

		switch {
		case err == nil:
			j.post(evValueReady[T]{id: e.id, value: v})
			select {
			case <-e.resume:
			case <-e.ctx.Done():
				j.ackSourceCancel(e)
				return
			}
		case errors.Is(err, ErrEndOfStream):
			j.post(evSourceClosed{id: e.id})
			return
		default:
			j.post(evSourceFailed{id: e.id, err: err})
			return
		}
	}
}

// ackSourceCancel runs the producer's cancel hook and reports back.
// Cancel is idempotent by contract, so racing a source that terminated
// on its own in the same instant is harmless.
func (j *Junction[T]) ackSourceCancel(e *sourceEntry[T]) {
	err := e.producer.Cancel(context.Background())
	j.post(evCancelAcked{id: e.id, err: err})
}
