package stream_junction

import (
	"context"

	"go.uber.org/atomic"
)

func zero[T any]() (_ T) { return }

// Future is a single-assignment cell resolved by the junction loop.
type Future[T any] struct {
	ctx   context.Context
	ch    chan struct{}
	value T
	err   error
	done  *atomic.Bool
}

func NewFuture[T any](ctx context.Context) *Future[T] {
	return &Future[T]{
		ctx:  ctx,
		ch:   make(chan struct{}),
		done: atomic.NewBool(false),
	}
}

func (future *Future[T]) SetValue(value T) {
	if future.done.Swap(true) {
		return
	}
	future.value = value
	close(future.ch)
}

func (future *Future[T]) SetError(err error) {
	if future.done.Swap(true) {
		return
	}
	future.err = err
	close(future.ch)
}

func (future *Future[T]) Wait() {
	select {
	case <-future.ctx.Done():
		return
	case <-future.ch:
		return
	}
}

// Return the result and error of the async task.
func (future *Future[T]) Await() (T, error) {
	future.Wait()
	return future.value, future.err
}

// Return the result of the async task,
// nil if no result or error occurred.
func (future *Future[T]) Value() (T, error) {
	select {
	case <-future.ctx.Done():
		return zero[T](), future.ctx.Err()
	case <-future.ch:
		return future.value, future.err
	}
}

// Done indicates if the cell has been resolved.
func (future *Future[T]) Done() bool {
	return future.done.Load()
}

// Return a read-only channel,
// which will be closed once the cell resolves.
// Use this if you need to wait in a select statement.
func (future *Future[T]) Inner() <-chan struct{} {
	return future.ch
}
