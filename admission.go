package stream_junction

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// runIntake consumes the source-of-sources lazily: it pulls the next
// producer only after the coordinator grants a slot of demand, so a
// capped junction never instantiates producers it cannot admit.
func (j *Junction[T]) runIntake() {
	for {
		select {
		case <-j.ctx.Done():
			j.ackOuterCancel()
			return
		case <-j.demand:
		}

		p, err := j.outer.Pull(j.ctx)
		switch {
		case err == nil:
			j.post(evSourceArrived[T]{p: p, fromIntake: true})
		case errors.Is(err, ErrEndOfStream):
			j.post(evOuterDone{})
			return
		case j.ctx.Err() != nil:
			j.ackOuterCancel()
			return
		default:
			j.post(evOuterFailed{err: err})
			return
		}
	}
}

// ackOuterCancel runs the outer stream's cancellation hook and reports
// back so the coordinator can count the cleanup as finished.
func (j *Junction[T]) ackOuterCancel() {
	err := j.outer.Cancel(context.Background())
	j.post(evOuterCancelAcked{err: err})
}

// onNewSource admits the producer immediately when a slot is open,
// otherwise parks it on the pending queue in arrival order.
func (j *Junction[T]) onNewSource(p Producer[T]) {
	if j.state != stateRunning {
		// Arrived while shutting down; it still gets its cancellation.
		j.cleanups++
		j.spawnDetachedCancel(p)
		return
	}
	if j.maxOpen <= 0 || len(j.active) < j.maxOpen {
		j.admit(p)
	} else {
		j.pending = append(j.pending, p)
		j.stats.pending.Inc()
	}
	j.maybeDemand()
}

func (j *Junction[T]) admit(p Producer[T]) {
	id := j.nextID
	j.nextID++

	e := newSourceEntry(j.ctx, id, p)
	j.active[id] = e
	j.stats.admitted.Inc()
	j.stats.active.Inc()
	j.logger.Ctx(j.ctx).Debug("source admitted",
		zap.String("junction", j.name), zap.Uint64("source_id", id), zap.String("source", e.sid))

	if err := j.executor.Go(func() { j.runSource(e) }); err != nil {
		delete(j.active, id)
		j.stats.active.Dec()
		e.cancel()
		j.beginShutdown(stateSourceClosing, err)
	}
}

// onSlotFreed drains the pending queue into the freed slot, or asks the
// intake for the next producer when nothing is parked.
func (j *Junction[T]) onSlotFreed() {
	if len(j.pending) > 0 {
		p := j.pending[0]
		j.pending = j.pending[1:]
		j.stats.pending.Dec()
		j.admit(p)
		return
	}
	j.maybeDemand()
}

// maybeDemand grants the intake one more pull when the junction is
// running and a future arrival could be admitted.
func (j *Junction[T]) maybeDemand() {
	if j.state != stateRunning || j.outerDone || j.outerStopped || j.demandOutstanding {
		return
	}
	if j.maxOpen > 0 && len(j.active) >= j.maxOpen {
		return
	}
	j.demandOutstanding = true
	select {
	case j.demand <- struct{}{}:
	default:
	}
}
