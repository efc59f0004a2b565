package stream_junction

import (
	"context"
	"errors"
	"fmt"

	"github.com/pnvasko/stream-junction/common"
	"go.uber.org/zap"
)

// onOuterStopped records that the intake goroutine finished, for any of
// its three reasons: exhaustion, failure, or cancellation ack. A
// failure of the outer stream is a hard failure of the whole merge.
func (j *Junction[T]) onOuterStopped(err error, failed bool) {
	if j.outerCleanupPending {
		j.outerCleanupPending = false
		j.cleanups--
	}
	j.outerStopped = true

	if j.state != stateRunning {
		if err != nil {
			if failed {
				j.logger.Ctx(j.ctx).Debug("late outer failure suppressed",
					zap.String("junction", j.name), zap.Error(err))
			} else {
				j.cleanupErrs = append(j.cleanupErrs, err)
			}
		}
		j.checkShutdownComplete()
		return
	}
	if failed {
		j.beginShutdown(stateSourceClosing, err)
	}
}

// beginShutdown is the single entry into the closing states. The first
// caller wins: it fixes the terminal flavor (consumer close vs hard
// failure) and the primary failure; everything after is cleanup.
func (j *Junction[T]) beginShutdown(next junctionState, cause error) {
	if j.state != stateRunning {
		return
	}
	j.state = next
	j.failure = cause
	j.logger.Ctx(j.ctx).Debug("junction shutdown",
		zap.String("junction", j.name), zap.String("state", next.String()), zap.Error(cause))

	// One cancel fans out to the intake and to every source worker.
	j.cancel()
	if !j.outerStopped {
		j.outerCleanupPending = true
		j.cleanups++
	}

	j.cleanups += len(j.active)
	j.stats.cancelled.Add(uint64(len(j.active)))

	// Producers that arrived but were never admitted still get their
	// cancellation, off the loop so cleanup hooks cannot stall it.
	for _, p := range j.pending {
		j.cleanups++
		j.spawnDetachedCancel(p)
	}
	j.pending = nil
	j.stats.pending.Store(0)

	// Read-ahead and held values are discarded: nothing is delivered
	// past the first failure or a consumer close.
	j.buffer = nil
	j.stats.buffered.Store(0)
	j.held = nil

	j.checkShutdownComplete()
}

// spawnDetachedCancel cancels a producer that has no worker of its own.
func (j *Junction[T]) spawnDetachedCancel(p Producer[T]) {
	j.stats.cancelled.Inc()
	task := func() {
		err := p.Cancel(context.Background())
		j.post(evDetachedCancelAcked{err: err})
	}
	if err := j.executor.Go(task); err != nil {
		go task()
	}
}

// checkShutdownComplete transitions to Done once every cancellation has
// been acknowledged and the intake has stopped.
func (j *Junction[T]) checkShutdownComplete() {
	if j.state != stateDownstreamClosing && j.state != stateSourceClosing {
		return
	}
	if j.cleanups > 0 || !j.outerStopped {
		return
	}
	if j.state == stateSourceClosing {
		j.finish(OutcomeFailed)
	} else {
		j.finish(OutcomeKilled)
	}
}

// finish is the only way into Done. It flushes suspended pulls with the
// terminal result and resolves the outcome future.
func (j *Junction[T]) finish(outcome Outcome) {
	j.state = stateDone

	if len(j.cleanupErrs) > 0 {
		// Cleanup errors never mask the primary failure reason.
		j.logger.Ctx(j.ctx).Error("cleanup errors suppressed",
			zap.String("junction", j.name),
			zap.String("errors", common.MultiError(j.cleanupErrs)))
	}

	var terminal error
	switch outcome {
	case OutcomeCompleted:
		terminal = ErrEndOfStream
	case OutcomeKilled:
		terminal = ErrJunctionKilled
	case OutcomeFailed:
		if j.failure == nil {
			j.failure = fmt.Errorf("stream junction: unknown failure")
		}
		terminal = j.failure
	default:
		terminal = ErrJunctionDone
	}
	for _, w := range j.waiters {
		w <- pullReply[T]{err: terminal}
	}
	j.waiters = nil

	j.logger.Ctx(j.ctx).Debug("junction done",
		zap.String("junction", j.name), zap.String("outcome", outcome.String()))
	j.done.SetValue(outcome)
	j.cancel()
}

// IsHardFailure reports whether err is a producer or outer-stream
// failure, as opposed to the engine's own terminal sentinels.
func IsHardFailure(err error) bool {
	return err != nil &&
		!errors.Is(err, ErrEndOfStream) &&
		!errors.Is(err, ErrJunctionKilled) &&
		!errors.Is(err, ErrJunctionDone)
}
