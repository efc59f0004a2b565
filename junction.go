package stream_junction

import (
	"context"
	"errors"
	"fmt"

	"github.com/pnvasko/stream-junction/common"
	"github.com/rs/xid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultMailboxSize = 64

var (
	// ErrJunctionKilled is returned by Next after the consumer closed
	// the junction before natural completion.
	ErrJunctionKilled = errors.New("stream junction: closed by consumer")
	// ErrJunctionDone is returned when work is handed to a junction
	// that has already reached a terminal state.
	ErrJunctionDone = errors.New("stream junction: already terminated")
)

// Outcome is the terminal result of a junction.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeCompleted
	OutcomeFailed
	OutcomeKilled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeFailed:
		return "failed"
	case OutcomeKilled:
		return "killed"
	default:
		return "unknown"
	}
}

type junctionState int

const (
	stateRunning junctionState = iota
	stateDownstreamClosing
	stateSourceClosing
	stateDone
)

func (s junctionState) String() string {
	switch s {
	case stateRunning:
		return "running"
	case stateDownstreamClosing:
		return "downstream_closing"
	case stateSourceClosing:
		return "source_closing"
	case stateDone:
		return "done"
	default:
		return "invalid"
	}
}

// Mailbox events. Producers, the intake and consumers never touch
// junction state directly; they post events the loop applies one at
// a time.
type (
	evSourceArrived[T any] struct {
		p          Producer[T]
		fromIntake bool
	}
	evOuterDone        struct{}
	evOuterFailed      struct{ err error }
	evOuterCancelAcked struct{ err error }

	evValueReady[T any] struct {
		id    uint64
		value T
	}
	evSourceClosed struct{ id uint64 }
	evSourceFailed struct {
		id  uint64
		err error
	}
	evCancelAcked struct {
		id  uint64
		err error
	}
	evDetachedCancelAcked struct{ err error }

	evPull[T any] struct{ reply chan pullReply[T] }

	evPullAbort[T any] struct {
		reply chan pullReply[T]
		acked chan struct{}
	}
	evClose struct{}
)

type pullReply[T any] struct {
	value T
	err   error
}

// Junction merges a dynamically-produced collection of producers into
// one pull-based output stream. See Merge and MergeAll.
type Junction[T any] struct {
	ctx    context.Context
	cancel context.CancelFunc

	name     string
	maxOpen  int
	executor Executor
	logger   *common.Logger
	tracer   trace.Tracer

	outer   SourceOfSources[T]
	mailbox chan any
	demand  chan struct{}

	loopDone chan struct{}
	done     *Future[Outcome]

	stats junctionStats

	// Everything below is owned by the run loop and must never be
	// touched from another goroutine.
	state               junctionState
	nextID              uint64
	active              map[uint64]*sourceEntry[T]
	pending             []Producer[T]
	buffer              []T
	held                []uint64
	waiters             []chan pullReply[T]
	demandOutstanding   bool
	outerDone           bool
	outerStopped        bool
	outerCleanupPending bool
	failure             error
	cleanups            int
	cleanupErrs         []error
}

func newJunction[T any](ctx context.Context, outer SourceOfSources[T], maxOpen int, opts ...JunctionOption[T]) (*Junction[T], error) {
	if outer == nil {
		return nil, fmt.Errorf("stream junction: source of sources is required")
	}

	j := &Junction[T]{
		name:     fmt.Sprintf("junction_%s", xid.New()),
		maxOpen:  maxOpen,
		executor: DefaultExecutor(),
		tracer:   trace.NewNoopTracerProvider().Tracer("stream_junction"),
		outer:    outer,
		mailbox:  make(chan any, defaultMailboxSize),
		demand:   make(chan struct{}, 1),
		loopDone: make(chan struct{}),
		done:     NewFuture[Outcome](context.Background()),
		stats:    newJunctionStats(),
		active:   make(map[uint64]*sourceEntry[T]),
	}
	j.ctx, j.cancel = context.WithCancel(ctx)

	for _, opt := range opts {
		if err := opt(j); err != nil {
			return nil, err
		}
	}
	if j.logger == nil {
		j.logger = common.NewNopLogger()
	}

	// Prime the intake with one slot of demand.
	j.demandOutstanding = true
	j.demand <- struct{}{}

	if err := j.executor.Go(j.run); err != nil {
		return nil, fmt.Errorf("stream junction: spawn coordinator: %w", err)
	}
	// Cancellation of the caller's context counts as a consumer close.
	if err := j.executor.Go(j.watchContext); err != nil {
		j.post(evClose{})
		return nil, fmt.Errorf("stream junction: spawn context watcher: %w", err)
	}
	if err := j.executor.Go(j.runIntake); err != nil {
		// Let the coordinator tear itself down through the usual path.
		j.post(evOuterFailed{fmt.Errorf("stream junction: spawn intake: %w", err)})
		return nil, fmt.Errorf("stream junction: spawn intake: %w", err)
	}
	return j, nil
}

func (j *Junction[T]) Name() string { return j.name }

// Stats returns an operational snapshot. Safe for concurrent use.
func (j *Junction[T]) Stats() Stats { return j.stats.snapshot() }

// Done is closed once the junction reaches a terminal state.
func (j *Junction[T]) Done() <-chan struct{} { return j.done.Inner() }

// Outcome blocks until the junction terminates and reports how.
// The error is the primary failure for OutcomeFailed, nil otherwise.
func (j *Junction[T]) Outcome() (Outcome, error) {
	outcome, _ := j.done.Await()
	if outcome == OutcomeFailed {
		return outcome, j.failure
	}
	return outcome, nil
}

// Next returns the next merged value. It suspends while the read-ahead
// buffer is empty and sources are still live. After termination it
// returns ErrEndOfStream (completed), ErrJunctionKilled (consumer
// close) or the primary failure.
func (j *Junction[T]) Next(ctx context.Context) (T, error) {
	var zeroVal T
	if j.done.Done() {
		return zeroVal, j.terminalErr()
	}

	reply := make(chan pullReply[T], 1)
	if !j.post(evPull[T]{reply: reply}) {
		return zeroVal, j.terminalErr()
	}

	select {
	case r := <-reply:
		return r.value, r.err
	case <-j.loopDone:
		// The loop may have fulfilled the pull right before exiting.
		select {
		case r := <-reply:
			return r.value, r.err
		default:
			return zeroVal, j.terminalErr()
		}
	case <-ctx.Done():
		acked := make(chan struct{})
		if j.post(evPullAbort[T]{reply: reply, acked: acked}) {
			select {
			case <-acked:
			case <-j.loopDone:
			}
		}
		select {
		case r := <-reply:
			return r.value, r.err
		default:
			return zeroVal, ctx.Err()
		}
	}
}

// Close requests consumer-initiated termination and waits for cleanup
// of every live producer to finish. Closing an already-terminated
// junction is a no-op.
func (j *Junction[T]) Close(ctx context.Context) error {
	j.post(evClose{})
	select {
	case <-j.done.Inner():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Inject hands a producer to the junction outside the source-of-sources,
// subject to the same admission rules and maxOpen cap.
func (j *Junction[T]) Inject(p Producer[T]) error {
	if p == nil {
		return fmt.Errorf("stream junction: nil producer")
	}
	if !j.post(evSourceArrived[T]{p: p}) {
		return ErrJunctionDone
	}
	return nil
}

func (j *Junction[T]) post(ev any) bool {
	select {
	case j.mailbox <- ev:
		return true
	case <-j.loopDone:
		return false
	}
}

func (j *Junction[T]) terminalErr() error {
	outcome, _ := j.done.Await()
	switch outcome {
	case OutcomeCompleted:
		return ErrEndOfStream
	case OutcomeKilled:
		return ErrJunctionKilled
	case OutcomeFailed:
		return j.failure
	default:
		return ErrJunctionDone
	}
}

// run is the coordination point: the only goroutine that mutates the
// active set, the pending queue, the read-ahead buffer and the
// lifecycle state.
func (j *Junction[T]) run() {
	runCtx, span := j.tracer.Start(j.ctx, j.name)
	defer func() {
		outcome, _ := j.done.Await()
		span.SetAttributes(attribute.String("junction.outcome", outcome.String()))
		span.End()
	}()
	defer close(j.loopDone)
	_ = runCtx

	for j.state != stateDone {
		j.handle(<-j.mailbox)
	}
}

// watchContext folds cancellation of the caller's context into the
// lifecycle: it behaves exactly like a consumer close. During a normal
// shutdown the junction cancels its own context, making the close
// request a no-op.
func (j *Junction[T]) watchContext() {
	<-j.ctx.Done()
	j.post(evClose{})
}

func (j *Junction[T]) handle(ev any) {
	switch e := ev.(type) {
	case evSourceArrived[T]:
		if e.fromIntake {
			j.demandOutstanding = false
		}
		j.onNewSource(e.p)
	case evOuterDone:
		j.demandOutstanding = false
		j.onOuterStopped(nil, false)
		if j.state == stateRunning {
			j.outerDone = true
			j.checkCompletion()
		}
	case evOuterFailed:
		j.demandOutstanding = false
		j.onOuterStopped(e.err, true)
	case evOuterCancelAcked:
		j.demandOutstanding = false
		j.onOuterStopped(e.err, false)
	case evValueReady[T]:
		j.onValueReady(e.id, e.value)
	case evSourceClosed:
		j.onSourceTerminal(e.id, nil)
	case evSourceFailed:
		j.onSourceTerminal(e.id, e.err)
	case evCancelAcked:
		j.onCancelAcked(e.id, e.err)
	case evDetachedCancelAcked:
		j.cleanups--
		if e.err != nil {
			j.cleanupErrs = append(j.cleanupErrs, e.err)
		}
		j.checkShutdownComplete()
	case evPull[T]:
		j.waiters = append(j.waiters, e.reply)
		if j.state == stateRunning {
			j.serveWaiters()
			j.checkCompletion()
		}
	case evPullAbort[T]:
		for i, w := range j.waiters {
			if w == e.reply {
				j.waiters = append(j.waiters[:i], j.waiters[i+1:]...)
				break
			}
		}
		close(e.acked)
	case evClose:
		j.beginShutdown(stateDownstreamClosing, nil)
	default:
		j.logger.Ctx(j.ctx).Sugar().Errorf("%s: unknown mailbox event %T", j.name, ev)
	}
}

// onValueReady applies the fairness/backpressure rule: a ready value
// enters the buffer only while the buffer is shorter than the active
// set; otherwise the source is held until a downstream pull frees a
// slot. Arrival order of ready notifications is the tie-break.
func (j *Junction[T]) onValueReady(id uint64, value T) {
	if j.state != stateRunning {
		// Shutdown in progress; the worker observes its cancelled
		// context and acknowledges on its own.
		return
	}
	e, ok := j.active[id]
	if !ok {
		return
	}
	if len(j.buffer) < len(j.active) {
		j.buffer = append(j.buffer, value)
		j.stats.buffered.Inc()
		e.resume <- struct{}{}
		j.serveWaiters()
		return
	}
	e.held = value
	e.hasHeld = true
	j.held = append(j.held, id)
}

// onSourceTerminal handles a source reaching Closed (err == nil) or
// Failed on its own.
func (j *Junction[T]) onSourceTerminal(id uint64, err error) {
	if _, ok := j.active[id]; !ok {
		return
	}
	delete(j.active, id)
	j.stats.active.Dec()
	j.dropHeld(id)

	if j.state != stateRunning {
		// Terminal on its own during shutdown counts as its
		// cancellation acknowledgment.
		if err != nil && !errors.Is(err, context.Canceled) {
			j.logger.Ctx(j.ctx).Debug("late source failure suppressed",
				zap.String("junction", j.name), zap.Uint64("source_id", id), zap.Error(err))
		}
		j.cleanups--
		j.checkShutdownComplete()
		return
	}

	if err != nil {
		j.logger.Ctx(j.ctx).Debug("source failed",
			zap.String("junction", j.name), zap.Uint64("source_id", id), zap.Error(err))
		j.beginShutdown(stateSourceClosing, err)
		return
	}
	j.onSlotFreed()
	j.checkCompletion()
}

func (j *Junction[T]) onCancelAcked(id uint64, err error) {
	if _, ok := j.active[id]; ok {
		delete(j.active, id)
		j.stats.active.Dec()
		j.dropHeld(id)
	}
	if j.state == stateRunning {
		// The caller's context was cancelled and the worker noticed
		// before the close event landed. The entry is already gone, so
		// beginShutdown will not count it.
		if err != nil {
			j.cleanupErrs = append(j.cleanupErrs, err)
		}
		return
	}
	j.cleanups--
	if err != nil {
		j.cleanupErrs = append(j.cleanupErrs, err)
	}
	j.checkShutdownComplete()
}

// dropHeld removes id from the held queue. Only possible when a worker
// raced its terminal event with a held value already surrendered.
func (j *Junction[T]) dropHeld(id uint64) {
	for i, held := range j.held {
		if held == id {
			j.held = append(j.held[:i], j.held[i+1:]...)
			return
		}
	}
}

// serveWaiters pairs buffered values with suspended pulls, oldest
// first, refilling held sources as buffer slots free up.
func (j *Junction[T]) serveWaiters() {
	for len(j.waiters) > 0 && len(j.buffer) > 0 {
		w := j.waiters[0]
		j.waiters = j.waiters[1:]
		v := j.buffer[0]
		j.buffer = j.buffer[1:]
		j.stats.buffered.Dec()
		j.stats.delivered.Inc()
		w <- pullReply[T]{value: v}
		j.drainHeld()
	}
}

// drainHeld moves held values into freed buffer slots and issues the
// fresh pull their sources were waiting for.
func (j *Junction[T]) drainHeld() {
	for len(j.held) > 0 && len(j.buffer) < len(j.active) {
		id := j.held[0]
		j.held = j.held[1:]
		e, ok := j.active[id]
		if !ok || !e.hasHeld {
			continue
		}
		j.buffer = append(j.buffer, e.held)
		j.stats.buffered.Inc()
		e.hasHeld = false
		e.held = zero[T]()
		e.resume <- struct{}{}
	}
}

// checkCompletion resolves Done(Completed) once the outer stream is
// exhausted, no sources remain and the consumer drained the buffer.
func (j *Junction[T]) checkCompletion() {
	if j.state != stateRunning {
		return
	}
	if j.outerDone && len(j.active) == 0 && len(j.pending) == 0 && len(j.buffer) == 0 {
		j.finish(OutcomeCompleted)
	}
}

var _ fmt.Stringer = junctionState(0)
