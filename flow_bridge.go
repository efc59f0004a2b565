package stream_junction

import (
	"context"
	"errors"
	"fmt"

	"github.com/pnvasko/stream-junction/common"
	"github.com/pnvasko/stream-junction/flow"
	"go.uber.org/atomic"
)

// OutletProducer adapts a channel-based flow.Outlet to the pull-based
// Producer contract. Channel flows cannot be stopped upstream, so
// Cancel detaches: the outlet's feeder keeps owning its lifecycle.
type OutletProducer struct {
	outlet    flow.Outlet
	cancelled *atomic.Bool
}

func NewOutletProducer(outlet flow.Outlet) *OutletProducer {
	return &OutletProducer{outlet: outlet, cancelled: atomic.NewBool(false)}
}

func (op *OutletProducer) Pull(ctx context.Context) (any, error) {
	if op.cancelled.Load() {
		return nil, ErrEndOfStream
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case v, ok := <-op.outlet.Out():
		if !ok {
			return nil, ErrEndOfStream
		}
		return v, nil
	}
}

func (op *OutletProducer) Cancel(ctx context.Context) error {
	op.cancelled.Store(true)
	return nil
}

var _ Producer[any] = (*OutletProducer)(nil)

// OutletSourceOfSources turns a channel of outlets into the outer
// stream of a junction; closing the channel signals exhaustion.
type OutletSourceOfSources struct {
	ch        <-chan flow.Outlet
	cancelled *atomic.Bool
}

func NewOutletSourceOfSources(ch <-chan flow.Outlet) *OutletSourceOfSources {
	return &OutletSourceOfSources{ch: ch, cancelled: atomic.NewBool(false)}
}

func (os *OutletSourceOfSources) Pull(ctx context.Context) (Producer[any], error) {
	if os.cancelled.Load() {
		return nil, ErrEndOfStream
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case outlet, ok := <-os.ch:
		if !ok {
			return nil, ErrEndOfStream
		}
		return NewOutletProducer(outlet), nil
	}
}

func (os *OutletSourceOfSources) Cancel(ctx context.Context) error {
	os.cancelled.Store(true)
	return nil
}

var _ SourceOfSources[any] = (*OutletSourceOfSources)(nil)

// MergeOutlets merges a fixed set of channel flows through the dynamic
// engine, unbounded, mirroring flow.Merge with junction semantics.
func MergeOutlets(ctx context.Context, outlets ...flow.Outlet) (*Junction[any], error) {
	producers := make([]Producer[any], 0, len(outlets))
	for _, outlet := range outlets {
		producers = append(producers, NewOutletProducer(outlet))
	}
	return MergeAll(ctx, NewProducersSource(producers...))
}

// AsFlowSource wraps the junction as a flow.Source so its merged
// output can be piped with Via/To like any other source.
func (j *Junction[T]) AsFlowSource(ctx context.Context, bufferSize int) (*JunctionSource[T], error) {
	return NewJunctionSource(ctx, j, bufferSize)
}

// JunctionSource pumps a junction's merged output into the flow world
// so it can be piped with Via/To like any other Source.
type JunctionSource[T any] struct {
	ctx      context.Context
	junction *Junction[T]
	out      chan any
	wg       *common.SafeWaitGroup
	started  *atomic.Bool
}

func NewJunctionSource[T any](ctx context.Context, junction *Junction[T], bufferSize int) (*JunctionSource[T], error) {
	if junction == nil {
		return nil, fmt.Errorf("stream junction: junction is required")
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &JunctionSource[T]{
		ctx:      ctx,
		junction: junction,
		out:      make(chan any, bufferSize),
		wg:       &common.SafeWaitGroup{},
		started:  atomic.NewBool(false),
	}, nil
}

func (js *JunctionSource[T]) Name() string {
	return js.junction.Name() + "_source"
}

func (js *JunctionSource[T]) Out() <-chan any {
	return js.out
}

func (js *JunctionSource[T]) Via(operator flow.Flow) flow.Flow {
	flow.DoStream(js, operator)
	return operator
}

func (js *JunctionSource[T]) Run() error {
	return js.RunCtx(js.ctx)
}

func (js *JunctionSource[T]) RunCtx(ctx context.Context) error {
	if js.started.Swap(true) {
		return fmt.Errorf("stream junction: source already running")
	}
	js.wg.Add(1)
	go js.pump(ctx)
	return nil
}

// Close stops the junction and waits for the pump to drain out.
func (js *JunctionSource[T]) Close(ctx context.Context) error {
	if err := js.junction.Close(ctx); err != nil {
		return err
	}
	js.wg.Wait()
	return nil
}

func (js *JunctionSource[T]) pump(ctx context.Context) {
	defer js.wg.Done()
	defer close(js.out)
	for {
		v, err := js.junction.Next(ctx)
		if err != nil {
			if IsHardFailure(err) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				js.junction.logger.Ctx(ctx).Sugar().Errorf("%s: merged stream failed: %s", js.Name(), err.Error())
			}
			return
		}
		select {
		case <-ctx.Done():
			return
		case js.out <- v:
		}
	}
}

var _ flow.Source = (*JunctionSource[any])(nil)
