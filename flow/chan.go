package flow

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

const defaultChanSinkBuffer = 100

// ChanSource exposes a plain channel as a Source.
type ChanSource struct {
	in chan any
}

func NewChanSource(in chan any) *ChanSource {
	return &ChanSource{in: in}
}

func (cs *ChanSource) Name() string {
	return "ChanSource"
}

func (cs *ChanSource) Run() error {
	return nil
}

func (cs *ChanSource) RunCtx(ctx context.Context) error {
	return nil
}

func (cs *ChanSource) Close(ctx context.Context) error {
	return nil
}

func (cs *ChanSource) Via(operator Flow) Flow {
	DoStream(cs, operator)
	return operator
}

func (cs *ChanSource) Out() <-chan any {
	return cs.in
}

var _ Source = (*ChanSource)(nil)

// ChanSink forwards elements into a buffered output channel. The output
// closes once the upstream closes the input or the sink's context is
// cancelled; buffered input is drained either way.
type ChanSink struct {
	ctx context.Context
	in  chan any
	out chan any
}

func NewChanSink(ctx context.Context) *ChanSink {
	return &ChanSink{
		ctx: ctx,
		in:  make(chan any, defaultChanSinkBuffer),
		out: make(chan any, defaultChanSinkBuffer),
	}
}

func (cs *ChanSink) In() chan<- any {
	return cs.in
}

func (cs *ChanSink) Out() <-chan any {
	return cs.out
}

func (cs *ChanSink) Name() string {
	return "ChanSink"
}

func (cs *ChanSink) Run() error {
	return cs.RunCtx(cs.ctx)
}

func (cs *ChanSink) RunCtx(ctx context.Context) error {
	go cs.process(ctx)
	return nil
}

func (cs *ChanSink) AwaitCompletion(timeout time.Duration) error {
	deadline := time.After(timeout)
	for {
		select {
		case <-deadline:
			return fmt.Errorf("timeout waiting for channel to empty")
		default:
			if len(cs.in) == 0 && len(cs.out) == 0 {
				return nil
			}
			runtime.Gosched()
		}
	}
}

func (cs *ChanSink) process(ctx context.Context) {
	defer close(cs.out)
	for {
		select {
		case <-ctx.Done():
			cs.drain()
			return
		case <-cs.ctx.Done():
			cs.drain()
			return
		case v, ok := <-cs.in:
			if !ok {
				cs.drain()
				return
			}
			cs.out <- v
		}
	}
}

// drain moves whatever is still buffered on the input to the output.
func (cs *ChanSink) drain() {
	for {
		select {
		case v, ok := <-cs.in:
			if !ok {
				return
			}
			cs.out <- v
		default:
			return
		}
	}
}

var _ Sink = (*ChanSink)(nil)
