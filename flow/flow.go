// Package flow carries the channel-based stream surface the junction
// engine bridges into: sources, flows and sinks wired with chan any.
package flow

import (
	"context"
	"time"
)

type Input interface {
	In() chan<- any
}

type Output interface {
	Out() <-chan any
}

type Outlet interface {
	Out() <-chan any
}

type Flow interface {
	Input
	Output
	Via(Flow) Flow
	To(Sink)
}

type Source interface {
	Output
	Name() string
	Via(Flow) Flow
	Run() error
	RunCtx(context.Context) error
	Close(context.Context) error
}

type Sink interface {
	Input
	Name() string
	Run() error
	RunCtx(context.Context) error
	AwaitCompletion(time.Duration) error
}

// DoStream asynchronously forwards every element from out into in and
// closes the input once the outlet is exhausted.
func DoStream(out Output, in Input) {
	go func() {
		for element := range out.Out() {
			in.In() <- element
		}
		close(in.In())
	}()
}
