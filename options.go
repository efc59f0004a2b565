package stream_junction

import (
	"fmt"

	"github.com/pnvasko/stream-junction/common"
	"go.opentelemetry.io/otel/trace"
)

type JunctionOption[T any] func(*Junction[T]) error

// WithName overrides the generated junction name used in logs, spans
// and the flow bridge.
func WithName[T any](name string) JunctionOption[T] {
	return func(j *Junction[T]) error {
		if name == "" {
			return fmt.Errorf("stream junction: name cannot be empty")
		}
		j.name = name
		return nil
	}
}

// WithExecutor picks the execution strategy for the coordinator, the
// intake and the source workers.
func WithExecutor[T any](e Executor) JunctionOption[T] {
	return func(j *Junction[T]) error {
		if e == nil {
			return fmt.Errorf("stream junction: executor cannot be nil")
		}
		j.executor = e
		return nil
	}
}

func WithLogger[T any](logger *common.Logger) JunctionOption[T] {
	return func(j *Junction[T]) error {
		if logger == nil {
			return fmt.Errorf("stream junction: logger cannot be nil")
		}
		j.logger = logger
		return nil
	}
}

func WithTracer[T any](tracer trace.Tracer) JunctionOption[T] {
	return func(j *Junction[T]) error {
		if tracer == nil {
			return fmt.Errorf("stream junction: tracer cannot be nil")
		}
		j.tracer = tracer
		return nil
	}
}
