package stream_junction

import (
	"context"
)

// MergeAll merges every producer yielded by outer into one output
// stream with unbounded concurrency: each arriving producer starts
// immediately.
func MergeAll[T any](ctx context.Context, outer SourceOfSources[T], opts ...JunctionOption[T]) (*Junction[T], error) {
	return newJunction(ctx, outer, 0, opts...)
}

// Merge is MergeAll with a cap on simultaneously open producers.
// maxOpen <= 0 behaves as unbounded; with maxOpen > 0 at most maxOpen
// producers are active at once and the rest wait their turn in
// arrival order.
func Merge[T any](ctx context.Context, outer SourceOfSources[T], maxOpen int, opts ...JunctionOption[T]) (*Junction[T], error) {
	return newJunction(ctx, outer, maxOpen, opts...)
}
