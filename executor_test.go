package stream_junction

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

func TestGoExecutorRunsTask(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)
	require.NoError(t, GoExecutor{}.Go(wg.Done))
	wg.Wait()
}

func TestPoolExecutorRunsTasks(t *testing.T) {
	pe, err := NewPoolExecutor(4)
	require.NoError(t, err)
	defer pe.Release()

	var wg sync.WaitGroup
	ran := atomic.NewInt64(0)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		require.NoError(t, pe.Go(func() {
			defer wg.Done()
			ran.Inc()
		}))
	}
	wg.Wait()
	assert.EqualValues(t, 16, ran.Load())
}

// countingExecutor wraps GoExecutor to observe scheduling.
type countingExecutor struct {
	spawned *atomic.Int64
}

func (ce countingExecutor) Go(task func()) error {
	ce.spawned.Inc()
	go task()
	return nil
}

func TestJunctionUsesConfiguredExecutor(t *testing.T) {
	ce := countingExecutor{spawned: atomic.NewInt64(0)}
	j, err := MergeAll[int](context.Background(),
		NewProducersSource(Producer[int](NewSliceProducer([]int{1}))),
		WithExecutor[int](ce))
	require.NoError(t, err)

	got := drainAll(t, j)
	assert.Equal(t, []int{1}, got)
	// Coordinator, context watcher, intake and one source worker.
	assert.EqualValues(t, 4, ce.spawned.Load())
}

func TestDefaultExecutorSwap(t *testing.T) {
	original := DefaultExecutor()
	defer SetDefaultExecutor(original)

	ce := countingExecutor{spawned: atomic.NewInt64(0)}
	SetDefaultExecutor(ce)
	assert.Equal(t, ce, DefaultExecutor())

	j, err := MergeAll[int](context.Background(), NewProducersSource[int]())
	require.NoError(t, err)
	_, _ = awaitOutcome(t, j)
	assert.Positive(t, ce.spawned.Load())
}
