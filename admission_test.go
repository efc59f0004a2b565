package stream_junction

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

// gaugedProducer tracks how many producers are simultaneously open and
// records the observed high-water mark.
type gaugedProducer struct {
	inner   Producer[int]
	open    *atomic.Int64
	high    *atomic.Int64
	started *atomic.Bool
}

func newGaugedProducer(values []int, open, high *atomic.Int64) *gaugedProducer {
	return &gaugedProducer{
		inner:   NewSliceProducer(values),
		open:    open,
		high:    high,
		started: atomic.NewBool(false),
	}
}

func (gp *gaugedProducer) Pull(ctx context.Context) (int, error) {
	if !gp.started.Swap(true) {
		cur := gp.open.Inc()
		for {
			prev := gp.high.Load()
			if cur <= prev || gp.high.CompareAndSwap(prev, cur) {
				break
			}
		}
	}
	v, err := gp.inner.Pull(ctx)
	if err != nil {
		gp.open.Dec()
	}
	// Simulated work keeps several sources open at once.
	time.Sleep(time.Millisecond)
	return v, err
}

func (gp *gaugedProducer) Cancel(ctx context.Context) error {
	return gp.inner.Cancel(ctx)
}

var _ Producer[int] = (*gaugedProducer)(nil)

func TestMaxOpenCapsConcurrency(t *testing.T) {
	const sources, perSource, maxOpen = 6, 5, 2

	open := atomic.NewInt64(0)
	high := atomic.NewInt64(0)
	producers := make([]Producer[int], 0, sources)
	for s := 0; s < sources; s++ {
		values := make([]int, 0, perSource)
		for i := 0; i < perSource; i++ {
			values = append(values, s*100+i)
		}
		producers = append(producers, newGaugedProducer(values, open, high))
	}

	j, err := Merge[int](context.Background(), NewProducersSource(producers...), maxOpen)
	require.NoError(t, err)

	got := drainAll(t, j)
	assert.Len(t, got, sources*perSource)
	assert.LessOrEqual(t, high.Load(), int64(maxOpen))
	assert.Equal(t, uint64(sources), j.Stats().Admitted)
}

func TestAdmissionWaitsForFreeSlot(t *testing.T) {
	gate := make(chan int)
	first := NewChanProducer(gate)
	secondStarted := atomic.NewBool(false)
	second := NewFuncProducer(
		func(ctx context.Context) (int, error) {
			secondStarted.Store(true)
			return 0, ErrEndOfStream
		},
		nil,
	)

	j, err := Merge[int](context.Background(),
		NewProducersSource(Producer[int](first), second), 1)
	require.NoError(t, err)

	collected := make(chan []int, 1)
	go func() { collected <- drainAll(t, j) }()

	gate <- 7
	time.Sleep(50 * time.Millisecond)
	assert.False(t, secondStarted.Load(), "second source admitted while the slot was taken")

	close(gate)
	got := <-collected
	assert.Equal(t, []int{7}, got)
	assert.True(t, secondStarted.Load())
}

func TestLazyOuterConsumption(t *testing.T) {
	pulled := atomic.NewInt64(0)
	gate := make(chan int)
	feed := make(chan Producer[int], 4)
	for i := 0; i < 4; i++ {
		feed <- NewChanProducer(gate)
	}
	close(feed)

	outer := NewFuncSource(
		func(ctx context.Context) (Producer[int], error) {
			pulled.Inc()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case p, ok := <-feed:
				if !ok {
					return nil, ErrEndOfStream
				}
				return p, nil
			}
		},
		nil,
	)

	j, err := Merge[int](context.Background(), outer, 1)
	require.NoError(t, err)

	// With one slot taken, the engine must not run ahead of admission:
	// one producer admitted plus at most one outstanding demand pull.
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, pulled.Load(), int64(1))

	close(gate)
	got := drainAll(t, j)
	assert.Empty(t, got)
	assert.EqualValues(t, 5, pulled.Load())
}

func TestInjectQueuesBehindCap(t *testing.T) {
	gate := make(chan int)
	j, err := Merge[int](context.Background(),
		NewProducersSource(Producer[int](NewChanProducer(gate))), 1)
	require.NoError(t, err)

	queuedStarted := atomic.NewBool(false)
	queued := NewFuncProducer(
		func(ctx context.Context) (int, error) {
			if !queuedStarted.Swap(true) {
				return 42, nil
			}
			return 0, ErrEndOfStream
		},
		nil,
	)
	require.NoError(t, j.Inject(queued))

	require.Eventually(t, func() bool { return j.Stats().Pending == 1 },
		time.Second, 5*time.Millisecond)
	assert.False(t, queuedStarted.Load())

	gate <- 7
	close(gate)

	got := drainAll(t, j)
	sort.Ints(got)
	assert.Equal(t, []int{7, 42}, got)
	assert.Zero(t, j.Stats().Pending)
}
