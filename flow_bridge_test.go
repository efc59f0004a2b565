package stream_junction

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/pnvasko/stream-junction/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeOutlets(t *testing.T) {
	ch1 := make(chan any)
	ch2 := make(chan any)
	go func() {
		ch1 <- 1
		ch1 <- 2
		close(ch1)
	}()
	go func() {
		ch2 <- 3
		ch2 <- 4
		close(ch2)
	}()

	j, err := MergeOutlets(context.Background(),
		flow.NewChanSource(ch1), flow.NewChanSource(ch2))
	require.NoError(t, err)

	var got []int
	for _, v := range drainAll(t, j) {
		got = append(got, v.(int))
	}
	sort.Ints(got)
	assert.Equal(t, []int{1, 2, 3, 4}, got)
}

func TestOutletProducerCancelDetaches(t *testing.T) {
	ch := make(chan any, 1)
	ch <- "queued"
	op := NewOutletProducer(flow.NewChanSource(ch))

	require.NoError(t, op.Cancel(context.Background()))
	_, err := op.Pull(context.Background())
	assert.ErrorIs(t, err, ErrEndOfStream)

	// The feeder still owns the channel.
	assert.Len(t, ch, 1)
}

func TestOutletSourceOfSources(t *testing.T) {
	outlets := make(chan flow.Outlet, 2)
	ch1 := make(chan any, 1)
	ch1 <- "x"
	close(ch1)
	ch2 := make(chan any, 1)
	ch2 <- "y"
	close(ch2)
	outlets <- flow.NewChanSource(ch1)
	outlets <- flow.NewChanSource(ch2)
	close(outlets)

	j, err := MergeAll[any](context.Background(), NewOutletSourceOfSources(outlets))
	require.NoError(t, err)

	var got []string
	for _, v := range drainAll(t, j) {
		got = append(got, v.(string))
	}
	sort.Strings(got)
	assert.Equal(t, []string{"x", "y"}, got)
}

func TestJunctionSourcePumpsMergedStream(t *testing.T) {
	j, err := MergeAll[int](context.Background(), NewProducersSource(
		Producer[int](NewSliceProducer([]int{1, 2})),
		NewSliceProducer([]int{3}),
	))
	require.NoError(t, err)

	js, err := NewJunctionSource(context.Background(), j, 4)
	require.NoError(t, err)
	assert.Equal(t, j.Name()+"_source", js.Name())

	require.NoError(t, js.RunCtx(context.Background()))
	assert.Error(t, js.RunCtx(context.Background()), "second start must be rejected")

	var got []int
	for v := range js.Out() {
		got = append(got, v.(int))
	}
	sort.Ints(got)
	assert.Equal(t, []int{1, 2, 3}, got)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, js.Close(ctx))
}

func TestJunctionSourceCloseStopsPump(t *testing.T) {
	blocked := make(chan int)
	defer close(blocked)

	j, err := MergeAll[int](context.Background(),
		NewProducersSource(Producer[int](NewChanProducer(blocked))))
	require.NoError(t, err)

	js, err := NewJunctionSource(context.Background(), j, 0)
	require.NoError(t, err)
	require.NoError(t, js.RunCtx(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, js.Close(ctx))

	_, open := <-js.Out()
	assert.False(t, open, "pump output must close after the junction is killed")

	outcome, _ := j.Outcome()
	assert.Equal(t, OutcomeKilled, outcome)
}
