package stream_junction

import (
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Executor is the strategy used to schedule the junction's concurrent
// work: the coordinator loop, the outer intake and one worker per
// admitted producer. Workers occupy their execution slot for the whole
// lifetime of their source, so a bounded pool must be sized at least
// maxOpen+2 or admission will stall.
type Executor interface {
	Go(task func()) error
}

// GoExecutor runs every task on its own goroutine.
type GoExecutor struct{}

func (GoExecutor) Go(task func()) error {
	go task()
	return nil
}

var _ Executor = GoExecutor{}

// PoolExecutor schedules tasks on a shared ants pool.
type PoolExecutor struct {
	pool *ants.Pool
}

func NewPoolExecutor(size int, opts ...ants.Option) (*PoolExecutor, error) {
	pool, err := ants.NewPool(size, opts...)
	if err != nil {
		return nil, err
	}
	return &PoolExecutor{pool: pool}, nil
}

func (pe *PoolExecutor) Go(task func()) error {
	return pe.pool.Submit(task)
}

func (pe *PoolExecutor) Release() {
	pe.pool.Release()
}

var _ Executor = (*PoolExecutor)(nil)

var (
	defaultExecutorMu sync.RWMutex
	defaultExecutor   Executor = GoExecutor{}
)

// SetDefaultExecutor replaces the process-wide execution strategy used
// by junctions built without WithExecutor.
func SetDefaultExecutor(e Executor) {
	defaultExecutorMu.Lock()
	defer defaultExecutorMu.Unlock()
	defaultExecutor = e
}

func DefaultExecutor() Executor {
	defaultExecutorMu.RLock()
	defer defaultExecutorMu.RUnlock()
	return defaultExecutor
}
