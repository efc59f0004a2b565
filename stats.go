package stream_junction

import "go.uber.org/atomic"

// Stats is a point-in-time operational snapshot of a junction.
// Gauges may be slightly stale relative to each other; they are meant
// for monitoring, not for synchronization.
type Stats struct {
	Admitted  uint64 // producers ever admitted
	Active    int64  // currently admitted, not yet terminal
	Pending   int64  // arrived but queued behind the maxOpen cap
	Buffered  int64  // values read ahead of consumer demand
	Delivered uint64 // values handed to the consumer
	Cancelled uint64 // producers that received a cancellation signal
}

type junctionStats struct {
	admitted  *atomic.Uint64
	active    *atomic.Int64
	pending   *atomic.Int64
	buffered  *atomic.Int64
	delivered *atomic.Uint64
	cancelled *atomic.Uint64
}

func newJunctionStats() junctionStats {
	return junctionStats{
		admitted:  atomic.NewUint64(0),
		active:    atomic.NewInt64(0),
		pending:   atomic.NewInt64(0),
		buffered:  atomic.NewInt64(0),
		delivered: atomic.NewUint64(0),
		cancelled: atomic.NewUint64(0),
	}
}

func (s junctionStats) snapshot() Stats {
	return Stats{
		Admitted:  s.admitted.Load(),
		Active:    s.active.Load(),
		Pending:   s.pending.Load(),
		Buffered:  s.buffered.Load(),
		Delivered: s.delivered.Load(),
		Cancelled: s.cancelled.Load(),
	}
}
