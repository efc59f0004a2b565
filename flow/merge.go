package flow

import "sync"

// Merge interleaves a fixed set of outlets into one Flow. It is the
// static special case of the junction engine: the population of
// sources is known up front and concurrency is never capped. The
// merged input closes once every outlet has closed.
func Merge(outlets ...Flow) Flow {
	merged := NewPassThrough()
	var wg sync.WaitGroup
	wg.Add(len(outlets))

	for _, out := range outlets {
		go func(outlet Outlet) {
			defer wg.Done()
			for element := range outlet.Out() {
				merged.In() <- element
			}
		}(out)
	}

	go func() {
		wg.Wait()
		close(merged.In())
	}()

	return merged
}
