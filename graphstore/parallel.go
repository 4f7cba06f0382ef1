package graphstore

import (
	"runtime"
	"sync"
)

// parallelFor splits [0, n) into contiguous chunks, one per worker, and
// runs body over each chunk concurrently, returning once every chunk has
// completed (fork-join). Worker count scales
// with available CPUs, the same sizing heuristic DefaultConcurrencyConfig
// uses for its worker pools, adapted here to a single bounded fan-out
// rather than a persistent queue: degree-array and
// per-node checkpoint work is a fixed, known-size range joined immediately,
// not a stream of arriving requests.
func parallelFor(n int, body func(i int)) {
	if n <= 0 {
		return
	}
	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for i := 0; i < n; i++ {
			body(i)
		}
		return
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		if start >= n {
			break
		}
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				body(i)
			}
		}(start, end)
	}
	wg.Wait()
}
