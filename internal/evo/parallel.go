package evo

import "github.com/sourcegraph/conc/pool"

// chunk is a half-open index range [lo, hi) of a deme.
type chunk struct {
	lo, hi int
}

func splitChunks(n, parts int) []chunk {
	if n <= 0 {
		return nil
	}
	if parts > n {
		parts = n
	}
	if parts < 1 {
		parts = 1
	}
	out := make([]chunk, 0, parts)
	size, rem := n/parts, n%parts
	lo := 0
	for i := 0; i < parts; i++ {
		hi := lo + size
		if i < rem {
			hi++
		}
		out = append(out, chunk{lo: lo, hi: hi})
		lo = hi
	}
	return out
}

// forEachChunk splits [0, n) across the system's workers. Each task gets
// its own forked context, prepared before any task starts so results do
// not depend on scheduling. Tasks must write only inside their range.
func forEachChunk(ec *Context, n int, fn func(lo, hi int, ec *Context) error) error {
	chunks := splitChunks(n, ec.System.workers())
	if len(chunks) == 0 {
		return nil
	}
	forks := make([]*Context, len(chunks))
	for i := range forks {
		forks[i] = ec.Fork()
	}
	if len(chunks) == 1 {
		return fn(chunks[0].lo, chunks[0].hi, forks[0])
	}

	p := pool.New().WithMaxGoroutines(len(chunks)).WithErrors()
	for i, c := range chunks {
		fork := forks[i]
		p.Go(func() error {
			return fn(c.lo, c.hi, fork)
		})
	}
	return p.Wait()
}
