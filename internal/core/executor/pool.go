package executor

import "runtime"

// Pool is the worker budget shared by every parallel stage. It lives in the
// world as a resource and is captured by the dispatcher at build time.
type Pool struct {
	workers int
}

// NewPool returns a pool running at most workers tasks at once.
// workers <= 0 selects GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{workers: workers}
}

func (p *Pool) Workers() int { return p.workers }
