// Package pool provides a wrapper around sync.Pool that reports allocations.
package pool

import (
	"sync"
)

// Pool is a wrapper around sync.Pool that notifies a callback on every pool miss.
type Pool struct {
	Name string     // Name identifies the pool in allocation reports.
	Pool *sync.Pool // Pool is the underlying sync.Pool instance.
}

// NewPool creates a new instrumented pool.
// newFunc builds an item when the pool is empty; onNew, if set, is told about it first.
func NewPool(name string, newFunc func() any, onNew func(name string)) *Pool {
	p := &Pool{
		Name: name,
	}

	p.Pool = &sync.Pool{
		New: func() any {
			if onNew != nil {
				onNew(name)
			}
			return newFunc()
		},
	}
	return p
}

// Put adds x back to the pool for reuse.
func (p *Pool) Put(x any) {
	p.Pool.Put(x)
}

// Get retrieves an item from the pool, allocating through newFunc when it is empty.
func (p *Pool) Get() any {
	return p.Pool.Get()
}
