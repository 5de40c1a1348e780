package upload

import (
	"sync/atomic"
)

// Counter tracks bytes confirmed by the object store.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) Add(n int64) int64 {
	return c.n.Add(n)
}

func (c *Counter) Load() int64 {
	return c.n.Load()
}

func (c *Counter) Reset() {
	c.n.Store(0)
}
