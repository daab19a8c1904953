package utils

import (
	"sync/atomic"
	"time"
)

// IDGenerator hands out process-unique int64 entity IDs. Seeding from the
// clock keeps IDs from colliding with entities created by earlier runs.
type IDGenerator struct {
	next atomic.Int64
}

func NewIDGenerator() *IDGenerator {
	g := &IDGenerator{}
	g.next.Store(time.Now().UnixMilli())
	return g
}

// Next returns a new unique ID
func (g *IDGenerator) Next() int64 {
	return g.next.Add(1)
}
