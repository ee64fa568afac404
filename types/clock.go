package types

import (
	"sync/atomic"
	"time"
)

// Clock abstracts the execution environment's notion of time: a wall-clock
// timestamp for balance records and a monotonically increasing sequence used
// for spend-approval expiries.
type Clock interface {
	Timestamp() uint64
	Sequence() uint64
}

// SystemClock derives the timestamp from wall time and the sequence from an
// internal counter bumped on every read.
type SystemClock struct {
	seq atomic.Uint64
}

func NewSystemClock() *SystemClock { return &SystemClock{} }

func (c *SystemClock) Timestamp() uint64 { return uint64(time.Now().Unix()) }

func (c *SystemClock) Sequence() uint64 { return c.seq.Add(1) }
