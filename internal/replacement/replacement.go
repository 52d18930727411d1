// Package replacement implements a process-wide counter of forced page
// table evictions that fires its own leaky-bucket threshold, independent
// of any single page's error rate.
package replacement

import (
	"time"

	"github.com/mcelog-go/pager/internal/bucket"
)

// Counter is the process-wide forced-eviction counter.
type Counter struct {
	Count  uint64
	bucket bucket.State
}

// New returns a freshly initialized Counter.
func New() *Counter {
	c := &Counter{}
	c.bucket.Init()

	return c
}

// RecordReplacement bumps Count, advances the bucket by one at ts, and
// reports whether this call crossed cfg.Threshold.
func (c *Counter) RecordReplacement(cfg bucket.Config, ts time.Time) bool {
	c.Count++

	return c.bucket.Account(cfg, 1, ts)
}

// Summary renders the current bucket state for trigger messages/logs.
func (c *Counter) Summary(cfg bucket.Config) string {
	return bucket.Summary(cfg, &c.bucket)
}

// ThresholdCount returns the bucket's current decayed level as an int,
// used for the THRESHOLD_COUNT trigger env var.
func (c *Counter) ThresholdCount() int {
	return c.bucket.Count()
}
