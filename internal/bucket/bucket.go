// Package bucket implements a leaky bucket primitive: a counter that
// decays linearly over time and reports an edge-triggered crossing when
// its level reaches a configured threshold.
package bucket

import (
	"fmt"
	"time"
)

// Config is the static, operator-supplied shape of a bucket: how many
// events within AgeTime constitute a crossing.
type Config struct {
	// Threshold is the level a bucket must reach to report a crossing.
	Threshold float64
	// AgeTime is the window over which the bucket fully decays.
	AgeTime time.Duration
}

// State is the mutable, per-entity bucket state. The zero value is a
// freshly initialized (never-updated, empty) bucket.
type State struct {
	level      float64
	lastUpdate time.Time
	armed      bool // true once level has crossed Threshold and not yet decayed back under it
}

// Init resets state to empty with no last-update time.
func (s *State) Init() {
	*s = State{}
}

// Account decays state to ts, adds increment, and reports whether this
// call is the edge on which the level crossed Threshold. Crossings are
// edge-triggered: a sustained rate above threshold reports exactly one
// crossing until the level decays back under threshold and crosses again.
//
// ts values are assumed non-decreasing; an out-of-order ts is clamped to
// the last-update time so the bucket never goes negative-elapsed, which
// would otherwise inflate the level instead of decaying it.
//
// Decay is computed with whole-second, integer-truncating arithmetic
// (elapsedSeconds*Threshold)/ageSeconds, not a continuous rate: between
// once-a-second events the decay truncates to zero whenever
// Threshold < ageSeconds, so a sustained rate of one event per second
// crosses Threshold exactly on the Threshold'th event, not later.
func (s *State) Account(cfg Config, increment float64, ts time.Time) bool {
	if !s.lastUpdate.IsZero() && cfg.AgeTime > 0 {
		elapsed := ts.Sub(s.lastUpdate)
		if elapsed < 0 {
			elapsed = 0
		}

		ageSeconds := int64(cfg.AgeTime / time.Second)
		if ageSeconds > 0 {
			elapsedSeconds := int64(elapsed / time.Second)
			decay := float64((elapsedSeconds * int64(cfg.Threshold)) / ageSeconds)
			s.level -= decay
			if s.level < 0 {
				s.level = 0
			}
		}
	}

	s.lastUpdate = ts
	s.level += increment

	if s.level < cfg.Threshold {
		s.armed = false
		return false
	}

	if s.armed {
		return false
	}

	s.armed = true
	return true
}

// Count returns the current decayed level, rounded to the nearest integer
// event count for display purposes (THRESHOLD_COUNT in the trigger env).
func (s *State) Count() int {
	return int(s.level + 0.5)
}

// LastUpdate exposes the timestamp of the most recent Account call, zero
// if the bucket has never been accounted.
func (s *State) LastUpdate() time.Time {
	return s.lastUpdate
}

// Summary renders a human-readable description of the current bucket
// state, used in log lines and the MESSAGE/THRESHOLD trigger env vars.
func Summary(cfg Config, s *State) string {
	return fmt.Sprintf("%d in %s", s.Count(), cfg.AgeTime)
}
