package bucket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStateAccountCrossesThresholdOnce(t *testing.T) {
	cfg := Config{Threshold: 3, AgeTime: 10 * time.Second}

	var s State
	s.Init()

	base := time.Unix(0, 0)

	assert.False(t, s.Account(cfg, 1, base), "first event should not cross")
	assert.False(t, s.Account(cfg, 1, base.Add(time.Second)), "second event should not cross")
	assert.True(t, s.Account(cfg, 1, base.Add(2*time.Second)), "third event should cross")
	assert.False(t, s.Account(cfg, 1, base.Add(3*time.Second)), "sustained rate above threshold reports no further crossing")
}

func TestStateAccountRearmsAfterDecay(t *testing.T) {
	cfg := Config{Threshold: 2, AgeTime: 10 * time.Second}

	var s State
	s.Init()

	base := time.Unix(0, 0)

	assert.False(t, s.Account(cfg, 1, base))
	assert.True(t, s.Account(cfg, 1, base))

	// fully decay, then cross again
	assert.False(t, s.Account(cfg, 1, base.Add(20*time.Second)))
	assert.True(t, s.Account(cfg, 1, base.Add(20*time.Second)))
}

func TestStateAccountClampsOutOfOrderTimestamp(t *testing.T) {
	cfg := Config{Threshold: 5, AgeTime: time.Second}

	var s State
	s.Init()

	base := time.Unix(100, 0)
	s.Account(cfg, 1, base)

	// ts before lastUpdate must not inflate the level via negative decay.
	s.Account(cfg, 1, base.Add(-10*time.Second))

	assert.Equal(t, 2, s.Count())
}

func TestStateCountRounds(t *testing.T) {
	cfg := Config{Threshold: 100, AgeTime: time.Second}

	var s State
	s.Init()

	s.Account(cfg, 0.5, time.Unix(0, 0))
	assert.Equal(t, 1, s.Count())
}

func TestSummaryFormat(t *testing.T) {
	cfg := Config{Threshold: 10, AgeTime: 30 * time.Second}

	var s State
	s.Init()
	s.Account(cfg, 4, time.Unix(0, 0))

	assert.Equal(t, "4 in 30s", Summary(cfg, &s))
}
