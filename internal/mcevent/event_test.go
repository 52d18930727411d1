package mcevent

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveCPUPrefersExtCPU(t *testing.T) {
	e := ErrorEvent{CPU: 1, ExtCPU: 7}
	assert.Equal(t, uint32(7), e.EffectiveCPU())

	e2 := ErrorEvent{CPU: 1}
	assert.Equal(t, uint32(1), e2.EffectiveCPU())
}

func TestHasValidAddress(t *testing.T) {
	e := ErrorEvent{StatusFlags: StatusAddrValid}
	assert.True(t, e.HasValidAddress())

	e2 := ErrorEvent{StatusFlags: StatusUncorrected}
	assert.False(t, e2.HasValidAddress())
}

func TestUncorrected(t *testing.T) {
	e := ErrorEvent{StatusFlags: StatusAddrValid | StatusUncorrected}
	assert.True(t, e.Uncorrected())

	e2 := ErrorEvent{StatusFlags: StatusAddrValid}
	assert.False(t, e2.Uncorrected())
}

func TestPageAddrRoundsDown(t *testing.T) {
	e := ErrorEvent{Addr: 0x1234, Time: time.Now()}
	assert.Equal(t, uint64(0x1000), e.PageAddr())

	e2 := ErrorEvent{Addr: 0x2000}
	assert.Equal(t, uint64(0x2000), e2.PageAddr())
}
