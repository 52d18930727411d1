package mcevent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuirkedSuppressesSandyBridgeDuplicate(t *testing.T) {
	e := ErrorEvent{Family: FamilySandyBridgeEP, Bank: 1, CPU: 0}
	assert.True(t, e.Quirked())
}

func TestQuirkedIgnoresOtherBanksAndCPUs(t *testing.T) {
	assert.False(t, ErrorEvent{Family: FamilySandyBridgeEP, Bank: 2, CPU: 0}.Quirked())
	assert.False(t, ErrorEvent{Family: FamilySandyBridgeEP, Bank: 1, CPU: 1}.Quirked())
	assert.False(t, ErrorEvent{Family: FamilyUnknown, Bank: 1, CPU: 0}.Quirked())
}

func TestQuirkedUsesEffectiveCPU(t *testing.T) {
	// ExtCPU takes priority once set, even if CPU alone would have matched.
	e := ErrorEvent{Family: FamilySandyBridgeEP, Bank: 1, CPU: 0, ExtCPU: 9}
	assert.False(t, e.Quirked())
}
