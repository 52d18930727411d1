// Package mcevent defines the inbound machine-check event shape this
// engine consumes and the filters applied before an event reaches the
// page accounting path.
package mcevent

import "time"

// Status bits relevant to this engine, out of the full MCi_STATUS
// bitfield; the rest of the register is not interpreted here.
const (
	StatusAddrValid uint64 = 1 << 58 // MCI_STATUS_ADDRV
	StatusUncorrected uint64 = 1 << 61 // MCI_STATUS_UC
)

// PageSize and PageShift define the page alignment addresses are
// rounded down to.
const (
	PageShift = 12
	PageSize  = int64(1) << PageShift
)

// ErrorEvent is one reported machine-check event.
type ErrorEvent struct {
	Addr        uint64
	Time        time.Time
	CPU         uint32
	ExtCPU      uint32 // effective/extended CPU id, preferred over CPU when nonzero
	Bank        uint32
	StatusFlags uint64
	SocketID    int
	Channel     int
	DIMM        int
	Family      CPUFamily
}

// EffectiveCPU returns ExtCPU when set, else CPU, mirroring the original
// source's `m->extcpu ? m->extcpu : m->cpu`.
func (e ErrorEvent) EffectiveCPU() uint32 {
	if e.ExtCPU != 0 {
		return e.ExtCPU
	}

	return e.CPU
}

// HasValidAddress reports whether the address bit is set.
func (e ErrorEvent) HasValidAddress() bool {
	return e.StatusFlags&StatusAddrValid != 0
}

// Uncorrected reports whether this event describes an uncorrected error,
// which this engine never accounts.
func (e ErrorEvent) Uncorrected() bool {
	return e.StatusFlags&StatusUncorrected != 0
}

// PageAddr rounds Addr down to the page boundary.
func (e ErrorEvent) PageAddr() uint64 {
	return e.Addr &^ uint64(PageSize-1)
}
