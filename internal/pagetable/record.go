package pagetable

import "github.com/mcelog-go/pager/internal/bucket"

// OfflineState is a page record's offlining status.
type OfflineState int

const (
	Online OfflineState = iota
	Offline
	OfflineFailed
)

func (s OfflineState) String() string {
	switch s {
	case Online:
		return "online"
	case Offline:
		return "offline"
	case OfflineFailed:
		return "offline-failed"
	default:
		return "unknown"
	}
}

// Record is one tracked faulty physical page.
type Record struct {
	Addr       uint64
	State      OfflineState
	Triggered  bool
	ErrorCount uint64
	Bucket     bucket.State

	cluster *cluster
}

// reset reinitializes a record for a fresh residency at addr. A
// replaced slot never carries over the evicted record's bucket state or
// counters; the new residency starts fresh.
func (r *Record) reset(addr uint64) {
	r.Addr = addr
	r.State = Online
	r.Triggered = false
	r.ErrorCount = 0
	r.Bucket.Init()
}
