// Package pagetable implements a bounded, cluster-LRU-evicting address
// index: O(log n) lookup by physical address via an ordered map, with
// eviction granularity at the level of fixed-capacity clusters rather
// than individual records, trading a little staleness in LRU precision
// for a much smaller bookkeeping footprint per tracked page.
package pagetable

import (
	"container/list"
	"errors"
	"fmt"

	"github.com/google/btree"
	"go.uber.org/zap"
)

var (
	// ErrAlreadyPresent is returned by Insert when addr is already indexed.
	ErrAlreadyPresent = errors.New("pagetable: address already present")
	// ErrNotFull is returned by Replace when the table has spare capacity;
	// callers should Insert instead.
	ErrNotFull = errors.New("pagetable: table is not full")
	// ErrFull is returned by Insert when the table has no spare capacity;
	// callers should Replace instead.
	ErrFull = errors.New("pagetable: table is full")
	// ErrOutOfMemory is returned by Replace if a full table somehow has no
	// cluster to steal from; this should never happen outside a bookkeeping
	// bug, since size == maxCounters implies at least one cluster exists.
	ErrOutOfMemory = errors.New("pagetable: out of memory allocating cluster")
)

type addrItem struct {
	addr uint64
	rec  *Record
}

func lessAddr(a, b addrItem) bool {
	return a.addr < b.addr
}

// Table is the bounded address → Record store.
type Table struct {
	logger *zap.Logger

	clusterCap  int
	maxCounters int

	tree     *btree.BTreeG[addrItem]
	clusters *list.List // of *cluster, front = most-recently-used
	current  *cluster   // cluster presently receiving new/recycled slots

	size int
}

// New constructs a Table. maxCounters is rounded up to a multiple of
// clusterCapacity so every cluster is fully packed.
func New(maxCounters, clusterCapacity int, logger *zap.Logger) (*Table, error) {
	if clusterCapacity <= 0 {
		return nil, fmt.Errorf("pagetable: cluster capacity must be positive, got %d", clusterCapacity)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	rounded := roundUp(maxCounters, clusterCapacity)
	if rounded != maxCounters {
		logger.Warn("rounding up max-corr-err-counters to a cluster multiple",
			zap.Int("requested", maxCounters),
			zap.Int("rounded", rounded),
		)
	}

	return &Table{
		logger:      logger,
		clusterCap:  clusterCapacity,
		maxCounters: rounded,
		tree:        btree.NewG(32, lessAddr),
		clusters:    list.New(),
	}, nil
}

func roundUp(n, multiple int) int {
	if n <= 0 {
		return multiple
	}

	if n%multiple == 0 {
		return n
	}

	return (n/multiple + 1) * multiple
}

// MaxCounters returns the effective (rounded-up) capacity.
func (t *Table) MaxCounters() int { return t.maxCounters }

// Len returns the number of live records.
func (t *Table) Len() int { return t.size }

// Lookup returns the record indexed at addr, if any.
func (t *Table) Lookup(addr uint64) (*Record, bool) {
	item, ok := t.tree.Get(addrItem{addr: addr})
	if !ok {
		return nil, false
	}

	return item.rec, true
}

// Insert allocates a new record for addr. Precondition: Lookup(addr)
// returned false and Len() < MaxCounters().
func (t *Table) Insert(addr uint64) (*Record, error) {
	if _, ok := t.Lookup(addr); ok {
		return nil, ErrAlreadyPresent
	}

	if t.size >= t.maxCounters {
		return nil, ErrFull
	}

	if t.current == nil || t.current.full() {
		t.current = t.newAllocatingCluster()
	}

	rec := t.current.takeSlot()
	rec.reset(addr)

	t.tree.ReplaceOrInsert(addrItem{addr: addr, rec: rec})
	t.size++
	t.touchCluster(t.current)

	return rec, nil
}

// Replace evicts the next slot in the least-recently-used cluster's
// rotation and reindexes it under addr. Precondition: Len() ==
// MaxCounters().
func (t *Table) Replace(addr uint64) (*Record, error) {
	if t.size < t.maxCounters {
		return nil, ErrNotFull
	}

	if t.current == nil || t.current.full() {
		back := t.clusters.Back()
		if back == nil {
			return nil, ErrOutOfMemory
		}

		lru := back.Value.(*cluster)
		lru.restart()
		t.current = lru
	}

	rec := t.current.takeSlot()

	// rec was previously indexed under its old address; every slot in a
	// cluster selected this way was filled during an earlier Insert or
	// Replace, so it always has a live prior entry to remove first.
	t.tree.Delete(addrItem{addr: rec.Addr})

	rec.reset(addr)
	t.tree.ReplaceOrInsert(addrItem{addr: addr, rec: rec})
	t.touchCluster(t.current)

	return rec, nil
}

// Touch promotes the cluster containing rec to most-recently-used.
// Idempotent when that cluster is already first.
func (t *Table) Touch(rec *Record) {
	t.touchCluster(rec.cluster)
}

func (t *Table) touchCluster(c *cluster) {
	if c == nil || c.elem == nil {
		return
	}

	t.clusters.MoveToFront(c.elem)
}

func (t *Table) newAllocatingCluster() *cluster {
	c := newCluster(t.clusterCap)

	elem := t.clusters.PushFront(c)
	c.elem = elem

	return c
}

// Iter visits every live record in ascending address order, stopping
// early if fn returns false. No state is mutated.
func (t *Table) Iter(fn func(*Record) bool) {
	t.tree.Ascend(func(item addrItem) bool {
		return fn(item.rec)
	})
}
