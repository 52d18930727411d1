// Package accountant implements the central state machine that ties the
// page table, the leaky bucket, the offliner, and the trigger dispatcher
// together. Engine is the single owner value holding all of that state,
// constructed once at startup and passed explicitly to the event entry
// point rather than kept behind package-level globals.
package accountant

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mcelog-go/pager/internal/bucket"
	"github.com/mcelog-go/pager/internal/mcevent"
	"github.com/mcelog-go/pager/internal/offline"
	"github.com/mcelog-go/pager/internal/pagetable"
	"github.com/mcelog-go/pager/internal/replacement"
	"github.com/mcelog-go/pager/internal/trigger"
)

// Engine owns the process-wide page table, replacement counter, and
// policy snapshot.
type Engine struct {
	logger *zap.Logger
	cfg    Config

	table       *pagetable.Table
	replacement *replacement.Counter
	offliner    *offline.Offliner
	dispatcher  *trigger.Dispatcher
	resolver    DIMMResolver
}

// New constructs an Engine. Startup failures that leave the policy
// unenforceable (an unreachable trigger hook) are the caller's
// responsibility to treat as fatal; New itself only downgrades an
// unwritable sysfs node, it never exits the process.
func New(cfg Config, logger *zap.Logger) (*Engine, error) {
	offliner := offline.New(cfg.Policy, logger)
	offliner.Probe()

	return newEngine(cfg, logger, offliner)
}

// newEngine builds an Engine around an already-constructed Offliner,
// letting tests substitute one pointed at scratch sysfs paths instead of
// the real kernel nodes.
func newEngine(cfg Config, logger *zap.Logger, offliner *offline.Offliner) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	table, err := pagetable.New(cfg.MaxCounters, cfg.ClusterCapacity, logger)
	if err != nil {
		return nil, fmt.Errorf("accountant: %w", err)
	}

	return &Engine{
		logger:      logger,
		cfg:         cfg,
		table:       table,
		replacement: replacement.New(),
		offliner:    offliner,
		dispatcher:  trigger.NewDispatcher(logger),
		resolver:    cfg.resolver(),
	}, nil
}

// Table exposes the Page Table for the Inspector (component G); nothing
// else should reach into it.
func (e *Engine) Table() *pagetable.Table { return e.table }

// ReplacementCount exposes the current forced-eviction count for
// diagnostics.
func (e *Engine) ReplacementCount() uint64 { return e.replacement.Count }

// Close drains any in-flight asynchronous trigger hooks.
func (e *Engine) Close() error {
	return e.dispatcher.Close()
}

// AccountPageError is the core entry point. Callers must serialize
// calls to it; this engine has no internal locking.
func (e *Engine) AccountPageError(ev mcevent.ErrorEvent) {
	if e.offliner.Policy() == offline.Off {
		return // filter 1
	}

	if !ev.HasValidAddress() || ev.Uncorrected() {
		return // filters 2, 3
	}

	if ev.Quirked() {
		return // filter 4, duplicate-APEI suppression
	}

	addr := ev.PageAddr()

	rec, err := e.resolveRecord(addr, ev.Time)
	if err != nil {
		e.logger.Error("page table operation failed", zap.Uint64("addr", addr), zap.Error(err))
		return
	}

	rec.ErrorCount++

	crossed := rec.Bucket.Account(e.cfg.PageError.Bucket, 1, ev.Time)
	if !crossed {
		return
	}

	if rec.State != pagetable.Online || rec.Triggered {
		// Already acted on this page during its current residency; keep
		// accounting, but don't re-trigger or re-attempt the offline.
		return
	}

	e.onThresholdCrossed(rec, addr, ev)
}

// resolveRecord handles the three lookup outcomes: hit, miss with spare
// capacity, or miss at capacity (which also feeds the replacement
// counter).
func (e *Engine) resolveRecord(addr uint64, ts time.Time) (*pagetable.Record, error) {
	if rec, ok := e.table.Lookup(addr); ok {
		e.table.Touch(rec)
		return rec, nil
	}

	if e.table.Len() < e.table.MaxCounters() {
		return e.table.Insert(addr)
	}

	rec, err := e.table.Replace(addr)
	if err != nil {
		return nil, err
	}

	e.recordReplacement(ts)

	return rec, nil
}

func (e *Engine) recordReplacement(ts time.Time) {
	crossed := e.replacement.RecordReplacement(e.cfg.Replacement.Bucket, ts)
	if !crossed {
		return
	}

	e.dispatcher.Async(trigger.Event{
		Hook:           e.cfg.Replacement.Hook,
		Name:           "page-error-counter",
		Message:        "Replacements of page correctable error counter exceed threshold",
		Summary:        e.replacement.Summary(e.cfg.Replacement.Bucket),
		TotalCount:     e.replacement.Count,
		ThresholdCount: e.replacement.ThresholdCount(),
		AgeTime:        e.cfg.Replacement.Bucket.AgeTime,
		LastEvent:      ts,
	})
}

// onThresholdCrossed emits the message and trigger for the crossing
// itself, then runs the offlining sub-sequence.
func (e *Engine) onThresholdCrossed(rec *pagetable.Record, addr uint64, ev mcevent.ErrorEvent) {
	summary := bucket.Summary(e.cfg.PageError.Bucket, &rec.Bucket)
	dimm := e.resolver.Resolve(ev.SocketID, ev.Channel, ev.DIMM)

	msg := fmt.Sprintf("Corrected memory errors on page %#x exceed threshold", addr)
	if dimm != "" {
		msg = fmt.Sprintf("%s (dimm %s)", msg, dimm)
	}

	e.dispatcher.Async(trigger.Event{
		Hook:           e.cfg.PageError.Hook,
		Name:           "page",
		Message:        msg,
		Summary:        summary,
		TotalCount:     rec.ErrorCount,
		ThresholdCount: rec.Bucket.Count(),
		AgeTime:        e.cfg.PageError.Bucket.AgeTime,
		LastEvent:      ev.Time,
	})

	// Gate the "already acted" check on future crossings; set after the
	// message but before the offline action.
	rec.Triggered = true

	policy := e.offliner.Policy()
	if policy == offline.Soft || policy == offline.SoftThenHard {
		e.runSoftSequence(rec, addr, summary, ev.Time)
		return
	}

	e.offlinePage(rec, addr)
}

func (e *Engine) runSoftSequence(rec *pagetable.Record, addr uint64, summary string, ts time.Time) {
	arg := fmt.Sprintf("%d", addr)

	_ = e.dispatcher.Sync(trigger.Event{
		Hook:           e.cfg.PreSoftTrigger,
		Name:           "page_pre_soft",
		Message:        fmt.Sprintf("pre soft trigger run for page %d", addr),
		Summary:        summary,
		TotalCount:     rec.ErrorCount,
		ThresholdCount: rec.Bucket.Count(),
		AgeTime:        e.cfg.PageError.Bucket.AgeTime,
		LastEvent:      ts,
		Args:           []string{arg},
	})

	e.offlinePage(rec, addr)

	_ = e.dispatcher.Sync(trigger.Event{
		Hook:           e.cfg.PostSoftTrigger,
		Name:           "page_post_soft",
		Message:        fmt.Sprintf("post soft trigger run for page %d", addr),
		Summary:        summary,
		TotalCount:     rec.ErrorCount,
		ThresholdCount: rec.Bucket.Count(),
		AgeTime:        e.cfg.PageError.Bucket.AgeTime,
		LastEvent:      ts,
		Args:           []string{arg},
	})
}

func (e *Engine) offlinePage(rec *pagetable.Record, addr uint64) {
	if err := e.offliner.Offline(addr); err != nil {
		e.logger.Warn("offlining page failed", zap.Uint64("addr", addr), zap.Error(err))
		rec.State = pagetable.OfflineFailed

		return
	}

	if e.offliner.Policy() > offline.Account {
		rec.State = pagetable.Offline
	}
}
