package accountant

import (
	"github.com/mcelog-go/pager/internal/bucket"
	"github.com/mcelog-go/pager/internal/offline"
)

// TriggerBucketConfig bundles a leaky bucket's threshold/decay with the
// operator hook that accompanies it: each of the page-error and
// replacement counters carries its own threshold, decay window, and
// trigger path.
type TriggerBucketConfig struct {
	Bucket bucket.Config
	// Hook is the operator-defined executable invoked on a crossing.
	// Empty means no hook is configured.
	Hook string
}

// DIMMResolver resolves a human-readable DIMM identity from the
// socket/channel/dimm indices carried on an ErrorEvent. DIMM topology
// lookup itself lives outside this engine; this is the narrow
// collaborator interface a caller implements to plug it in.
type DIMMResolver interface {
	Resolve(socketID, channel, dimm int) string
}

type noopResolver struct{}

func (noopResolver) Resolve(int, int, int) string { return "" }

// Config is the configuration snapshot this engine consumes. Config
// file syntax and loading live outside this package; callers build this
// struct however they load configuration (cmd/pagerd does it from
// flags/env).
type Config struct {
	MaxCounters     int
	ClusterCapacity int

	// PageError is "memory-ce": per-page error rate threshold.
	PageError TriggerBucketConfig
	// Replacement is "memory-ce-counter-replacement": table churn rate.
	Replacement TriggerBucketConfig

	// Policy is "memory-ce-action".
	Policy offline.Policy

	// PreSoftTrigger is "memory-pre-sync-soft-ce-trigger".
	PreSoftTrigger string
	// PostSoftTrigger is "memory-post-sync-soft-ce-trigger".
	PostSoftTrigger string

	// DIMMResolver is optional; a nil value resolves to "" for every page.
	DIMMResolver DIMMResolver
}

func (c Config) resolver() DIMMResolver {
	if c.DIMMResolver == nil {
		return noopResolver{}
	}

	return c.DIMMResolver
}
