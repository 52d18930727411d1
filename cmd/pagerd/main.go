// Command pagerd wires the page accounting engine to a configuration
// snapshot and exposes its entry point. Parsing the machine-check event
// stream, the configuration file format, and process bootstrap/signal
// handling beyond this thin wiring live outside this package.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/mcelog-go/pager/internal/accountant"
	"github.com/mcelog-go/pager/internal/bucket"
	"github.com/mcelog-go/pager/internal/offline"
	"github.com/mcelog-go/pager/internal/trigger"
)

// envOverrides are the handful of process-level knobs an operator can
// set without editing the configuration file.
type envOverrides struct {
	MaxCounters     int    `env:"PAGER_MAX_COUNTERS"`
	ClusterCapacity int    `env:"PAGER_CLUSTER_CAPACITY"`
	Policy          string `env:"PAGER_POLICY"`
}

func parseFlags() (policyFlag, preSoft, postSoft, pageTrigger, replacementTrigger string, maxCounters, clusterCapacity int, pageThreshold, replacementThreshold float64, pageAgeTime, replacementAgeTime time.Duration) {
	flag.StringVar(&policyFlag, "policy", "off", "memory-ce-action: off, account, soft, hard, soft-then-hard")
	flag.StringVar(&preSoft, "pre-soft-trigger", "", "memory-pre-sync-soft-ce-trigger: path to executable run before soft offline")
	flag.StringVar(&postSoft, "post-soft-trigger", "", "memory-post-sync-soft-ce-trigger: path to executable run after soft offline")
	flag.StringVar(&pageTrigger, "page-trigger", "", "operator hook invoked when a page's error rate crosses its threshold")
	flag.StringVar(&replacementTrigger, "replacement-trigger", "", "operator hook invoked when the replacement rate crosses its threshold")
	flag.IntVar(&maxCounters, "max-counters", 4096, "maximum number of distinct pages tracked")
	flag.IntVar(&clusterCapacity, "cluster-capacity", 256, "records per LRU-eviction cluster")
	flag.Float64Var(&pageThreshold, "page-threshold", 10, "memory-ce threshold: errors per age window")
	flag.DurationVar(&pageAgeTime, "page-agetime", 60*time.Second, "memory-ce decay window")
	flag.Float64Var(&replacementThreshold, "replacement-threshold", 3, "memory-ce-counter-replacement threshold: evictions per age window")
	flag.DurationVar(&replacementAgeTime, "replacement-agetime", 300*time.Second, "memory-ce-counter-replacement decay window")

	flag.Parse()

	return
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	policyFlag, preSoft, postSoft, pageTrigger, replacementTrigger,
		maxCounters, clusterCapacity,
		pageThreshold, replacementThreshold,
		pageAgeTime, replacementAgeTime := parseFlags()

	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		logger.Fatal("failed to parse environment overrides", zap.Error(err))
	}

	if overrides.MaxCounters != 0 {
		maxCounters = overrides.MaxCounters
	}

	if overrides.ClusterCapacity != 0 {
		clusterCapacity = overrides.ClusterCapacity
	}

	if overrides.Policy != "" {
		policyFlag = overrides.Policy
	}

	policy, err := offline.ParsePolicy(policyFlag)
	if err != nil {
		logger.Fatal("invalid policy", zap.Error(err))
	}

	// An unreachable trigger hook is fatal at startup: the operator has
	// misconfigured a path.
	for _, hook := range []string{preSoft, postSoft} {
		if err := trigger.CheckHook(hook); err != nil {
			logger.Fatal("cannot access configured trigger", zap.Error(err))
		}
	}

	cfg := accountant.Config{
		MaxCounters:     maxCounters,
		ClusterCapacity: clusterCapacity,
		PageError: accountant.TriggerBucketConfig{
			Bucket: bucket.Config{Threshold: pageThreshold, AgeTime: pageAgeTime},
			Hook:   pageTrigger,
		},
		Replacement: accountant.TriggerBucketConfig{
			Bucket: bucket.Config{Threshold: replacementThreshold, AgeTime: replacementAgeTime},
			Hook:   replacementTrigger,
		},
		Policy:          policy,
		PreSoftTrigger:  preSoft,
		PostSoftTrigger: postSoft,
	}

	engine, err := accountant.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to construct engine", zap.Error(err))
	}
	defer engine.Close() //nolint:errcheck

	// Consuming the actual machine-check event stream lives outside this
	// package; a real deployment feeds engine.AccountPageError from that
	// collaborator here.
	fmt.Fprintln(os.Stdout, "pagerd: engine ready")
}
