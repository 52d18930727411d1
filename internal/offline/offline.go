// Package offline implements the Offliner: mapping a configured policy
// and a physical address to the kernel sysfs writes that remove a
// failing page from the allocator.
package offline

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Policy is one of the five offlining strategies.
type Policy int

const (
	Off Policy = iota
	Account
	Soft
	Hard
	SoftThenHard
)

func (p Policy) String() string {
	switch p {
	case Off:
		return "off"
	case Account:
		return "account"
	case Soft:
		return "soft"
	case Hard:
		return "hard"
	case SoftThenHard:
		return "soft-then-hard"
	default:
		return "unknown"
	}
}

// ParsePolicy maps a configuration token to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "off":
		return Off, nil
	case "account":
		return Account, nil
	case "soft":
		return Soft, nil
	case "hard":
		return Hard, nil
	case "soft-then-hard":
		return SoftThenHard, nil
	default:
		return Off, fmt.Errorf("offline: unknown policy %q", s)
	}
}

// Sysfs paths written to offline a page.
const (
	SoftOfflinePath = "/sys/devices/system/memory/soft_offline_page"
	HardOfflinePath = "/sys/devices/system/memory/hard_offline_page"
)

// ErrWriteFailed wraps a failed sysfs write.
var ErrWriteFailed = errors.New("offline: sysfs write failed")

// Offliner performs policy-gated sysfs offline writes. The sysfs paths
// are fields rather than the package constants so tests can point them
// at a scratch file instead of the real kernel nodes.
type Offliner struct {
	logger *zap.Logger
	policy Policy

	softPath string
	hardPath string
}

// New constructs an Offliner against the real kernel sysfs nodes.
func New(policy Policy, logger *zap.Logger) *Offliner {
	return NewWithPaths(policy, logger, SoftOfflinePath, HardOfflinePath)
}

// NewWithPaths constructs an Offliner against arbitrary soft/hard
// offline paths, letting tests substitute scratch files for the real
// sysfs nodes.
func NewWithPaths(policy Policy, logger *zap.Logger, softPath, hardPath string) *Offliner {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Offliner{logger: logger, policy: policy, softPath: softPath, hardPath: hardPath}
}

// Policy returns the currently effective policy (may differ from the
// configured one after Probe downgrades it).
func (o *Offliner) Policy() Policy { return o.policy }

func (o *Offliner) pathFor(p Policy) string {
	switch p {
	case Soft, SoftThenHard:
		return o.softPath
	case Hard:
		return o.hardPath
	default:
		return ""
	}
}

// Probe checks at startup whether the configured policy's sysfs nodes are
// writable, downgrading the effective policy and logging a warning if
// not. SoftThenHard downgrades one step at a time: if only the soft node
// is missing it falls back to Hard (the fallback Offline itself would
// take anyway), and only drops to Account if the hard node is missing
// too.
func (o *Offliner) Probe() {
	if o.policy <= Account {
		return
	}

	if o.policy == SoftThenHard {
		softOK := unix.Access(o.softPath, unix.W_OK) == nil
		hardOK := unix.Access(o.hardPath, unix.W_OK) == nil

		switch {
		case softOK:
			return
		case hardOK:
			o.logger.Warn("soft offline sysfs node unavailable, downgrading to hard",
				zap.String("path", o.softPath),
			)
			o.policy = Hard
			return
		default:
			o.logger.Warn("kernel does not support page offline interface, downgrading to account",
				zap.String("policy", o.policy.String()),
				zap.String("path", o.hardPath),
			)
			o.policy = Account
			return
		}
	}

	path := o.pathFor(o.policy)
	if path == "" {
		return
	}

	if unix.Access(path, unix.W_OK) != nil {
		o.logger.Warn("kernel does not support page offline interface, downgrading to account",
			zap.String("policy", o.policy.String()),
			zap.String("path", path),
		)
		o.policy = Account
	}
}

// Offline writes addr to the sysfs node(s) implied by the effective
// policy. Policy <= Account never writes sysfs, regardless of caller;
// this is the single place that rule is enforced.
//
// SoftThenHard tries soft first and falls back to hard on failure; the
// final outcome is the hard attempt's outcome.
func (o *Offliner) Offline(addr uint64) error {
	if o.policy <= Account {
		return nil
	}

	if o.policy == SoftThenHard {
		if err := o.writeSysfs(o.softPath, addr); err != nil {
			o.logger.Warn("soft offlining failed, trying hard offlining",
				zap.Uint64("addr", addr), zap.Error(err))

			return o.writeSysfs(o.hardPath, addr)
		}

		return nil
	}

	return o.writeSysfs(o.pathFor(o.policy), addr)
}

func (o *Offliner) writeSysfs(path string, addr uint64) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrWriteFailed, path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%#x", addr); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrWriteFailed, path, err)
	}

	return nil
}
