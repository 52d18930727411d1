// Package trigger builds an environment for an operator-defined hook
// and invokes it, synchronously or asynchronously.
package trigger

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrHookUnreachable signals a configured hook path this process cannot
// execute, fatal at startup.
var ErrHookUnreachable = errors.New("trigger: hook is not reachable")

// CheckHook verifies path is a regular, executable file. Called at
// startup for the pre/post-soft trigger paths; an empty path is valid
// (no hook configured) and always passes.
func CheckHook(path string) error {
	if path == "" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrHookUnreachable, path, err)
	}

	if info.IsDir() || info.Mode()&0o111 == 0 {
		return fmt.Errorf("%w: %s: not executable", ErrHookUnreachable, path)
	}

	return nil
}

// Event is everything the Dispatcher needs to build the trigger
// environment and log line for one crossing.
type Event struct {
	// Hook is the path to the operator-defined executable. Empty means
	// "no hook configured"; only the log line is emitted.
	Hook string
	// Name identifies this trigger kind in logs ("page-error-counter",
	// "page_pre_soft", ...).
	Name string
	// Message is the human-readable summary, e.g. "Corrected memory
	// errors on page 0x1000 exceed threshold".
	Message string
	// Summary is the bucket's rendered state (bucket.Summary output).
	Summary        string
	TotalCount     uint64
	ThresholdCount int
	AgeTime        time.Duration
	// LastEvent is the timestamp of the triggering event; zero omits
	// LASTEVENT from the environment.
	LastEvent time.Time
	// Args are positional arguments passed to the hook, used by the
	// pre/post-soft triggers to pass the address.
	Args []string
}

func (e Event) env() []string {
	env := []string{
		"THRESHOLD=" + e.Summary,
		fmt.Sprintf("TOTALCOUNT=%d", e.TotalCount),
	}

	if !e.LastEvent.IsZero() {
		env = append(env, fmt.Sprintf("LASTEVENT=%d", e.LastEvent.Unix()))
	}

	env = append(env,
		fmt.Sprintf("AGETIME=%d", int64(e.AgeTime.Seconds())),
		fmt.Sprintf("MESSAGE=%s: %s", e.Message, e.Summary),
		fmt.Sprintf("THRESHOLD_COUNT=%d", e.ThresholdCount),
	)

	return env
}

// Dispatcher invokes operator hooks and tracks in-flight async ones so
// they can be drained on shutdown.
type Dispatcher struct {
	logger *zap.Logger
	group  errgroup.Group
}

func NewDispatcher(logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{logger: logger}
}

func (d *Dispatcher) run(e Event) error {
	d.logger.Info(e.Message,
		zap.String("trigger", e.Name),
		zap.String("threshold", e.Summary),
	)

	if e.Hook == "" {
		return nil
	}

	cmd := exec.Command(e.Hook, e.Args...)
	cmd.Env = append(os.Environ(), e.env()...)

	if err := cmd.Run(); err != nil {
		d.logger.Warn("trigger hook failed",
			zap.String("trigger", e.Name),
			zap.String("hook", e.Hook),
			zap.Error(err),
		)

		return fmt.Errorf("trigger %q hook %q: %w", e.Name, e.Hook, err)
	}

	return nil
}

// Sync runs the hook and blocks until it exits, used for the pre/post-soft
// triggers so the operator script can coordinate with the offline.
func (d *Dispatcher) Sync(e Event) error {
	return d.run(e)
}

// Async runs the hook in the background without blocking the caller,
// used for the page-threshold and replacement-threshold notices.
func (d *Dispatcher) Async(e Event) {
	d.group.Go(func() error {
		return d.run(e)
	})
}

// Close waits for any in-flight async hooks to finish.
func (d *Dispatcher) Close() error {
	return d.group.Wait()
}
