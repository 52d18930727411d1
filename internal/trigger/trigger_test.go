package trigger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckHookEmptyPathPasses(t *testing.T) {
	assert.NoError(t, CheckHook(""))
}

func TestCheckHookMissingPathFails(t *testing.T) {
	err := CheckHook(filepath.Join(t.TempDir(), "nonexistent"))
	assert.ErrorIs(t, err, ErrHookUnreachable)
}

func TestCheckHookDirectoryFails(t *testing.T) {
	err := CheckHook(t.TempDir())
	assert.ErrorIs(t, err, ErrHookUnreachable)
}

func TestCheckHookNonExecutableFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hook.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"), 0o644))

	err := CheckHook(path)
	assert.ErrorIs(t, err, ErrHookUnreachable)
}

func TestCheckHookExecutablePasses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hook.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755))

	assert.NoError(t, CheckHook(path))
}

func writeHook(t *testing.T, script string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "hook.sh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))

	return path
}

func TestDispatcherSyncRunsHookWithEnv(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	hook := writeHook(t, "#!/bin/sh\nenv | grep '^THRESHOLD=' > "+out+"\n")

	d := NewDispatcher(nil)
	err := d.Sync(Event{
		Hook:           hook,
		Name:           "page",
		Message:        "test",
		Summary:        "3 in 1m0s",
		TotalCount:     3,
		ThresholdCount: 3,
		AgeTime:        time.Minute,
		LastEvent:      time.Unix(1000, 0),
	})
	require.NoError(t, err)

	contents, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "THRESHOLD=3 in 1m0s\n", string(contents))
}

func TestDispatcherSyncOmitsLastEventWhenZero(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	hook := writeHook(t, "#!/bin/sh\nenv | grep '^LASTEVENT=' > "+out+" || true\n")

	d := NewDispatcher(nil)
	err := d.Sync(Event{Hook: hook, Name: "page"})
	require.NoError(t, err)

	contents, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Empty(t, contents)
}

func TestDispatcherSyncWithoutHookOnlyLogs(t *testing.T) {
	d := NewDispatcher(nil)
	err := d.Sync(Event{Name: "page", Message: "no hook configured"})
	assert.NoError(t, err)
}

func TestDispatcherAsyncDrainsOnClose(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out")
	hook := writeHook(t, "#!/bin/sh\nsleep 0.05 && echo done > "+out+"\n")

	d := NewDispatcher(nil)
	d.Async(Event{Hook: hook, Name: "page"})

	require.NoError(t, d.Close())

	contents, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "done\n", string(contents))
}

func TestDispatcherRunReportsHookFailure(t *testing.T) {
	hook := writeHook(t, "#!/bin/sh\nexit 1\n")

	d := NewDispatcher(nil)
	err := d.Sync(Event{Hook: hook, Name: "page"})
	assert.Error(t, err)
}
