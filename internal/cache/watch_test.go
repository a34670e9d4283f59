package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubInvalidator struct {
	invalidated chan string
	fingerprint func(basename string) (uint64, bool)
}

func (s *stubInvalidator) Invalidate(basename string) {
	s.invalidated <- basename
}

func (s *stubInvalidator) Fingerprint(basename string) (uint64, bool) {
	if s.fingerprint == nil {
		return 0, false
	}
	return s.fingerprint(basename)
}

func waitForInvalidation(t *testing.T, ch chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		assert.Equal(t, want, got)
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for invalidation of %s", want)
	}
}

func TestWatcher_WriteTriggersInvalidation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping fsnotify integration test in short mode")
	}

	dir := t.TempDir()
	file := filepath.Join(dir, "hst_acs.imap")
	require.NoError(t, os.WriteFile(file, []byte("v1"), 0o644))

	inv := &stubInvalidator{invalidated: make(chan string, 8)}
	toBasename := func(path string) (string, bool) {
		if filepath.Dir(path) != dir {
			return "", false
		}
		return filepath.Base(path), true
	}

	w, err := NewWatcher(dir, toBasename, inv)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(file, []byte("v2"), 0o644))

	waitForInvalidation(t, inv.invalidated, "hst_acs.imap")
}

func TestWatcher_RemoveTriggersInvalidation(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping fsnotify integration test in short mode")
	}

	dir := t.TempDir()
	file := filepath.Join(dir, "hst_acs.imap")
	require.NoError(t, os.WriteFile(file, []byte("v1"), 0o644))

	inv := &stubInvalidator{invalidated: make(chan string, 8)}
	toBasename := func(path string) (string, bool) {
		if filepath.Dir(path) != dir {
			return "", false
		}
		return filepath.Base(path), true
	}

	w, err := NewWatcher(dir, toBasename, inv)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.Remove(file))

	waitForInvalidation(t, inv.invalidated, "hst_acs.imap")
}

func TestWatcher_UnmappedPathIsIgnored(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping fsnotify integration test in short mode")
	}

	dir := t.TempDir()
	inv := &stubInvalidator{invalidated: make(chan string, 8)}
	toBasename := func(path string) (string, bool) { return "", false }

	w, err := NewWatcher(dir, toBasename, inv)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stray.txt"), []byte("x"), 0o644))

	select {
	case got := <-inv.invalidated:
		t.Fatalf("unexpected invalidation for unmapped path: %s", got)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcher_StopEndsEventLoop(t *testing.T) {
	dir := t.TempDir()
	inv := &stubInvalidator{invalidated: make(chan string, 1)}
	toBasename := func(path string) (string, bool) { return "", false }

	w, err := NewWatcher(dir, toBasename, inv)
	require.NoError(t, err)
	w.Start()
	require.NoError(t, w.Stop())
}
