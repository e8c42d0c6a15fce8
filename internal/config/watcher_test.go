package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, cond func() bool, timeout time.Duration, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v: %s", timeout, msg)
}

func TestConfigWatcherReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("led:\n  master_brightness: 10\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w := NewConfigWatcher(path, discardLogger(), WithDebounce[*Config](20*time.Millisecond))

	var brightness atomic.Int32
	w.OnReload(func(cfg *Config) {
		brightness.Store(int32(cfg.LED.MasterBrightness))
	})

	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("led:\n  master_brightness: 77\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return brightness.Load() == 77 }, 2*time.Second, "reload handler not called")
}

func TestWatcherReportsLoadErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	loadErr := errors.New("boom")
	var failures atomic.Int32
	var calls atomic.Int32

	w := NewWatcher(path,
		func(string) (int, error) { return 0, loadErr },
		discardLogger(),
		WithDebounce[int](10*time.Millisecond),
		WithErrorHandler[int](func(err error) {
			if errors.Is(err, loadErr) {
				failures.Add(1)
			}
		}))
	w.OnReload(func(int) { calls.Add(1) })

	if err := w.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("y"), 0o644); err != nil {
		t.Fatal(err)
	}

	waitFor(t, func() bool { return failures.Load() > 0 }, 2*time.Second, "error handler not called")
	if calls.Load() != 0 {
		t.Error("handlers must not run when loading fails")
	}
}

func TestWatcherUnsubscribe(t *testing.T) {
	w := NewWatcher("unused", func(string) (int, error) { return 1, nil }, discardLogger())

	var calls atomic.Int32
	unsubscribe := w.OnReload(func(int) { calls.Add(1) })
	unsubscribe()

	w.loadAndNotify()
	if calls.Load() != 0 {
		t.Error("unsubscribed handler was called")
	}
}
