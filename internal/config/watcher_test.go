package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcherReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Engine.MaxSteps = 5
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}

	cfg.Engine.MaxSteps = 9
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-reloaded:
		if got.Engine.MaxSteps != 9 {
			t.Errorf("MaxSteps = %d, want 9", got.Engine.MaxSteps)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload within 5s")
	}
}

func TestWatcherStopAfterFailedStart(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(filepath.Join(dir, "missing", "config.yaml"), nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := w.Start(context.Background()); err == nil {
		t.Fatal("Start succeeded for a nonexistent directory")
	}

	// Stop must not block waiting for a loop that never started.
	stopped := make(chan error, 1)
	go func() { stopped <- w.Stop() }()
	select {
	case err := <-stopped:
		if err != nil {
			t.Errorf("Stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return within 2s")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan struct{}, 1)
	w, err := NewWatcher(path, func(*Config) {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if err := DefaultConfig().Save(filepath.Join(dir, "other.yaml")); err != nil {
		t.Fatal(err)
	}

	select {
	case <-reloaded:
		t.Error("reload fired for an unrelated file")
	case <-time.After(time.Second):
	}
}
