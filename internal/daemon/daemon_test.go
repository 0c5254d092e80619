package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bindery/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	d, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Running() {
		t.Fatal("daemon should be running")
	}
	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start must fail")
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, "bindery.pid")); err != nil {
		t.Fatalf("pid file missing while running: %v", err)
	}

	addr := d.APIAddr()
	if addr == "" {
		t.Fatal("expected bound API address")
	}
	resp, err := http.Get("http://" + addr + "/api/v1/health")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	defer resp.Body.Close()
	var health struct {
		Running bool `json:"running"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if !health.Running {
		t.Fatal("health endpoint should report running")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("daemon should have stopped")
	}
	if _, err := os.Stat(filepath.Join(cfg.Paths.LogDir, "bindery.pid")); !os.IsNotExist(err) {
		t.Fatalf("pid file should be removed on stop, stat err = %v", err)
	}
	// Stop is idempotent.
	d.Stop()
}

func TestDaemonSingleInstanceLock(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	first, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = first.Close() })

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	second, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })

	if err := second.Start(ctx); err == nil {
		t.Fatal("second instance must not acquire the lock")
	}

	first.Stop()
	// Lock released; a new instance may start now.
	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := second.Start(ctx); err == nil {
			second.Stop()
			break
		} else if time.Now().After(deadline) {
			t.Fatalf("lock not released after Stop: %v", err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
