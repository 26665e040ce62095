package lifecycle_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/cerina/foundry/pkg/lifecycle"
)

func TestReadiness(t *testing.T) {
	lc := lifecycle.New()

	if lc.Ready() {
		t.Error("coordinator ready before WaitForStartup")
	}

	lc.WaitForStartup()

	if !lc.Ready() {
		t.Error("coordinator not ready after WaitForStartup")
	}
}

func TestStartupHooksAllRun(t *testing.T) {
	lc := lifecycle.New()

	var ran atomic.Int32
	for range 3 {
		lc.OnStartup(func() { ran.Add(1) })
	}

	lc.WaitForStartup()

	if got := ran.Load(); got != 3 {
		t.Errorf("startup hooks ran: got %d, want 3", got)
	}
}

func TestShutdownRunsHooksAndCancelsContext(t *testing.T) {
	lc := lifecycle.New()

	var cleaned atomic.Bool
	lc.OnShutdown(func() {
		<-lc.Context().Done()
		cleaned.Store(true)
	})

	lc.WaitForStartup()

	if err := lc.Shutdown(5 * time.Second); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if !cleaned.Load() {
		t.Error("shutdown hook did not run")
	}

	select {
	case <-lc.Context().Done():
	default:
		t.Error("context not cancelled after shutdown")
	}
}

func TestShutdownTimesOutOnSlowHook(t *testing.T) {
	lc := lifecycle.New()

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		time.Sleep(500 * time.Millisecond)
	})

	lc.WaitForStartup()

	if err := lc.Shutdown(50 * time.Millisecond); err == nil {
		t.Error("expected timeout error")
	}
}
