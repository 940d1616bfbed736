package confloader

import (
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yndnr/shadowhome-go/internal/telemetry/logger"
)

func newTestWatcher(t *testing.T, opts ...WatcherOption) *Watcher {
	t.Helper()
	l, _ := logger.New(logger.Config{Level: "error", Output: io.Discard})
	w, err := NewWatcher(append([]WatcherOption{WithWatcherLogger(l)}, opts...)...)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() { w.Stop() })
	return w
}

func TestWatcher_Watch(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "shadowhome.yaml")
	os.WriteFile(configFile, []byte("log:\n  level: info\n"), 0644)

	w := newTestWatcher(t)
	if err := w.Watch(configFile); err != nil {
		t.Errorf("Watch() error = %v", err)
	}
	if err := w.Watch("/nonexistent/path/shadowhome.yaml"); err == nil {
		t.Error("Watch() expected error for nonexistent directory")
	}
}

func TestWatcher_StopTwice(t *testing.T) {
	w := newTestWatcher(t)
	w.StartAsync()
	time.Sleep(20 * time.Millisecond)
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestWatcher_FileChange(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "shadowhome.yaml")
	os.WriteFile(configFile, []byte("log:\n  level: info\n"), 0644)

	w := newTestWatcher(t, WithDebounce(50*time.Millisecond))
	if err := w.Watch(configFile); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	changed := make(chan string, 10)
	w.OnChange(func(path string) { changed <- path })
	w.StartAsync()
	time.Sleep(100 * time.Millisecond)

	// Several writes in a burst produce one callback.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(configFile, []byte("log:\n  level: debug\n"), 0644); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
	}

	select {
	case path := <-changed:
		abs, _ := filepath.Abs(configFile)
		if path != abs {
			t.Errorf("callback path = %q, want %q", path, abs)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnChange() callback was not triggered within timeout")
	}

	select {
	case path := <-changed:
		t.Errorf("unexpected second callback for %q", path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "shadowhome.yaml")
	os.WriteFile(configFile, []byte("a: 1"), 0644)

	w := newTestWatcher(t, WithDebounce(0))
	if err := w.Watch(configFile); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	w.OnChange(func(string) { calls.Add(1) })
	w.StartAsync()
	time.Sleep(100 * time.Millisecond)

	os.WriteFile(filepath.Join(dir, "journal.lock"), []byte("x"), 0644)
	time.Sleep(200 * time.Millisecond)

	if n := calls.Load(); n != 0 {
		t.Errorf("callbacks = %d, want 0 for unrelated file", n)
	}
}

func TestWatcher_NotifyCallbacks(t *testing.T) {
	w := newTestWatcher(t)

	var count atomic.Int32
	w.OnChange(func(string) { count.Add(1) })
	w.OnChange(func(string) { count.Add(1) })

	done := make(chan struct{})
	for i := 0; i < 50; i++ {
		go func() {
			w.notifyCallbacks("/etc/shadowhome.yaml")
			done <- struct{}{}
		}()
	}
	for i := 0; i < 50; i++ {
		<-done
	}
	if n := count.Load(); n != 100 {
		t.Errorf("count = %d, want 100", n)
	}
}
