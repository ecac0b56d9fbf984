package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// writeDataset creates a small CSV in a temp dir and returns its path.
func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte("IBRC_Geo_ID\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// eventually polls cond until it holds or the timeout passes.
func eventually(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

func startWatcher(t *testing.T, path string, opts ...WatcherOption) *Watcher {
	t.Helper()
	w, err := NewWatcher(path, opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(w.Stop)
	return w
}

func TestDebouncer_CoalescesRapidTriggers(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var calls atomic.Int32
	for i := 0; i < 10; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)

	if n := calls.Load(); n != 1 {
		t.Errorf("expected 1 callback invocation, got %d", n)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)

	var called atomic.Bool
	d.Trigger(func() { called.Store(true) })
	d.Cancel()
	time.Sleep(100 * time.Millisecond)

	if called.Load() {
		t.Error("callback should not run after cancel")
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	if d := NewDebouncer(0); d.Duration() != DefaultDebounceDuration {
		t.Errorf("expected default duration %v, got %v", DefaultDebounceDuration, d.Duration())
	}
}

func TestWatcher_ReportsWrites(t *testing.T) {
	for _, poll := range []bool{false, true} {
		name := "fsnotify"
		if poll {
			name = "polling"
		}
		t.Run(name, func(t *testing.T) {
			path := writeDataset(t)
			var changes atomic.Int32
			w := startWatcher(t, path,
				WithDebounceDuration(30*time.Millisecond),
				WithPollInterval(40*time.Millisecond),
				WithForcePoll(poll),
				WithOnChange(func() { changes.Add(1) }),
			)
			if poll && !w.IsPolling() {
				t.Fatal("expected polling mode")
			}
			time.Sleep(60 * time.Millisecond)

			if err := os.WriteFile(path, []byte("IBRC_Geo_ID\n01001\n"), 0o644); err != nil {
				t.Fatal(err)
			}
			if !eventually(t, time.Second, func() bool { return changes.Load() > 0 }) {
				t.Error("expected the write to be reported")
			}
		})
	}
}

func TestWatcher_ChangedChannel(t *testing.T) {
	path := writeDataset(t)
	w := startWatcher(t, path,
		WithDebounceDuration(30*time.Millisecond),
		WithPollInterval(40*time.Millisecond),
		WithForcePoll(true),
	)

	go func() {
		time.Sleep(60 * time.Millisecond)
		os.WriteFile(path, []byte("IBRC_Geo_ID\n18003\n"), 0o644)
	}()

	select {
	case <-w.Changed():
	case <-time.After(time.Second):
		t.Error("timeout waiting for change notification")
	}
}

func TestWatcher_RemoteFilesystemPolls(t *testing.T) {
	orig := detectFilesystemTypeFunc
	detectFilesystemTypeFunc = func(string) FilesystemType { return FSTypeNFS }
	t.Cleanup(func() { detectFilesystemTypeFunc = orig })

	w := startWatcher(t, writeDataset(t), WithPollInterval(25*time.Millisecond))

	if !w.IsPolling() {
		t.Fatal("expected polling on a network mount")
	}
	if got := w.FilesystemType(); got != FSTypeNFS {
		t.Fatalf("expected filesystem type %v, got %v", FSTypeNFS, got)
	}
}

func TestWatcher_FileRemoved(t *testing.T) {
	path := writeDataset(t)

	var (
		mu   sync.Mutex
		errs []error
	)
	startWatcher(t, path,
		WithDebounceDuration(30*time.Millisecond),
		WithPollInterval(40*time.Millisecond),
		WithForcePoll(true),
		WithOnError(func(err error) {
			mu.Lock()
			errs = append(errs, err)
			mu.Unlock()
		}),
	)
	time.Sleep(60 * time.Millisecond)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	ok := eventually(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) > 0
	})
	if !ok {
		t.Fatal("expected a removal error")
	}

	// Later ticks must not report the removal again.
	time.Sleep(150 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(errs) != 1 || !errors.Is(errs[0], ErrFileRemoved) {
		t.Errorf("expected exactly one ErrFileRemoved, got %v", errs)
	}
}

func TestWatcher_MissingFileIsReportedOnCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "later.csv")

	var changes atomic.Int32
	var errCount atomic.Int32
	startWatcher(t, path,
		WithDebounceDuration(30*time.Millisecond),
		WithPollInterval(40*time.Millisecond),
		WithForcePoll(true),
		WithOnChange(func() { changes.Add(1) }),
		WithOnError(func(error) { errCount.Add(1) }),
	)
	time.Sleep(100 * time.Millisecond)
	if errCount.Load() != 0 {
		t.Fatal("a file that never existed should not be reported as removed")
	}

	if err := os.WriteFile(path, []byte("IBRC_Geo_ID\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !eventually(t, time.Second, func() bool { return changes.Load() > 0 }) {
		t.Error("expected the created file to be reported")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	w, err := NewWatcher(writeDataset(t))
	if err != nil {
		t.Fatal(err)
	}
	if w.IsStarted() {
		t.Error("watcher should not be started initially")
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if !w.IsStarted() {
		t.Error("watcher should be started after Start()")
	}
	if err := w.Start(); err != ErrAlreadyStarted {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}

	w.Stop()
	if w.IsStarted() {
		t.Error("watcher should not be started after Stop()")
	}
	w.Stop()

	// A stopped watcher can be started again.
	if err := w.Start(); err != nil {
		t.Fatalf("restart: %v", err)
	}
	w.Stop()
}

func TestWatcher_Accessors(t *testing.T) {
	path := writeDataset(t)

	w, err := NewWatcher(path, WithPollInterval(500*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	abs, _ := filepath.Abs(path)
	if w.Path() != abs {
		t.Errorf("expected path %s, got %s", abs, w.Path())
	}
	if got := w.PollInterval(); got != 500*time.Millisecond {
		t.Errorf("expected poll interval 500ms, got %v", got)
	}

	w, _ = NewWatcher(path, WithPollInterval(0))
	if got := w.PollInterval(); got != DefaultPollInterval {
		t.Errorf("zero interval should keep the default, got %v", got)
	}
}

func TestFileStateChangedFrom(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	base := fileState{mtime: t0, size: 10}

	tests := []struct {
		name string
		cur  fileState
		want bool
	}{
		{"same", base, false},
		{"newer", fileState{mtime: t0.Add(time.Second), size: 10}, true},
		{"resized", fileState{mtime: t0, size: 11}, true},
		{"older", fileState{mtime: t0.Add(-time.Second), size: 10}, false},
		{"missing", fileState{}, true},
	}
	for _, tc := range tests {
		if got := tc.cur.changedFrom(base); got != tc.want {
			t.Errorf("%s: changedFrom = %v, want %v", tc.name, got, tc.want)
		}
	}
	if (fileState{}).exists() || !base.exists() {
		t.Error("exists should follow the mtime")
	}
}

func TestFilesystemType_String(t *testing.T) {
	tests := []struct {
		fsType FilesystemType
		want   string
	}{
		{FSTypeUnknown, "unknown"},
		{FSTypeLocal, "local"},
		{FSTypeNFS, "nfs"},
		{FSTypeSMB, "smb"},
		{FSTypeSSHFS, "sshfs"},
		{FSTypeFUSE, "fuse"},
		{FilesystemType(99), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.fsType.String(); got != tc.want {
			t.Errorf("FilesystemType(%d).String() = %q, want %q", tc.fsType, got, tc.want)
		}
	}
}

func TestDetectFilesystemType(t *testing.T) {
	if got := DetectFilesystemType(""); got != FSTypeUnknown {
		t.Errorf("empty path: got %v, want unknown", got)
	}
	dir := t.TempDir()
	if got := DetectFilesystemType(dir); got == FSTypeUnknown {
		t.Errorf("expected a classification for the temp dir, got %v", got)
	}
	// Missing files are classified by their parent.
	if got, want := DetectFilesystemType(filepath.Join(dir, "missing", "x.csv")), DetectFilesystemType(dir); got != want {
		t.Errorf("missing path classified %v, parent %v", got, want)
	}
}

func TestWatcher_AtomicReplace(t *testing.T) {
	path := writeDataset(t)

	var changes atomic.Int32
	startWatcher(t, path,
		WithDebounceDuration(50*time.Millisecond),
		WithPollInterval(50*time.Millisecond),
		WithOnChange(func() { changes.Add(1) }),
	)
	time.Sleep(100 * time.Millisecond)

	// Exporters write a sibling file and rename it over the target.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte("IBRC_Geo_ID\n1001 \n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(tmp, path); err != nil {
		t.Fatal(err)
	}
	if !eventually(t, time.Second, func() bool { return changes.Load() > 0 }) {
		t.Error("expected the replaced file to be reported")
	}
}
