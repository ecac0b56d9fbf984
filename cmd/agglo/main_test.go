package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vanderheijden86/agglo/pkg/config"
	"github.com/vanderheijden86/agglo/pkg/model"
	"github.com/vanderheijden86/agglo/pkg/testutil"
	"github.com/vanderheijden86/agglo/pkg/watcher"
)

// setupDataDir writes the fixture dataset and metadata into a temp dir and
// isolates the XDG directories so no user config leaks into the run.
func setupDataDir(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, "state"))
	t.Setenv(config.DataDirEnvVar, "")

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	testutil.WriteDataset(t, dir, cfg.Data.Dataset, testutil.QuickRawRows())
	testutil.WriteMetadata(t, dir, cfg.Data.Metadata)
	return dir
}

func runArgs(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersionFlag(t *testing.T) {
	code, out, _ := runArgs(t, "--version")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	if !strings.HasPrefix(out, "agglo ") {
		t.Errorf("unexpected version output %q", out)
	}
}

func TestHelpFlag(t *testing.T) {
	code, out, _ := runArgs(t, "--help")
	if code != 0 {
		t.Fatalf("exit code = %d, want 0", code)
	}
	for _, want := range []string{"Usage: agglo", "agglo export", "-data-dir", "-no-watch"} {
		if !strings.Contains(out, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestUnknownFlag(t *testing.T) {
	code, _, _ := runArgs(t, "--bogus")
	if code != 2 {
		t.Errorf("exit code = %d, want 2", code)
	}
}

func TestResolveConfigOverrides(t *testing.T) {
	t.Setenv(config.DataDirEnvVar, "")
	missing := filepath.Join(t.TempDir(), "config.yaml")

	tests := []struct {
		name  string
		flags commonFlags
		check func(t *testing.T, cfg config.Config)
	}{
		{
			name:  "defaults",
			flags: commonFlags{configPath: missing},
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Boundaries.URL != config.DefaultBoundaryURL || cfg.Boundaries.Disabled {
					t.Errorf("unexpected boundaries %+v", cfg.Boundaries)
				}
			},
		},
		{
			name:  "none disables boundaries",
			flags: commonFlags{configPath: missing, boundaries: "none"},
			check: func(t *testing.T, cfg config.Config) {
				if !cfg.Boundaries.Disabled {
					t.Error("expected boundaries disabled")
				}
			},
		},
		{
			name:  "url replaces path",
			flags: commonFlags{configPath: missing, boundaries: "https://example.com/c.json"},
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Boundaries.URL != "https://example.com/c.json" || cfg.Boundaries.Path != "" {
					t.Errorf("unexpected boundaries %+v", cfg.Boundaries)
				}
			},
		},
		{
			name:  "local file",
			flags: commonFlags{configPath: missing, boundaries: "counties.json", dataDir: "/data", policy: "preserve"},
			check: func(t *testing.T, cfg config.Config) {
				if cfg.Boundaries.Path != "counties.json" {
					t.Errorf("Path = %q", cfg.Boundaries.Path)
				}
				if cfg.Data.Dir != "/data" {
					t.Errorf("Data.Dir = %q", cfg.Data.Dir)
				}
				if cfg.Selection.Policy != "preserve" {
					t.Errorf("Policy = %q", cfg.Selection.Policy)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := tt.flags.resolveConfig()
			if err != nil {
				t.Fatalf("resolveConfig: %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestIsURL(t *testing.T) {
	for s, want := range map[string]bool{
		"https://example.com/x.json": true,
		"http://localhost:8080":      true,
		"counties.json":              false,
		"/tmp/https.json":            false,
		"":                           false,
	} {
		if got := isURL(s); got != want {
			t.Errorf("isURL(%q) = %v, want %v", s, got, want)
		}
	}
}

func TestParsePositions(t *testing.T) {
	got, err := parsePositions("3, 1,,0")
	if err != nil {
		t.Fatalf("parsePositions: %v", err)
	}
	if !reflect.DeepEqual(got, []int{3, 1, 0}) {
		t.Errorf("got %v", got)
	}
	for _, bad := range []string{"a", "1,-2"} {
		if _, err := parsePositions(bad); err == nil {
			t.Errorf("parsePositions(%q) should fail", bad)
		}
	}
}

func TestParseFigures(t *testing.T) {
	all, err := parseFigures("all")
	if err != nil || len(all) != 2 {
		t.Errorf("parseFigures(all) = %v, %v", all, err)
	}
	line, err := parseFigures("LINE")
	if err != nil || !reflect.DeepEqual(line, []string{"line"}) {
		t.Errorf("parseFigures(LINE) = %v, %v", line, err)
	}
	if _, err := parseFigures("pie"); err == nil {
		t.Error("expected error for unknown figure")
	}
}

func TestLoadAppWithoutBoundaries(t *testing.T) {
	dir := setupDataDir(t)
	cfg := config.DefaultConfig()
	cfg.Data.Dir = dir
	cfg.Boundaries.Disabled = true

	a, err := loadApp(context.Background(), cfg, "clear", func(string) {})
	if err != nil {
		t.Fatalf("loadApp: %v", err)
	}
	if a.boundaries != nil {
		t.Error("expected no boundaries")
	}
	if len(a.metadata) == 0 {
		t.Error("expected metadata entries")
	}
	st := a.session.State()
	if st.Year != model.Period("2019") || st.GeoID != "01001" {
		t.Errorf("unexpected initial state year=%s geo=%s", st.Year, st.GeoID)
	}
}

func TestLoadAppMissingDataset(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Data.Dir = t.TempDir()
	cfg.Boundaries.Disabled = true
	if _, err := loadApp(context.Background(), cfg, "clear", func(string) {}); err == nil {
		t.Fatal("expected error for missing dataset")
	}
}

func TestExportBundle(t *testing.T) {
	dir := setupDataDir(t)
	out := filepath.Join(t.TempDir(), "figs")

	code, stdout, stderr := runArgs(t, "export",
		"--data-dir", dir, "--boundaries", "none",
		"--out", out, "--format", "json",
		"--industry", "21", "--select", "0,1",
		"--report", filepath.Join(out, "report"))
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	for _, name := range []string{"agglo-map.json", "agglo-line.json", "report.md"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
	if !strings.Contains(stdout, "Mean Value of Selection:") {
		t.Errorf("stdout missing mean line: %s", stdout)
	}
}

func TestExportSingleFile(t *testing.T) {
	dir := setupDataDir(t)
	out := filepath.Join(t.TempDir(), "line.svg")

	code, stdout, stderr := runArgs(t, "export",
		"--data-dir", dir, "--boundaries", "none",
		"--figure", "line", "--out", out, "--color", "industry")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("reading %s: %v", out, err)
	}
	if !bytes.Contains(data, []byte("<svg")) {
		t.Error("expected SVG output")
	}
	if strings.TrimSpace(stdout) != out {
		t.Errorf("stdout = %q, want %q", stdout, out)
	}
}

func TestExportRejectsUnknownValues(t *testing.T) {
	dir := setupDataDir(t)
	for _, args := range [][]string{
		{"--year", "1999"},
		{"--industry", "99"},
		{"--figure", "pie"},
		{"--policy", "sometimes"},
	} {
		full := append([]string{"export", "--data-dir", dir, "--boundaries", "none", "--out", t.TempDir()}, args...)
		if code, _, _ := runArgs(t, full...); code != 2 {
			t.Errorf("%v: exit code = %d, want 2", args, code)
		}
	}
}

func TestCacheRebuildAndVerify(t *testing.T) {
	dir := setupDataDir(t)
	cfg := config.DefaultConfig()

	code, stdout, stderr := runArgs(t, "cache", "--data-dir", dir)
	if code != 0 {
		t.Fatalf("cache exit code = %d, stderr: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Cached 144 rows") {
		t.Errorf("unexpected output %q", stdout)
	}
	if _, err := os.Stat(filepath.Join(dir, cfg.Data.Cache)); err != nil {
		t.Fatalf("cache not written: %v", err)
	}

	code, stdout, _ = runArgs(t, "cache", "--verify", "--data-dir", dir)
	if code != 0 {
		t.Fatalf("verify exit code = %d, output: %s", code, stdout)
	}
	if !strings.Contains(stdout, "Sources match") {
		t.Errorf("unexpected verify output %q", stdout)
	}

	// Change one value in the CSV without rebuilding.
	rows := testutil.QuickRawRows()
	rows[0].Value += 1
	testutil.WriteDataset(t, dir, cfg.Data.Dataset, rows)

	code, stdout, _ = runArgs(t, "cache", "--verify", "--data-dir", dir)
	if code != 1 {
		t.Fatalf("verify exit code = %d, want 1", code)
	}
	if !strings.Contains(stdout, "different values") {
		t.Errorf("unexpected verify output %q", stdout)
	}
}

func TestCacheVerifyWithoutCache(t *testing.T) {
	dir := setupDataDir(t)
	code, stdout, _ := runArgs(t, "cache", "--verify", "--data-dir", dir)
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stdout, "No cache found") {
		t.Errorf("unexpected output %q", stdout)
	}
}

func TestWatchCacheStopsWithContext(t *testing.T) {
	dir := setupDataDir(t)
	cfg := config.DefaultConfig()
	cfg.Data.Dir = dir

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var stdout, stderr bytes.Buffer
	if err := watchCache(ctx, cfg, loadOptions(cfg, func(string) {}), &stdout, &stderr); err != nil {
		t.Fatalf("watchCache: %v", err)
	}
	if !strings.Contains(stdout.String(), "Watching") {
		t.Errorf("unexpected output %q", stdout.String())
	}
}

// lockedBuffer is written by the watcher goroutine and read by the test.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWatcherOptionsFollowConfig(t *testing.T) {
	dir := setupDataDir(t)
	cfg := config.DefaultConfig()
	cfg.Data.Dir = dir
	cfg.Watch = config.WatchConfig{Poll: true, PollInterval: 75 * time.Millisecond}

	w, err := watcher.NewWatcher(cfg.DatasetPath(), watcherOptions(cfg.Watch)...)
	if err != nil {
		t.Fatal(err)
	}
	if got := w.PollInterval(); got != 75*time.Millisecond {
		t.Errorf("poll interval = %v, want 75ms", got)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if !w.IsPolling() {
		t.Error("watch.poll should force polling")
	}
}

func TestWatchCacheRebuildsOnChange(t *testing.T) {
	dir := setupDataDir(t)
	cfg := config.DefaultConfig()
	cfg.Data.Dir = dir
	cfg.Watch = config.WatchConfig{Poll: true, PollInterval: 30 * time.Millisecond, Debounce: 20 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	var stdout, stderr lockedBuffer
	done := make(chan error, 1)
	go func() {
		done <- watchCache(ctx, cfg, loadOptions(cfg, func(string) {}), &stdout, &stderr)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !strings.Contains(stdout.String(), "Watching") && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)

	rows := testutil.QuickRawRows()[:10]
	testutil.WriteDataset(t, dir, cfg.Data.Dataset, rows)
	for !strings.Contains(stdout.String(), "Cached 10 rows") && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("watchCache: %v", err)
	}
	if !strings.Contains(stdout.String(), "Cached 10 rows") {
		t.Errorf("expected a rebuild after the write, stdout=%q stderr=%q", stdout.String(), stderr.String())
	}
}

func writeHooks(t *testing.T, content string) {
	t.Helper()
	dir := config.ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "hooks.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write hooks: %v", err)
	}
}

func TestExportRunsPostExportHooks(t *testing.T) {
	dir := setupDataDir(t)
	writeHooks(t, `
hooks:
  post-export:
    - name: count
      command: echo $AGGLO_FIGURE_COUNT $AGGLO_EXPORT_FORMAT > "$AGGLO_EXPORT_DIR/count.txt"
`)
	out := t.TempDir()

	code, _, stderr := runArgs(t, "export", "--data-dir", dir, "--boundaries", "none", "--out", out, "--format", "json")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr: %s", code, stderr)
	}
	data, err := os.ReadFile(filepath.Join(out, "count.txt"))
	if err != nil {
		t.Fatalf("hook output missing: %v", err)
	}
	if strings.TrimSpace(string(data)) != "2 json" {
		t.Errorf("hook saw %q", data)
	}
	if !strings.Contains(stderr, "1 succeeded") {
		t.Errorf("expected hook summary on stderr, got %q", stderr)
	}

	// --no-hooks skips them.
	if err := os.Remove(filepath.Join(out, "count.txt")); err != nil {
		t.Fatal(err)
	}
	code, _, _ = runArgs(t, "export", "--data-dir", dir, "--boundaries", "none", "--out", out, "--format", "json", "--no-hooks")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if _, err := os.Stat(filepath.Join(out, "count.txt")); !os.IsNotExist(err) {
		t.Error("hook ran despite --no-hooks")
	}
}

func TestExportPreExportHookCancels(t *testing.T) {
	dir := setupDataDir(t)
	writeHooks(t, `
hooks:
  pre-export:
    - name: gate
      command: exit 1
`)
	out := filepath.Join(t.TempDir(), "figs")

	code, _, stderr := runArgs(t, "export", "--data-dir", dir, "--boundaries", "none", "--out", out, "--format", "json")
	if code != 1 {
		t.Fatalf("exit code = %d, want 1", code)
	}
	if !strings.Contains(stderr, "Export cancelled") {
		t.Errorf("unexpected stderr %q", stderr)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("figures written despite failing pre-export hook")
	}
}
