package hooks

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeHooksFile(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatalf("write hooks.yaml: %v", err)
	}
}

func TestRunHooksNoHooksFlagAndMissingConfig(t *testing.T) {
	tmp := t.TempDir()
	exec, err := RunHooks(tmp, ExportContext{}, true)
	if err != nil || exec != nil {
		t.Fatalf("noHooks should short-circuit, got exec=%v err=%v", exec, err)
	}

	exec, err = RunHooks(tmp, ExportContext{}, false)
	if err != nil || exec != nil {
		t.Fatalf("missing config should return nil executor without error, got exec=%v err=%v", exec, err)
	}
}

func TestRunHooksLoadsExecutor(t *testing.T) {
	tmp := t.TempDir()
	writeHooksFile(t, tmp, `
hooks:
  pre-export:
    - name: hello
      command: echo hi
`)

	ctx := ExportContext{ExportDir: "figures", ExportFormat: "svg", Timestamp: time.Now()}
	exec, err := RunHooks(tmp, ctx, false)
	if err != nil {
		t.Fatalf("RunHooks returned error: %v", err)
	}
	if exec == nil {
		t.Fatal("expected executor when hooks present")
	}
	if exec.config == nil || len(exec.config.Hooks.PreExport) != 1 {
		t.Fatal("executor config not initialized correctly")
	}
	if res := exec.Results(); len(res) != 0 {
		t.Fatalf("results should be empty before runs: %v", res)
	}
}

func TestLoadDefaultUsesConfigDir(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)
	writeHooksFile(t, filepath.Join(xdg, "agglo"), "hooks:\n  post-export:\n    - command: echo ok\n")

	loader, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault error: %v", err)
	}
	if !loader.HasHooks() {
		t.Fatal("expected hooks loaded from the config directory")
	}
}

func TestTruncateBehaviour(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate should return original when shorter, got %q", got)
	}
	if got := truncate("abcdefghijklmnopqrstuvwxyz", 8); got != "abcde..." {
		t.Fatalf("unexpected truncation output: %q", got)
	}
	if got := truncate("a\nb", 10); got != "a b" {
		t.Fatalf("newlines should be flattened, got %q", got)
	}
}
