package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/agglo/pkg/config"
)

func TestNewWizardDefaults(t *testing.T) {
	w := NewWizard(config.ExportConfig{Dir: "out", Format: "PNG"})
	cfg := w.GetConfig()
	if cfg.Format != FormatPNG {
		t.Errorf("Format = %q, want %q", cfg.Format, FormatPNG)
	}
	if cfg.OutputDir != "out" {
		t.Errorf("OutputDir = %q, want out", cfg.OutputDir)
	}
	if len(cfg.Figures) != 2 || cfg.Figures[0] != KindMap || cfg.Figures[1] != KindLine {
		t.Errorf("Figures = %v, want [map line]", cfg.Figures)
	}

	w = NewWizard(config.ExportConfig{})
	if got := w.GetConfig().Format; got != FormatSVG {
		t.Errorf("empty format should default to svg, got %q", got)
	}
}

func TestWizardConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "export-wizard.json")
	want := &WizardConfig{Format: FormatJSON, Figures: []string{KindLine}, OutputDir: "figs"}

	if err := saveWizardConfigTo(want, path); err != nil {
		t.Fatalf("saveWizardConfigTo: %v", err)
	}
	got, err := loadWizardConfigFrom(path)
	if err != nil {
		t.Fatalf("loadWizardConfigFrom: %v", err)
	}
	if got.Format != want.Format || got.OutputDir != want.OutputDir {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if len(got.Figures) != 1 || got.Figures[0] != KindLine {
		t.Errorf("Figures = %v", got.Figures)
	}
}

func TestLoadWizardConfigMissing(t *testing.T) {
	cfg, err := loadWizardConfigFrom(filepath.Join(t.TempDir(), "none.json"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg != nil {
		t.Errorf("expected nil config, got %+v", cfg)
	}
}

func TestLoadWizardConfigCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadWizardConfigFrom(path); err == nil {
		t.Error("expected error for corrupt file")
	}
}

func TestWizardConfigPathHonorsXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	want := filepath.Join(dir, "agglo", "export-wizard.json")
	if got := WizardConfigPath(); got != want {
		t.Errorf("WizardConfigPath() = %q, want %q", got, want)
	}

	if err := SaveWizardConfig(&WizardConfig{Format: FormatSVG}); err != nil {
		t.Fatalf("SaveWizardConfig: %v", err)
	}
	cfg, err := LoadWizardConfig()
	if err != nil || cfg == nil || cfg.Format != FormatSVG {
		t.Errorf("LoadWizardConfig() = %+v, %v", cfg, err)
	}
}
