package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vanderheijden86/agglo/pkg/config"
)

// WizardConfig holds the answers collected by the export wizard.
type WizardConfig struct {
	Format    string   `json:"format"`
	Figures   []string `json:"figures"`
	OutputDir string   `json:"output_dir"`
}

// Wizard collects export settings interactively.
type Wizard struct {
	config *WizardConfig
}

// NewWizard creates a wizard pre-filled with defaults, typically taken
// from the export section of the user's configuration.
func NewWizard(defaults config.ExportConfig) *Wizard {
	format := strings.ToLower(defaults.Format)
	if format == "" {
		format = FormatSVG
	}
	return &Wizard{
		config: &WizardConfig{
			Format:    format,
			Figures:   []string{KindMap, KindLine},
			OutputDir: defaults.Dir,
		},
	}
}

// IsTerminal reports whether stdin is connected to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !IsTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// Run executes the wizard. Previously saved answers are offered first.
func (w *Wizard) Run() (*WizardConfig, error) {
	w.printBanner()

	if saved, err := LoadWizardConfig(); err == nil && saved != nil && saved.Format != "" {
		useSaved, err := w.offerSavedConfig(saved)
		if err != nil {
			return nil, err
		}
		if useSaved {
			w.config = saved
			return w.config, nil
		}
	}

	if err := w.collect(); err != nil {
		return nil, err
	}
	if err := SaveWizardConfig(w.config); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not save export settings: %v\n", err)
	}
	return w.config, nil
}

// GetConfig returns the collected wizard configuration.
func (w *Wizard) GetConfig() *WizardConfig {
	return w.config
}

func (w *Wizard) printBanner() {
	fmt.Println("")
	fmt.Println("Figure export")
	fmt.Println("────────────────────────────")
	fmt.Println("Writes the current map and line chart. Press Ctrl+C to cancel.")
	fmt.Println("")
}

func (w *Wizard) offerSavedConfig(saved *WizardConfig) (bool, error) {
	fmt.Println("Found previous export settings:")
	fmt.Printf("  Format:  %s\n", saved.Format)
	fmt.Printf("  Figures: %s\n", strings.Join(saved.Figures, ", "))
	fmt.Printf("  Output:  %s\n", saved.OutputDir)
	fmt.Println("")

	useSaved := true
	form := newForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Export with these settings?").
				Value(&useSaved).
				Affirmative("Yes").
				Negative("No, reconfigure"),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return useSaved, nil
}

func (w *Wizard) collect() error {
	defaultDir := w.config.OutputDir
	if defaultDir == "" {
		defaultDir = "figures"
	}
	outputDir := defaultDir

	form := newForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Format").
				Options(
					huh.NewOption("SVG (vector, hover text)", FormatSVG),
					huh.NewOption("PNG (raster)", FormatPNG),
					huh.NewOption("JSON (figure data)", FormatJSON),
				).
				Value(&w.config.Format),
			huh.NewMultiSelect[string]().
				Title("Figures").
				Options(
					huh.NewOption("Map", KindMap),
					huh.NewOption("Line chart", KindLine),
				).
				Value(&w.config.Figures).
				Validate(func(v []string) error {
					if len(v) == 0 {
						return fmt.Errorf("pick at least one figure")
					}
					return nil
				}),
			huh.NewInput().
				Title("Output directory").
				Value(&outputDir).
				Placeholder(defaultDir),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	if strings.TrimSpace(outputDir) == "" {
		outputDir = defaultDir
	}
	w.config.OutputDir = outputDir
	return nil
}

// WizardConfigPath returns the path to the saved wizard answers.
func WizardConfigPath() string {
	dir := config.ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "export-wizard.json")
}

// LoadWizardConfig loads previously saved answers. It returns nil, nil
// when none exist.
func LoadWizardConfig() (*WizardConfig, error) {
	path := WizardConfigPath()
	if path == "" {
		return nil, fmt.Errorf("could not determine config path")
	}
	return loadWizardConfigFrom(path)
}

func loadWizardConfigFrom(path string) (*WizardConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var cfg WizardConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveWizardConfig saves answers for future runs.
func SaveWizardConfig(cfg *WizardConfig) error {
	path := WizardConfigPath()
	if path == "" {
		return fmt.Errorf("could not determine config path")
	}
	return saveWizardConfigTo(cfg, path)
}

func saveWizardConfigTo(cfg *WizardConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
