package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/pprof"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/agglo/pkg/config"
	"github.com/vanderheijden86/agglo/pkg/debug"
	"github.com/vanderheijden86/agglo/pkg/metrics"
	"github.com/vanderheijden86/agglo/pkg/model"
	"github.com/vanderheijden86/agglo/pkg/ui"
	"github.com/vanderheijden86/agglo/pkg/version"
	"github.com/vanderheijden86/agglo/pkg/view"
	"github.com/vanderheijden86/agglo/pkg/watcher"
)

const usage = `Usage: agglo [options]
       agglo export [options]
       agglo cache [--watch] [--verify] [options]

Explore county-level location quotients (LQ) and proximity-adjusted
location quotients (PA-LQ/CLQ) by industry, county, and year.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches to a subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) > 0 {
		switch args[0] {
		case "export":
			return runExport(args[1:], stdout, stderr)
		case "cache":
			return runCache(args[1:], stdout, stderr)
		}
	}
	return runDashboard(args, stdout, stderr)
}

// commonFlags are accepted by every subcommand.
type commonFlags struct {
	dataDir    string
	configPath string
	boundaries string
	policy     string
	cpuProfile string
	metrics    bool
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	c := &commonFlags{}
	fs.StringVar(&c.dataDir, "data-dir", "", "Directory holding the dataset CSV, metadata and cache")
	fs.StringVar(&c.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/agglo/config.yaml)")
	fs.StringVar(&c.boundaries, "boundaries", "", "County boundary GeoJSON file or URL ('none' disables)")
	fs.StringVar(&c.policy, "policy", "", "Selection policy when the map changes: clear or preserve")
	fs.StringVar(&c.cpuProfile, "cpu-profile", "", "Write CPU profile to file")
	fs.BoolVar(&c.metrics, "metrics", false, "Print timing and cache metrics on exit")
	return c
}

// resolveConfig loads the config file and applies flag overrides.
func (c *commonFlags) resolveConfig() (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if c.configPath != "" {
		cfg, err = config.LoadFrom(c.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, err
	}

	if c.dataDir != "" {
		cfg.Data.Dir = c.dataDir
	}
	switch {
	case c.boundaries == "none":
		cfg.Boundaries.Disabled = true
	case isURL(c.boundaries):
		cfg.Boundaries.URL = c.boundaries
		cfg.Boundaries.Path = ""
	case c.boundaries != "":
		cfg.Boundaries.Path = c.boundaries
	}
	if c.policy != "" {
		cfg.Selection.Policy = c.policy
	}
	return cfg, nil
}

// startProfile starts CPU profiling when requested and returns the stop
// function.
func (c *commonFlags) startProfile() (func(), error) {
	if c.cpuProfile == "" {
		return func() {}, nil
	}
	f, err := os.Create(c.cpuProfile)
	if err != nil {
		return nil, fmt.Errorf("could not create CPU profile: %w", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("could not start CPU profile: %w", err)
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}

func (c *commonFlags) reportMetrics(w io.Writer) {
	if !c.metrics {
		return
	}
	fmt.Fprintln(w, "timings:")
	for _, s := range metrics.AllTimingStats() {
		fmt.Fprintf(w, "  %-16s n=%-5d avg=%.2fms max=%.2fms total=%.2fms\n", s.Name, s.Count, s.AvgMs, s.MaxMs, s.TotalMs)
	}
	fmt.Fprintln(w, "caches:")
	for _, cm := range metrics.AllCacheMetrics() {
		fmt.Fprintf(w, "  %-16s hits=%d misses=%d\n", cm.Name(), cm.Hits(), cm.Misses())
	}
}

func runDashboard(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("agglo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := addCommonFlags(fs)
	help := fs.Bool("help", false, "Show help")
	versionFlag := fs.Bool("version", false, "Show version")
	noWatch := fs.Bool("no-watch", false, "Do not reload when the dataset changes")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *help {
		fmt.Fprint(stdout, usage)
		fs.SetOutput(stdout)
		fs.PrintDefaults()
		return 0
	}
	if *versionFlag {
		fmt.Fprintf(stdout, "agglo %s\n", version.Version)
		return 0
	}

	stopProfile, err := common.startProfile()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer stopProfile()
	defer common.reportMetrics(stderr)

	cfg, err := common.resolveConfig()
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	policy, err := view.ParsePolicy(cfg.Selection.Policy)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	app, err := loadApp(context.Background(), cfg, policy, stderrWarner(stderr))
	if err != nil {
		fmt.Fprintf(stderr, "Error loading dataset: %v\n", err)
		return 1
	}

	opts := ui.Options{
		Session:    app.session,
		Boundaries: app.boundaries,
		Metadata:   app.metadata,
		Config:     cfg,
		Reload: func() (*view.Session, []model.MetadataEntry, error) {
			return reloadSession(cfg, policy)
		},
	}
	if !*noWatch {
		w, err := watcher.NewWatcher(cfg.DatasetPath(), watcherOptions(cfg.Watch)...)
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			debug.Log("dataset watcher unavailable: %v", err)
		} else {
			defer w.Stop()
			opts.Watcher = w
		}
	}

	if err := runTUIProgram(ui.NewModel(opts)); err != nil {
		fmt.Fprintf(stderr, "Error running dashboard: %v\n", err)
		return 1
	}
	return 0
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set AGGLO_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("AGGLO_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}

func stderrWarner(w io.Writer) func(string) {
	return func(msg string) {
		fmt.Fprintf(w, "Warning: %s\n", msg)
	}
}
