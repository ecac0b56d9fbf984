package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vanderheijden86/agglo/pkg/config"
	"github.com/vanderheijden86/agglo/pkg/export"
	"github.com/vanderheijden86/agglo/pkg/hooks"
	"github.com/vanderheijden86/agglo/pkg/model"
	"github.com/vanderheijden86/agglo/pkg/view"
)

// selectionFlags pick the dashboard state a headless export renders.
type selectionFlags struct {
	year     string
	industry string
	metric   string
	geo      string
	color    string
	selected string
}

func addSelectionFlags(fs *flag.FlagSet) *selectionFlags {
	s := &selectionFlags{}
	fs.StringVar(&s.year, "year", "", "Year (default: latest)")
	fs.StringVar(&s.industry, "industry", "", "NAICS industry code")
	fs.StringVar(&s.metric, "metric", "", "LQ type code (300 = LQ, 200 = CLQ)")
	fs.StringVar(&s.geo, "geo", "", "County code for the line chart")
	fs.StringVar(&s.color, "color", "", "Color lines by: metric or industry")
	fs.StringVar(&s.selected, "select", "", "Comma-separated map positions to highlight")
	return s
}

// apply routes each flag through the session setters in the order the
// dashboard would.
func (s *selectionFlags) apply(session *view.Session) error {
	if s.year != "" {
		if _, err := session.SetYear(model.Period(s.year)); err != nil {
			return err
		}
	}
	if s.industry != "" {
		if _, err := session.SetIndustry(s.industry); err != nil {
			return err
		}
	}
	if s.metric != "" {
		if _, err := session.SetMetric(s.metric); err != nil {
			return err
		}
	}
	if s.color != "" {
		if _, err := session.SetColorDimension(model.ColorDimension(strings.ToLower(s.color))); err != nil {
			return err
		}
	}
	if s.geo != "" {
		if _, err := session.SetGeoID(s.geo); err != nil {
			return err
		}
	}
	if s.selected != "" {
		positions, err := parsePositions(s.selected)
		if err != nil {
			return err
		}
		session.SetSelectedIndices(positions)
	}
	return nil
}

func parsePositions(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid map position %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

func runExport(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("agglo export", flag.ContinueOnError)
	fs.SetOutput(stderr)
	common := addCommonFlags(fs)
	sel := addSelectionFlags(fs)
	out := fs.String("out", "", "Output file (one figure) or directory (default: config export dir)")
	format := fs.String("format", "", "Output format: svg, png, json (default: from --out extension or config)")
	figures := fs.String("figure", "all", "Figures to export: map, line, all")
	report := fs.String("report", "", "Also write a Markdown report of the selection to this file")
	wizard := fs.Bool("wizard", false, "Choose export settings interactively")
	noHooks := fs.Bool("no-hooks", false, "Skip pre- and post-export hooks")
	if err := fs.Parse(args); err != nil {
		return 2
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

	include, err := parseFigures(*figures)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	dir := cfg.Export.Dir

	if *wizard {
		if !export.IsTerminal() {
			fmt.Fprintln(stderr, "Error: --wizard needs an interactive terminal")
			return 2
		}
		answers, err := export.NewWizard(cfg.Export).Run()
		if err != nil {
			fmt.Fprintf(stderr, "Export cancelled: %v\n", err)
			return 1
		}
		*format = answers.Format
		include = answers.Figures
		if answers.OutputDir != "" {
			dir = answers.OutputDir
		}
	}

	app, err := loadApp(context.Background(), cfg, policy, stderrWarner(stderr))
	if err != nil {
		fmt.Fprintf(stderr, "Error loading dataset: %v\n", err)
		return 1
	}
	if err := sel.apply(app.session); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	st := app.session.State()

	if *report != "" {
		path, err := export.SaveReport(*report, export.ReportOptions{
			Title:     cfg.UI.Title,
			Selection: app.session.Describe(),
			Map:       st.MapFigure,
			Line:      st.LineFigure,
			Selected:  st.SelectedIndices,
			Mean:      st.MeanValue,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, path)
	}

	// A single figure with a file name goes straight to that file.
	single := *out != "" && filepath.Ext(*out) != "" && len(include) == 1
	if !single {
		if *out != "" {
			dir = *out
		}
		if *format == "" {
			*format = cfg.Export.Format
		}
	}

	hookCtx := hooks.ExportContext{ExportDir: dir, ExportFormat: *format, Timestamp: time.Now()}
	if single {
		hookCtx.ExportDir = filepath.Dir(*out)
	}
	executor, err := hooks.RunHooks(config.ConfigDir(), hookCtx, *noHooks)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading hooks: %v\n", err)
		return 1
	}
	if executor != nil {
		if err := executor.RunPreExport(); err != nil {
			fmt.Fprint(stderr, executor.Summary())
			fmt.Fprintf(stderr, "Export cancelled: %v\n", err)
			return 1
		}
	}

	var paths []string
	if single {
		// An explicit format wins over the extension; the configured
		// default does not.
		opts := export.FigureOptions{Path: *out, Format: *format}
		if include[0] == export.KindMap {
			opts.Map = st.MapFigure
			opts.Boundaries = app.boundaries
			opts.Selected = st.SelectedIndices
		} else {
			opts.Line = st.LineFigure
		}
		if err := export.SaveFigure(opts); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		format, path, _ := export.ResolveFormat(opts.Path, opts.Format)
		hookCtx.ExportFormat = format
		paths = []string{path}
	} else {
		paths, err = export.ExportFigures(export.BundleOptions{
			Dir:        dir,
			Format:     *format,
			Include:    include,
			Map:        st.MapFigure,
			Line:       st.LineFigure,
			Boundaries: app.boundaries,
			Selected:   st.SelectedIndices,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}
	for _, p := range paths {
		fmt.Fprintln(stdout, p)
	}

	code := 0
	if executor != nil {
		hookCtx.Files = paths
		executor.SetContext(hookCtx)
		if err := executor.RunPostExport(); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			code = 1
		}
		fmt.Fprint(stderr, executor.Summary())
	}
	if !single {
		fmt.Fprintf(stdout, "Mean Value of Selection: %.2f\n", st.MeanValue)
	}
	return code
}

func parseFigures(s string) ([]string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all", "both":
		return []string{export.KindMap, export.KindLine}, nil
	case export.KindMap:
		return []string{export.KindMap}, nil
	case export.KindLine:
		return []string{export.KindLine}, nil
	}
	return nil, fmt.Errorf("unknown figure %q (want map, line or all)", s)
}
