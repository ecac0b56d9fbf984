package export

import (
	"fmt"
	"path/filepath"

	"github.com/vanderheijden86/agglo/pkg/figure"
	"github.com/vanderheijden86/agglo/pkg/geo"
)

// File names, without extension, used by ExportFigures.
const (
	MapFileName  = "agglo-map"
	LineFileName = "agglo-line"
)

// Figure kinds accepted by BundleOptions.Include.
const (
	KindMap  = "map"
	KindLine = "line"
)

// BundleOptions describes a set of figures written to one directory.
type BundleOptions struct {
	Dir    string
	Format string
	// Include lists the figure kinds to write; empty means all.
	Include []string

	Map        *figure.MapFigure
	Line       *figure.LineFigure
	Boundaries *geo.Collection
	Selected   []int
}

func (o BundleOptions) includes(kind string) bool {
	if len(o.Include) == 0 {
		return true
	}
	for _, k := range o.Include {
		if k == kind {
			return true
		}
	}
	return false
}

// ExportFigures writes the map and line figures into opts.Dir and returns
// the written paths. A nil figure is skipped.
func ExportFigures(opts BundleOptions) ([]string, error) {
	format, _, err := ResolveFormat("", opts.Format)
	if err != nil {
		return nil, err
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	var written []string
	if opts.Map != nil && opts.includes(KindMap) {
		path := filepath.Join(dir, MapFileName+"."+format)
		if err := SaveFigure(FigureOptions{
			Path:       path,
			Format:     format,
			Map:        opts.Map,
			Boundaries: opts.Boundaries,
			Selected:   opts.Selected,
		}); err != nil {
			return written, fmt.Errorf("exporting map: %w", err)
		}
		written = append(written, path)
	}
	if opts.Line != nil && opts.includes(KindLine) {
		path := filepath.Join(dir, LineFileName+"."+format)
		if err := SaveFigure(FigureOptions{Path: path, Format: format, Line: opts.Line}); err != nil {
			return written, fmt.Errorf("exporting line chart: %w", err)
		}
		written = append(written, path)
	}
	if len(written) == 0 {
		return nil, ErrNoFigure
	}
	return written, nil
}
