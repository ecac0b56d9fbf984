package view

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/vanderheijden86/agglo/pkg/debug"
	"github.com/vanderheijden86/agglo/pkg/lookup"
	"github.com/vanderheijden86/agglo/pkg/metrics"
	"github.com/vanderheijden86/agglo/pkg/model"
)

// triggers maps each field to the outputs its change invalidates.
var triggers = [fieldCount]Recompute{
	FieldYear:            RecomputeMap,
	FieldIndustry:        RecomputeMap | RecomputeLine,
	FieldMetric:          RecomputeMap | RecomputeLine,
	FieldColorDimension:  RecomputeLine,
	FieldGeoID:           RecomputeLine,
	FieldSelectedIndices: RecomputeMean,
}

// Triggers returns the outputs a change of field invalidates.
func Triggers(field Field) Recompute {
	if field < 0 || field >= fieldCount {
		return 0
	}
	return triggers[field]
}

// Reactor recomputes derived State fields after a selection change. It
// holds the immutable dataset and lookups.
type Reactor struct {
	rows   []model.Row
	tables *lookup.Tables
	policy SelectionPolicy
}

// NewReactor creates a reactor over rows. Rows must already be normalized
// and tables derived from them.
func NewReactor(rows []model.Row, tables *lookup.Tables, policy SelectionPolicy) *Reactor {
	if policy == "" {
		policy = PolicyClear
	}
	return &Reactor{rows: rows, tables: tables, policy: policy}
}

// Policy returns the selection policy.
func (r *Reactor) Policy() SelectionPolicy {
	return r.policy
}

// Rows returns the dataset rows.
func (r *Reactor) Rows() []model.Row {
	return r.rows
}

// Tables returns the lookup tables.
func (r *Reactor) Tables() *lookup.Tables {
	return r.tables
}

// HandleSelectionChange reacts to field having been set to value on s.
// The new value must already be applied; value is only logged. It returns
// the outputs that were rebuilt.
func (r *Reactor) HandleSelectionChange(s *State, field Field, value any) Recompute {
	defer metrics.Timer(metrics.ReactorHandle)()
	debug.LogChange(field.String(), value)

	rules := Triggers(field)
	done := Recompute(0)

	if rules.Has(RecomputeMap) {
		s.MapFigure, s.MapSubset = BuildMap(r.rows, s.IndustryCode, s.MetricCode, s.Year)
		done |= RecomputeMap
		if r.policy == PolicyClear && len(s.SelectedIndices) > 0 {
			s.SelectedIndices = nil
			s.MeanValue = 0
			done |= SelectionCleared | RecomputeMean
		}
	}

	if rules.Has(RecomputeLine) {
		s.LineFigure = BuildLine(r.rows, r.tables, s.LineParams())
		done |= RecomputeLine
	}

	if rules.Has(RecomputeMean) {
		s.MeanValue = r.mean(s)
		done |= RecomputeMean
	}

	debug.Log("%s -> %s", field, done)
	return done
}

// Refresh rebuilds every derived output from the current selection.
func (r *Reactor) Refresh(s *State) {
	s.MapFigure, s.MapSubset = BuildMap(r.rows, s.IndustryCode, s.MetricCode, s.Year)
	s.LineFigure = BuildLine(r.rows, r.tables, s.LineParams())
	s.MeanValue = r.mean(s)
}

// mean averages the values at the highlighted positions of a freshly
// filtered map subset. Positions outside the subset and missing values
// are ignored; nothing left to average means zero.
func (r *Reactor) mean(s *State) float64 {
	if len(s.SelectedIndices) == 0 {
		return 0
	}
	subset := MapSubset(r.rows, s.IndustryCode, s.MetricCode, s.Year)
	vals := slices.DeleteFunc(subset.Values(s.SelectedIndices), math.IsNaN)
	if len(vals) == 0 {
		return 0
	}
	return stat.Mean(vals, nil)
}
