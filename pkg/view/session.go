package view

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/agglo/pkg/lookup"
	"github.com/vanderheijden86/agglo/pkg/model"
)

var (
	// ErrUnknownValue is returned by setters for values absent from the data.
	ErrUnknownValue = errors.New("value not present in dataset")
	// ErrEmptyDataset is returned when a session is started without rows.
	ErrEmptyDataset = errors.New("dataset has no rows")
)

// Session owns one dashboard's State and applies validated changes to it.
// It is not safe for concurrent use.
type Session struct {
	state   State
	reactor *Reactor
}

// NewSession starts a session with the initial selection: latest year,
// alphabetically-first industry and county, the CLQ metric (or the
// alphabetically-first metric when CLQ is absent), colored by metric.
func NewSession(reactor *Reactor) (*Session, error) {
	st, err := InitialState(reactor.tables)
	if err != nil {
		return nil, err
	}
	reactor.Refresh(&st)
	return &Session{state: st, reactor: reactor}, nil
}

// InitialState returns the default selection for tables without building
// any figure.
func InitialState(tables *lookup.Tables) (State, error) {
	year, ok := tables.LatestPeriod()
	if !ok || tables.Industry.Len() == 0 || tables.Geo.Len() == 0 || tables.Metric.Len() == 0 {
		return State{}, ErrEmptyDataset
	}

	metric := model.MetricCLQ
	if !tables.Metric.Has(metric) {
		metric = tables.Metric.Options()[0].Code
	}

	return State{
		Year:           year,
		IndustryCode:   tables.Industry.Options()[0].Code,
		MetricCode:     metric,
		ColorDimension: model.ColorByMetric,
		GeoID:          tables.Geo.Options()[0].Code,
	}, nil
}

// State returns a snapshot of the current state. Figures are shared and
// must be treated as read-only.
func (s *Session) State() State {
	st := s.state
	st.SelectedIndices = append([]int(nil), s.state.SelectedIndices...)
	return st
}

// Tables returns the session's lookup tables.
func (s *Session) Tables() *lookup.Tables {
	return s.reactor.tables
}

// Rows returns the dataset rows behind the session. They must be treated
// as read-only.
func (s *Session) Rows() []model.Row {
	return s.reactor.rows
}

// Policy returns the selection policy in effect.
func (s *Session) Policy() SelectionPolicy {
	return s.reactor.policy
}

// IndustryActive reports whether the industry choice affects the line
// chart; it does not while lines are colored by industry.
func (s *Session) IndustryActive() bool {
	return s.state.ColorDimension != model.ColorByIndustry
}

// Describe labels the active selectors for summaries and reports.
func (s *Session) Describe() [][2]string {
	st := s.state
	t := s.reactor.tables
	return [][2]string{
		{"Year", string(st.Year)},
		{"Industry", strings.TrimSpace(st.IndustryCode + " " + t.Industry.NameOr(st.IndustryCode, ""))},
		{"LQ type", t.Metric.NameOr(st.MetricCode, st.MetricCode)},
		{"County", fmt.Sprintf("%s (%s)", t.Geo.NameOr(st.GeoID, st.GeoID), st.GeoID)},
		{"Lines colored by", st.ColorDimension.Label()},
	}
}

// SetYear selects a period.
func (s *Session) SetYear(p model.Period) (Recompute, error) {
	if !s.reactor.tables.HasPeriod(p) {
		return 0, fmt.Errorf("%w: year %q", ErrUnknownValue, p)
	}
	if s.state.Year == p {
		return 0, nil
	}
	s.state.Year = p
	return s.dispatch(FieldYear, p), nil
}

// SetIndustry selects an industry code.
func (s *Session) SetIndustry(code string) (Recompute, error) {
	if !s.reactor.tables.Industry.Has(code) {
		return 0, fmt.Errorf("%w: industry %q", ErrUnknownValue, code)
	}
	if s.state.IndustryCode == code {
		return 0, nil
	}
	s.state.IndustryCode = code
	return s.dispatch(FieldIndustry, code), nil
}

// SetMetric selects a metric code.
func (s *Session) SetMetric(code string) (Recompute, error) {
	if !s.reactor.tables.Metric.Has(code) {
		return 0, fmt.Errorf("%w: metric %q", ErrUnknownValue, code)
	}
	if s.state.MetricCode == code {
		return 0, nil
	}
	s.state.MetricCode = code
	return s.dispatch(FieldMetric, code), nil
}

// SetColorDimension selects how line series are split.
func (s *Session) SetColorDimension(d model.ColorDimension) (Recompute, error) {
	if !d.Valid() {
		return 0, fmt.Errorf("%w: color dimension %q", ErrUnknownValue, d)
	}
	if s.state.ColorDimension == d {
		return 0, nil
	}
	s.state.ColorDimension = d
	return s.dispatch(FieldColorDimension, d), nil
}

// SetGeoID selects a county.
func (s *Session) SetGeoID(code string) (Recompute, error) {
	if !s.reactor.tables.Geo.Has(code) {
		return 0, fmt.Errorf("%w: county %q", ErrUnknownValue, code)
	}
	if s.state.GeoID == code {
		return 0, nil
	}
	s.state.GeoID = code
	return s.dispatch(FieldGeoID, code), nil
}

// SetSelectedIndices replaces the highlighted positions. Duplicates are
// dropped and positions are kept sorted. Positions outside the current map
// subset are accepted and ignored by the mean.
func (s *Session) SetSelectedIndices(indices []int) Recompute {
	s.state.SelectedIndices = normalizeIndices(indices)
	return s.dispatch(FieldSelectedIndices, s.state.SelectedIndices)
}

// ToggleSelected adds or removes one highlighted position.
func (s *Session) ToggleSelected(i int) Recompute {
	next := make([]int, 0, len(s.state.SelectedIndices)+1)
	found := false
	for _, j := range s.state.SelectedIndices {
		if j == i {
			found = true
			continue
		}
		next = append(next, j)
	}
	if !found {
		next = append(next, i)
	}
	return s.SetSelectedIndices(next)
}

// ClearSelection drops every highlighted position.
func (s *Session) ClearSelection() Recompute {
	return s.SetSelectedIndices(nil)
}

func (s *Session) dispatch(field Field, value any) Recompute {
	return s.reactor.HandleSelectionChange(&s.state, field, value)
}

func normalizeIndices(indices []int) []int {
	if len(indices) == 0 {
		return nil
	}
	out := append([]int(nil), indices...)
	sort.Ints(out)
	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
