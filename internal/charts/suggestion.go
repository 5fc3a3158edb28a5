package charts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vizbench/vzb/internal/dataset"
)

// ErrUnsupportedKind is returned when a suggestion names a chart type the
// resolver cannot draw (bubble, box, or anything unknown).
var ErrUnsupportedKind = errors.New("unsupported chart type")

// Suggestion is a recommendation of which chart to draw from which columns.
// The set of implementations is closed; each one is dispatched through a
// visitor method, so adding a chart type forces every visitor to handle it.
type Suggestion interface {
	Kind() Kind
	Title() string
	accept(v visitor) Spec
}

type visitor interface {
	bar(Bar) Spec
	line(Line) Spec
	area(Area) Spec
	doughnut(Doughnut) Spec
	scatter(Scatter) Spec
	histogram(Histogram) Spec
	radar(Radar) Spec
}

// Bar plots YKey against the categories of XKey.
type Bar struct {
	Heading string
	XKey    string
	YKey    string
}

func (s Bar) Kind() Kind { return KindBar }
func (s Bar) Title() string { return s.Heading }
func (s Bar) accept(v visitor) Spec { return v.bar(s) }

// Line plots YKey over XKey.
type Line struct {
	Heading string
	XKey    string
	YKey    string
}

func (s Line) Kind() Kind { return KindLine }
func (s Line) Title() string { return s.Heading }
func (s Line) accept(v visitor) Spec { return v.line(s) }

// Area is a Line with the region under it filled.
type Area struct {
	Heading string
	XKey    string
	YKey    string
}

func (s Area) Kind() Kind { return KindArea }
func (s Area) Title() string { return s.Heading }
func (s Area) accept(v visitor) Spec { return v.area(s) }

// Doughnut draws slices either from literal Labels/Values carried by the
// suggestion or, when those are absent, from the LabelKey/ValueKey columns.
type Doughnut struct {
	Heading  string
	LabelKey string
	ValueKey string
	Labels   []string
	Values   []float64
}

func (s Doughnut) Kind() Kind { return KindDoughnut }
func (s Doughnut) Title() string { return s.Heading }
func (s Doughnut) accept(v visitor) Spec { return v.doughnut(s) }

// Literal reports whether the suggestion carries its own slice data.
func (s Doughnut) Literal() bool {
	return s.Labels != nil && s.Values != nil
}

// Scatter pairs XKey and YKey row by row.
type Scatter struct {
	Heading string
	XKey    string
	YKey    string
}

func (s Scatter) Kind() Kind { return KindScatter }
func (s Scatter) Title() string { return s.Heading }
func (s Scatter) accept(v visitor) Spec { return v.scatter(s) }

// Histogram bins the numeric XKey column. Bins of zero means the resolver
// default.
type Histogram struct {
	Heading string
	XKey    string
	Bins    int
}

func (s Histogram) Kind() Kind { return KindHistogram }
func (s Histogram) Title() string { return s.Heading }
func (s Histogram) accept(v visitor) Spec { return v.histogram(s) }

// Radar draws literal per-axis values, typically column means.
type Radar struct {
	Heading string
	Labels  []string
	Values  []float64
}

func (s Radar) Kind() Kind { return KindRadar }
func (s Radar) Title() string { return s.Heading }
func (s Radar) accept(v visitor) Spec { return v.radar(s) }

// wireSuggestion is the backend's suggestion object. Column keys arrive as
// x/y; the longer spellings are accepted as well.
type wireSuggestion struct {
	Type     string          `json:"type"`
	Title    string          `json:"title"`
	X        string          `json:"x"`
	Y        string          `json:"y"`
	XKey     string          `json:"xKey"`
	YKey     string          `json:"yKey"`
	LabelKey string          `json:"labelKey"`
	ValueKey string          `json:"valueKey"`
	Labels   json.RawMessage `json:"labels"`
	Values   json.RawMessage `json:"values"`
	Bins     int             `json:"bins"`
}

// DecodeSuggestion decodes one backend suggestion.
func DecodeSuggestion(data []byte) (Suggestion, error) {
	var w wireSuggestion
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decoding suggestion: %w", err)
	}

	x := firstNonEmpty(w.XKey, w.X)
	y := firstNonEmpty(w.YKey, w.Y)

	switch strings.ToLower(strings.TrimSpace(w.Type)) {
	case "bar":
		return Bar{Heading: w.Title, XKey: x, YKey: y}, nil
	case "line":
		return Line{Heading: w.Title, XKey: x, YKey: y}, nil
	case "area":
		return Area{Heading: w.Title, XKey: x, YKey: y}, nil
	case "scatter":
		return Scatter{Heading: w.Title, XKey: x, YKey: y}, nil
	case "histogram":
		return Histogram{Heading: w.Title, XKey: x, Bins: w.Bins}, nil
	case "doughnut", "pie":
		d := Doughnut{Heading: w.Title, LabelKey: w.LabelKey, ValueKey: w.ValueKey}
		// A string in labels/values names a column; an array is literal data.
		if key, ok := rawString(w.Labels); ok {
			d.LabelKey = firstNonEmpty(d.LabelKey, key)
		} else if labels, ok := rawLabels(w.Labels); ok {
			d.Labels = labels
		}
		if key, ok := rawString(w.Values); ok {
			d.ValueKey = firstNonEmpty(d.ValueKey, key)
		} else if values, ok := rawNumbers(w.Values); ok {
			d.Values = values
		}
		return d, nil
	case "radar":
		labels, _ := rawLabels(w.Labels)
		values, _ := rawNumbers(w.Values)
		return Radar{Heading: w.Title, Labels: labels, Values: values}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, w.Type)
	}
}

// DecodeSuggestions decodes a suggestion list, keeping the ones it can draw.
// Entries that fail to decode are reported in skipped, in input order.
func DecodeSuggestions(raw []json.RawMessage) (suggestions []Suggestion, skipped []error) {
	suggestions = make([]Suggestion, 0, len(raw))
	for i, item := range raw {
		s, err := DecodeSuggestion(item)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("suggestion %d: %w", i, err))
			continue
		}
		suggestions = append(suggestions, s)
	}
	return suggestions, skipped
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func rawString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func rawLabels(raw json.RawMessage) ([]string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var cells []dataset.Value
	if err := json.Unmarshal(raw, &cells); err != nil {
		return nil, false
	}
	labels := make([]string, len(cells))
	for i, c := range cells {
		labels[i] = c.String()
	}
	return labels, true
}

func rawNumbers(raw json.RawMessage) ([]float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}
	var cells []dataset.Value
	if err := json.Unmarshal(raw, &cells); err != nil {
		return nil, false
	}
	values := make([]float64, len(cells))
	for i, c := range cells {
		values[i], _ = c.Float()
	}
	return values, true
}
