// Package charts turns chart suggestions and a columnar dataset into
// renderer-neutral chart specs.
//
// A Suggestion says which chart to draw from which columns. The Resolver
// reads the dataset and produces a Spec: ordered labels plus one or more
// series of numbers or (x, y) pairs, each carrying its style. The resolver
// never fails; a suggestion that does not fit the data yields an empty Spec.
package charts

import (
	"encoding/json"
)

// Kind names a chart type.
type Kind string

const (
	KindBar       Kind = "bar"
	KindLine      Kind = "line"
	KindArea      Kind = "area"
	KindDoughnut  Kind = "doughnut"
	KindScatter   Kind = "scatter"
	KindHistogram Kind = "histogram"
	KindRadar     Kind = "radar"
)

// Spec is a canonical chart description handed to a renderer.
type Spec struct {
	Kind     Kind     `json:"type"`
	Title    string   `json:"title"`
	Labels   []string `json:"labels"`
	Datasets []Series `json:"datasets"`
}

// IsEmpty reports whether the spec has nothing to draw.
func (s Spec) IsEmpty() bool {
	return len(s.Labels) == 0 && len(s.Datasets) == 0
}

// Series is one plotted sequence.
type Series struct {
	Label  string  `json:"label"`
	Values []Datum `json:"data"`
	Style  Style   `json:"style"`
}

// Style carries the presentation hints of a series. Colors holds one entry
// for single-colored series and one per slice for doughnuts.
type Style struct {
	Colors      []Color `json:"colors"`
	BorderWidth int     `json:"borderWidth,omitempty"`
	Fill        bool    `json:"fill"`
}

// Datum is one point of a series: a scalar, an (x, y) pair, or a gap.
type Datum struct {
	X       float64
	Y       float64
	Paired  bool
	Missing bool
}

// Scalar returns a single-valued datum.
func Scalar(v float64) Datum {
	return Datum{Y: v}
}

// Pair returns an (x, y) datum.
func Pair(x, y float64) Datum {
	return Datum{X: x, Y: y, Paired: true}
}

// Gap returns a datum with no value.
func Gap() Datum {
	return Datum{Missing: true}
}

// MarshalJSON encodes scalars as numbers, pairs as {"x","y"} objects and
// gaps as null.
func (d Datum) MarshalJSON() ([]byte, error) {
	switch {
	case d.Missing:
		return []byte("null"), nil
	case d.Paired:
		return json.Marshal(struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		}{d.X, d.Y})
	default:
		return json.Marshal(d.Y)
	}
}

func emptySpec(kind Kind, title string) Spec {
	return Spec{
		Kind:     kind,
		Title:    title,
		Labels:   []string{},
		Datasets: []Series{},
	}
}
