package charts

import (
	"fmt"

	"github.com/vizbench/vzb/internal/dataset"
)

var (
	barStyle = Style{
		Colors:      []Color{{Fill: "#3B82F6", Border: "#2563EB"}},
		BorderWidth: 2,
	}
	lineStyle = Style{
		Colors: []Color{{Fill: "#3B82F620", Border: "#3B82F6"}},
	}
	scatterStyle = Style{
		Colors: []Color{{Fill: "#3B82F6", Border: "#3B82F6"}},
	}
	histogramStyle = Style{
		Colors: []Color{{Fill: "#10B981", Border: "#059669"}},
	}
	radarStyle = Style{
		Colors:      []Color{{Fill: "#8B5CF633", Border: "#7C3AED"}},
		BorderWidth: 2,
		Fill:        true,
	}
)

// Option configures a Resolver.
type Option func(*Resolver)

// WithBinCount sets the histogram bin count used when a suggestion does not
// carry one. Non-positive values are ignored.
func WithBinCount(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.binCount = n
		}
	}
}

// Resolver maps suggestions onto a dataset. It holds no per-call state and
// is safe for concurrent use.
type Resolver struct {
	binCount int
}

// NewResolver creates a resolver.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{binCount: DefaultBinCount}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve builds the spec for one suggestion with default settings.
func Resolve(d *dataset.Dataset, s Suggestion) Spec {
	return NewResolver().Resolve(d, s)
}

// Resolve builds the spec for one suggestion. Missing columns, an empty
// dataset or a nil suggestion yield an empty spec.
func (r *Resolver) Resolve(d *dataset.Dataset, s Suggestion) Spec {
	if s == nil {
		return emptySpec("", "")
	}
	if d == nil {
		d = dataset.Empty()
	}
	return s.accept(&resolution{binCount: r.binCount, data: d})
}

// ResolveAll builds one spec per suggestion, in order.
func (r *Resolver) ResolveAll(d *dataset.Dataset, suggestions []Suggestion) []Spec {
	specs := make([]Spec, 0, len(suggestions))
	for _, s := range suggestions {
		specs = append(specs, r.Resolve(d, s))
	}
	return specs
}

type resolution struct {
	binCount int
	data     *dataset.Dataset
}

var _ visitor = (*resolution)(nil)

func (r *resolution) bar(s Bar) Spec {
	return r.series(KindBar, s.Heading, s.XKey, s.YKey, barStyle)
}

func (r *resolution) line(s Line) Spec {
	return r.series(KindLine, s.Heading, s.XKey, s.YKey, lineStyle)
}

func (r *resolution) area(s Area) Spec {
	style := lineStyle
	style.Fill = true
	return r.series(KindArea, s.Heading, s.XKey, s.YKey, style)
}

// series draws YKey against XKey, one datum per row.
func (r *resolution) series(kind Kind, title, xKey, yKey string, style Style) Spec {
	if r.data.IsEmpty() {
		return emptySpec(kind, title)
	}
	labels, ok := r.data.Labels(xKey)
	if !ok {
		return emptySpec(kind, title)
	}
	ys, ok := r.data.Column(yKey)
	if !ok {
		return emptySpec(kind, title)
	}
	return Spec{
		Kind:   kind,
		Title:  title,
		Labels: labels,
		Datasets: []Series{{
			Label:  yKey,
			Values: scalars(ys),
			Style:  cloneStyle(style),
		}},
	}
}

func (r *resolution) doughnut(s Doughnut) Spec {
	var labels []string
	var values []Datum

	if s.Literal() {
		n := min(len(s.Labels), len(s.Values))
		labels = append([]string{}, s.Labels[:n]...)
		values = make([]Datum, n)
		for i, v := range s.Values[:n] {
			values[i] = Scalar(v)
		}
	} else {
		if r.data.IsEmpty() {
			return emptySpec(KindDoughnut, s.Heading)
		}
		var ok bool
		labels, ok = r.data.Labels(s.LabelKey)
		if !ok {
			return emptySpec(KindDoughnut, s.Heading)
		}
		cells, ok := r.data.Column(s.ValueKey)
		if !ok {
			return emptySpec(KindDoughnut, s.Heading)
		}
		values = scalars(cells)
	}

	if len(labels) == 0 {
		return emptySpec(KindDoughnut, s.Heading)
	}
	return Spec{
		Kind:   KindDoughnut,
		Title:  s.Heading,
		Labels: labels,
		Datasets: []Series{{
			Label:  firstNonEmpty(s.ValueKey, s.Heading),
			Values: values,
			Style: Style{
				Colors:      colorsFor(len(labels)),
				BorderWidth: 2,
			},
		}},
	}
}

func (r *resolution) scatter(s Scatter) Spec {
	if r.data.IsEmpty() {
		return emptySpec(KindScatter, s.Heading)
	}
	xs, ok := r.data.Column(s.XKey)
	if !ok {
		return emptySpec(KindScatter, s.Heading)
	}
	ys, ok := r.data.Column(s.YKey)
	if !ok {
		return emptySpec(KindScatter, s.Heading)
	}

	labels, points := zipColumns(xs, ys)
	return Spec{
		Kind:   KindScatter,
		Title:  s.Heading,
		Labels: labels,
		Datasets: []Series{{
			Label:  fmt.Sprintf("%s vs %s", s.YKey, s.XKey),
			Values: points,
			Style:  cloneStyle(scatterStyle),
		}},
	}
}

func (r *resolution) histogram(s Histogram) Spec {
	if r.data.IsEmpty() {
		return emptySpec(KindHistogram, s.Heading)
	}
	values, ok := r.data.Floats(s.XKey)
	if !ok {
		return emptySpec(KindHistogram, s.Heading)
	}
	binCount := s.Bins
	if binCount <= 0 {
		binCount = r.binCount
	}

	bins := Bin(values, binCount)
	counts := make([]Datum, len(bins.Counts))
	for i, c := range bins.Counts {
		counts[i] = Scalar(float64(c))
	}
	return Spec{
		Kind:   KindHistogram,
		Title:  s.Heading,
		Labels: bins.Labels,
		Datasets: []Series{{
			Label:  s.XKey,
			Values: counts,
			Style:  cloneStyle(histogramStyle),
		}},
	}
}

func (r *resolution) radar(s Radar) Spec {
	n := min(len(s.Labels), len(s.Values))
	if n == 0 {
		return emptySpec(KindRadar, s.Heading)
	}
	values := make([]Datum, n)
	for i, v := range s.Values[:n] {
		values[i] = Scalar(v)
	}
	return Spec{
		Kind:   KindRadar,
		Title:  s.Heading,
		Labels: append([]string{}, s.Labels[:n]...),
		Datasets: []Series{{
			Label:  s.Heading,
			Values: values,
			Style:  cloneStyle(radarStyle),
		}},
	}
}

// zipColumns pairs x[i] with y[i] for scatter plots, labelling each point
// with its x cell. The longer column is truncated to the shorter. A row
// where either cell is not numeric becomes a gap.
func zipColumns(xs, ys []dataset.Value) ([]string, []Datum) {
	n := min(len(xs), len(ys))
	labels := make([]string, n)
	points := make([]Datum, n)
	for i := 0; i < n; i++ {
		labels[i] = xs[i].String()
		x, okX := xs[i].Float()
		y, okY := ys[i].Float()
		if okX && okY {
			points[i] = Pair(x, y)
		} else {
			points[i] = Gap()
		}
	}
	return labels, points
}

func scalars(cells []dataset.Value) []Datum {
	out := make([]Datum, len(cells))
	for i, c := range cells {
		if f, ok := c.Float(); ok {
			out[i] = Scalar(f)
		} else {
			out[i] = Gap()
		}
	}
	return out
}

func cloneStyle(s Style) Style {
	s.Colors = append([]Color(nil), s.Colors...)
	return s
}
