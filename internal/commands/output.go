package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vizbench/vzb/internal/charts"
	"github.com/vizbench/vzb/internal/client"
	"github.com/vizbench/vzb/internal/workbench"
)

// maxPointsShown caps the data points printed per chart.
const maxPointsShown = 12

// colorEnabled is set when stdout is a terminal.
var colorEnabled bool

var (
	headingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

func styled(style lipgloss.Style, s string) string {
	if !colorEnabled {
		return s
	}
	return style.Render(s)
}

func marshalJSONOrFallback(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err == nil {
		return string(data) + "\n"
	}

	// Best-effort fallback: always return valid JSON for --json callers.
	fallback, fallbackErr := json.Marshal(map[string]string{
		"error": "failed to marshal JSON output",
	})
	if fallbackErr != nil {
		return "{}\n"
	}
	return string(fallback) + "\n"
}

// formatTimeAgo formats an upload time as "X ago". Unparseable values are
// returned unchanged.
func formatTimeAgo(f client.File, now time.Time) string {
	ts, ok := f.UploadedAt()
	if !ok {
		return f.UploadTime
	}
	d := now.Sub(ts)
	if d < 0 {
		d = 0
	}
	secs := int(d.Seconds())
	if secs < 60 {
		return fmt.Sprintf("%ds ago", secs)
	}
	mins := secs / 60
	if mins < 60 {
		return fmt.Sprintf("%dm ago", mins)
	}
	hours := mins / 60
	if hours < 48 {
		return fmt.Sprintf("%dh ago", hours)
	}
	return fmt.Sprintf("%dd ago", hours/24)
}

func formatFilesOutput(files []client.File, now time.Time) string {
	var sb strings.Builder
	if len(files) == 0 {
		sb.WriteString("No files uploaded. Run 'vzb upload <path>' to add one.\n")
		return sb.String()
	}

	sb.WriteString(styled(headingStyle, fmt.Sprintf("## Files (%d)", len(files))) + "\n\n")
	for _, f := range files {
		fmt.Fprintf(&sb, "  #%d  %s", f.ID, f.Filename)
		fmt.Fprintf(&sb, " - %d rows, %d columns", f.Metadata.NumRows, len(f.Metadata.Columns))
		if ago := formatTimeAgo(f, now); ago != "" {
			sb.WriteString(styled(mutedStyle, " (uploaded "+ago+")"))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// sessionView is the --json shape of a workbench session.
type sessionView struct {
	FileID   int64             `json:"file_id"`
	Filename string            `json:"filename,omitempty"`
	State    string            `json:"state"`
	RowCount int               `json:"row_count"`
	Columns  []string          `json:"columns"`
	Summary  string            `json:"summary"`
	Charts   []charts.Spec     `json:"charts"`
	Failures map[string]string `json:"failures,omitempty"`
	Skipped  []string          `json:"skipped,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func newSessionView(s workbench.Session) sessionView {
	v := sessionView{
		FileID:   s.File.ID,
		Filename: s.File.Filename,
		State:    s.State.String(),
		RowCount: s.File.Metadata.RowCount,
		Columns:  s.File.Metadata.ColumnNames,
		Summary:  s.Summary,
		Charts:   s.Specs,
	}
	if v.Columns == nil {
		v.Columns = []string{}
	}
	if v.Charts == nil {
		v.Charts = []charts.Spec{}
	}
	if len(s.Failures) > 0 {
		v.Failures = make(map[string]string, len(s.Failures))
		for ch, err := range s.Failures {
			v.Failures[string(ch)] = describeError(err)
		}
	}
	for _, err := range s.Skipped {
		v.Skipped = append(v.Skipped, err.Error())
	}
	if s.Err != nil {
		v.Error = s.Err.Error()
	}
	return v
}

func formatSessionOutput(s workbench.Session) string {
	var sb strings.Builder

	switch s.State {
	case workbench.NoFile:
		sb.WriteString("No file selected.\n")
		return sb.String()
	case workbench.Error:
		sb.WriteString(styled(errorStyle, fmt.Sprintf("Cannot open file %d: %v", s.File.ID, s.Err)) + "\n")
		return sb.String()
	}

	name := s.File.Filename
	if name == "" {
		name = fmt.Sprintf("file %d", s.File.ID)
	}
	sb.WriteString(styled(headingStyle, "## "+name) + "\n")
	fmt.Fprintf(&sb, "ID: %d\n", s.File.ID)
	if s.File.Metadata.RowCount > 0 {
		fmt.Fprintf(&sb, "Rows: %d\n", s.File.Metadata.RowCount)
	}
	if cols := s.File.Metadata.ColumnNames; len(cols) > 0 {
		fmt.Fprintf(&sb, "Columns: %s\n", strings.Join(cols, ", "))
	}
	if s.State == workbench.Loading {
		sb.WriteString(styled(mutedStyle, "Still loading...") + "\n")
		return sb.String()
	}

	if len(s.Failures) > 0 {
		sb.WriteString("\n")
		channels := make([]string, 0, len(s.Failures))
		for ch := range s.Failures {
			channels = append(channels, string(ch))
		}
		sort.Strings(channels)
		for _, ch := range channels {
			msg := fmt.Sprintf("! %s unavailable: %s", ch, describeError(s.Failures[workbench.Channel(ch)]))
			sb.WriteString(styled(warningStyle, msg) + "\n")
		}
	}

	sb.WriteString("\n" + styled(headingStyle, "## AI Summary") + "\n\n")
	sb.WriteString(strings.TrimSpace(s.Summary) + "\n")

	sb.WriteString("\n" + styled(headingStyle, fmt.Sprintf("## Charts (%d)", len(s.Specs))) + "\n")
	if len(s.Specs) == 0 {
		sb.WriteString("\nNo chart suggestions.\n")
	}
	for i, spec := range s.Specs {
		sb.WriteString("\n")
		sb.WriteString(formatSpec(i+1, spec))
	}
	if len(s.Skipped) > 0 {
		sb.WriteString(styled(mutedStyle, fmt.Sprintf("\n(%d suggestion(s) skipped: unsupported chart type)", len(s.Skipped))) + "\n")
	}
	return sb.String()
}

func formatSpec(n int, spec charts.Spec) string {
	var sb strings.Builder
	title := spec.Title
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(&sb, "### %d. %s [%s]\n", n, title, spec.Kind)
	if spec.IsEmpty() {
		sb.WriteString(styled(mutedStyle, "  (no data)") + "\n")
		return sb.String()
	}

	series := spec.Datasets[0]
	if series.Label != "" {
		fmt.Fprintf(&sb, "  Series: %s\n", series.Label)
	}

	var pct []float64
	if spec.Kind == charts.KindDoughnut {
		pct = spec.SlicePercentages()
	}

	shown := len(series.Values)
	if shown > maxPointsShown {
		shown = maxPointsShown
	}
	for i := 0; i < shown; i++ {
		label := ""
		if i < len(spec.Labels) {
			label = spec.Labels[i]
		}
		line := fmt.Sprintf("  %s: %s", label, formatDatum(series.Values[i]))
		if pct != nil {
			line += fmt.Sprintf(" (%.1f%%)", pct[i])
		}
		sb.WriteString(line + "\n")
	}
	if rest := len(series.Values) - shown; rest > 0 {
		sb.WriteString(styled(mutedStyle, fmt.Sprintf("  ... and %d more", rest)) + "\n")
	}
	return sb.String()
}

func formatDatum(d charts.Datum) string {
	switch {
	case d.Missing:
		return "-"
	case d.Paired:
		return "(" + formatNumber(d.X) + ", " + formatNumber(d.Y) + ")"
	default:
		return formatNumber(d.Y)
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
