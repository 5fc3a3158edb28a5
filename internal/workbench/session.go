// Package workbench owns the active-file session: selecting a file, fetching
// its suggestions, raw data and AI summary, and turning them into chart specs.
package workbench

import (
	"errors"
	"fmt"

	"github.com/vizbench/vzb/internal/charts"
	"github.com/vizbench/vzb/internal/client"
	"github.com/vizbench/vzb/internal/dataset"
)

// Summary texts used when the AI summary channel cannot deliver one.
const (
	SummaryMissing     = "AI summary could not be generated."
	SummaryUnavailable = "Error fetching AI summary."
)

var (
	// ErrInvalidFileRef is recorded on a session whose file reference cannot be loaded.
	ErrInvalidFileRef = errors.New("invalid file reference")
	// ErrNoActiveFile is returned by operations that need a selected file.
	ErrNoActiveFile = errors.New("no active file")
)

// State is the lifecycle of the active-file session.
type State int

const (
	NoFile State = iota
	Loading
	Ready
	Error
)

func (s State) String() string {
	switch s {
	case NoFile:
		return "no-file"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Token identifies a selection epoch. Every selection, deselection and delete of
// the active file issues a larger token; results tagged with an older token are
// dropped.
type Token uint64

// Metadata is what the backend reported about a file when it was listed or uploaded.
type Metadata struct {
	RowCount    int
	ColumnNames []string
}

// FileRef names the file a session is built for.
type FileRef struct {
	ID       int64
	Filename string
	Metadata Metadata
}

// RefFromFile builds a FileRef from a listing entry.
func RefFromFile(f client.File) FileRef {
	return FileRef{
		ID:       f.ID,
		Filename: f.Filename,
		Metadata: Metadata{RowCount: f.Metadata.NumRows, ColumnNames: f.Metadata.Columns},
	}
}

// RefFromUpload builds a FileRef from an upload response.
func RefFromUpload(resp *client.UploadResponse) FileRef {
	if resp == nil {
		return FileRef{}
	}
	return FileRef{
		ID:       resp.FileID,
		Filename: resp.Filename,
		Metadata: Metadata{RowCount: resp.Metadata.NumRows, ColumnNames: resp.Metadata.Columns},
	}
}

// Channel is one of the three fetches issued per selection.
type Channel string

const (
	ChannelSuggestions Channel = "suggestions"
	ChannelData        Channel = "data"
	ChannelSummary     Channel = "summary"
)

// Result is the outcome of one fetch channel.
type Result[T any] struct {
	Value T
	Err   error
}

// OrElse returns the fetched value, or fallback when the fetch failed.
func (r Result[T]) OrElse(fallback T) T {
	if r.Err != nil {
		return fallback
	}
	return r.Value
}

// Session is the state of the workbench for one selected file. The dataset is
// set once when the fetches settle and never modified afterwards.
type Session struct {
	Token       Token
	State       State
	File        FileRef
	Dataset     *dataset.Dataset
	Suggestions []charts.Suggestion
	Specs       []charts.Spec
	Summary     string

	// Failures holds the transport error of every channel that fell back.
	Failures map[Channel]error
	// Skipped lists suggestions that could not be decoded into a drawable kind.
	Skipped []error
	// Err is set when State is Error.
	Err error
}

// Active reports whether the session is for a selected file.
func (s Session) Active() bool {
	return s.State != NoFile
}

func (s Session) clone() Session {
	out := s
	out.File.Metadata.ColumnNames = append([]string(nil), s.File.Metadata.ColumnNames...)
	out.Suggestions = append([]charts.Suggestion(nil), s.Suggestions...)
	out.Specs = append([]charts.Spec(nil), s.Specs...)
	out.Skipped = append([]error(nil), s.Skipped...)
	if s.Failures != nil {
		out.Failures = make(map[Channel]error, len(s.Failures))
		for k, v := range s.Failures {
			out.Failures[k] = v
		}
	}
	return out
}

// Change is delivered to listeners whenever the active file identity changes.
// FileID is zero when no file is active.
type Change struct {
	Token  Token
	FileID int64
}

// DeleteError reports a failed delete. The workbench state is left unchanged.
type DeleteError struct {
	FileID int64
	Err    error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("deleting file %d: %v", e.FileID, e.Err)
}

func (e *DeleteError) Unwrap() error {
	return e.Err
}
