package workbench

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vizbench/vzb/internal/charts"
	"github.com/vizbench/vzb/internal/client"
	"github.com/vizbench/vzb/internal/dataset"
)

// DefaultFetchTimeout bounds the fetches of one selection.
const DefaultFetchTimeout = 60 * time.Second

// Backend is the subset of the vizbench API the controller drives.
// *client.Client implements it.
type Backend interface {
	ListFiles(ctx context.Context) ([]client.File, error)
	DeleteFile(ctx context.Context, fileID int64) (*client.DeleteFileResponse, error)
	SuggestCharts(ctx context.Context, fileID int64) (*client.SuggestResponse, error)
	ChartData(ctx context.Context, fileID int64) (*dataset.Dataset, error)
	Summary(ctx context.Context, fileID int64) (*client.SummaryResponse, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBinCount sets the default histogram bin count for resolved specs.
func WithBinCount(n int) Option {
	return func(c *Controller) {
		c.binCount = n
	}
}

// WithFetchTimeout bounds the fetches of one selection. Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.fetchTimeout = d
	}
}

// Controller owns the active-file session. It is safe for concurrent use.
//
// Listeners registered with OnActiveFileChange run while the controller's lock
// is held and must not call back into the Controller.
type Controller struct {
	backend      Backend
	resolver     *charts.Resolver
	logger       *zap.Logger
	binCount     int
	fetchTimeout time.Duration

	mu        sync.Mutex
	token     Token
	session   *Session
	cancel    context.CancelFunc
	settled   chan struct{}
	files     []client.File
	listeners []func(Change)

	wg sync.WaitGroup
}

// New creates a controller with no active file.
func New(backend Backend, opts ...Option) *Controller {
	c := &Controller{
		backend:      backend,
		logger:       zap.NewNop(),
		fetchTimeout: DefaultFetchTimeout,
		settled:      closedChan(),
		files:        []client.File{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.resolver = charts.NewResolver(charts.WithBinCount(c.binCount))
	return c
}

// OnActiveFileChange registers fn to be called on every selection, deselection
// and delete of the active file.
func (c *Controller) OnActiveFileChange(fn func(Change)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// SelectFile makes ref the active file and starts fetching its suggestions,
// raw data and AI summary concurrently. It returns the new generation token
// without waiting for the fetches.
func (c *Controller) SelectFile(ctx context.Context, ref FileRef) Token {
	c.mu.Lock()
	defer c.mu.Unlock()

	tok := c.advanceLocked()
	if ref.ID <= 0 {
		c.session = &Session{Token: tok, State: Error, File: ref, Err: ErrInvalidFileRef}
		c.logger.Warn("cannot load file", zap.Int64("file_id", ref.ID), zap.Error(ErrInvalidFileRef))
		c.notifyLocked(Change{Token: tok, FileID: ref.ID})
		return tok
	}

	c.session = &Session{Token: tok, State: Loading, File: ref}

	var (
		genCtx context.Context
		cancel context.CancelFunc
	)
	if c.fetchTimeout > 0 {
		genCtx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
	} else {
		genCtx, cancel = context.WithCancel(ctx)
	}
	c.cancel = cancel
	settled := make(chan struct{})
	c.settled = settled

	c.logger.Debug("loading file",
		zap.Int64("file_id", ref.ID),
		zap.String("filename", ref.Filename),
		zap.Uint64("token", uint64(tok)))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(settled)
		defer cancel()
		c.load(genCtx, tok, ref)
	}()

	c.notifyLocked(Change{Token: tok, FileID: ref.ID})
	return tok
}

// AdoptUpload selects a freshly uploaded file and refreshes the file listing.
func (c *Controller) AdoptUpload(ctx context.Context, resp *client.UploadResponse) Token {
	tok := c.SelectFile(ctx, RefFromUpload(resp))
	if _, err := c.RefreshFiles(ctx); err != nil {
		c.logger.Warn("refreshing file list after upload", zap.Error(err))
	}
	return tok
}

// Clear drops the active file without deleting it.
func (c *Controller) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return
	}
	c.clearLocked()
}

// DeleteFile deletes a file on the backend. The caller is expected to have
// confirmed the action. On failure a *DeleteError is returned and the
// workbench is unchanged. On success the active session is cleared if it was
// for fileID, and the file listing is refreshed.
func (c *Controller) DeleteFile(ctx context.Context, fileID int64) error {
	if _, err := c.backend.DeleteFile(ctx, fileID); err != nil {
		c.logger.Warn("delete failed", zap.Int64("file_id", fileID), zap.Error(err))
		return &DeleteError{FileID: fileID, Err: err}
	}

	c.mu.Lock()
	if c.session != nil && c.session.File.ID == fileID {
		c.clearLocked()
	}
	c.mu.Unlock()

	if _, err := c.RefreshFiles(ctx); err != nil {
		c.logger.Warn("refreshing file list after delete", zap.Error(err))
	}
	return nil
}

// RefreshFiles fetches the file listing. A failed fetch leaves an empty listing.
func (c *Controller) RefreshFiles(ctx context.Context) ([]client.File, error) {
	files, err := c.backend.ListFiles(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.files = []client.File{}
		return nil, err
	}
	c.files = append([]client.File{}, files...)
	return append([]client.File(nil), c.files...), nil
}

// Files returns the listing from the last RefreshFiles.
func (c *Controller) Files() []client.File {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]client.File{}, c.files...)
}

// Snapshot returns a copy of the current session. With no active file the
// returned session has State NoFile.
func (c *Controller) Snapshot() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return Session{Token: c.token, State: NoFile}
	}
	return c.session.clone()
}

// Token returns the current generation token.
func (c *Controller) Token() Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// IsCurrent reports whether tok is still the current generation.
func (c *Controller) IsCurrent(tok Token) bool {
	return c.Token() == tok
}

// ActiveFile returns the file of the current session.
func (c *Controller) ActiveFile() (FileRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return FileRef{}, false
	}
	return c.session.File, true
}

// Wait blocks until the current generation's fetches have settled. If a newer
// selection starts while waiting, Wait follows it.
func (c *Controller) Wait(ctx context.Context) (Session, error) {
	for {
		c.mu.Lock()
		settled := c.settled
		c.mu.Unlock()

		select {
		case <-settled:
		case <-ctx.Done():
			return Session{}, ctx.Err()
		}

		c.mu.Lock()
		if c.settled == settled {
			var s Session
			if c.session == nil {
				s = Session{Token: c.token, State: NoFile}
			} else {
				s = c.session.clone()
			}
			c.mu.Unlock()
			return s, nil
		}
		c.mu.Unlock()
	}
}

// Close cancels any in-flight fetches and waits for them to return.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Controller) load(ctx context.Context, tok Token, ref FileRef) {
	var (
		suggestions Result[*client.SuggestResponse]
		data        Result[*dataset.Dataset]
		summary     Result[*client.SummaryResponse]
	)

	// Every channel settles on its own; none aborts its siblings.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		suggestions.Value, suggestions.Err = c.backend.SuggestCharts(egCtx, ref.ID)
		return nil
	})
	eg.Go(func() error {
		data.Value, data.Err = c.backend.ChartData(egCtx, ref.ID)
		return nil
	})
	eg.Go(func() error {
		summary.Value, summary.Err = c.backend.Summary(egCtx, ref.ID)
		return nil
	})
	_ = eg.Wait()

	// Superseded generations were cancelled; skip assembling their errors.
	if !c.IsCurrent(tok) {
		c.discard(tok, ref)
		return
	}
	next := c.assemble(tok, ref, suggestions, data, summary)

	c.mu.Lock()
	defer c.mu.Unlock()
	if tok != c.token {
		c.discardLocked(tok, ref)
		return
	}
	c.session = next
}

func (c *Controller) discard(tok Token, ref FileRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discardLocked(tok, ref)
}

func (c *Controller) discardLocked(tok Token, ref FileRef) {
	c.logger.Debug("discarding stale result",
		zap.Int64("file_id", ref.ID),
		zap.Uint64("token", uint64(tok)),
		zap.Uint64("current", uint64(c.token)))
}

// assemble builds a Ready session from the three channel results, substituting
// fallbacks for the channels that failed.
func (c *Controller) assemble(
	tok Token,
	ref FileRef,
	suggestions Result[*client.SuggestResponse],
	data Result[*dataset.Dataset],
	summary Result[*client.SummaryResponse],
) *Session {
	s := &Session{Token: tok, State: Ready, File: ref, Failures: map[Channel]error{}}

	if suggestions.Err != nil {
		c.channelFailed(s, ChannelSuggestions, suggestions.Err)
	}
	var raw []json.RawMessage
	if resp := suggestions.OrElse(nil); resp != nil {
		raw = resp.Suggestions
	}
	s.Suggestions, s.Skipped = charts.DecodeSuggestions(raw)
	if s.Suggestions == nil {
		s.Suggestions = []charts.Suggestion{}
	}
	for _, err := range s.Skipped {
		c.logger.Debug("skipping suggestion", zap.Int64("file_id", ref.ID), zap.Error(err))
	}

	if data.Err != nil {
		c.channelFailed(s, ChannelData, data.Err)
	}
	s.Dataset = data.OrElse(dataset.Empty())
	if s.Dataset == nil {
		s.Dataset = dataset.Empty()
	}
	c.checkRowCount(s)

	if summary.Err != nil {
		c.channelFailed(s, ChannelSummary, summary.Err)
		s.Summary = SummaryUnavailable
	} else if summary.Value == nil || summary.Value.Summary == "" {
		s.Summary = SummaryMissing
	} else {
		s.Summary = summary.Value.Summary
	}

	s.Specs = c.resolver.ResolveAll(s.Dataset, s.Suggestions)
	return s
}

func (c *Controller) channelFailed(s *Session, ch Channel, err error) {
	s.Failures[ch] = err
	c.logger.Warn("fetch failed, using fallback",
		zap.String("channel", string(ch)),
		zap.Int64("file_id", s.File.ID),
		zap.Error(err))
}

func (c *Controller) checkRowCount(s *Session) {
	if s.Dataset.IsEmpty() {
		return
	}
	if len(s.File.Metadata.ColumnNames) == 0 {
		s.File.Metadata.ColumnNames = s.Dataset.ColumnNames()
	}
	if s.File.Metadata.RowCount == 0 {
		s.File.Metadata.RowCount = s.Dataset.RowCount()
		return
	}
	if got := s.Dataset.RowCount(); got != s.File.Metadata.RowCount {
		c.logger.Warn("row count differs from file metadata",
			zap.Int64("file_id", s.File.ID),
			zap.Int("metadata_rows", s.File.Metadata.RowCount),
			zap.Int("dataset_rows", got))
	}
}

// advanceLocked starts a new generation and cancels the fetches of the previous one.
func (c *Controller) advanceLocked() Token {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.settled = closedChan()
	c.token++
	return c.token
}

func (c *Controller) clearLocked() {
	tok := c.advanceLocked()
	c.session = nil
	c.logger.Debug("active file cleared", zap.Uint64("token", uint64(tok)))
	c.notifyLocked(Change{Token: tok})
}

func (c *Controller) notifyLocked(ch Change) {
	for _, fn := range c.listeners {
		fn(ch)
	}
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
