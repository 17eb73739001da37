package viewer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ruslano69/tdtp-viewer/pkg/audit"
	"github.com/ruslano69/tdtp-viewer/pkg/core/dataset"
	"github.com/ruslano69/tdtp-viewer/pkg/source"
)

// ErrClosed is returned by WaitSettled after Close.
var ErrClosed = errors.New("viewer controller closed")

// defaultFailureMessage replaces a source error with no text.
const defaultFailureMessage = "fetch failed"

// Controller runs fetch cycles for one active dataset at a time.
type Controller struct {
	src          source.Source
	renderer     Renderer
	audit        audit.Logger
	logger       zerolog.Logger
	fetchTimeout time.Duration
	sourceType   string

	// renderMu orders renderer calls and observer notifications across cycles.
	renderMu sync.Mutex

	mu        sync.Mutex
	state     State
	gen       uint64
	handle    ExportHandle
	settled   chan struct{} // closed once the current cycle is terminal and rendered
	observers map[int]func(State)
	nextObs   int
	closed    bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an Idle controller reading from src.
func New(src source.Source, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		src:       src,
		renderer:  nopRenderer{},
		audit:     audit.NewNullLogger(),
		logger:    log.Logger,
		settled:   make(chan struct{}),
		observers: make(map[int]func(State)),
		ctx:       ctx,
		cancel:    cancel,
	}
	close(c.settled)
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "viewer").Logger()
	return c
}

// State returns the current snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CanExport reports whether ExportAs would reach a renderer.
func (c *Controller) CanExport() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Status == StatusLoaded && c.handle != nil
}

// Subscribe registers fn for every published state, in publish order.
// fn runs on the publishing goroutine and must not call SetDataset, Reload
// or Close synchronously.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// SetDataset starts a fetch cycle for name. An empty name is ignored.
// Loading is published before SetDataset returns; the fetch runs in the background.
func (c *Controller) SetDataset(name string) {
	if name == "" {
		return
	}

	c.renderMu.Lock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.renderMu.Unlock()
		return
	}
	c.gen++
	gen := c.gen
	c.state = State{Status: StatusLoading, Dataset: name, Generation: gen}
	c.handle = nil
	release(c.settled)
	c.settled = make(chan struct{})
	st := c.state
	observers := c.observersLocked()
	c.wg.Add(1)
	c.mu.Unlock()

	c.renderer.Unmount()
	notify(observers, st)
	c.renderMu.Unlock()

	c.logger.Debug().Str("dataset", name).Uint64("generation", gen).Msg("fetch started")
	go c.fetch(gen, name)
}

// Reload re-runs the cycle for the current dataset. No-op while Idle.
func (c *Controller) Reload() {
	c.mu.Lock()
	name := c.state.Dataset
	c.mu.Unlock()
	c.SetDataset(name)
}

func (c *Controller) fetch(gen uint64, name string) {
	defer c.wg.Done()

	ctx := c.ctx
	if c.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
		defer cancel()
	}

	start := time.Now()
	rows, err := c.src.FetchAll(ctx, name)
	elapsed := time.Since(start)
	fetchDuration.Observe(elapsed.Seconds())

	c.apply(gen, name, rows, err, elapsed)
}

// apply publishes the result of generation gen if it is still current.
func (c *Controller) apply(gen uint64, name string, rows []dataset.Row, fetchErr error, elapsed time.Duration) {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	c.mu.Lock()
	if c.closed || gen != c.gen {
		current := c.gen
		c.mu.Unlock()

		staleResults.Inc()
		fetchTotal.WithLabelValues("stale").Inc()
		c.logger.Debug().
			Str("dataset", name).
			Uint64("generation", gen).
			Uint64("current", current).
			Msg("stale fetch result discarded")
		c.auditFetch(name, gen, audit.StatusDiscarded, len(rows), elapsed, fetchErr)
		return
	}

	var st State
	if fetchErr != nil {
		st = State{Status: StatusFailed, Dataset: name, Generation: gen, Message: failureMessage(fetchErr)}
	} else if schema := dataset.Infer(rows); len(schema) == 0 {
		// rows whose first row has no fields have nothing to display
		st = State{Status: StatusEmpty, Dataset: name, Generation: gen, Schema: schema}
	} else {
		st = State{Status: StatusLoaded, Dataset: name, Generation: gen, Rows: rows, Schema: schema}
	}
	c.state = st
	settled := c.settled
	observers := c.observersLocked()
	c.mu.Unlock()

	fetchTotal.WithLabelValues(st.Status.String()).Inc()
	shown := len(st.Rows)
	switch st.Status {
	case StatusFailed:
		c.logger.Warn().Err(fetchErr).Str("dataset", name).Uint64("generation", gen).
			Dur("elapsed", elapsed).Msg("fetch failed")
		c.auditFetch(name, gen, audit.StatusFailure, 0, elapsed, fetchErr)
	default:
		c.logger.Info().Str("dataset", name).Uint64("generation", gen).
			Int("rows", shown).Int("columns", len(st.Schema)).
			Dur("elapsed", elapsed).Msg("fetch completed")
		c.auditFetch(name, gen, audit.StatusSuccess, shown, elapsed, nil)
	}

	if st.Status == StatusLoaded {
		c.renderer.Mount(name, st.Schema, st.Rows, c.onReady(gen))
	}
	notify(observers, st)

	// waiters resume only after the renderer is mounted
	c.mu.Lock()
	release(settled)
	c.mu.Unlock()
}

// failureMessage is the text shown in Failed; it is never empty.
func failureMessage(err error) string {
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return defaultFailureMessage
}

// onReady captures the export handle for generation gen.
func (c *Controller) onReady(gen uint64) func(ExportHandle) {
	return func(h ExportHandle) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen || c.state.Status != StatusLoaded {
			return
		}
		c.handle = h
	}
}

// ExportAs forwards the export to the mounted renderer. While nothing is
// mounted (Idle, Loading, Empty, Failed or before the ready callback) the
// call is a no-op and returns nil. Renderer and delivery errors are returned.
func (c *Controller) ExportAs(ctx context.Context, f Format) error {
	c.mu.Lock()
	h := c.handle
	st := c.state
	if st.Status != StatusLoaded {
		h = nil
	}
	c.mu.Unlock()

	if h == nil {
		exportsTotal.WithLabelValues(string(f), "unavailable").Inc()
		c.logger.Debug().Str("format", string(f)).Str("status", st.Status.String()).
			Msg("export ignored, renderer not mounted")
		return nil
	}

	start := time.Now()
	var err error
	switch f {
	case FormatCSV:
		err = h.ExportDataAsCsv(ctx)
	case FormatSpreadsheet:
		err = h.ExportDataAsExcel(ctx)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
	elapsed := time.Since(start)

	if errors.Is(err, ErrRendererDetached) {
		exportsTotal.WithLabelValues(string(f), "unavailable").Inc()
		c.logger.Debug().Str("format", string(f)).Str("dataset", st.Dataset).
			Msg("export ignored, renderer detached")
		return nil
	}

	entry := audit.NewEntry(audit.OpExport, audit.StatusSuccess).
		WithResource(st.Dataset).
		WithTarget(string(f)).
		WithSource(c.sourceType).
		WithDuration(elapsed).
		WithMetadata("generation", st.Generation)

	if err != nil {
		exportsTotal.WithLabelValues(string(f), "error").Inc()
		c.logger.Error().Err(err).Str("dataset", st.Dataset).Str("format", string(f)).Msg("export failed")
		entry.Status = audit.StatusFailure
		c.logAudit(entry.WithError(err))
		return fmt.Errorf("export %s as %s: %w", st.Dataset, f, err)
	}

	exportsTotal.WithLabelValues(string(f), "ok").Inc()
	c.logger.Info().Str("dataset", st.Dataset).Str("format", string(f)).Dur("elapsed", elapsed).Msg("export completed")
	c.logAudit(entry)
	return nil
}

// WaitSettled blocks until the current cycle has published its terminal state
// and mounted the renderer, or ctx ends. An Idle controller returns at once.
// A cycle cut short by Close returns ErrClosed.
func (c *Controller) WaitSettled(ctx context.Context) (State, error) {
	for {
		c.mu.Lock()
		ch := c.settled
		c.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return c.State(), ctx.Err()
		}

		c.mu.Lock()
		st, current, closed := c.state, c.settled == ch, c.closed
		c.mu.Unlock()

		if !current {
			continue // a newer cycle started meanwhile
		}
		if closed && st.Status == StatusLoading {
			return st, ErrClosed
		}
		return st, nil
	}
}

// Close stops new cycles, cancels in-flight fetches and waits for them.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	release(c.settled)
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()

	c.renderMu.Lock()
	c.renderer.Unmount()
	c.renderMu.Unlock()

	c.mu.Lock()
	c.handle = nil
	c.mu.Unlock()
	return nil
}

func (c *Controller) observersLocked() []func(State) {
	if len(c.observers) == 0 {
		return nil
	}
	ids := make([]int, 0, len(c.observers))
	for id := range c.observers {
		ids = append(ids, id)
	}
	slices.Sort(ids) // subscription order
	out := make([]func(State), len(ids))
	for i, id := range ids {
		out[i] = c.observers[id]
	}
	return out
}

// release closes ch unless it is already closed. Callers hold c.mu.
func release(ch chan struct{}) {
	select {
	case <-ch:
	default:
		close(ch)
	}
}

func notify(observers []func(State), st State) {
	for _, fn := range observers {
		fn(st)
	}
}

func (c *Controller) auditFetch(name string, gen uint64, status audit.Status, rows int, elapsed time.Duration, err error) {
	entry := audit.NewEntry(audit.OpQuery, status).
		WithResource(name).
		WithSource(c.sourceType).
		WithRecordsAffected(int64(rows)).
		WithDuration(elapsed).
		WithMetadata("generation", gen)
	if err != nil {
		entry.WithError(err)
	}
	c.logAudit(entry)
}

func (c *Controller) logAudit(entry *audit.Entry) {
	if err := c.audit.Log(context.Background(), entry); err != nil {
		c.logger.Warn().Err(err).Str("operation", string(entry.Operation)).Msg("audit write failed")
	}
}
