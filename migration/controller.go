package migration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidPage is returned for a negative offset or limit.
var ErrInvalidPage = errors.New("migration: offset and limit must not be negative")

// Stats counts page outcomes.
type Stats struct {
	Migrated int `json:"migrated"`
	Skipped  int `json:"skipped"`
}

// PageResult is the response to one ProcessPage call.
type PageResult struct {
	Processed  int      `json:"processed"`
	Log        []string `json:"log"`
	Stats      Stats    `json:"stats"`
	Complete   bool     `json:"complete"`
	NextOffset int      `json:"next_offset"`
}

// Metrics observes controller activity. All methods must be safe for
// concurrent use.
type Metrics interface {
	ObserveOutcome(o Outcome)
	ObservePage(processed int, complete bool)
	ObserveStoreError(op string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveOutcome(Outcome)   {}
func (nopMetrics) ObservePage(int, bool)    {}
func (nopMetrics) ObserveStoreError(string) {}

// Controller runs the migration over pages of eligible documents. It keeps
// no state between calls apart from what FlagStore persists.
type Controller struct {
	docs    DocumentStore
	flags   FlagStore
	filter  Filter
	logger  *slog.Logger
	metrics Metrics
	workers int
	dryRun  bool
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m Metrics) ControllerOption {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithWorkers processes up to n documents of a page concurrently. Results
// are still reported in fetch order.
func WithWorkers(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithDryRun evaluates documents without writing bodies or flags.
func WithDryRun(dry bool) ControllerOption {
	return func(c *Controller) {
		c.dryRun = dry
	}
}

// NewController creates a Controller over the given stores.
func NewController(docs DocumentStore, flags FlagStore, filter Filter, opts ...ControllerOption) *Controller {
	c := &Controller{
		docs:    docs,
		flags:   flags,
		filter:  filter,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		metrics: nopMetrics{},
		workers: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Count returns the number of eligible documents. It is used for progress
// reporting only; completion is decided by page size.
func (c *Controller) Count(ctx context.Context) (int, error) {
	n, err := c.docs.CountDocuments(ctx, c.filter)
	if err != nil {
		c.metrics.ObserveStoreError("count")
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// State returns the persisted notice flags.
func (c *Controller) State(ctx context.Context) (State, error) {
	s, err := c.flags.LoadState(ctx)
	if err != nil {
		c.metrics.ObserveStoreError("load_state")
		return State{}, fmt.Errorf("load state: %w", err)
	}
	return s, nil
}

// Dismiss hides the operator notice without completing the migration.
func (c *Controller) Dismiss(ctx context.Context) error {
	s, err := c.State(ctx)
	if err != nil {
		return err
	}
	s.NoticeVisible = false
	if err := c.flags.SaveState(ctx, s); err != nil {
		c.metrics.ObserveStoreError("save_state")
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// ProcessPage migrates up to limit eligible documents starting at offset.
//
// A page shorter than limit is the last one: the migration is marked
// complete and the notice hidden. A limit of zero is an empty last page.
// Failed writes are reported as skips; a failed fetch fails the whole page
// and no counters are returned.
func (c *Controller) ProcessPage(ctx context.Context, offset, limit int) (PageResult, error) {
	if offset < 0 || limit < 0 {
		return PageResult{}, ErrInvalidPage
	}
	state, err := c.State(ctx)
	if err != nil {
		return PageResult{}, err
	}

	var docs []Document
	if limit > 0 {
		docs, err = c.docs.FetchDocuments(ctx, c.filter, offset, limit)
		if err != nil {
			c.metrics.ObserveStoreError("fetch")
			return PageResult{}, fmt.Errorf("fetch documents at offset %d: %w", offset, err)
		}
	}

	outcomes := c.apply(ctx, docs)

	res := PageResult{
		Processed:  len(docs),
		Log:        make([]string, 0, len(docs)),
		NextOffset: offset + len(docs),
	}
	for i, o := range outcomes {
		res.Log = append(res.Log, logLine(docs[i], o, c.dryRun))
		if o.Migrated {
			res.Stats.Migrated++
		} else {
			res.Stats.Skipped++
		}
	}

	if len(docs) < limit || limit == 0 {
		res.Complete = true
		if !c.dryRun {
			state.MigrationComplete = true
			state.NoticeVisible = false
			if err := c.flags.SaveState(ctx, state); err != nil {
				c.metrics.ObserveStoreError("save_state")
				return PageResult{}, fmt.Errorf("save state: %w", err)
			}
		}
	}

	c.metrics.ObservePage(res.Processed, res.Complete)
	c.logger.Info("migration page processed",
		"offset", offset,
		"limit", limit,
		"processed", res.Processed,
		"migrated", res.Stats.Migrated,
		"skipped", res.Stats.Skipped,
		"complete", res.Complete,
		"dry_run", c.dryRun,
	)
	return res, nil
}

// MigrateOne applies the migration to a single document by id. A missing
// document is reported as a skip rather than an error.
func (c *Controller) MigrateOne(ctx context.Context, id int64) (Outcome, error) {
	doc, err := c.docs.GetDocument(ctx, id)
	if errors.Is(err, ErrNotFound) {
		o := Decide(nil).Outcome
		c.metrics.ObserveOutcome(o)
		return o, nil
	}
	if err != nil {
		c.metrics.ObserveStoreError("get")
		return Outcome{}, fmt.Errorf("get document %d: %w", id, err)
	}
	return c.migrate(ctx, doc), nil
}

func (c *Controller) apply(ctx context.Context, docs []Document) []Outcome {
	outcomes := make([]Outcome, len(docs))
	if c.workers <= 1 || len(docs) <= 1 {
		for i, doc := range docs {
			outcomes[i] = c.migrate(ctx, doc)
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(c.workers)
	for i, doc := range docs {
		g.Go(func() error {
			outcomes[i] = c.migrate(ctx, doc)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (c *Controller) migrate(ctx context.Context, doc Document) Outcome {
	d := Decide(&doc)
	o := d.Outcome
	switch {
	case !o.Migrated:
	case c.dryRun:
		o.Reason = ReasonWouldMigrate
	default:
		if err := c.docs.WriteBody(ctx, doc.ID, d.Body); err != nil {
			o = Outcome{Reason: err.Error()}
			c.logger.Warn("write body failed", "id", doc.ID, "error", err)
		}
	}
	c.metrics.ObserveOutcome(o)
	c.logger.Debug("document evaluated", "id", doc.ID, "migrated", o.Migrated, "reason", o.Reason)
	return o
}

func logLine(doc Document, o Outcome, dryRun bool) string {
	switch {
	case o.Migrated && dryRun:
		return fmt.Sprintf("✓ Would migrate post ID %d: %s", doc.ID, doc.Title)
	case o.Migrated:
		return fmt.Sprintf("✓ Migrated post ID %d: %s", doc.ID, doc.Title)
	default:
		return fmt.Sprintf("⊘ Skipped post ID %d: %s", doc.ID, o.Reason)
	}
}
