package migration

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RunOptions configures Run.
type RunOptions struct {
	Offset   int
	PageSize int
	Delay    time.Duration // minimum spacing between page starts

	// OnPage is called after every successful page.
	OnPage func(page PageResult, p Progress)
}

// Progress describes how far a Run has advanced.
type Progress struct {
	Done    int `json:"done"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

// Summary totals a Run.
type Summary struct {
	Pages     int   `json:"pages"`
	Processed int   `json:"processed"`
	Stats     Stats `json:"stats"`
	Complete  bool  `json:"complete"`
	Offset    int   `json:"offset"` // where to resume
}

// Percent returns done as a share of total in [0, 100]. An empty set is
// fully done.
func Percent(done, total int) int {
	if total <= 0 {
		return 100
	}
	p := done * 100 / total
	if p > 100 {
		return 100
	}
	if p < 0 {
		return 0
	}
	return p
}

// Run drives ProcessPage from opts.Offset until the migration completes,
// ctx is cancelled, or a page fails. Failed pages are not retried; the
// returned Summary.Offset is where a later Run can resume.
func Run(ctx context.Context, c *Controller, opts RunOptions) (Summary, error) {
	sum := Summary{Offset: opts.Offset}
	total, err := c.Count(ctx)
	if err != nil {
		return sum, err
	}

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	pacer := rate.NewLimiter(limit, 1)

	for {
		if err := pacer.Wait(ctx); err != nil {
			return sum, err
		}
		page, err := c.ProcessPage(ctx, sum.Offset, opts.PageSize)
		if err != nil {
			return sum, err
		}
		sum.Pages++
		sum.Processed += page.Processed
		sum.Stats.Migrated += page.Stats.Migrated
		sum.Stats.Skipped += page.Stats.Skipped
		sum.Offset = page.NextOffset
		sum.Complete = page.Complete

		if opts.OnPage != nil {
			opts.OnPage(page, Progress{
				Done:    sum.Offset,
				Total:   total,
				Percent: Percent(sum.Offset, total),
			})
		}
		if page.Complete {
			return sum, nil
		}
	}
}
