// Package batch orchestrates matching a whole invoice import against the
// shipment store: bounded-parallel execution of individual match requests,
// progress logging, and summary statistics for the run.
package batch

import (
	"context"
	"time"

	"billing-match-service/internal/matcher"
	"billing-match-service/internal/models"
	"billing-match-service/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the batch concurrency used when Options.Workers is zero.
const DefaultWorkers = 4

// Options configures one batch run.
type Options struct {
	// CallerID identifies the principal for the audit trail.
	CallerID string

	// Scope is the caller's authorized organization scope.
	Scope matcher.ScopeFilter

	// Carrier is an optional secondary carrier constraint.
	Carrier *matcher.CarrierFilter

	// Workers bounds how many records are matched concurrently.
	Workers int
}

// Summary aggregates the outcome of one batch run.
type Summary struct {
	Total          int           `json:"total"`
	Excellent      int           `json:"excellent"`
	Good           int           `json:"good"`
	Fair           int           `json:"fair"`
	Poor           int           `json:"poor"`
	NoMatch        int           `json:"no_match"`
	ReviewRequired int           `json:"review_required"`
	Elapsed        time.Duration `json:"elapsed"`
}

// AutoAccepted returns how many results can be accepted without review.
func (s *Summary) AutoAccepted() int {
	return s.Total - s.ReviewRequired
}

// Processor runs batches of billing records through a matching engine.
type Processor struct {
	engine *matcher.Engine
	logger logger.Logger
}

// NewProcessor creates a batch processor over the given engine.
func NewProcessor(engine *matcher.Engine) *Processor {
	return &Processor{
		engine: engine,
		logger: logger.WithComponent("batch"),
	}
}

// Run matches every record and returns the results in input order. A single
// record's infrastructure failure aborts the batch; anything the engine
// recovers internally (failed techniques, audit write failures) does not.
func (p *Processor) Run(ctx context.Context, records []*models.BillingRecord, opts Options) ([]*models.MatchResult, *Summary, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	start := time.Now()
	progress := logger.NewProgressTracker(p.logger, "batch_match", int64(len(records)), 0)

	results := make([]*models.MatchResult, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, record := range records {
		i, record := i, record
		g.Go(func() error {
			result, err := p.engine.Match(gctx, matcher.Request{
				Record:   record,
				Scope:    opts.Scope,
				Carrier:  opts.Carrier,
				CallerID: opts.CallerID,
			})
			if err != nil {
				return err
			}

			results[i] = result
			progress.Increment()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	progress.Complete()

	summary := summarize(results)
	summary.Elapsed = time.Since(start)

	p.logger.WithFields(logger.Fields{
		"total":           summary.Total,
		"review_required": summary.ReviewRequired,
		"no_match":        summary.NoMatch,
		"elapsed":         summary.Elapsed.Round(time.Millisecond).String(),
	}).Info("Batch complete")

	return results, summary, nil
}

func summarize(results []*models.MatchResult) *Summary {
	summary := &Summary{Total: len(results)}

	for _, result := range results {
		switch result.Status {
		case models.StatusExcellent:
			summary.Excellent++
		case models.StatusGood:
			summary.Good++
		case models.StatusFair:
			summary.Fair++
		case models.StatusPoor:
			summary.Poor++
		case models.StatusNoMatch:
			summary.NoMatch++
		}

		if result.ReviewRequired {
			summary.ReviewRequired++
		}
	}

	return summary
}
