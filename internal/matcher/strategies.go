package matcher

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"billing-match-service/internal/extractor"
	"billing-match-service/internal/models"
	"billing-match-service/internal/store"
	"billing-match-service/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// lookupTask is one bounded unit of fan-out: a single store call whose hits
// are filtered and fed into the accumulator. A task failure is recovered
// locally unless the request context is already dead.
type lookupTask func(ctx context.Context) error

// buildLookupTasks assembles every store lookup the extracted identifiers
// call for. The four strategies are independent; tasks are executed
// concurrently by the engine under a bounded worker pool.
func (e *Engine) buildLookupTasks(ids *extractor.Identifiers, req Request, acc *accumulator) []lookupTask {
	var tasks []lookupTask

	tasks = append(tasks, e.shipmentIDTasks(ids, req, acc)...)
	tasks = append(tasks, e.fieldEqualityTasks(
		models.StrategyTrackingNumber, store.TrackingFields,
		ids.TrackingNumbers, e.config.TrackingConfidence, req, acc)...)
	tasks = append(tasks, e.fieldEqualityTasks(
		models.StrategyReferenceNumber, store.ReferenceFields,
		ids.ReferenceNumbers, e.config.ReferenceConfidence, req, acc)...)

	if task := e.dateAmountTask(ids, req, acc); task != nil {
		tasks = append(tasks, task)
	}

	return tasks
}

// shipmentIDTasks produces the platform-code lookups: a direct key lookup
// per code, plus field-equality lookups on the dedicated shipment-reference
// field. The same shipment found both ways merges to the key-lookup
// confidence.
func (e *Engine) shipmentIDTasks(ids *extractor.Identifiers, req Request, acc *accumulator) []lookupTask {
	var tasks []lookupTask

	for _, id := range ids.ShipmentIDs {
		id := id
		tasks = append(tasks, func(ctx context.Context) error {
			sr, err := e.store.GetByKey(ctx, id)
			if stderrors.Is(err, store.ErrNotFound) {
				acc.lookupSucceeded()
				return nil
			}
			if err != nil {
				return e.recoverLookup(ctx, acc, models.StrategyShipmentID, "key", err)
			}

			acc.lookupSucceeded()
			if admit(sr, req.Scope, req.Carrier) {
				acc.add(&models.MatchCandidate{
					Shipment:     sr,
					Strategy:     models.StrategyShipmentID,
					MatchedField: "key",
					MatchedValue: id,
					Confidence:   e.config.KeyLookupConfidence,
				})
			}
			return nil
		})
	}

	tasks = append(tasks, e.fieldEqualityTasks(
		models.StrategyShipmentID, []store.Field{store.FieldShipmentID},
		ids.ShipmentIDs, e.config.FieldLookupConfidence, req, acc)...)

	return tasks
}

// fieldEqualityTasks produces one lookup task per (field, value-chunk) pair,
// chunking identifier values to the store's batch limit.
func (e *Engine) fieldEqualityTasks(strategy models.Strategy, fields []store.Field, values []string, confidence float64, req Request, acc *accumulator) []lookupTask {
	if len(values) == 0 {
		return nil
	}

	var tasks []lookupTask
	for _, field := range fields {
		field := field
		for _, chunk := range chunkValues(values, store.MaxBatchValues) {
			chunk := chunk
			tasks = append(tasks, func(ctx context.Context) error {
				hits, err := e.store.FindByField(ctx, field, chunk...)
				if err != nil {
					return e.recoverLookup(ctx, acc, strategy, string(field), err)
				}

				acc.lookupSucceeded()
				for _, sr := range hits {
					if !admit(sr, req.Scope, req.Carrier) {
						continue
					}

					matchedValue, _ := store.FieldValue(sr, field)
					acc.add(&models.MatchCandidate{
						Shipment:     sr,
						Strategy:     strategy,
						MatchedField: string(field),
						MatchedValue: matchedValue,
						Confidence:   confidence,
					})
				}
				return nil
			})
		}
	}

	return tasks
}

// dateAmountTask produces the correlation lookup: shipments booked within
// the configured window of the billing date, filtered post-hoc by amount
// similarity. Candidates whose relative amount difference exceeds the gate
// are discarded entirely; within the gate the base confidence is reduced by
// the penalty factor times the difference.
func (e *Engine) dateAmountTask(ids *extractor.Identifiers, req Request, acc *accumulator) lookupTask {
	if ids.Date.IsZero() {
		return nil
	}

	low := ids.Date.AddDate(0, 0, -e.config.DateWindowDays)
	high := ids.Date.AddDate(0, 0, e.config.DateWindowDays)

	return func(ctx context.Context) error {
		hits, err := e.store.FindByRange(ctx, store.FieldBookedAt, low, high)
		if err != nil {
			return e.recoverLookup(ctx, acc, models.StrategyDateAmount, string(store.FieldBookedAt), err)
		}

		acc.lookupSucceeded()
		for _, sr := range hits {
			if !admit(sr, req.Scope, req.Carrier) {
				continue
			}

			confidence := e.config.DateAmountConfidence
			if pct, ok := relativeAmountDifference(ids.Amount, sr.TotalCharges); ok {
				if pct > e.config.AmountGatePercent {
					continue
				}
				confidence -= e.config.AmountPenaltyFactor * pct
			}
			if confidence <= 0 {
				continue
			}

			acc.add(&models.MatchCandidate{
				Shipment:     sr,
				Strategy:     models.StrategyDateAmount,
				MatchedField: string(store.FieldBookedAt),
				MatchedValue: sr.BookedAt.Format("2006-01-02"),
				Confidence:   confidence,
			})
		}
		return nil
	}
}

// recoverLookup decides whether a failed store call aborts the match. A dead
// request context propagates and fails the whole request; anything else is
// logged, counted, and treated as zero candidates from this technique.
func (e *Engine) recoverLookup(ctx context.Context, acc *accumulator, strategy models.Strategy, field string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	acc.lookupFailed()
	e.log.WithFields(logger.Fields{
		"strategy": strategy.String(),
		"field":    field,
	}).WithError(err).Warn("Lookup failed, continuing without this technique")

	return nil
}

// runLookups executes the tasks under a bounded worker pool and waits for
// fan-in to complete.
func (e *Engine) runLookups(ctx context.Context, tasks []lookupTask) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.MaxConcurrentLookups)

	for _, task := range tasks {
		task := task
		g.Go(func() error {
			return task(gctx)
		})
	}

	return g.Wait()
}

// chunkValues splits values into chunks of at most size elements.
func chunkValues(values []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}

	var chunks [][]string
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}

	return chunks
}

// describeWindow formats the date window for debug logging.
func describeWindow(date time.Time, days int) string {
	return fmt.Sprintf("%s ±%dd", date.Format("2006-01-02"), days)
}
