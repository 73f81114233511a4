package matcher

import (
	"context"
	stderrors "errors"
	"sort"

	"billing-match-service/internal/audit"
	"billing-match-service/internal/extractor"
	"billing-match-service/internal/models"
	"billing-match-service/internal/store"
	"billing-match-service/pkg/errors"
	"billing-match-service/pkg/logger"
)

// Engine is the billing-to-shipment matching engine. It holds no per-request
// state and is safe for concurrent use; every entity of a match request is
// constructed fresh and discarded once the result is returned.
type Engine struct {
	store    store.ShipmentStore
	config   *Config
	recorder audit.Recorder
	log      logger.Logger
}

// Request carries one match invocation: the billing record, the caller's
// access scope, the optional carrier constraint, and the caller identity for
// the audit trail.
type Request struct {
	Record   *models.BillingRecord
	Scope    ScopeFilter
	Carrier  *CarrierFilter
	CallerID string
}

// NewEngine creates a matching engine over the given shipment store. A nil
// config falls back to DefaultConfig; a nil recorder disables auditing.
func NewEngine(st store.ShipmentStore, config *Config, recorder audit.Recorder) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}

	return &Engine{
		store:    st,
		config:   config,
		recorder: recorder,
		log:      logger.WithComponent("matcher"),
	}
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() *Config {
	return e.config.Clone()
}

// Match links a billing record to its operational shipment record. It
// returns an error only for infrastructure failures (store unreachable,
// deadline exceeded); finding no candidates is a successful result with
// StatusNoMatch.
func (e *Engine) Match(ctx context.Context, req Request) (*models.MatchResult, error) {
	if req.Record == nil {
		return nil, errors.InputError(errors.CodeMissingRecord, "", nil)
	}
	if err := req.Record.Validate(); err != nil {
		return nil, errors.InputError(errors.CodeInvalidRecord, err.Error(), err)
	}

	ids := extractor.Extract(req.Record)
	if !ids.Date.IsZero() {
		e.log.WithFields(logger.Fields{
			"shipment_ids": len(ids.ShipmentIDs),
			"tracking":     len(ids.TrackingNumbers),
			"references":   len(ids.ReferenceNumbers),
			"date_window":  describeWindow(ids.Date, e.config.DateWindowDays),
		}).Debug("Extracted identifiers")
	}

	acc := newAccumulator()
	tasks := e.buildLookupTasks(ids, req, acc)

	if err := e.runLookups(ctx, tasks); err != nil {
		return nil, e.infrastructureError(err)
	}

	if acc.storeUnreachable() {
		return nil, errors.InfrastructureError(errors.CodeStoreUnreachable, "candidate lookup", nil)
	}

	candidates := acc.merged()
	for _, c := range candidates {
		e.refineConfidence(c, req.Record)
	}

	result := e.rankAndClassify(req.Record, candidates)

	if err := e.recorder.Record(ctx, result, req.CallerID); err != nil {
		auditErr := errors.AuditError("recorder", err)
		e.log.WithError(auditErr).Warn("Audit write failed, result unaffected")
	}

	return result, nil
}

// rankAndClassify sorts the scored candidates, assigns the overall status
// from the top confidence, and makes the review decision. Pure and
// stateless; ties break by strategy priority and then shipment key so the
// ordering is reproducible for identical store contents.
func (e *Engine) rankAndClassify(rec *models.BillingRecord, candidates []*models.MatchCandidate) *models.MatchResult {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		if candidates[i].Strategy != candidates[j].Strategy {
			return candidates[i].Strategy.HigherPriorityThan(candidates[j].Strategy)
		}
		return candidates[i].Shipment.Key < candidates[j].Shipment.Key
	})

	if e.config.MaxCandidates > 0 && len(candidates) > e.config.MaxCandidates {
		candidates = candidates[:e.config.MaxCandidates]
	}

	result := &models.MatchResult{
		Input:      rec,
		Candidates: candidates,
	}

	if len(candidates) == 0 {
		result.Status = models.StatusNoMatch
		result.ReviewRequired = true
		return result
	}

	result.BestMatch = candidates[0]
	result.Status = classifyStatus(result.BestMatch.Confidence)
	result.ReviewRequired = result.BestMatch.Confidence < e.config.ReviewThreshold

	return result
}

// classifyStatus maps a top confidence onto the status ladder.
func classifyStatus(confidence float64) models.MatchStatus {
	switch {
	case confidence >= ExcellentThreshold:
		return models.StatusExcellent
	case confidence >= GoodThreshold:
		return models.StatusGood
	case confidence >= FairThreshold:
		return models.StatusFair
	case confidence > 0:
		return models.StatusPoor
	default:
		return models.StatusNoMatch
	}
}

// infrastructureError maps a fatal fan-out failure onto the error taxonomy.
func (e *Engine) infrastructureError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.InfrastructureError(errors.CodeDeadlineExceeded, "candidate lookup", err)
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.InfrastructureError(errors.CodeDeadlineExceeded, "candidate lookup canceled", err)
	}
	return errors.InfrastructureError(errors.CodeStoreUnreachable, "candidate lookup", err)
}
