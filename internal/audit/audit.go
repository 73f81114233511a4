// Package audit records finalized match results for later inspection.
//
// Recording is fire-and-forget from the engine's point of view: a failed
// audit write must never fail the match, so the engine logs recorder errors
// as warnings and returns the result to the caller regardless.
package audit

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"billing-match-service/internal/models"
	"billing-match-service/pkg/logger"

	"github.com/google/uuid"
)

// Recorder receives finalized match results for persistence.
type Recorder interface {
	Record(ctx context.Context, result *models.MatchResult, callerID string) error
}

// Entry is the persisted form of one match decision.
type Entry struct {
	ID             string             `json:"id"`
	RecordedAt     time.Time          `json:"recorded_at"`
	CallerID       string             `json:"caller_id"`
	Status         models.MatchStatus `json:"status"`
	ReviewRequired bool               `json:"review_required"`
	CandidateCount int                `json:"candidate_count"`
	BestShipment   string             `json:"best_shipment,omitempty"`
	BestStrategy   string             `json:"best_strategy,omitempty"`
	BestConfidence float64            `json:"best_confidence,omitempty"`
	InvoiceRef     string             `json:"invoice_ref,omitempty"`
}

// NewEntry builds an audit entry from a finalized match result.
func NewEntry(result *models.MatchResult, callerID string) *Entry {
	entry := &Entry{
		ID:             uuid.NewString(),
		RecordedAt:     time.Now().UTC(),
		CallerID:       callerID,
		Status:         result.Status,
		ReviewRequired: result.ReviewRequired,
		CandidateCount: len(result.Candidates),
	}

	if result.Input != nil {
		entry.InvoiceRef = result.Input.ShipmentReference
	}

	if best := result.BestMatch; best != nil {
		entry.BestShipment = best.Shipment.Key
		entry.BestStrategy = best.Strategy.String()
		entry.BestConfidence = best.Confidence
	}

	return entry
}

// LogRecorder writes audit entries as structured log lines.
type LogRecorder struct {
	log logger.Logger
}

// NewLogRecorder creates a recorder backed by the given logger.
func NewLogRecorder(log logger.Logger) *LogRecorder {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &LogRecorder{log: log.WithComponent("audit")}
}

// Record implements Recorder.
func (r *LogRecorder) Record(ctx context.Context, result *models.MatchResult, callerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := NewEntry(result, callerID)
	r.log.WithFields(logger.Fields{
		"audit_id":        entry.ID,
		"caller":          entry.CallerID,
		"status":          entry.Status.String(),
		"review_required": entry.ReviewRequired,
		"candidates":      entry.CandidateCount,
		"best_shipment":   entry.BestShipment,
		"best_strategy":   entry.BestStrategy,
		"best_confidence": entry.BestConfidence,
	}).Info("Match recorded")

	return nil
}

// FileRecorder appends audit entries to a JSON-lines file.
type FileRecorder struct {
	mu   sync.Mutex
	file *os.File
}

// NewFileRecorder opens (or creates) the audit file in append mode.
func NewFileRecorder(path string) (*FileRecorder, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &FileRecorder{file: file}, nil
}

// Record implements Recorder.
func (r *FileRecorder) Record(ctx context.Context, result *models.MatchResult, callerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(NewEntry(result, callerID))
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.file.Write(append(data, '\n'))
	return err
}

// Close closes the underlying file.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}

// NopRecorder discards every entry. Used when auditing is disabled.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(context.Context, *models.MatchResult, string) error {
	return nil
}
