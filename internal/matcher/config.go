// Package matcher implements the billing-to-shipment matching engine.
//
// The engine links a billing record (a shipment line item parsed from a
// carrier invoice) to the operational shipment record it charges for. Four
// independent lookup strategies run concurrently against the record store,
// their candidates are merged per shipment identity, refined with secondary
// corroborating signals, and ranked into a single explainable decision with
// a calibrated confidence and a review-or-accept verdict.
//
// The matching pipeline:
//  1. Identifier extraction from the billing record
//  2. Parallel candidate lookup, one strategy per identifier type
//  3. Access-scope and carrier filtering inside each strategy
//  4. Cross-strategy deduplication keeping the best confidence
//  5. Score refinement from date proximity and amount similarity
//  6. Ranking, status classification, and the review decision
//
// Example usage:
//
//	engine := matcher.NewEngine(shipmentStore, matcher.DefaultConfig(), nil)
//	result, err := engine.Match(ctx, matcher.Request{
//		Record:   billingRecord,
//		Scope:    matcher.ScopeOf("ORG-1"),
//		CallerID: "ap-import",
//	})
package matcher

import (
	"fmt"
)

// Status classification thresholds, applied to the top candidate confidence.
const (
	ExcellentThreshold = 0.95
	GoodThreshold      = 0.85
	FairThreshold      = 0.70
)

// Config holds the tunable parameters of the matching engine. All scoring is
// a fixed, explainable formula; the engine does not learn weights from
// historical outcomes.
type Config struct {
	// KeyLookupConfidence is the base confidence for a shipment located by
	// direct document-key lookup on a platform shipment code.
	KeyLookupConfidence float64 `json:"key_lookup_confidence"`

	// FieldLookupConfidence is the base confidence for a shipment located
	// by field equality on the dedicated shipment-reference field.
	FieldLookupConfidence float64 `json:"field_lookup_confidence"`

	// TrackingConfidence is the base confidence for tracking-number matches.
	TrackingConfidence float64 `json:"tracking_confidence"`

	// ReferenceConfidence is the base confidence for reference-number matches.
	ReferenceConfidence float64 `json:"reference_confidence"`

	// DateAmountConfidence is the base confidence for date/amount
	// correlation before the amount-difference penalty.
	DateAmountConfidence float64 `json:"date_amount_confidence"`

	// AmountPenaltyFactor scales the relative amount difference subtracted
	// from the date/amount base confidence.
	AmountPenaltyFactor float64 `json:"amount_penalty_factor"`

	// AmountGatePercent is the relative amount difference above which a
	// date/amount candidate is discarded entirely.
	AmountGatePercent float64 `json:"amount_gate_percent"`

	// DateWindowDays is the half-width of the booking-date window for the
	// date/amount strategy and the date-proximity bonus.
	DateWindowDays int `json:"date_window_days"`

	// DateBonus is added when the booking date is within DateWindowDays of
	// the billing date.
	DateBonus float64 `json:"date_bonus"`

	// AmountBonus is added when the relative amount difference is below
	// AmountBonusPercent.
	AmountBonus float64 `json:"amount_bonus"`

	// AmountBonusPercent is the relative difference threshold for AmountBonus.
	AmountBonusPercent float64 `json:"amount_bonus_percent"`

	// ReviewThreshold is the auto-accept cutoff: any result whose top
	// confidence is below it requires human review.
	ReviewThreshold float64 `json:"review_threshold"`

	// MaxConcurrentLookups bounds the per-match lookup fan-out.
	MaxConcurrentLookups int `json:"max_concurrent_lookups"`

	// MaxCandidates caps the candidate list length in the result.
	// Zero means unlimited.
	MaxCandidates int `json:"max_candidates"`
}

// DefaultConfig returns the production configuration.
func DefaultConfig() *Config {
	return &Config{
		KeyLookupConfidence:   0.98,
		FieldLookupConfidence: 0.95,
		TrackingConfidence:    0.90,
		ReferenceConfidence:   0.85,
		DateAmountConfidence:  0.75,
		AmountPenaltyFactor:   2.0,
		AmountGatePercent:     0.10,
		DateWindowDays:        3,
		DateBonus:             0.05,
		AmountBonus:           0.05,
		AmountBonusPercent:    0.05,
		ReviewThreshold:       0.85,
		MaxConcurrentLookups:  8,
		MaxCandidates:         20,
	}
}

// StrictConfig returns a configuration that disables the weaker techniques,
// for reconciliation runs where false positives are costlier than manual
// review.
func StrictConfig() *Config {
	cfg := DefaultConfig()
	cfg.AmountGatePercent = 0.02
	cfg.DateWindowDays = 1
	cfg.ReviewThreshold = 0.95
	cfg.MaxCandidates = 5
	return cfg
}

// RelaxedConfig returns a configuration for exploratory matching over dirty
// invoice imports.
func RelaxedConfig() *Config {
	cfg := DefaultConfig()
	cfg.AmountGatePercent = 0.20
	cfg.DateWindowDays = 7
	cfg.ReviewThreshold = 0.70
	cfg.MaxCandidates = 50
	return cfg
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	for name, v := range map[string]float64{
		"key_lookup_confidence":   c.KeyLookupConfidence,
		"field_lookup_confidence": c.FieldLookupConfidence,
		"tracking_confidence":     c.TrackingConfidence,
		"reference_confidence":    c.ReferenceConfidence,
		"date_amount_confidence":  c.DateAmountConfidence,
		"review_threshold":        c.ReviewThreshold,
	} {
		if v < 0.0 || v > 1.0 {
			return fmt.Errorf("%s must be between 0.0 and 1.0: %f", name, v)
		}
	}

	if c.AmountPenaltyFactor < 0.0 {
		return fmt.Errorf("amount penalty factor cannot be negative: %f", c.AmountPenaltyFactor)
	}

	if c.AmountGatePercent < 0.0 || c.AmountGatePercent > 1.0 {
		return fmt.Errorf("amount gate percent must be between 0.0 and 1.0: %f", c.AmountGatePercent)
	}

	if c.AmountBonusPercent < 0.0 || c.AmountBonusPercent > 1.0 {
		return fmt.Errorf("amount bonus percent must be between 0.0 and 1.0: %f", c.AmountBonusPercent)
	}

	if c.DateWindowDays < 0 {
		return fmt.Errorf("date window days cannot be negative: %d", c.DateWindowDays)
	}

	if c.MaxConcurrentLookups <= 0 {
		return fmt.Errorf("max concurrent lookups must be positive: %d", c.MaxConcurrentLookups)
	}

	if c.MaxCandidates < 0 {
		return fmt.Errorf("max candidates cannot be negative: %d", c.MaxCandidates)
	}

	return nil
}

// Clone creates a copy of the configuration
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// String returns a human-readable description of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{DateWindow: %d days, AmountGate: %.0f%%, ReviewThreshold: %.2f, MaxLookups: %d}",
		c.DateWindowDays, c.AmountGatePercent*100, c.ReviewThreshold, c.MaxConcurrentLookups)
}
