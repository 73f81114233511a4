// Package models defines the core data types shared across the matching
// service: the billing record parsed from a carrier invoice line, the
// operational shipment record returned by the record store, and the
// candidate/result types produced by the matching engine.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Strategy identifies one independent technique for locating candidate
// shipments. The declaration order is the priority order: an earlier strategy
// is strictly more specific than a later one, and wins exact confidence ties.
type Strategy int

const (
	// StrategyShipmentID matches on the platform shipment code (ICAL-XXXXXX).
	StrategyShipmentID Strategy = iota
	// StrategyTrackingNumber matches on carrier tracking or pro numbers.
	StrategyTrackingNumber
	// StrategyReferenceNumber matches on customer or shipper references.
	StrategyReferenceNumber
	// StrategyDateAmount correlates booking date proximity with charge amount.
	StrategyDateAmount
)

// String returns the string representation of the Strategy
func (s Strategy) String() string {
	switch s {
	case StrategyShipmentID:
		return "shipment_id"
	case StrategyTrackingNumber:
		return "tracking_number"
	case StrategyReferenceNumber:
		return "reference_number"
	case StrategyDateAmount:
		return "date_amount"
	default:
		return "unknown"
	}
}

// HigherPriorityThan reports whether s outranks other on exact confidence ties.
func (s Strategy) HigherPriorityThan(other Strategy) bool {
	return s < other
}

// MatchStatus classifies the overall quality of a match result based on the
// top candidate's confidence.
type MatchStatus string

const (
	// StatusExcellent indicates top confidence >= 0.95; safe to auto-accept.
	StatusExcellent MatchStatus = "EXCELLENT"
	// StatusGood indicates top confidence >= 0.85.
	StatusGood MatchStatus = "GOOD"
	// StatusFair indicates top confidence >= 0.70; review required.
	StatusFair MatchStatus = "FAIR"
	// StatusPoor indicates a candidate exists but confidence is below 0.70.
	StatusPoor MatchStatus = "POOR"
	// StatusNoMatch indicates no candidate survived filtering.
	StatusNoMatch MatchStatus = "NO_MATCH"
)

// String returns the string representation of MatchStatus
func (ms MatchStatus) String() string {
	return string(ms)
}

// IsValid checks if the match status is a known value
func (ms MatchStatus) IsValid() bool {
	switch ms {
	case StatusExcellent, StatusGood, StatusFair, StatusPoor, StatusNoMatch:
		return true
	default:
		return false
	}
}

// BillingRecord is one carrier-invoice line item to be reconciled against
// operational data. It is immutable for the duration of a match request.
type BillingRecord struct {
	// ShipmentReference is the carrier- or platform-assigned reference
	// printed on the invoice line. It may or may not be a platform code.
	ShipmentReference string `json:"shipment_reference" csv:"shipment_reference"`

	// Description is the free-text line description from the invoice.
	Description string `json:"description" csv:"description"`

	// Notes carries any additional free text attached to the line.
	Notes string `json:"notes,omitempty" csv:"notes"`

	// TrackingNumber is the carrier tracking number, if present.
	TrackingNumber string `json:"tracking_number" csv:"tracking_number"`

	// ProNumber is the bill-of-lading / pro number, if present.
	ProNumber string `json:"pro_number" csv:"pro_number"`

	// References holds customer or invoice reference strings.
	References []string `json:"references,omitempty" csv:"references"`

	// Amount is the invoiced line amount.
	Amount decimal.Decimal `json:"amount" csv:"amount"`

	// Date is the ship or invoice date. Zero when absent.
	Date time.Time `json:"date" csv:"date"`

	// ChargeDescriptions holds free-text charge line descriptions.
	ChargeDescriptions []string `json:"charge_descriptions,omitempty" csv:"charge_descriptions"`
}

// Validate performs basic structural validation on the BillingRecord.
// A record with no identifiers at all is still valid input; validation only
// rejects records that are structurally unusable.
func (br *BillingRecord) Validate() error {
	if br == nil {
		return fmt.Errorf("billing record cannot be nil")
	}

	if br.Amount.IsNegative() {
		return fmt.Errorf("billing amount cannot be negative: %s", br.Amount.String())
	}

	return nil
}

// String returns a short string representation of the BillingRecord
func (br *BillingRecord) String() string {
	date := "-"
	if !br.Date.IsZero() {
		date = br.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("BillingRecord{Ref: %s, Tracking: %s, Amount: %s, Date: %s}",
		br.ShipmentReference, br.TrackingNumber, br.Amount.String(), date)
}

// CarrierConfirmation holds the carrier-assigned identifiers recorded when a
// booking is confirmed with the carrier.
type CarrierConfirmation struct {
	TrackingNumber  string `json:"tracking_number,omitempty"`
	ProNumber       string `json:"pro_number,omitempty"`
	CarrierTracking string `json:"carrier_tracking,omitempty"`
}

// ShipmentReferences holds the reference strings attached to a shipment by
// the shipper, the customer, or legacy imports.
type ShipmentReferences struct {
	Shipper  string `json:"shipper,omitempty"`
	Customer string `json:"customer,omitempty"`
	General  string `json:"general,omitempty"`
	Legacy   string `json:"legacy,omitempty"`
}

// ShipmentRecord is the platform's own record of a booked shipment as
// returned by the operational record store. The matcher never mutates it.
type ShipmentRecord struct {
	// Key is the store document key, unique per shipment.
	Key string `json:"key"`

	// ShipmentID is the dedicated shipment-reference field. For most
	// shipments it equals Key, but legacy imports may differ.
	ShipmentID string `json:"shipment_id"`

	// OrgKey identifies the owning organization; access scoping is
	// enforced against this field.
	OrgKey string `json:"org_key"`

	// CarrierName is the display name of the carrier the shipment was
	// booked with.
	CarrierName string `json:"carrier_name"`

	// BookedAt is the booking timestamp. Zero when unknown.
	BookedAt time.Time `json:"booked_at"`

	// TotalCharges is the booked total charge amount. Zero when unknown.
	TotalCharges decimal.Decimal `json:"total_charges"`

	// TrackingNumber is the primary tracking field on the shipment.
	TrackingNumber string `json:"tracking_number,omitempty"`

	// Confirmation holds carrier-assigned identifiers captured at booking.
	Confirmation CarrierConfirmation `json:"confirmation"`

	// References holds the shipper/customer/legacy reference strings.
	References ShipmentReferences `json:"references"`
}

// Validate performs basic validation on the ShipmentRecord
func (sr *ShipmentRecord) Validate() error {
	if strings.TrimSpace(sr.Key) == "" {
		return fmt.Errorf("shipment key cannot be empty")
	}

	if strings.TrimSpace(sr.OrgKey) == "" {
		return fmt.Errorf("shipment org key cannot be empty")
	}

	return nil
}

// String returns a short string representation of the ShipmentRecord
func (sr *ShipmentRecord) String() string {
	booked := "-"
	if !sr.BookedAt.IsZero() {
		booked = sr.BookedAt.Format("2006-01-02")
	}
	return fmt.Sprintf("ShipmentRecord{Key: %s, Org: %s, Carrier: %s, Booked: %s, Charges: %s}",
		sr.Key, sr.OrgKey, sr.CarrierName, booked, sr.TotalCharges.String())
}

// MatchCandidate is a shipment proposed as a possible match for a billing
// record, tagged with the strategy and confidence that produced it.
type MatchCandidate struct {
	Shipment *ShipmentRecord `json:"shipment"`

	// Strategy is the highest-priority strategy that located the shipment.
	Strategy Strategy `json:"strategy"`

	// MatchedField names the store field the winning lookup hit.
	MatchedField string `json:"matched_field"`

	// MatchedValue is the identifier value the winning lookup used.
	MatchedValue string `json:"matched_value"`

	// Confidence is a calibrated heuristic score in [0,1], not a probability.
	Confidence float64 `json:"confidence"`

	// MatchedBy lists every strategy that located this shipment, in
	// priority order. Kept for explainability; not used in scoring.
	MatchedBy []Strategy `json:"matched_by"`
}

// String returns a short string representation of the MatchCandidate
func (mc *MatchCandidate) String() string {
	return fmt.Sprintf("MatchCandidate{Shipment: %s, Strategy: %s, Field: %s, Confidence: %.3f}",
		mc.Shipment.Key, mc.Strategy, mc.MatchedField, mc.Confidence)
}

// MarshalJSON renders strategy names rather than their numeric values so
// audit entries and reports stay readable.
func (mc *MatchCandidate) MarshalJSON() ([]byte, error) {
	matchedBy := make([]string, 0, len(mc.MatchedBy))
	for _, s := range mc.MatchedBy {
		matchedBy = append(matchedBy, s.String())
	}

	return json.Marshal(&struct {
		Shipment     *ShipmentRecord `json:"shipment"`
		Strategy     string          `json:"strategy"`
		MatchedField string          `json:"matched_field"`
		MatchedValue string          `json:"matched_value"`
		Confidence   float64         `json:"confidence"`
		MatchedBy    []string        `json:"matched_by"`
	}{
		Shipment:     mc.Shipment,
		Strategy:     mc.Strategy.String(),
		MatchedField: mc.MatchedField,
		MatchedValue: mc.MatchedValue,
		Confidence:   mc.Confidence,
		MatchedBy:    matchedBy,
	})
}

// MatchResult is the complete, ranked outcome of matching one billing record.
type MatchResult struct {
	// Input is the billing record the result was produced for.
	Input *BillingRecord `json:"input"`

	// Candidates is the deduplicated candidate list, sorted by confidence
	// descending with ties broken by strategy priority.
	Candidates []*MatchCandidate `json:"candidates"`

	// BestMatch is Candidates[0] when the list is non-empty, nil otherwise.
	BestMatch *MatchCandidate `json:"best_match,omitempty"`

	// Status classifies the result from the top confidence.
	Status MatchStatus `json:"status"`

	// ReviewRequired is true when no candidate exists or the top confidence
	// is below the auto-accept threshold.
	ReviewRequired bool `json:"review_required"`
}

// String returns a short string representation of the MatchResult
func (mr *MatchResult) String() string {
	best := "none"
	if mr.BestMatch != nil {
		best = fmt.Sprintf("%s (%.3f)", mr.BestMatch.Shipment.Key, mr.BestMatch.Confidence)
	}
	return fmt.Sprintf("MatchResult{Status: %s, Candidates: %d, Best: %s, Review: %t}",
		mr.Status, len(mr.Candidates), best, mr.ReviewRequired)
}

// Utility functions shared by parsers and generators

// ParseDecimalFromString parses a decimal value from string with validation
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	// Strip common currency symbols and thousand separators
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseTimeWithFormats attempts to parse time from string using multiple
// formats commonly seen in carrier invoice exports.
func ParseTimeWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("time string cannot be empty")
	}

	formats := []string{
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
		"01/02/2006 15:04:05",
		"01/02/2006",
		"2006/01/02",
		"Jan 2, 2006",
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time '%s': %w", s, lastErr)
}

// SplitMultiValue splits a multi-value CSV cell (semicolon separated) into
// trimmed, non-empty parts.
func SplitMultiValue(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	parts := strings.Split(s, ";")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			values = append(values, p)
		}
	}

	return values
}
