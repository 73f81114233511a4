package matcher

import (
	"math"
	"testing"
	"time"

	"billing-match-service/internal/models"
	"billing-match-service/internal/store"

	"github.com/shopspring/decimal"
)

func scoringEngine() *Engine {
	return NewEngine(store.NewMemStore(), nil, nil)
}

func TestRefineConfidenceBonuses(t *testing.T) {
	engine := scoringEngine()
	booked := time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		record *models.BillingRecord
		base   float64
		want   float64
	}{
		{
			name: "both bonuses",
			record: &models.BillingRecord{
				Date:   time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
				Amount: decimal.NewFromFloat(510.00),
			},
			base: 0.85,
			want: 0.95,
		},
		{
			name: "date bonus only",
			record: &models.BillingRecord{
				Date:   time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC),
				Amount: decimal.NewFromFloat(600.00),
			},
			base: 0.85,
			want: 0.90,
		},
		{
			name: "amount bonus only",
			record: &models.BillingRecord{
				Date:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
				Amount: decimal.NewFromFloat(520.00),
			},
			base: 0.85,
			want: 0.90,
		},
		{
			name:   "no signals",
			record: &models.BillingRecord{},
			base:   0.85,
			want:   0.85,
		},
		{
			name: "capped at one",
			record: &models.BillingRecord{
				Date:   time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
				Amount: decimal.NewFromFloat(520.00),
			},
			base: 0.98,
			want: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := &models.MatchCandidate{
				Shipment: &models.ShipmentRecord{
					Key:          "ICAL-AAA111",
					OrgKey:       "ORG-1",
					BookedAt:     booked,
					TotalCharges: decimal.NewFromFloat(520.00),
				},
				Confidence: tt.base,
			}

			engine.refineConfidence(candidate, tt.record)
			if math.Abs(candidate.Confidence-tt.want) > 1e-9 {
				t.Errorf("confidence = %.6f, want %.6f", candidate.Confidence, tt.want)
			}
		})
	}
}

func TestRefineConfidenceSkipsMissingSignals(t *testing.T) {
	engine := scoringEngine()

	// Shipment with no booking date and no charges: neither bonus can apply
	// even though the billing record carries both signals.
	candidate := &models.MatchCandidate{
		Shipment:   &models.ShipmentRecord{Key: "ICAL-AAA111", OrgKey: "ORG-1"},
		Confidence: 0.85,
	}
	record := &models.BillingRecord{
		Date:   time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
		Amount: decimal.NewFromFloat(100.00),
	}

	engine.refineConfidence(candidate, record)
	if candidate.Confidence != 0.85 {
		t.Errorf("confidence = %.6f, want unchanged 0.85", candidate.Confidence)
	}
}

func TestCalendarDaysApart(t *testing.T) {
	tests := []struct {
		a, b time.Time
		want int
	}{
		{
			// Same calendar day, different times.
			time.Date(2024, 3, 12, 1, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 12, 23, 0, 0, 0, time.UTC),
			0,
		},
		{
			// 23 hours apart but on adjacent calendar days.
			time.Date(2024, 3, 12, 23, 30, 0, 0, time.UTC),
			time.Date(2024, 3, 13, 0, 15, 0, 0, time.UTC),
			1,
		},
		{
			time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC),
			3,
		},
		{
			// Order must not matter.
			time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
			5,
		},
	}

	for _, tt := range tests {
		if got := calendarDaysApart(tt.a, tt.b); got != tt.want {
			t.Errorf("calendarDaysApart(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRelativeAmountDifference(t *testing.T) {
	pct, ok := relativeAmountDifference(decimal.NewFromFloat(500), decimal.NewFromFloat(520))
	if !ok {
		t.Fatal("expected a computable difference")
	}
	if math.Abs(pct-20.0/520.0) > 1e-9 {
		t.Errorf("pct = %.6f", pct)
	}

	// Symmetric in sign of the difference.
	pct2, _ := relativeAmountDifference(decimal.NewFromFloat(540), decimal.NewFromFloat(520))
	if math.Abs(pct2-20.0/520.0) > 1e-9 {
		t.Errorf("pct = %.6f", pct2)
	}

	if _, ok := relativeAmountDifference(decimal.Zero, decimal.NewFromFloat(520)); ok {
		t.Error("zero invoice amount must not be comparable")
	}
	if _, ok := relativeAmountDifference(decimal.NewFromFloat(500), decimal.Zero); ok {
		t.Error("zero shipment charges must not be comparable")
	}
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		confidence float64
		want       models.MatchStatus
	}{
		{1.0, models.StatusExcellent},
		{0.95, models.StatusExcellent},
		{0.949, models.StatusGood},
		{0.85, models.StatusGood},
		{0.849, models.StatusFair},
		{0.70, models.StatusFair},
		{0.699, models.StatusPoor},
		{0.01, models.StatusPoor},
		{0.0, models.StatusNoMatch},
	}

	for _, tt := range tests {
		if got := classifyStatus(tt.confidence); got != tt.want {
			t.Errorf("classifyStatus(%.3f) = %s, want %s", tt.confidence, got, tt.want)
		}
	}
}
