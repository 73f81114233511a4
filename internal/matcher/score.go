package matcher

import (
	"time"

	"billing-match-service/internal/models"

	"github.com/shopspring/decimal"
)

// refineConfidence adjusts a merged candidate's confidence using secondary
// corroborating signals. It is a pure function of the candidate and the
// billing record: two small additive bonuses, capped at 1.0, never reduced
// below the base.
//
// Runs after merging so a date/amount-only match cannot double-count its own
// signal, and a high-confidence identifier match can still pick up small
// corroboration bumps. Missing dates or amounts skip the bonus rather than
// disqualifying the candidate.
func (e *Engine) refineConfidence(c *models.MatchCandidate, rec *models.BillingRecord) {
	confidence := c.Confidence

	if !rec.Date.IsZero() && !c.Shipment.BookedAt.IsZero() {
		if calendarDaysApart(rec.Date, c.Shipment.BookedAt) <= e.config.DateWindowDays {
			confidence += e.config.DateBonus
		}
	}

	if pct, ok := relativeAmountDifference(rec.Amount, c.Shipment.TotalCharges); ok {
		if pct < e.config.AmountBonusPercent {
			confidence += e.config.AmountBonus
		}
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	if confidence < 0.0 {
		confidence = 0.0
	}

	c.Confidence = confidence
}

// calendarDaysApart returns the absolute distance between two timestamps in
// whole calendar days, ignoring the time-of-day component.
func calendarDaysApart(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)

	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}

	return int(diff.Hours() / 24)
}

// relativeAmountDifference returns |invoice - shipment| / shipment. The
// second return value is false when either amount is zero or absent, in
// which case amount-based scoring is skipped.
func relativeAmountDifference(invoiceAmount, shipmentAmount decimal.Decimal) (float64, bool) {
	if invoiceAmount.IsZero() || shipmentAmount.IsZero() {
		return 0, false
	}

	diff := invoiceAmount.Sub(shipmentAmount).Abs()
	return diff.Div(shipmentAmount.Abs()).InexactFloat64(), true
}
