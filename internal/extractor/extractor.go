// Package extractor pulls every candidate identifier out of a billing record.
//
// Carrier invoices arrive with noisy, partial, or multi-format identifiers:
// a platform shipment code may be embedded anywhere inside a free-text
// description, tracking numbers may appear in a dedicated column or not at
// all, and reference strings are whatever the shipper typed at booking time.
// The extractor scans a fixed ordered list of billing fields and produces a
// normalized, deduplicated set of identifiers per type, plus the derived
// (date, amount) pair used by the date/amount correlation strategy.
//
// Extraction never fails; a record with no usable identifiers yields empty
// sets, which is a valid (if unlikely-to-match) input.
package extractor

import (
	"regexp"
	"strings"
	"time"

	"billing-match-service/internal/models"

	"github.com/shopspring/decimal"
)

// shipmentIDPattern matches the platform shipment code: the ICAL- prefix
// followed by exactly six alphanumerics. Matched case-insensitively so codes
// survive lower-cased OCR output; stored upper-cased.
var shipmentIDPattern = regexp.MustCompile(`(?i)\bICAL-[A-Z0-9]{6}\b`)

// Identifiers holds the normalized, deduplicated identifiers extracted from
// a single billing record.
type Identifiers struct {
	// ShipmentIDs are platform shipment codes, upper-cased, in order of
	// first occurrence.
	ShipmentIDs []string

	// TrackingNumbers are tracking and pro numbers, verbatim, deduplicated
	// case-insensitively.
	TrackingNumbers []string

	// ReferenceNumbers are customer/shipper reference strings, verbatim,
	// deduplicated case-insensitively.
	ReferenceNumbers []string

	// Date is the derived ship/invoice date. Zero when absent.
	Date time.Time

	// Amount is the derived invoice line amount. Zero when absent.
	Amount decimal.Decimal
}

// IsEmpty reports whether no identifier of any type was extracted.
// The derived (date, amount) pair is not an identifier.
func (ids *Identifiers) IsEmpty() bool {
	return len(ids.ShipmentIDs) == 0 &&
		len(ids.TrackingNumbers) == 0 &&
		len(ids.ReferenceNumbers) == 0
}

// Extract scans the billing record and collects every identifier occurrence.
// A single field may contain more than one embedded shipment code; all of
// them are collected, not just the first.
func Extract(rec *models.BillingRecord) *Identifiers {
	ids := &Identifiers{}
	if rec == nil {
		return ids
	}

	// Ordered scan list for embedded platform shipment codes. Order only
	// affects output ordering, which must be deterministic.
	scanFields := make([]string, 0, 5+len(rec.References)+len(rec.ChargeDescriptions))
	scanFields = append(scanFields,
		rec.ShipmentReference,
		rec.Description,
		rec.Notes,
		rec.TrackingNumber,
		rec.ProNumber,
	)
	scanFields = append(scanFields, rec.References...)
	scanFields = append(scanFields, rec.ChargeDescriptions...)

	seenShipmentIDs := make(map[string]bool)
	for _, field := range scanFields {
		for _, match := range shipmentIDPattern.FindAllString(field, -1) {
			normalized := strings.ToUpper(match)
			if !seenShipmentIDs[normalized] {
				seenShipmentIDs[normalized] = true
				ids.ShipmentIDs = append(ids.ShipmentIDs, normalized)
			}
		}
	}

	ids.TrackingNumbers = collectVerbatim(nil, rec.TrackingNumber, rec.ProNumber)

	// The shipment reference feeds the reference strategy unless it is
	// itself a platform code, which the shipment-ID strategy already covers.
	var refFields []string
	if ref := strings.TrimSpace(rec.ShipmentReference); ref != "" && !shipmentIDPattern.MatchString(ref) {
		refFields = append(refFields, ref)
	}
	refFields = append(refFields, rec.References...)
	ids.ReferenceNumbers = collectVerbatim(nil, refFields...)

	ids.Date = rec.Date
	ids.Amount = rec.Amount

	return ids
}

// collectVerbatim appends trimmed, non-empty values to dst, deduplicating
// case-insensitively while preserving original casing and first-seen order.
func collectVerbatim(dst []string, values ...string) []string {
	seen := make(map[string]bool, len(values))
	for _, existing := range dst {
		seen[strings.ToUpper(existing)] = true
	}

	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		key := strings.ToUpper(v)
		if !seen[key] {
			seen[key] = true
			dst = append(dst, v)
		}
	}

	return dst
}
