// Package store defines the operational record store contract the matching
// engine consumes, together with the in-memory and SQLite-backed
// implementations used by tests and the CLI.
//
// The matcher treats the store as an indexed lookup service over committed
// shipment data: it needs exactly three read primitives and is agnostic to
// index type or consistency model. Multi-value equality lookups are capped at
// MaxBatchValues per call, mirroring the query limits of the production
// document store; callers chunk accordingly.
package store

import (
	"context"
	"errors"
	"time"

	"billing-match-service/internal/models"
)

// MaxBatchValues is the maximum number of values a single FindByField call
// accepts. Implementations reject larger batches so callers cannot silently
// exceed the production store's query limits.
const MaxBatchValues = 10

// ErrNotFound is returned by GetByKey when no shipment has the given key.
var ErrNotFound = errors.New("shipment not found")

// ErrBatchTooLarge is returned by FindByField when more than MaxBatchValues
// values are supplied in one call.
var ErrBatchTooLarge = errors.New("too many values in one lookup batch")

// Field names an indexed shipment field the store can query.
type Field string

const (
	// FieldShipmentID is the dedicated shipment-reference field.
	FieldShipmentID Field = "shipment_id"

	// FieldTrackingNumber is the primary tracking field.
	FieldTrackingNumber Field = "tracking_number"

	// FieldConfirmationTracking is the tracking number recorded on the
	// carrier booking confirmation.
	FieldConfirmationTracking Field = "confirmation.tracking_number"

	// FieldConfirmationPro is the pro number recorded on the carrier
	// booking confirmation.
	FieldConfirmationPro Field = "confirmation.pro_number"

	// FieldCarrierTracking is the carrier-assigned tracking field.
	FieldCarrierTracking Field = "confirmation.carrier_tracking"

	// FieldReferenceShipper is the shipper reference.
	FieldReferenceShipper Field = "references.shipper"

	// FieldReferenceCustomer is the customer reference.
	FieldReferenceCustomer Field = "references.customer"

	// FieldReferenceGeneral is the generic reference.
	FieldReferenceGeneral Field = "references.general"

	// FieldReferenceLegacy is the legacy-import reference.
	FieldReferenceLegacy Field = "references.legacy"

	// FieldBookedAt is the booking timestamp, the only range-queryable field.
	FieldBookedAt Field = "booked_at"
)

// TrackingFields is the fixed ordered list of tracking-number-bearing fields
// consulted by the tracking-number strategy.
var TrackingFields = []Field{
	FieldTrackingNumber,
	FieldConfirmationTracking,
	FieldConfirmationPro,
	FieldCarrierTracking,
}

// ReferenceFields is the fixed ordered list of reference-bearing fields
// consulted by the reference-number strategy.
var ReferenceFields = []Field{
	FieldReferenceShipper,
	FieldReferenceCustomer,
	FieldReferenceGeneral,
	FieldReferenceLegacy,
}

// ShipmentStore is the read-only lookup contract over shipment records.
// All methods honor context cancellation; reads reflect already-committed
// shipment data.
type ShipmentStore interface {
	// GetByKey returns the shipment with the given document key, or
	// ErrNotFound when no such shipment exists.
	GetByKey(ctx context.Context, key string) (*models.ShipmentRecord, error)

	// FindByField returns every shipment whose field equals one of the
	// given values. At most MaxBatchValues values per call.
	FindByField(ctx context.Context, field Field, values ...string) ([]*models.ShipmentRecord, error)

	// FindByRange returns every shipment whose field lies within [low, high]
	// inclusive. Only FieldBookedAt supports range queries.
	FindByRange(ctx context.Context, field Field, low, high time.Time) ([]*models.ShipmentRecord, error)
}

// FieldValue reads the value of an equality-queryable field from a shipment.
// Used by the in-memory store's index and by tests asserting which field a
// lookup hit.
func FieldValue(sr *models.ShipmentRecord, field Field) (string, bool) {
	switch field {
	case FieldShipmentID:
		return sr.ShipmentID, true
	case FieldTrackingNumber:
		return sr.TrackingNumber, true
	case FieldConfirmationTracking:
		return sr.Confirmation.TrackingNumber, true
	case FieldConfirmationPro:
		return sr.Confirmation.ProNumber, true
	case FieldCarrierTracking:
		return sr.Confirmation.CarrierTracking, true
	case FieldReferenceShipper:
		return sr.References.Shipper, true
	case FieldReferenceCustomer:
		return sr.References.Customer, true
	case FieldReferenceGeneral:
		return sr.References.General, true
	case FieldReferenceLegacy:
		return sr.References.Legacy, true
	default:
		return "", false
	}
}
