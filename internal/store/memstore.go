package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"billing-match-service/internal/models"
)

// MemStore is an in-memory ShipmentStore. It backs the engine's unit tests
// and the CLI's demo mode, and doubles as the reference implementation for
// the store conformance tests.
//
// Lookups are served from equality indexes built on insert. Results are
// returned sorted by shipment key so repeated queries over the same snapshot
// are byte-identical.
type MemStore struct {
	mu      sync.RWMutex
	byKey   map[string]*models.ShipmentRecord
	byField map[Field]map[string][]*models.ShipmentRecord
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		byKey:   make(map[string]*models.ShipmentRecord),
		byField: make(map[Field]map[string][]*models.ShipmentRecord),
	}
}

// equalityFields lists every field indexed for FindByField.
var equalityFields = []Field{
	FieldShipmentID,
	FieldTrackingNumber,
	FieldConfirmationTracking,
	FieldConfirmationPro,
	FieldCarrierTracking,
	FieldReferenceShipper,
	FieldReferenceCustomer,
	FieldReferenceGeneral,
	FieldReferenceLegacy,
}

// Put inserts or replaces a shipment and rebuilds its index entries.
func (ms *MemStore) Put(sr *models.ShipmentRecord) error {
	if err := sr.Validate(); err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if old, ok := ms.byKey[sr.Key]; ok {
		ms.removeFromIndexes(old)
	}

	ms.byKey[sr.Key] = sr
	for _, field := range equalityFields {
		value, _ := FieldValue(sr, field)
		if value == "" {
			continue
		}

		if ms.byField[field] == nil {
			ms.byField[field] = make(map[string][]*models.ShipmentRecord)
		}
		ms.byField[field][value] = append(ms.byField[field][value], sr)
	}

	return nil
}

// Load bulk-inserts a snapshot of shipments.
func (ms *MemStore) Load(shipments []*models.ShipmentRecord) error {
	for _, sr := range shipments {
		if err := ms.Put(sr); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored shipments.
func (ms *MemStore) Len() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.byKey)
}

// GetByKey implements ShipmentStore.
func (ms *MemStore) GetByKey(ctx context.Context, key string) (*models.ShipmentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	sr, ok := ms.byKey[key]
	if !ok {
		return nil, ErrNotFound
	}
	return sr, nil
}

// FindByField implements ShipmentStore. Equality is exact, matching the
// production store's index semantics.
func (ms *MemStore) FindByField(ctx context.Context, field Field, values ...string) ([]*models.ShipmentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(values) > MaxBatchValues {
		return nil, ErrBatchTooLarge
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	index := ms.byField[field]
	if index == nil {
		return nil, nil
	}

	seen := make(map[string]bool)
	var results []*models.ShipmentRecord
	for _, value := range values {
		for _, sr := range index[value] {
			if !seen[sr.Key] {
				seen[sr.Key] = true
				results = append(results, sr)
			}
		}
	}

	sortByKey(results)
	return results, nil
}

// FindByRange implements ShipmentStore. Bounds are inclusive.
func (ms *MemStore) FindByRange(ctx context.Context, field Field, low, high time.Time) ([]*models.ShipmentRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if field != FieldBookedAt {
		return nil, nil
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	var results []*models.ShipmentRecord
	for _, sr := range ms.byKey {
		if sr.BookedAt.IsZero() {
			continue
		}
		if sr.BookedAt.Before(low) || sr.BookedAt.After(high) {
			continue
		}
		results = append(results, sr)
	}

	sortByKey(results)
	return results, nil
}

func (ms *MemStore) removeFromIndexes(sr *models.ShipmentRecord) {
	for _, field := range equalityFields {
		value, _ := FieldValue(sr, field)
		if value == "" || ms.byField[field] == nil {
			continue
		}

		entries := ms.byField[field][value]
		for i, existing := range entries {
			if existing.Key == sr.Key {
				ms.byField[field][value] = append(entries[:i], entries[i+1:]...)
				break
			}
		}
	}
}

func sortByKey(shipments []*models.ShipmentRecord) {
	sort.Slice(shipments, func(i, j int) bool {
		return shipments[i].Key < shipments[j].Key
	})
}
