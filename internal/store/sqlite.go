package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"billing-match-service/internal/models"
)

// SQLiteStore is a ShipmentStore backed by a local SQLite snapshot of the
// operational shipment data. The CLI matches invoice batches against such a
// snapshot so reconciliation runs do not hammer the production store.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// sqliteColumns maps queryable fields to their snapshot columns.
var sqliteColumns = map[Field]string{
	FieldShipmentID:           "shipment_id",
	FieldTrackingNumber:       "tracking_number",
	FieldConfirmationTracking: "conf_tracking_number",
	FieldConfirmationPro:      "conf_pro_number",
	FieldCarrierTracking:      "conf_carrier_tracking",
	FieldReferenceShipper:     "ref_shipper",
	FieldReferenceCustomer:    "ref_customer",
	FieldReferenceGeneral:     "ref_general",
	FieldReferenceLegacy:      "ref_legacy",
	FieldBookedAt:             "booked_at",
}

const selectColumns = `key, shipment_id, org_key, carrier_name, booked_at, total_charges,
    tracking_number, conf_tracking_number, conf_pro_number, conf_carrier_tracking,
    ref_shipper, ref_customer, ref_general, ref_legacy`

// OpenSQLite opens or creates a shipment snapshot database at the given path
// and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	s := &SQLiteStore{db: db, path: path}
	if err := s.applySchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) applySchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS shipments (
    key                   TEXT PRIMARY KEY,
    shipment_id           TEXT NOT NULL DEFAULT '',
    org_key               TEXT NOT NULL,
    carrier_name          TEXT NOT NULL DEFAULT '',
    booked_at             TEXT NOT NULL DEFAULT '',
    total_charges         TEXT NOT NULL DEFAULT '0',
    tracking_number       TEXT NOT NULL DEFAULT '',
    conf_tracking_number  TEXT NOT NULL DEFAULT '',
    conf_pro_number       TEXT NOT NULL DEFAULT '',
    conf_carrier_tracking TEXT NOT NULL DEFAULT '',
    ref_shipper           TEXT NOT NULL DEFAULT '',
    ref_customer          TEXT NOT NULL DEFAULT '',
    ref_general           TEXT NOT NULL DEFAULT '',
    ref_legacy            TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_shipments_shipment_id ON shipments(shipment_id);
CREATE INDEX IF NOT EXISTS idx_shipments_tracking ON shipments(tracking_number);
CREATE INDEX IF NOT EXISTS idx_shipments_booked_at ON shipments(booked_at);
`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Put inserts or replaces a shipment in the snapshot.
func (s *SQLiteStore) Put(ctx context.Context, sr *models.ShipmentRecord) error {
	if err := sr.Validate(); err != nil {
		return err
	}

	bookedAt := ""
	if !sr.BookedAt.IsZero() {
		// RFC3339 in UTC keeps lexicographic order equal to time order,
		// which the range query relies on.
		bookedAt = sr.BookedAt.UTC().Format(time.RFC3339)
	}

	_, err := s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO shipments (
    key, shipment_id, org_key, carrier_name, booked_at, total_charges,
    tracking_number, conf_tracking_number, conf_pro_number, conf_carrier_tracking,
    ref_shipper, ref_customer, ref_general, ref_legacy
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sr.Key,
		sr.ShipmentID,
		sr.OrgKey,
		sr.CarrierName,
		bookedAt,
		sr.TotalCharges.String(),
		sr.TrackingNumber,
		sr.Confirmation.TrackingNumber,
		sr.Confirmation.ProNumber,
		sr.Confirmation.CarrierTracking,
		sr.References.Shipper,
		sr.References.Customer,
		sr.References.General,
		sr.References.Legacy,
	)
	if err != nil {
		return fmt.Errorf("insert shipment %s: %w", sr.Key, err)
	}

	return nil
}

// Load bulk-inserts a snapshot of shipments inside one transaction.
func (s *SQLiteStore) Load(ctx context.Context, shipments []*models.ShipmentRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot load: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO shipments (
    key, shipment_id, org_key, carrier_name, booked_at, total_charges,
    tracking_number, conf_tracking_number, conf_pro_number, conf_carrier_tracking,
    ref_shipper, ref_customer, ref_general, ref_legacy
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare snapshot load: %w", err)
	}
	defer stmt.Close()

	for _, sr := range shipments {
		if err := sr.Validate(); err != nil {
			return err
		}

		bookedAt := ""
		if !sr.BookedAt.IsZero() {
			bookedAt = sr.BookedAt.UTC().Format(time.RFC3339)
		}

		if _, err := stmt.ExecContext(ctx,
			sr.Key, sr.ShipmentID, sr.OrgKey, sr.CarrierName, bookedAt,
			sr.TotalCharges.String(), sr.TrackingNumber,
			sr.Confirmation.TrackingNumber, sr.Confirmation.ProNumber,
			sr.Confirmation.CarrierTracking, sr.References.Shipper,
			sr.References.Customer, sr.References.General, sr.References.Legacy,
		); err != nil {
			return fmt.Errorf("insert shipment %s: %w", sr.Key, err)
		}
	}

	return tx.Commit()
}

// Count returns the number of shipments in the snapshot.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shipments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count shipments: %w", err)
	}
	return n, nil
}

// GetByKey implements ShipmentStore.
func (s *SQLiteStore) GetByKey(ctx context.Context, key string) (*models.ShipmentRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM shipments WHERE key = ?`, key)

	sr, err := scanShipment(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shipment %s: %w", key, err)
	}

	return sr, nil
}

// FindByField implements ShipmentStore using an IN-list query.
func (s *SQLiteStore) FindByField(ctx context.Context, field Field, values ...string) ([]*models.ShipmentRecord, error) {
	if len(values) == 0 {
		return nil, nil
	}
	if len(values) > MaxBatchValues {
		return nil, ErrBatchTooLarge
	}

	column, ok := sqliteColumns[field]
	if !ok || field == FieldBookedAt {
		return nil, fmt.Errorf("field %s does not support equality lookup", field)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	args := make([]interface{}, len(values))
	for i, v := range values {
		args[i] = v
	}

	query := fmt.Sprintf(
		`SELECT %s FROM shipments WHERE %s != '' AND %s IN (%s) ORDER BY key`,
		selectColumns, column, column, placeholders)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find by %s: %w", field, err)
	}
	defer rows.Close()

	return collectShipments(rows)
}

// FindByRange implements ShipmentStore for the booking timestamp.
func (s *SQLiteStore) FindByRange(ctx context.Context, field Field, low, high time.Time) ([]*models.ShipmentRecord, error) {
	if field != FieldBookedAt {
		return nil, fmt.Errorf("field %s does not support range lookup", field)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM shipments
         WHERE booked_at != '' AND booked_at >= ? AND booked_at <= ?
         ORDER BY key`,
		low.UTC().Format(time.RFC3339), high.UTC().Format(time.RFC3339))
	if err != nil {
		return nil, fmt.Errorf("find by %s range: %w", field, err)
	}
	defer rows.Close()

	return collectShipments(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanShipment(row rowScanner) (*models.ShipmentRecord, error) {
	var sr models.ShipmentRecord
	var bookedAt, totalCharges string

	if err := row.Scan(
		&sr.Key, &sr.ShipmentID, &sr.OrgKey, &sr.CarrierName, &bookedAt, &totalCharges,
		&sr.TrackingNumber, &sr.Confirmation.TrackingNumber, &sr.Confirmation.ProNumber,
		&sr.Confirmation.CarrierTracking, &sr.References.Shipper, &sr.References.Customer,
		&sr.References.General, &sr.References.Legacy,
	); err != nil {
		return nil, err
	}

	if bookedAt != "" {
		t, err := time.Parse(time.RFC3339, bookedAt)
		if err != nil {
			return nil, fmt.Errorf("parse booked_at for %s: %w", sr.Key, err)
		}
		sr.BookedAt = t
	}

	charges, err := models.ParseDecimalFromString(totalCharges)
	if err != nil {
		return nil, fmt.Errorf("parse total_charges for %s: %w", sr.Key, err)
	}
	sr.TotalCharges = charges

	return &sr, nil
}

func collectShipments(rows *sql.Rows) ([]*models.ShipmentRecord, error) {
	var results []*models.ShipmentRecord
	for rows.Next() {
		sr, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, sr)
	}

	return results, rows.Err()
}
