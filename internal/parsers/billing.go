// Package parsers reads billing records from carrier invoice CSV exports.
//
// Invoice exports vary between carriers: column names differ, optional
// columns are missing, and individual lines may be malformed. The parser
// maps headers through a configurable alias table and collects per-line
// errors instead of aborting the batch, so one bad line does not lose an
// entire import.
package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"billing-match-service/internal/models"
	"billing-match-service/pkg/errors"
	"billing-match-service/pkg/logger"
)

// Canonical column names for the billing CSV format.
const (
	ColumnShipmentReference  = "shipment_reference"
	ColumnDescription        = "description"
	ColumnNotes              = "notes"
	ColumnTrackingNumber     = "tracking_number"
	ColumnProNumber          = "pro_number"
	ColumnReferences         = "references"
	ColumnAmount             = "amount"
	ColumnDate               = "date"
	ColumnChargeDescriptions = "charge_descriptions"
)

// BillingParserConfig configures header handling for a billing CSV file.
type BillingParserConfig struct {
	HasHeader bool
	Delimiter rune

	// ColumnAliases maps carrier-specific header names onto the canonical
	// column names.
	ColumnAliases map[string]string
}

// DefaultBillingParserConfig returns a configuration covering the header
// variants seen across common carrier invoice exports.
func DefaultBillingParserConfig() *BillingParserConfig {
	return &BillingParserConfig{
		HasHeader: true,
		Delimiter: ',',
		ColumnAliases: map[string]string{
			"shipment_ref":   ColumnShipmentReference,
			"shipment":       ColumnShipmentReference,
			"ref":            ColumnShipmentReference,
			"reference":      ColumnShipmentReference,
			"desc":           ColumnDescription,
			"line_desc":      ColumnDescription,
			"note":           ColumnNotes,
			"comments":       ColumnNotes,
			"tracking":       ColumnTrackingNumber,
			"tracking_no":    ColumnTrackingNumber,
			"trk":            ColumnTrackingNumber,
			"pro":            ColumnProNumber,
			"pro_no":         ColumnProNumber,
			"bol":            ColumnProNumber,
			"bol_number":     ColumnProNumber,
			"refs":           ColumnReferences,
			"customer_refs":  ColumnReferences,
			"amt":            ColumnAmount,
			"total":          ColumnAmount,
			"charge":         ColumnAmount,
			"invoice_amount": ColumnAmount,
			"ship_date":      ColumnDate,
			"invoice_date":   ColumnDate,
			"charges":        ColumnChargeDescriptions,
			"charge_lines":   ColumnChargeDescriptions,
		},
	}
}

// Validate checks if the parser configuration is valid
func (c *BillingParserConfig) Validate() error {
	if c.Delimiter == 0 {
		return fmt.Errorf("delimiter cannot be zero")
	}
	return nil
}

// ParseStats summarizes one parse run.
type ParseStats struct {
	LinesRead     int
	RecordsParsed int
	Errors        []*errors.MatchError
}

// HasErrors reports whether any line failed to parse.
func (ps *ParseStats) HasErrors() bool {
	return len(ps.Errors) > 0
}

// Summary returns the collected errors as an error summary.
func (ps *ParseStats) Summary() *errors.Summary {
	return errors.NewSummary(ps.Errors)
}

// BillingParser parses billing records from carrier invoice CSV exports.
type BillingParser struct {
	config *BillingParserConfig
	logger logger.Logger
}

// NewBillingParser creates a parser with the given configuration. A nil
// config falls back to DefaultBillingParserConfig.
func NewBillingParser(config *BillingParserConfig) (*BillingParser, error) {
	if config == nil {
		config = DefaultBillingParserConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig, "billing_parser_config", config, err)
	}

	return &BillingParser{
		config: config,
		logger: logger.WithComponent("billing_parser"),
	}, nil
}

// ParseFile parses a billing CSV file from disk.
func (bp *BillingParser) ParseFile(path string) ([]*models.BillingRecord, *ParseStats, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.ParseError(
			errors.CodeInvalidFormat, path, 0, "", "", err,
		).WithSuggestion("check that the billing file exists and is readable")
	}
	defer file.Close()

	return bp.Parse(file, path)
}

// Parse parses billing records from a reader. The name parameter is used in
// error messages only.
func (bp *BillingParser) Parse(r io.Reader, name string) ([]*models.BillingRecord, *ParseStats, error) {
	reader := csv.NewReader(r)
	reader.Comma = bp.config.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	stats := &ParseStats{}

	columns, err := bp.readHeader(reader, name, stats)
	if err != nil {
		return nil, stats, err
	}

	var records []*models.BillingRecord
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		stats.LinesRead++
		if err != nil {
			stats.Errors = append(stats.Errors, errors.ParseError(
				errors.CodeInvalidFormat, name, stats.LinesRead, "", "", err))
			continue
		}

		record, parseErr := bp.parseRow(row, columns, name, stats.LinesRead)
		if parseErr != nil {
			stats.Errors = append(stats.Errors, parseErr)
			continue
		}

		records = append(records, record)
		stats.RecordsParsed++
	}

	bp.logger.WithFields(logger.Fields{
		"file":    name,
		"records": stats.RecordsParsed,
		"errors":  len(stats.Errors),
	}).Info("Parsed billing file")

	return records, stats, nil
}

// readHeader maps header names (through aliases) onto column positions.
// Without a header line, the canonical column order is assumed.
func (bp *BillingParser) readHeader(reader *csv.Reader, name string, stats *ParseStats) (map[string]int, error) {
	canonicalOrder := []string{
		ColumnShipmentReference, ColumnDescription, ColumnNotes,
		ColumnTrackingNumber, ColumnProNumber, ColumnReferences,
		ColumnAmount, ColumnDate, ColumnChargeDescriptions,
	}

	columns := make(map[string]int)

	if !bp.config.HasHeader {
		for i, col := range canonicalOrder {
			columns[col] = i
		}
		return columns, nil
	}

	header, err := reader.Read()
	if err != nil {
		return nil, errors.ParseError(
			errors.CodeMissingColumn, name, 1, "header", "", err,
		).WithSuggestion("the billing file must start with a header line")
	}
	stats.LinesRead++

	for i, raw := range header {
		col := strings.ToLower(strings.TrimSpace(raw))
		if canonical, ok := bp.config.ColumnAliases[col]; ok {
			col = canonical
		}
		if _, known := columns[col]; !known {
			columns[col] = i
		}
	}

	if _, ok := columns[ColumnAmount]; !ok {
		return nil, errors.ParseError(
			errors.CodeMissingColumn, name, 1, ColumnAmount, "", nil)
	}

	return columns, nil
}

func (bp *BillingParser) parseRow(row []string, columns map[string]int, name string, line int) (*models.BillingRecord, *errors.MatchError) {
	cell := func(col string) string {
		idx, ok := columns[col]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	record := &models.BillingRecord{
		ShipmentReference:  cell(ColumnShipmentReference),
		Description:        cell(ColumnDescription),
		Notes:              cell(ColumnNotes),
		TrackingNumber:     cell(ColumnTrackingNumber),
		ProNumber:          cell(ColumnProNumber),
		References:         models.SplitMultiValue(cell(ColumnReferences)),
		ChargeDescriptions: models.SplitMultiValue(cell(ColumnChargeDescriptions)),
	}

	if raw := cell(ColumnAmount); raw != "" {
		amount, err := models.ParseDecimalFromString(raw)
		if err != nil {
			return nil, errors.ParseError(
				errors.CodeInvalidData, name, line, ColumnAmount, raw, err)
		}
		record.Amount = amount
	}

	if raw := cell(ColumnDate); raw != "" {
		date, err := models.ParseTimeWithFormats(raw)
		if err != nil {
			return nil, errors.ParseError(
				errors.CodeInvalidData, name, line, ColumnDate, raw, err)
		}
		record.Date = date
	}

	if err := record.Validate(); err != nil {
		return nil, errors.ParseError(
			errors.CodeInvalidData, name, line, "", "", err)
	}

	return record, nil
}
