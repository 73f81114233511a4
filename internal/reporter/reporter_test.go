package reporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"billing-match-service/internal/batch"
	"billing-match-service/internal/models"
)

func createResults() ([]*models.MatchResult, *batch.Summary) {
	matched := &models.MatchResult{
		Input: &models.BillingRecord{ShipmentReference: "ICAL-9F3K2Q"},
		BestMatch: &models.MatchCandidate{
			Shipment:     &models.ShipmentRecord{Key: "ICAL-9F3K2Q", OrgKey: "ORG-1"},
			Strategy:     models.StrategyShipmentID,
			MatchedField: "key",
			MatchedValue: "ICAL-9F3K2Q",
			Confidence:   0.98,
			MatchedBy:    []models.Strategy{models.StrategyShipmentID},
		},
		Status: models.StatusExcellent,
	}
	matched.Candidates = []*models.MatchCandidate{matched.BestMatch}

	unmatched := &models.MatchResult{
		Input:          &models.BillingRecord{TrackingNumber: "1Z000"},
		Status:         models.StatusNoMatch,
		ReviewRequired: true,
	}

	summary := &batch.Summary{
		Total:          2,
		Excellent:      1,
		NoMatch:        1,
		ReviewRequired: 1,
		Elapsed:        125 * time.Millisecond,
	}

	return []*models.MatchResult{matched, unmatched}, summary
}

func TestWriteConsole(t *testing.T) {
	results, summary := createResults()

	var buf bytes.Buffer
	if err := NewReporter().Write(&buf, results, summary, FormatConsole); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"ICAL-9F3K2Q", "EXCELLENT", "0.980", "shipment_id",
		"NO_MATCH", "1Z000",
		"Matched 2 records", "Review queue: 1 of 2",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("console output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteJSON(t *testing.T) {
	results, summary := createResults()

	var buf bytes.Buffer
	if err := NewReporter().Write(&buf, results, summary, FormatJSON); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var payload struct {
		Summary *batch.Summary `json:"summary"`
		Results []struct {
			Status    string `json:"status"`
			BestMatch *struct {
				Strategy   string  `json:"strategy"`
				Confidence float64 `json:"confidence"`
			} `json:"best_match"`
		} `json:"results"`
	}
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}

	if payload.Summary == nil || payload.Summary.Total != 2 {
		t.Errorf("summary not rendered: %+v", payload.Summary)
	}
	if len(payload.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(payload.Results))
	}
	if payload.Results[0].BestMatch == nil {
		t.Fatal("best match missing from JSON")
	}
	if payload.Results[0].BestMatch.Strategy != "shipment_id" {
		t.Errorf("strategy rendered as %q, want name not number", payload.Results[0].BestMatch.Strategy)
	}
}

func TestWriteCSV(t *testing.T) {
	results, _ := createResults()

	var buf bytes.Buffer
	if err := NewReporter().Write(&buf, results, nil, FormatCSV); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV output: %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "invoice_ref" {
		t.Errorf("unexpected header: %v", rows[0])
	}

	matched := rows[1]
	if matched[0] != "ICAL-9F3K2Q" || matched[1] != "EXCELLENT" || matched[6] != "ICAL-9F3K2Q" {
		t.Errorf("matched row = %v", matched)
	}
	if matched[7] != "false" {
		t.Errorf("review flag = %s", matched[7])
	}

	unmatched := rows[2]
	if unmatched[1] != "NO_MATCH" || unmatched[6] != "" {
		t.Errorf("unmatched row = %v", unmatched)
	}
	if unmatched[7] != "true" {
		t.Errorf("review flag = %s", unmatched[7])
	}
}

func TestReviewOnlyFilter(t *testing.T) {
	results, _ := createResults()

	reporter := NewReporter()
	reporter.ReviewOnly = true

	var buf bytes.Buffer
	if err := reporter.Write(&buf, results, nil, FormatCSV); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV output: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus the single review row, got %d rows", len(rows))
	}
	if rows[1][1] != "NO_MATCH" {
		t.Errorf("filtered row = %v", rows[1])
	}
}

func TestUnsupportedFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := NewReporter().Write(&buf, nil, nil, OutputFormat("yaml")); err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}

func TestOutputFormatIsValid(t *testing.T) {
	for _, f := range []OutputFormat{FormatConsole, FormatJSON, FormatCSV} {
		if !f.IsValid() {
			t.Errorf("%s should be valid", f)
		}
	}
	if OutputFormat("xml").IsValid() {
		t.Error("xml should not be valid")
	}
}
