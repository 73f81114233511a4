package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"billing-match-service/internal/models"
	"billing-match-service/internal/store"
	"billing-match-service/pkg/errors"

	"github.com/shopspring/decimal"
)

func writeSnapshot(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "shipments.db")
	snapshot, err := store.OpenSQLite(path)
	if err != nil {
		t.Fatalf("failed to open snapshot: %v", err)
	}
	defer snapshot.Close()

	shipments := []*models.ShipmentRecord{
		{
			Key:          "ICAL-9F3K2Q",
			ShipmentID:   "ICAL-9F3K2Q",
			OrgKey:       "ORG-1",
			CarrierName:  "Polaris Freight",
			BookedAt:     time.Date(2024, 3, 12, 9, 0, 0, 0, time.UTC),
			TotalCharges: decimal.NewFromFloat(520.00),
		},
	}
	if err := snapshot.Load(context.Background(), shipments); err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}

	return path
}

func writeBillingFile(t *testing.T, dir, content string) string {
	t.Helper()

	path := filepath.Join(dir, "billing.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write billing file: %v", err)
	}
	return path
}

func resetMatchFlags() {
	matchFlags.billingFile = ""
	matchFlags.snapshot = ""
	matchFlags.orgs = nil
	matchFlags.unrestricted = false
	matchFlags.carrier = ""
	matchFlags.callerID = "matchctl"
	matchFlags.format = "console"
	matchFlags.reviewOnly = false
	matchFlags.auditFile = ""
	matchFlags.profile = "default"
	matchFlags.workers = 0
	matchFlags.timeout = time.Minute
}

func TestRunMatch(t *testing.T) {
	dir := t.TempDir()

	resetMatchFlags()
	matchFlags.snapshot = writeSnapshot(t, dir)
	matchFlags.billingFile = writeBillingFile(t, dir,
		"shipment_reference,amount,date\nICAL-9F3K2Q,520.00,2024-03-12\n")
	matchFlags.orgs = []string{"ORG-1"}
	matchFlags.format = "csv"
	matchFlags.auditFile = filepath.Join(dir, "audit.jsonl")

	matchCmd.SetContext(context.Background())
	if err := runMatch(matchCmd, nil); err != nil {
		t.Fatalf("runMatch failed: %v", err)
	}

	auditData, err := os.ReadFile(matchFlags.auditFile)
	if err != nil {
		t.Fatalf("audit file not written: %v", err)
	}
	if len(auditData) == 0 {
		t.Error("audit file is empty")
	}
}

func TestRunMatchRequiresScope(t *testing.T) {
	dir := t.TempDir()

	resetMatchFlags()
	matchFlags.snapshot = writeSnapshot(t, dir)
	matchFlags.billingFile = writeBillingFile(t, dir,
		"shipment_reference,amount\nICAL-9F3K2Q,520.00\n")

	matchCmd.SetContext(context.Background())
	err := runMatch(matchCmd, nil)
	if err == nil {
		t.Fatal("expected an error without --org or --unrestricted")
	}
	if !errors.IsCategory(err, errors.CategoryConfiguration) {
		t.Errorf("expected a configuration error, got %v", err)
	}
}

func TestRunMatchRejectsInvalidFormat(t *testing.T) {
	resetMatchFlags()
	matchFlags.format = "yaml"

	matchCmd.SetContext(context.Background())
	err := runMatch(matchCmd, nil)
	if err == nil {
		t.Fatal("expected an error for an invalid format")
	}
	if !errors.IsCategory(err, errors.CategoryConfiguration) {
		t.Errorf("expected a configuration error, got %v", err)
	}
}

func TestRunMatchEmptyBillingFile(t *testing.T) {
	dir := t.TempDir()

	resetMatchFlags()
	matchFlags.snapshot = writeSnapshot(t, dir)
	matchFlags.billingFile = writeBillingFile(t, dir, "shipment_reference,amount\n")
	matchFlags.orgs = []string{"ORG-1"}

	matchCmd.SetContext(context.Background())
	err := runMatch(matchCmd, nil)
	if err == nil {
		t.Fatal("expected an error for a billing file with no parsable lines")
	}
	if !errors.IsCategory(err, errors.CategoryInput) {
		t.Errorf("expected an input error, got %v", err)
	}
}

func TestRunDemo(t *testing.T) {
	demoFlags.count = 8
	demoFlags.seed = 1
	demoFlags.format = "json"

	demoCmd.SetContext(context.Background())
	if err := runDemo(demoCmd, nil); err != nil {
		t.Fatalf("runDemo failed: %v", err)
	}
}

func TestProfileConfig(t *testing.T) {
	for _, profile := range []string{"default", "strict", "relaxed"} {
		config, err := profileConfig(profile)
		if err != nil {
			t.Errorf("profileConfig(%s) failed: %v", profile, err)
		}
		if config == nil {
			t.Errorf("profileConfig(%s) returned nil", profile)
		}
	}

	if _, err := profileConfig("aggressive"); err == nil {
		t.Error("expected an error for an unknown profile")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errors.InputError(errors.CodeMissingRecord, "", nil), 2},
		{errors.ConfigurationError(errors.CodeInvalidConfig, "profile", "x", nil), 3},
		{errors.InfrastructureError(errors.CodeStoreUnreachable, "lookup", nil), 4},
		{os.ErrNotExist, 1},
	}

	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
