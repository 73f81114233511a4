package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"billing-match-service/internal/audit"
	"billing-match-service/internal/batch"
	"billing-match-service/internal/matcher"
	"billing-match-service/internal/parsers"
	"billing-match-service/internal/reporter"
	"billing-match-service/internal/store"
	"billing-match-service/pkg/errors"
	"billing-match-service/pkg/logger"

	"github.com/spf13/cobra"
)

var matchFlags struct {
	billingFile  string
	snapshot     string
	orgs         []string
	unrestricted bool
	carrier      string
	callerID     string
	format       string
	reviewOnly   bool
	auditFile    string
	profile      string
	workers      int
	timeout      time.Duration
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match a billing CSV export against a shipment snapshot",
	Long: `Match parses a carrier invoice CSV export and runs every line through
the matching engine against the given shipment snapshot. Each line receives a
ranked candidate list, a match status, and a review-or-accept verdict.

The caller's organization scope is mandatory unless --unrestricted is given;
shipments outside the scope never appear in results.`,
	RunE: runMatch,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringVar(&matchFlags.billingFile, "billing-file", "", "billing CSV export to match (required)")
	matchCmd.Flags().StringVar(&matchFlags.snapshot, "snapshot", "", "SQLite shipment snapshot (required)")
	matchCmd.Flags().StringSliceVar(&matchFlags.orgs, "org", nil, "organization keys in the caller's scope")
	matchCmd.Flags().BoolVar(&matchFlags.unrestricted, "unrestricted", false, "bypass organization scoping (privileged callers only)")
	matchCmd.Flags().StringVar(&matchFlags.carrier, "carrier", "", "require a carrier name match on candidates")
	matchCmd.Flags().StringVar(&matchFlags.callerID, "caller", "matchctl", "caller identity for the audit trail")
	matchCmd.Flags().StringVar(&matchFlags.format, "format", "console", "output format: console, json, csv")
	matchCmd.Flags().BoolVar(&matchFlags.reviewOnly, "review-only", false, "report only lines requiring human review")
	matchCmd.Flags().StringVar(&matchFlags.auditFile, "audit-file", "", "append audit entries to this JSON-lines file")
	matchCmd.Flags().StringVar(&matchFlags.profile, "profile", "default", "matching profile: default, strict, relaxed")
	matchCmd.Flags().IntVar(&matchFlags.workers, "workers", batch.DefaultWorkers, "concurrent match workers")
	matchCmd.Flags().DurationVar(&matchFlags.timeout, "timeout", 2*time.Minute, "overall deadline for the batch")

	matchCmd.MarkFlagRequired("billing-file")
	matchCmd.MarkFlagRequired("snapshot")
}

func runMatch(cobraCmd *cobra.Command, args []string) error {
	log := logger.WithComponent("matchctl")

	format := reporter.OutputFormat(matchFlags.format)
	if !format.IsValid() {
		return errors.ConfigurationError(
			errors.CodeInvalidConfig, "format", matchFlags.format, nil)
	}

	config, err := profileConfig(matchFlags.profile)
	if err != nil {
		return err
	}

	if !matchFlags.unrestricted && len(matchFlags.orgs) == 0 {
		return errors.ConfigurationError(
			errors.CodeMissingConfig, "org", nil, nil,
		).WithSuggestion("pass --org at least once, or --unrestricted for privileged use")
	}

	scope := matcher.UnrestrictedScope()
	if !matchFlags.unrestricted {
		scope = matcher.ScopeOf(matchFlags.orgs...)
	}

	var carrier *matcher.CarrierFilter
	if matchFlags.carrier != "" {
		carrier = &matcher.CarrierFilter{Name: matchFlags.carrier}
	}

	parser, err := parsers.NewBillingParser(nil)
	if err != nil {
		return err
	}

	records, stats, err := parser.ParseFile(matchFlags.billingFile)
	if err != nil {
		return err
	}
	if stats.HasErrors() {
		log.WithField("errors", len(stats.Errors)).Warn("Some billing lines failed to parse and were skipped")
	}
	if len(records) == 0 {
		return errors.InputError(errors.CodeMissingRecord,
			fmt.Sprintf("no parsable billing records in %s", matchFlags.billingFile), stats.Summary())
	}

	snapshot, err := store.OpenSQLite(matchFlags.snapshot)
	if err != nil {
		return errors.InfrastructureError(errors.CodeStoreUnreachable, "open snapshot", err)
	}
	defer snapshot.Close()

	recorder, closeRecorder, err := buildRecorder(log)
	if err != nil {
		return err
	}
	defer closeRecorder()

	engine := matcher.NewEngine(snapshot, config, recorder)
	processor := batch.NewProcessor(engine)

	ctx, cancel := context.WithTimeout(cobraCmd.Context(), matchFlags.timeout)
	defer cancel()

	results, summary, err := processor.Run(ctx, records, batch.Options{
		CallerID: matchFlags.callerID,
		Scope:    scope,
		Carrier:  carrier,
		Workers:  matchFlags.workers,
	})
	if err != nil {
		return err
	}

	rep := reporter.NewReporter()
	rep.ReviewOnly = matchFlags.reviewOnly
	return rep.Write(os.Stdout, results, summary, format)
}

func profileConfig(profile string) (*matcher.Config, error) {
	switch profile {
	case "default":
		return matcher.DefaultConfig(), nil
	case "strict":
		return matcher.StrictConfig(), nil
	case "relaxed":
		return matcher.RelaxedConfig(), nil
	default:
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig, "profile", profile, nil,
		).WithSuggestion("valid profiles: default, strict, relaxed")
	}
}

func buildRecorder(log logger.Logger) (audit.Recorder, func(), error) {
	if matchFlags.auditFile == "" {
		return audit.NewLogRecorder(log), func() {}, nil
	}

	fileRecorder, err := audit.NewFileRecorder(matchFlags.auditFile)
	if err != nil {
		return nil, nil, errors.AuditError(matchFlags.auditFile, err)
	}

	return fileRecorder, func() { _ = fileRecorder.Close() }, nil
}
