// Package reporter renders batch match results for human and programmatic
// consumption.
//
// Supported output formats:
//   - Console: a table of per-record decisions plus a summary block
//   - JSON: structured results and summary for downstream tooling
//   - CSV: one decision per line for spreadsheet review queues
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"billing-match-service/internal/batch"
	"billing-match-service/internal/models"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// Reporter renders match results in the configured format.
type Reporter struct {
	// ReviewOnly restricts the report to results requiring human review.
	ReviewOnly bool
}

// NewReporter creates a reporter with default options.
func NewReporter() *Reporter {
	return &Reporter{}
}

// Write renders the results and summary to w in the given format.
func (r *Reporter) Write(w io.Writer, results []*models.MatchResult, summary *batch.Summary, format OutputFormat) error {
	results = r.filter(results)

	switch format {
	case FormatConsole:
		return r.writeConsole(w, results, summary)
	case FormatJSON:
		return r.writeJSON(w, results, summary)
	case FormatCSV:
		return r.writeCSV(w, results)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func (r *Reporter) filter(results []*models.MatchResult) []*models.MatchResult {
	if !r.ReviewOnly {
		return results
	}

	filtered := make([]*models.MatchResult, 0, len(results))
	for _, result := range results {
		if result.ReviewRequired {
			filtered = append(filtered, result)
		}
	}
	return filtered
}

func (r *Reporter) writeConsole(w io.Writer, results []*models.MatchResult, summary *batch.Summary) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)

	tw.AppendHeader(table.Row{"#", "Invoice Ref", "Status", "Confidence", "Strategy", "Shipment", "Review"})

	for i, result := range results {
		row := table.Row{i + 1, invoiceRef(result), result.Status.String(), "-", "-", "-", reviewMark(result)}
		if best := result.BestMatch; best != nil {
			row[3] = fmt.Sprintf("%.3f", best.Confidence)
			row[4] = best.Strategy.String()
			row[5] = best.Shipment.Key
		}
		tw.AppendRow(row)
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	tw.Render()

	if summary != nil {
		fmt.Fprintf(w, "\nMatched %d records in %s: %d excellent, %d good, %d fair, %d poor, %d unmatched\n",
			summary.Total, summary.Elapsed.Round(1e6).String(),
			summary.Excellent, summary.Good, summary.Fair, summary.Poor, summary.NoMatch)
		fmt.Fprintf(w, "Review queue: %d of %d require human review\n",
			summary.ReviewRequired, summary.Total)
	}

	return nil
}

func (r *Reporter) writeJSON(w io.Writer, results []*models.MatchResult, summary *batch.Summary) error {
	payload := struct {
		Summary *batch.Summary        `json:"summary,omitempty"`
		Results []*models.MatchResult `json:"results"`
	}{
		Summary: summary,
		Results: results,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func (r *Reporter) writeCSV(w io.Writer, results []*models.MatchResult) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"invoice_ref", "status", "confidence", "strategy", "matched_field", "matched_value", "shipment_key", "review_required"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, result := range results {
		row := []string{
			invoiceRef(result),
			result.Status.String(),
			"", "", "", "", "",
			strconv.FormatBool(result.ReviewRequired),
		}
		if best := result.BestMatch; best != nil {
			row[2] = fmt.Sprintf("%.3f", best.Confidence)
			row[3] = best.Strategy.String()
			row[4] = best.MatchedField
			row[5] = best.MatchedValue
			row[6] = best.Shipment.Key
		}

		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

func invoiceRef(result *models.MatchResult) string {
	if result.Input == nil {
		return ""
	}
	if result.Input.ShipmentReference != "" {
		return result.Input.ShipmentReference
	}
	return result.Input.TrackingNumber
}

func reviewMark(result *models.MatchResult) string {
	if result.ReviewRequired {
		return "yes"
	}
	return ""
}
