package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"billing-match-service/internal/batch"
	"billing-match-service/internal/matcher"
	"billing-match-service/internal/models"
	"billing-match-service/internal/reporter"
	"billing-match-service/internal/store"
	"billing-match-service/pkg/errors"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var demoFlags struct {
	count  int
	seed   int64
	format string
}

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run the matching pipeline against generated sample data",
	Long: `Demo generates a correlated set of shipments and billing lines in memory
and runs the full matching pipeline over them. Useful for trying the tool
without a shipment snapshot or a real invoice export.`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().IntVar(&demoFlags.count, "count", 25, "number of billing lines to generate")
	demoCmd.Flags().Int64Var(&demoFlags.seed, "seed", 0, "random seed (0 picks one)")
	demoCmd.Flags().StringVar(&demoFlags.format, "format", "console", "output format: console, json, csv")
}

func runDemo(cobraCmd *cobra.Command, args []string) error {
	format := reporter.OutputFormat(demoFlags.format)
	if !format.IsValid() {
		return errors.ConfigurationError(
			errors.CodeInvalidConfig, "format", demoFlags.format, nil)
	}

	if demoFlags.seed != 0 {
		gofakeit.Seed(demoFlags.seed)
	}

	ms := store.NewMemStore()
	records, err := generateDemoData(ms, demoFlags.count)
	if err != nil {
		return errors.InternalError("demo data generation", err)
	}

	engine := matcher.NewEngine(ms, nil, nil)
	processor := batch.NewProcessor(engine)

	results, summary, err := processor.Run(cobraCmd.Context(), records, batch.Options{
		CallerID: "demo",
		Scope:    matcher.UnrestrictedScope(),
	})
	if err != nil {
		return err
	}

	return reporter.NewReporter().Write(os.Stdout, results, summary, format)
}

// generateDemoData fills the store with shipments and returns billing lines
// correlated with them: platform-code lines, tracking-only lines,
// date/amount-only lines, and a tail of unmatched noise.
func generateDemoData(ms *store.MemStore, count int) ([]*models.BillingRecord, error) {
	carriers := []string{"Polaris Freight", "Canpar Express", "Day & Ross", "Purolator"}

	var records []*models.BillingRecord
	for i := 0; i < count; i++ {
		key := fmt.Sprintf("ICAL-%s", strings.ToUpper(gofakeit.LetterN(3)+gofakeit.DigitN(3)))
		charges := decimal.NewFromFloat(gofakeit.Price(50, 5000)).Round(2)
		booked := gofakeit.DateRange(
			time.Now().AddDate(0, -3, 0), time.Now(),
		).UTC().Truncate(time.Hour)

		sr := &models.ShipmentRecord{
			Key:          key,
			ShipmentID:   key,
			OrgKey:       fmt.Sprintf("ORG-%d", i%3+1),
			CarrierName:  carriers[i%len(carriers)],
			BookedAt:     booked,
			TotalCharges: charges,
			Confirmation: models.CarrierConfirmation{
				TrackingNumber: fmt.Sprintf("1Z%s", gofakeit.DigitN(16)),
			},
			References: models.ShipmentReferences{
				Customer: fmt.Sprintf("PO-%s", gofakeit.DigitN(6)),
			},
		}
		if err := ms.Put(sr); err != nil {
			return nil, err
		}

		br := &models.BillingRecord{
			Amount: charges,
			Date:   booked.AddDate(0, 0, gofakeit.Number(-2, 2)),
		}
		switch i % 4 {
		case 0:
			br.Description = fmt.Sprintf("Shipment %s delivered", key)
		case 1:
			br.TrackingNumber = sr.Confirmation.TrackingNumber
		case 2:
			br.References = []string{sr.References.Customer}
		case 3:
			br.Description = gofakeit.Sentence(4)
		}
		records = append(records, br)
	}

	for i := 0; i < count/5+1; i++ {
		records = append(records, &models.BillingRecord{
			Description:    gofakeit.Sentence(5),
			TrackingNumber: fmt.Sprintf("1Z%s", gofakeit.DigitN(16)),
			Amount:         decimal.NewFromFloat(gofakeit.Price(50, 5000)),
		})
	}

	return records, nil
}
