// Command generate produces correlated billing/shipment fixture sets for
// exercising the matching pipeline end to end: a billing CSV export and a
// SQLite shipment snapshot the CLI can match it against.
//
// Usage:
//
//	go run ./testdata/generators -out testdata/fixtures -count 200
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"billing-match-service/internal/models"
	"billing-match-service/internal/store"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

var carriers = []string{"Polaris Freight", "Canpar Express", "Day & Ross", "TForce", "Purolator"}

func main() {
	var (
		out   = flag.String("out", "testdata/fixtures", "output directory")
		count = flag.Int("count", 200, "number of correlated record pairs")
		seed  = flag.Int64("seed", 42, "random seed for reproducible fixtures")
	)
	flag.Parse()

	gofakeit.Seed(*seed)

	if err := os.MkdirAll(*out, 0755); err != nil {
		log.Fatalf("create output dir: %v", err)
	}

	billing, shipments := generatePairs(*count)

	if err := writeBillingCSV(filepath.Join(*out, "billing.csv"), billing); err != nil {
		log.Fatalf("write billing csv: %v", err)
	}

	if err := writeSnapshot(filepath.Join(*out, "shipments.db"), shipments); err != nil {
		log.Fatalf("write shipment snapshot: %v", err)
	}

	log.Printf("generated %d billing lines and %d shipments in %s", len(billing), len(shipments), *out)
}

// generatePairs produces a mix of scenarios: platform-code lines, tracking-only
// lines, date/amount-only lines, and noise lines with no operational record.
func generatePairs(count int) ([]*models.BillingRecord, []*models.ShipmentRecord) {
	var billing []*models.BillingRecord
	var shipments []*models.ShipmentRecord

	for i := 0; i < count; i++ {
		sr := randomShipment(i)
		shipments = append(shipments, sr)

		br := &models.BillingRecord{
			Amount: jitterAmount(sr.TotalCharges),
			Date:   sr.BookedAt.AddDate(0, 0, gofakeit.Number(-2, 2)),
		}

		switch i % 4 {
		case 0:
			// Platform code embedded in free text.
			br.Description = fmt.Sprintf("Shipment %s delivered", sr.Key)
		case 1:
			br.TrackingNumber = sr.Confirmation.TrackingNumber
		case 2:
			br.References = []string{sr.References.Customer}
		case 3:
			// Date/amount only; identifiers stripped.
			br.Description = gofakeit.Sentence(4)
		}

		billing = append(billing, br)
	}

	// Noise lines with no matching shipment at all.
	for i := 0; i < count/10; i++ {
		billing = append(billing, &models.BillingRecord{
			Description:    gofakeit.Sentence(5),
			TrackingNumber: fmt.Sprintf("1Z%s", gofakeit.DigitN(16)),
			Amount:         decimal.NewFromFloat(gofakeit.Price(50, 5000)),
		})
	}

	return billing, shipments
}

func randomShipment(i int) *models.ShipmentRecord {
	key := fmt.Sprintf("ICAL-%s", strings.ToUpper(gofakeit.LetterN(3)+gofakeit.DigitN(3)))
	booked := gofakeit.DateRange(
		time.Now().AddDate(0, -6, 0),
		time.Now(),
	).UTC().Truncate(time.Hour)

	return &models.ShipmentRecord{
		Key:            key,
		ShipmentID:     key,
		OrgKey:         fmt.Sprintf("ORG-%d", i%5+1),
		CarrierName:    carriers[i%len(carriers)],
		BookedAt:       booked,
		TotalCharges:   decimal.NewFromFloat(gofakeit.Price(50, 5000)).Round(2),
		TrackingNumber: fmt.Sprintf("1Z%s", gofakeit.DigitN(16)),
		Confirmation: models.CarrierConfirmation{
			TrackingNumber: fmt.Sprintf("CNF%s", gofakeit.DigitN(10)),
			ProNumber:      gofakeit.DigitN(8),
		},
		References: models.ShipmentReferences{
			Shipper:  fmt.Sprintf("SHP-%s", gofakeit.DigitN(6)),
			Customer: fmt.Sprintf("PO-%s", gofakeit.DigitN(6)),
		},
	}
}

// jitterAmount perturbs the shipment charge the way carrier invoices do:
// mostly exact, sometimes a few percent off.
func jitterAmount(charges decimal.Decimal) decimal.Decimal {
	if gofakeit.Bool() {
		return charges
	}

	factor := decimal.NewFromFloat(1.0 + gofakeit.Float64Range(-0.06, 0.06))
	return charges.Mul(factor).Round(2)
}

func writeBillingCSV(path string, records []*models.BillingRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"shipment_reference", "description", "notes", "tracking_number",
		"pro_number", "references", "amount", "date", "charge_descriptions"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, br := range records {
		date := ""
		if !br.Date.IsZero() {
			date = br.Date.Format("2006-01-02")
		}

		row := []string{
			br.ShipmentReference,
			br.Description,
			br.Notes,
			br.TrackingNumber,
			br.ProNumber,
			strings.Join(br.References, ";"),
			br.Amount.String(),
			date,
			strings.Join(br.ChargeDescriptions, ";"),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeSnapshot(path string, shipments []*models.ShipmentRecord) error {
	_ = os.Remove(path)

	snapshot, err := store.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer snapshot.Close()

	return snapshot.Load(context.Background(), shipments)
}
