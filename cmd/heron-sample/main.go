// Sample data generator for exercising the analysis pipeline.
//
// Usage:
//
//	go run cmd/heron-sample/main.go -dir ./sample
//
// Generates three CSVs (licenses, contracts, taxes) with seeded
// anomalies: a shared-address license cluster, a burst of same-week
// issue dates, a supplier that matches both a licensed business and a
// delinquent tax owner, a December award spike with same-day awards,
// and a sole-source heavy supplier.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"
)

var streets = []string{
	"Oak Avenue", "Pine Boulevard", "Maple Drive", "Cedar Lane",
	"Elm Street", "Walnut Way", "Birch Road", "Chestnut Court",
}

var firstWords = []string{
	"Summit", "Prairie", "Lakeside", "Capitol", "Gateway", "Harbor",
	"Union", "Liberty", "Heritage", "Pioneer", "Crescent", "Meridian",
}

var secondWords = []string{
	"Catering", "Construction", "Consulting", "Logistics", "Cleaning",
	"Landscaping", "Printing", "Plumbing", "Electric", "Holdings",
}

var suffixes = []string{"LLC", "Inc", "Corp", "Co", "Group"}

var agencies = []string{
	"Parks and Recreation", "Public Works", "Water Department",
	"Housing Authority", "Streets and Sanitation", "Fire Department",
}

var procurementTypes = []string{
	"RFP", "Invitation to Bid", "Small Purchase", "Sole Source",
	"Agency Request", "Emergency",
}

func main() {
	dir := flag.String("dir", "./sample", "Output directory")
	licenseCount := flag.Int("licenses", 200, "Number of license rows")
	contractCount := flag.Int("contracts", 150, "Number of contract rows")
	taxCount := flag.Int("taxes", 80, "Number of tax rows")
	seed := flag.Int64("seed", 42, "Random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create %s: %v\n", *dir, err)
		os.Exit(1)
	}

	// Names reused across datasets so the cross-dataset matchers fire.
	linkedSupplier := "Riverside Catering LLC"
	linkedLicensee := "Riverside Catering"
	linkedTaxOwner := "Riverside Caterin LLC"

	licensesPath := filepath.Join(*dir, "licenses.csv")
	if err := writeLicenses(licensesPath, *licenseCount, linkedLicensee, rng); err != nil {
		fmt.Fprintf(os.Stderr, "licenses: %v\n", err)
		os.Exit(1)
	}

	contractsPath := filepath.Join(*dir, "contracts.csv")
	if err := writeContracts(contractsPath, *contractCount, linkedSupplier, rng); err != nil {
		fmt.Fprintf(os.Stderr, "contracts: %v\n", err)
		os.Exit(1)
	}

	taxesPath := filepath.Join(*dir, "taxes.csv")
	if err := writeTaxes(taxesPath, *taxCount, linkedTaxOwner, rng); err != nil {
		fmt.Fprintf(os.Stderr, "taxes: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sample data written to %s\n", *dir)
	fmt.Printf("  %s (%d rows)\n", licensesPath, *licenseCount)
	fmt.Printf("  %s (%d rows)\n", contractsPath, *contractCount)
	fmt.Printf("  %s (%d rows)\n", taxesPath, *taxCount)
	fmt.Println()
	fmt.Println("Analyze with:")
	fmt.Printf("  heron -licenses %s -contracts %s -taxes %s\n", licensesPath, contractsPath, taxesPath)
}

func businessName(rng *rand.Rand) string {
	return fmt.Sprintf("%s %s %s",
		firstWords[rng.Intn(len(firstWords))],
		secondWords[rng.Intn(len(secondWords))],
		suffixes[rng.Intn(len(suffixes))],
	)
}

func address(rng *rand.Rand) string {
	return fmt.Sprintf("%d %s", 100+rng.Intn(9900), streets[rng.Intn(len(streets))])
}

func date(rng *rand.Rand, year int) time.Time {
	day := rng.Intn(364)
	return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day)
}

func writeLicenses(path string, count int, linkedLicensee string, rng *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"business_name", "dba_name", "address", "city", "state",
		"zip_code", "issue_date", "license_type", "owner_name",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	licenseTypes := []string{"Food Service", "Retail", "Professional", "Contractor"}
	owners := []string{"John Smith", "Mary Jones", "Pat Doe", "Alex Kim", "Sam Lee"}

	// Seeded anomaly: one address shared by several businesses, with
	// issue dates packed into one week.
	clusterAddr := "450 Commerce Plaza"
	clusterStart := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		row := []string{
			businessName(rng),
			fmt.Sprintf("Commerce Plaza Suite %d", 100+i),
			clusterAddr,
			"Springfield", "IL", "62701",
			clusterStart.AddDate(0, 0, i).Format("2006-01-02"),
			"Retail",
			owners[rng.Intn(len(owners))],
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	// Seeded anomaly: the cross-dataset linked business.
	if err := w.Write([]string{
		linkedLicensee, "", "780 Harbor View Drive",
		"Springfield", "IL", "62704",
		"2024-02-12", "Food Service", "Pat Doe",
	}); err != nil {
		return err
	}

	for i := 6; i < count; i++ {
		zip := fmt.Sprintf("627%02d", rng.Intn(10))
		row := []string{
			businessName(rng),
			"",
			address(rng),
			"Springfield", "IL", zip,
			date(rng, 2024).Format("2006-01-02"),
			licenseTypes[rng.Intn(len(licenseTypes))],
			owners[rng.Intn(len(owners))],
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}

func writeContracts(path string, count int, linkedSupplier string, rng *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"agency", "contract_number", "contract_value", "supplier",
		"procurement_type", "description", "effective_from", "effective_to",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	contractNum := 1000
	next := func() string {
		contractNum++
		return fmt.Sprintf("C-%d", contractNum)
	}

	// Seeded anomaly: sole-source heavy supplier concentrated in one
	// agency, including three awards on the same day.
	sameDay := "2024-12-02"
	for i := 0; i < 6; i++ {
		effective := sameDay
		if i >= 3 {
			effective = fmt.Sprintf("2024-12-%02d", 5+i)
		}
		row := []string{
			"Parks and Recreation",
			next(),
			fmt.Sprintf("%d", 40000+rng.Intn(60000)),
			linkedSupplier,
			"Sole Source",
			"Event catering services",
			effective,
			"2025-06-30",
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	// Seeded anomaly: more December awards to make the month spike.
	for i := 0; i < 8; i++ {
		row := []string{
			agencies[rng.Intn(len(agencies))],
			next(),
			fmt.Sprintf("%d", 10000+rng.Intn(90000)),
			businessName(rng),
			procurementTypes[rng.Intn(len(procurementTypes))],
			"Year-end procurement",
			fmt.Sprintf("2024-12-%02d", 1+rng.Intn(20)),
			"2025-12-31",
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	// Seeded anomaly: a short-duration contract.
	if err := w.Write([]string{
		"Public Works", next(), "25000", businessName(rng),
		"Emergency", "Emergency road repair",
		"2024-05-01", "2024-05-15",
	}); err != nil {
		return err
	}

	for i := 15; i < count; i++ {
		month := 1 + rng.Intn(11) // keep December reserved for the spike
		from := time.Date(2024, time.Month(month), 1+rng.Intn(27), 0, 0, 0, 0, time.UTC)
		row := []string{
			agencies[rng.Intn(len(agencies))],
			next(),
			fmt.Sprintf("%d", 5000+rng.Intn(195000)),
			businessName(rng),
			procurementTypes[rng.Intn(len(procurementTypes))],
			"General services",
			from.Format("2006-01-02"),
			from.AddDate(1, 0, 0).Format("2006-01-02"),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}

func writeTaxes(path string, count int, linkedTaxOwner string, rng *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"property_code", "owner_name_1", "owner_name_2", "address",
		"total_due", "years_delinquent", "geo_location",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	// Seeded anomaly: the city supplier also owes property taxes.
	if err := w.Write([]string{
		"P-0001", linkedTaxOwner, "", "780 Harbor View Drive",
		"18500.00", "4", "(39.7817, -89.6501)",
	}); err != nil {
		return err
	}

	// Seeded anomaly: a long-term, high-value delinquency.
	if err := w.Write([]string{
		"P-0002", "Vacant Holdings Trust", "", "12 Industrial Parkway",
		"62000.00", "9", "(39.7990, -89.6440)",
	}); err != nil {
		return err
	}

	for i := 2; i < count; i++ {
		due := 500 + rng.Float64()*9500
		years := 1 + rng.Intn(4)
		row := []string{
			fmt.Sprintf("P-%04d", i+1),
			businessName(rng),
			"",
			address(rng),
			fmt.Sprintf("%.2f", due),
			fmt.Sprintf("%d", years),
			"",
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}
