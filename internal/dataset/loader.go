// Package dataset loads the three municipal extracts into normalized
// in-memory tables. Structural problems (missing file, unknown format,
// missing required column) are terminal; everything below that degrades
// per field.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/opencivic-data/heron/internal/domain"
	"github.com/opencivic-data/heron/internal/normalize"
)

// Load reads and normalizes all three datasets for one analysis run.
func Load(licensesPath, contractsPath, taxesPath string) (*domain.Datasets, error) {
	licenses, err := LoadLicenses(licensesPath)
	if err != nil {
		return nil, err
	}
	contracts, err := LoadContracts(contractsPath)
	if err != nil {
		return nil, err
	}
	taxes, err := LoadTaxes(taxesPath)
	if err != nil {
		return nil, err
	}
	return &domain.Datasets{
		Licenses:  licenses,
		Contracts: contracts,
		Taxes:     taxes,
	}, nil
}

// LoadLicenses reads a business-license CSV.
func LoadLicenses(path string) ([]domain.License, error) {
	rows, idx, err := readTable(path, licenseSchema)
	if err != nil {
		return nil, err
	}

	licenses := make([]domain.License, 0, len(rows))
	for _, row := range rows {
		lic := domain.License{
			BusinessName: field(row, idx, "business_name"),
			DBAName:      field(row, idx, "dba_name"),
			Address:      field(row, idx, "address"),
			City:         field(row, idx, "city"),
			State:        field(row, idx, "state"),
			ZipCode:      field(row, idx, "zip_code"),
			LicenseType:  field(row, idx, "license_type"),
			OwnerName:    field(row, idx, "owner_name"),
		}
		lic.IssueDate, lic.HasIssueDate = normalize.Date(field(row, idx, "issue_date"))
		lic.NormBusinessName = normalize.Name(lic.BusinessName)
		lic.NormDBAName = normalize.Name(lic.DBAName)
		lic.NormAddress = normalize.Address(lic.Address)
		licenses = append(licenses, lic)
	}
	return licenses, nil
}

// LoadContracts reads a city-contract CSV.
func LoadContracts(path string) ([]domain.Contract, error) {
	rows, idx, err := readTable(path, contractSchema)
	if err != nil {
		return nil, err
	}

	contracts := make([]domain.Contract, 0, len(rows))
	for _, row := range rows {
		c := domain.Contract{
			Agency:           field(row, idx, "agency"),
			ContractNumber:   field(row, idx, "contract_number"),
			ContractValue:    normalize.Currency(field(row, idx, "contract_value")),
			Supplier:         field(row, idx, "supplier"),
			ProcurementType:  field(row, idx, "procurement_type"),
			Description:      field(row, idx, "description"),
			SolicitationType: field(row, idx, "solicitation_type"),
		}
		c.EffectiveFrom, c.HasEffectiveFrom = normalize.Date(field(row, idx, "effective_from"))
		c.EffectiveTo, c.HasEffectiveTo = normalize.Date(field(row, idx, "effective_to"))
		c.NormSupplier = normalize.Name(c.Supplier)
		contracts = append(contracts, c)
	}
	return contracts, nil
}

// LoadTaxes reads a delinquent property-tax CSV.
func LoadTaxes(path string) ([]domain.TaxRecord, error) {
	rows, idx, err := readTable(path, taxSchema)
	if err != nil {
		return nil, err
	}

	taxes := make([]domain.TaxRecord, 0, len(rows))
	for _, row := range rows {
		rec := domain.TaxRecord{
			PropertyCode:    field(row, idx, "property_code"),
			OwnerName1:      field(row, idx, "owner_name_1"),
			OwnerName2:      field(row, idx, "owner_name_2"),
			Address:         field(row, idx, "address"),
			TotalDue:        normalize.Currency(field(row, idx, "total_due")),
			YearsDelinquent: normalize.Currency(field(row, idx, "years_delinquent")),
			GeoLocation:     field(row, idx, "geo_location"),
		}
		rec.NormOwner = normalize.Name(rec.OwnerName1)
		rec.NormAddress = normalize.Address(rec.Address)
		taxes = append(taxes, rec)
	}
	return taxes, nil
}

// readTable opens a delimited file, validates the header against the
// schema, and returns the data rows plus the column index.
func readTable(path string, schema tableSchema) ([][]string, map[string]int, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".tsv", ".txt":
	case ".xlsx", ".xls":
		return nil, nil, fmt.Errorf("%w: %s (spreadsheets are not supported; export to CSV)", domain.ErrUnsupportedFormat, ext)
	default:
		return nil, nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, fmt.Errorf("%w: %s", domain.ErrInputNotFound, path)
		}
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		r.Comma = '\t'
	}

	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	idx, err := schema.columnIndex(header)
	if err != nil {
		return nil, nil, err
	}

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed row: degrade, do not abort the load.
			continue
		}
		rows = append(rows, row)
	}
	return rows, idx, nil
}
