package dataset

import (
	"strings"

	"github.com/opencivic-data/heron/internal/domain"
)

// tableSchema maps logical field names to input columns. Required
// columns fail the load fast with a MissingFieldError; optional columns
// degrade to empty fields.
type tableSchema struct {
	dataset  string
	required []string
	optional []string
}

var (
	licenseSchema = tableSchema{
		dataset:  "licenses",
		required: []string{"business_name", "address"},
		optional: []string{"dba_name", "city", "state", "zip_code", "issue_date", "license_type", "owner_name"},
	}

	contractSchema = tableSchema{
		dataset:  "contracts",
		required: []string{"agency", "contract_number", "supplier"},
		optional: []string{"contract_value", "procurement_type", "description", "solicitation_type", "effective_from", "effective_to"},
	}

	taxSchema = tableSchema{
		dataset:  "taxes",
		required: []string{"property_code", "owner_name_1", "address"},
		optional: []string{"owner_name_2", "total_due", "years_delinquent", "geo_location"},
	}
)

// columnIndex resolves a header row against a schema. The returned map
// holds a column index per logical field; optional fields absent from
// the header are simply not present in the map.
func (s tableSchema) columnIndex(header []string) (map[string]int, error) {
	byName := make(map[string]int, len(header))
	for i, col := range header {
		byName[strings.ToLower(strings.TrimSpace(col))] = i
	}

	idx := make(map[string]int, len(s.required)+len(s.optional))
	for _, field := range s.required {
		i, ok := byName[field]
		if !ok {
			return nil, &domain.MissingFieldError{Dataset: s.dataset, Field: field}
		}
		idx[field] = i
	}
	for _, field := range s.optional {
		if i, ok := byName[field]; ok {
			idx[field] = i
		}
	}
	return idx, nil
}

// field extracts one cell by logical name, tolerating ragged rows and
// absent optional columns.
func field(row []string, idx map[string]int, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
