// Package normalize canonicalizes free-text fields from municipal
// extracts into comparable forms. Normalization is pure and idempotent,
// and never fails: malformed input degrades to empty/zero values so a
// bad row can never abort a load.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var whitespace = regexp.MustCompile(`\s+`)

// streetAbbrevs maps long-form street-type words to standard
// abbreviations. Applied in order, whole words only.
var streetAbbrevs = []struct {
	re   *regexp.Regexp
	abbr string
}{
	{regexp.MustCompile(`\bSTREET\b`), "ST"},
	{regexp.MustCompile(`\bAVENUE\b`), "AVE"},
	{regexp.MustCompile(`\bROAD\b`), "RD"},
	{regexp.MustCompile(`\bBOULEVARD\b`), "BLVD"},
	{regexp.MustCompile(`\bDRIVE\b`), "DR"},
	{regexp.MustCompile(`\bLANE\b`), "LN"},
	{regexp.MustCompile(`\bCOURT\b`), "CT"},
	{regexp.MustCompile(`\bPLACE\b`), "PL"},
	{regexp.MustCompile(`\bCIRCLE\b`), "CIR"},
	{regexp.MustCompile(`\bHIGHWAY\b`), "HWY"},
	{regexp.MustCompile(`\bPARKWAY\b`), "PKWY"},
	{regexp.MustCompile(`\bTURNPIKE\b`), "TPKE"},
}

// legalSuffixes are stripped from the end of entity names, first match
// in list order only, no recursive stripping.
var legalSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`\s+LLC$`),
	regexp.MustCompile(`\s+INC$`),
	regexp.MustCompile(`\s+CORP$`),
	regexp.MustCompile(`\s+CO$`),
	regexp.MustCompile(`\s+LTD$`),
	regexp.MustCompile(`\s+LP$`),
	regexp.MustCompile(`\s+LLP$`),
	regexp.MustCompile(`\s+PC$`),
	regexp.MustCompile(`\s+PLC$`),
	regexp.MustCompile(`\s+CORPORATION$`),
	regexp.MustCompile(`\s+COMPANY$`),
	regexp.MustCompile(`\s+LIMITED$`),
	regexp.MustCompile(`\s+INCORPORATED$`),
}

// Address canonicalizes a street address: uppercase, collapsed
// whitespace, standard street-type abbreviations. Empty or missing
// input yields "" so set and group operations treat missing
// consistently.
func Address(raw string) string {
	addr := strings.ToUpper(strings.TrimSpace(raw))
	if addr == "" {
		return ""
	}
	addr = whitespace.ReplaceAllString(addr, " ")
	for _, r := range streetAbbrevs {
		addr = r.re.ReplaceAllString(addr, r.abbr)
	}
	return addr
}

// Name canonicalizes a business or owner name: uppercase, trimmed, one
// trailing legal-entity suffix stripped, whitespace collapsed.
func Name(raw string) string {
	name := strings.ToUpper(strings.TrimSpace(raw))
	if name == "" {
		return ""
	}
	for _, re := range legalSuffixes {
		if re.MatchString(name) {
			name = re.ReplaceAllString(name, "")
			break
		}
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(name, " "))
}

// Currency parses a currency string to a float. Everything that is not
// a digit, '.', or '-' is stripped before parsing; unparsable or missing
// input yields 0.
func Currency(raw string) float64 {
	if raw == "" {
		return 0
	}
	var b strings.Builder
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}

// dateLayouts are tried in order by Date.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
}

// Date best-effort parses a date string. The second return is false when
// no layout matches; parsing never fails the caller.
func Date(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
