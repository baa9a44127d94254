package domain

// KeyFindingRule evaluates one CEL expression over a report's summary
// figures and, when the value lands in a band, contributes a key
// finding to the executive section of the report.
type KeyFindingRule struct {
	ID       string `json:"id"`
	Category string `json:"category"`

	// Expression is a CEL expression over the report summary variables.
	// It must return an int, double, or bool; bool is coerced to 0/1.
	Expression string `json:"expression"`

	// Finding is a fmt template receiving the expression value.
	Finding string `json:"finding"`
	Action  string `json:"action"`

	// Bands map value ranges to significance. A value outside every
	// band produces no key finding.
	Bands []RuleBand `json:"bands"`

	Enabled bool `json:"enabled"`
}

// RuleBand is one value range. Lower is inclusive, Upper exclusive;
// a nil Upper means unbounded.
type RuleBand struct {
	LowerLimit   *float64 `json:"lowerLimit,omitempty"`
	UpperLimit   *float64 `json:"upperLimit,omitempty"`
	Significance string   `json:"significance"`
}
