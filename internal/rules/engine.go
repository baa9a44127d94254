// Package rules provides the CEL-Go based key-finding engine. Rules
// are expressions over a report's summary figures; a rule whose value
// lands in a significance band contributes one key finding to the
// report's executive section.
package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/opencivic-data/heron/internal/domain"
)

// Engine compiles and evaluates key-finding rules.
type Engine struct {
	mu       sync.RWMutex
	env      *cel.Env
	compiled []*CompiledRule
	byID     map[string]int
}

// CompiledRule holds a pre-compiled CEL program.
type CompiledRule struct {
	Config  *domain.KeyFindingRule
	Program cel.Program
}

// NewEngine creates a key-finding engine. The CEL environment exposes
// the report summary figures each builtin rule reads, plus a "summary"
// map for ad-hoc rules.
func NewEngine() (*Engine, error) {
	env, err := cel.NewEnv(
		cel.Variable("sharedAddresses", cel.IntType),
		cel.Variable("licenseContractMatches", cel.IntType),
		cel.Variable("licenseTaxMatches", cel.IntType),
		cel.Variable("monthsWithSpikes", cel.IntType),
		cel.Variable("nonCompetitivePct", cel.DoubleType),
		cel.Variable("highConcentrationAgencies", cel.IntType),
		cel.Variable("supplierTaxMatches", cel.IntType),
		cel.Variable("businessTaxMatches", cel.IntType),
		cel.Variable("totalTaxDue", cel.DoubleType),
		cel.Variable("summary", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:  env,
		byID: make(map[string]int),
	}, nil
}

// ValidateRule compiles a rule without loading it.
func (e *Engine) ValidateRule(cfg *domain.KeyFindingRule) error {
	if cfg == nil {
		return fmt.Errorf("rule config is required")
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, err := e.compileRule(cfg)
	return err
}

// LoadRule compiles and loads a rule. Rules evaluate in load order so
// the key-finding section is deterministic; reloading an existing ID
// keeps its position.
func (e *Engine) LoadRule(cfg *domain.KeyFindingRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	compiled, err := e.compileRule(cfg)
	if err != nil {
		return err
	}
	if idx, ok := e.byID[cfg.ID]; ok {
		e.compiled[idx] = compiled
		return nil
	}
	e.byID[cfg.ID] = len(e.compiled)
	e.compiled = append(e.compiled, compiled)
	return nil
}

// LoadRules compiles and loads every enabled rule.
func (e *Engine) LoadRules(configs []*domain.KeyFindingRule) error {
	for _, cfg := range configs {
		if cfg.Enabled {
			if err := e.LoadRule(cfg); err != nil {
				return err
			}
		}
	}
	return nil
}

// Evaluate runs every loaded rule against the report and returns the
// key findings in rule load order.
func (e *Engine) Evaluate(report *domain.Report) ([]domain.KeyFinding, error) {
	e.mu.RLock()
	compiled := make([]*CompiledRule, len(e.compiled))
	copy(compiled, e.compiled)
	e.mu.RUnlock()

	if len(compiled) == 0 {
		return nil, nil
	}

	activation := activationFor(report)

	var findings []domain.KeyFinding
	for _, rule := range compiled {
		out, _, err := rule.Program.Eval(activation)
		if err != nil {
			return nil, fmt.Errorf("rule %s: %w", rule.Config.ID, err)
		}
		value := toValue(out)

		significance, matched := matchBand(value, rule.Config.Bands)
		if !matched {
			continue
		}

		findings = append(findings, domain.KeyFinding{
			Category:     rule.Config.Category,
			Finding:      fmt.Sprintf(rule.Config.Finding, formatValue(value)),
			Significance: significance,
			Action:       rule.Config.Action,
		})
	}
	return findings, nil
}

// LoadedRules returns the loaded rule configs in evaluation order.
func (e *Engine) LoadedRules() []*domain.KeyFindingRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*domain.KeyFindingRule, len(e.compiled))
	for i, rule := range e.compiled {
		out[i] = rule.Config
	}
	return out
}

// RulesCount returns the number of loaded rules.
func (e *Engine) RulesCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// ReloadRules replaces all loaded rules.
func (e *Engine) ReloadRules(configs []*domain.KeyFindingRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.compiled = nil
	e.byID = make(map[string]int)
	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}
		compiled, err := e.compileRule(cfg)
		if err != nil {
			return err
		}
		e.byID[cfg.ID] = len(e.compiled)
		e.compiled = append(e.compiled, compiled)
	}
	return nil
}

func (e *Engine) compileRule(cfg *domain.KeyFindingRule) (*CompiledRule, error) {
	ast, issues := e.env.Compile(cfg.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", cfg.ID, issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, fmt.Errorf("rule %s: expression must return bool, int, or double, got %s", cfg.ID, outputType)
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", cfg.ID, err)
	}

	return &CompiledRule{Config: cfg, Program: program}, nil
}

func activationFor(report *domain.Report) map[string]any {
	a := report.Analyses
	vars := map[string]any{
		"sharedAddresses":           report.Analyses.AddressClustering.TotalSharedAddresses,
		"licenseContractMatches":    a.NameSimilarity.Summary.LicenseContractMatchesFound,
		"licenseTaxMatches":         a.NameSimilarity.Summary.LicenseTaxMatchesFound,
		"monthsWithSpikes":          a.ContractTiming.Summary.MonthsWithSpikes,
		"nonCompetitivePct":         a.ProcurementTypes.Summary.NonCompetitivePercentage,
		"highConcentrationAgencies": a.AgencyConcentration.Summary.HighConcentrationAgencies,
		"supplierTaxMatches":        a.TaxDelinquency.Summary.SupplierMatchesFound,
		"businessTaxMatches":        a.TaxDelinquency.Summary.BusinessMatchesFound,
		"totalTaxDue":               a.TaxDelinquency.Summary.TotalTaxDue,
	}
	summary := make(map[string]any, len(vars))
	for k, v := range vars {
		summary[k] = v
	}
	vars["summary"] = summary
	return vars
}

// toValue converts a CEL result to a number; bool coerces to 0/1.
func toValue(val ref.Val) float64 {
	switch v := val.(type) {
	case types.Bool:
		if v {
			return 1.0
		}
		return 0.0
	case types.Double:
		return float64(v)
	case types.Int:
		return float64(v)
	default:
		return 0.0
	}
}

// formatValue renders whole numbers without a decimal point so count
// templates read naturally.
func formatValue(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

// matchBand finds the band containing the value. Lower is inclusive,
// upper exclusive; nil upper means unbounded.
func matchBand(value float64, bands []domain.RuleBand) (string, bool) {
	for _, band := range bands {
		lower := 0.0
		if band.LowerLimit != nil {
			lower = *band.LowerLimit
		}
		if value < lower {
			continue
		}
		if band.UpperLimit != nil && value >= *band.UpperLimit {
			continue
		}
		return band.Significance, true
	}
	return "", false
}
