// Package contracts holds the single-dataset pattern detectors for
// city-contract tables: award timing, procurement-type distribution,
// and agency concentration.
package contracts

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/opencivic-data/heron/internal/domain"
	"github.com/opencivic-data/heron/internal/score"
)

const (
	maxSameDayFindings  = 50
	maxShortDuration    = 50
	shortDurationDays   = 30
	sameDayThreshold    = 3
)

// Timing analyzes award-timing patterns: monthly spikes above two
// standard deviations from the mean, days with three or more awards,
// and contracts shorter than thirty days.
func Timing(contracts []domain.Contract) domain.ContractTimingResult {
	dated := make([]domain.Contract, 0, len(contracts))
	for _, c := range contracts {
		if c.HasEffectiveFrom {
			dated = append(dated, c)
		}
	}

	result := domain.ContractTimingResult{
		TemporalSpikes:         []domain.Finding{},
		SameDayAwards:          []domain.Finding{},
		ShortDurationContracts: []domain.Finding{},
	}
	if len(dated) == 0 {
		return result
	}

	result.TemporalSpikes, result.Summary.AvgMonthlyContracts, result.Summary.MonthsWithSpikes = temporalSpikes(dated)
	result.SameDayAwards, result.Summary.DaysWithMultipleAwards = sameDayAwards(dated)
	result.ShortDurationContracts, result.Summary.ShortDurationCount = shortDuration(dated)
	return result
}

func temporalSpikes(dated []domain.Contract) ([]domain.Finding, float64, int) {
	order, months := groupBy(dated, func(c domain.Contract) string {
		return c.EffectiveFrom.Format("2006-01")
	})
	if len(order) == 0 {
		return nil, 0, 0
	}

	var sum float64
	for _, m := range order {
		sum += float64(len(months[m]))
	}
	mean := sum / float64(len(order))

	var variance float64
	for _, m := range order {
		d := float64(len(months[m])) - mean
		variance += d * d
	}
	std := math.Sqrt(variance / float64(len(order)))
	cutoff := mean + 2*std

	var findings []domain.Finding
	for _, month := range order {
		group := months[month]
		count := float64(len(group))
		if count <= cutoff {
			continue
		}

		var total float64
		var suppliers, agencies []string
		for _, c := range group {
			total += c.ContractValue
			suppliers = appendUnique(suppliers, c.Supplier)
			agencies = appendUnique(agencies, c.Agency)
		}
		if len(suppliers) > 10 {
			suppliers = suppliers[:10]
		}
		deviation := (count - mean) / math.Max(std, 1)

		findings = append(findings, domain.Finding{
			ID:          uuid.New().String(),
			PatternType: domain.PatternTemporalSpike,
			Subject:     month,
			Metric:      count,
			Evidence: map[string]any{
				"month":             month,
				"contractCount":     len(group),
				"totalValue":        total,
				"suppliers":         suppliers,
				"agencies":          agencies,
				"deviationFromMean": math.Round(deviation*100) / 100,
			},
			Narrative: fmt.Sprintf(
				"%d contracts started in %s (average: %.1f). Could indicate: end-of-fiscal-year spending, coordinated procurement, or contract bundling.",
				len(group), month, mean),
		})
	}

	return score.Rank(findings), math.Round(mean*10) / 10, len(findings)
}

func sameDayAwards(dated []domain.Contract) ([]domain.Finding, int) {
	order, days := groupBy(dated, func(c domain.Contract) string {
		return c.EffectiveFrom.Format("2006-01-02")
	})

	var findings []domain.Finding
	for _, day := range order {
		group := days[day]
		if len(group) < sameDayThreshold {
			continue
		}

		var total float64
		var suppliers []string
		for _, c := range group {
			total += c.ContractValue
			suppliers = appendUnique(suppliers, c.Supplier)
		}

		findings = append(findings, domain.Finding{
			ID:          uuid.New().String(),
			PatternType: domain.PatternSameDayAwards,
			Subject:     day,
			Metric:      float64(len(group)),
			Evidence: map[string]any{
				"date":          day,
				"contractCount": len(group),
				"totalValue":    total,
				"suppliers":     suppliers,
			},
			Narrative: fmt.Sprintf(
				"%d contracts awarded on same day. Could indicate: batch processing, coordinated awards, or expedited approvals.",
				len(group)),
		})
	}

	total := len(findings)
	findings = score.Rank(findings)
	if len(findings) > maxSameDayFindings {
		findings = findings[:maxSameDayFindings]
	}
	return findings, total
}

// shortDuration lists contracts under thirty days. These are reported
// per record and left unscored since duration is not a severity axis.
func shortDuration(dated []domain.Contract) ([]domain.Finding, int) {
	var findings []domain.Finding
	count := 0
	for _, c := range dated {
		if !c.HasEffectiveTo {
			continue
		}
		days := int(c.EffectiveTo.Sub(c.EffectiveFrom).Hours() / 24)
		if days >= shortDurationDays || days < 0 {
			continue
		}
		count++
		if len(findings) >= maxShortDuration {
			continue
		}

		findings = append(findings, domain.Finding{
			ID:          uuid.New().String(),
			PatternType: domain.PatternShortDuration,
			Subject:     c.ContractNumber,
			Metric:      float64(days),
			Evidence: map[string]any{
				"contractNumber": c.ContractNumber,
				"supplier":       c.Supplier,
				"agency":         c.Agency,
				"durationDays":   days,
				"value":          c.ContractValue,
			},
			Narrative: fmt.Sprintf(
				"Contract duration of only %d days. Could indicate: emergency procurement, test contract, or potential bid threshold circumvention.",
				days),
		})
	}
	return findings, count
}

// groupBy buckets contracts by key, preserving first-seen key order.
// Empty keys are skipped.
func groupBy(contracts []domain.Contract, key func(domain.Contract) string) ([]string, map[string][]domain.Contract) {
	groups := make(map[string][]domain.Contract)
	var order []string
	for _, c := range contracts {
		k := key(c)
		if k == "" {
			continue
		}
		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], c)
	}
	return order, groups
}

func appendUnique(list []string, s string) []string {
	if s == "" {
		return list
	}
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
