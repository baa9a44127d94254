// Package report assembles the full analysis report: it fans the
// datasets through every detector, derives key findings through the
// rules engine, and renders text and JSON views.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/opencivic-data/heron/internal/contracts"
	"github.com/opencivic-data/heron/internal/crossmatch"
	"github.com/opencivic-data/heron/internal/domain"
	"github.com/opencivic-data/heron/internal/license"
	"github.com/opencivic-data/heron/internal/rules"
	"github.com/opencivic-data/heron/internal/similarity"
)

var tracer = otel.Tracer("heron/report")

// Aggregator runs the complete analysis pipeline over loaded datasets.
type Aggregator struct {
	scorer similarity.Scorer
	engine *rules.Engine
	cfg    domain.AnalysisConfig
	logger *slog.Logger
}

// NewAggregator builds an aggregator. A nil scorer degrades the
// name-similarity and tax-linkage analyses to skipped sections; a nil
// engine yields a report without key findings.
func NewAggregator(scorer similarity.Scorer, engine *rules.Engine, cfg domain.AnalysisConfig, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		scorer: scorer,
		engine: engine,
		cfg:    cfg.Normalized(),
		logger: logger,
	}
}

// Generate runs every analysis and assembles the report for one run.
func (a *Aggregator) Generate(ctx context.Context, runID string, data *domain.Datasets) (*domain.Report, error) {
	ctx, span := tracer.Start(ctx, "report.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", runID),
		attribute.Int("licenses.count", len(data.Licenses)),
		attribute.Int("contracts.count", len(data.Contracts)),
		attribute.Int("taxes.count", len(data.Taxes)),
	)

	report := &domain.Report{
		RunID:           runID,
		GeneratedAt:     time.Now().UTC(),
		DatasetSummary:  summarize(data),
		Recommendations: FollowUpRecommendations(),
	}

	a.logger.InfoContext(ctx, "analyzing address clustering", "run_id", runID)
	report.Analyses.AddressClustering = crossmatch.AddressClustering(data.Licenses, data.Taxes, a.cfg.AddressThreshold)

	a.logger.InfoContext(ctx, "analyzing name similarity", "run_id", runID)
	report.Analyses.NameSimilarity = crossmatch.NameSimilarity(a.scorer, data, a.cfg.NameSimilarityThreshold, a.cfg.MaxWorkers)

	a.logger.InfoContext(ctx, "analyzing license patterns", "run_id", runID)
	report.Analyses.LicensePatterns = domain.LicensePatternsResult{
		AddressDensity:   license.AddressDensity(data.Licenses, a.cfg.AddressThreshold),
		DBAPatterns:      license.DBAPatterns(data.Licenses),
		TemporalClusters: license.TemporalClusters(data.Licenses, a.cfg.TemporalWindowDays, a.cfg.TemporalThreshold),
		Geographic:       license.Geographic(data.Licenses, a.cfg.ZipThreshold),
	}

	a.logger.InfoContext(ctx, "analyzing contract timing", "run_id", runID)
	report.Analyses.ContractTiming = contracts.Timing(data.Contracts)

	a.logger.InfoContext(ctx, "analyzing procurement types", "run_id", runID)
	report.Analyses.ProcurementTypes = contracts.ProcurementTypes(data.Contracts)

	a.logger.InfoContext(ctx, "analyzing agency concentration", "run_id", runID)
	report.Analyses.AgencyConcentration = contracts.AgencyConcentration(data.Contracts)

	a.logger.InfoContext(ctx, "analyzing tax delinquent overlaps", "run_id", runID)
	report.Analyses.TaxDelinquency = crossmatch.TaxLinkage(a.scorer, data, a.cfg)

	if a.engine != nil {
		keyFindings, err := a.engine.Evaluate(report)
		if err != nil {
			return nil, fmt.Errorf("key finding evaluation: %w", err)
		}
		report.KeyFindings = keyFindings
	}

	a.logger.InfoContext(ctx, "report generated",
		"run_id", runID,
		"findings", len(report.AllFindings()),
		"key_findings", len(report.KeyFindings))
	return report, nil
}

func summarize(data *domain.Datasets) domain.DatasetSummary {
	var s domain.DatasetSummary

	s.Licenses.TotalRecords = len(data.Licenses)
	businesses := map[string]bool{}
	addresses := map[string]bool{}
	var earliest, latest time.Time
	for _, l := range data.Licenses {
		if l.BusinessName != "" {
			businesses[l.BusinessName] = true
		}
		if l.Address != "" {
			addresses[l.Address] = true
		}
		if l.HasIssueDate {
			if earliest.IsZero() || l.IssueDate.Before(earliest) {
				earliest = l.IssueDate
			}
			if latest.IsZero() || l.IssueDate.After(latest) {
				latest = l.IssueDate
			}
		}
	}
	s.Licenses.UniqueBusinesses = len(businesses)
	s.Licenses.UniqueAddresses = len(addresses)
	if !earliest.IsZero() {
		s.Licenses.EarliestIssue = earliest.Format("2006-01-02")
		s.Licenses.LatestIssue = latest.Format("2006-01-02")
	}

	s.Contracts.TotalRecords = len(data.Contracts)
	suppliers := map[string]bool{}
	agencies := map[string]bool{}
	for _, c := range data.Contracts {
		s.Contracts.TotalValue += c.ContractValue
		if c.Supplier != "" {
			suppliers[c.Supplier] = true
		}
		if c.Agency != "" {
			agencies[c.Agency] = true
		}
	}
	s.Contracts.UniqueSuppliers = len(suppliers)
	s.Contracts.UniqueAgencies = len(agencies)

	s.Taxes.TotalRecords = len(data.Taxes)
	owners := map[string]bool{}
	for _, t := range data.Taxes {
		s.Taxes.TotalDue += t.TotalDue
		if t.OwnerName1 != "" {
			owners[t.OwnerName1] = true
		}
	}
	s.Taxes.UniqueOwners = len(owners)

	return s
}

// FollowUpRecommendations is the static list of external data sources
// worth pulling to validate flagged patterns.
func FollowUpRecommendations() []domain.Recommendation {
	return []domain.Recommendation{
		{
			DataSource: "Corporate registration records",
			Purpose:    "Verify ownership networks and shell company relationships",
			Priority:   "HIGH",
		},
		{
			DataSource: "Bid documents and evaluation records",
			Purpose:    "Validate competitive process integrity for flagged contracts",
			Priority:   "HIGH",
		},
		{
			DataSource: "Property ownership transfer history",
			Purpose:    "Track asset movement among related entities",
			Priority:   "MEDIUM",
		},
		{
			DataSource: "Campaign contribution records",
			Purpose:    "Identify potential pay-to-play relationships",
			Priority:   "MEDIUM",
		},
		{
			DataSource: "Subcontractor payment records",
			Purpose:    "Trace money flows through prime contractors",
			Priority:   "MEDIUM",
		},
		{
			DataSource: "Building permit records",
			Purpose:    "Verify legitimate business operations at flagged addresses",
			Priority:   "LOW",
		},
		{
			DataSource: "Utility service records",
			Purpose:    "Confirm actual occupancy at business addresses",
			Priority:   "LOW",
		},
	}
}
