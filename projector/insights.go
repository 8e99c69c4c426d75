package projector

import (
	"fmt"
	"time"
)

const (
	// minSampleSize is the observation floor below which a group cannot
	// back an insight.
	minSampleSize = 3

	analysisQueryLimit = 5

	reportTopLimit        = 10
	reportWindowDays      = 30
	reportInsightLimit    = 5
	opportunityCandidates = 3

	// opportunityMinFrequency is the demand bar for turning a ranked
	// process into a market opportunity.
	opportunityMinFrequency = 5

	// templatePrice is the assumed sale price per process template.
	templatePrice = 8000

	// Confidence is fixed per insight type.
	ConfidenceBestProcess  = 0.95
	ConfidenceBestIndustry = 0.90
)

// InsightGenerator derives human-readable insights and the monthly
// market-opportunity report from accumulated projection history.
// Analyze is safe to run repeatedly: reruns may duplicate insights but
// never conflict with earlier ones.
type InsightGenerator struct {
	store Store
	now   func() time.Time
}

// NewInsightGenerator wires a generator to its store.
func NewInsightGenerator(store Store) *InsightGenerator {
	return &InsightGenerator{store: store, now: time.Now}
}

// Analyze ranks accumulated history and persists up to two insights:
// the best-ROI process and the highest-savings industry. Groups with
// fewer than three observations never qualify; having no qualifying
// group is not an error, the corresponding insight is simply skipped.
func (g *InsightGenerator) Analyze() error {
	topProcesses, err := g.store.TopProcessesByROI(minSampleSize, analysisQueryLimit)
	if err != nil {
		return fmt.Errorf("failed to rank processes: %w", err)
	}
	if len(topProcesses) > 0 {
		best := topProcesses[0]
		ins := &Insight{
			Type: InsightBestROIProcess,
			Text: fmt.Sprintf("Best ROI process: %s (avg %.1f%% ROI, $%s annual savings, %d cases)",
				best.Name, best.AvgROI, dollars(best.AvgSavings), best.Frequency),
			Confidence: ConfidenceBestProcess,
			SupportingData: map[string]any{
				"process":     best.Name,
				"avg_roi":     best.AvgROI,
				"avg_savings": best.AvgSavings,
				"frequency":   best.Frequency,
			},
			GeneratedAt: g.now().UTC(),
		}
		if err := g.store.InsertInsight(ins); err != nil {
			return fmt.Errorf("failed to persist process insight: %w", err)
		}
	}

	topIndustries, err := g.store.TopIndustriesBySavings(minSampleSize, analysisQueryLimit)
	if err != nil {
		return fmt.Errorf("failed to rank industries: %w", err)
	}
	if len(topIndustries) > 0 {
		best := topIndustries[0]
		ins := &Insight{
			Type: InsightBestSavingsIndustry,
			Text: fmt.Sprintf("Highest savings industry: %s (avg $%s annual savings, %.1f%% ROI, %d cases)",
				best.Name, dollars(best.AvgSavings), best.AvgROI, best.Frequency),
			Confidence: ConfidenceBestIndustry,
			SupportingData: map[string]any{
				"industry":    best.Name,
				"avg_savings": best.AvgSavings,
				"avg_roi":     best.AvgROI,
				"sample_size": best.Frequency,
			},
			GeneratedAt: g.now().UTC(),
		}
		if err := g.store.InsertInsight(ins); err != nil {
			return fmt.Errorf("failed to persist industry insight: %w", err)
		}
	}

	return nil
}

// MonthlyReport assembles the intelligence summary: totals, the process
// ranking, market opportunities, recent insights, and recommendations.
// It reads current aggregates and persists nothing.
func (g *InsightGenerator) MonthlyReport() (*Report, error) {
	total, err := g.store.CountProjections()
	if err != nil {
		return nil, fmt.Errorf("failed to count projections: %w", err)
	}

	avgSavings, avgROI, err := g.store.ProjectionAverages()
	if err != nil {
		return nil, fmt.Errorf("failed to average projections: %w", err)
	}

	// Unlike Analyze, the report ranking has no minimum-frequency bar.
	top, err := g.store.TopProcessesByROI(1, reportTopLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank processes: %w", err)
	}

	processes := make([]ReportProcess, 0, len(top))
	for _, p := range top {
		processes = append(processes, ReportProcess{
			Process:    p.Name,
			Frequency:  p.Frequency,
			AvgSavings: p.AvgSavings,
			AvgROI:     p.AvgROI,
		})
	}

	// High-frequency, high-ROI processes are templates worth building.
	opportunities := make([]Opportunity, 0, opportunityCandidates)
	for i, p := range top {
		if i >= opportunityCandidates {
			break
		}
		if p.Frequency < opportunityMinFrequency {
			continue
		}
		opportunities = append(opportunities, Opportunity{
			Opportunity:      fmt.Sprintf("Build %s AI template", p.Name),
			MarketSize:       p.Frequency,
			AvgSavings:       p.AvgSavings,
			AvgROI:           p.AvgROI,
			PotentialRevenue: p.Frequency * templatePrice,
		})
	}

	recent, err := g.store.RecentInsights(reportWindowDays, reportInsightLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent insights: %w", err)
	}
	insights := make([]ReportInsight, 0, len(recent))
	for _, ins := range recent {
		insights = append(insights, ReportInsight{
			Type:       ins.Type,
			Text:       ins.Text,
			Confidence: ins.Confidence,
		})
	}

	recommendations := make([]string, 0, 1)
	if len(opportunities) > 0 {
		topOpp := opportunities[0]
		recommendations = append(recommendations,
			fmt.Sprintf("BUILD: %s - %d companies need this ($%s potential revenue)",
				topOpp.Opportunity, topOpp.MarketSize, enPrinter.Sprintf("%d", topOpp.PotentialRevenue)))
	}

	return &Report{
		Period:              "Last 30 days",
		TotalProjections:    total,
		AvgAnnualSavings:    avgSavings,
		AvgROIPercentage:    avgROI,
		TopProcesses:        processes,
		MarketOpportunities: opportunities,
		Insights:            insights,
		Recommendations:     recommendations,
	}, nil
}
