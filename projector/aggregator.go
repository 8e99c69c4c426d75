package projector

import "fmt"

const (
	// HighValueSavingsThreshold is the annual-savings bar above which a
	// projection also lands in the high-value bucket.
	HighValueSavingsThreshold = 50000

	// analysisInterval is how many recorded projections pass between
	// automatic analysis runs.
	analysisInterval = 10
)

// Analyzer runs one insight analysis pass. *InsightGenerator is the
// production implementation; callers may wrap it.
type Analyzer interface {
	Analyze() error
}

// Aggregator folds completed projections into the running pattern
// statistics. Storage errors propagate to the caller: a skipped
// observation would silently break the frequency invariant.
type Aggregator struct {
	store    Store
	insights Analyzer
}

// NewAggregator wires an aggregator to its store and insight generator.
func NewAggregator(store Store, insights Analyzer) *Aggregator {
	return &Aggregator{store: store, insights: insights}
}

// Fold records up to three pattern observations from one projection:
// an industry bucket when the industry is known, the process bucket
// always, and the high-value bucket when annual savings clear the
// threshold. When the projection count crosses a multiple of ten it
// runs an analysis pass synchronously. Two requests landing on the same
// boundary may both trigger analysis; that is wasteful, not corrupting,
// since analysis only appends.
func (a *Aggregator) Fold(res *ProjectionResult) error {
	savings := res.Savings.AnnualSavings
	roi := res.Savings.ROIPercentage

	if industry := res.Input.Industry; industry != "" {
		if err := a.store.UpsertPattern(IndustryKey{Industry: industry}, savings, roi); err != nil {
			return fmt.Errorf("failed to fold industry pattern: %w", err)
		}
	}

	if err := a.store.UpsertPattern(ProcessKey{Process: res.Input.ProcessName}, savings, roi); err != nil {
		return fmt.Errorf("failed to fold process pattern: %w", err)
	}

	if savings > HighValueSavingsThreshold {
		if err := a.store.UpsertPattern(HighValueKey{}, savings, roi); err != nil {
			return fmt.Errorf("failed to fold high-value pattern: %w", err)
		}
	}

	return a.checkAnalysisTrigger()
}

func (a *Aggregator) checkAnalysisTrigger() error {
	count, err := a.store.CountProjections()
	if err != nil {
		return fmt.Errorf("failed to count projections: %w", err)
	}
	if count > 0 && count%analysisInterval == 0 {
		return a.insights.Analyze()
	}
	return nil
}
