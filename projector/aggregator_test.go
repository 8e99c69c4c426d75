package projector

import (
	"errors"
	"strings"
	"testing"
)

func foldResult(process, industry string, savings, roi float64) *ProjectionResult {
	return &ProjectionResult{
		Input:   ProjectionInput{ProcessName: process, Industry: industry},
		Savings: SavingsBreakdown{AnnualSavings: savings, ROIPercentage: roi},
	}
}

func TestFoldRecordsThreeObservations(t *testing.T) {
	s := NewInMemoryStore()
	agg := NewAggregator(s, NewInsightGenerator(s))

	// High savings with a known industry touches all three buckets.
	res := foldResult("Invoice Processing", "SaaS", 120000, 1400)
	if err := agg.Fold(res); err != nil {
		t.Fatalf("Fold() failed: %v", err)
	}

	if _, ok := s.Pattern(IndustryKey{Industry: "SaaS"}); !ok {
		t.Error("industry pattern not recorded")
	}
	if _, ok := s.Pattern(ProcessKey{Process: "Invoice Processing"}); !ok {
		t.Error("process pattern not recorded")
	}
	if _, ok := s.Pattern(HighValueKey{}); !ok {
		t.Error("high-value pattern not recorded")
	}
}

func TestFoldSkipsUnknownIndustry(t *testing.T) {
	s := NewInMemoryStore()
	agg := NewAggregator(s, NewInsightGenerator(s))

	if err := agg.Fold(foldResult("Invoice Processing", "", 10000, 25)); err != nil {
		t.Fatalf("Fold() failed: %v", err)
	}

	if p, ok := s.Pattern(ProcessKey{Process: "Invoice Processing"}); !ok || p.Frequency != 1 {
		t.Error("process pattern should be recorded regardless of industry")
	}
	for _, industry := range []string{"", "SaaS"} {
		if _, ok := s.Pattern(IndustryKey{Industry: industry}); ok {
			t.Errorf("unexpected industry pattern for %q", industry)
		}
	}
}

// The high-value bucket requires savings strictly above the threshold.
func TestFoldHighValueBoundary(t *testing.T) {
	testCases := []struct {
		savings float64
		want    bool
	}{
		{HighValueSavingsThreshold - 1, false},
		{HighValueSavingsThreshold, false},
		{HighValueSavingsThreshold + 1, true},
	}

	for _, tc := range testCases {
		s := NewInMemoryStore()
		agg := NewAggregator(s, NewInsightGenerator(s))
		if err := agg.Fold(foldResult("Payroll", "", tc.savings, 100)); err != nil {
			t.Fatalf("Fold() failed: %v", err)
		}
		_, ok := s.Pattern(HighValueKey{})
		if ok != tc.want {
			t.Errorf("savings %v: high-value recorded = %v, want %v", tc.savings, ok, tc.want)
		}
	}
}

func TestFoldMergesRepeatedObservations(t *testing.T) {
	s := NewInMemoryStore()
	agg := NewAggregator(s, NewInsightGenerator(s))

	values := []struct{ savings, roi float64 }{
		{10000, 100},
		{20000, 200},
		{30000, 300},
	}
	for _, v := range values {
		if err := agg.Fold(foldResult("Reporting", "Retail", v.savings, v.roi)); err != nil {
			t.Fatalf("Fold() failed: %v", err)
		}
	}

	p, ok := s.Pattern(ProcessKey{Process: "Reporting"})
	if !ok {
		t.Fatal("process pattern not found")
	}
	if p.Frequency != 3 {
		t.Errorf("Frequency = %d, want 3", p.Frequency)
	}
	if !almostEqual(p.AvgSavings, 20000) || !almostEqual(p.AvgROI, 200) {
		t.Errorf("averages = (%v, %v), want (20000, 200)", p.AvgSavings, p.AvgROI)
	}
}

func TestFoldTriggersAnalysisEveryTenth(t *testing.T) {
	s := NewInMemoryStore()
	agg := NewAggregator(s, NewInsightGenerator(s))

	for i := 0; i < 9; i++ {
		res := foldResult("Invoice Processing", "SaaS", 60000, 650)
		if _, err := s.InsertProjection(res); err != nil {
			t.Fatalf("InsertProjection() failed: %v", err)
		}
		if err := agg.Fold(res); err != nil {
			t.Fatalf("Fold() failed: %v", err)
		}
	}

	insights, _ := s.RecentInsights(30, 10)
	if len(insights) != 0 {
		t.Fatalf("analysis ran early: %d insights after 9 projections", len(insights))
	}

	res := foldResult("Invoice Processing", "SaaS", 60000, 650)
	if _, err := s.InsertProjection(res); err != nil {
		t.Fatalf("InsertProjection() failed: %v", err)
	}
	if err := agg.Fold(res); err != nil {
		t.Fatalf("Fold() failed: %v", err)
	}

	insights, _ = s.RecentInsights(30, 10)
	if len(insights) != 2 {
		t.Fatalf("got %d insights after the 10th projection, want 2", len(insights))
	}
}

// failingStore errors on pattern merges so propagation can be checked.
type failingStore struct {
	*InMemoryStore
	failOn PatternType
}

func (s *failingStore) UpsertPattern(key PatternKey, savings, roi float64) error {
	if key.PatternType() == s.failOn {
		return errors.New("store unavailable")
	}
	return s.InMemoryStore.UpsertPattern(key, savings, roi)
}

func TestFoldPropagatesStorageFailures(t *testing.T) {
	for _, failOn := range []PatternType{PatternIndustryROI, PatternProcessSavings, PatternHighValue} {
		s := &failingStore{InMemoryStore: NewInMemoryStore(), failOn: failOn}
		agg := NewAggregator(s, NewInsightGenerator(s))

		err := agg.Fold(foldResult("Invoice Processing", "SaaS", 120000, 1400))
		if err == nil {
			t.Errorf("Fold() should fail when the %s merge fails", failOn)
			continue
		}
		if !strings.Contains(err.Error(), "store unavailable") {
			t.Errorf("error %v does not wrap the storage failure", err)
		}
	}
}
