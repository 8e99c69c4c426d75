package main

import (
	"github.com/nurulabs/roiprojector/internal/metrics"
	"github.com/nurulabs/roiprojector/projector"
)

// instrumentedStore counts pattern merges by type. All other store
// operations pass through.
type instrumentedStore struct {
	projector.Store
	metrics *metrics.Metrics
}

func (s *instrumentedStore) UpsertPattern(key projector.PatternKey, savings, roi float64) error {
	if err := s.Store.UpsertPattern(key, savings, roi); err != nil {
		return err
	}
	s.metrics.PatternsFolded.WithLabelValues(string(key.PatternType())).Inc()
	return nil
}

// instrumentedAnalyzer counts analysis passes, whether triggered by the
// fold boundary or by the scheduler.
type instrumentedAnalyzer struct {
	gen     *projector.InsightGenerator
	metrics *metrics.Metrics
}

func (a *instrumentedAnalyzer) Analyze() error {
	a.metrics.InsightRunsTotal.Inc()
	return a.gen.Analyze()
}
