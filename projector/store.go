package projector

import (
	"sort"
	"sync"
	"time"
)

// Store is the persistence collaborator for the estimator pipeline.
// UpsertPattern must be atomic per (pattern type, key): two concurrent
// folds on the same key must both land, with no lost increment.
type Store interface {
	// InsertProjection appends a completed projection and returns its id.
	InsertProjection(res *ProjectionResult) (int64, error)

	// UpsertPattern merges one observation into the pattern record for
	// key, creating it with frequency 1 when absent.
	UpsertPattern(key PatternKey, savings, roi float64) error

	// CountProjections returns the total number of projections ever
	// recorded.
	CountProjections() (int64, error)

	// ProjectionAverages returns the mean savings and mean ROI across
	// all recorded projections, zero when there are none.
	ProjectionAverages() (avgSavings, avgROI float64, err error)

	// TopProcessesByROI ranks process names by mean ROI among those
	// with at least minFrequency observations.
	TopProcessesByROI(minFrequency, limit int) ([]GroupStat, error)

	// TopIndustriesBySavings ranks non-empty industries by mean savings
	// among those with at least minFrequency observations.
	TopIndustriesBySavings(minFrequency, limit int) ([]GroupStat, error)

	// InsertInsight appends a generated insight.
	InsertInsight(ins *Insight) error

	// RecentInsights returns insights generated within the last
	// windowDays days, ordered by confidence descending then recency,
	// capped at limit.
	RecentInsights(windowDays, limit int) ([]*Insight, error)
}

// InMemoryStore implements Store with mutex-guarded maps. It serializes
// pattern merges per store, which satisfies the per-key atomicity
// contract, and is the backend for unit tests.
type InMemoryStore struct {
	mu          sync.Mutex
	nextID      int64
	projections []projectionRow
	patterns    map[string]*Pattern
	insights    []*Insight
}

// projectionRow is the subset of a projection the rankings need.
type projectionRow struct {
	processName string
	industry    string
	savings     float64
	roi         float64
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		patterns: make(map[string]*Pattern),
	}
}

func (s *InMemoryStore) InsertProjection(res *ProjectionResult) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	s.projections = append(s.projections, projectionRow{
		processName: res.Input.ProcessName,
		industry:    res.Input.Industry,
		savings:     res.Savings.AnnualSavings,
		roi:         res.Savings.ROIPercentage,
	})
	return s.nextID, nil
}

func (s *InMemoryStore) UpsertPattern(key PatternKey, savings, roi float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := string(key.PatternType()) + "\x00" + key.Data()
	p, ok := s.patterns[k]
	if !ok {
		s.patterns[k] = &Pattern{
			Type:        key.PatternType(),
			Key:         key.Data(),
			Frequency:   1,
			AvgSavings:  savings,
			AvgROI:      roi,
			LastUpdated: time.Now().UTC(),
		}
		return nil
	}

	// Incremental mean over exactly Frequency observations.
	f := float64(p.Frequency)
	p.AvgSavings = (p.AvgSavings*f + savings) / (f + 1)
	p.AvgROI = (p.AvgROI*f + roi) / (f + 1)
	p.Frequency++
	p.LastUpdated = time.Now().UTC()
	return nil
}

// Pattern returns a copy of the record for key, if present.
func (s *InMemoryStore) Pattern(key PatternKey) (Pattern, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patterns[string(key.PatternType())+"\x00"+key.Data()]
	if !ok {
		return Pattern{}, false
	}
	return *p, true
}

func (s *InMemoryStore) CountProjections() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.projections)), nil
}

func (s *InMemoryStore) ProjectionAverages() (float64, float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.projections) == 0 {
		return 0, 0, nil
	}
	var sumSavings, sumROI float64
	for _, row := range s.projections {
		sumSavings += row.savings
		sumROI += row.roi
	}
	n := float64(len(s.projections))
	return sumSavings / n, sumROI / n, nil
}

func (s *InMemoryStore) TopProcessesByROI(minFrequency, limit int) ([]GroupStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.groupBy(func(r projectionRow) string { return r.processName })
	stats = filterMinFrequency(stats, minFrequency)
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].AvgROI > stats[j].AvgROI })
	return clip(stats, limit), nil
}

func (s *InMemoryStore) TopIndustriesBySavings(minFrequency, limit int) ([]GroupStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.groupBy(func(r projectionRow) string { return r.industry })
	stats = filterMinFrequency(stats, minFrequency)
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].AvgSavings > stats[j].AvgSavings })
	return clip(stats, limit), nil
}

// groupBy aggregates rows by the given field, skipping empty group names.
// Callers must hold the mutex.
func (s *InMemoryStore) groupBy(field func(projectionRow) string) []GroupStat {
	type acc struct {
		n          int64
		sumSavings float64
		sumROI     float64
	}
	groups := make(map[string]*acc)
	var order []string
	for _, row := range s.projections {
		name := field(row)
		if name == "" {
			continue
		}
		g, ok := groups[name]
		if !ok {
			g = &acc{}
			groups[name] = g
			order = append(order, name)
		}
		g.n++
		g.sumSavings += row.savings
		g.sumROI += row.roi
	}

	stats := make([]GroupStat, 0, len(order))
	for _, name := range order {
		g := groups[name]
		stats = append(stats, GroupStat{
			Name:       name,
			Frequency:  g.n,
			AvgSavings: g.sumSavings / float64(g.n),
			AvgROI:     g.sumROI / float64(g.n),
		})
	}
	return stats
}

func filterMinFrequency(stats []GroupStat, minFrequency int) []GroupStat {
	if minFrequency <= 1 {
		return stats
	}
	kept := stats[:0]
	for _, st := range stats {
		if st.Frequency >= int64(minFrequency) {
			kept = append(kept, st)
		}
	}
	return kept
}

func clip(stats []GroupStat, limit int) []GroupStat {
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	return stats
}

func (s *InMemoryStore) InsertInsight(ins *Insight) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *ins
	s.nextID++
	stored.ID = s.nextID
	if stored.GeneratedAt.IsZero() {
		stored.GeneratedAt = time.Now().UTC()
	}
	s.insights = append(s.insights, &stored)
	return nil
}

func (s *InMemoryStore) RecentInsights(windowDays, limit int) ([]*Insight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -windowDays)
	recent := make([]*Insight, 0, len(s.insights))
	for _, ins := range s.insights {
		if !ins.GeneratedAt.Before(cutoff) {
			copied := *ins
			recent = append(recent, &copied)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		if recent[i].Confidence != recent[j].Confidence {
			return recent[i].Confidence > recent[j].Confidence
		}
		return recent[i].GeneratedAt.After(recent[j].GeneratedAt)
	})
	if limit > 0 && len(recent) > limit {
		recent = recent[:limit]
	}
	return recent, nil
}
