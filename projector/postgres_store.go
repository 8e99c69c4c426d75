package projector

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresStore implements Store backed by PostgreSQL. Pattern merges use
// a single INSERT ... ON CONFLICT DO UPDATE statement, so concurrent
// folds on the same key serialize inside the database and no increment
// is lost.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed store over an existing
// connection pool. The caller owns the pool's lifecycle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InsertProjection(res *ProjectionResult) (int64, error) {
	var id int64
	err := s.db.QueryRow(`
		INSERT INTO roi_projections (
			company_name, industry, email, process_name,
			hours_per_week, people_count, hourly_cost, current_tools_cost,
			timeline_expectation, annual_cost_current, annual_cost_with_ai,
			annual_savings, implementation_cost, breakeven_months,
			roi_percentage, risk_level, recommendation, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, NOW())
		RETURNING id
	`,
		res.Input.CompanyName,
		nullString(res.Input.Industry),
		nullString(res.Input.Email),
		res.Input.ProcessName,
		res.Input.HoursPerWeek,
		res.Input.PeopleCount,
		res.Input.HourlyCost,
		res.Input.CurrentToolsCost,
		nullString(res.Input.TimelineExpectation),
		res.CurrentState.TotalAnnualCost,
		res.WithAI.AnnualAICost,
		res.Savings.AnnualSavings,
		res.WithAI.ImplementationCost,
		res.Savings.BreakevenMonths,
		res.Savings.ROIPercentage,
		string(res.Assessment.RiskLevel),
		res.Assessment.Recommendation,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert projection: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) UpsertPattern(key PatternKey, savings, roi float64) error {
	_, err := s.db.Exec(`
		INSERT INTO roi_patterns (pattern_type, pattern_data, frequency, avg_savings, avg_roi, last_updated)
		VALUES ($1, $2, 1, $3, $4, NOW())
		ON CONFLICT (pattern_type, pattern_data)
		DO UPDATE SET
			frequency = roi_patterns.frequency + 1,
			avg_savings = (roi_patterns.avg_savings * roi_patterns.frequency + EXCLUDED.avg_savings) / (roi_patterns.frequency + 1),
			avg_roi = (roi_patterns.avg_roi * roi_patterns.frequency + EXCLUDED.avg_roi) / (roi_patterns.frequency + 1),
			last_updated = NOW()
	`, string(key.PatternType()), key.Data(), savings, roi)
	if err != nil {
		return fmt.Errorf("failed to upsert pattern %s: %w", key.PatternType(), err)
	}
	return nil
}

// Pattern returns the stored record for key, or sql.ErrNoRows.
func (s *PostgresStore) Pattern(key PatternKey) (*Pattern, error) {
	var p Pattern
	err := s.db.QueryRow(`
		SELECT pattern_type, pattern_data, frequency, avg_savings, avg_roi, last_updated
		FROM roi_patterns
		WHERE pattern_type = $1 AND pattern_data = $2
	`, string(key.PatternType()), key.Data()).Scan(
		&p.Type, &p.Key, &p.Frequency, &p.AvgSavings, &p.AvgROI, &p.LastUpdated,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get pattern: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) CountProjections() (int64, error) {
	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM roi_projections`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count projections: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) ProjectionAverages() (float64, float64, error) {
	var avgSavings, avgROI float64
	err := s.db.QueryRow(`
		SELECT COALESCE(AVG(annual_savings), 0), COALESCE(AVG(roi_percentage), 0)
		FROM roi_projections
	`).Scan(&avgSavings, &avgROI)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to average projections: %w", err)
	}
	return avgSavings, avgROI, nil
}

func (s *PostgresStore) TopProcessesByROI(minFrequency, limit int) ([]GroupStat, error) {
	return s.topGrouped("process_name", "avg_roi", minFrequency, limit)
}

func (s *PostgresStore) TopIndustriesBySavings(minFrequency, limit int) ([]GroupStat, error) {
	return s.topGrouped("industry", "avg_savings", minFrequency, limit)
}

// topGrouped runs the shared grouped-aggregate ranking. Both column
// arguments come from the two call sites above, never from input.
func (s *PostgresStore) topGrouped(groupColumn, orderColumn string, minFrequency, limit int) ([]GroupStat, error) {
	query := fmt.Sprintf(`
		SELECT %[1]s,
			COUNT(*) AS frequency,
			AVG(annual_savings) AS avg_savings,
			AVG(roi_percentage) AS avg_roi
		FROM roi_projections
		WHERE %[1]s IS NOT NULL
		GROUP BY %[1]s
		HAVING COUNT(*) >= $1
		ORDER BY %[2]s DESC
		LIMIT $2
	`, groupColumn, orderColumn)

	if minFrequency < 1 {
		minFrequency = 1
	}
	rows, err := s.db.Query(query, minFrequency, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to rank by %s: %w", groupColumn, err)
	}
	defer rows.Close()

	var stats []GroupStat
	for rows.Next() {
		var st GroupStat
		if err := rows.Scan(&st.Name, &st.Frequency, &st.AvgSavings, &st.AvgROI); err != nil {
			return nil, fmt.Errorf("failed to scan ranking row: %w", err)
		}
		stats = append(stats, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ranking rows: %w", err)
	}
	return stats, nil
}

func (s *PostgresStore) InsertInsight(ins *Insight) error {
	supporting, err := json.Marshal(ins.SupportingData)
	if err != nil {
		return fmt.Errorf("failed to encode supporting data: %w", err)
	}

	err = s.db.QueryRow(`
		INSERT INTO roi_insights (insight_type, insight_text, confidence, supporting_data, generated_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id, generated_at
	`, ins.Type, ins.Text, ins.Confidence, supporting).Scan(&ins.ID, &ins.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to insert insight: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentInsights(windowDays, limit int) ([]*Insight, error) {
	rows, err := s.db.Query(`
		SELECT id, insight_type, insight_text, confidence, supporting_data, generated_at
		FROM roi_insights
		WHERE generated_at >= NOW() - make_interval(days => $1)
		ORDER BY confidence DESC, generated_at DESC
		LIMIT $2
	`, windowDays, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent insights: %w", err)
	}
	defer rows.Close()

	var insights []*Insight
	for rows.Next() {
		var ins Insight
		var supporting []byte
		if err := rows.Scan(&ins.ID, &ins.Type, &ins.Text, &ins.Confidence, &supporting, &ins.GeneratedAt); err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		if len(supporting) > 0 {
			if err := json.Unmarshal(supporting, &ins.SupportingData); err != nil {
				return nil, fmt.Errorf("failed to decode supporting data: %w", err)
			}
		}
		insights = append(insights, &ins)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating insights: %w", err)
	}
	return insights, nil
}

// nullString maps the empty string to SQL NULL so optional columns stay
// NULL-filtered in the rankings.
func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
