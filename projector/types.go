package projector

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrInvalidInput is returned when a projection input fails its
// preconditions. The cost model is undefined without a process name,
// positive weekly hours, and a positive hourly cost.
var ErrInvalidInput = errors.New("invalid projection input")

// RiskLevel classifies how likely an automation projection is to miss.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// ProjectionInput describes the manual process a caller wants to automate.
type ProjectionInput struct {
	CompanyName         string  `json:"company_name,omitempty"`
	Industry            string  `json:"industry,omitempty"`
	Email               string  `json:"email,omitempty"`
	ProcessName         string  `json:"process_name"`
	HoursPerWeek        int     `json:"hours_per_week"`
	PeopleCount         int     `json:"people_count"`
	HourlyCost          float64 `json:"hourly_cost"`
	CurrentToolsCost    float64 `json:"current_tools_cost"`
	TimelineExpectation string  `json:"timeline_expectation,omitempty"`
}

// CurrentState is the cost of running the process by hand today.
type CurrentState struct {
	AnnualLaborCost float64 `json:"annual_labor_cost"`
	AnnualToolsCost float64 `json:"annual_tools_cost"`
	TotalAnnualCost float64 `json:"total_annual_cost"`
	HoursPerWeek    int     `json:"hours_per_week"`
	PeopleCount     int     `json:"people_count"`
}

// WithAI is the projected cost of the automated process.
type WithAI struct {
	AnnualAICost         float64 `json:"annual_ai_cost"`
	ImplementationCost   float64 `json:"implementation_cost"`
	AutomationPercentage float64 `json:"automation_percentage"`
	HoursAutomatedWeekly float64 `json:"hours_automated_weekly"`
}

// SavingsBreakdown summarizes the financial upside of automating.
type SavingsBreakdown struct {
	AnnualSavings    float64 `json:"annual_savings"`
	MonthlySavings   float64 `json:"monthly_savings"`
	BreakevenMonths  int     `json:"breakeven_months"`
	ROIPercentage    float64 `json:"roi_percentage"`
	ThreeYearSavings float64 `json:"three_year_savings"`
}

// Assessment carries the qualitative read on the projection.
type Assessment struct {
	RiskLevel       RiskLevel `json:"risk_level"`
	ComplexityScore int       `json:"complexity_score"`
	Recommendation  string    `json:"recommendation"`
	NextSteps       []string  `json:"next_steps"`
	IndustryNote    string    `json:"industry_note,omitempty"`
}

// ProjectionResult is the full outcome of one estimate. It is created once
// per request and never mutated after Estimate returns; the ID is assigned
// by the store on insert.
type ProjectionResult struct {
	ID           int64            `json:"projection_id,omitempty"`
	Input        ProjectionInput  `json:"-"`
	CurrentState CurrentState     `json:"current_state"`
	WithAI       WithAI           `json:"with_ai"`
	Savings      SavingsBreakdown `json:"savings"`
	Assessment   Assessment       `json:"assessment"`

	// AnnualLaborSavings is the labor value of the automated hours. It is
	// informational: the net savings figure is driven by the current-cost
	// baseline, not by this number.
	AnnualLaborSavings float64 `json:"-"`

	CreatedAt time.Time `json:"-"`
}

// PatternType identifies which statistic a pattern record accumulates.
type PatternType string

const (
	PatternIndustryROI    PatternType = "industry_roi"
	PatternProcessSavings PatternType = "process_savings"
	PatternHighValue      PatternType = "high_value"
)

// PatternKey is the closed set of keys a pattern observation can be
// recorded under. Each variant has a fixed type and a canonical storage
// encoding, so merges for different variants can never collide.
type PatternKey interface {
	PatternType() PatternType
	// Data returns the canonical encoding stored alongside the type.
	Data() string
}

// IndustryKey buckets observations by the submitting company's industry.
type IndustryKey struct {
	Industry string
}

func (k IndustryKey) PatternType() PatternType { return PatternIndustryROI }

func (k IndustryKey) Data() string {
	b, _ := json.Marshal(struct {
		Industry string `json:"industry"`
	}{k.Industry})
	return string(b)
}

// ProcessKey buckets observations by process name.
type ProcessKey struct {
	Process string
}

func (k ProcessKey) PatternType() PatternType { return PatternProcessSavings }

func (k ProcessKey) Data() string {
	b, _ := json.Marshal(struct {
		Process string `json:"process"`
	}{k.Process})
	return string(b)
}

// HighValueKey is the single bucket for projections whose annual savings
// clear the high-value threshold.
type HighValueKey struct{}

func (HighValueKey) PatternType() PatternType { return PatternHighValue }

func (HighValueKey) Data() string {
	return `{"type":"high_value","threshold":50000}`
}

// Pattern is a running incremental-average statistic for one key.
// AvgSavings and AvgROI are always the arithmetic mean over exactly
// Frequency observations.
type Pattern struct {
	Type        PatternType `json:"pattern_type"`
	Key         string      `json:"pattern_key"`
	Frequency   int64       `json:"frequency"`
	AvgSavings  float64     `json:"avg_savings"`
	AvgROI      float64     `json:"avg_roi"`
	LastUpdated time.Time   `json:"last_updated"`
}

// Insight types emitted by the generator.
const (
	InsightBestROIProcess      = "best_roi_process"
	InsightBestSavingsIndustry = "best_savings_industry"
)

// Insight is a derived, human-readable statement about accumulated
// patterns. Insights accumulate; they are never updated.
type Insight struct {
	ID             int64          `json:"-"`
	Type           string         `json:"insight_type"`
	Text           string         `json:"insight_text"`
	Confidence     float64        `json:"confidence"`
	SupportingData map[string]any `json:"supporting_data,omitempty"`
	GeneratedAt    time.Time      `json:"generated_at"`
}

// GroupStat is one row of a grouped ranking over recorded projections.
type GroupStat struct {
	Name       string
	Frequency  int64
	AvgSavings float64
	AvgROI     float64
}

// ReportProcess is one entry of the monthly report's process ranking.
type ReportProcess struct {
	Process    string  `json:"process"`
	Frequency  int64   `json:"frequency"`
	AvgSavings float64 `json:"avg_savings"`
	AvgROI     float64 `json:"avg_roi"`
}

// Opportunity is a market opportunity derived from a frequent,
// high-ROI process.
type Opportunity struct {
	Opportunity      string  `json:"opportunity"`
	MarketSize       int64   `json:"market_size"`
	AvgSavings       float64 `json:"avg_savings"`
	AvgROI           float64 `json:"avg_roi"`
	PotentialRevenue int64   `json:"potential_revenue"`
}

// ReportInsight is the trimmed insight view embedded in a report.
type ReportInsight struct {
	Type       string  `json:"type"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Report is the monthly intelligence summary. It is read-only: building
// one persists nothing.
type Report struct {
	Period              string          `json:"period"`
	TotalProjections    int64           `json:"total_projections"`
	AvgAnnualSavings    float64         `json:"avg_annual_savings"`
	AvgROIPercentage    float64         `json:"avg_roi_percentage"`
	TopProcesses        []ReportProcess `json:"top_processes"`
	MarketOpportunities []Opportunity   `json:"market_opportunities"`
	Insights            []ReportInsight `json:"insights"`
	Recommendations     []string        `json:"recommendations"`
}
