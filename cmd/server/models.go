package main

import "github.com/nurulabs/roiprojector/projector"

// API response models.

// calculateResponse is the /api/calculate response body.
type calculateResponse struct {
	ProjectionID int64                      `json:"projection_id"`
	SessionID    string                     `json:"session_id"`
	CurrentState projector.CurrentState     `json:"current_state"`
	WithAI       projector.WithAI           `json:"with_ai"`
	Savings      projector.SavingsBreakdown `json:"savings"`
	Assessment   projector.Assessment       `json:"assessment"`
}

// statsResponse is the /api/stats response body.
type statsResponse struct {
	TotalProjections int64          `json:"total_projections"`
	AvgAnnualSavings float64        `json:"avg_annual_savings"`
	AvgROIPercentage float64        `json:"avg_roi_percentage"`
	TopIndustries    []industryStat `json:"top_industries"`
}

type industryStat struct {
	Industry   string  `json:"industry"`
	AvgSavings float64 `json:"avg_savings"`
	Count      int64   `json:"count"`
}
