package projector

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Cost model constants. These are deliberately conservative: the model
// never assumes full automation, and implementation costs are tiered
// rather than estimated per engagement.
const (
	// AutomationFraction is the share of weekly hours the model assumes
	// AI can take over. Humans stay in the loop for edge cases and
	// oversight.
	AutomationFraction = 0.65

	// BreakevenNever is the sentinel breakeven value for projections
	// that never pay for themselves within the model horizon.
	BreakevenNever = 999

	weeksPerYear  = 52
	monthsPerYear = 12

	implementationCostSimple  = 8000
	implementationCostMedium  = 12000
	implementationCostComplex = 18000

	monthlyAICostLight  = 200
	monthlyAICostMedium = 400
	monthlyAICostHeavy  = 800
)

var enPrinter = message.NewPrinter(language.English)

// dollars renders an amount with thousands separators and no cents, the
// way the recommendation and insight texts cite money.
func dollars(v float64) string {
	return enPrinter.Sprintf("%.0f", v)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
func round1(v float64) float64 { return math.Round(v*10) / 10 }

// Estimate turns a process description into a cost/savings/risk
// projection. It is a pure function: no storage, no clock dependence
// beyond stamping CreatedAt. Returns ErrInvalidInput when the process
// name is empty or hours/week or hourly cost are not positive.
func Estimate(in ProjectionInput) (*ProjectionResult, error) {
	if strings.TrimSpace(in.ProcessName) == "" {
		return nil, fmt.Errorf("%w: process name is required", ErrInvalidInput)
	}
	if in.HoursPerWeek <= 0 {
		return nil, fmt.Errorf("%w: hours per week must be positive", ErrInvalidInput)
	}
	if in.HourlyCost <= 0 {
		return nil, fmt.Errorf("%w: hourly cost must be positive", ErrInvalidInput)
	}

	people := in.PeopleCount
	if people <= 0 {
		people = 1
	}
	in.PeopleCount = people

	// Current-state baseline.
	weeklyCost := float64(in.HoursPerWeek) * in.HourlyCost * float64(people)
	annualLaborCost := weeklyCost * weeksPerYear
	annualToolsCost := in.CurrentToolsCost * monthsPerYear
	annualCostCurrent := annualLaborCost + annualToolsCost

	score := complexityScore(in)
	implCost := implementationCost(score)
	annualAICost := monthlyAICost(in.HoursPerWeek) * monthsPerYear

	hoursAutomatedWeekly := float64(in.HoursPerWeek) * AutomationFraction
	// Labor value of the automated hours. Informational only: the net
	// savings below are baseline minus AI cost.
	annualLaborSavings := hoursAutomatedWeekly * in.HourlyCost * float64(people) * weeksPerYear

	annualCostWithAI := annualAICost
	annualSavings := annualCostCurrent - annualCostWithAI

	roiPct := (annualSavings - implCost) / implCost * 100

	breakeven := BreakevenNever
	if annualSavings > 0 {
		breakeven = int(math.Round(implCost / annualSavings * monthsPerYear))
		if breakeven < 1 {
			breakeven = 1
		}
	}

	risk := assessRisk(AutomationFraction, breakeven, score, annualSavings, implCost)
	recommendation, nextSteps := recommend(roiPct, breakeven, annualSavings, risk)

	return &ProjectionResult{
		Input: in,
		CurrentState: CurrentState{
			AnnualLaborCost: round2(annualLaborCost),
			AnnualToolsCost: round2(annualToolsCost),
			TotalAnnualCost: round2(annualCostCurrent),
			HoursPerWeek:    in.HoursPerWeek,
			PeopleCount:     people,
		},
		WithAI: WithAI{
			AnnualAICost:         round2(annualAICost),
			ImplementationCost:   round2(implCost),
			AutomationPercentage: AutomationFraction * 100,
			HoursAutomatedWeekly: round1(hoursAutomatedWeekly),
		},
		Savings: SavingsBreakdown{
			AnnualSavings:    round2(annualSavings),
			MonthlySavings:   round2(annualSavings / monthsPerYear),
			BreakevenMonths:  breakeven,
			ROIPercentage:    round1(roiPct),
			ThreeYearSavings: round2(annualSavings*3 - implCost),
		},
		Assessment: Assessment{
			RiskLevel:       risk,
			ComplexityScore: score,
			Recommendation:  recommendation,
			NextSteps:       nextSteps,
			IndustryNote:    industryNote(in.Industry),
		},
		AnnualLaborSavings: round2(annualLaborSavings),
		CreatedAt:          time.Now().UTC(),
	}, nil
}

// complexityScore is an additive, uncapped heuristic over volume,
// stakeholder count, and keyword matches on the process name.
func complexityScore(in ProjectionInput) int {
	score := 0
	if in.HoursPerWeek > 40 {
		score += 2 // high volume
	}
	if in.PeopleCount > 5 {
		score += 2 // multiple stakeholders
	}
	name := strings.ToLower(in.ProcessName)
	if strings.Contains(name, "data") || strings.Contains(name, "analysis") {
		score++
	}
	if strings.Contains(name, "customer") || strings.Contains(name, "support") {
		score++
	}
	return score
}

func implementationCost(complexity int) float64 {
	switch {
	case complexity <= 2:
		return implementationCostSimple
	case complexity <= 4:
		return implementationCostMedium
	default:
		return implementationCostComplex
	}
}

func monthlyAICost(hoursPerWeek int) float64 {
	switch {
	case hoursPerWeek < 20:
		return monthlyAICostLight
	case hoursPerWeek < 40:
		return monthlyAICostMedium
	default:
		return monthlyAICostHeavy
	}
}

// assessRisk walks the risk rules in priority order; the first match wins.
func assessRisk(automation float64, breakevenMonths, complexity int, annualSavings, implementationCost float64) RiskLevel {
	switch {
	case automation > 0.8:
		return RiskHigh // over-optimistic automation assumption
	case breakevenMonths > 18:
		return RiskHigh // too long to recover the implementation cost
	case complexity > 5:
		return RiskMedium
	case annualSavings < implementationCost:
		return RiskHigh // does not pay for itself in year one
	default:
		return RiskLow
	}
}

// recommend selects the recommendation tier and its next-step checklist.
// Tiers are evaluated in priority order; each checklist is fixed.
func recommend(roiPct float64, breakevenMonths int, annualSavings float64, risk RiskLevel) (string, []string) {
	switch {
	case roiPct > 200 && breakevenMonths <= 12:
		return fmt.Sprintf("Strong ROI case. This automation pays for itself in %d months and delivers $%s annual savings. Let's build it.",
				breakevenMonths, dollars(annualSavings)),
			[]string{
				"Schedule discovery call to validate assumptions",
				"Review process documentation",
				"Create detailed technical architecture",
				"Start with pilot (1-2 workflows) before full rollout",
			}
	case roiPct > 100 && breakevenMonths <= 18:
		return fmt.Sprintf("Good ROI potential. %d-month break-even is reasonable. Worth exploring if process is well-documented and stable.",
				breakevenMonths),
			[]string{
				"Document current process in detail",
				"Identify edge cases AI will struggle with",
				"Consider starting with subset of work",
				"Plan for human oversight layer",
			}
	case roiPct > 50:
		return fmt.Sprintf("Moderate ROI. $%s annual savings is meaningful but %d-month break-even requires careful execution.",
				dollars(annualSavings), breakevenMonths),
			[]string{
				"Start with smallest viable automation",
				"Prove ROI with pilot before full implementation",
				"Consider process optimization first (cheaper than AI)",
				"Ensure team is ready for change",
			}
	default:
		return fmt.Sprintf("ROI concerns. With %d-month break-even and %s risk, this may not be the best automation target right now.",
				breakevenMonths, strings.ToLower(string(risk))),
			[]string{
				"Look for higher-ROI processes first",
				"Consider process improvement before automation",
				"Revisit when process volume increases",
				"Explore simpler no-code tools first",
			}
	}
}

// industryNote returns the fixed annotation for recognized industry
// categories, or an empty string. Matching is case-insensitive against
// the raw industry string.
func industryNote(industry string) string {
	switch strings.ToLower(industry) {
	case "healthcare", "finance", "legal":
		return fmt.Sprintf("Note: %s has compliance requirements that may add 20-30%% to implementation cost and timeline.", industry)
	case "logistics", "manufacturing":
		return fmt.Sprintf("Note: %s automation typically sees 70-80%% efficiency gains - your projection may be conservative.", industry)
	case "retail", "ecommerce":
		return fmt.Sprintf("Note: %s AI automation has proven ROI - fast implementation typical.", industry)
	default:
		return ""
	}
}
