package assessment

import (
	"fmt"
	"math"
	"sort"

	"github.com/campushq/exam-office-api/internal/models"
)

// PassingResult reports pass/fail of the internal assessment itself. It is
// independent of eligibility; a learner can be eligible for the external exam
// and still fail the internal assessment, or the reverse.
type PassingResult struct {
	IsPassed       bool                  `json:"is_passed"`
	RuleID         string                `json:"rule_id,omitempty"`
	FailureReasons []string              `json:"failure_reasons"`
	Overall        ThresholdStatus       `json:"overall_status"`
	ComponentWise  []ComponentWiseStatus `json:"component_wise_status,omitempty"`
	GraceMarks     GraceMarks            `json:"grace_marks_applied"`
	FinalPercentage float64              `json:"final_percentage"`
	FinalMarks      float64              `json:"final_marks"`
}

// ComponentWiseStatus is the per-component minimum check outcome.
type ComponentWiseStatus struct {
	ComponentID   string  `json:"component_id"`
	ComponentName string  `json:"component_name"`
	Percentage    float64 `json:"percentage"`
	Required      float64 `json:"required"`
	IsMet         bool    `json:"is_met"`
}

// GraceMarks records whether the pass threshold was reached by grace.
type GraceMarks struct {
	Applied bool    `json:"applied"`
	Amount  float64 `json:"amount"`
	Reason  string  `json:"reason,omitempty"`
}

// CheckPassing evaluates the highest-priority active passing rule against a
// learner's calculated marks. With no active rule the learner passes by
// default. Grace marks promote the effective percentage to exactly the pass
// threshold when the shortfall is within the rule's limit; the component-wise
// minimum applies to mandatory components only.
func CheckPassing(rules []models.PassingRule, components []models.PatternComponent, calc MarksCalculation, courseInternalMaxMark float64) PassingResult {
	result := PassingResult{
		IsPassed:        true,
		FailureReasons:  []string{},
		Overall:         ThresholdStatus{Achieved: calc.TotalRawPercentage, IsMet: true},
		GraceMarks:      GraceMarks{},
		FinalPercentage: calc.TotalRawPercentage,
		FinalMarks:      calc.TotalAfterRounding,
	}

	rule, ok := selectPassingRule(rules)
	if !ok {
		return result
	}
	result.RuleID = rule.ID
	result.Overall.Required = rule.MinimumPassPercentage

	effective := calc.TotalRawPercentage
	if rule.ApplyRoundingBeforePassCheck {
		effective = math.Round(effective*100) / 100
	}

	if effective < rule.MinimumPassPercentage && rule.GraceMarkEnabled && rule.GraceMarkPercentageLimit != nil {
		shortage := rule.MinimumPassPercentage - effective
		if shortage <= *rule.GraceMarkPercentageLimit {
			result.GraceMarks = GraceMarks{
				Applied: true,
				Amount:  shortage,
				Reason:  "Applied to meet minimum passing requirement",
			}
			effective = rule.MinimumPassPercentage
		}
	}

	overallMet := effective >= rule.MinimumPassPercentage
	result.Overall.Achieved = effective
	result.Overall.IsMet = overallMet
	if !overallMet {
		result.IsPassed = false
		result.FailureReasons = append(result.FailureReasons,
			fmt.Sprintf("Overall %.1f%% is below minimum pass requirement of %g%%", effective, rule.MinimumPassPercentage))
	}

	if rule.ComponentWiseMinimumEnabled && rule.ComponentWiseMinimumPercentage != nil {
		required := *rule.ComponentWiseMinimumPercentage
		mandatory := make(map[string]bool)
		for _, c := range components {
			if c.IsMandatory {
				mandatory[c.ID] = true
			}
		}

		result.ComponentWise = []ComponentWiseStatus{}
		for _, cm := range calc.ComponentMarks {
			if !mandatory[cm.ComponentID] {
				continue
			}
			met := cm.PercentageAchieved >= required
			result.ComponentWise = append(result.ComponentWise, ComponentWiseStatus{
				ComponentID:   cm.ComponentID,
				ComponentName: cm.ComponentName,
				Percentage:    cm.PercentageAchieved,
				Required:      required,
				IsMet:         met,
			})
			if !met {
				result.IsPassed = false
				result.FailureReasons = append(result.FailureReasons,
					fmt.Sprintf("%s: %.1f%% is below required %g%%", cm.ComponentName, cm.PercentageAchieved, required))
			}
		}
	}

	result.FinalPercentage = effective
	result.FinalMarks = Round((effective/100)*courseInternalMaxMark, models.RoundingRound, 2)

	return result
}

func selectPassingRule(rules []models.PassingRule) (models.PassingRule, bool) {
	active := make([]models.PassingRule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return models.PassingRule{}, false
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].PriorityOrder < active[j].PriorityOrder })
	return active[0], true
}
