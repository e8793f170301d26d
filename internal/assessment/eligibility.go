package assessment

import (
	"fmt"
	"sort"

	"github.com/campushq/exam-office-api/internal/models"
)

// EligibilityResult reports whether a learner may sit the external exam.
// Status sub-objects stay nil for checks the selected rule does not specify.
type EligibilityResult struct {
	IsEligible     bool              `json:"is_eligible"`
	RuleID         string            `json:"rule_id,omitempty"`
	FailureReasons []string          `json:"failure_reasons"`
	Attendance     *AttendanceStatus `json:"attendance_status,omitempty"`
	Components     *ComponentsStatus `json:"components_status,omitempty"`
	Overall        *ThresholdStatus  `json:"overall_percentage_status,omitempty"`
}

// AttendanceStatus details the attendance check, including condonation.
type AttendanceStatus struct {
	Percentage         float64 `json:"percentage"`
	Required           float64 `json:"required"`
	IsMet              bool    `json:"is_met"`
	CondonationApplied bool    `json:"condonation_applied"`
	CondonationAmount  float64 `json:"condonation_amount"`
}

// ComponentsStatus details the mandatory-component completion check.
type ComponentsStatus struct {
	TotalMandatory int  `json:"total_mandatory"`
	Completed      int  `json:"completed"`
	IsMet          bool `json:"is_met"`
}

// ThresholdStatus is a generic achieved-vs-required comparison.
type ThresholdStatus struct {
	Achieved float64 `json:"achieved"`
	Required float64 `json:"required"`
	IsMet    bool    `json:"is_met"`
}

// CheckEligibility evaluates the highest-priority active eligibility rule
// against a learner's calculated marks and attendance. With no active rule
// the learner is eligible by default. All checks the rule specifies run;
// every failure is collected rather than short-circuiting.
func CheckEligibility(rules []models.EligibilityRule, components []models.PatternComponent, calc MarksCalculation, attendancePercentage *float64) EligibilityResult {
	result := EligibilityResult{IsEligible: true, FailureReasons: []string{}}

	rule, ok := selectEligibilityRule(rules)
	if !ok {
		return result
	}
	result.RuleID = rule.ID

	if rule.MinimumAttendancePercentage != nil {
		required := *rule.MinimumAttendancePercentage
		attendance := 0.0
		if attendancePercentage != nil {
			attendance = *attendancePercentage
		}

		effective := attendance
		condoned := false
		condonedAmount := 0.0
		if rule.CondonationAllowed && attendance < required {
			shortage := required - attendance
			limit := 0.0
			if rule.CondonationPercentageLimit != nil {
				limit = *rule.CondonationPercentageLimit
			}
			if shortage <= limit {
				effective = required
				condoned = true
				condonedAmount = shortage
			}
		}

		met := effective >= required
		result.Attendance = &AttendanceStatus{
			Percentage:         attendance,
			Required:           required,
			IsMet:              met,
			CondonationApplied: condoned,
			CondonationAmount:  condonedAmount,
		}
		if !met {
			result.IsEligible = false
			result.FailureReasons = append(result.FailureReasons,
				fmt.Sprintf("Attendance %.1f%% is below required %g%%", attendance, required))
		}
	}

	if rule.MandatoryComponentsCompletion {
		totalMandatory := 0
		mandatoryIDs := make(map[string]bool)
		for _, c := range components {
			if c.IsMandatory && c.IsActive {
				totalMandatory++
				mandatoryIDs[c.ID] = true
			}
		}
		completed := 0
		for _, cm := range calc.ComponentMarks {
			if mandatoryIDs[cm.ComponentID] && cm.MaxMarksEntered > 0 {
				completed++
			}
		}

		met := completed >= totalMandatory
		result.Components = &ComponentsStatus{TotalMandatory: totalMandatory, Completed: completed, IsMet: met}
		if !met {
			result.IsEligible = false
			result.FailureReasons = append(result.FailureReasons,
				fmt.Sprintf("Completed %d of %d mandatory assessments", completed, totalMandatory))
		}
	}

	if rule.MinimumOverallPercentage != nil {
		required := *rule.MinimumOverallPercentage
		met := calc.TotalRawPercentage >= required
		result.Overall = &ThresholdStatus{Achieved: calc.TotalRawPercentage, Required: required, IsMet: met}
		if !met {
			result.IsEligible = false
			result.FailureReasons = append(result.FailureReasons,
				fmt.Sprintf("Overall %.1f%% is below required %g%%", calc.TotalRawPercentage, required))
		}
	}

	return result
}

// selectEligibilityRule picks the first active rule by ascending priority.
// Rules never merge; a lower-priority rule is ignored once one is selected.
func selectEligibilityRule(rules []models.EligibilityRule) (models.EligibilityRule, bool) {
	active := make([]models.EligibilityRule, 0, len(rules))
	for _, r := range rules {
		if r.IsActive {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return models.EligibilityRule{}, false
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].PriorityOrder < active[j].PriorityOrder })
	return active[0], true
}
