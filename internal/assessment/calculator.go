// Package assessment implements the internal-assessment calculation engine:
// weighted mark aggregation, external-exam eligibility evaluation and
// internal pass/fail evaluation. Every operation is a pure function over the
// pattern configuration and one learner's raw input; missing or zero
// denominators degrade to 0% instead of raising errors.
//
// The engine does not validate configuration. In particular it will compute
// with whatever component weightages it is given; ensuring active weightages
// total 100 is the pattern service's job at configuration time.
package assessment

import (
	"sort"

	"github.com/campushq/exam-office-api/internal/models"
)

// MarksCalculation is the aggregated result for one learner and course.
type MarksCalculation struct {
	LearnerID             string          `json:"learner_id"`
	CourseID              string          `json:"course_id"`
	PatternID             string          `json:"pattern_id"`
	CourseInternalMaxMark float64         `json:"course_internal_max_mark"`
	ComponentMarks        []ComponentMark `json:"component_marks"`
	TotalRawPercentage    float64         `json:"total_raw_percentage"`
	TotalCalculatedMarks  float64         `json:"total_calculated_marks"`
	TotalAfterRounding    float64         `json:"total_after_rounding"`
}

// ComponentMark is the per-component breakdown inside a MarksCalculation.
type ComponentMark struct {
	ComponentID          string             `json:"component_id"`
	ComponentCode        string             `json:"component_code"`
	ComponentName        string             `json:"component_name"`
	WeightagePercentage  float64            `json:"weightage_percentage"`
	SubComponentMarks    []SubComponentMark `json:"sub_component_marks,omitempty"`
	RawMarksEntered      float64            `json:"raw_marks_entered"`
	MaxMarksEntered      float64            `json:"max_marks_entered"`
	PercentageAchieved   float64            `json:"percentage_achieved"`
	WeightedContribution float64            `json:"weighted_contribution"`
}

// SubComponentMark is one scored sub-component instance.
type SubComponentMark struct {
	SubComponentID     string  `json:"sub_component_id"`
	SubComponentCode   string  `json:"sub_component_code"`
	MarksEntered       float64 `json:"marks_entered"`
	MaxMarksEntered    float64 `json:"max_marks_entered"`
	PercentageAchieved float64 `json:"percentage_achieved"`
}

// CalculateInternalMarks aggregates a learner's raw component scores into a
// weighted percentage and final marks under the given pattern. Inactive
// components and sub-components contribute nothing; components without an
// input entry are skipped entirely.
func CalculateInternalMarks(pattern models.Pattern, components []models.PatternComponent, subComponents []models.PatternSubComponent, input LearnerAssessmentInput) MarksCalculation {
	componentMarks := make([]ComponentMark, 0, len(components))
	totalWeightedPercentage := 0.0

	for _, component := range components {
		if !component.IsActive {
			continue
		}
		componentInput, ok := findComponentInput(input.ComponentInputs, component.ID)
		if !ok {
			continue
		}

		var mark ComponentMark
		if component.HasSubComponents && len(componentInput.SubComponents) > 0 {
			mark = scoreSubComponents(component, subComponents, componentInput)
		} else {
			mark = scoreDirect(component, componentInput)
		}

		componentMarks = append(componentMarks, mark)
		totalWeightedPercentage += mark.WeightedContribution
	}

	rawCalculatedMarks := (totalWeightedPercentage / 100) * input.CourseInternalMaxMark

	return MarksCalculation{
		LearnerID:             input.LearnerID,
		CourseID:              input.CourseID,
		PatternID:             pattern.ID,
		CourseInternalMaxMark: input.CourseInternalMaxMark,
		ComponentMarks:        componentMarks,
		TotalRawPercentage:    totalWeightedPercentage,
		TotalCalculatedMarks:  rawCalculatedMarks,
		TotalAfterRounding:    Round(rawCalculatedMarks, pattern.RoundingMethod, pattern.DecimalPrecision),
	}
}

func scoreSubComponents(component models.PatternComponent, subComponents []models.PatternSubComponent, input ComponentInput) ComponentMark {
	subMarks := make([]SubComponentMark, 0, len(input.SubComponents))
	for _, sub := range subComponents {
		if sub.ComponentID != component.ID || !sub.IsActive {
			continue
		}
		subInput, ok := input.findSubInput(sub.ID)
		if !ok {
			continue
		}
		subMarks = append(subMarks, SubComponentMark{
			SubComponentID:     sub.ID,
			SubComponentCode:   sub.SubComponentCode,
			MarksEntered:       subInput.MarksObtained,
			MaxMarksEntered:    subInput.MaxMarks,
			PercentageAchieved: percentage(subInput.MarksObtained, subInput.MaxMarks),
		})
	}

	percentages := make([]float64, len(subMarks))
	rawTotal, maxTotal := 0.0, 0.0
	for i, sm := range subMarks {
		percentages[i] = sm.PercentageAchieved
		rawTotal += sm.MarksEntered
		maxTotal += sm.MaxMarksEntered
	}

	method := component.CalculationMethod
	if method == "" {
		method = models.CalcMethodAverage
	}
	achieved := reducePercentages(percentages, method, component.BestOfCount)

	return ComponentMark{
		ComponentID:          component.ID,
		ComponentCode:        component.ComponentCode,
		ComponentName:        component.ComponentName,
		WeightagePercentage:  component.WeightagePercentage,
		SubComponentMarks:    subMarks,
		RawMarksEntered:      rawTotal,
		MaxMarksEntered:      maxTotal,
		PercentageAchieved:   achieved,
		WeightedContribution: achieved * component.WeightagePercentage / 100,
	}
}

func scoreDirect(component models.PatternComponent, input ComponentInput) ComponentMark {
	var raw, max float64
	if input.Direct != nil {
		raw = input.Direct.MarksObtained
		max = input.Direct.MaxMarks
	}
	achieved := percentage(raw, max)

	return ComponentMark{
		ComponentID:          component.ID,
		ComponentCode:        component.ComponentCode,
		ComponentName:        component.ComponentName,
		WeightagePercentage:  component.WeightagePercentage,
		RawMarksEntered:      raw,
		MaxMarksEntered:      max,
		PercentageAchieved:   achieved,
		WeightedContribution: achieved * component.WeightagePercentage / 100,
	}
}

// reducePercentages folds sub-component percentages into one component-level
// percentage. weighted_average has no sub-weightage inputs wired through yet
// and reduces like average.
func reducePercentages(percentages []float64, method models.CalculationMethod, bestOfCount int) float64 {
	if len(percentages) == 0 {
		return 0
	}

	switch method {
	case models.CalcMethodSum:
		total := sum(percentages)
		if total > 100 {
			return 100
		}
		return total
	case models.CalcMethodBestOf:
		if bestOfCount < 1 {
			bestOfCount = 1
		}
		sorted := append([]float64(nil), percentages...)
		sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
		if bestOfCount > len(sorted) {
			bestOfCount = len(sorted)
		}
		best := sorted[:bestOfCount]
		return sum(best) / float64(len(best))
	default:
		// average and weighted_average
		return sum(percentages) / float64(len(percentages))
	}
}

func percentage(obtained, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return (obtained / max) * 100
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func findComponentInput(inputs []ComponentInput, componentID string) (ComponentInput, bool) {
	for _, ci := range inputs {
		if ci.ComponentID == componentID {
			return ci, true
		}
	}
	return ComponentInput{}, false
}
