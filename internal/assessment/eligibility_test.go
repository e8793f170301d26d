package assessment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/exam-office-api/internal/models"
)

func TestCheckEligibilityNoRulesDefaultsToEligible(t *testing.T) {
	result := CheckEligibility(nil, nil, MarksCalculation{}, nil)

	assert.True(t, result.IsEligible)
	assert.Empty(t, result.FailureReasons)
	assert.Nil(t, result.Attendance)
	assert.Nil(t, result.Components)
	assert.Nil(t, result.Overall)
}

func TestCheckEligibilityInactiveRulesIgnored(t *testing.T) {
	rules := []models.EligibilityRule{
		{ID: "r1", PriorityOrder: 1, IsActive: false, MinimumOverallPercentage: floatPtr(50)},
	}

	result := CheckEligibility(rules, nil, MarksCalculation{TotalRawPercentage: 10}, nil)

	assert.True(t, result.IsEligible)
	assert.Nil(t, result.Overall)
}

func TestCheckEligibilityHighestPriorityRuleWins(t *testing.T) {
	// The rule with the lowest priority_order applies; the stricter
	// lower-priority rule must be ignored, not merged.
	rules := []models.EligibilityRule{
		{ID: "strict", PriorityOrder: 2, IsActive: true, MinimumOverallPercentage: floatPtr(90)},
		{ID: "lenient", PriorityOrder: 1, IsActive: true, MinimumOverallPercentage: floatPtr(40)},
	}

	result := CheckEligibility(rules, nil, MarksCalculation{TotalRawPercentage: 55}, nil)

	assert.True(t, result.IsEligible)
	assert.Equal(t, "lenient", result.RuleID)
	require.NotNil(t, result.Overall)
	assert.InDelta(t, 40, result.Overall.Required, 1e-9)
}

func TestCheckEligibilityAttendance(t *testing.T) {
	tests := []struct {
		name           string
		rule           models.EligibilityRule
		attendance     *float64
		wantEligible   bool
		wantCondoned   bool
		wantCondAmount float64
	}{
		{
			name:         "attendance met",
			rule:         models.EligibilityRule{ID: "r", IsActive: true, MinimumAttendancePercentage: floatPtr(75)},
			attendance:   floatPtr(80),
			wantEligible: true,
		},
		{
			name:         "attendance below without condonation",
			rule:         models.EligibilityRule{ID: "r", IsActive: true, MinimumAttendancePercentage: floatPtr(75)},
			attendance:   floatPtr(72),
			wantEligible: false,
		},
		{
			name: "condonation covers shortfall",
			rule: models.EligibilityRule{
				ID: "r", IsActive: true,
				MinimumAttendancePercentage: floatPtr(75),
				CondonationAllowed:          true,
				CondonationPercentageLimit:  floatPtr(5),
			},
			attendance:     floatPtr(72),
			wantEligible:   true,
			wantCondoned:   true,
			wantCondAmount: 3,
		},
		{
			name: "shortfall beyond condonation limit",
			rule: models.EligibilityRule{
				ID: "r", IsActive: true,
				MinimumAttendancePercentage: floatPtr(75),
				CondonationAllowed:          true,
				CondonationPercentageLimit:  floatPtr(5),
			},
			attendance:   floatPtr(65),
			wantEligible: false,
		},
		{
			name:         "absent attendance treated as zero",
			rule:         models.EligibilityRule{ID: "r", IsActive: true, MinimumAttendancePercentage: floatPtr(75)},
			attendance:   nil,
			wantEligible: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckEligibility([]models.EligibilityRule{tt.rule}, nil, MarksCalculation{}, tt.attendance)

			assert.Equal(t, tt.wantEligible, result.IsEligible)
			require.NotNil(t, result.Attendance)
			assert.Equal(t, tt.wantCondoned, result.Attendance.CondonationApplied)
			assert.InDelta(t, tt.wantCondAmount, result.Attendance.CondonationAmount, 1e-9)
			if !tt.wantEligible {
				assert.NotEmpty(t, result.FailureReasons)
			}
		})
	}
}

func TestCheckEligibilityMandatoryComponents(t *testing.T) {
	components := []models.PatternComponent{
		{ID: "c1", ComponentName: "Test 1", IsMandatory: true, IsActive: true},
		{ID: "c2", ComponentName: "Test 2", IsMandatory: true, IsActive: true},
		{ID: "c3", ComponentName: "Seminar", IsMandatory: false, IsActive: true},
	}
	rule := models.EligibilityRule{ID: "r", IsActive: true, MandatoryComponentsCompletion: true}

	t.Run("all mandatory completed", func(t *testing.T) {
		calc := MarksCalculation{ComponentMarks: []ComponentMark{
			{ComponentID: "c1", MaxMarksEntered: 20},
			{ComponentID: "c2", MaxMarksEntered: 20},
		}}
		result := CheckEligibility([]models.EligibilityRule{rule}, components, calc, nil)

		assert.True(t, result.IsEligible)
		require.NotNil(t, result.Components)
		assert.Equal(t, 2, result.Components.TotalMandatory)
		assert.Equal(t, 2, result.Components.Completed)
	})

	t.Run("missing mandatory entry fails", func(t *testing.T) {
		calc := MarksCalculation{ComponentMarks: []ComponentMark{
			{ComponentID: "c1", MaxMarksEntered: 20},
			{ComponentID: "c2", MaxMarksEntered: 0},
		}}
		result := CheckEligibility([]models.EligibilityRule{rule}, components, calc, nil)

		assert.False(t, result.IsEligible)
		assert.Equal(t, 1, result.Components.Completed)
		assert.Contains(t, result.FailureReasons[0], "1 of 2 mandatory")
	})

	t.Run("optional components not counted", func(t *testing.T) {
		calc := MarksCalculation{ComponentMarks: []ComponentMark{
			{ComponentID: "c1", MaxMarksEntered: 20},
			{ComponentID: "c2", MaxMarksEntered: 20},
			{ComponentID: "c3", MaxMarksEntered: 0},
		}}
		result := CheckEligibility([]models.EligibilityRule{rule}, components, calc, nil)

		assert.True(t, result.IsEligible)
	})
}

func TestCheckEligibilityCollectsAllFailures(t *testing.T) {
	rule := models.EligibilityRule{
		ID: "r", IsActive: true,
		MinimumAttendancePercentage:   floatPtr(75),
		MandatoryComponentsCompletion: true,
		MinimumOverallPercentage:      floatPtr(40),
	}
	components := []models.PatternComponent{{ID: "c1", IsMandatory: true, IsActive: true}}
	calc := MarksCalculation{TotalRawPercentage: 20}

	result := CheckEligibility([]models.EligibilityRule{rule}, components, calc, floatPtr(50))

	assert.False(t, result.IsEligible)
	assert.Len(t, result.FailureReasons, 3)
	require.NotNil(t, result.Attendance)
	require.NotNil(t, result.Components)
	require.NotNil(t, result.Overall)
	assert.False(t, result.Attendance.IsMet)
	assert.False(t, result.Components.IsMet)
	assert.False(t, result.Overall.IsMet)
}
