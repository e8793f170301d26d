package models

import "time"

// EligibilityRule gates a learner's admission to the external examination.
// All threshold fields are optional; an absent field means the condition is
// not checked. Only the highest-priority active rule of a pattern applies.
type EligibilityRule struct {
	ID        string `db:"id" json:"id"`
	PatternID string `db:"pattern_id" json:"pattern_id"`

	RuleCode    string  `db:"rule_code" json:"rule_code"`
	RuleName    string  `db:"rule_name" json:"rule_name"`
	Description *string `db:"description" json:"description,omitempty"`

	MinimumOverallPercentage    *float64 `db:"minimum_overall_percentage" json:"minimum_overall_percentage,omitempty"`
	MinimumAttendancePercentage *float64 `db:"minimum_attendance_percentage" json:"minimum_attendance_percentage,omitempty"`

	MandatoryComponentsCompletion bool     `db:"mandatory_components_completion" json:"mandatory_components_completion"`
	MinimumComponentsCompletion   *float64 `db:"minimum_components_completion" json:"minimum_components_completion,omitempty"`

	CondonationAllowed         bool     `db:"condonation_allowed" json:"condonation_allowed"`
	CondonationPercentageLimit *float64 `db:"condonation_percentage_limit" json:"condonation_percentage_limit,omitempty"`

	// Lower value means higher priority.
	PriorityOrder int `db:"priority_order" json:"priority_order"`

	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PassingRule decides pass/fail of the internal assessment itself,
// independently of eligibility.
type PassingRule struct {
	ID        string `db:"id" json:"id"`
	PatternID string `db:"pattern_id" json:"pattern_id"`

	RuleCode    string  `db:"rule_code" json:"rule_code"`
	RuleName    string  `db:"rule_name" json:"rule_name"`
	Description *string `db:"description" json:"description,omitempty"`

	MinimumPassPercentage float64 `db:"minimum_pass_percentage" json:"minimum_pass_percentage"`

	ComponentWiseMinimumEnabled    bool     `db:"component_wise_minimum_enabled" json:"component_wise_minimum_enabled"`
	ComponentWiseMinimumPercentage *float64 `db:"component_wise_minimum_percentage" json:"component_wise_minimum_percentage,omitempty"`

	GraceMarkEnabled         bool     `db:"grace_mark_enabled" json:"grace_mark_enabled"`
	GraceMarkPercentageLimit *float64 `db:"grace_mark_percentage_limit" json:"grace_mark_percentage_limit,omitempty"`

	ApplyRoundingBeforePassCheck bool `db:"apply_rounding_before_pass_check" json:"apply_rounding_before_pass_check"`

	PriorityOrder int `db:"priority_order" json:"priority_order"`

	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
