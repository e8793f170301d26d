package models

import (
	"encoding/json"
	"time"
)

// LearnerInternalMark is the persisted outcome of one calculation run for a
// learner and course. Breakdown holds the per-component JSON the engine
// produced; totals and verdicts are flattened for querying and export.
type LearnerInternalMark struct {
	ID        string `db:"id" json:"id"`
	LearnerID string `db:"learner_id" json:"learner_id"`
	CourseID  string `db:"course_id" json:"course_id"`
	PatternID string `db:"pattern_id" json:"pattern_id"`

	CourseInternalMaxMark float64 `db:"course_internal_max_mark" json:"course_internal_max_mark"`
	TotalRawPercentage    float64 `db:"total_raw_percentage" json:"total_raw_percentage"`
	TotalCalculatedMarks  float64 `db:"total_calculated_marks" json:"total_calculated_marks"`
	TotalAfterRounding    float64 `db:"total_after_rounding" json:"total_after_rounding"`

	IsEligibleForExternal bool    `db:"is_eligible_for_external" json:"is_eligible_for_external"`
	EligibilityReasons    *string `db:"eligibility_reasons" json:"eligibility_reasons,omitempty"`
	IsPassed              bool    `db:"is_passed" json:"is_passed"`
	PassingReasons        *string `db:"passing_reasons" json:"passing_reasons,omitempty"`
	FinalPercentage       float64 `db:"final_percentage" json:"final_percentage"`
	FinalMarks            float64 `db:"final_marks" json:"final_marks"`

	Breakdown json.RawMessage `db:"breakdown" json:"breakdown,omitempty"`

	CalculatedAt time.Time `db:"calculated_at" json:"calculated_at"`
}

// InternalMarkFilter scopes stored mark queries.
type InternalMarkFilter struct {
	LearnerID string
	CourseID  string
	PatternID string
}
