package models

import "time"

// Course carries the fields the marks pipeline needs: the internal max mark
// the weighted percentage is projected onto, and the type/program linkage the
// resolver matches applicability against.
type Course struct {
	ID              string                  `db:"id" json:"id"`
	CourseCode      string                  `db:"course_code" json:"course_code"`
	CourseName      string                  `db:"course_name" json:"course_name"`
	CourseType      CourseTypeApplicability `db:"course_type" json:"course_type"`
	ProgramID       *string                 `db:"program_id" json:"program_id,omitempty"`
	InstitutionID   string                  `db:"institution_id" json:"institution_id"`
	InternalMaxMark float64                 `db:"internal_max_mark" json:"internal_max_mark"`
	ExternalMaxMark float64                 `db:"external_max_mark" json:"external_max_mark"`
	IsActive        bool                    `db:"is_active" json:"is_active"`
	CreatedAt       time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time               `db:"updated_at" json:"updated_at"`
}

// CourseLearner is one learner enrolled in a course, as the batch
// recalculation pipeline sees them.
type CourseLearner struct {
	LearnerID   string `db:"learner_id" json:"learner_id"`
	LearnerName string `db:"learner_name" json:"learner_name"`
	RollNumber  string `db:"roll_number" json:"roll_number"`
	CourseID    string `db:"course_id" json:"course_id"`
}
