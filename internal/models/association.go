package models

import "time"

// PatternCourseAssociation binds a pattern to one course, overriding
// program-level and institution-default patterns while its date window is
// open. A nil EffectiveTo means the override is indefinite.
type PatternCourseAssociation struct {
	ID         string `db:"id" json:"id"`
	PatternID  string `db:"pattern_id" json:"pattern_id"`
	CourseID   string `db:"course_id" json:"course_id"`
	CourseCode string `db:"course_code" json:"course_code"`

	EffectiveFrom time.Time  `db:"effective_from" json:"effective_from"`
	EffectiveTo   *time.Time `db:"effective_to" json:"effective_to,omitempty"`

	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PatternProgramAssociation binds a pattern to a program. It yields to
// course-level overrides but beats the institution default.
type PatternProgramAssociation struct {
	ID          string `db:"id" json:"id"`
	PatternID   string `db:"pattern_id" json:"pattern_id"`
	ProgramID   string `db:"program_id" json:"program_id"`
	ProgramCode string `db:"program_code" json:"program_code"`

	EffectiveFrom time.Time  `db:"effective_from" json:"effective_from"`
	EffectiveTo   *time.Time `db:"effective_to" json:"effective_to,omitempty"`

	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
