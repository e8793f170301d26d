package models

import "time"

// AttendanceSummary is a learner's aggregated attendance for one course,
// consumed by the eligibility check. Percentage is 0-100.
type AttendanceSummary struct {
	LearnerID     string    `db:"learner_id" json:"learner_id"`
	CourseID      string    `db:"course_id" json:"course_id"`
	TotalSessions int       `db:"total_sessions" json:"total_sessions"`
	Attended      int       `db:"attended" json:"attended"`
	Percentage    float64   `db:"percentage" json:"percentage"`
	AsOf          time.Time `db:"as_of" json:"as_of"`
}
