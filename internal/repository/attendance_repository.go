package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/campushq/exam-office-api/internal/models"
)

// AttendanceRepository reads aggregated attendance for eligibility checks.
// Session-level attendance entry lives in the attendance module of the
// surrounding portal; this layer only consumes the rollup.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository creates a new repository instance.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Summary returns a learner's attendance percentage for a course. A missing
// rollup is reported as (nil, nil); the eligibility evaluator treats absent
// attendance as zero.
func (r *AttendanceRepository) Summary(ctx context.Context, learnerID, courseID string) (*models.AttendanceSummary, error) {
	const query = `SELECT learner_id, course_id, total_sessions, attended, percentage, as_of
        FROM attendance_summaries WHERE learner_id = $1 AND course_id = $2`
	var summary models.AttendanceSummary
	if err := r.db.GetContext(ctx, &summary, query, learnerID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &summary, nil
}
