package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/exam-office-api/internal/models"
)

func TestMarksRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMarksRepository(db)
	mock.ExpectExec("INSERT INTO learner_internal_marks").
		WillReturnResult(sqlmock.NewResult(1, 1))

	mark := &models.LearnerInternalMark{
		LearnerID:             "learner-1",
		CourseID:              "course-1",
		PatternID:             "pat-1",
		CourseInternalMaxMark: 25,
		TotalRawPercentage:    82.5,
		TotalCalculatedMarks:  20.625,
		TotalAfterRounding:    20.63,
		IsEligibleForExternal: true,
		IsPassed:              true,
		FinalPercentage:       82.5,
		FinalMarks:            20.63,
		Breakdown:             json.RawMessage(`{"components":[]}`),
	}
	require.NoError(t, repo.Upsert(context.Background(), mark))
	assert.NotEmpty(t, mark.ID)
	assert.False(t, mark.CalculatedAt.IsZero())
}

func TestMarksRepositoryFind(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewMarksRepository(db)
	rows := sqlmock.NewRows([]string{
		"id", "learner_id", "course_id", "pattern_id", "course_internal_max_mark", "total_raw_percentage",
		"total_calculated_marks", "total_after_rounding", "is_eligible_for_external", "eligibility_reasons",
		"is_passed", "passing_reasons", "final_percentage", "final_marks", "breakdown", "calculated_at",
	}).AddRow("mark-1", "learner-1", "course-1", "pat-1", 25.0, 82.5,
		20.625, 20.63, true, nil,
		true, nil, 82.5, 20.63, []byte(`{"components":[]}`), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM learner_internal_marks WHERE learner_id").
		WithArgs("learner-1", "course-1").
		WillReturnRows(rows)

	mark, err := repo.Find(context.Background(), "learner-1", "course-1")
	require.NoError(t, err)
	assert.Equal(t, 20.63, mark.FinalMarks)
	assert.True(t, mark.IsEligibleForExternal)
}
