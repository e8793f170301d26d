package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/exam-office-api/internal/models"
)

func TestAssociationRepositoryCoursePattern(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAssociationRepository(db)
	on := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := addPatternRow(sqlmock.NewRows(patternRowColumns()), "pat-course", "IA-COURSE")
	mock.ExpectQuery("FROM pattern_course_associations").
		WithArgs("course-1", on).
		WillReturnRows(rows)

	pattern, err := repo.CoursePattern(context.Background(), "course-1", on)
	require.NoError(t, err)
	assert.Equal(t, "pat-course", pattern.ID)
}

func TestAssociationRepositoryCoursePatternNoOverride(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAssociationRepository(db)
	on := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM pattern_course_associations").
		WithArgs("course-unbound", on).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.CoursePattern(context.Background(), "course-unbound", on)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestAssociationRepositoryDefaultPattern(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAssociationRepository(db)
	rows := addPatternRow(sqlmock.NewRows(patternRowColumns()), "pat-default", "IA-DEFAULT")
	mock.ExpectQuery("FROM assessment_patterns").
		WithArgs("inst-1", models.CourseTypeTheory).
		WillReturnRows(rows)

	pattern, err := repo.DefaultPattern(context.Background(), "inst-1", models.CourseTypeTheory)
	require.NoError(t, err)
	assert.Equal(t, "pat-default", pattern.ID)
}

func TestAssociationRepositoryCourseOverlapExists(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAssociationRepository(db)
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT 1 FROM pattern_course_associations").
		WithArgs("course-1", from, nil).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.CourseOverlapExists(context.Background(), "course-1", from, nil, "")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestAssociationRepositoryCourseOverlapAbsent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAssociationRepository(db)
	from := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT 1 FROM pattern_course_associations").
		WithArgs("course-free", from, nil).
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.CourseOverlapExists(context.Background(), "course-free", from, nil, "")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAssociationRepositoryCreateCourseAssociation(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewAssociationRepository(db)
	mock.ExpectExec("INSERT INTO pattern_course_associations").
		WillReturnResult(sqlmock.NewResult(1, 1))

	assoc := &models.PatternCourseAssociation{
		PatternID:     "pat-1",
		CourseID:      "course-1",
		CourseCode:    "CS101",
		EffectiveFrom: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		IsActive:      true,
	}
	require.NoError(t, repo.CreateCourseAssociation(context.Background(), assoc))
	assert.NotEmpty(t, assoc.ID)
}
