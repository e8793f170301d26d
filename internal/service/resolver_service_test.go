package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushq/exam-office-api/internal/models"
	appErrors "github.com/campushq/exam-office-api/pkg/errors"
)

type mockResolverLookups struct {
	coursePatterns  map[string]*models.Pattern
	programPatterns map[string]*models.Pattern
	defaultPattern  *models.Pattern
}

func (m *mockResolverLookups) CoursePattern(ctx context.Context, courseID string, on time.Time) (*models.Pattern, error) {
	if p, ok := m.coursePatterns[courseID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockResolverLookups) ProgramPattern(ctx context.Context, programID string, on time.Time) (*models.Pattern, error) {
	if p, ok := m.programPatterns[programID]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockResolverLookups) DefaultPattern(ctx context.Context, institutionID string, courseType models.CourseTypeApplicability) (*models.Pattern, error) {
	if m.defaultPattern != nil {
		return m.defaultPattern, nil
	}
	return nil, sql.ErrNoRows
}

type mockCourseReader struct {
	courses map[string]*models.Course
}

func (m *mockCourseReader) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func theoryCourse(id string, programID *string) *models.Course {
	return &models.Course{
		ID:              id,
		CourseCode:      "CS101",
		CourseName:      "Data Structures",
		CourseType:      models.CourseTypeTheory,
		ProgramID:       programID,
		InstitutionID:   "inst-1",
		InternalMaxMark: 25,
		IsActive:        true,
	}
}

func namedPattern(id string) *models.Pattern {
	return &models.Pattern{ID: id, PatternCode: "IA-" + id, Status: models.PatternStatusActive, IsActive: true}
}

func TestResolverCourseOverridesProgram(t *testing.T) {
	programID := "prog-1"
	lookups := &mockResolverLookups{
		coursePatterns:  map[string]*models.Pattern{"course-1": namedPattern("course-level")},
		programPatterns: map[string]*models.Pattern{programID: namedPattern("program-level")},
		defaultPattern:  namedPattern("default-level"),
	}
	courses := &mockCourseReader{courses: map[string]*models.Course{"course-1": theoryCourse("course-1", &programID)}}
	svc := NewResolverService(lookups, courses, nil, zap.NewNop())

	resolved, err := svc.Resolve(context.Background(), "course-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "course-level", resolved.Pattern.ID)
	assert.Equal(t, SourceCourse, resolved.Source)
}

func TestResolverFallsBackToProgram(t *testing.T) {
	programID := "prog-1"
	lookups := &mockResolverLookups{
		programPatterns: map[string]*models.Pattern{programID: namedPattern("program-level")},
		defaultPattern:  namedPattern("default-level"),
	}
	courses := &mockCourseReader{courses: map[string]*models.Course{"course-1": theoryCourse("course-1", &programID)}}
	svc := NewResolverService(lookups, courses, nil, zap.NewNop())

	resolved, err := svc.Resolve(context.Background(), "course-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "program-level", resolved.Pattern.ID)
	assert.Equal(t, SourceProgram, resolved.Source)
}

func TestResolverFallsBackToInstitutionDefault(t *testing.T) {
	lookups := &mockResolverLookups{defaultPattern: namedPattern("default-level")}
	courses := &mockCourseReader{courses: map[string]*models.Course{"course-1": theoryCourse("course-1", nil)}}
	svc := NewResolverService(lookups, courses, nil, zap.NewNop())

	resolved, err := svc.Resolve(context.Background(), "course-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "default-level", resolved.Pattern.ID)
	assert.Equal(t, SourceInstitutionDefault, resolved.Source)
}

func TestResolverNoPatternConfigured(t *testing.T) {
	lookups := &mockResolverLookups{}
	courses := &mockCourseReader{courses: map[string]*models.Course{"course-1": theoryCourse("course-1", nil)}}
	svc := NewResolverService(lookups, courses, nil, zap.NewNop())

	_, err := svc.Resolve(context.Background(), "course-1", time.Now())
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrPatternNotConfigured.Code, appErr.Code)
}

func TestResolverUnknownCourse(t *testing.T) {
	svc := NewResolverService(&mockResolverLookups{}, &mockCourseReader{}, nil, zap.NewNop())

	_, err := svc.Resolve(context.Background(), "missing", time.Now())
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
