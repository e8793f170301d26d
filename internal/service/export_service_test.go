package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushq/exam-office-api/internal/models"
)

func exportFixture() (*mockMarksStore, *mockCourseStore) {
	reasons := "Attendance 70.0% is below required 75%"
	store := &mockMarksStore{stored: map[string]*models.LearnerInternalMark{
		"learner-1/course-1": {
			ID: "mark-1", LearnerID: "learner-1", CourseID: "course-1", PatternID: "pat-1",
			FinalPercentage: 82.5, FinalMarks: 20.63,
			IsEligibleForExternal: true, IsPassed: true,
		},
		"learner-2/course-1": {
			ID: "mark-2", LearnerID: "learner-2", CourseID: "course-1", PatternID: "pat-1",
			FinalPercentage: 35, FinalMarks: 8.75,
			IsEligibleForExternal: false, IsPassed: false,
			EligibilityReasons: &reasons,
		},
	}}
	courses := &mockCourseStore{
		courses: map[string]*models.Course{"course-1": {
			ID: "course-1", CourseCode: "CS101", CourseName: "Data Structures", InternalMaxMark: 25,
		}},
		learners: []models.CourseLearner{
			{LearnerID: "learner-1", LearnerName: "Asha", RollNumber: "24CS001", CourseID: "course-1"},
			{LearnerID: "learner-2", LearnerName: "Vikram", RollNumber: "24CS002", CourseID: "course-1"},
		},
	}
	return store, courses
}

func TestExportServiceCourseRegisterCSV(t *testing.T) {
	store, courses := exportFixture()
	svc := NewExportService(store, courses, zap.NewNop())

	file, err := svc.CourseRegister(context.Background(), "course-1", FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", file.ContentType)
	assert.True(t, strings.HasPrefix(file.Filename, "internal-marks-CS101-"))

	content := string(file.Data)
	assert.Contains(t, content, "Learner,Roll Number,Internal %")
	assert.Contains(t, content, "Asha,24CS001,82.50,20.63,Yes,Yes")
	assert.Contains(t, content, "Vikram,24CS002,35.00,8.75,No,No")
	assert.Contains(t, content, "below required 75%")
}

func TestExportServiceCourseRegisterPDF(t *testing.T) {
	store, courses := exportFixture()
	svc := NewExportService(store, courses, zap.NewNop())

	file, err := svc.CourseRegister(context.Background(), "course-1", FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasSuffix(file.Filename, ".pdf"))
	assert.True(t, len(file.Data) > 0)
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	store, courses := exportFixture()
	svc := NewExportService(store, courses, zap.NewNop())

	_, err := svc.CourseRegister(context.Background(), "course-1", ExportFormat("xlsx"))
	require.Error(t, err)
}

func TestExportServiceUnknownCourse(t *testing.T) {
	store, courses := exportFixture()
	svc := NewExportService(store, courses, zap.NewNop())

	_, err := svc.CourseRegister(context.Background(), "missing", FormatCSV)
	require.Error(t, err)
}
