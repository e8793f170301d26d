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
	"github.com/campushq/exam-office-api/pkg/jobs"
)

type mockResolver struct {
	resolved *ResolvedPattern
	err      error
}

func (m *mockResolver) Resolve(ctx context.Context, courseID string, on time.Time) (*ResolvedPattern, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.resolved, nil
}

type mockPatternConfig struct {
	components    []models.PatternComponent
	subComponents []models.PatternSubComponent
}

func (m *mockPatternConfig) Components(ctx context.Context, patternID string) ([]models.PatternComponent, error) {
	return m.components, nil
}

func (m *mockPatternConfig) SubComponentsForPattern(ctx context.Context, patternID string) ([]models.PatternSubComponent, error) {
	return m.subComponents, nil
}

type mockRuleReader struct {
	eligibility []models.EligibilityRule
	passing     []models.PassingRule
}

func (m *mockRuleReader) EligibilityRules(ctx context.Context, patternID string) ([]models.EligibilityRule, error) {
	return m.eligibility, nil
}

func (m *mockRuleReader) PassingRules(ctx context.Context, patternID string) ([]models.PassingRule, error) {
	return m.passing, nil
}

type mockMarksStore struct {
	stored map[string]*models.LearnerInternalMark
}

func (m *mockMarksStore) Upsert(ctx context.Context, mark *models.LearnerInternalMark) error {
	if m.stored == nil {
		m.stored = make(map[string]*models.LearnerInternalMark)
	}
	m.stored[mark.LearnerID+"/"+mark.CourseID] = mark
	return nil
}

func (m *mockMarksStore) Find(ctx context.Context, learnerID, courseID string) (*models.LearnerInternalMark, error) {
	if mark, ok := m.stored[learnerID+"/"+courseID]; ok {
		return mark, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockMarksStore) ListByCourse(ctx context.Context, courseID string) ([]models.LearnerInternalMark, error) {
	out := []models.LearnerInternalMark{}
	for _, mark := range m.stored {
		if mark.CourseID == courseID {
			out = append(out, *mark)
		}
	}
	return out, nil
}

type mockCourseStore struct {
	courses  map[string]*models.Course
	learners []models.CourseLearner
}

func (m *mockCourseStore) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if c, ok := m.courses[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseStore) Learners(ctx context.Context, courseID string) ([]models.CourseLearner, error) {
	return m.learners, nil
}

type mockAttendance struct {
	summaries map[string]*models.AttendanceSummary
}

func (m *mockAttendance) Summary(ctx context.Context, learnerID, courseID string) (*models.AttendanceSummary, error) {
	if s, ok := m.summaries[learnerID]; ok {
		return s, nil
	}
	return nil, nil
}

type mockDispatcher struct {
	enqueued []jobs.Job
}

func (m *mockDispatcher) Enqueue(job jobs.Job) error {
	m.enqueued = append(m.enqueued, job)
	return nil
}

func marksFixture() (*mockResolver, *mockPatternConfig, *mockRuleReader, *mockMarksStore, *mockCourseStore, *mockAttendance) {
	pattern := &models.Pattern{
		ID:               "pat-1",
		PatternCode:      "IA-2026",
		RoundingMethod:   models.RoundingRound,
		DecimalPrecision: 2,
		Status:           models.PatternStatusActive,
		IsActive:         true,
	}
	minAttendance := 75.0
	resolver := &mockResolver{resolved: &ResolvedPattern{Pattern: pattern, Source: SourceCourse}}
	config := &mockPatternConfig{components: []models.PatternComponent{
		{ID: "comp-1", PatternID: "pat-1", ComponentCode: "TEST", ComponentName: "Periodic Test", WeightagePercentage: 100, IsMandatory: true, IsActive: true},
	}}
	rules := &mockRuleReader{
		eligibility: []models.EligibilityRule{{
			ID: "elig-1", PatternID: "pat-1", RuleCode: "ATT-75", RuleName: "Attendance",
			MinimumAttendancePercentage: &minAttendance, PriorityOrder: 1, IsActive: true,
		}},
		passing: []models.PassingRule{{
			ID: "pass-1", PatternID: "pat-1", RuleCode: "PASS-40", RuleName: "Standard Pass",
			MinimumPassPercentage: 40, PriorityOrder: 1, IsActive: true,
		}},
	}
	store := &mockMarksStore{}
	courses := &mockCourseStore{
		courses: map[string]*models.Course{"course-1": {
			ID: "course-1", CourseCode: "CS101", CourseName: "Data Structures",
			CourseType: models.CourseTypeTheory, InstitutionID: "inst-1", InternalMaxMark: 25, IsActive: true,
		}},
		learners: []models.CourseLearner{{LearnerID: "learner-1", LearnerName: "Asha", RollNumber: "24CS001", CourseID: "course-1"}},
	}
	attendance := &mockAttendance{summaries: map[string]*models.AttendanceSummary{
		"learner-1": {LearnerID: "learner-1", CourseID: "course-1", Percentage: 82},
	}}
	return resolver, config, rules, store, courses, attendance
}

func directMarksRequest() CalculateMarksRequest {
	obtained, max := 18.0, 20.0
	return CalculateMarksRequest{
		LearnerID: "learner-1",
		CourseID:  "course-1",
		Components: []ComponentMarksRequest{
			{ComponentID: "comp-1", MarksObtained: &obtained, MaxMarks: &max},
		},
	}
}

func TestMarksServiceCalculatePersistsResult(t *testing.T) {
	resolver, config, rules, store, courses, attendance := marksFixture()
	svc := NewMarksService(resolver, config, rules, store, courses, attendance, nil, nil, nil, zap.NewNop())

	result, err := svc.Calculate(context.Background(), directMarksRequest())
	require.NoError(t, err)
	assert.InDelta(t, 90, result.Calculation.TotalRawPercentage, 1e-9)
	assert.InDelta(t, 22.5, result.Calculation.TotalAfterRounding, 1e-9)
	assert.True(t, result.Eligibility.IsEligible)
	assert.True(t, result.Passing.IsPassed)
	assert.Equal(t, SourceCourse, result.Source)

	stored, ok := store.stored["learner-1/course-1"]
	require.True(t, ok)
	assert.Equal(t, "pat-1", stored.PatternID)
	assert.True(t, stored.IsEligibleForExternal)
	assert.NotEmpty(t, stored.Breakdown)
}

func TestMarksServicePreviewDoesNotPersist(t *testing.T) {
	resolver, config, rules, store, courses, attendance := marksFixture()
	svc := NewMarksService(resolver, config, rules, store, courses, attendance, nil, nil, nil, zap.NewNop())

	result, err := svc.Preview(context.Background(), directMarksRequest())
	require.NoError(t, err)
	assert.InDelta(t, 90, result.Calculation.TotalRawPercentage, 1e-9)
	assert.Empty(t, store.stored)
}

func TestMarksServicePropagatesPatternNotConfigured(t *testing.T) {
	resolver, config, rules, store, courses, attendance := marksFixture()
	resolver.resolved = nil
	resolver.err = appErrors.ErrPatternNotConfigured
	svc := NewMarksService(resolver, config, rules, store, courses, attendance, nil, nil, nil, zap.NewNop())

	_, err := svc.Calculate(context.Background(), directMarksRequest())
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrPatternNotConfigured.Code, appErr.Code)
}

func TestMarksServiceBatchEnqueuesPerLearner(t *testing.T) {
	resolver, config, rules, store, courses, attendance := marksFixture()
	courses.learners = append(courses.learners, models.CourseLearner{LearnerID: "learner-2", CourseID: "course-1"})
	queue := &mockDispatcher{}
	svc := NewMarksService(resolver, config, rules, store, courses, attendance, queue, nil, nil, zap.NewNop())

	obtained, max := 15.0, 20.0
	resp, err := svc.CalculateBatch(context.Background(), BatchCalculateRequest{
		CourseID: "course-1",
		Learners: []LearnerMarksRequest{
			{LearnerID: "learner-1", Components: []ComponentMarksRequest{{ComponentID: "comp-1", MarksObtained: &obtained, MaxMarks: &max}}},
			{LearnerID: "learner-2", Components: []ComponentMarksRequest{{ComponentID: "comp-1", MarksObtained: &obtained, MaxMarks: &max}}},
			{LearnerID: "stranger", Components: []ComponentMarksRequest{{ComponentID: "comp-1", MarksObtained: &obtained, MaxMarks: &max}}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Accepted)
	assert.Equal(t, 1, resp.Rejected)
	require.Len(t, queue.enqueued, 2)
	assert.Equal(t, batchJobType, queue.enqueued[0].Type)
}

func TestMarksServiceBatchRunsInlineWithoutQueue(t *testing.T) {
	resolver, config, rules, store, courses, attendance := marksFixture()
	svc := NewMarksService(resolver, config, rules, store, courses, attendance, nil, nil, nil, zap.NewNop())

	obtained, max := 15.0, 20.0
	resp, err := svc.CalculateBatch(context.Background(), BatchCalculateRequest{
		CourseID: "course-1",
		Learners: []LearnerMarksRequest{
			{LearnerID: "learner-1", Components: []ComponentMarksRequest{{ComponentID: "comp-1", MarksObtained: &obtained, MaxMarks: &max}}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Accepted)
	require.Len(t, store.stored, 1)
}

func TestMarksServiceHandleBatchJob(t *testing.T) {
	resolver, config, rules, store, courses, attendance := marksFixture()
	svc := NewMarksService(resolver, config, rules, store, courses, attendance, nil, nil, nil, zap.NewNop())

	obtained, max := 12.0, 20.0
	job := jobs.Job{
		ID:   "job-1",
		Type: batchJobType,
		Payload: batchJobPayload{
			CourseID: "course-1",
			Learner: LearnerMarksRequest{
				LearnerID:  "learner-1",
				Components: []ComponentMarksRequest{{ComponentID: "comp-1", MarksObtained: &obtained, MaxMarks: &max}},
			},
		},
	}
	require.NoError(t, svc.HandleBatchJob(context.Background(), job))
	require.Len(t, store.stored, 1)
}

func TestMarksServiceGetMissingMark(t *testing.T) {
	resolver, config, rules, store, courses, attendance := marksFixture()
	svc := NewMarksService(resolver, config, rules, store, courses, attendance, nil, nil, nil, zap.NewNop())

	_, err := svc.Get(context.Background(), "learner-1", "course-1")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
