package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campushq/exam-office-api/internal/models"
	appErrors "github.com/campushq/exam-office-api/pkg/errors"
)

type mockPatternRepo struct {
	patterns       map[string]*models.Pattern
	versions       map[string]int
	clearedDefault bool
}

func (m *mockPatternRepo) List(ctx context.Context, filter models.PatternFilter) ([]models.Pattern, error) {
	out := make([]models.Pattern, 0, len(m.patterns))
	for _, p := range m.patterns {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockPatternRepo) FindByID(ctx context.Context, id string) (*models.Pattern, error) {
	if p, ok := m.patterns[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPatternRepo) NextVersionNumber(ctx context.Context, institutionID, patternCode string) (int, error) {
	key := institutionID + "/" + patternCode
	return m.versions[key] + 1, nil
}

func (m *mockPatternRepo) Create(ctx context.Context, pattern *models.Pattern) error {
	if m.patterns == nil {
		m.patterns = make(map[string]*models.Pattern)
	}
	if m.versions == nil {
		m.versions = make(map[string]int)
	}
	pattern.ID = fmt.Sprintf("pat-%d", len(m.patterns)+1)
	m.patterns[pattern.ID] = pattern
	m.versions[pattern.InstitutionID+"/"+pattern.PatternCode] = pattern.VersionNumber
	return nil
}

func (m *mockPatternRepo) Update(ctx context.Context, pattern *models.Pattern) error {
	m.patterns[pattern.ID] = pattern
	return nil
}

func (m *mockPatternRepo) SetStatus(ctx context.Context, id string, status models.PatternStatus) error {
	if p, ok := m.patterns[id]; ok {
		p.Status = status
	}
	return nil
}

func (m *mockPatternRepo) ClearDefault(ctx context.Context, institutionID string, courseType models.CourseTypeApplicability, excludeID string) error {
	m.clearedDefault = true
	return nil
}

type mockRuleRepo struct {
	eligibility []models.EligibilityRule
	passing     []models.PassingRule
}

func (m *mockRuleRepo) EligibilityRules(ctx context.Context, patternID string) ([]models.EligibilityRule, error) {
	return m.eligibility, nil
}

func (m *mockRuleRepo) PassingRules(ctx context.Context, patternID string) ([]models.PassingRule, error) {
	return m.passing, nil
}

func (m *mockRuleRepo) UpsertEligibilityRule(ctx context.Context, rule *models.EligibilityRule) error {
	rule.ID = "rule-elig-1"
	m.eligibility = append(m.eligibility, *rule)
	return nil
}

func (m *mockRuleRepo) UpsertPassingRule(ctx context.Context, rule *models.PassingRule) error {
	rule.ID = "rule-pass-1"
	m.passing = append(m.passing, *rule)
	return nil
}

func (m *mockRuleRepo) DeleteEligibilityRule(ctx context.Context, id string) error { return nil }
func (m *mockRuleRepo) DeletePassingRule(ctx context.Context, id string) error    { return nil }

type mockAssociationRepo struct {
	overlap bool
	created []models.PatternCourseAssociation
}

func (m *mockAssociationRepo) CourseAssociations(ctx context.Context, patternID string) ([]models.PatternCourseAssociation, error) {
	return m.created, nil
}

func (m *mockAssociationRepo) ProgramAssociations(ctx context.Context, patternID string) ([]models.PatternProgramAssociation, error) {
	return nil, nil
}

func (m *mockAssociationRepo) CourseOverlapExists(ctx context.Context, courseID string, from time.Time, to *time.Time, excludeID string) (bool, error) {
	return m.overlap, nil
}

func (m *mockAssociationRepo) CreateCourseAssociation(ctx context.Context, assoc *models.PatternCourseAssociation) error {
	assoc.ID = "assoc-1"
	m.created = append(m.created, *assoc)
	return nil
}

func (m *mockAssociationRepo) CreateProgramAssociation(ctx context.Context, assoc *models.PatternProgramAssociation) error {
	assoc.ID = "assoc-prog-1"
	return nil
}

func (m *mockAssociationRepo) DeactivateCourseAssociation(ctx context.Context, id string) error {
	return nil
}

func newPatternService(patterns *mockPatternRepo) (*PatternService, *mockRuleRepo, *mockAssociationRepo) {
	rules := &mockRuleRepo{}
	associations := &mockAssociationRepo{}
	return NewPatternService(patterns, rules, associations, nil, zap.NewNop()), rules, associations
}

func validCreateRequest() CreatePatternRequest {
	return CreatePatternRequest{
		InstitutionID:                "inst-1",
		PatternCode:                  "IA-2026",
		PatternName:                  "CIA Pattern 2026",
		CourseTypeApplicability:      models.CourseTypeTheory,
		ProgramTypeApplicability:     models.ProgramTypeUG,
		ProgramCategoryApplicability: models.ProgramCategoryApplicabilityAll,
		AssessmentFrequency:          models.FrequencyPeriodic,
		WefDate:                      time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
		RoundingMethod:               models.RoundingRound,
		DecimalPrecision:             2,
		Components: []ComponentRequest{
			{ComponentCode: "TEST", ComponentName: "Periodic Test", WeightagePercentage: 60},
			{ComponentCode: "ASSIGN", ComponentName: "Assignment", WeightagePercentage: 40},
		},
	}
}

func TestPatternServiceCreateAssignsVersionAndDraft(t *testing.T) {
	repo := &mockPatternRepo{versions: map[string]int{"inst-1/IA-2026": 2}}
	svc, _, _ := newPatternService(repo)

	created, err := svc.Create(context.Background(), validCreateRequest())
	require.NoError(t, err)
	assert.Equal(t, 3, created.VersionNumber)
	assert.Equal(t, models.PatternStatusDraft, created.Status)
	assert.True(t, created.IsActive)
	require.Len(t, created.Components, 2)
	assert.Equal(t, models.CalcMethodAverage, created.Components[0].CalculationMethod)
}

func TestPatternServiceCreateRejectsBadWeights(t *testing.T) {
	svc, _, _ := newPatternService(&mockPatternRepo{})

	req := validCreateRequest()
	req.Components[1].WeightagePercentage = 30

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrInvalidWeights.Code, appErr.Code)
}

func TestPatternServiceCreateIgnoresInactiveComponentWeights(t *testing.T) {
	svc, _, _ := newPatternService(&mockPatternRepo{})

	inactive := false
	req := validCreateRequest()
	req.Components[0].WeightagePercentage = 100
	req.Components[1].IsActive = &inactive

	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
}

func TestPatternServiceCreateValidatesWeightedAverageSubWeights(t *testing.T) {
	svc, _, _ := newPatternService(&mockPatternRepo{})

	req := validCreateRequest()
	req.Components[0].CalculationMethod = models.CalcMethodWeightedAverage
	req.Components[0].SubComponents = []SubComponentRequest{
		{SubComponentCode: "T1", SubComponentName: "Test 1", SubWeightagePercentage: 70, InstanceNumber: 1},
		{SubComponentCode: "T2", SubComponentName: "Test 2", SubWeightagePercentage: 20, InstanceNumber: 2},
	}

	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrInvalidWeights.Code, appErr.Code)
}

func TestPatternServiceActivateClearsPreviousDefault(t *testing.T) {
	repo := &mockPatternRepo{patterns: map[string]*models.Pattern{
		"pat-1": {
			ID:            "pat-1",
			InstitutionID: "inst-1",
			Status:        models.PatternStatusDraft,
			IsDefault:     true,
			Components: []models.PatternComponent{
				{ComponentCode: "TEST", WeightagePercentage: 100, IsActive: true},
			},
		},
	}}
	svc, _, _ := newPatternService(repo)

	activated, err := svc.Activate(context.Background(), "pat-1")
	require.NoError(t, err)
	assert.Equal(t, models.PatternStatusActive, activated.Status)
	assert.True(t, repo.clearedDefault)
}

func TestPatternServiceActivateRejectsInvalidStoredWeights(t *testing.T) {
	repo := &mockPatternRepo{patterns: map[string]*models.Pattern{
		"pat-1": {
			ID:     "pat-1",
			Status: models.PatternStatusDraft,
			Components: []models.PatternComponent{
				{ComponentCode: "TEST", WeightagePercentage: 70, IsActive: true},
			},
		},
	}}
	svc, _, _ := newPatternService(repo)

	_, err := svc.Activate(context.Background(), "pat-1")
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrInvalidWeights.Code, appErr.Code)
}

func TestPatternServiceAssociateCourseRejectsOverlap(t *testing.T) {
	repo := &mockPatternRepo{patterns: map[string]*models.Pattern{
		"pat-1": {ID: "pat-1", Status: models.PatternStatusActive},
	}}
	svc, _, associations := newPatternService(repo)
	associations.overlap = true

	_, err := svc.AssociateCourse(context.Background(), "pat-1", AssociationRequest{
		TargetID:      "course-1",
		TargetCode:    "CS101",
		EffectiveFrom: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestPatternServiceAssociateCourseRequiresActivePattern(t *testing.T) {
	repo := &mockPatternRepo{patterns: map[string]*models.Pattern{
		"pat-1": {ID: "pat-1", Status: models.PatternStatusDraft},
	}}
	svc, _, _ := newPatternService(repo)

	_, err := svc.AssociateCourse(context.Background(), "pat-1", AssociationRequest{
		TargetID:      "course-1",
		TargetCode:    "CS101",
		EffectiveFrom: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestPatternServiceSavePassingRuleRequiresGraceLimit(t *testing.T) {
	repo := &mockPatternRepo{patterns: map[string]*models.Pattern{
		"pat-1": {ID: "pat-1", Status: models.PatternStatusActive},
	}}
	svc, _, _ := newPatternService(repo)

	_, err := svc.SavePassingRule(context.Background(), "pat-1", "", PassingRuleRequest{
		RuleCode:              "PASS-40",
		RuleName:              "Standard Pass",
		MinimumPassPercentage: 40,
		GraceMarkEnabled:      true,
	})
	require.Error(t, err)
	appErr, ok := err.(*appErrors.Error)
	require.True(t, ok)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
