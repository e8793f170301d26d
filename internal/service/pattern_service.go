package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campushq/exam-office-api/internal/models"
	appErrors "github.com/campushq/exam-office-api/pkg/errors"
)

type patternRepository interface {
	List(ctx context.Context, filter models.PatternFilter) ([]models.Pattern, error)
	FindByID(ctx context.Context, id string) (*models.Pattern, error)
	NextVersionNumber(ctx context.Context, institutionID, patternCode string) (int, error)
	Create(ctx context.Context, pattern *models.Pattern) error
	Update(ctx context.Context, pattern *models.Pattern) error
	SetStatus(ctx context.Context, id string, status models.PatternStatus) error
	ClearDefault(ctx context.Context, institutionID string, courseType models.CourseTypeApplicability, excludeID string) error
}

type ruleRepository interface {
	EligibilityRules(ctx context.Context, patternID string) ([]models.EligibilityRule, error)
	PassingRules(ctx context.Context, patternID string) ([]models.PassingRule, error)
	UpsertEligibilityRule(ctx context.Context, rule *models.EligibilityRule) error
	UpsertPassingRule(ctx context.Context, rule *models.PassingRule) error
	DeleteEligibilityRule(ctx context.Context, id string) error
	DeletePassingRule(ctx context.Context, id string) error
}

type associationRepository interface {
	CourseAssociations(ctx context.Context, patternID string) ([]models.PatternCourseAssociation, error)
	ProgramAssociations(ctx context.Context, patternID string) ([]models.PatternProgramAssociation, error)
	CourseOverlapExists(ctx context.Context, courseID string, from time.Time, to *time.Time, excludeID string) (bool, error)
	CreateCourseAssociation(ctx context.Context, assoc *models.PatternCourseAssociation) error
	CreateProgramAssociation(ctx context.Context, assoc *models.PatternProgramAssociation) error
	DeactivateCourseAssociation(ctx context.Context, id string) error
}

// SubComponentRequest captures one assessment instance under a component.
type SubComponentRequest struct {
	SubComponentCode       string  `json:"sub_component_code" validate:"required"`
	SubComponentName       string  `json:"sub_component_name" validate:"required"`
	Description            *string `json:"description"`
	SubWeightagePercentage float64 `json:"sub_weightage_percentage" validate:"gte=0,lte=100"`
	InstanceNumber         int     `json:"instance_number" validate:"gte=1"`
	DisplayOrder           int     `json:"display_order"`
	ScheduledPeriod        *int    `json:"scheduled_period"`
	IsActive               *bool   `json:"is_active"`
}

// ComponentRequest captures one gradable component of a pattern.
type ComponentRequest struct {
	ComponentCode              string                   `json:"component_code" validate:"required"`
	ComponentName              string                   `json:"component_name" validate:"required"`
	Description                *string                  `json:"description"`
	WeightagePercentage        float64                  `json:"weightage_percentage" validate:"gte=0,lte=100"`
	DisplayOrder               int                      `json:"display_order"`
	VisibleToLearner           bool                     `json:"visible_to_learner"`
	IsMandatory                bool                     `json:"is_mandatory"`
	CanBeWaived                bool                     `json:"can_be_waived"`
	WaiverRequiresApproval     bool                     `json:"waiver_requires_approval"`
	CalculationMethod          models.CalculationMethod `json:"calculation_method" validate:"omitempty,oneof=sum average best_of weighted_average"`
	BestOfCount                int                      `json:"best_of_count" validate:"gte=0"`
	RequiresScheduledExam      bool                     `json:"requires_scheduled_exam"`
	AllowsContinuousAssessment bool                     `json:"allows_continuous_assessment"`
	IsActive                   *bool                    `json:"is_active"`
	SubComponents              []SubComponentRequest    `json:"sub_components" validate:"dive"`
}

// CreatePatternRequest handles pattern creation payload.
type CreatePatternRequest struct {
	InstitutionID                string                              `json:"institution_id" validate:"required"`
	RegulationCode               *string                             `json:"regulation_code"`
	PatternCode                  string                              `json:"pattern_code" validate:"required"`
	PatternName                  string                              `json:"pattern_name" validate:"required"`
	Description                  *string                             `json:"description"`
	CourseTypeApplicability      models.CourseTypeApplicability      `json:"course_type_applicability" validate:"required,oneof=theory practical project theory_practical all"`
	ProgramTypeApplicability     models.ProgramTypeApplicability     `json:"program_type_applicability" validate:"required,oneof=ug pg diploma certificate all"`
	ProgramCategoryApplicability models.ProgramCategoryApplicability `json:"program_category_applicability" validate:"required,oneof=arts science skill_based all"`
	AssessmentFrequency          models.AssessmentFrequency          `json:"assessment_frequency" validate:"required,oneof=monthly periodic semester annual"`
	PeriodsPerSemester           *int                                `json:"periods_per_semester"`
	WefDate                      time.Time                           `json:"wef_date" validate:"required"`
	WefBatchCode                 *string                             `json:"wef_batch_code"`
	RoundingMethod               models.RoundingMethod               `json:"rounding_method" validate:"required,oneof=floor ceil round none"`
	DecimalPrecision             int                                 `json:"decimal_precision" validate:"gte=0,lte=4"`
	IsDefault                    bool                                `json:"is_default"`
	Components                   []ComponentRequest                  `json:"components" validate:"required,dive"`
}

// UpdatePatternRequest handles pattern update payload. Identity and
// versioning fields are immutable after creation.
type UpdatePatternRequest struct {
	PatternName                  string                              `json:"pattern_name" validate:"required"`
	Description                  *string                             `json:"description"`
	CourseTypeApplicability      models.CourseTypeApplicability      `json:"course_type_applicability" validate:"required,oneof=theory practical project theory_practical all"`
	ProgramTypeApplicability     models.ProgramTypeApplicability     `json:"program_type_applicability" validate:"required,oneof=ug pg diploma certificate all"`
	ProgramCategoryApplicability models.ProgramCategoryApplicability `json:"program_category_applicability" validate:"required,oneof=arts science skill_based all"`
	AssessmentFrequency          models.AssessmentFrequency          `json:"assessment_frequency" validate:"required,oneof=monthly periodic semester annual"`
	PeriodsPerSemester           *int                                `json:"periods_per_semester"`
	WefDate                      time.Time                           `json:"wef_date" validate:"required"`
	WefBatchCode                 *string                             `json:"wef_batch_code"`
	RoundingMethod               models.RoundingMethod               `json:"rounding_method" validate:"required,oneof=floor ceil round none"`
	DecimalPrecision             int                                 `json:"decimal_precision" validate:"gte=0,lte=4"`
	IsDefault                    bool                                `json:"is_default"`
	Components                   []ComponentRequest                  `json:"components" validate:"required,dive"`
}

// EligibilityRuleRequest handles eligibility rule payload.
type EligibilityRuleRequest struct {
	RuleCode                      string   `json:"rule_code" validate:"required"`
	RuleName                      string   `json:"rule_name" validate:"required"`
	Description                   *string  `json:"description"`
	MinimumOverallPercentage      *float64 `json:"minimum_overall_percentage" validate:"omitempty,gte=0,lte=100"`
	MinimumAttendancePercentage   *float64 `json:"minimum_attendance_percentage" validate:"omitempty,gte=0,lte=100"`
	MandatoryComponentsCompletion bool     `json:"mandatory_components_completion"`
	MinimumComponentsCompletion   *float64 `json:"minimum_components_completion" validate:"omitempty,gte=0,lte=100"`
	CondonationAllowed            bool     `json:"condonation_allowed"`
	CondonationPercentageLimit    *float64 `json:"condonation_percentage_limit" validate:"omitempty,gte=0,lte=100"`
	PriorityOrder                 int      `json:"priority_order"`
	IsActive                      *bool    `json:"is_active"`
}

// PassingRuleRequest handles passing rule payload.
type PassingRuleRequest struct {
	RuleCode                       string   `json:"rule_code" validate:"required"`
	RuleName                       string   `json:"rule_name" validate:"required"`
	Description                    *string  `json:"description"`
	MinimumPassPercentage          float64  `json:"minimum_pass_percentage" validate:"gte=0,lte=100"`
	ComponentWiseMinimumEnabled    bool     `json:"component_wise_minimum_enabled"`
	ComponentWiseMinimumPercentage *float64 `json:"component_wise_minimum_percentage" validate:"omitempty,gte=0,lte=100"`
	GraceMarkEnabled               bool     `json:"grace_mark_enabled"`
	GraceMarkPercentageLimit       *float64 `json:"grace_mark_percentage_limit" validate:"omitempty,gte=0"`
	ApplyRoundingBeforePassCheck   bool     `json:"apply_rounding_before_pass_check"`
	PriorityOrder                  int      `json:"priority_order"`
	IsActive                       *bool    `json:"is_active"`
}

// AssociationRequest binds a pattern to a course or program.
type AssociationRequest struct {
	TargetID      string     `json:"target_id" validate:"required"`
	TargetCode    string     `json:"target_code" validate:"required"`
	EffectiveFrom time.Time  `json:"effective_from" validate:"required"`
	EffectiveTo   *time.Time `json:"effective_to"`
}

// PatternService manages assessment pattern configuration: the pattern
// documents themselves, their eligibility and passing rules, and their
// course and program bindings.
type PatternService struct {
	patterns     patternRepository
	rules        ruleRepository
	associations associationRepository
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewPatternService constructs service.
func NewPatternService(patterns patternRepository, rules ruleRepository, associations associationRepository, validate *validator.Validate, logger *zap.Logger) *PatternService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PatternService{patterns: patterns, rules: rules, associations: associations, validator: validate, logger: logger}
}

// List returns patterns for filter.
func (s *PatternService) List(ctx context.Context, filter models.PatternFilter) ([]models.Pattern, error) {
	patterns, err := s.patterns.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list patterns")
	}
	return patterns, nil
}

// Get returns one pattern with components loaded.
func (s *PatternService) Get(ctx context.Context, id string) (*models.Pattern, error) {
	pattern, err := s.patterns.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pattern not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pattern")
	}
	return pattern, nil
}

// Create inserts a new pattern at the next version for its code. Patterns
// start in draft; activation is a separate transition.
func (s *PatternService) Create(ctx context.Context, req CreatePatternRequest) (*models.Pattern, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pattern payload")
	}
	if err := validateComponentWeights(req.Components); err != nil {
		return nil, err
	}
	version, err := s.patterns.NextVersionNumber(ctx, req.InstitutionID, req.PatternCode)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to version pattern")
	}
	pattern := &models.Pattern{
		InstitutionID:                req.InstitutionID,
		RegulationCode:               req.RegulationCode,
		PatternCode:                  req.PatternCode,
		PatternName:                  req.PatternName,
		Description:                  req.Description,
		CourseTypeApplicability:      req.CourseTypeApplicability,
		ProgramTypeApplicability:     req.ProgramTypeApplicability,
		ProgramCategoryApplicability: req.ProgramCategoryApplicability,
		AssessmentFrequency:          req.AssessmentFrequency,
		PeriodsPerSemester:           req.PeriodsPerSemester,
		WefDate:                      req.WefDate,
		WefBatchCode:                 req.WefBatchCode,
		VersionNumber:                version,
		RoundingMethod:               req.RoundingMethod,
		DecimalPrecision:             req.DecimalPrecision,
		Status:                       models.PatternStatusDraft,
		IsDefault:                    req.IsDefault,
		IsActive:                     true,
		Components:                   buildComponents(req.Components),
	}
	if err := s.patterns.Create(ctx, pattern); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create pattern")
	}
	s.logger.Info("pattern created",
		zap.String("pattern_id", pattern.ID),
		zap.String("pattern_code", pattern.PatternCode),
		zap.Int("version", pattern.VersionNumber))
	return pattern, nil
}

// Update rewrites a pattern's metadata and component structure. Archived
// patterns are immutable.
func (s *PatternService) Update(ctx context.Context, id string, req UpdatePatternRequest) (*models.Pattern, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pattern payload")
	}
	if err := validateComponentWeights(req.Components); err != nil {
		return nil, err
	}
	pattern, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if pattern.Status == models.PatternStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrConflict, "archived pattern cannot be modified")
	}
	pattern.PatternName = req.PatternName
	pattern.Description = req.Description
	pattern.CourseTypeApplicability = req.CourseTypeApplicability
	pattern.ProgramTypeApplicability = req.ProgramTypeApplicability
	pattern.ProgramCategoryApplicability = req.ProgramCategoryApplicability
	pattern.AssessmentFrequency = req.AssessmentFrequency
	pattern.PeriodsPerSemester = req.PeriodsPerSemester
	pattern.WefDate = req.WefDate
	pattern.WefBatchCode = req.WefBatchCode
	pattern.RoundingMethod = req.RoundingMethod
	pattern.DecimalPrecision = req.DecimalPrecision
	pattern.IsDefault = req.IsDefault
	pattern.Components = buildComponents(req.Components)
	if err := s.patterns.Update(ctx, pattern); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update pattern")
	}
	return pattern, nil
}

// Activate moves a pattern from draft to active and, when it is flagged as
// the default, demotes the previous default for the same scope.
func (s *PatternService) Activate(ctx context.Context, id string) (*models.Pattern, error) {
	pattern, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if pattern.Status == models.PatternStatusActive {
		return pattern, nil
	}
	if pattern.Status == models.PatternStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrConflict, "archived pattern cannot be activated")
	}
	if err := validateComponentModels(pattern.Components); err != nil {
		return nil, err
	}
	if pattern.IsDefault {
		if err := s.patterns.ClearDefault(ctx, pattern.InstitutionID, pattern.CourseTypeApplicability, pattern.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear previous default")
		}
	}
	if err := s.patterns.SetStatus(ctx, id, models.PatternStatusActive); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate pattern")
	}
	pattern.Status = models.PatternStatusActive
	s.logger.Info("pattern activated", zap.String("pattern_id", id))
	return pattern, nil
}

// Archive retires a pattern. Stored calculations keep referencing it.
func (s *PatternService) Archive(ctx context.Context, id string) (*models.Pattern, error) {
	pattern, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if pattern.Status == models.PatternStatusArchived {
		return pattern, nil
	}
	if err := s.patterns.SetStatus(ctx, id, models.PatternStatusArchived); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive pattern")
	}
	pattern.Status = models.PatternStatusArchived
	return pattern, nil
}

// EligibilityRules lists eligibility rules of a pattern by priority.
func (s *PatternService) EligibilityRules(ctx context.Context, patternID string) ([]models.EligibilityRule, error) {
	rules, err := s.rules.EligibilityRules(ctx, patternID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list eligibility rules")
	}
	return rules, nil
}

// PassingRules lists passing rules of a pattern by priority.
func (s *PatternService) PassingRules(ctx context.Context, patternID string) ([]models.PassingRule, error) {
	rules, err := s.rules.PassingRules(ctx, patternID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list passing rules")
	}
	return rules, nil
}

// SaveEligibilityRule creates or updates an eligibility rule on a pattern.
func (s *PatternService) SaveEligibilityRule(ctx context.Context, patternID, ruleID string, req EligibilityRuleRequest) (*models.EligibilityRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid eligibility rule payload")
	}
	if req.CondonationAllowed && req.CondonationPercentageLimit == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "condonation limit required when condonation is allowed")
	}
	if _, err := s.Get(ctx, patternID); err != nil {
		return nil, err
	}
	rule := &models.EligibilityRule{
		ID:                            ruleID,
		PatternID:                     patternID,
		RuleCode:                      req.RuleCode,
		RuleName:                      req.RuleName,
		Description:                   req.Description,
		MinimumOverallPercentage:      req.MinimumOverallPercentage,
		MinimumAttendancePercentage:   req.MinimumAttendancePercentage,
		MandatoryComponentsCompletion: req.MandatoryComponentsCompletion,
		MinimumComponentsCompletion:   req.MinimumComponentsCompletion,
		CondonationAllowed:            req.CondonationAllowed,
		CondonationPercentageLimit:    req.CondonationPercentageLimit,
		PriorityOrder:                 req.PriorityOrder,
		IsActive:                      boolOrDefault(req.IsActive, true),
	}
	if err := s.rules.UpsertEligibilityRule(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save eligibility rule")
	}
	return rule, nil
}

// SavePassingRule creates or updates a passing rule on a pattern.
func (s *PatternService) SavePassingRule(ctx context.Context, patternID, ruleID string, req PassingRuleRequest) (*models.PassingRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid passing rule payload")
	}
	if req.ComponentWiseMinimumEnabled && req.ComponentWiseMinimumPercentage == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "component-wise minimum percentage required when enabled")
	}
	if req.GraceMarkEnabled && req.GraceMarkPercentageLimit == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "grace mark limit required when grace is enabled")
	}
	if _, err := s.Get(ctx, patternID); err != nil {
		return nil, err
	}
	rule := &models.PassingRule{
		ID:                             ruleID,
		PatternID:                      patternID,
		RuleCode:                       req.RuleCode,
		RuleName:                       req.RuleName,
		Description:                    req.Description,
		MinimumPassPercentage:          req.MinimumPassPercentage,
		ComponentWiseMinimumEnabled:    req.ComponentWiseMinimumEnabled,
		ComponentWiseMinimumPercentage: req.ComponentWiseMinimumPercentage,
		GraceMarkEnabled:               req.GraceMarkEnabled,
		GraceMarkPercentageLimit:       req.GraceMarkPercentageLimit,
		ApplyRoundingBeforePassCheck:   req.ApplyRoundingBeforePassCheck,
		PriorityOrder:                  req.PriorityOrder,
		IsActive:                       boolOrDefault(req.IsActive, true),
	}
	if err := s.rules.UpsertPassingRule(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save passing rule")
	}
	return rule, nil
}

// DeleteEligibilityRule removes an eligibility rule.
func (s *PatternService) DeleteEligibilityRule(ctx context.Context, id string) error {
	if err := s.rules.DeleteEligibilityRule(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete eligibility rule")
	}
	return nil
}

// DeletePassingRule removes a passing rule.
func (s *PatternService) DeletePassingRule(ctx context.Context, id string) error {
	if err := s.rules.DeletePassingRule(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete passing rule")
	}
	return nil
}

// CourseAssociations lists the course bindings of a pattern.
func (s *PatternService) CourseAssociations(ctx context.Context, patternID string) ([]models.PatternCourseAssociation, error) {
	associations, err := s.associations.CourseAssociations(ctx, patternID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list course associations")
	}
	return associations, nil
}

// ProgramAssociations lists the program bindings of a pattern.
func (s *PatternService) ProgramAssociations(ctx context.Context, patternID string) ([]models.PatternProgramAssociation, error) {
	associations, err := s.associations.ProgramAssociations(ctx, patternID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list program associations")
	}
	return associations, nil
}

// AssociateCourse binds a pattern to a course, rejecting windows that overlap
// another active binding for the same course.
func (s *PatternService) AssociateCourse(ctx context.Context, patternID string, req AssociationRequest) (*models.PatternCourseAssociation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid association payload")
	}
	if req.EffectiveTo != nil && req.EffectiveTo.Before(req.EffectiveFrom) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "effective_to precedes effective_from")
	}
	pattern, err := s.Get(ctx, patternID)
	if err != nil {
		return nil, err
	}
	if pattern.Status != models.PatternStatusActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only active patterns can be associated")
	}
	overlap, err := s.associations.CourseOverlapExists(ctx, req.TargetID, req.EffectiveFrom, req.EffectiveTo, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check association overlap")
	}
	if overlap {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("course %s already has a pattern for that window", req.TargetCode))
	}
	assoc := &models.PatternCourseAssociation{
		PatternID:     patternID,
		CourseID:      req.TargetID,
		CourseCode:    req.TargetCode,
		EffectiveFrom: req.EffectiveFrom,
		EffectiveTo:   req.EffectiveTo,
		IsActive:      true,
	}
	if err := s.associations.CreateCourseAssociation(ctx, assoc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course association")
	}
	return assoc, nil
}

// AssociateProgram binds a pattern to a program.
func (s *PatternService) AssociateProgram(ctx context.Context, patternID string, req AssociationRequest) (*models.PatternProgramAssociation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid association payload")
	}
	if req.EffectiveTo != nil && req.EffectiveTo.Before(req.EffectiveFrom) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "effective_to precedes effective_from")
	}
	pattern, err := s.Get(ctx, patternID)
	if err != nil {
		return nil, err
	}
	if pattern.Status != models.PatternStatusActive {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only active patterns can be associated")
	}
	assoc := &models.PatternProgramAssociation{
		PatternID:     patternID,
		ProgramID:     req.TargetID,
		ProgramCode:   req.TargetCode,
		EffectiveFrom: req.EffectiveFrom,
		EffectiveTo:   req.EffectiveTo,
		IsActive:      true,
	}
	if err := s.associations.CreateProgramAssociation(ctx, assoc); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create program association")
	}
	return assoc, nil
}

// RemoveCourseAssociation retires a course binding.
func (s *PatternService) RemoveCourseAssociation(ctx context.Context, id string) error {
	if err := s.associations.DeactivateCourseAssociation(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove course association")
	}
	return nil
}

// validateComponentWeights enforces structural weightage invariants on the
// request payload: active component weightages total 100, and active
// weighted_average sub-component weightages total 100 within their component.
func validateComponentWeights(components []ComponentRequest) error {
	if len(components) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "components required")
	}
	seen := make(map[string]struct{}, len(components))
	total := 0.0
	for _, comp := range components {
		if _, ok := seen[comp.ComponentCode]; ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate component code %s", comp.ComponentCode))
		}
		seen[comp.ComponentCode] = struct{}{}
		if !boolOrDefault(comp.IsActive, true) {
			continue
		}
		total += comp.WeightagePercentage
		if comp.CalculationMethod == models.CalcMethodBestOf && comp.BestOfCount < 1 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("component %s: best_of requires best_of_count >= 1", comp.ComponentCode))
		}
		if comp.CalculationMethod == models.CalcMethodWeightedAverage {
			subTotal := 0.0
			for _, sub := range comp.SubComponents {
				if boolOrDefault(sub.IsActive, true) {
					subTotal += sub.SubWeightagePercentage
				}
			}
			if !weightsSumTo100(subTotal) {
				return appErrors.Clone(appErrors.ErrInvalidWeights, fmt.Sprintf("component %s: sub-component weightages must total 100", comp.ComponentCode))
			}
		}
	}
	if !weightsSumTo100(total) {
		return appErrors.Clone(appErrors.ErrInvalidWeights, fmt.Sprintf("active component weightages total %.2f", total))
	}
	return nil
}

// validateComponentModels re-checks stored components at activation time, so
// a draft that drifted through partial edits cannot go live invalid.
func validateComponentModels(components []models.PatternComponent) error {
	total := 0.0
	for _, comp := range components {
		if comp.IsActive {
			total += comp.WeightagePercentage
		}
	}
	if !weightsSumTo100(total) {
		return appErrors.Clone(appErrors.ErrInvalidWeights, fmt.Sprintf("active component weightages total %.2f", total))
	}
	return nil
}

func weightsSumTo100(total float64) bool {
	return total >= 99.999 && total <= 100.001
}

func buildComponents(payload []ComponentRequest) []models.PatternComponent {
	components := make([]models.PatternComponent, len(payload))
	for i, p := range payload {
		method := p.CalculationMethod
		if method == "" {
			method = models.CalcMethodAverage
		}
		component := models.PatternComponent{
			ComponentCode:              p.ComponentCode,
			ComponentName:              p.ComponentName,
			Description:                p.Description,
			WeightagePercentage:        p.WeightagePercentage,
			DisplayOrder:               p.DisplayOrder,
			VisibleToLearner:           p.VisibleToLearner,
			IsMandatory:                p.IsMandatory,
			CanBeWaived:                p.CanBeWaived,
			WaiverRequiresApproval:     p.WaiverRequiresApproval,
			HasSubComponents:           len(p.SubComponents) > 0,
			CalculationMethod:          method,
			BestOfCount:                p.BestOfCount,
			RequiresScheduledExam:      p.RequiresScheduledExam,
			AllowsContinuousAssessment: p.AllowsContinuousAssessment,
			IsActive:                   boolOrDefault(p.IsActive, true),
		}
		subs := make([]models.PatternSubComponent, len(p.SubComponents))
		for j, sp := range p.SubComponents {
			subs[j] = models.PatternSubComponent{
				SubComponentCode:       sp.SubComponentCode,
				SubComponentName:       sp.SubComponentName,
				Description:            sp.Description,
				SubWeightagePercentage: sp.SubWeightagePercentage,
				InstanceNumber:         sp.InstanceNumber,
				DisplayOrder:           sp.DisplayOrder,
				ScheduledPeriod:        sp.ScheduledPeriod,
				IsActive:               boolOrDefault(sp.IsActive, true),
			}
		}
		component.SubComponents = subs
		components[i] = component
	}
	return components
}

func boolOrDefault(value *bool, fallback bool) bool {
	if value == nil {
		return fallback
	}
	return *value
}
