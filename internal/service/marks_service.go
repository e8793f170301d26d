package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushq/exam-office-api/internal/assessment"
	"github.com/campushq/exam-office-api/internal/models"
	appErrors "github.com/campushq/exam-office-api/pkg/errors"
	"github.com/campushq/exam-office-api/pkg/jobs"
)

type patternResolver interface {
	Resolve(ctx context.Context, courseID string, on time.Time) (*ResolvedPattern, error)
}

type patternConfigReader interface {
	Components(ctx context.Context, patternID string) ([]models.PatternComponent, error)
	SubComponentsForPattern(ctx context.Context, patternID string) ([]models.PatternSubComponent, error)
}

type ruleReader interface {
	EligibilityRules(ctx context.Context, patternID string) ([]models.EligibilityRule, error)
	PassingRules(ctx context.Context, patternID string) ([]models.PassingRule, error)
}

type marksStore interface {
	Upsert(ctx context.Context, mark *models.LearnerInternalMark) error
	Find(ctx context.Context, learnerID, courseID string) (*models.LearnerInternalMark, error)
	ListByCourse(ctx context.Context, courseID string) ([]models.LearnerInternalMark, error)
}

type courseStore interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	Learners(ctx context.Context, courseID string) ([]models.CourseLearner, error)
}

type attendanceReader interface {
	Summary(ctx context.Context, learnerID, courseID string) (*models.AttendanceSummary, error)
}

type calculationRecorder interface {
	RecordCalculation(eligible, passed bool)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// batchJobType tags queue jobs carrying one learner's recalculation.
const batchJobType = "marks.recalculate"

// SubComponentMarksRequest is one sub-component entry of raw marks.
type SubComponentMarksRequest struct {
	SubComponentID string  `json:"sub_component_id" validate:"required"`
	MarksObtained  float64 `json:"marks_obtained" validate:"gte=0"`
	MaxMarks       float64 `json:"max_marks" validate:"gte=0"`
}

// ComponentMarksRequest carries raw marks for one component: either direct
// marks or sub-component entries.
type ComponentMarksRequest struct {
	ComponentID   string                     `json:"component_id" validate:"required"`
	MarksObtained *float64                   `json:"marks_obtained" validate:"omitempty,gte=0"`
	MaxMarks      *float64                   `json:"max_marks" validate:"omitempty,gte=0"`
	SubComponents []SubComponentMarksRequest `json:"sub_components" validate:"dive"`
}

// CalculateMarksRequest triggers calculation for one learner and course.
type CalculateMarksRequest struct {
	LearnerID  string                  `json:"learner_id" validate:"required"`
	CourseID   string                  `json:"course_id" validate:"required"`
	Components []ComponentMarksRequest `json:"components" validate:"required,dive"`
}

// LearnerMarksRequest is one learner's entry inside a batch payload.
type LearnerMarksRequest struct {
	LearnerID  string                  `json:"learner_id" validate:"required"`
	Components []ComponentMarksRequest `json:"components" validate:"required,dive"`
}

// BatchCalculateRequest triggers calculation for many learners of a course.
type BatchCalculateRequest struct {
	CourseID string                `json:"course_id" validate:"required"`
	Learners []LearnerMarksRequest `json:"learners" validate:"required,dive"`
}

// BatchCalculateResponse reports how a batch was dispatched.
type BatchCalculateResponse struct {
	CourseID string `json:"course_id"`
	Accepted int    `json:"accepted"`
	Rejected int    `json:"rejected"`
}

// CalculationResult combines the three engine verdicts for one learner.
type CalculationResult struct {
	Calculation assessment.MarksCalculation  `json:"calculation"`
	Eligibility assessment.EligibilityResult `json:"eligibility"`
	Passing     assessment.PassingResult     `json:"passing"`
	Source      PatternSource                `json:"pattern_source"`
}

// MarksService drives the calculation pipeline: pattern resolution, engine
// invocation, and persistence of the outcome.
type MarksService struct {
	resolver   patternResolver
	patterns   patternConfigReader
	rules      ruleReader
	marks      marksStore
	courses    courseStore
	attendance attendanceReader
	queue      jobDispatcher
	metrics    calculationRecorder
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewMarksService constructs service. Queue and metrics may be nil; batches
// then run synchronously and runs go uncounted.
func NewMarksService(resolver patternResolver, patterns patternConfigReader, rules ruleReader, marks marksStore, courses courseStore, attendance attendanceReader, queue jobDispatcher, metrics calculationRecorder, validate *validator.Validate, logger *zap.Logger) *MarksService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarksService{
		resolver:   resolver,
		patterns:   patterns,
		rules:      rules,
		marks:      marks,
		courses:    courses,
		attendance: attendance,
		queue:      queue,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
	}
}

// Calculate runs the full pipeline for one learner and persists the result.
func (s *MarksService) Calculate(ctx context.Context, req CalculateMarksRequest) (*CalculationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid marks payload")
	}
	return s.run(ctx, req.LearnerID, req.CourseID, req.Components, true)
}

// Preview runs the full pipeline without persisting, so facilitators can see
// what a set of raw marks would produce.
func (s *MarksService) Preview(ctx context.Context, req CalculateMarksRequest) (*CalculationResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid marks payload")
	}
	return s.run(ctx, req.LearnerID, req.CourseID, req.Components, false)
}

// CalculateBatch dispatches one calculation per learner. With a queue wired
// each learner becomes a background job; without one the batch runs inline
// and the first failure is only logged, not fatal to the rest.
func (s *MarksService) CalculateBatch(ctx context.Context, req BatchCalculateRequest) (*BatchCalculateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	enrolled, err := s.courses.Learners(ctx, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course learners")
	}
	known := make(map[string]struct{}, len(enrolled))
	for _, l := range enrolled {
		known[l.LearnerID] = struct{}{}
	}

	resp := &BatchCalculateResponse{CourseID: req.CourseID}
	for _, learner := range req.Learners {
		if _, ok := known[learner.LearnerID]; !ok {
			s.logger.Warn("skipping learner not enrolled in course",
				zap.String("learner_id", learner.LearnerID),
				zap.String("course_id", req.CourseID))
			resp.Rejected++
			continue
		}
		if s.queue != nil {
			job := jobs.Job{
				ID:   uuid.NewString(),
				Type: batchJobType,
				Payload: batchJobPayload{
					CourseID: req.CourseID,
					Learner:  learner,
				},
			}
			if err := s.queue.Enqueue(job); err != nil {
				return resp, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue recalculation")
			}
		} else {
			if _, err := s.run(ctx, learner.LearnerID, req.CourseID, learner.Components, true); err != nil {
				s.logger.Warn("batch calculation failed for learner",
					zap.String("learner_id", learner.LearnerID),
					zap.String("course_id", req.CourseID),
					zap.Error(err))
				resp.Rejected++
				continue
			}
		}
		resp.Accepted++
	}
	return resp, nil
}

// Get returns the stored calculation for one learner and course.
func (s *MarksService) Get(ctx context.Context, learnerID, courseID string) (*models.LearnerInternalMark, error) {
	mark, err := s.marks.Find(ctx, learnerID, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no calculated marks for learner and course")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load internal marks")
	}
	return mark, nil
}

// ListByCourse returns every stored calculation for a course.
func (s *MarksService) ListByCourse(ctx context.Context, courseID string) ([]models.LearnerInternalMark, error) {
	marks, err := s.marks.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list internal marks")
	}
	return marks, nil
}

type batchJobPayload struct {
	CourseID string
	Learner  LearnerMarksRequest
}

// HandleBatchJob processes one queued learner recalculation. Wire it as the
// queue handler for batchJobType jobs.
func (s *MarksService) HandleBatchJob(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(batchJobPayload)
	if !ok {
		return fmt.Errorf("unexpected payload on job %s", job.ID)
	}
	_, err := s.run(ctx, payload.Learner.LearnerID, payload.CourseID, payload.Learner.Components, true)
	return err
}

func (s *MarksService) run(ctx context.Context, learnerID, courseID string, components []ComponentMarksRequest, persist bool) (*CalculationResult, error) {
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	resolved, err := s.resolver.Resolve(ctx, courseID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	pattern := resolved.Pattern

	patternComponents, err := s.patterns.Components(ctx, pattern.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pattern components")
	}
	subComponents, err := s.patterns.SubComponentsForPattern(ctx, pattern.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sub-components")
	}
	eligibilityRules, err := s.rules.EligibilityRules(ctx, pattern.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load eligibility rules")
	}
	passingRules, err := s.rules.PassingRules(ctx, pattern.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load passing rules")
	}

	var attendancePercentage *float64
	summary, err := s.attendance.Summary(ctx, learnerID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	if summary != nil {
		attendancePercentage = &summary.Percentage
	}

	input := assessment.LearnerAssessmentInput{
		LearnerID:             learnerID,
		CourseID:              courseID,
		CourseInternalMaxMark: course.InternalMaxMark,
		ComponentInputs:       buildEngineInputs(components),
		AttendancePercentage:  attendancePercentage,
	}

	calc := assessment.CalculateInternalMarks(*pattern, patternComponents, subComponents, input)
	eligibility := assessment.CheckEligibility(eligibilityRules, patternComponents, calc, attendancePercentage)
	passing := assessment.CheckPassing(passingRules, patternComponents, calc, course.InternalMaxMark)

	result := &CalculationResult{
		Calculation: calc,
		Eligibility: eligibility,
		Passing:     passing,
		Source:      resolved.Source,
	}
	if s.metrics != nil {
		s.metrics.RecordCalculation(eligibility.IsEligible, passing.IsPassed)
	}

	if persist {
		if err := s.persist(ctx, result); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (s *MarksService) persist(ctx context.Context, result *CalculationResult) error {
	breakdown, err := json.Marshal(result.Calculation.ComponentMarks)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode breakdown")
	}
	mark := &models.LearnerInternalMark{
		LearnerID:             result.Calculation.LearnerID,
		CourseID:              result.Calculation.CourseID,
		PatternID:             result.Calculation.PatternID,
		CourseInternalMaxMark: result.Calculation.CourseInternalMaxMark,
		TotalRawPercentage:    result.Calculation.TotalRawPercentage,
		TotalCalculatedMarks:  result.Calculation.TotalCalculatedMarks,
		TotalAfterRounding:    result.Calculation.TotalAfterRounding,
		IsEligibleForExternal: result.Eligibility.IsEligible,
		EligibilityReasons:    joinReasons(result.Eligibility.FailureReasons),
		IsPassed:              result.Passing.IsPassed,
		PassingReasons:        joinReasons(result.Passing.FailureReasons),
		FinalPercentage:       result.Passing.FinalPercentage,
		FinalMarks:            result.Passing.FinalMarks,
		Breakdown:             breakdown,
	}
	if err := s.marks.Upsert(ctx, mark); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store internal marks")
	}
	return nil
}

func buildEngineInputs(payload []ComponentMarksRequest) []assessment.ComponentInput {
	inputs := make([]assessment.ComponentInput, len(payload))
	for i, p := range payload {
		input := assessment.ComponentInput{ComponentID: p.ComponentID}
		if len(p.SubComponents) > 0 {
			subs := make([]assessment.SubComponentInput, len(p.SubComponents))
			for j, sp := range p.SubComponents {
				subs[j] = assessment.SubComponentInput{
					SubComponentID: sp.SubComponentID,
					MarksObtained:  sp.MarksObtained,
					MaxMarks:       sp.MaxMarks,
				}
			}
			input.SubComponents = subs
		} else if p.MarksObtained != nil && p.MaxMarks != nil {
			input.Direct = &assessment.DirectMarks{
				MarksObtained: *p.MarksObtained,
				MaxMarks:      *p.MaxMarks,
			}
		}
		inputs[i] = input
	}
	return inputs
}

func joinReasons(reasons []string) *string {
	if len(reasons) == 0 {
		return nil
	}
	joined := strings.Join(reasons, "; ")
	return &joined
}
