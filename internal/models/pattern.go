package models

import "time"

// CourseTypeApplicability scopes a pattern to a kind of course.
type CourseTypeApplicability string

const (
	CourseTypeTheory           CourseTypeApplicability = "theory"
	CourseTypePractical        CourseTypeApplicability = "practical"
	CourseTypeProject          CourseTypeApplicability = "project"
	CourseTypeTheoryPractical  CourseTypeApplicability = "theory_practical"
	CourseTypeApplicabilityAll CourseTypeApplicability = "all"
)

// ProgramTypeApplicability scopes a pattern to a program level.
type ProgramTypeApplicability string

const (
	ProgramTypeUG               ProgramTypeApplicability = "ug"
	ProgramTypePG               ProgramTypeApplicability = "pg"
	ProgramTypeDiploma          ProgramTypeApplicability = "diploma"
	ProgramTypeCertificate      ProgramTypeApplicability = "certificate"
	ProgramTypeApplicabilityAll ProgramTypeApplicability = "all"
)

// ProgramCategoryApplicability scopes a pattern to a program category.
type ProgramCategoryApplicability string

const (
	ProgramCategoryArts             ProgramCategoryApplicability = "arts"
	ProgramCategoryScience          ProgramCategoryApplicability = "science"
	ProgramCategorySkillBased       ProgramCategoryApplicability = "skill_based"
	ProgramCategoryApplicabilityAll ProgramCategoryApplicability = "all"
)

// PatternStatus tracks the configuration lifecycle of a pattern.
type PatternStatus string

const (
	PatternStatusDraft    PatternStatus = "draft"
	PatternStatusActive   PatternStatus = "active"
	PatternStatusArchived PatternStatus = "archived"
)

// AssessmentFrequency describes how often assessments under a pattern run.
type AssessmentFrequency string

const (
	FrequencyMonthly  AssessmentFrequency = "monthly"
	FrequencyPeriodic AssessmentFrequency = "periodic"
	FrequencySemester AssessmentFrequency = "semester"
	FrequencyAnnual   AssessmentFrequency = "annual"
)

// CalculationMethod decides how sub-component percentages reduce to one value.
type CalculationMethod string

const (
	CalcMethodSum             CalculationMethod = "sum"
	CalcMethodAverage         CalculationMethod = "average"
	CalcMethodBestOf          CalculationMethod = "best_of"
	CalcMethodWeightedAverage CalculationMethod = "weighted_average"
)

// RoundingMethod selects how calculated marks are rounded.
type RoundingMethod string

const (
	RoundingFloor RoundingMethod = "floor"
	RoundingCeil  RoundingMethod = "ceil"
	RoundingRound RoundingMethod = "round"
	RoundingNone  RoundingMethod = "none"
)

// Pattern is a versioned internal-assessment configuration for a scope of
// courses and programs. Exactly one pattern applies to a given course at
// evaluation time; resolution precedence lives in the resolver service.
type Pattern struct {
	ID             string  `db:"id" json:"id"`
	InstitutionID  string  `db:"institution_id" json:"institution_id"`
	RegulationCode *string `db:"regulation_code" json:"regulation_code,omitempty"`

	PatternCode string  `db:"pattern_code" json:"pattern_code"`
	PatternName string  `db:"pattern_name" json:"pattern_name"`
	Description *string `db:"description" json:"description,omitempty"`

	CourseTypeApplicability      CourseTypeApplicability      `db:"course_type_applicability" json:"course_type_applicability"`
	ProgramTypeApplicability     ProgramTypeApplicability     `db:"program_type_applicability" json:"program_type_applicability"`
	ProgramCategoryApplicability ProgramCategoryApplicability `db:"program_category_applicability" json:"program_category_applicability"`

	AssessmentFrequency AssessmentFrequency `db:"assessment_frequency" json:"assessment_frequency"`
	PeriodsPerSemester  *int                `db:"periods_per_semester" json:"periods_per_semester,omitempty"`

	WefDate       time.Time `db:"wef_date" json:"wef_date"`
	WefBatchCode  *string   `db:"wef_batch_code" json:"wef_batch_code,omitempty"`
	VersionNumber int       `db:"version_number" json:"version_number"`

	RoundingMethod   RoundingMethod `db:"rounding_method" json:"rounding_method"`
	DecimalPrecision int            `db:"decimal_precision" json:"decimal_precision"`

	Status    PatternStatus `db:"status" json:"status"`
	IsDefault bool          `db:"is_default" json:"is_default"`
	IsActive  bool          `db:"is_active" json:"is_active"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	Components []PatternComponent `json:"components,omitempty"`
}

// PatternComponent is one gradable element of a pattern. Components carry a
// weightage percentage only; actual marks are projected from the course's
// internal max mark at calculation time.
type PatternComponent struct {
	ID        string `db:"id" json:"id"`
	PatternID string `db:"pattern_id" json:"pattern_id"`

	ComponentCode string  `db:"component_code" json:"component_code"`
	ComponentName string  `db:"component_name" json:"component_name"`
	Description   *string `db:"description" json:"description,omitempty"`

	WeightagePercentage float64 `db:"weightage_percentage" json:"weightage_percentage"`

	DisplayOrder     int  `db:"display_order" json:"display_order"`
	VisibleToLearner bool `db:"visible_to_learner" json:"visible_to_learner"`

	IsMandatory            bool `db:"is_mandatory" json:"is_mandatory"`
	CanBeWaived            bool `db:"can_be_waived" json:"can_be_waived"`
	WaiverRequiresApproval bool `db:"waiver_requires_approval" json:"waiver_requires_approval"`

	HasSubComponents  bool              `db:"has_sub_components" json:"has_sub_components"`
	CalculationMethod CalculationMethod `db:"calculation_method" json:"calculation_method"`
	BestOfCount       int               `db:"best_of_count" json:"best_of_count"`

	RequiresScheduledExam      bool `db:"requires_scheduled_exam" json:"requires_scheduled_exam"`
	AllowsContinuousAssessment bool `db:"allows_continuous_assessment" json:"allows_continuous_assessment"`

	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	SubComponents []PatternSubComponent `json:"sub_components,omitempty"`
}

// PatternSubComponent is a repeated assessment instance under a component,
// e.g. Test 1 / Test 2 / Test 3 feeding a best-of reduction.
type PatternSubComponent struct {
	ID          string `db:"id" json:"id"`
	ComponentID string `db:"component_id" json:"component_id"`

	SubComponentCode string  `db:"sub_component_code" json:"sub_component_code"`
	SubComponentName string  `db:"sub_component_name" json:"sub_component_name"`
	Description      *string `db:"description" json:"description,omitempty"`

	SubWeightagePercentage float64 `db:"sub_weightage_percentage" json:"sub_weightage_percentage"`
	InstanceNumber         int     `db:"instance_number" json:"instance_number"`
	DisplayOrder           int     `db:"display_order" json:"display_order"`
	ScheduledPeriod        *int    `db:"scheduled_period" json:"scheduled_period,omitempty"`

	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PatternFilter narrows pattern listings.
type PatternFilter struct {
	InstitutionID string
	Status        string
	CourseType    string
	ActiveOnly    bool
}
