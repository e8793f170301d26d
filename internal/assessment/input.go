package assessment

// LearnerAssessmentInput carries one learner's raw marks for one course,
// together with the course's configured internal max mark. Inputs are
// transient; the engine never stores them.
type LearnerAssessmentInput struct {
	LearnerID             string           `json:"learner_id"`
	CourseID              string           `json:"course_id"`
	CourseInternalMaxMark float64          `json:"course_internal_max_mark"`
	ComponentInputs       []ComponentInput `json:"component_inputs"`
	AttendancePercentage  *float64         `json:"attendance_percentage,omitempty"`
}

// ComponentInput holds the marks entered for a single component. A component
// either carries direct marks or a list of sub-component entries; which branch
// applies is resolved once per component against the pattern configuration.
type ComponentInput struct {
	ComponentID   string              `json:"component_id"`
	Direct        *DirectMarks        `json:"direct,omitempty"`
	SubComponents []SubComponentInput `json:"sub_components,omitempty"`
}

// DirectMarks is the input shape for components without sub-components.
type DirectMarks struct {
	MarksObtained float64 `json:"marks_obtained"`
	MaxMarks      float64 `json:"max_marks"`
}

// SubComponentInput is one sub-component entry (e.g. one sitting of a test).
type SubComponentInput struct {
	SubComponentID string  `json:"sub_component_id"`
	MarksObtained  float64 `json:"marks_obtained"`
	MaxMarks       float64 `json:"max_marks"`
}

func (ci ComponentInput) findSubInput(subComponentID string) (SubComponentInput, bool) {
	for _, si := range ci.SubComponents {
		if si.SubComponentID == subComponentID {
			return si, true
		}
	}
	return SubComponentInput{}, false
}
