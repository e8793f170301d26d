package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/exam-office-api/internal/models"
	appErrors "github.com/campushq/exam-office-api/pkg/errors"
	"github.com/campushq/exam-office-api/pkg/export"
)

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportFile is a rendered marks register ready to stream to the client.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the stored internal marks of a course into a
// downloadable register. It reads only persisted calculations; run the marks
// pipeline first for fresh numbers.
type ExportService struct {
	marks   marksStore
	courses courseStore
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService constructs service.
func NewExportService(marks marksStore, courses courseStore, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		marks:   marks,
		courses: courses,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

var registerHeaders = []string{
	"Learner", "Roll Number", "Internal %", "Marks", "Eligible", "Passed", "Remarks",
}

// CourseRegister renders the marks register of one course.
func (s *ExportService) CourseRegister(ctx context.Context, courseID string, format ExportFormat) (*ExportFile, error) {
	if format != FormatCSV && format != FormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %s", format))
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	marks, err := s.marks.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list internal marks")
	}
	learners, err := s.courses.Learners(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course learners")
	}

	dataset := buildRegisterDataset(marks, learners)
	stamp := time.Now().UTC().Format("20060102")

	switch format {
	case FormatCSV:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("internal-marks-%s-%s.csv", course.CourseCode, stamp),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	default:
		title := fmt.Sprintf("Internal Marks Register - %s (%s)", course.CourseName, course.CourseCode)
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportFile{
			Filename:    fmt.Sprintf("internal-marks-%s-%s.pdf", course.CourseCode, stamp),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	}
}

func buildRegisterDataset(marks []models.LearnerInternalMark, learners []models.CourseLearner) export.Dataset {
	names := make(map[string]models.CourseLearner, len(learners))
	for _, l := range learners {
		names[l.LearnerID] = l
	}

	rows := make([]map[string]string, 0, len(marks))
	for _, mark := range marks {
		learner := names[mark.LearnerID]
		name := learner.LearnerName
		if name == "" {
			name = mark.LearnerID
		}
		remarks := ""
		if mark.EligibilityReasons != nil {
			remarks = *mark.EligibilityReasons
		}
		if mark.PassingReasons != nil {
			if remarks != "" {
				remarks += "; "
			}
			remarks += *mark.PassingReasons
		}
		rows = append(rows, map[string]string{
			"Learner":     name,
			"Roll Number": learner.RollNumber,
			"Internal %":  strconv.FormatFloat(mark.FinalPercentage, 'f', 2, 64),
			"Marks":       strconv.FormatFloat(mark.FinalMarks, 'f', 2, 64),
			"Eligible":    yesNo(mark.IsEligibleForExternal),
			"Passed":      yesNo(mark.IsPassed),
			"Remarks":     remarks,
		})
	}
	return export.Dataset{Headers: registerHeaders, Rows: rows}
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
