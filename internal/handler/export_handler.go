package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/campushq/exam-office-api/internal/service"
	"github.com/campushq/exam-office-api/pkg/response"
)

// ExportHandler streams marks registers as CSV or PDF downloads.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// CourseRegister godoc
// @Summary Download the internal marks register of a course
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param courseId path string true "Course ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /exports/courses/{courseId}/marks [get]
func (h *ExportHandler) CourseRegister(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	file, err := h.exports.CourseRegister(c.Request.Context(), c.Param("courseId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	c.Data(200, file.ContentType, file.Data)
}
