package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushq/exam-office-api/internal/service"
	appErrors "github.com/campushq/exam-office-api/pkg/errors"
	"github.com/campushq/exam-office-api/pkg/response"
)

// MarksHandler exposes the internal marks calculation pipeline.
type MarksHandler struct {
	marks *service.MarksService
}

// NewMarksHandler constructs handler.
func NewMarksHandler(marks *service.MarksService) *MarksHandler {
	return &MarksHandler{marks: marks}
}

// Calculate godoc
// @Summary Calculate and store internal marks for one learner
// @Tags Marks
// @Accept json
// @Produce json
// @Param payload body service.CalculateMarksRequest true "Raw marks payload"
// @Success 200 {object} response.Envelope
// @Router /marks/calculate [post]
func (h *MarksHandler) Calculate(c *gin.Context) {
	var req service.CalculateMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.marks.Calculate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Preview godoc
// @Summary Run the calculation without storing the result
// @Tags Marks
// @Accept json
// @Produce json
// @Param payload body service.CalculateMarksRequest true "Raw marks payload"
// @Success 200 {object} response.Envelope
// @Router /marks/preview [post]
func (h *MarksHandler) Preview(c *gin.Context) {
	var req service.CalculateMarksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.marks.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// CalculateBatch godoc
// @Summary Calculate internal marks for many learners of a course
// @Tags Marks
// @Accept json
// @Produce json
// @Param payload body service.BatchCalculateRequest true "Batch payload"
// @Success 202 {object} response.Envelope
// @Router /marks/calculate-batch [post]
func (h *MarksHandler) CalculateBatch(c *gin.Context) {
	var req service.BatchCalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	resp, err := h.marks.CalculateBatch(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, resp, nil)
}

// Get godoc
// @Summary Get stored internal marks for a learner and course
// @Tags Marks
// @Produce json
// @Param learnerId path string true "Learner ID"
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /marks/learners/{learnerId}/courses/{courseId} [get]
func (h *MarksHandler) Get(c *gin.Context) {
	mark, err := h.marks.Get(c.Request.Context(), c.Param("learnerId"), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, mark, nil)
}

// ListByCourse godoc
// @Summary List stored internal marks of a course
// @Tags Marks
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /marks/courses/{courseId} [get]
func (h *MarksHandler) ListByCourse(c *gin.Context) {
	marks, err := h.marks.ListByCourse(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, marks, nil)
}
