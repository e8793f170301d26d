package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campushq/exam-office-api/internal/models"
	"github.com/campushq/exam-office-api/internal/service"
	appErrors "github.com/campushq/exam-office-api/pkg/errors"
	"github.com/campushq/exam-office-api/pkg/response"
)

// PatternHandler exposes assessment pattern configuration endpoints.
type PatternHandler struct {
	patterns *service.PatternService
	resolver *service.ResolverService
}

// NewPatternHandler constructs handler.
func NewPatternHandler(patterns *service.PatternService, resolver *service.ResolverService) *PatternHandler {
	return &PatternHandler{patterns: patterns, resolver: resolver}
}

// List godoc
// @Summary List assessment patterns
// @Tags Patterns
// @Produce json
// @Param institutionId query string false "Filter by institution"
// @Param status query string false "Filter by status"
// @Param courseType query string false "Filter by course type applicability"
// @Param activeOnly query bool false "Only active patterns"
// @Success 200 {object} response.Envelope
// @Router /patterns [get]
func (h *PatternHandler) List(c *gin.Context) {
	filter := models.PatternFilter{
		InstitutionID: c.Query("institutionId"),
		Status:        c.Query("status"),
		CourseType:    c.Query("courseType"),
		ActiveOnly:    c.Query("activeOnly") == "true",
	}
	patterns, err := h.patterns.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, patterns, nil)
}

// Get godoc
// @Summary Get an assessment pattern with components
// @Tags Patterns
// @Produce json
// @Param id path string true "Pattern ID"
// @Success 200 {object} response.Envelope
// @Router /patterns/{id} [get]
func (h *PatternHandler) Get(c *gin.Context) {
	pattern, err := h.patterns.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pattern, nil)
}

// Create godoc
// @Summary Create an assessment pattern
// @Tags Patterns
// @Accept json
// @Produce json
// @Param payload body service.CreatePatternRequest true "Pattern payload"
// @Success 201 {object} response.Envelope
// @Router /patterns [post]
func (h *PatternHandler) Create(c *gin.Context) {
	var req service.CreatePatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	pattern, err := h.patterns.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pattern)
}

// Update godoc
// @Summary Update an assessment pattern
// @Tags Patterns
// @Accept json
// @Produce json
// @Param id path string true "Pattern ID"
// @Param payload body service.UpdatePatternRequest true "Pattern payload"
// @Success 200 {object} response.Envelope
// @Router /patterns/{id} [put]
func (h *PatternHandler) Update(c *gin.Context) {
	var req service.UpdatePatternRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	pattern, err := h.patterns.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateResolutions(c)
	response.JSON(c, http.StatusOK, pattern, nil)
}

// Activate godoc
// @Summary Activate an assessment pattern
// @Tags Patterns
// @Produce json
// @Param id path string true "Pattern ID"
// @Success 200 {object} response.Envelope
// @Router /patterns/{id}/activate [post]
func (h *PatternHandler) Activate(c *gin.Context) {
	pattern, err := h.patterns.Activate(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateResolutions(c)
	response.JSON(c, http.StatusOK, pattern, nil)
}

// Archive godoc
// @Summary Archive an assessment pattern
// @Tags Patterns
// @Produce json
// @Param id path string true "Pattern ID"
// @Success 200 {object} response.Envelope
// @Router /patterns/{id}/archive [post]
func (h *PatternHandler) Archive(c *gin.Context) {
	pattern, err := h.patterns.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateResolutions(c)
	response.JSON(c, http.StatusOK, pattern, nil)
}

// EligibilityRules godoc
// @Summary List eligibility rules of a pattern
// @Tags Rules
// @Produce json
// @Param id path string true "Pattern ID"
// @Success 200 {object} response.Envelope
// @Router /patterns/{id}/eligibility-rules [get]
func (h *PatternHandler) EligibilityRules(c *gin.Context) {
	rules, err := h.patterns.EligibilityRules(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// SaveEligibilityRule godoc
// @Summary Create or update an eligibility rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param id path string true "Pattern ID"
// @Param payload body service.EligibilityRuleRequest true "Rule payload"
// @Success 200 {object} response.Envelope
// @Router /patterns/{id}/eligibility-rules [put]
func (h *PatternHandler) SaveEligibilityRule(c *gin.Context) {
	var req service.EligibilityRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rule, err := h.patterns.SaveEligibilityRule(c.Request.Context(), c.Param("id"), c.Query("ruleId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// PassingRules godoc
// @Summary List passing rules of a pattern
// @Tags Rules
// @Produce json
// @Param id path string true "Pattern ID"
// @Success 200 {object} response.Envelope
// @Router /patterns/{id}/passing-rules [get]
func (h *PatternHandler) PassingRules(c *gin.Context) {
	rules, err := h.patterns.PassingRules(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rules, nil)
}

// SavePassingRule godoc
// @Summary Create or update a passing rule
// @Tags Rules
// @Accept json
// @Produce json
// @Param id path string true "Pattern ID"
// @Param payload body service.PassingRuleRequest true "Rule payload"
// @Success 200 {object} response.Envelope
// @Router /patterns/{id}/passing-rules [put]
func (h *PatternHandler) SavePassingRule(c *gin.Context) {
	var req service.PassingRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rule, err := h.patterns.SavePassingRule(c.Request.Context(), c.Param("id"), c.Query("ruleId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rule, nil)
}

// CourseAssociations godoc
// @Summary List course bindings of a pattern
// @Tags Associations
// @Produce json
// @Param id path string true "Pattern ID"
// @Success 200 {object} response.Envelope
// @Router /patterns/{id}/courses [get]
func (h *PatternHandler) CourseAssociations(c *gin.Context) {
	associations, err := h.patterns.CourseAssociations(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, associations, nil)
}

// AssociateCourse godoc
// @Summary Bind a pattern to a course
// @Tags Associations
// @Accept json
// @Produce json
// @Param id path string true "Pattern ID"
// @Param payload body service.AssociationRequest true "Association payload"
// @Success 201 {object} response.Envelope
// @Router /patterns/{id}/courses [post]
func (h *PatternHandler) AssociateCourse(c *gin.Context) {
	var req service.AssociationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assoc, err := h.patterns.AssociateCourse(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateCourse(c, req.TargetID)
	response.Created(c, assoc)
}

// ProgramAssociations godoc
// @Summary List program bindings of a pattern
// @Tags Associations
// @Produce json
// @Param id path string true "Pattern ID"
// @Success 200 {object} response.Envelope
// @Router /patterns/{id}/programs [get]
func (h *PatternHandler) ProgramAssociations(c *gin.Context) {
	associations, err := h.patterns.ProgramAssociations(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, associations, nil)
}

// AssociateProgram godoc
// @Summary Bind a pattern to a program
// @Tags Associations
// @Accept json
// @Produce json
// @Param id path string true "Pattern ID"
// @Param payload body service.AssociationRequest true "Association payload"
// @Success 201 {object} response.Envelope
// @Router /patterns/{id}/programs [post]
func (h *PatternHandler) AssociateProgram(c *gin.Context) {
	var req service.AssociationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assoc, err := h.patterns.AssociateProgram(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateResolutions(c)
	response.Created(c, assoc)
}

// RemoveCourseAssociation godoc
// @Summary Retire a course binding
// @Tags Associations
// @Produce json
// @Param id path string true "Pattern ID"
// @Param associationId path string true "Association ID"
// @Success 200 {object} response.Envelope
// @Router /patterns/{id}/courses/{associationId} [delete]
func (h *PatternHandler) RemoveCourseAssociation(c *gin.Context) {
	if err := h.patterns.RemoveCourseAssociation(c.Request.Context(), c.Param("associationId")); err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateResolutions(c)
	response.JSON(c, http.StatusOK, gin.H{"removed": true}, nil)
}

// DeleteEligibilityRule godoc
// @Summary Delete an eligibility rule
// @Tags Rules
// @Produce json
// @Param id path string true "Pattern ID"
// @Param ruleId path string true "Rule ID"
// @Success 200 {object} response.Envelope
// @Router /patterns/{id}/eligibility-rules/{ruleId} [delete]
func (h *PatternHandler) DeleteEligibilityRule(c *gin.Context) {
	if err := h.patterns.DeleteEligibilityRule(c.Request.Context(), c.Param("ruleId")); err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateResolutions(c)
	response.JSON(c, http.StatusOK, gin.H{"deleted": true}, nil)
}

// DeletePassingRule godoc
// @Summary Delete a passing rule
// @Tags Rules
// @Produce json
// @Param id path string true "Pattern ID"
// @Param ruleId path string true "Rule ID"
// @Success 200 {object} response.Envelope
// @Router /patterns/{id}/passing-rules/{ruleId} [delete]
func (h *PatternHandler) DeletePassingRule(c *gin.Context) {
	if err := h.patterns.DeletePassingRule(c.Request.Context(), c.Param("ruleId")); err != nil {
		response.Error(c, err)
		return
	}
	h.invalidateResolutions(c)
	response.JSON(c, http.StatusOK, gin.H{"deleted": true}, nil)
}

// Resolve godoc
// @Summary Resolve the applicable pattern for a course
// @Tags Patterns
// @Produce json
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Router /courses/{courseId}/pattern [get]
func (h *PatternHandler) Resolve(c *gin.Context) {
	resolved, err := h.resolver.Resolve(c.Request.Context(), c.Param("courseId"), time.Now().UTC())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, resolved, nil)
}

func (h *PatternHandler) invalidateResolutions(c *gin.Context) {
	h.invalidateCourse(c, "")
}

func (h *PatternHandler) invalidateCourse(c *gin.Context, courseID string) {
	if h.resolver == nil {
		return
	}
	// Configuration changed; cached resolutions may now be stale.
	_ = h.resolver.Invalidate(c.Request.Context(), courseID)
}
