package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatternHandlerCreateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPatternHandler(nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/patterns", bytes.NewReader([]byte(`not-json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
}

func TestPatternHandlerUpdateInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPatternHandler(nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/patterns/pat-1", bytes.NewReader([]byte(`{`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "pat-1"}}

	handler.Update(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatternHandlerSaveEligibilityRuleInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPatternHandler(nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPut, "/patterns/pat-1/eligibility-rules", bytes.NewReader([]byte(`[]`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "pat-1"}}

	handler.SaveEligibilityRule(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatternHandlerAssociateCourseInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPatternHandler(nil, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/patterns/pat-1/courses", bytes.NewReader([]byte(`not-json`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "pat-1"}}

	handler.AssociateCourse(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
