package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/face-attendance-api/internal/service"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
	"github.com/noah-isme/face-attendance-api/pkg/response"
)

// ClassHandler exposes class management, enrollment and session endpoints.
type ClassHandler struct {
	classes  *service.ClassService
	sessions *service.SessionService
	exports  *service.ExportService
}

// NewClassHandler creates a new handler.
func NewClassHandler(classes *service.ClassService, sessions *service.SessionService, exports *service.ExportService) *ClassHandler {
	return &ClassHandler{classes: classes, sessions: sessions, exports: exports}
}

// Create godoc
// @Summary Create class
// @Description Create a class owned by the calling teacher
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateClassRequest true "Class payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /classes [post]
func (h *ClassHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid class payload"))
		return
	}

	class, err := h.classes.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, class)
}

// List godoc
// @Summary List classes
// @Description List classes visible to the caller
// @Tags Classes
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *ClassHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	classes, err := h.classes.List(c.Request.Context(), claims.UserID, claims.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, classes, nil)
}

// Join godoc
// @Summary Join class
// @Description Enroll the calling student using a class join code
// @Tags Classes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body object true "Join payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /classes/join [post]
func (h *ClassHandler) Join(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "class code is required"))
		return
	}

	class, err := h.classes.Join(c.Request.Context(), claims.UserID, payload.Code)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, class, nil)
}

// OpenSession godoc
// @Summary Open attendance session
// @Description Open a new attendance session for the class, closing any active one
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/sessions [post]
func (h *ClassHandler) OpenSession(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	session, err := h.sessions.Open(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, session)
}

// ActiveSession godoc
// @Summary Active attendance session
// @Description Return the currently active session for the class
// @Tags Sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/sessions/active [get]
func (h *ClassHandler) ActiveSession(c *gin.Context) {
	session, err := h.sessions.Active(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, session, nil)
}

// SessionReport godoc
// @Summary Export session report
// @Description Download the attendance report of a session as CSV or PDF
// @Tags Sessions
// @Produce octet-stream
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Param format query string false "Report format (csv or pdf)" default(csv)
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/report [get]
func (h *ClassHandler) SessionReport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := service.ReportFormat(c.DefaultQuery("format", "csv"))
	file, err := h.exports.SessionReport(c.Request.Context(), claims.UserID, claims.Role, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+file.Filename+`"`)
	c.Data(http.StatusOK, file.ContentType, file.Payload)
}
