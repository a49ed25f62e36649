package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/face-attendance-api/internal/models"
	"github.com/noah-isme/face-attendance-api/internal/service"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
	"github.com/noah-isme/face-attendance-api/pkg/response"
)

// AttendanceHandler exposes face-verified attendance marking and student
// history endpoints.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

// Mark godoc
// @Summary Mark attendance
// @Description Verify the uploaded face image and mark the caller present in the session
// @Tags Attendance
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param session_id formData string true "Attendance session ID"
// @Param image formData file true "Face image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /attendance/mark [post]
func (h *AttendanceHandler) Mark(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	sessionID := c.PostForm("session_id")
	if sessionID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "session_id is required"))
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "image file is required"))
		return
	}
	defer file.Close()
	if header.Size > maxImageSize {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "image exceeds the 8MB limit"))
		return
	}

	result, err := h.attendance.Mark(c.Request.Context(), claims.UserID, sessionID, file)
	if err != nil {
		response.Error(c, err)
		return
	}

	status := http.StatusCreated
	if result.Status == models.MarkStatusAlreadyMarked {
		status = http.StatusOK
	}
	response.JSON(c, status, result, nil)
}

// History godoc
// @Summary Attendance history
// @Description List the caller's attendance records, newest first
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /attendance/history [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	rows, err := h.attendance.History(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if rows == nil {
		rows = []models.AttendanceHistoryRow{}
	}

	response.JSON(c, http.StatusOK, rows, nil)
}

// Stats godoc
// @Summary Attendance statistics
// @Description Summarise the caller's attendance across enrolled classes
// @Tags Attendance
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /attendance/stats [get]
func (h *AttendanceHandler) Stats(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	stats, err := h.attendance.Stats(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, nil)
}
