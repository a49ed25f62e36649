package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/face-attendance-api/internal/models"
	"github.com/noah-isme/face-attendance-api/internal/service"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
	"github.com/noah-isme/face-attendance-api/pkg/response"
)

// AdminHandler bundles the admin-only endpoints: the face update review
// queue, user management and platform statistics.
type AdminHandler struct {
	requests *service.FaceRequestService
	users    *service.UserService
	auth     *service.AuthService
}

// NewAdminHandler creates a new handler.
func NewAdminHandler(requests *service.FaceRequestService, users *service.UserService, auth *service.AuthService) *AdminHandler {
	return &AdminHandler{requests: requests, users: users, auth: auth}
}

// ListFaceRequests godoc
// @Summary List face update requests
// @Description List face update requests, optionally filtered by status
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param status query string false "Filter by status (pending, approved, denied)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/face-requests [get]
func (h *AdminHandler) ListFaceRequests(c *gin.Context) {
	rows, err := h.requests.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if rows == nil {
		rows = []models.FaceUpdateRequestDetail{}
	}

	response.JSON(c, http.StatusOK, rows, nil)
}

// ApproveFaceRequest godoc
// @Summary Approve face update request
// @Description Approve a pending request, granting a single-use re-enrollment permission
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/face-requests/{id}/approve [post]
func (h *AdminHandler) ApproveFaceRequest(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	reviewed, err := h.requests.Approve(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reviewed, nil)
}

// DenyFaceRequest godoc
// @Summary Deny face update request
// @Description Deny a pending request, leaving the permission flag untouched
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/face-requests/{id}/deny [post]
func (h *AdminHandler) DenyFaceRequest(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	reviewed, err := h.requests.Deny(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, reviewed, nil)
}

// ListUsers godoc
// @Summary List users
// @Description List user accounts with optional role and active filters
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param role query string false "Filter by role"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	filter := models.UserFilter{}
	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filter.Role = &r
	}
	if active := c.Query("active"); active != "" {
		parsed, err := strconv.ParseBool(active)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "active must be a boolean"))
			return
		}
		filter.Active = &parsed
	}
	filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	filter.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))

	users, pagination, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, users, pagination)
}

// CreateUser godoc
// @Summary Create user
// @Description Create an account with an explicit role
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.RegisterRequest true "Registration payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/users [post]
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}

	info, err := h.auth.Register(c.Request.Context(), req, true)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, info)
}

// UpdateUser godoc
// @Summary Update user
// @Description Update account fields; absent fields are left untouched
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param payload body service.UpdateUserRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/users/{id} [put]
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	var req service.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid update payload"))
		return
	}

	info, err := h.users.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, info, nil)
}

// DeleteUser godoc
// @Summary Delete user
// @Description Deactivate an account; attendance history is preserved
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// Stats godoc
// @Summary Platform statistics
// @Description Return platform-wide counters for the admin dashboard
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.users.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, stats, nil)
}
