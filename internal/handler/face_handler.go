package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/face-attendance-api/internal/service"
	appErrors "github.com/noah-isme/face-attendance-api/pkg/errors"
	"github.com/noah-isme/face-attendance-api/pkg/response"
)

// maxImageSize caps uploaded face images at 8 MiB.
const maxImageSize = 8 << 20

// FaceHandler exposes enrollment and the face update request workflow.
type FaceHandler struct {
	faces    *service.FaceService
	requests *service.FaceRequestService
}

// NewFaceHandler creates a new handler.
func NewFaceHandler(faces *service.FaceService, requests *service.FaceRequestService) *FaceHandler {
	return &FaceHandler{faces: faces, requests: requests}
}

// Enroll godoc
// @Summary Register face
// @Description Extract and store a face embedding from the uploaded image
// @Tags Face
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param image formData file true "Face image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /face/register [post]
func (h *FaceHandler) Enroll(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
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

	if err := h.faces.Enroll(c.Request.Context(), claims.UserID, file); err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"message": "face registered successfully"}, nil)
}

// RequestUpdate godoc
// @Summary Request face update
// @Description File a request to replace the stored face embedding
// @Tags Face
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateFaceRequestRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /face/update-request [post]
func (h *FaceHandler) RequestUpdate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateFaceRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}

	created, err := h.requests.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, created)
}

// UpdateStatus godoc
// @Summary Face update request status
// @Description Return the caller's most recent face update request
// @Tags Face
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /face/update-status [get]
func (h *FaceHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	latest, err := h.requests.Status(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if latest == nil {
		response.JSON(c, http.StatusOK, gin.H{"status": "none"}, nil)
		return
	}

	response.JSON(c, http.StatusOK, latest, nil)
}
