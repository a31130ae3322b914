package handler

import (
	"context"
	"errors"
	"log"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gopherform/internal/app"
	"gopherform/internal/model"
	"gopherform/internal/transport/http/middleware"
	"gopherform/internal/transport/http/response"
)

type SubmissionService interface {
	Create(ctx context.Context, input app.CreateSubmissionInput) (*model.Submission, error)
	List(ctx context.Context) ([]model.Submission, error)
	Delete(ctx context.Context, id uint) error
	Events(ctx context.Context, id uint) ([]model.SubmissionEvent, error)
}

type SubmissionHandler struct {
	service SubmissionService
}

type submissionEcho struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Message string  `json:"message"`
	Image   *string `json:"image"`
}

func NewSubmissionHandler(service SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{service: service}
}

// List handles GET /api/submissions.
func (h *SubmissionHandler) List(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		h.fail(c, err, "failed to fetch submissions")
		return
	}
	response.JSON(c, http.StatusOK, list)
}

// Create handles POST /api/submit with multipart fields name, email,
// message and an optional file under "image".
func (h *SubmissionHandler) Create(c *gin.Context) {
	image, err := optionalFile(c, "image")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid multipart payload")
		return
	}

	submission, err := h.service.Create(c.Request.Context(), app.CreateSubmissionInput{
		Name:    c.PostForm("name"),
		Email:   c.PostForm("email"),
		Message: c.PostForm("message"),
		Image:   image,
	})
	if err != nil {
		h.fail(c, err, "failed to save submission")
		return
	}

	response.Message(c, "Form submitted successfully", submissionEcho{
		Name:    submission.Name,
		Email:   submission.Email,
		Message: submission.Message,
		Image:   submission.Image,
	})
}

// Delete handles DELETE /api/submissions/:id. An unknown id still answers 200.
func (h *SubmissionHandler) Delete(c *gin.Context) {
	id, ok := submissionID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err, "failed to delete submission")
		return
	}
	response.Message(c, "Submission deleted successfully", nil)
}

// Events handles GET /api/submissions/:id/events.
func (h *SubmissionHandler) Events(c *gin.Context) {
	id, ok := submissionID(c)
	if !ok {
		return
	}

	events, err := h.service.Events(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to fetch submission events")
		return
	}
	response.JSON(c, http.StatusOK, events)
}

func submissionID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, http.StatusBadRequest, "invalid submission id")
		return 0, false
	}
	return uint(id), true
}

func (h *SubmissionHandler) fail(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrNotReady):
		response.Error(c, http.StatusServiceUnavailable, "service not ready")
	default:
		log.Printf("rid=%s method=%s path=%s msg=%q err=%v",
			middleware.RequestIDFrom(c), c.Request.Method, c.Request.URL.Path, message, err)
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, message)
	}
}

// optionalFile returns nil when the field is absent or the body is not
// multipart at all.
func optionalFile(c *gin.Context, field string) (*multipart.FileHeader, error) {
	fh, err := c.FormFile(field)
	if err == nil {
		return fh, nil
	}
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	return nil, err
}
