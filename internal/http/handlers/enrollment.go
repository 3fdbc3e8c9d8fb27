package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/http/response"
	"github.com/yungbote/lms-backend/internal/services"
)

type EnrollmentHandler struct {
	enrollments services.EnrollmentService
	progress    services.ProgressService
}

func NewEnrollmentHandler(enrollments services.EnrollmentService, progress services.ProgressService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, progress: progress}
}

type markProgressRequest struct {
	Status string `json:"status" binding:"required,oneof=read in_progress completed"`
}

// POST /courses/:id/enroll
// 201 on a new enrollment, 200 when the caller was already enrolled.
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	e, created, err := h.enrollments.Enroll(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"enrollment": e})
}

// DELETE /courses/:id/enroll
func (h *EnrollmentHandler) Unenroll(c *gin.Context) {
	if err := h.enrollments.Unenroll(c.Request.Context(), c.Param("id")); err != nil {
		response.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /enrollments
func (h *EnrollmentHandler) Mine(c *gin.Context) {
	out, err := h.enrollments.MyEnrollments(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"enrollments": out})
}

// POST /materials/:id/progress
func (h *EnrollmentHandler) MarkProgress(c *gin.Context) {
	var req markProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	p, err := h.progress.Mark(c.Request.Context(), c.Param("id"), types.ProgressStatus(req.Status))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": p})
}

// GET /courses/:id/progress
func (h *EnrollmentHandler) CourseProgress(c *gin.Context) {
	out, err := h.progress.CourseProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"progress": out})
}
