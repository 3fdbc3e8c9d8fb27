package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lms-backend/internal/http/response"
	"github.com/yungbote/lms-backend/internal/services"
)

type CategoryHandler struct {
	categories services.CategoryService
}

func NewCategoryHandler(categories services.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

type categoryRequest struct {
	Name        string  `json:"name" binding:"required,max=100"`
	Description *string `json:"description"`
}

type categoryUsersRequest struct {
	UserIDs []string `json:"userIds" binding:"required,min=1"`
}

// GET /categories
func (h *CategoryHandler) List(c *gin.Context) {
	out, err := h.categories.List(c.Request.Context())
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"categories": out})
}

// POST /categories
func (h *CategoryHandler) Create(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	cat, err := h.categories.Create(c.Request.Context(), services.CategoryInput{Name: req.Name, Description: req.Description})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"category": cat})
}

// PUT /categories/:id
func (h *CategoryHandler) Update(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	cat, err := h.categories.Update(c.Request.Context(), c.Param("id"), services.CategoryInput{Name: req.Name, Description: req.Description})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"category": cat})
}

// DELETE /categories/:id
func (h *CategoryHandler) Delete(c *gin.Context) {
	if err := h.categories.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /categories/:id/users
// Partial failures answer 207 with per-user errors; successful assignments stay.
func (h *CategoryHandler) AssignUsers(c *gin.Context) {
	var req categoryUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	res, err := h.categories.AssignToUsers(c.Request.Context(), c.Param("id"), req.UserIDs)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "succeeded": res.Succeeded, "failedCount": res.Failed})
}

// DELETE /categories/:id/users
func (h *CategoryHandler) UnassignUsers(c *gin.Context) {
	var req categoryUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	n, err := h.categories.UnassignFromUsers(c.Request.Context(), c.Param("id"), req.UserIDs)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"removed": n})
}
