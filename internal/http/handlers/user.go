package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/http/response"
	"github.com/yungbote/lms-backend/internal/services"
)

// UserHandler serves the admin user management routes.
type UserHandler struct {
	users      services.UserService
	categories services.CategoryService
}

func NewUserHandler(users services.UserService, categories services.CategoryService) *UserHandler {
	return &UserHandler{users: users, categories: categories}
}

type createUserRequest struct {
	Name       string   `json:"name" binding:"required,max=200"`
	Email      string   `json:"email" binding:"required,email"`
	Password   string   `json:"password" binding:"required,min=6"`
	Role       string   `json:"role" binding:"omitempty,oneof=admin teacher student"`
	Provinsi   string   `json:"provinsi"`
	Categories []string `json:"categories"`
}

type updateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=1,max=200"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=6"`
	Role     *string `json:"role" binding:"omitempty,oneof=admin teacher student"`
	Provinsi *string `json:"provinsi"`
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

type userCategoriesRequest struct {
	CategoryIDs []string `json:"categoryIds"`
}

// GET /admin/users?search=&role=&take=&skip=
func (h *UserHandler) List(c *gin.Context) {
	page, err := pageFromQuery(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	users, total, err := h.users.List(c.Request.Context(), services.UserFilter{
		Search: c.Query("search"),
		Role:   types.Role(c.Query("role")),
		Page:   page,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"users": users, "total": total})
}

// GET /admin/users/:id
func (h *UserHandler) Get(c *gin.Context) {
	u, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": u})
}

// POST /admin/users
func (h *UserHandler) Create(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	u, err := h.users.Create(c.Request.Context(), services.CreateUserInput{
		Name:       req.Name,
		Email:      req.Email,
		Password:   req.Password,
		Role:       types.Role(req.Role),
		Provinsi:   req.Provinsi,
		Categories: req.Categories,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"user": u})
}

// PUT /admin/users/:id
func (h *UserHandler) Update(c *gin.Context) {
	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	in := services.UpdateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Provinsi: req.Provinsi,
	}
	if req.Role != nil {
		role := types.Role(*req.Role)
		in.Role = &role
	}
	u, err := h.users.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": u})
}

// DELETE /admin/users/:id
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /admin/users  body: {"ids": [...]}
func (h *UserHandler) BulkDelete(c *gin.Context) {
	var req bulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	n, err := h.users.BulkDelete(c.Request.Context(), req.IDs)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": n})
}

// PUT /admin/users/:id/categories
func (h *UserHandler) SetCategories(c *gin.Context) {
	var req userCategoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	if err := h.categories.SetUserCategories(c.Request.Context(), c.Param("id"), req.CategoryIDs); err != nil {
		response.RespondError(c, err)
		return
	}
	u, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"user": u})
}
