package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lms-backend/internal/http/response"
	"github.com/yungbote/lms-backend/internal/services"
)

type CourseHandler struct {
	courses    services.CourseService
	categories services.CategoryService
}

func NewCourseHandler(courses services.CourseService, categories services.CategoryService) *CourseHandler {
	return &CourseHandler{courses: courses, categories: categories}
}

type createCourseRequest struct {
	Title       string   `json:"title" binding:"required,max=200"`
	Description string   `json:"description"`
	TeacherID   string   `json:"teacherId"`
	Categories  []string `json:"categories"`
}

type updateCourseRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
	TeacherID   *string `json:"teacherId"`
}

type courseCategoriesRequest struct {
	CategoryIDs []string `json:"categoryIds"`
}

// GET /courses?search=&teacherId=&mine=true&take=&skip=
func (h *CourseHandler) List(c *gin.Context) {
	if c.Query("mine") == "true" {
		out, err := h.courses.TeacherCourses(c.Request.Context())
		if err != nil {
			response.RespondError(c, err)
			return
		}
		response.RespondOK(c, gin.H{"courses": out})
		return
	}
	page, err := pageFromQuery(c)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	out, err := h.courses.List(c.Request.Context(), services.CourseFilter{
		Search:    c.Query("search"),
		TeacherID: c.Query("teacherId"),
		Page:      page,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"courses": out})
}

// GET /courses/:id
func (h *CourseHandler) Get(c *gin.Context) {
	out, err := h.courses.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": out})
}

// POST /courses
func (h *CourseHandler) Create(c *gin.Context) {
	var req createCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	course, err := h.courses.Create(c.Request.Context(), services.CourseInput{
		Title:       req.Title,
		Description: req.Description,
		TeacherID:   req.TeacherID,
		Categories:  req.Categories,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"course": course})
}

// PUT /courses/:id
func (h *CourseHandler) Update(c *gin.Context) {
	var req updateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	course, err := h.courses.Update(c.Request.Context(), c.Param("id"), services.CourseUpdate{
		Title:       req.Title,
		Description: req.Description,
		TeacherID:   req.TeacherID,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}

// DELETE /courses/:id
func (h *CourseHandler) Delete(c *gin.Context) {
	if err := h.courses.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /courses/:id/participants
func (h *CourseHandler) Participants(c *gin.Context) {
	out, err := h.courses.Participants(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"participants": out})
}

// PUT /courses/:id/categories
func (h *CourseHandler) SetCategories(c *gin.Context) {
	var req courseCategoriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	course, err := h.categories.SetCourseCategories(c.Request.Context(), c.Param("id"), req.CategoryIDs)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"course": course})
}
