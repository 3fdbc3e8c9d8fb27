package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lms-backend/internal/http/response"
	"github.com/yungbote/lms-backend/internal/platform/apierr"
	"github.com/yungbote/lms-backend/internal/services"
)

type MaterialHandler struct {
	materials services.MaterialService
}

func NewMaterialHandler(materials services.MaterialService) *MaterialHandler {
	return &MaterialHandler{materials: materials}
}

type createMaterialRequest struct {
	Title    string                  `json:"title" binding:"required,max=200"`
	Type     string                  `json:"type" binding:"required,oneof=pdf markdown text video-link"`
	Content  *string                 `json:"content"`
	Order    *int                    `json:"order" binding:"omitempty,gte=0"`
	Sections []services.SectionInput `json:"sections"`
}

type updateMaterialRequest struct {
	Title    *string                  `json:"title" binding:"omitempty,min=1,max=200"`
	Content  *string                  `json:"content"`
	Order    *int                     `json:"order" binding:"omitempty,gte=0"`
	Sections *[]services.SectionInput `json:"sections"`
}

// GET /courses/:id/materials
func (h *MaterialHandler) ListForCourse(c *gin.Context) {
	out, err := h.materials.ListForCourse(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"materials": out})
}

// POST /courses/:id/materials
// JSON body, or multipart with a "file" part for pdf materials.
func (h *MaterialHandler) Create(c *gin.Context) {
	var req createMaterialRequest
	var file *services.FileUpload
	if isMultipart(c) {
		var err error
		if req, file, err = createFromForm(c); err != nil {
			response.RespondError(c, err)
			return
		}
	} else if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondBindError(c, err)
		return
	}
	m, err := h.materials.Create(c.Request.Context(), c.Param("id"), services.MaterialInput{
		Title:    req.Title,
		Type:     req.Type,
		Content:  req.Content,
		Order:    req.Order,
		Sections: req.Sections,
		File:     file,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"material": m})
}

// GET /materials/:id
func (h *MaterialHandler) Get(c *gin.Context) {
	m, err := h.materials.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"material": m})
}

// PUT /materials/:id
func (h *MaterialHandler) Update(c *gin.Context) {
	var in services.MaterialUpdate
	if isMultipart(c) {
		var err error
		if in, err = updateFromForm(c); err != nil {
			response.RespondError(c, err)
			return
		}
	} else {
		var req updateMaterialRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondBindError(c, err)
			return
		}
		in = services.MaterialUpdate{Title: req.Title, Content: req.Content, Order: req.Order, Sections: req.Sections}
	}
	m, err := h.materials.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"material": m})
}

// DELETE /materials/:id
func (h *MaterialHandler) Delete(c *gin.Context) {
	if err := h.materials.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /materials/:id/file
// ?redirect=true sends the browser straight to the signed URL.
func (h *MaterialHandler) Download(c *gin.Context) {
	url, err := h.materials.DownloadURL(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if c.Query("redirect") == "true" {
		c.Redirect(http.StatusFound, url)
		return
	}
	response.RespondOK(c, gin.H{"url": url})
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

func createFromForm(c *gin.Context) (createMaterialRequest, *services.FileUpload, error) {
	req := createMaterialRequest{
		Title: strings.TrimSpace(c.PostForm("title")),
		Type:  strings.TrimSpace(c.PostForm("type")),
	}
	if req.Title == "" {
		return req, nil, apierr.Validation("title is required")
	}
	if v, ok := c.GetPostForm("content"); ok {
		req.Content = &v
	}
	var err error
	if req.Order, err = formInt(c, "order"); err != nil {
		return req, nil, err
	}
	if raw := c.PostForm("sections"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req.Sections); err != nil {
			return req, nil, apierr.Validation("sections must be a JSON array")
		}
	}
	file, err := formFile(c)
	return req, file, err
}

func updateFromForm(c *gin.Context) (services.MaterialUpdate, error) {
	var in services.MaterialUpdate
	if v, ok := c.GetPostForm("title"); ok {
		in.Title = &v
	}
	if v, ok := c.GetPostForm("content"); ok {
		in.Content = &v
	}
	var err error
	if in.Order, err = formInt(c, "order"); err != nil {
		return in, err
	}
	if raw, ok := c.GetPostForm("sections"); ok {
		var sections []services.SectionInput
		if err := json.Unmarshal([]byte(raw), &sections); err != nil {
			return in, apierr.Validation("sections must be a JSON array")
		}
		in.Sections = &sections
	}
	in.File, err = formFile(c)
	return in, err
}

func formInt(c *gin.Context, name string) (*int, error) {
	raw := strings.TrimSpace(c.PostForm(name))
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return nil, apierr.Validation("%s must be a non-negative integer", name)
	}
	return &n, nil
}

// formFile returns nil when the request has no "file" part.
func formFile(c *gin.Context) (*services.FileUpload, error) {
	fh, err := c.FormFile("file")
	if err == http.ErrMissingFile {
		return nil, nil
	}
	if err != nil {
		return nil, apierr.Validation("invalid file upload: %v", err)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, apierr.Validation("cannot read upload: %v", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, apierr.Validation("cannot read upload: %v", err)
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(data)
	}
	return &services.FileUpload{Name: fh.Filename, ContentType: ct, Data: data}, nil
}
