package services

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/yungbote/lms-backend/internal/data/store"
	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/platform/apierr"
	"github.com/yungbote/lms-backend/internal/platform/ctxutil"
	"github.com/yungbote/lms-backend/internal/platform/logger"
	"github.com/yungbote/lms-backend/internal/platform/storage"
	"github.com/yungbote/lms-backend/internal/services/access"
)

type FileUpload struct {
	Name        string
	ContentType string
	Data        []byte
}

type SectionInput struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Order   *int   `json:"order"`
}

type MaterialInput struct {
	Title    string
	Type     string
	Content  *string
	Order    *int
	Sections []SectionInput
	File     *FileUpload
}

type MaterialUpdate struct {
	Title   *string
	Content *string
	Order   *int
	// Sections replaces every section when non-nil.
	Sections *[]SectionInput
	File     *FileUpload
}

type MaterialService interface {
	ListForCourse(ctx context.Context, courseID string) ([]types.Material, error)
	Get(ctx context.Context, id string) (*types.Material, error)
	Create(ctx context.Context, courseID string, in MaterialInput) (*types.Material, error)
	Update(ctx context.Context, id string, in MaterialUpdate) (*types.Material, error)
	Delete(ctx context.Context, id string) error
	DownloadURL(ctx context.Context, id string) (string, error)
}

type materialService struct {
	log     *logger.Logger
	st      store.Store
	access  access.Engine
	objects ObjectStore
}

func NewMaterialService(baseLog *logger.Logger, st store.Store, engine access.Engine, objects ObjectStore) MaterialService {
	return &materialService{
		log:     baseLog.With("service", "MaterialService"),
		st:      st,
		access:  engine,
		objects: objects,
	}
}

var byPosition = []store.Order{{Field: "order"}, {Field: "id"}}

func (ms *materialService) ListForCourse(ctx context.Context, courseID string) ([]types.Material, error) {
	if _, err := ms.access.EnsureCourseAccess(ctx, ctxutil.GetPrincipal(ctx), courseID); err != nil {
		return nil, err
	}
	rows, err := ms.st.Materials().FindMany(ctx, store.Query{
		Where:   store.Where{"courseId": courseID},
		OrderBy: byPosition,
	})
	if err != nil {
		return nil, apierr.Backend("list materials", err)
	}
	for i := range rows {
		ms.publicURL(&rows[i])
	}
	return rows, nil
}

func (ms *materialService) Get(ctx context.Context, id string) (*types.Material, error) {
	mat, _, err := ms.access.EnsureMaterialAccess(ctx, ctxutil.GetPrincipal(ctx), id)
	if err != nil {
		return nil, err
	}
	sections, err := ms.st.MaterialSections().FindMany(ctx, store.Query{
		Where:   store.Where{"materialId": id},
		OrderBy: byPosition,
	})
	if err != nil && !store.IsMissingRelation(err) {
		return nil, apierr.Backend("load sections", err)
	}
	mat.Sections = sections
	ms.publicURL(mat)
	return mat, nil
}

func (ms *materialService) Create(ctx context.Context, courseID string, in MaterialInput) (*types.Material, error) {
	p := ctxutil.GetPrincipal(ctx)
	if err := EnsureRole(p, types.RoleTeacher, types.RoleAdmin); err != nil {
		return nil, err
	}
	if _, err := ms.access.EnsureCourseAccess(ctx, p, courseID); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apierr.Validation("title is required")
	}
	kind, ok := types.ParseMaterialType(in.Type)
	if !ok {
		return nil, apierr.Validation("invalid material type %q", in.Type)
	}

	now := nowUTC()
	mat := &types.Material{
		ID:        newID(),
		CourseID:  courseID,
		Title:     title,
		Type:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := checkContent(kind, in.Content, len(in.Sections) > 0, in.File != nil); err != nil {
		return nil, err
	}
	if in.Content != nil {
		mat.Content = trimmedPtr(in.Content)
	}
	if in.Order != nil {
		mat.Order = *in.Order
	} else {
		n, err := ms.st.Materials().Count(ctx, store.Where{"courseId": courseID})
		if err != nil {
			return nil, apierr.Backend("count materials", err)
		}
		mat.Order = int(n)
	}

	var uploadedKey string
	if kind == types.MaterialPDF {
		u, key, err := ms.upload(ctx, courseID, mat.ID, in.File)
		if err != nil {
			return nil, err
		}
		mat.PdfURL = &u
		uploadedKey = key
	}

	if err := ms.st.Materials().Create(ctx, mat); err != nil {
		ms.removeFiles(ctx, uploadedKey)
		return nil, apierr.Backend("create material", err)
	}
	if kind == types.MaterialMarkdown && len(in.Sections) > 0 {
		sections, err := ms.writeSections(ctx, mat.ID, in.Sections)
		if err != nil {
			return nil, err
		}
		mat.Sections = sections
	}
	ms.log.Info("Material created", "material_id", mat.ID, "course_id", courseID, "type", kind)
	ms.publicURL(mat)
	return mat, nil
}

func (ms *materialService) Update(ctx context.Context, id string, in MaterialUpdate) (*types.Material, error) {
	p := ctxutil.GetPrincipal(ctx)
	if err := EnsureRole(p, types.RoleTeacher, types.RoleAdmin); err != nil {
		return nil, err
	}
	mat, _, err := ms.access.EnsureMaterialAccess(ctx, p, id)
	if err != nil {
		return nil, err
	}

	patch := store.Patch{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, apierr.Validation("title cannot be empty")
		}
		patch["title"] = title
	}
	if in.Content != nil {
		if err := checkContent(mat.Type, in.Content, true, true); err != nil {
			return nil, err
		}
		patch["content"] = *trimmedPtr(in.Content)
	}
	if in.Order != nil {
		patch["order"] = *in.Order
	}
	var staleKey, newKey string
	if in.File != nil {
		if mat.Type != types.MaterialPDF {
			return nil, apierr.Validation("only pdf materials accept a file")
		}
		u, key, err := ms.upload(ctx, mat.CourseID, mat.ID, in.File)
		if err != nil {
			return nil, err
		}
		newKey = key
		patch["pdfUrl"] = u
		if mat.PdfURL != nil && ms.objects != nil {
			if k, ok := ms.objects.ExtractFileNameFromURL(*mat.PdfURL); ok && k != key {
				staleKey = k
			}
		}
	}

	updated := mat
	if len(patch) > 0 {
		patch["updatedAt"] = nowUTC()
		updated, err = ms.st.Materials().Update(ctx, store.Where{"id": id}, patch)
		if err != nil {
			ms.removeFiles(ctx, newKey)
			if errors.Is(err, store.ErrNotFound) {
				return nil, apierr.NotFound("material %s not found", id)
			}
			return nil, apierr.Backend("update material", err)
		}
	}
	ms.removeFiles(ctx, staleKey)

	if in.Sections != nil {
		if mat.Type != types.MaterialMarkdown {
			return nil, apierr.Validation("only markdown materials have sections")
		}
		if _, err := ms.st.MaterialSections().DeleteMany(ctx, store.Where{"materialId": id}); err != nil {
			return nil, apierr.Backend("clear sections", err)
		}
		sections, err := ms.writeSections(ctx, id, *in.Sections)
		if err != nil {
			return nil, err
		}
		updated.Sections = sections
	}
	ms.publicURL(updated)
	return updated, nil
}

func (ms *materialService) Delete(ctx context.Context, id string) error {
	p := ctxutil.GetPrincipal(ctx)
	if err := EnsureRole(p, types.RoleTeacher, types.RoleAdmin); err != nil {
		return err
	}
	mat, _, err := ms.access.EnsureMaterialAccess(ctx, p, id)
	if err != nil {
		return err
	}
	byMaterial := store.Where{"materialId": id}
	if _, err := ms.st.MaterialSections().DeleteMany(ctx, byMaterial); err != nil {
		return apierr.Backend("delete sections", err)
	}
	if _, err := ms.st.Progress().DeleteMany(ctx, byMaterial); err != nil {
		return apierr.Backend("delete progress", err)
	}
	if err := ms.st.Materials().Delete(ctx, store.Where{"id": id}); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apierr.NotFound("material %s not found", id)
		}
		return apierr.Backend("delete material", err)
	}
	if mat.PdfURL != nil && ms.objects != nil {
		if key, ok := ms.objects.ExtractFileNameFromURL(*mat.PdfURL); ok {
			ms.removeFiles(ctx, key)
		}
	}
	ms.log.Info("Material deleted", "material_id", id, "course_id", mat.CourseID)
	return nil
}

// DownloadURL returns a short-lived signed link to a pdf material.
func (ms *materialService) DownloadURL(ctx context.Context, id string) (string, error) {
	mat, _, err := ms.access.EnsureMaterialAccess(ctx, ctxutil.GetPrincipal(ctx), id)
	if err != nil {
		return "", err
	}
	if mat.Type != types.MaterialPDF || mat.PdfURL == nil || *mat.PdfURL == "" {
		return "", apierr.NotFound("material %s has no file", id)
	}
	if ms.objects == nil {
		return "", apierr.NotFound("file storage is not configured")
	}
	key, ok := ms.objects.ExtractFileNameFromURL(*mat.PdfURL)
	if !ok {
		return "", apierr.NotFound("material %s has no stored file", id)
	}
	u, err := ms.objects.SignedURL(ctx, key, 0)
	if err != nil {
		return "", apierr.Backend("sign download url", err)
	}
	return u, nil
}

func (ms *materialService) upload(ctx context.Context, courseID, materialID string, f *FileUpload) (string, string, error) {
	if f == nil {
		return "", "", apierr.Validation("pdf materials require a file")
	}
	if ms.objects == nil {
		return "", "", apierr.Validation("file uploads are not configured")
	}
	key := storage.MaterialKey(courseID, materialID, f.Name)
	ct := f.ContentType
	if ct == "" {
		ct = "application/pdf"
	}
	u, err := ms.objects.Upload(ctx, key, f.Data, ct)
	if err != nil {
		return "", "", uploadError(err)
	}
	return u, key, nil
}

func (ms *materialService) removeFiles(ctx context.Context, key string) {
	if key == "" || ms.objects == nil {
		return
	}
	if err := ms.objects.Delete(ctx, key); err != nil {
		ms.log.Warn("Failed to delete material file", "key", key, "error", err)
	}
}

func (ms *materialService) writeSections(ctx context.Context, materialID string, in []SectionInput) ([]types.MaterialSection, error) {
	now := nowUTC()
	rows := make([]types.MaterialSection, 0, len(in))
	for i, s := range in {
		title := strings.TrimSpace(s.Title)
		if title == "" {
			return nil, apierr.Validation("section %d needs a title", i+1)
		}
		order := i
		if s.Order != nil {
			order = *s.Order
		}
		rows = append(rows, types.MaterialSection{
			ID:         newID(),
			MaterialID: materialID,
			Title:      title,
			Content:    s.Content,
			Order:      order,
			CreatedAt:  now,
		})
	}
	if len(rows) == 0 {
		return rows, nil
	}
	if _, err := ms.st.MaterialSections().CreateMany(ctx, rows); err != nil {
		return nil, apierr.Backend("create sections", err)
	}
	return ms.st.MaterialSections().FindMany(ctx, store.Query{
		Where:   store.Where{"materialId": materialID},
		OrderBy: byPosition,
	})
}

func (ms *materialService) publicURL(m *types.Material) {
	if m.PdfURL == nil || ms.objects == nil {
		return
	}
	u := ms.objects.ReplaceWithPublicURL(*m.PdfURL)
	m.PdfURL = &u
}

// checkContent validates the body a material type needs.
func checkContent(kind types.MaterialType, content *string, hasSections, hasFile bool) error {
	body := ""
	if content != nil {
		body = strings.TrimSpace(*content)
	}
	switch kind {
	case types.MaterialText:
		if body == "" {
			return apierr.Validation("text materials need content")
		}
	case types.MaterialMarkdown:
		if body == "" && !hasSections {
			return apierr.Validation("markdown materials need content or sections")
		}
	case types.MaterialVideoLink:
		u, err := url.Parse(body)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apierr.Validation("video-link materials need an http(s) url")
		}
	case types.MaterialPDF:
		if !hasFile {
			return apierr.Validation("pdf materials require a file")
		}
	}
	return nil
}
