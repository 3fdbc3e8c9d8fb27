package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/lms-backend/internal/domain"
	"github.com/yungbote/lms-backend/internal/platform/apierr"
	"github.com/yungbote/lms-backend/internal/platform/ctxutil"
	"github.com/yungbote/lms-backend/internal/platform/logger"
)

type stubVerifier map[string]*ctxutil.Principal

func (s stubVerifier) VerifyToken(tok string) (*ctxutil.Principal, error) {
	if p, ok := s[tok]; ok {
		return p, nil
	}
	return nil, apierr.Unauthorized("invalid token")
}

func authRouter(roles ...types.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	am := NewAuthMiddleware(logger.Nop(), stubVerifier{
		"admin-token":   {UserID: "a1", Role: types.RoleAdmin},
		"student-token": {UserID: "s1", Role: types.RoleStudent},
	})
	r := gin.New()
	g := r.Group("/", am.RequireAuth())
	if len(roles) > 0 {
		g.Use(RequireRoles(roles...))
	}
	g.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, ctxutil.GetPrincipal(c.Request.Context()).UserID)
	})
	return r
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name   string
		header string
		query  string
		want   int
		body   string
	}{
		{"missing", "", "", http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", "", http.StatusUnauthorized, ""},
		{"bearer", "Bearer admin-token", "", http.StatusOK, "a1"},
		{"lowercase scheme", "bearer student-token", "", http.StatusOK, "s1"},
		{"query", "", "student-token", http.StatusOK, "s1"},
	}
	r := authRouter()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			target := "/whoami"
			if tc.query != "" {
				target += "?token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("want %d got %d", tc.want, rec.Code)
			}
			if tc.body != "" && rec.Body.String() != tc.body {
				t.Fatalf("want principal %q got %q", tc.body, rec.Body.String())
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	r := authRouter(types.RoleAdmin)
	for tok, want := range map[string]int{"admin-token": http.StatusOK, "student-token": http.StatusForbidden} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("%s: want %d got %d", tok, want, rec.Code)
		}
	}
}
