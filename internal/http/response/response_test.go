package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lms-backend/internal/platform/apierr"
)

func init() { gin.SetMode(gin.TestMode) }

func run(t *testing.T, fn func(c *gin.Context)) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	fn(c)
	return w
}

func TestRespondErrorStatuses(t *testing.T) {
	tests := []struct {
		err  error
		want int
		code string
	}{
		{apierr.Unauthorized("missing token"), http.StatusUnauthorized, apierr.CodeUnauthorized},
		{apierr.Forbidden("no"), http.StatusForbidden, apierr.CodeForbidden},
		{apierr.NotFound("course %s not found", "c1"), http.StatusNotFound, apierr.CodeNotFound},
		{apierr.Validation("bad"), http.StatusBadRequest, apierr.CodeValidation},
		{apierr.Conflict("no admin"), http.StatusConflict, apierr.CodeConflict},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, apierr.CodeBackend},
	}
	for _, tc := range tests {
		w := run(t, func(c *gin.Context) { RespondError(c, tc.err) })
		if w.Code != tc.want {
			t.Fatalf("%v: want %d got %d", tc.err, tc.want, w.Code)
		}
		var env ErrorEnvelope
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.Error.Code != tc.code {
			t.Fatalf("%v: want code %q got %q", tc.err, tc.code, env.Error.Code)
		}
	}
}

func TestRespondErrorHidesBackendDetail(t *testing.T) {
	w := run(t, func(c *gin.Context) { RespondError(c, apierr.Backend("find course", errors.New("secret dsn"))) })
	var env ErrorEnvelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	if env.Error.Message != "internal server error" {
		t.Fatalf("backend detail leaked: %q", env.Error.Message)
	}
}

func TestRespondErrorPartialFailure(t *testing.T) {
	pf := &apierr.PartialFailure{Succeeded: 4, Failed: 1, Items: []apierr.ItemError{{ID: "u3", Err: "boom"}}}
	w := run(t, func(c *gin.Context) { RespondError(c, pf) })
	if w.Code != http.StatusMultiStatus {
		t.Fatalf("want 207 got %d", w.Code)
	}
	var env PartialEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Success || env.Succeeded != 4 || env.Failed != 1 || len(env.Items) != 1 || env.Items[0].ID != "u3" {
		t.Fatalf("unexpected body %+v", env)
	}
}

func TestRespondBindErrorFields(t *testing.T) {
	type body struct {
		Email string `json:"email" binding:"required,email"`
		Name  string `json:"name" binding:"required"`
	}
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var b body
		if err := c.ShouldBindJSON(&b); err != nil {
			RespondBindError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", bytesReader(`{"email":"nope"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400 got %d", w.Code)
	}
	var env ErrorEnvelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	if env.Error.Fields["email"] != "must be a valid email" || env.Error.Fields["name"] != "is required" {
		t.Fatalf("unexpected fields %v", env.Error.Fields)
	}
}

func bytesReader(s string) *strings.Reader { return strings.NewReader(s) }
