package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/lms-backend/internal/platform/apierr"
)

type APIError struct {
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

// PartialEnvelope is the 207 body of a bulk call where some items failed.
type PartialEnvelope struct {
	Success   bool               `json:"success"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failedCount"`
	Items     []apierr.ItemError `json:"failed,omitempty"`
	Error     APIError           `json:"error"`
}

const ctxErrorCode = "error_code"

// RespondError writes err with the status its type maps to. Internal errors
// get a generic message so backend detail stays in the logs.
func RespondError(c *gin.Context, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}
	code := apierr.CodeOf(err)
	c.Set(ctxErrorCode, code)
	_ = c.Error(err)

	var pf *apierr.PartialFailure
	if errors.As(err, &pf) {
		c.JSON(http.StatusMultiStatus, PartialEnvelope{
			Success:   false,
			Succeeded: pf.Succeeded,
			Failed:    pf.Failed,
			Items:     pf.Items,
			Error:     APIError{Message: pf.Error(), Code: code},
		})
		return
	}

	status := apierr.StatusOf(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		msg = "internal server error"
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// RespondBindError translates a gin binding failure into a 400 with per-field
// messages when the validator produced them.
func RespondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[lowerFirst(fe.Field())] = describe(fe)
		}
		c.Set(ctxErrorCode, apierr.CodeValidation)
		c.JSON(http.StatusBadRequest, ErrorEnvelope{Error: APIError{
			Message: "request validation failed",
			Code:    apierr.CodeValidation,
			Fields:  fields,
		}})
		return
	}
	RespondError(c, apierr.Validation("invalid request body: %v", err))
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// ErrorCode returns the code recorded by RespondError for this request.
func ErrorCode(c *gin.Context) string {
	return c.GetString(ctxErrorCode)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
