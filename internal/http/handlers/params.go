package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lms-backend/internal/platform/apierr"
	"github.com/yungbote/lms-backend/internal/services"
)

const maxPageSize = 200

// pageFromQuery reads ?take=&skip=. Missing values leave the window open.
func pageFromQuery(c *gin.Context) (services.Page, error) {
	var p services.Page
	var err error
	if p.Take, err = intQuery(c, "take"); err != nil {
		return p, err
	}
	if p.Skip, err = intQuery(c, "skip"); err != nil {
		return p, err
	}
	if p.Take > maxPageSize {
		p.Take = maxPageSize
	}
	return p, nil
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apierr.Validation("%s must be a non-negative integer", name)
	}
	return n, nil
}
