package observability

import (
	"context"
	"testing"

	"github.com/yungbote/lms-backend/internal/platform/logger"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = abc ,broken, =x,team=lms")
	if len(got) != 2 || got["api-key"] != "abc" || got["team"] != "lms" {
		t.Fatalf("unexpected headers %v", got)
	}
	if ParseHeaders("") != nil {
		t.Fatalf("empty input should give nil")
	}
}

func TestInitOTelDisabled(t *testing.T) {
	shutdown := InitOTel(context.Background(), logger.Nop(), OtelConfig{})
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
