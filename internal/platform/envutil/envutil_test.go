package envutil

import (
	"reflect"
	"testing"
	"time"
)

func TestParsers(t *testing.T) {
	t.Setenv("LMS_TEST_INT", "42")
	t.Setenv("LMS_TEST_BAD_INT", "x")
	t.Setenv("LMS_TEST_BOOL", "true")
	t.Setenv("LMS_TEST_SECONDS", "90")
	t.Setenv("LMS_TEST_LIST", " application/pdf, ,image/png ")

	if got := Int("LMS_TEST_INT", 1); got != 42 {
		t.Fatalf("Int: got %d", got)
	}
	if got := Int("LMS_TEST_BAD_INT", 7); got != 7 {
		t.Fatalf("Int fallback: got %d", got)
	}
	if got := Bool("LMS_TEST_BOOL", false); !got {
		t.Fatalf("Bool: got %v", got)
	}
	if got := Seconds("LMS_TEST_SECONDS", time.Minute); got != 90*time.Second {
		t.Fatalf("Seconds: got %v", got)
	}
	if got := List("LMS_TEST_LIST", nil); !reflect.DeepEqual(got, []string{"application/pdf", "image/png"}) {
		t.Fatalf("List: got %v", got)
	}
	if got := String("LMS_TEST_UNSET", "def"); got != "def" {
		t.Fatalf("String default: got %q", got)
	}
}
