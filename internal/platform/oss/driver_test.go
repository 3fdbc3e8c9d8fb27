package oss

import (
	"errors"
	"strings"
	"testing"
)

func testDriver() *Driver {
	return &Driver{cfg: Config{Endpoint: "https://oss-ap-southeast-5.aliyuncs.com/", Bucket: "lms-materials"}}
}

func TestDriverObjectURL(t *testing.T) {
	d := testDriver()
	want := "https://lms-materials.oss-ap-southeast-5.aliyuncs.com/courses/c1/materials/m1/a.pdf"
	if got := d.ObjectURL("/courses/c1/materials/m1/a.pdf"); got != want {
		t.Fatalf("ObjectURL: want %q got %q", want, got)
	}
}

func TestDriverKeyFromURL(t *testing.T) {
	d := testDriver()
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"https://lms-materials.oss-ap-southeast-5.aliyuncs.com/courses/c1/a.pdf", "courses/c1/a.pdf", true},
		{"https://lms-materials.oss-ap-southeast-5.aliyuncs.com/courses/c1/a.pdf?Expires=1&Signature=x", "courses/c1/a.pdf", true},
		{"https://other.oss-ap-southeast-5.aliyuncs.com/courses/c1/a.pdf", "", false},
		{"https://lms-materials.oss-ap-southeast-5.aliyuncs.com/", "", false},
	}
	for _, tc := range tests {
		got, ok := d.KeyFromURL(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("KeyFromURL(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	err := (Config{Endpoint: "oss.example.com"}).Validate()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
	if strings.Join(cfgErr.Missing, ",") != "OSS_ACCESS_KEY_ID,OSS_ACCESS_KEY_SECRET,MATERIAL_BUCKET_NAME" {
		t.Fatalf("unexpected missing list %v", cfgErr.Missing)
	}
	cfg := Config{Endpoint: "oss.example.com", AccessKeyID: "id", AccessKeySecret: "s", Bucket: "b"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}
