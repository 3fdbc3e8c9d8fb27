package gcp

import "testing"

func TestDriverURLs(t *testing.T) {
	gcs := &Driver{cfg: Config{Mode: ModeGCS, Bucket: "materials"}}
	if got := gcs.ObjectURL("courses/c1/a.pdf"); got != "https://storage.googleapis.com/materials/courses/c1/a.pdf" {
		t.Fatalf("ObjectURL: got %q", got)
	}
	if gcs.BaseURL() != gcsOrigin {
		t.Fatalf("BaseURL: got %q", gcs.BaseURL())
	}

	emu := &Driver{cfg: Config{Mode: ModeGCSEmulator, Bucket: "materials", EmulatorHost: "http://fake-gcs:4443"}}
	want := "http://fake-gcs:4443/storage/v1/b/materials/o/courses%2Fc1%2Fa.pdf?alt=media"
	if got := emu.ObjectURL("courses/c1/a.pdf"); got != want {
		t.Fatalf("emulator ObjectURL: want %q got %q", want, got)
	}
}

func TestDriverKeyFromURL(t *testing.T) {
	d := &Driver{cfg: Config{Mode: ModeGCSEmulator, Bucket: "materials", EmulatorHost: "http://fake-gcs:4443"}}
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"http://fake-gcs:4443/storage/v1/b/materials/o/courses%2Fc1%2Fa.pdf?alt=media", "courses/c1/a.pdf", true},
		{"https://storage.googleapis.com/materials/courses/c1/a.pdf", "courses/c1/a.pdf", true},
		{"https://materials.storage.googleapis.com/courses/c1/a.pdf?X-Goog-Signature=x", "courses/c1/a.pdf", true},
		{"https://storage.googleapis.com/other/a.pdf", "", false},
		{"not a url", "", false},
	}
	for _, tc := range tests {
		got, ok := d.KeyFromURL(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("KeyFromURL(%q) = %q,%v want %q,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
