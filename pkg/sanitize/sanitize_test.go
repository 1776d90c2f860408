package sanitize

import (
	"strings"
	"testing"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain name", "report.pdf", "report.pdf"},
		{"path traversal", "../../etc/passwd", "etcpasswd"},
		{"header injection", "file\r\nSet-Cookie: x=1", "fileSet-Cookie: x=1"},
		{"quotes stripped", `fi"le'.txt`, "file.txt"},
		{"null bytes", "file\x00.txt", "file.txt"},
		{"empty becomes default", "", "download"},
		{"dots only becomes default", "...", "download"},
		{"backslashes", `dir\file.txt`, "dirfile.txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filename(tt.input); got != tt.want {
				t.Errorf("Filename(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestFilenameLengthBound(t *testing.T) {
	long := strings.Repeat("a", 500) + ".txt"
	got := Filename(long)
	if len(got) > 200 {
		t.Errorf("expected filename capped at 200 chars, got %d", len(got))
	}
}

func TestForHeader(t *testing.T) {
	got := ForHeader("résumé.pdf")
	if got != "r_sum_.pdf" {
		t.Errorf("ForHeader(résumé.pdf) = %q, want r_sum_.pdf", got)
	}
}
