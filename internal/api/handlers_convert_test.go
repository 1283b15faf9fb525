package api

import (
	"net/http"
	"testing"

	"github.com/dgallion1/docnorm/internal/backend"
)

func TestStatusForClass(t *testing.T) {
	cases := []struct {
		class string
		want  int
	}{
		{string(backend.ClassUnsupportedFormat), http.StatusUnsupportedMediaType},
		{string(backend.ClassMalformedSource), http.StatusUnprocessableEntity},
		{string(backend.ClassResourceResolution), http.StatusBadGateway},
		{string(backend.ClassIO), http.StatusInternalServerError},
		{"", http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := statusForClass(c.class); got != c.want {
			t.Errorf("statusForClass(%q) = %d, want %d", c.class, got, c.want)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"report.docx", "report.docx"},
		{"../../etc/passwd", "passwd"},
		{"", "unnamed"},
	}
	for _, c := range cases {
		if got := sanitizeFilename(c.in); got != c.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
