package v1

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Python":            "python",
		"Other Frameworks":  "other-frameworks",
		"  Django  ":         "django",
		"Crème Brûlée":      "creme-brulee",
		"C++ & Go":          "c-go",
		"already-slugged":   "already-slugged",
		"a -- b":            "a-b",
		"snake_case name":   "snake_case-name",
		"日本語":               "",
		"Version 2.0 Notes": "version-20-notes",
	}

	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), "Slugify(%q)", in)
	}
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "http://www.djangoproject.com/", NormalizeURL("www.djangoproject.com/"))
	assert.Equal(t, "https://go.dev", NormalizeURL("https://go.dev"))
	assert.Equal(t, "http://localhost:8000/x", NormalizeURL("localhost:8000/x"))
	assert.Equal(t, "", NormalizeOptionalURL("  "))
}
