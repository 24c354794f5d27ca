package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"plain", "  happy birthday!  ", 100, "happy birthday!"},
		{"script block", `hi<script>alert(1)</script> there`, 100, "hi there"},
		{"iframe", `<iframe src="x"></iframe>ok`, 100, "ok"},
		{"handler attr", `<img src=x onerror=alert(1)>`, 100, "&lt;img src=x alert(1)&gt;"},
		{"javascript url", `javascript:void(0)`, 100, "void(0)"},
		{"truncate runes", "🎂🎂🎂🎂", 2, "🎂🎂"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in, tt.max))
		})
	}
}
