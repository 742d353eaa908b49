package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Red Chair_gallery", "red-chair_gallery"},
		{"  Crème Brûlée  ", "creme-brulee"},
		{"Tee -- shirt!", "tee-shirt"},
		{"Ünïcödé 2000", "unicode-2000"},
		{"already-a-slug", "already-a-slug"},
		{"日本", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slugify(tt.in), tt.in)
	}
}
