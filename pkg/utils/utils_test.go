package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeduplicateStringSlice(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, DeduplicateStringSlice([]string{"b", "a", "b", "c", "a"}))
	assert.Nil(t, DeduplicateStringSlice(nil))
}

func TestNormalizeList(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"empty", nil, nil},
		{"blanks dropped", []string{" ", "", "kiosk-01"}, []string{"kiosk-01"}},
		{"trimmed duplicates", []string{"kiosk-01", " kiosk-01 ", "lab-02"}, []string{"kiosk-01", "lab-02"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeList(tt.input))
		})
	}
}

func TestGetEnvAny(t *testing.T) {
	t.Setenv("PN_TEST_FIRST", "")
	t.Setenv("PN_TEST_SECOND", "second")
	t.Setenv("PN_TEST_THIRD", "third")

	assert.Equal(t, "second", GetEnvAny("PN_TEST_FIRST", "PN_TEST_SECOND", "PN_TEST_THIRD"))
	assert.Equal(t, "", GetEnvAny("PN_TEST_FIRST", "PN_TEST_UNSET"))
	assert.Equal(t, "", GetEnvAny())
}
