package httpserver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateJobID(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name  string
		id    string
		valid bool
		code  string
	}{
		{"empty", "", false, "REQUIRED"},
		{"too_long", strings.Repeat("a", 101), false, "TOO_LONG"},
		{"invalid_chars", "abc$%", false, "INVALID_FORMAT"},
		{"slash", "a/b", false, "INVALID_FORMAT"},
		{"valid", "job-123_ABC", true, ""},
		{"uuid", "1b4e28ba-2fa1-11d2-883f-0016d3cca427", true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			res := ValidateJobID(tc.id)
			assert.Equal(t, tc.valid, res.Valid)
			if !tc.valid {
				if assert.Len(t, res.Errors, 1) {
					assert.Equal(t, tc.code, res.Errors[0].Code)
					assert.Equal(t, "job_id", res.Errors[0].Field)
				}
			}
		})
	}
}

func TestValidateTopN(t *testing.T) {
	t.Parallel()
	n, res := ValidateTopN("")
	assert.True(t, res.Valid)
	assert.Zero(t, n)

	n, res = ValidateTopN("5")
	assert.True(t, res.Valid)
	assert.Equal(t, 5, n)

	for _, bad := range []string{"-1", "abc", "1.5"} {
		_, res = ValidateTopN(bad)
		assert.False(t, res.Valid, bad)
		assert.Equal(t, map[string]string{"top_n": "INVALID_FORMAT"}, resultDetails(res))
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()
	assert.True(t, ValidateEmail("ana@example.com").Valid)
	assert.Equal(t, "REQUIRED", ValidateEmail("  ").Errors[0].Code)
	assert.Equal(t, "INVALID_FORMAT", ValidateEmail("not-an-email").Errors[0].Code)
}
