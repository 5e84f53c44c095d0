package auth

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOpaqueToken(t *testing.T) {
	hexRegex := regexp.MustCompile(`^[0-9a-f]{64}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := GenerateOpaqueToken()
		require.NoError(t, err)
		assert.Regexp(t, hexRegex, token)
		assert.False(t, seen[token], "token collision")
		seen[token] = true
	}
}

func TestGenerateNumericCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := GenerateNumericCode()
		require.NoError(t, err)
		assert.True(t, ValidateCode(code), "code %q should be six digits", code)
	}
}
