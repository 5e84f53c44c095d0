package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email string
		valid bool
	}{
		{"user@example.com", true},
		{"first.last+tag@sub.example.co", true},
		{"no-at-sign", false},
		{"@example.com", false},
		{"user@", false},
		{"user@example", false},
		{"", false},
		{strings.Repeat("a", 250) + "@b.com", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, ValidateEmail(tt.email), "email %q", tt.email)
	}
}

func TestValidateSignupPassword(t *testing.T) {
	assert.True(t, ValidateSignupPassword("simple"))
	assert.True(t, ValidateSignupPassword("any old phrase works"))
	assert.False(t, ValidateSignupPassword("short"))
	assert.False(t, ValidateSignupPassword(strings.Repeat("x", 73)))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		valid    bool
	}{
		{"Str0ng!pass", true},
		{"Another#1x", true},
		{"alllowercase1!", false},
		{"ALLUPPERCASE1!", false},
		{"NoDigits!!", false},
		{"NoSymbols12", false},
		{"Sh0rt!a", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, ValidatePassword(tt.password), "password %q", tt.password)
	}
}

func TestValidateCode(t *testing.T) {
	assert.True(t, ValidateCode("000000"))
	assert.True(t, ValidateCode("654321"))
	assert.False(t, ValidateCode("12345"))
	assert.False(t, ValidateCode("1234567"))
	assert.False(t, ValidateCode("12345a"))
	assert.False(t, ValidateCode(""))
}
