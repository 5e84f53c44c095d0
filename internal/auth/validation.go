package auth

import (
	"regexp"
	"unicode"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail checks if an email is valid
func ValidateEmail(email string) bool {
	return emailRegex.MatchString(email) && len(email) < 255
}

// ValidateSignupPassword applies the relaxed signup rule: length only. The
// stricter rule applies when an authenticated user changes their password.
func ValidateSignupPassword(password string) bool {
	return len(password) >= 6 && len(password) <= 72
}

// ValidatePassword checks the change-password rule: at least 8 characters
// with upper case, lower case, a digit, and a symbol.
func ValidatePassword(password string) bool {
	if len(password) < 8 || len(password) > 72 {
		return false
	}

	var (
		hasUpper   bool
		hasLower   bool
		hasNumber  bool
		hasSpecial bool
	)

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			hasSpecial = true
		}
	}

	return hasUpper && hasLower && hasNumber && hasSpecial
}

var codeRegex = regexp.MustCompile(`^[0-9]{6}$`)

// ValidateCode checks the 6-digit code format before it ever reaches the
// database.
func ValidateCode(code string) bool {
	return codeRegex.MatchString(code)
}
