package validation

import (
	"regexp"
	"strings"
	"unicode"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Letters, spaces, hyphens and apostrophes.
var fullnameRe = regexp.MustCompile(`^[\p{L}\s\-']+$`)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt ignores bytes past 72
)

func IsValidEmail(email string) bool {
	return len(email) <= 254 && emailRe.MatchString(email)
}

// IsValidPassword requires 8 to 72 bytes with at least one letter, one digit
// and one punctuation or symbol character.
func IsValidPassword(password string) bool {
	if len(password) < minPasswordLen || len(password) > maxPasswordLen {
		return false
	}
	hasLetter, hasDigit, hasSpecial := false, false, false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	return hasLetter && hasDigit && hasSpecial
}

func IsValidFullname(fullname string) bool {
	return strings.TrimSpace(fullname) != "" && fullnameRe.MatchString(fullname)
}
