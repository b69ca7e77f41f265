package auth

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	defaultMinPasswordLen = 8
	maxPasswordLen        = 128
	minDistinctRunes      = 3
)

var (
	ErrPasswordLength = errors.New("password length out of range")
	ErrPasswordWeak   = errors.New("password is too easy to guess")
)

var usernameRe = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

// Lowercased passwords that are always rejected
var commonPasswords = map[string]struct{}{
	"password":   {},
	"password1":  {},
	"12345678":   {},
	"123456789":  {},
	"qwertyuiop": {},
	"letmein123": {},
	"iloveyou":   {},
}

// ValidateUsername accepts 3 to 32 letters, digits, dots, dashes or underscores
func ValidateUsername(username string) error {
	if !usernameRe.MatchString(username) {
		return fmt.Errorf("username must be 3-32 characters of letters, digits, '.', '-' or '_'")
	}
	return nil
}

// ValidatePassword bounds the length in characters and rejects passwords
// that are common or use fewer than three distinct characters.
func ValidatePassword(password string, minLength int) error {
	if minLength <= 0 {
		minLength = defaultMinPasswordLen
	}

	switch n := utf8.RuneCountInString(password); {
	case n < minLength:
		return fmt.Errorf("%w: must be at least %d characters long", ErrPasswordLength, minLength)
	case n > maxPasswordLen:
		return fmt.Errorf("%w: must be at most %d characters long", ErrPasswordLength, maxPasswordLen)
	}

	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		return fmt.Errorf("%w: it is a common password", ErrPasswordWeak)
	}
	if distinctRunes(password) < minDistinctRunes {
		return fmt.Errorf("%w: use at least %d different characters", ErrPasswordWeak, minDistinctRunes)
	}
	return nil
}

func distinctRunes(s string) int {
	seen := make(map[rune]struct{}, minDistinctRunes)
	for _, r := range s {
		seen[r] = struct{}{}
		if len(seen) >= minDistinctRunes {
			break
		}
	}
	return len(seen)
}
