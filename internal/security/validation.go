// Package security provides input validation and credential masking.
package security

import (
	"net/mail"
	"regexp"
	"strings"

	apperrors "tradesim/internal/errors"
)

// MinPasswordLength is the shortest password accepted on signup and
// password change.
const MinPasswordLength = 6

// Validation patterns
var (
	// Symbol pattern: uppercase letters, digits and limited special chars
	symbolPattern = regexp.MustCompile(`^[A-Z0-9.&-]{1,12}$`)

	// Token patterns for detection (not validation)
	tokenPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)bearer\s+([A-Za-z0-9_\-\.=]+)`),
		regexp.MustCompile(`eyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]*`), // JWTs
		regexp.MustCompile(`(?i)(password|token)["']?\s*[:=]\s*["']?([^\s"',}]+)`),
	}
)

// NormalizeSymbol uppercases and trims a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ValidateSymbol validates a stock symbol.
func ValidateSymbol(symbol string) error {
	symbol = NormalizeSymbol(symbol)

	if symbol == "" {
		return apperrors.NewValidationError("symbol", symbol, "symbol cannot be empty")
	}
	if !symbolPattern.MatchString(symbol) {
		return apperrors.NewValidationError("symbol", symbol, "invalid symbol format")
	}
	return nil
}

// ValidateCredentials checks login input before it is sent.
func ValidateCredentials(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return apperrors.NewValidationError("email", email, "email is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(email)); err != nil {
		return apperrors.NewValidationError("email", email, "invalid email address")
	}
	if password == "" {
		return apperrors.NewValidationError("password", nil, "password is required")
	}
	return nil
}

// ValidateSignup checks signup input before it is sent.
func ValidateSignup(username, email, password string) error {
	if strings.TrimSpace(username) == "" {
		return apperrors.NewValidationError("username", username, "username is required")
	}
	if err := ValidateCredentials(email, password); err != nil {
		return err
	}
	if len(password) < MinPasswordLength {
		return apperrors.NewValidationError("password", nil, "password must be at least 6 characters long")
	}
	return nil
}

// ValidatePasswordChange applies the profile form rules. An empty
// newPassword means the password is not being changed and always passes.
func ValidatePasswordChange(currentPassword, newPassword, confirmPassword string) error {
	if newPassword == "" {
		return nil
	}
	if newPassword != confirmPassword {
		return apperrors.NewValidationError("confirm_password", nil, "new passwords do not match")
	}
	if len(newPassword) < MinPasswordLength {
		return apperrors.NewValidationError("new_password", nil, "new password must be at least 6 characters long")
	}
	if currentPassword == "" {
		return apperrors.NewValidationError("current_password", nil, "current password is required to set new password")
	}
	return nil
}

// MaskSensitive masks tokens and passwords found in a string.
func MaskSensitive(input string) string {
	result := input
	for _, pattern := range tokenPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			sub := pattern.FindStringSubmatch(match)
			secret := sub[len(sub)-1]
			if secret == "" {
				return match
			}
			return strings.Replace(match, secret, MaskCredential(secret), 1)
		})
	}
	return result
}

// MaskCredential masks a credential value for logging.
func MaskCredential(value string) string {
	if len(value) == 0 {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	if len(value) <= 8 {
		return value[:2] + strings.Repeat("*", len(value)-2)
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}
