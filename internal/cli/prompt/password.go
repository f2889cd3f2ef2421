package prompt

import (
	"errors"
	"strings"

	"github.com/manifoldco/promptui"
)

// ErrPasswordMismatch indicates passwords don't match.
var ErrPasswordMismatch = errors.New("passwords do not match")

// ValidatePassword rejects characters the password file cannot store. The
// empty password is allowed: it makes a login that needs no password.
func ValidatePassword(password string) error {
	if strings.ContainsAny(password, ":\n\r") {
		return errors.New("password may not contain ':' or newlines")
	}
	return nil
}

// Password prompts for a password input with masking.
func Password(label string) (string, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Mask:     '*',
		Validate: ValidatePassword,
	}

	result, err := prompt.Run()
	return result, wrapError(err)
}

// PasswordWithConfirmation prompts for a password and confirmation.
func PasswordWithConfirmation(label, confirmLabel string) (string, error) {
	password, err := Password(label)
	if err != nil {
		return "", err
	}

	confirm, err := Password(confirmLabel)
	if err != nil {
		return "", err
	}

	if password != confirm {
		return "", ErrPasswordMismatch
	}
	return password, nil
}

// NewPassword prompts for a new password with confirmation.
func NewPassword() (string, error) {
	return PasswordWithConfirmation("Password", "Confirm password")
}
