package prompt

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/manifoldco/promptui"
)

// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
var ErrAborted = errors.New("aborted")

// maxUserName is the longest name a client can type after *I AM.
const maxUserName = 10

// IsAborted returns true if the error indicates the user aborted (Ctrl+C).
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) || errors.Is(err, ErrAborted)
}

// wrapError converts promptui interrupt/abort errors to ErrAborted.
func wrapError(err error) error {
	if err == nil {
		return nil
	}
	if IsAborted(err) {
		return ErrAborted
	}
	return err
}

// ValidateUserName accepts names that fit a password file line and an
// Econet command line.
func ValidateUserName(name string) error {
	if name == "" {
		return errors.New("user name is required")
	}
	if len(name) > maxUserName {
		return fmt.Errorf("user name must be at most %d characters", maxUserName)
	}
	for _, r := range name {
		if r == ':' || unicode.IsSpace(r) || r > unicode.MaxASCII || !unicode.IsPrint(r) {
			return fmt.Errorf("user name may not contain %q", r)
		}
	}
	return nil
}

// ValidateURD accepts a directory relative to the server root.
func ValidateURD(urd string) error {
	if strings.ContainsAny(urd, ":\n") {
		return errors.New("directory may not contain ':' or newlines")
	}
	if strings.HasPrefix(urd, "/") {
		return errors.New("directory must be relative to the server root")
	}
	for _, part := range strings.Split(urd, "/") {
		if part == ".." {
			return errors.New("directory may not leave the server root")
		}
	}
	return nil
}

// ParseOpt4 parses a boot option, 0 to 3.
func ParseOpt4(s string) (uint8, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n > 3 {
		return 0, errors.New("boot option must be 0 (off), 1 (load), 2 (run) or 3 (exec)")
	}
	return uint8(n), nil
}

// Input prompts for text input.
func Input(label string, defaultValue string) (string, error) {
	prompt := promptui.Prompt{
		Label:   label,
		Default: defaultValue,
	}

	result, err := prompt.Run()
	return result, wrapError(err)
}

// InputWithValidation prompts for text input with custom validation.
func InputWithValidation(label, defaultValue string, validate func(string) error) (string, error) {
	prompt := promptui.Prompt{
		Label:    label,
		Default:  defaultValue,
		Validate: validate,
	}

	result, err := prompt.Run()
	return result, wrapError(err)
}

// UserName prompts for a new account name.
func UserName(label string) (string, error) {
	return InputWithValidation(label, "", ValidateUserName)
}

// URD prompts for a user root directory.
func URD(label, defaultValue string) (string, error) {
	return InputWithValidation(label, defaultValue, ValidateURD)
}

// Opt4 prompts for a boot option.
func Opt4(label string, defaultValue uint8) (uint8, error) {
	result, err := InputWithValidation(label, strconv.Itoa(int(defaultValue)), func(s string) error {
		_, err := ParseOpt4(s)
		return err
	})
	if err != nil {
		return 0, err
	}
	return ParseOpt4(result)
}
