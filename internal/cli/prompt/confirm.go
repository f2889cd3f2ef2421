// Package prompt holds the interactive prompts of the aund CLI.
package prompt

import (
	"errors"
	"strings"

	"github.com/manifoldco/promptui"
)

// Confirm asks a yes/no question. An empty answer takes the default;
// Ctrl+C returns ErrAborted.
func Confirm(label string, defaultYes bool) (bool, error) {
	suffix := " [y/N]"
	if defaultYes {
		suffix = " [Y/n]"
	}

	p := promptui.Prompt{Label: label + suffix, IsConfirm: true}
	answer, err := p.Run()
	switch {
	case err == nil:
		return isYes(answer, defaultYes), nil
	case errors.Is(err, promptui.ErrAbort):
		// IsConfirm reports anything but "y" as ErrAbort.
		return isYes(answer, defaultYes), nil
	default:
		return false, wrapError(err)
	}
}

func isYes(answer string, defaultYes bool) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "":
		return defaultYes
	case "y", "yes":
		return true
	}
	return false
}

// ConfirmWithForce skips the question when force is set, as for the
// -f flag of destructive commands.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	return Confirm(label, false)
}
