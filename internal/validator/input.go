package validator

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// spaceRegexp is compiled once at package init and reused across all Sanitize calls.
var spaceRegexp = regexp.MustCompile(`[ \t]+`)

// InputValidator checks prompts before a run is seeded.
type InputValidator struct {
	maxLength int
	minLength int
}

func NewInputValidator() *InputValidator {
	return &InputValidator{
		maxLength: 16000,
		minLength: 1,
	}
}

func (v *InputValidator) Validate(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return errors.New("prompt is empty")
	}

	if len(prompt) < v.minLength {
		return fmt.Errorf("prompt too short: minimum %d characters", v.minLength)
	}

	if len(prompt) > v.maxLength {
		return fmt.Errorf("prompt too long: maximum %d characters", v.maxLength)
	}

	if !utf8.ValidString(prompt) {
		return errors.New("invalid UTF-8 encoding")
	}

	return nil
}

// Sanitize trims the prompt and collapses runs of spaces, keeping line breaks.
func (v *InputValidator) Sanitize(prompt string) string {
	prompt = strings.ReplaceAll(prompt, "\r\n", "\n")
	prompt = strings.TrimSpace(prompt)
	prompt = spaceRegexp.ReplaceAllString(prompt, " ")
	return prompt
}
