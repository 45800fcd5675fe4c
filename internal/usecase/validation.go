package usecase

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateWebForm checks the resolved web-form fields. Only a missing or
// malformed email is fatal; the form is otherwise free-form.
func ValidateWebForm(form ResolvedForm) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(form.Email) == "" {
		errors = append(errors, ValidationError{"email", "is required"})
	} else if _, err := mail.ParseAddress(form.Email); err != nil {
		errors = append(errors, ValidationError{"email", "is invalid"})
	}

	return errors
}

var validPhone = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

func isValidPhoneNumber(phone string) bool {
	return validPhone.MatchString(NormalizePhone(phone))
}

// dropInvalidPhone clears a phone number that does not normalize to a dialable
// value and returns it as submitted.
func dropInvalidPhone(form *ResolvedForm) string {
	if form.Phone == "" || isValidPhoneNumber(form.Phone) {
		return ""
	}
	dropped := form.Phone
	form.Phone = ""
	return dropped
}

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02.01.2006",
	"2006-01-02T15:04",
	time.RFC3339,
}

// parseDate accepts the ISO and European day-first layouts forms submit.
func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
