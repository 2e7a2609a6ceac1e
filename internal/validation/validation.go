// Package validation provides input validation utilities
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinPasswordLength = 6
	MaxPasswordLength = 128
	MaxNameLength     = 50
	MaxTitleLength    = 150
	MaxTags           = 10
	MaxTagLength      = 32
	MaxBodyLength     = 20000
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	tagRegex   = regexp.MustCompile(`^[a-z0-9][a-z0-9+#.\-]*$`)
)

// ValidatePassword checks password length bounds.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return fmt.Errorf("password must not exceed %d characters", MaxPasswordLength)
	}
	return nil
}

// ValidateName checks a display name.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("name must not exceed %d characters", MaxNameLength)
	}
	return nil
}

// ValidateEmail checks basic email format
func ValidateEmail(email string) error {
	if len(email) > 254 {
		return fmt.Errorf("email must not exceed 254 characters")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateTitle checks a question title.
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return fmt.Errorf("title must not exceed %d characters", MaxTitleLength)
	}
	return nil
}

// ValidateBody checks a question description or an answer.
func ValidateBody(field, body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("%s is required", field)
	}
	if utf8.RuneCountInString(body) > MaxBodyLength {
		return fmt.Errorf("%s must not exceed %d characters", field, MaxBodyLength)
	}
	return nil
}

// ValidateTags checks already normalized tags: at least one, bounded count and shape.
func ValidateTags(tags []string) error {
	if len(tags) == 0 {
		return fmt.Errorf("at least one tag is required")
	}
	if len(tags) > MaxTags {
		return fmt.Errorf("no more than %d tags are allowed", MaxTags)
	}
	for _, t := range tags {
		if len(t) > MaxTagLength {
			return fmt.Errorf("tag %q must not exceed %d characters", t, MaxTagLength)
		}
		if !tagRegex.MatchString(t) {
			return fmt.Errorf("tag %q may only contain lowercase letters, digits and + # . -", t)
		}
	}
	return nil
}
