package form

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// Validator is an interface for form field validation.
type Validator interface {
	// Validate checks if the value is valid.
	// Returns nil if valid, or an error with a message if invalid.
	Validate(value any) error
}

// ValidatorFunc is a function that implements Validator.
type ValidatorFunc func(value any) error

func (f ValidatorFunc) Validate(value any) error {
	return f(value)
}

// ValidationError represents a validation failure.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Required validates that the value is non-empty. Whitespace-only strings
// count as empty.
func Required(msg string) Validator {
	if msg == "" {
		msg = "This field is required"
	}
	return ValidatorFunc(func(value any) error {
		if isEmpty(value) {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// MinLength validates that a string has at least n characters.
func MinLength(n int, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at least %d characters", n)
	}
	return ValidatorFunc(func(value any) error {
		s := toString(value)
		if s == "" {
			return nil // Let Required handle empty values
		}
		if len([]rune(s)) < n {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// MaxLength validates that a string has at most n characters.
func MaxLength(n int, msg string) Validator {
	if msg == "" {
		msg = fmt.Sprintf("Must be at most %d characters", n)
	}
	return ValidatorFunc(func(value any) error {
		if len([]rune(toString(value))) > n {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// Pattern validates that a string matches the given regular expression.
func Pattern(pattern string, msg string) Validator {
	re := regexp.MustCompile(pattern)
	if msg == "" {
		msg = "Invalid format"
	}
	return ValidatorFunc(func(value any) error {
		s := toString(value)
		if s == "" {
			return nil
		}
		if !re.MatchString(s) {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Email validates that the value is a valid email address.
func Email(msg string) Validator {
	if msg == "" {
		msg = "Invalid email address"
	}
	return ValidatorFunc(func(value any) error {
		s := toString(value)
		if s == "" {
			return nil
		}
		if !emailPattern.MatchString(s) {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// URL validates that the value is an absolute http or https URL.
func URL(msg string) Validator {
	if msg == "" {
		msg = "Invalid URL"
	}
	return ValidatorFunc(func(value any) error {
		s := toString(value)
		if s == "" {
			return nil
		}
		u, err := url.Parse(s)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// OneOf validates that the value is one of the allowed strings.
func OneOf(allowed []string, msg string) Validator {
	if msg == "" {
		msg = "Must be one of " + strings.Join(allowed, ", ")
	}
	return ValidatorFunc(func(value any) error {
		s := toString(value)
		if s == "" {
			return nil
		}
		if !slices.Contains(allowed, s) {
			return ValidationError{Message: msg}
		}
		return nil
	})
}

// Custom creates a validator from a custom function.
func Custom(fn func(value any) error) Validator {
	return ValidatorFunc(fn)
}

// Field runs validators against value in order and returns the first
// failure tagged with the field name.
func Field(name string, value any, validators ...Validator) error {
	for _, v := range validators {
		if v == nil {
			continue
		}
		if err := v.Validate(value); err != nil {
			msg := err.Error()
			if ve, ok := err.(ValidationError); ok {
				msg = ve.Message
			}
			return ValidationError{Field: name, Message: msg}
		}
	}
	return nil
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case *string:
		return v == nil || strings.TrimSpace(*v) == ""
	case []string:
		return len(v) == 0
	default:
		return false
	}
}

func toString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case *string:
		if v == nil {
			return ""
		}
		return *v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
