package form

import (
	"reflect"
	"strconv"
	"strings"
)

// Errors collects the failures of several fields. It is returned by Struct.
type Errors []ValidationError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return strings.Join(msgs, "; ")
}

// Message returns the failure message for field.
func (e Errors) Message(field string) (string, bool) {
	for _, ve := range e {
		if ve.Field == field {
			return ve.Message, true
		}
	}
	return "", false
}

// Struct validates the exported string fields of v, a struct or pointer to
// one, according to their validate tags. Field names in the result come
// from the json tag when present.
//
// Supported rules: required, min=N, max=N, email, url, pattern=RE,
// oneof=a|b|c.
func Struct(v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	var errs Errors
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		tag := sf.Tag.Get("validate")
		if tag == "" || !sf.IsExported() {
			continue
		}
		name := fieldName(sf)
		if err := Field(name, rv.Field(i).Interface(), parseValidateTag(tag)...); err != nil {
			if ve, ok := err.(ValidationError); ok {
				errs = append(errs, ve)
			}
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

func fieldName(sf reflect.StructField) string {
	if tag := sf.Tag.Get("json"); tag != "" {
		if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
			return name
		}
	}
	return sf.Name
}

// validatorFromTag creates a validator from a tag name and value.
func validatorFromTag(name, value string) Validator {
	switch name {
	case "required":
		return Required("")
	case "min", "minlen":
		n, _ := strconv.Atoi(value)
		return MinLength(n, "")
	case "max", "maxlen":
		n, _ := strconv.Atoi(value)
		return MaxLength(n, "")
	case "email":
		return Email("")
	case "url":
		return URL("")
	case "pattern", "regex":
		return Pattern(value, "")
	case "oneof":
		return OneOf(strings.Split(value, "|"), "")
	default:
		return nil
	}
}

// parseValidateTag parses a validate tag string into validators.
func parseValidateTag(tag string) []Validator {
	rules := strings.Split(tag, ",")
	validators := make([]Validator, 0, len(rules))

	for _, rule := range rules {
		rule = strings.TrimSpace(rule)
		if rule == "" {
			continue
		}
		ruleName, ruleValue, _ := strings.Cut(rule, "=")
		if v := validatorFromTag(ruleName, ruleValue); v != nil {
			validators = append(validators, v)
		}
	}
	return validators
}
