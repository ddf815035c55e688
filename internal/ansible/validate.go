package ansible

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

type validationErrors []error

func (v validationErrors) Error() string {
	buffer := bytes.NewBufferString("")

	for _, e := range v {
		buffer.WriteString(e.Error())
		buffer.WriteString("; ")
	}

	return strings.TrimSuffix(strings.TrimSpace(buffer.String()), ";")
}

func prettyPrintValidationError(err error) error {
	var validationErr validator.ValidationErrors
	if !errors.As(err, &validationErr) {
		return err
	}

	var out validationErrors
	for _, err := range validationErr {
		var nerr error
		switch err.Tag() {
		case "required":
			nerr = fmt.Errorf("missing required argument: %s", err.Field())
		case "required_without":
			nerr = fmt.Errorf("one of the following is required: %s, %s", err.Field(), paramName(err.Param()))
		case "excluded_with":
			nerr = fmt.Errorf("parameters are mutually exclusive: %s, %s", err.Field(), paramName(err.Param()))
		case "required_if":
			field, value, _ := strings.Cut(err.Param(), " ")
			nerr = fmt.Errorf("argument %s is required when %s is %s", err.Field(), paramName(field), value)
		case "oneof":
			nerr = fmt.Errorf("value of %s must be one of: %s, got: %v", err.Field(), strings.ReplaceAll(err.Param(), " ", ", "), err.Value())
		case "min":
			nerr = fmt.Errorf("argument %s must be at least %s", err.Field(), err.Param())
		case "max":
			nerr = fmt.Errorf("argument %s must be at most %s", err.Field(), err.Param())
		case "ip", "ipv4":
			nerr = fmt.Errorf("argument %s must be a valid IP address, got: %v", err.Field(), err.Value())
		case "uuid":
			nerr = fmt.Errorf("argument %s must be a valid UUID, got: %v", err.Field(), err.Value())
		case "alphanumunicode":
			nerr = fmt.Errorf("argument %s must only contain word characters, got: %v", err.Field(), err.Value())
		case "wordstart":
			nerr = fmt.Errorf("argument %s must start with a word character, got: %v", err.Field(), err.Value())
		case "url", "http_url":
			nerr = fmt.Errorf("argument %s must be a valid URL, got: %v", err.Field(), err.Value())
		default:
			nerr = err
		}
		out = append(out, nerr)
	}
	return out
}

// paramName maps a struct field name used in a cross-field tag to the
// snake_case parameter name.
func paramName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
