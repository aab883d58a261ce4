package http

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

const (
	maxKeywordLen   = 100
	maxKeywordWords = 10
)

var validate = newValidator()

// newValidator reports fields by their json names and adds the request specific tags:
// keyword (a trimmed search phrase of bounded size) and oneofci (a case-insensitive oneof).
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("keyword", validKeyword)
	_ = v.RegisterValidation("oneofci", oneOfFold)
	return v
}

func validKeyword(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if s == "" || utf8.RuneCountInString(s) > maxKeywordLen {
		return false
	}
	if len(strings.Fields(s)) > maxKeywordWords {
		return false
	}
	return strings.IndexFunc(s, unicode.IsControl) < 0
}

func oneOfFold(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	for _, opt := range strings.Fields(fl.Param()) {
		if strings.EqualFold(s, opt) {
			return true
		}
	}
	return false
}

// ReadAndValidateRequest binds the body into req, applies defaults and validates it.
// It returns nil for a valid request, otherwise the error details for the response.
func ReadAndValidateRequest(c echo.Context, req interface{}) interface{} {
	if err := c.Bind(req); err != nil {
		return validationErrors(err)
	}
	if errs := ValidateStruct(c.Request().Context(), req); errs != nil {
		return errs
	}
	return nil
}

// ValidateStruct applies defaults and validates a request decoded outside of echo,
// such as a queued or streamed request. It returns nil when req is valid.
func ValidateStruct(ctx context.Context, req interface{}) []ValidationError {
	if err := defaults.Set(req); err != nil {
		return validationErrors(err)
	}
	if err := validate.StructCtx(ctx, req); err != nil {
		return validationErrors(err)
	}
	return nil
}

func validationErrors(err error) []ValidationError {
	var fes validator.ValidationErrors
	if errors.As(err, &fes) {
		out := make([]ValidationError, 0, len(fes))
		for _, fe := range fes {
			out = append(out, ValidationError{
				Code:    "ERR_" + strings.ToUpper(fe.Tag()),
				Field:   fieldPath(fe),
				Message: fieldMessage(fe),
				Params:  fieldParams(fe),
			})
		}
		return out
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		return []ValidationError{{Code: "ERR_MALFORMED_BODY", Message: fmt.Sprint(he.Message)}}
	}
	return []ValidationError{{Code: "ERR_UNKNOWN", Message: err.Error()}}
}

// fieldPath drops the request type from the namespace, so base_keywords[2] stays addressable.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func fieldMessage(fe validator.FieldError) string {
	field, param := fieldPath(fe), fe.Param()
	counted := fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "required_without":
		return fmt.Sprintf("%s is required when %s is missing", field, param)
	case "keyword":
		return fmt.Sprintf("%s must be a phrase of at most %d characters and %d words", field, maxKeywordLen, maxKeywordWords)
	case "oneof", "oneofci":
		return fmt.Sprintf("%s must be one of: %s", field, strings.Join(options(param), ", "))
	case "min":
		if counted {
			return fmt.Sprintf("%s needs at least %s entries", field, param)
		}
		return fmt.Sprintf("%s must be at least %s characters", field, param)
	case "max":
		if counted {
			return fmt.Sprintf("%s allows at most %s entries", field, param)
		}
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "gte":
		return fmt.Sprintf("%s must be %s or more", field, param)
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, param)
	case "lte":
		return fmt.Sprintf("%s must be %s or less", field, param)
	default:
		return fmt.Sprintf("%s failed the %s check", field, fe.Tag())
	}
}

func fieldParams(fe validator.FieldError) map[string]interface{} {
	switch fe.Tag() {
	case "min", "gte", "gt":
		return map[string]interface{}{"min": fe.Param()}
	case "max", "lte", "lt":
		return map[string]interface{}{"max": fe.Param()}
	case "oneof", "oneofci":
		return map[string]interface{}{"options": options(fe.Param())}
	case "keyword":
		return map[string]interface{}{"max_length": maxKeywordLen, "max_words": maxKeywordWords}
	}
	return nil
}

// options splits a oneof parameter, keeping single-quoted values with spaces intact.
func options(param string) []string {
	if !strings.Contains(param, "'") {
		return strings.Fields(param)
	}
	var out []string
	for _, part := range strings.Split(param, "'") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
