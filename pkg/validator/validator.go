package validator

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so clients can bind errors to form inputs.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Register adds a custom validation tag. It must be called during init,
// before any concurrent validation.
func Register(tag string, fn validator.Func) error {
	return validate.RegisterValidation(tag, fn)
}

// Validate validates a struct using go-playground/validator tags.
func Validate(s any) error {
	if err := validate.Struct(s); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return &ValidationError{Errors: validationErrors}
		}
		return err
	}
	return nil
}

// ValidateMap validates free-form field values against per-field rule strings,
// e.g. {"name": "required,max=255"}. Fields without a rule are ignored.
func ValidateMap(values map[string]any, rules map[string]string) error {
	tagRules := make(map[string]any, len(rules))
	for field, rule := range rules {
		tagRules[field] = rule
	}
	// Missing keys validate as empty strings so "required" trips on them.
	data := make(map[string]any, len(rules))
	for field := range rules {
		v, ok := values[field]
		if !ok || v == nil {
			v = ""
		}
		data[field] = v
	}

	result := validate.ValidateMap(data, tagRules)
	if len(result) == 0 {
		return nil
	}

	fields := make(map[string]string, len(result))
	for field, raw := range result {
		var fieldErrs validator.ValidationErrors
		if err, ok := raw.(error); ok && errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fields[field] = msgForTag(fieldErrs[0])
			continue
		}
		fields[field] = "is invalid"
	}
	return &ValidationError{extra: fields}
}

// FieldError builds a ValidationError for a single field, for cross-field
// rules that cannot be expressed as tags.
func FieldError(field, message string) *ValidationError {
	return &ValidationError{extra: map[string]string{field: message}}
}

// ValidationError wraps validator.ValidationErrors with a user-friendly message.
type ValidationError struct {
	Errors validator.ValidationErrors
	extra  map[string]string
}

func (e *ValidationError) Error() string {
	fields := e.Fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, 0, len(names))
	for _, name := range names {
		msgs = append(msgs, fmt.Sprintf("field '%s' %s", name, fields[name]))
	}
	return strings.Join(msgs, "; ")
}

// Fields returns a map of field names to error messages.
func (e *ValidationError) Fields() map[string]string {
	fields := make(map[string]string, len(e.Errors)+len(e.extra))
	for _, err := range e.Errors {
		fields[err.Field()] = msgForTag(err)
	}
	for k, v := range e.extra {
		fields[k] = v
	}
	return fields
}

// Merge combines two validation results; either may be nil.
func Merge(a, b error) error {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	var va, vb *ValidationError
	if !errors.As(a, &va) || !errors.As(b, &vb) {
		return errors.Join(a, b)
	}
	return &ValidationError{extra: mergeMaps(va.Fields(), vb.Fields())}
}

func mergeMaps(a, b map[string]string) map[string]string {
	for k, v := range b {
		if _, ok := a[k]; !ok {
			a[k] = v
		}
	}
	return a
}

// tagMessages renders a failed tag; %s receives the tag parameter.
var tagMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email address",
	"gte":      "must be greater than or equal to %s",
	"lte":      "must be less than or equal to %s",
	"gt":       "must be greater than %s",
	"lt":       "must be less than %s",
	"gtfield":  "must be after %s",
	"uuid":     "must be a valid UUID",
	"url":      "must be a valid URL",
	"oneof":    "must be one of: %s",
	"numeric":  "must contain only digits",
	"e164":     "must be a valid phone number",
	"vnphone":  "must be a valid Vietnamese phone number",
	"hexcolor": "must be a hex color such as #FFCC00",
}

func msgForTag(fe validator.FieldError) string {
	tag := fe.Tag()
	if tag == "min" || tag == "max" {
		bound := map[string]string{"min": "least", "max": "most"}[tag]
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at %s %s characters", bound, fe.Param())
		}
		return fmt.Sprintf("must be at %s %s", bound, fe.Param())
	}
	msg, ok := tagMessages[tag]
	if !ok {
		return fmt.Sprintf("failed on '%s' validation", tag)
	}
	if strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, fe.Param())
	}
	return msg
}
