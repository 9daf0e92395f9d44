// Package validation provides input validation utilities for docquery.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationError represents a validation error with field context.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// ToError returns nil if no errors, otherwise returns the ValidationErrors.
func (e ValidationErrors) ToError() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// Validator collects validation errors.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// AddError adds a validation error.
func (v *Validator) AddError(field, message string, value interface{}) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// RequirePositive checks that an integer is positive (> 0).
func (v *Validator) RequirePositive(value int, field string) {
	if value <= 0 {
		v.AddError(field, "must be positive", value)
	}
}

// RequireNonNegative checks that an integer is non-negative (>= 0).
func (v *Validator) RequireNonNegative(value int, field string) {
	if value < 0 {
		v.AddError(field, "must be non-negative", value)
	}
}

// RequireNotEmpty checks that a string is not empty.
func (v *Validator) RequireNotEmpty(value, field string) {
	if value == "" {
		v.AddError(field, "must not be empty", nil)
	}
}

// RequireMatch checks that value matches the pattern.
func (v *Validator) RequireMatch(value string, pattern *regexp.Regexp, field, message string) {
	if !pattern.MatchString(value) {
		v.AddError(field, message, value)
	}
}

// Error returns an error if there are validation errors, nil otherwise.
func (v *Validator) Error() error {
	return v.errors.ToError()
}

// collectionNamePattern mirrors the naming rule of persistent vector stores:
// 3-63 characters, alphanumerics plus ".", "_" and "-", alphanumeric at both ends.
var collectionNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{1,61}[A-Za-z0-9]$`)

// ValidateCollectionName validates a collection name.
func ValidateCollectionName(name string) error {
	v := NewValidator()
	v.RequireNotEmpty(name, "collection")
	if name != "" {
		v.RequireMatch(name, collectionNamePattern, "collection",
			"must be 3-63 characters of letters, digits, '.', '_' or '-', starting and ending with a letter or digit")
	}
	return v.Error()
}
