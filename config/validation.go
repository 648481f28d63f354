package config

import (
	"fmt"
	"strings"

	errorskg "github.com/sweetpotato0/procedure-assess/errors"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed for field %q: %s", e.Field, e.Message)
}

// Validator provides configuration validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{
		errors: []ValidationError{},
	}
}

// RequireNonEmpty validates that a string field is not empty
func (v *Validator) RequireNonEmpty(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: "value cannot be empty",
		})
	}
	return v
}

// RequirePositive validates that an integer field is greater than 0
func (v *Validator) RequirePositive(field string, value int) *Validator {
	if value <= 0 {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be positive, got %d", value),
		})
	}
	return v
}

// RequireNonNegative validates that an integer field is 0 or greater
func (v *Validator) RequireNonNegative(field string, value int) *Validator {
	if value < 0 {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must not be negative, got %d", value),
		})
	}
	return v
}

// ValidateRange validates that an integer field is within a range [min, max]
func (v *Validator) ValidateRange(field string, value, min, max int) *Validator {
	if value < min || value > max {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be between %d and %d, got %d", min, max, value),
		})
	}
	return v
}

// ValidateFloatRange validates that a float field is within a range [min, max]
func (v *Validator) ValidateFloatRange(field string, value, min, max float64) *Validator {
	if value < min || value > max {
		v.errors = append(v.errors, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("value must be between %.2f and %.2f, got %.2f", min, max, value),
		})
	}
	return v
}

// ValidateOneOf validates that a string value is one of the allowed options
func (v *Validator) ValidateOneOf(field string, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if a == value {
			return v
		}
	}
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be one of %v, got %q", allowed, value),
	})
	return v
}

// HasErrors returns true if there are any validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Error returns a combined error wrapping errors.ErrConfiguration, or nil if
// there are no errors
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}

	var b strings.Builder
	for _, e := range v.errors {
		fmt.Fprintf(&b, "\n  - %s: %s", e.Field, e.Message)
	}
	return fmt.Errorf("%w: validation failed:%s", errorskg.ErrConfiguration, b.String())
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// ValidateLLMConfig validates completion backend configuration
func ValidateLLMConfig(provider, apiKey, model string, temperature float64, maxTokens int) error {
	v := NewValidator()

	v.ValidateOneOf("llm.provider", provider, "openai", "anthropic", "gemini")
	v.RequireNonEmpty("llm.api_key", apiKey)
	v.RequireNonEmpty("llm.model", model)
	v.ValidateFloatRange("llm.temperature", temperature, 0.0, 2.0)
	v.RequirePositive("llm.max_tokens", maxTokens)

	return v.Error()
}

// ValidateAssessmentConfig validates the assessment settings
func ValidateAssessmentConfig(criteria string, concurrency, profileRetries int) error {
	v := NewValidator()

	v.RequireNonEmpty("assessment.criteria", criteria)
	v.ValidateRange("assessment.concurrency", concurrency, 1, 16)
	v.ValidateRange("assessment.profile_retries", profileRetries, 1, 10)

	return v.Error()
}

// ValidateSearchConfig validates web search configuration
func ValidateSearchConfig(endpoint string, maxResults int) error {
	v := NewValidator()

	v.RequireNonEmpty("search.endpoint", endpoint)
	v.ValidateRange("search.max_results", maxResults, 1, 30)

	return v.Error()
}
