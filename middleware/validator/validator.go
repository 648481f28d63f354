package validator

import (
	"fmt"
	"strings"

	"github.com/sweetpotato0/procedure-assess/agent"
	errorskg "github.com/sweetpotato0/procedure-assess/errors"
	"github.com/sweetpotato0/procedure-assess/middleware"
)

// ValidatorFunc validates input
type ValidatorFunc func(string) error

// FilterFunc inspects or transforms responses
type FilterFunc func(*agent.GenerateResponse) error

// NonEmpty rejects blank prompts.
func NonEmpty(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("%w: prompt is empty", errorskg.ErrInvalidInput)
	}
	return nil
}

// InputValidator validates the prompt before it is sent
type InputValidator struct {
	validator ValidatorFunc
}

// NewInputValidator creates an input validation middleware
func NewInputValidator(validator ValidatorFunc) *InputValidator {
	return &InputValidator{validator: validator}
}

// Name returns the middleware name
func (m *InputValidator) Name() string {
	return "InputValidator"
}

// Execute validates the input
func (m *InputValidator) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.validator != nil {
		if err := m.validator(ctx.Input); err != nil {
			return err
		}
	}
	return next(ctx)
}

// ResponseFilter filters or transforms the response
type ResponseFilter struct {
	filter FilterFunc
}

// NewResponseFilter creates a response filtering middleware
func NewResponseFilter(filter FilterFunc) *ResponseFilter {
	return &ResponseFilter{filter: filter}
}

// Name returns the middleware name
func (m *ResponseFilter) Name() string {
	return "ResponseFilter"
}

// Execute filters the response
func (m *ResponseFilter) Execute(ctx *middleware.Context, next middleware.Handler) error {
	err := next(ctx)
	if err != nil {
		return err
	}
	if ctx.Response != nil && m.filter != nil {
		return m.filter(ctx.Response)
	}
	return nil
}

// RequireReply fails calls whose response carries no message at all. A
// message with blank text is a reply and is left for the caller to decode.
func RequireReply(resp *agent.GenerateResponse) error {
	if resp.Message == nil {
		return fmt.Errorf("%w: backend returned no message", errorskg.ErrInvalidInput)
	}
	return nil
}
