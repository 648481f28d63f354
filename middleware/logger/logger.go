package logger

import (
	"log/slog"
	"time"

	"github.com/sweetpotato0/procedure-assess/middleware"
)

// TokenCounter estimates the number of tokens in a prompt.
type TokenCounter interface {
	CountTokens(text string) int
}

// CallLogger logs every backend call with its duration and token usage.
type CallLogger struct {
	logger  *slog.Logger
	counter TokenCounter
}

// NewCallLogger creates a call logging middleware. counter may be nil.
func NewCallLogger(logger *slog.Logger, counter TokenCounter) *CallLogger {
	return &CallLogger{logger: logger, counter: counter}
}

// Name returns the middleware name
func (m *CallLogger) Name() string {
	return "CallLogger"
}

// Execute logs the call
func (m *CallLogger) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.logger == nil {
		return next(ctx)
	}

	attrs := []any{"model", ctx.Model, "prompt_chars", len(ctx.Input)}
	if m.counter != nil {
		attrs = append(attrs, "prompt_tokens_est", m.counter.CountTokens(ctx.Input))
	}
	if ctx.Request != nil && ctx.Request.Format != "" {
		attrs = append(attrs, "format", string(ctx.Request.Format))
	}
	m.logger.Debug("llm call started", attrs...)

	start := time.Now()
	err := next(ctx)
	attrs = append(attrs, "duration", time.Since(start))

	if err != nil {
		m.logger.Error("llm call failed", append(attrs, "error", err)...)
		return err
	}
	if ctx.Response != nil {
		attrs = append(attrs,
			"reply_chars", len(ctx.Response.Text()),
			"prompt_tokens", ctx.Response.Usage.PromptTokens,
			"completion_tokens", ctx.Response.Usage.CompletionTokens,
		)
	}
	m.logger.Info("llm call completed", attrs...)
	return nil
}
