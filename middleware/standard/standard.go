// Package standard assembles the middleware chain every backend client runs
// behind.
package standard

import (
	"github.com/sweetpotato0/procedure-assess/contrib/tokenizer/tiktoken"
	"github.com/sweetpotato0/procedure-assess/middleware"
	"github.com/sweetpotato0/procedure-assess/middleware/limiter"
	mwlogger "github.com/sweetpotato0/procedure-assess/middleware/logger"
	"github.com/sweetpotato0/procedure-assess/middleware/validator"
	"github.com/sweetpotato0/procedure-assess/pkg/logging"
)

// Tokenizer returns a token counter for model, or nil when no encoding can
// be loaded. Token estimates are then left out of call logs.
func Tokenizer(model string) mwlogger.TokenCounter {
	tok, err := tiktoken.New(model)
	if err != nil {
		logging.WithComponent("tokenizer").Warn("token estimates disabled", "model", model, "error", err)
		return nil
	}
	return tok
}

// Chain returns the middleware for one client. counter may be nil. maxCalls
// caps the backend calls of that client; 0 means unlimited.
func Chain(counter mwlogger.TokenCounter, maxCalls int) *middleware.MiddlewareChain {
	return middleware.NewChain(
		mwlogger.NewCallLogger(logging.WithComponent("llm"), counter),
		validator.NewInputValidator(validator.NonEmpty),
		validator.NewResponseFilter(validator.RequireReply),
		limiter.NewCallBudget(maxCalls),
	)
}
