package limiter

import (
	"fmt"
	"sync"

	errorskg "github.com/sweetpotato0/procedure-assess/errors"
	"github.com/sweetpotato0/procedure-assess/middleware"
)

// CallBudget caps the number of backend calls a client may make.
// A budget of 0 means unlimited.
type CallBudget struct {
	mu          sync.Mutex
	maxRequests int
	counter     int
}

// NewCallBudget creates a call budget middleware
func NewCallBudget(maxRequests int) *CallBudget {
	return &CallBudget{maxRequests: maxRequests}
}

// Name returns the middleware name
func (m *CallBudget) Name() string {
	return "CallBudget"
}

// Execute checks the budget before letting the call through
func (m *CallBudget) Execute(ctx *middleware.Context, next middleware.Handler) error {
	m.mu.Lock()
	if m.maxRequests > 0 && m.counter >= m.maxRequests {
		m.mu.Unlock()
		return fmt.Errorf("%w: %d calls allowed for model %s", errorskg.ErrCallBudgetExceeded, m.maxRequests, ctx.Model)
	}
	m.counter++
	m.mu.Unlock()
	return next(ctx)
}

// Reset resets the call counter
func (m *CallBudget) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter = 0
}

// Count returns current request count
func (m *CallBudget) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counter
}
