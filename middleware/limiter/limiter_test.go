package limiter

import (
	"errors"
	"testing"

	errorskg "github.com/sweetpotato0/procedure-assess/errors"
	"github.com/sweetpotato0/procedure-assess/middleware"
)

func pass(*middleware.Context) error { return nil }

func TestCallBudget(t *testing.T) {
	t.Run("allows requests within limit", func(t *testing.T) {
		budget := NewCallBudget(2)
		ctx := &middleware.Context{}
		for i := 0; i < 2; i++ {
			if err := budget.Execute(ctx, pass); err != nil {
				t.Fatalf("request %d failed: %v", i, err)
			}
		}
	})

	t.Run("blocks requests exceeding limit", func(t *testing.T) {
		budget := NewCallBudget(1)
		ctx := &middleware.Context{Model: "gpt-4o"}
		_ = budget.Execute(ctx, pass)

		err := budget.Execute(ctx, pass)
		if !errors.Is(err, errorskg.ErrCallBudgetExceeded) {
			t.Fatalf("expected ErrCallBudgetExceeded, got %v", err)
		}
	})

	t.Run("zero means unlimited", func(t *testing.T) {
		budget := NewCallBudget(0)
		ctx := &middleware.Context{}
		for i := 0; i < 100; i++ {
			if err := budget.Execute(ctx, pass); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if budget.Count() != 100 {
			t.Fatalf("expected counter to be 100, got %d", budget.Count())
		}
	})

	t.Run("can reset counter", func(t *testing.T) {
		budget := NewCallBudget(1)
		ctx := &middleware.Context{}
		_ = budget.Execute(ctx, pass)
		budget.Reset()
		if err := budget.Execute(ctx, pass); err != nil {
			t.Fatalf("request after reset failed: %v", err)
		}
	})
}
