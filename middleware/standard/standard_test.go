package standard

import (
	"context"
	"errors"
	"testing"

	"github.com/sweetpotato0/procedure-assess/agent"
	"github.com/sweetpotato0/procedure-assess/agent/agenttest"
	errorskg "github.com/sweetpotato0/procedure-assess/errors"
	"github.com/sweetpotato0/procedure-assess/message"
	"github.com/sweetpotato0/procedure-assess/middleware"
	"github.com/sweetpotato0/procedure-assess/pkg/logging"
)

func init() {
	logging.SetLogger(logging.Discard())
}

func request(text string) *agent.GenerateRequest {
	return &agent.GenerateRequest{Messages: []*message.Message{message.User(text)}}
}

func TestChainOrder(t *testing.T) {
	chain := Chain(nil, 0)
	if chain.Len() != 4 {
		t.Fatalf("expected 4 middlewares, got %d", chain.Len())
	}
}

func TestChainPassesBlankReplies(t *testing.T) {
	client := middleware.Wrap(agenttest.NewClient(agenttest.Rule{Contains: "YES or NO", Reply: "   "}), Chain(nil, 0))

	resp, err := client.Generate(context.Background(), request("Answer YES or NO"))
	if err != nil {
		t.Fatalf("blank reply must not fail the call: %v", err)
	}
	if resp.Text() != "   " {
		t.Fatalf("reply changed to %q", resp.Text())
	}
}

func TestChainRejectsEmptyPrompt(t *testing.T) {
	inner := agenttest.Echo()
	client := middleware.Wrap(inner, Chain(nil, 0))
	if _, err := client.Generate(context.Background(), request("  ")); !errors.Is(err, errorskg.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if inner.Calls() != 0 {
		t.Fatal("backend must not be called for an empty prompt")
	}
}

func TestChainEnforcesBudget(t *testing.T) {
	client := middleware.Wrap(agenttest.Echo(), Chain(nil, 1))
	if _, err := client.Generate(context.Background(), request("first")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := client.Generate(context.Background(), request("second")); !errors.Is(err, errorskg.ErrCallBudgetExceeded) {
		t.Fatalf("expected ErrCallBudgetExceeded, got %v", err)
	}
}
