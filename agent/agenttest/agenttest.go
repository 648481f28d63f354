// Package agenttest provides scripted LLM clients for tests.
package agenttest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sweetpotato0/procedure-assess/agent"
	"github.com/sweetpotato0/procedure-assess/message"
)

// Rule replies with Reply (or Err) when the prompt contains Contains.
// Replies, when set, are handed out in order across matching calls and the
// last one repeats.
type Rule struct {
	Contains string
	Reply    string
	Replies  []string
	Err      error

	hits int
}

// Client is a scripted agent.LLMClient. Rules are checked in order against the
// concatenated text of all request messages; the first match wins.
type Client struct {
	mu       sync.Mutex
	rules    []*Rule
	Fallback string
	Requests []*agent.GenerateRequest
}

// NewClient creates a scripted client.
func NewClient(rules ...Rule) *Client {
	c := &Client{}
	for i := range rules {
		r := rules[i]
		c.rules = append(c.rules, &r)
	}
	return c
}

// Echo returns a client that replies with the prompt it was given.
func Echo() *Client {
	return &Client{Fallback: echoMarker}
}

const echoMarker = "\x00echo"

// Generate implements agent.LLMClient.
func (c *Client) Generate(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prompt := Prompt(req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Requests = append(c.Requests, req)

	for _, r := range c.rules {
		if !strings.Contains(prompt, r.Contains) {
			continue
		}
		if r.Err != nil {
			return nil, r.Err
		}
		reply := r.Reply
		if len(r.Replies) > 0 {
			idx := r.hits
			if idx >= len(r.Replies) {
				idx = len(r.Replies) - 1
			}
			reply = r.Replies[idx]
		}
		r.hits++
		return respond(reply), nil
	}
	if c.Fallback == echoMarker {
		return respond(prompt), nil
	}
	if c.Fallback != "" {
		return respond(c.Fallback), nil
	}
	return nil, fmt.Errorf("agenttest: no rule matches prompt %q", truncate(prompt, 120))
}

// Model implements agent.LLMClient.
func (c *Client) Model() string { return "scripted" }

// Calls returns how many requests the client has served.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Requests)
}

// CallsContaining counts requests whose prompt contains substr.
func (c *Client) CallsContaining(substr string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, req := range c.Requests {
		if strings.Contains(Prompt(req), substr) {
			n++
		}
	}
	return n
}

// Prompt flattens a request into a single string.
func Prompt(req *agent.GenerateRequest) string {
	if req == nil {
		return ""
	}
	parts := make([]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		parts = append(parts, m.Text())
	}
	return strings.Join(parts, "\n")
}

func respond(text string) *agent.GenerateResponse {
	return &agent.GenerateResponse{
		Message: message.NewMessage(message.RoleAssistant, text),
		Model:   "scripted",
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
