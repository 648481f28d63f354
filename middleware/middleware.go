package middleware

import (
	"context"

	"github.com/sweetpotato0/procedure-assess/agent"
)

// Context represents the middleware execution context for one backend call.
type Context struct {
	// Input is the flattened prompt text of the request
	Input string

	// Model identifier of the client serving the call
	Model string

	// Request sent to the backend
	Request *agent.GenerateRequest

	// Response from the backend, set by the final handler
	Response *agent.GenerateResponse

	// Metadata for passing data between middlewares
	Metadata map[string]any

	// Internal state
	context context.Context
}

// NewContext creates a new middleware context
func NewContext(ctx context.Context, model string, req *agent.GenerateRequest) *Context {
	c := &Context{
		Model:    model,
		Request:  req,
		Metadata: make(map[string]any),
		context:  ctx,
	}
	if req != nil {
		for i, m := range req.Messages {
			if i > 0 {
				c.Input += "\n"
			}
			c.Input += m.Text()
		}
	}
	return c
}

// Context returns the underlying context.Context
func (c *Context) Context() context.Context {
	if c.context == nil {
		return context.Background()
	}
	return c.context
}

// Middleware defines the interface for middleware components
// Middlewares can intercept and modify requests/responses around a backend call
type Middleware interface {
	// Name returns the name of the middleware for logging and debugging
	Name() string

	// Execute runs the middleware logic
	// It receives the current context and a next handler to continue the chain
	// Returning error will stop the middleware chain
	Execute(ctx *Context, next Handler) error
}

// Handler is the function called to pass control to the next middleware
type Handler func(*Context) error

// MiddlewareChain represents a sequence of middleware to be executed
type MiddlewareChain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *MiddlewareChain {
	return &MiddlewareChain{
		middlewares: middlewares,
	}
}

// Add appends a middleware to the chain
func (c *MiddlewareChain) Add(m Middleware) *MiddlewareChain {
	c.middlewares = append(c.middlewares, m)
	return c
}

// Len returns the number of middlewares in the chain.
func (c *MiddlewareChain) Len() int {
	return len(c.middlewares)
}

// Execute runs all middlewares in the chain
func (c *MiddlewareChain) Execute(ctx *Context, finalHandler Handler) error {
	return c.executeMiddleware(ctx, 0, finalHandler)
}

// executeMiddleware recursively executes middlewares in sequence
func (c *MiddlewareChain) executeMiddleware(ctx *Context, index int, finalHandler Handler) error {
	if index >= len(c.middlewares) {
		// All middlewares executed, call the final handler
		return finalHandler(ctx)
	}

	nextHandler := func(ctx *Context) error {
		return c.executeMiddleware(ctx, index+1, finalHandler)
	}

	return c.middlewares[index].Execute(ctx, nextHandler)
}

// Wrap decorates an LLM client so every Generate call runs through the chain.
func Wrap(client agent.LLMClient, chain *MiddlewareChain) agent.LLMClient {
	if chain == nil || chain.Len() == 0 {
		return client
	}
	return &wrappedClient{client: client, chain: chain}
}

type wrappedClient struct {
	client agent.LLMClient
	chain  *MiddlewareChain
}

func (w *wrappedClient) Model() string { return w.client.Model() }

func (w *wrappedClient) Generate(ctx context.Context, req *agent.GenerateRequest) (*agent.GenerateResponse, error) {
	mctx := NewContext(ctx, w.client.Model(), req)
	err := w.chain.Execute(mctx, func(c *Context) error {
		resp, err := w.client.Generate(c.Context(), c.Request)
		if err != nil {
			return err
		}
		c.Response = resp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mctx.Response, nil
}
