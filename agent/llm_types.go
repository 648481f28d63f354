package agent

import "github.com/sweetpotato0/procedure-assess/message"

// ResponseFormat constrains the shape of the backend's reply.
type ResponseFormat string

const (
	// FormatText is free-form text.
	FormatText ResponseFormat = "text"
	// FormatJSON asks the backend for a single JSON object.
	FormatJSON ResponseFormat = "json"
)

// GenerateRequest bundles inputs for a non-streaming LLM invocation.
type GenerateRequest struct {
	Messages []*message.Message
	Format   ResponseFormat
}

// GenerateResponse captures the LLM reply for non-streaming calls.
type GenerateResponse struct {
	Message *message.Message
	Model   string
	Usage   Usage
}

// Usage reports token accounting when the backend provides it.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

// Text returns the reply text, or "" when the response is empty.
func (r *GenerateResponse) Text() string {
	if r == nil {
		return ""
	}
	return r.Message.Text()
}
