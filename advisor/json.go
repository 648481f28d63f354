package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/sweetpotato0/procedure-assess/agent"
	"github.com/sweetpotato0/procedure-assess/document"
	errorskg "github.com/sweetpotato0/procedure-assess/errors"
	"github.com/sweetpotato0/procedure-assess/prompt"
)

// JSONRequest asks for a JSON object matching Schema.
type JSONRequest struct {
	Prompt  string
	Schema  *jsonschema.Schema
	Context []document.Page
}

// SchemaFor infers a JSON schema from T. Unknown extra properties are
// tolerated so that chatty models do not fail validation.
func SchemaFor[T any]() (*jsonschema.Schema, error) {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("infer schema: %w", err)
	}
	s.AdditionalProperties = nil
	return s, nil
}

// FormatInstructions tells the model how to shape its reply.
func FormatInstructions(schema *jsonschema.Schema) (string, error) {
	if schema == nil {
		return "Respond with a single JSON object and no other text.", nil
	}
	raw, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode schema: %w", err)
	}
	return "The output should be formatted as a JSON instance that conforms to the JSON schema below. " +
		"Respond with the JSON object only.\n\nHere is the output schema:\n```\n" + string(raw) + "\n```", nil
}

// ExtractJSON asks for structured output and decodes it into out. Any reply
// that is not JSON, violates the schema or cannot be decoded into out is
// reported as a *errors.SchemaValidationError.
func (a *Advisor) ExtractJSON(ctx context.Context, req JSONRequest, out any) error {
	instructions, err := FormatInstructions(req.Schema)
	if err != nil {
		return err
	}
	text, err := a.prompts.Render(prompt.JSONExtraction, map[string]any{
		"prompt":              req.Prompt,
		"format_instructions": instructions,
		"context":             document.Join(req.Context),
	})
	if err != nil {
		return err
	}

	raw, err := a.generate(ctx, text, agent.FormatJSON)
	if err != nil {
		return err
	}
	return decodeJSON(raw, req.Schema, out)
}

// Extract is ExtractJSON with the schema inferred from T.
func Extract[T any](ctx context.Context, a *Advisor, promptText string, pages []document.Page) (*T, error) {
	schema, err := SchemaFor[T]()
	if err != nil {
		return nil, err
	}
	var out T
	if err := a.ExtractJSON(ctx, JSONRequest{Prompt: promptText, Schema: schema, Context: pages}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func decodeJSON(raw string, schema *jsonschema.Schema, out any) error {
	clean := sanitizeJSON(raw)

	var instance any
	if err := json.Unmarshal([]byte(clean), &instance); err != nil {
		return &errorskg.SchemaValidationError{Raw: raw, Err: fmt.Errorf("decode JSON: %w", err)}
	}
	if schema != nil {
		resolved, err := schema.Resolve(nil)
		if err != nil {
			return fmt.Errorf("resolve schema: %w", err)
		}
		if err := resolved.Validate(instance); err != nil {
			return &errorskg.SchemaValidationError{Raw: raw, Err: err}
		}
	}
	if err := json.Unmarshal([]byte(clean), out); err != nil {
		return &errorskg.SchemaValidationError{Raw: raw, Err: fmt.Errorf("decode JSON: %w", err)}
	}
	return nil
}

// sanitizeJSON strips markdown code fences and any prose around the object.
func sanitizeJSON(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if idx := strings.Index(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[idx+3:]
		trimmed = strings.TrimPrefix(trimmed, "json")
		trimmed = strings.TrimPrefix(trimmed, "JSON")
		if end := strings.Index(trimmed, "```"); end >= 0 {
			trimmed = trimmed[:end]
		}
	}
	trimmed = strings.TrimSpace(trimmed)
	if !strings.HasPrefix(trimmed, "{") {
		if start, end := strings.Index(trimmed, "{"), strings.LastIndex(trimmed, "}"); start >= 0 && end > start {
			trimmed = trimmed[start : end+1]
		}
	}
	return trimmed
}
