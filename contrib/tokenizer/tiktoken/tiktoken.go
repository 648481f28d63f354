package tiktoken

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding is used for model names tiktoken does not know, such as
// non-OpenAI backends. Counts are then estimates.
const fallbackEncoding = "cl100k_base"

// Tokenizer counts prompt tokens for a model.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

// New returns a tokenizer for a model or encoding name, falling back to
// cl100k_base when neither is recognised.
func New(name string) (*Tokenizer, error) {
	enc, err := tiktoken.EncodingForModel(name)
	if err != nil {
		// try by name
		enc, err = tiktoken.GetEncoding(name)
		if err != nil {
			enc, err = tiktoken.GetEncoding(fallbackEncoding)
			if err != nil {
				return nil, err
			}
		}
	}
	return &Tokenizer{enc: enc}, nil
}

func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// CountTokens returns the number of tokens in text.
func (t *Tokenizer) CountTokens(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	return len(t.Encode(text))
}

func (t *Tokenizer) Decode(ids []int) string {
	return t.enc.Decode(ids)
}
