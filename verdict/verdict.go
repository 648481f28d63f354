// Package verdict decodes the decision markers models are asked to put at
// the start of their replies.
package verdict

import (
	"strings"

	errorskg "github.com/sweetpotato0/procedure-assess/errors"
)

// Verdict is a decoded decision.
type Verdict int

const (
	Unknown Verdict = iota
	Yes
	No
	Mismatch
)

// Markers recognised at the start of a reply.
const (
	MarkerYes   = "[YES]"
	MarkerNo    = "[NO]"
	MarkerError = "[ERROR]"
)

// Literals accepted by forced-choice questions.
const (
	LiteralYes = "YES"
	LiteralNo  = "NO"
)

func (v Verdict) String() string {
	switch v {
	case Yes:
		return "yes"
	case No:
		return "no"
	case Mismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// Decode reads the marker at the start of reply. Leading whitespace and
// markdown emphasis are ignored; the marker itself is case-sensitive.
func Decode(reply string) Verdict {
	s := strings.TrimLeft(strings.TrimSpace(reply), "*_ ")
	switch {
	case strings.HasPrefix(s, MarkerYes):
		return Yes
	case strings.HasPrefix(s, MarkerNo):
		return No
	case strings.HasPrefix(s, MarkerError):
		return Mismatch
	default:
		return Unknown
	}
}

// DecodeDecision decodes a [YES]/[NO] reply and fails with an
// AmbiguousVerdictError when neither marker is present.
func DecodeDecision(step, reply string) (bool, error) {
	switch Decode(reply) {
	case Yes:
		return true, nil
	case No:
		return false, nil
	default:
		return false, &errorskg.AmbiguousVerdictError{
			Step:     step,
			Got:      reply,
			Expected: []string{MarkerYes, MarkerNo},
		}
	}
}

// DecodeLiteral requires reply, once trimmed, to be exactly YES or NO.
func DecodeLiteral(step, reply string) (bool, error) {
	switch strings.TrimSpace(reply) {
	case LiteralYes:
		return true, nil
	case LiteralNo:
		return false, nil
	default:
		return false, &errorskg.AmbiguousVerdictError{
			Step:     step,
			Got:      reply,
			Expected: []string{LiteralYes, LiteralNo},
		}
	}
}

// IsMismatch reports whether reply is flagged with the [ERROR] marker.
func IsMismatch(reply string) bool {
	return Decode(reply) == Mismatch
}
