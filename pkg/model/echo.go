package model

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
)

// Echo is a deterministic offline Model. It answers with the last words of
// the prompt, capped at MaxLength words, and tags the reply with the
// temperature so varied settings produce varied text.
type Echo struct {
	// Err, when set, is returned from every call.
	Err error

	calls atomic.Int64
}

// Generate implements Model.
func (e *Echo) Generate(ctx context.Context, prompt string, p Params) (string, error) {
	e.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if e.Err != nil {
		return "", e.Err
	}

	words := strings.Fields(prompt)
	if p.MaxLength > 0 && len(words) > p.MaxLength {
		words = words[len(words)-p.MaxLength:]
	}
	return fmt.Sprintf("[t=%g] %s", p.Temperature, strings.Join(words, " ")), nil
}

// Calls reports how many times Generate was invoked.
func (e *Echo) Calls() int64 {
	return e.calls.Load()
}
