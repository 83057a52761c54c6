// Package oracle abstracts the optional LLM enrichment pass the
// processors (C11) call: policy, personnel, and tech-frontier rule-engine
// output can optionally be refined by a Claude or OpenAI call gated on
// config.AppConfig.OracleEnabled(). Grounded on the teacher's
// internal/infra/summarizer package (Claude/OpenAI adapters with circuit
// breaker + retry), generalized from a fixed "summarize to N characters"
// contract into a free-form prompt/completion contract, since each
// processor needs a different structured JSON shape back (spec §4.11).
package oracle

import (
	"context"

	text "github.com/sentryfeed/sentryfeed/internal/textutil"
)

// Provider is the oracle abstraction every processor's Tier 2 enrichment
// calls through. Complete returns the model's raw text response; callers
// extract JSON from it with ExtractJSON when they need structured fields.
type Provider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// maxPromptRunes bounds how much user-prompt text a concrete provider will
// ever send upstream. Counted in runes rather than bytes since processor
// prompts are built from Chinese source text, where a byte cap would
// truncate well short of the model's actual token budget.
const maxPromptRunes = 8000

// clampPrompt truncates userPrompt to maxPromptRunes, used by the concrete
// providers' Complete methods before issuing the request.
func clampPrompt(userPrompt string) string {
	if text.CountRunes(userPrompt) <= maxPromptRunes {
		return userPrompt
	}
	runes := []rune(userPrompt)
	return string(runes[:maxPromptRunes])
}

// ErrOracleUnavailable is returned when the circuit breaker is open or the
// provider could not be reached after retries. Per spec §7 ("Oracle
// failures are always non-fatal"), callers must treat this as "skip
// enrichment for this item", never as a fatal processor error.
type ErrOracleUnavailable struct {
	Provider string
	Cause    error
}

func (e *ErrOracleUnavailable) Error() string {
	return "oracle unavailable (" + e.Provider + "): " + e.Cause.Error()
}

func (e *ErrOracleUnavailable) Unwrap() error {
	return e.Cause
}
