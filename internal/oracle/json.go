package oracle

import "strings"

// ExtractJSON strips a leading/trailing ```json fence (or bare ```) from a
// model response, returning the inner text unchanged when no fence is
// present. LLMs reliably wrap structured output in markdown fences even
// when asked not to; every processor's oracle-enrichment path needs this
// before calling json.Unmarshal.
func ExtractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
