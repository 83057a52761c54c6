package oracle

import "strings"

// New dispatches to ClaudeProvider or OpenAIProvider by a simple prefix
// match on the configured model name (config.AppConfig.OracleModel),
// mirroring the teacher's SUMMARIZER_TYPE env-driven switch
// (cmd/worker/main.go createSummarizer) but inferred from the model
// string since spec §6 names only ORACLE_API_KEY/ORACLE_MODEL, not a
// separate provider-selector variable.
func New(apiKey, model string) Provider {
	if apiKey == "" {
		return NewNoOp()
	}
	if strings.HasPrefix(model, "gpt-") || strings.HasPrefix(model, "o1-") {
		return NewOpenAIProvider(apiKey, model)
	}
	return NewClaudeProvider(apiKey, model)
}
