package oracle_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sentryfeed/sentryfeed/internal/oracle"
)

func TestExtractJSON_StripsFence(t *testing.T) {
	raw := "```json\n{\"a\":1}\n```"
	assert.Equal(t, `{"a":1}`, oracle.ExtractJSON(raw))
}

func TestExtractJSON_BareObjectUnchanged(t *testing.T) {
	raw := `{"a":1}`
	assert.Equal(t, raw, oracle.ExtractJSON(raw))
}

func TestNew_EmptyAPIKeyReturnsNoOp(t *testing.T) {
	p := oracle.New("", "claude-3-5-haiku-latest")
	_, err := p.Complete(context.Background(), "", "hello")
	assert.Error(t, err)
	var unavailable *oracle.ErrOracleUnavailable
	assert.ErrorAs(t, err, &unavailable)
}

func TestNew_DispatchesByModelPrefix(t *testing.T) {
	claude := oracle.New("key", "claude-3-5-haiku-latest")
	assert.IsType(t, &oracle.ClaudeProvider{}, claude)

	gpt := oracle.New("key", "gpt-4o-mini")
	assert.IsType(t, &oracle.OpenAIProvider{}, gpt)
}
