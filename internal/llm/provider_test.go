package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YASSERRMD/schema-forge/internal/errs"
)

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	got, err := ParseKind("  OpenAI ")
	require.NoError(t, err)
	assert.Equal(t, OpenAI, got)

	_, err = ParseKind("bedrock")
	require.Error(t, err)
	assert.True(t, errs.IsConfig(err))
	assert.Contains(t, err.Error(), "valid: anthropic, openai")
}

func TestKindsClosedSet(t *testing.T) {
	assert.Len(t, Kinds(), 8)
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams("gpt-4o")
	assert.Equal(t, "gpt-4o", p.Model)
	assert.Equal(t, 4096, p.MaxTokens)
	assert.InDelta(t, 0.7, p.Temperature, 1e-9)
	assert.InDelta(t, 1.0, p.TopP, 1e-9)
}

func TestBuildSQLPrompt(t *testing.T) {
	msgs := BuildSQLPrompt("How many users signed up today?", "Table: users\n  Columns:\n    id: integer")

	require.Len(t, msgs, 2)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "expert SQL developer")

	assert.Equal(t, RoleUser, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "Table: users")
	assert.Contains(t, msgs[1].Content, "Question: How many users signed up today?")

	// Deterministic for identical inputs.
	again := BuildSQLPrompt("How many users signed up today?", "Table: users\n  Columns:\n    id: integer")
	assert.Equal(t, msgs, again)
}

func TestCleanSQL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", "SELECT 1", "SELECT 1"},
		{"whitespace", "\n  SELECT 1  \n", "SELECT 1"},
		{"fenced", "```sql\nSELECT * FROM users\n```", "SELECT * FROM users"},
		{"fenced no lang", "```\nSELECT 1\n```", "SELECT 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanSQL(tt.in))
		})
	}
}
