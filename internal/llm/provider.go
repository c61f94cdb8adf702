// Package llm defines the provider abstraction used to turn natural-language
// questions into SQL. Schema context produced by the renderers is embedded in
// the prompt; transport implementations live behind the Provider interface.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/YASSERRMD/schema-forge/internal/errs"
)

// Kind identifies a supported provider. The set is closed; ParseKind rejects
// anything else.
type Kind string

const (
	Anthropic Kind = "anthropic"
	OpenAI    Kind = "openai"
	Groq      Kind = "groq"
	Cohere    Kind = "cohere"
	XAI       Kind = "xai"
	Minimax   Kind = "minimax"
	Qwen      Kind = "qwen"
	ZAI       Kind = "zai"
)

// Kinds returns every supported provider kind in declaration order.
func Kinds() []Kind {
	return []Kind{Anthropic, OpenAI, Groq, Cohere, XAI, Minimax, Qwen, ZAI}
}

// KindNames returns the provider names as strings, for error messages and
// help text.
func KindNames() []string {
	kinds := Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return names
}

// ParseKind resolves a provider name, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds() {
		if k == known {
			return k, nil
		}
	}
	return "", errs.Newf(errs.KindConfig, "unknown LLM provider: %s (valid: %s)",
		s, strings.Join(KindNames(), ", "))
}

// Role labels one side of a chat exchange.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Params controls generation.
type Params struct {
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
}

// DefaultParams returns the generation settings used when the caller does
// not override them.
func DefaultParams(model string) Params {
	return Params{
		Model:       model,
		MaxTokens:   4096,
		Temperature: 0.7,
		TopP:        1.0,
	}
}

// Response is the provider's reply.
type Response struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens,omitempty"`
	OutputTokens int    `json:"output_tokens,omitempty"`
}

// Provider generates text from chat messages. Implementations own their
// transport and credentials.
type Provider interface {
	// Name returns the provider kind.
	Name() Kind
	// HasAPIKey reports whether a credential is configured.
	HasAPIKey() bool
	// Generate sends messages and returns the reply.
	Generate(ctx context.Context, messages []Message, params Params) (*Response, error)
	// GenerateSQL turns a natural-language question into SQL using
	// schemaContext as grounding.
	GenerateSQL(ctx context.Context, question, schemaContext string, params Params) (*Response, error)
}

const sqlSystemPrompt = `You are an expert SQL developer. Given a database schema and a question, produce a single SQL query that answers the question.

Rules:
- Return only the SQL query, no explanation and no markdown fences.
- Use only tables and columns that appear in the schema.
- Prefer explicit JOIN syntax over implicit joins.
- Only generate read-only SELECT statements.`

// BuildSQLPrompt assembles the deterministic message list for SQL
// generation: a fixed system prompt, then the schema context and question in
// a single user turn.
func BuildSQLPrompt(question, schemaContext string) []Message {
	user := fmt.Sprintf("Database schema:\n\n%s\n\nQuestion: %s", schemaContext, question)
	return []Message{
		{Role: RoleSystem, Content: sqlSystemPrompt},
		{Role: RoleUser, Content: user},
	}
}

// CleanSQL strips markdown fencing and surrounding whitespace from a model
// reply, leaving bare SQL.
func CleanSQL(reply string) string {
	s := strings.TrimSpace(reply)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```sql")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}
