package mmodel

import "time"

// Role is the closed set of message roles in a conversation.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Context is the session's current data-exploration context: which
// backend, product, schema and table the conversation is scoped to.
type Context struct {
	DataSource  string `json:"data_source,omitempty"`
	DataProduct string `json:"data_product,omitempty"`
	Schema      string `json:"schema,omitempty"`
	Table       string `json:"table,omitempty"`
}

// Message is a single append-only entry in a conversation's history.
type Message struct {
	ID        uint64         `json:"id"`
	Role      Role           `json:"role"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Session is a conversation's full append-only message log plus its
// current context.
type Session struct {
	ID        string        `json:"id"`
	Messages  []Message     `json:"messages"`
	Context   Context       `json:"context"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	TTL       time.Duration `json:"-"`
}

// Expired reports whether the session is past its idle TTL as of now.
// Only the 24h idle TTL is enforced; whether an absolute max session age
// is additionally required is an open question per spec.md §9 and is
// deliberately left undecided here.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.UpdatedAt.Add(s.TTL))
}

// AssistantResponse is the Agent Orchestrator's per-turn output.
type AssistantResponse struct {
	Message               string   `json:"message"`
	Confidence            float64  `json:"confidence"`
	Sources               []string `json:"sources,omitempty"`
	SuggestedActions      []string `json:"suggested_actions,omitempty"`
	RequiresClarification bool     `json:"requires_clarification"`
}
