package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dataexplorer/core/internal/apperr"
	"github.com/dataexplorer/core/pkg/mmodel"
)

// ToolSpec describes one callable tool offered to the LLM.
type ToolSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ToolCall is one invocation the LLM asked the orchestrator to perform.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// Completion is one LLM turn's output: either a set of tool calls to run
// next, or a final textual answer (Done=true).
type Completion struct {
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	FinalText  string     `json:"final_text,omitempty"`
	Confidence float64    `json:"confidence,omitempty"`
	Done       bool       `json:"done"`
}

// LLMClient abstracts the model vendor behind the minimal tool-calling
// contract spec.md §1 treats as the non-goal boundary: concrete vendor
// wiring stops here.
type LLMClient interface {
	Complete(ctx context.Context, messages []mmodel.Message, tools []ToolSpec) (Completion, error)
}

// StubLLMClient is a deterministic LLMClient used in tests and as the
// default when APP_LLM_ENDPOINT is unset. It issues exactly one
// list_data_products tool call per turn, then returns a final answer
// from the tool result — enough to exercise the orchestrator loop
// without a real model.
type StubLLMClient struct{}

func (StubLLMClient) Complete(_ context.Context, messages []mmodel.Message, _ []ToolSpec) (Completion, error) {
	if len(messages) == 0 {
		return Completion{Done: true, FinalText: "no input"}, nil
	}

	last := messages[len(messages)-1]

	switch last.Role {
	case mmodel.RoleTool:
		return Completion{
			Done:       true,
			FinalText:  fmt.Sprintf("Based on the available data: %s", last.Content),
			Confidence: 0.5,
		}, nil
	case mmodel.RoleUser:
		return Completion{
			ToolCalls: []ToolCall{{ID: "call-1", Name: "list_data_products", Arguments: map[string]any{}}},
		}, nil
	default:
		return Completion{Done: true, FinalText: "I don't have enough context to help with that.", Confidence: 0.1}, nil
	}
}

// HTTPLLMClient POSTs the conversation and tool catalogue to a remote
// endpoint and decodes a Completion from the JSON response, bearer-
// authenticated with key. Grounded on the teacher's
// components/mdz/internal/rest package, which drives its CLI entirely
// through stdlib net/http clients rather than a generic REST library.
type HTTPLLMClient struct {
	Endpoint string
	Key      string
	client   *http.Client
}

// NewHTTPLLMClient builds a client targeting endpoint, authenticating
// with a bearer key.
func NewHTTPLLMClient(endpoint, key string) *HTTPLLMClient {
	return &HTTPLLMClient{
		Endpoint: endpoint,
		Key:      key,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type httpCompletionRequest struct {
	Messages []mmodel.Message `json:"messages"`
	Tools    []ToolSpec       `json:"tools"`
}

func (c *HTTPLLMClient) Complete(ctx context.Context, messages []mmodel.Message, tools []ToolSpec) (Completion, error) {
	body, err := json.Marshal(httpCompletionRequest{Messages: messages, Tools: tools})
	if err != nil {
		return Completion{}, apperr.Wrap(apperr.KindInternal, "failed to encode LLM request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Completion{}, apperr.Wrap(apperr.KindInternal, "failed to build LLM request", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.Key != "" {
		req.Header.Set("Authorization", "Bearer "+c.Key)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Completion{}, apperr.Wrap(apperr.KindBackendUnavailable, "LLM endpoint request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Completion{}, apperr.New(apperr.KindBackendUnavailable, fmt.Sprintf("LLM endpoint returned status %d", resp.StatusCode))
	}

	if resp.StatusCode >= 400 {
		return Completion{}, apperr.New(apperr.KindQueryInvalid, fmt.Sprintf("LLM endpoint rejected request with status %d", resp.StatusCode))
	}

	var completion Completion
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return Completion{}, apperr.Wrap(apperr.KindInternal, "failed to decode LLM response", err)
	}

	return completion, nil
}
