// Package agent implements the Agent Orchestrator of spec.md §4.F: a
// single-user-turn tool-calling loop over the Repository and Graph Cache
// Engine. Grounded on the teacher's request-handler-calls-service
// pattern, generalized to a model-driven loop instead of a fixed
// sequence of calls.
package agent

import (
	"context"
	"fmt"

	"github.com/dataexplorer/core/internal/apperr"
	"github.com/dataexplorer/core/internal/conversation"
	"github.com/dataexplorer/core/internal/graphcache"
	"github.com/dataexplorer/core/internal/mlog"
	"github.com/dataexplorer/core/internal/repository"
	"github.com/dataexplorer/core/pkg/mmodel"
)

const (
	maxToolIterations = 8
	maxToolFailures   = 2
)

// SchemaSourceFactory builds the graphcache.Source backing
// graph_neighbours/find_fields_by_semantic_tag for one repository.
type SchemaSourceFactory func(repo repository.Repository) graphcache.Source

// Orchestrator runs one user turn at a time per session, per spec.md
// §4.F.
type Orchestrator struct {
	store           conversation.Store
	llm             LLMClient
	semantic        SemanticResolver
	repos           map[string]repository.Repository
	graphEngine     *graphcache.Engine
	schemaSourceFor SchemaSourceFactory
	log             mlog.Logger
}

// Options configures a new Orchestrator.
type Options struct {
	Store        conversation.Store
	LLM          LLMClient
	Semantic     SemanticResolver
	Repos        map[string]repository.Repository // keyed by data_source name, e.g. "primary", "remote"
	GraphEngine  *graphcache.Engine
	SchemaSource SchemaSourceFactory
	Logger       mlog.Logger
}

// New builds an Orchestrator from opts, filling in NoopSemanticResolver
// when opts.Semantic is nil.
func New(opts Options) *Orchestrator {
	semantic := opts.Semantic
	if semantic == nil {
		semantic = NoopSemanticResolver{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = mlog.NoopLogger{}
	}

	return &Orchestrator{
		store:           opts.Store,
		llm:             opts.LLM,
		semantic:        semantic,
		repos:           opts.Repos,
		graphEngine:     opts.GraphEngine,
		schemaSourceFor: opts.SchemaSource,
		log:             logger,
	}
}

func (o *Orchestrator) repoFor(dataSource string) (repository.Repository, error) {
	if dataSource == "" {
		dataSource = "primary"
	}

	repo, ok := o.repos[dataSource]
	if !ok {
		return nil, apperr.New(apperr.KindConfig, "no repository bound for data source "+dataSource)
	}

	return repo, nil
}

// Handle runs a single turn for sessionID: append the user message,
// compose the prompt, run the tool-calling loop, and append the final
// assistant message. It serializes turns per session (ErrConflict on a
// concurrent turn) and never bypasses the Repository's read-only
// validator.
func (o *Orchestrator) Handle(ctx context.Context, sessionID, userText string) (*mmodel.AssistantResponse, error) {
	release, err := o.store.AcquireTurn(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	resolvedText, err := o.semantic.Resolve(ctx, userText)
	if err != nil {
		resolvedText = userText
	}

	session, err = o.store.Append(ctx, sessionID, mmodel.Message{Role: mmodel.RoleUser, Content: resolvedText})
	if err != nil {
		return nil, err
	}

	repo, err := o.repoFor(session.Context.DataSource)
	if err != nil {
		return nil, err
	}

	runner := &toolRunner{
		repo:      repo,
		graphKind: mmodel.GraphKindSchema,
		graphID:   "default",
	}

	if o.graphEngine != nil && o.schemaSourceFor != nil {
		runner.graphEngine = o.graphEngine
		runner.graphSource = o.schemaSourceFor(repo)
	}

	response, err := o.loop(ctx, sessionID, session, runner, nil)
	if err != nil {
		return nil, err
	}

	return response, nil
}

// Emitter receives one streaming event (tool_start, tool_end, token,
// final) during HandleStreaming.
type Emitter func(event string, data any)

// HandleStreaming runs the same loop as Handle, additionally emitting
// (a) one event per tool-call start/end and (b) a final token-chunk
// event, matching spec.md §4.F's streaming contract. Client cancellation
// of ctx aborts the LLM call and any in-flight tool call, per spec.
func (o *Orchestrator) HandleStreaming(ctx context.Context, sessionID, userText string, emit Emitter) (*mmodel.AssistantResponse, error) {
	release, err := o.store.AcquireTurn(sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := o.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	resolvedText, err := o.semantic.Resolve(ctx, userText)
	if err != nil {
		resolvedText = userText
	}

	session, err = o.store.Append(ctx, sessionID, mmodel.Message{Role: mmodel.RoleUser, Content: resolvedText})
	if err != nil {
		return nil, err
	}

	repo, err := o.repoFor(session.Context.DataSource)
	if err != nil {
		return nil, err
	}

	runner := &toolRunner{
		repo:      repo,
		graphKind: mmodel.GraphKindSchema,
		graphID:   "default",
	}

	if o.graphEngine != nil && o.schemaSourceFor != nil {
		runner.graphEngine = o.graphEngine
		runner.graphSource = o.schemaSourceFor(repo)
	}

	return o.loop(ctx, sessionID, session, runner, emit)
}

// composeMessages builds the prompt for one LLM call: a system preamble
// carrying the session's data-source context, followed by the windowed
// message history. The caller (Handle/HandleStreaming) has already
// appended this turn's user message to session through the semantic
// resolver, so the resolved text reaches the model as part of history
// rather than as a separately threaded, easily-dropped parameter.
func (o *Orchestrator) composeMessages(session *mmodel.Session) []mmodel.Message {
	const windowSize = 10

	history := session.Messages
	if len(history) > windowSize {
		history = history[len(history)-windowSize:]
	}

	preamble := mmodel.Message{
		Role:    mmodel.RoleSystem,
		Content: fmt.Sprintf("data_source=%s data_product=%s schema=%s table=%s", session.Context.DataSource, session.Context.DataProduct, session.Context.Schema, session.Context.Table),
	}

	messages := make([]mmodel.Message, 0, len(history)+1)
	messages = append(messages, preamble)
	messages = append(messages, history...)

	return messages
}

func (o *Orchestrator) loop(ctx context.Context, sessionID string, session *mmodel.Session, runner *toolRunner, emit Emitter) (*mmodel.AssistantResponse, error) {
	failures := 0

	for iteration := 0; iteration < maxToolIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, apperr.Wrap(apperr.KindTimeout, "turn cancelled", err)
		}

		messages := o.composeMessages(session)

		completion, err := o.llm.Complete(ctx, messages, Catalogue)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindBackendUnavailable, "LLM call failed", err)
		}

		if completion.Done || len(completion.ToolCalls) == 0 {
			return o.finalize(ctx, sessionID, completion, emit)
		}

		for _, call := range completion.ToolCalls {
			if err := ctx.Err(); err != nil {
				return nil, apperr.Wrap(apperr.KindTimeout, "turn cancelled mid tool call", err)
			}

			if emit != nil {
				emit("tool_start", call)
			}

			result, toolErr := runner.run(ctx, call)

			if emit != nil {
				emit("tool_end", map[string]any{"id": call.ID, "name": call.Name, "error": errString(toolErr)})
			}

			if toolErr != nil {
				failures++

				if failures > maxToolFailures {
					return &mmodel.AssistantResponse{
						Message:               "I ran into repeated errors completing that request. Could you clarify what you're looking for?",
						RequiresClarification: true,
					}, nil
				}

				result = fmt.Sprintf(`{"error": %q}`, toolErr.Error())
			}

			updated, appendErr := o.store.Append(ctx, sessionID, mmodel.Message{
				Role:    mmodel.RoleTool,
				Content: result,
				Metadata: map[string]any{"tool_call_id": call.ID, "tool_name": call.Name},
			})
			if appendErr != nil {
				return nil, appendErr
			}

			session = updated
		}
	}

	return &mmodel.AssistantResponse{
		Message:               "I wasn't able to complete that request within the available tool-call budget.",
		RequiresClarification: true,
	}, nil
}

func (o *Orchestrator) finalize(ctx context.Context, sessionID string, completion Completion, emit Emitter) (*mmodel.AssistantResponse, error) {
	if _, err := o.store.Append(ctx, sessionID, mmodel.Message{Role: mmodel.RoleAssistant, Content: completion.FinalText}); err != nil {
		return nil, err
	}

	if emit != nil {
		emit("token", completion.FinalText)
	}

	response := &mmodel.AssistantResponse{
		Message:    completion.FinalText,
		Confidence: completion.Confidence,
	}

	if emit != nil {
		emit("final", response)
	}

	return response, nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}

	return err.Error()
}
