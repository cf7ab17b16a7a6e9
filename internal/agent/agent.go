// Package agent drives one conversational turn: it assembles the outbound
// messages, calls the chat transport, parses the reply into actions and
// keeps the conversation history.
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"aicode/internal/debug"
	"aicode/internal/llm"
	"aicode/internal/parser"
	"aicode/internal/tools"
)

// Agent is not safe for concurrent use; each conversation owns one.
type Agent struct {
	transport        llm.ChatTransport
	dispatcher       *parser.Dispatcher
	registry         *tools.Registry
	git              *tools.GitOperations
	systemPrompt     string
	allowNative      bool
	includeGitStatus bool
	history          []llm.Message
	logger           *zap.Logger
	debug            *debug.DebugLogger
}

type Option func(*Agent)

func WithDispatcher(d *parser.Dispatcher) Option {
	return func(a *Agent) {
		if d != nil {
			a.dispatcher = d
		}
	}
}

// WithRegistry sets the tool definitions sent to native-tool transports.
func WithRegistry(r *tools.Registry) Option {
	return func(a *Agent) {
		if r != nil {
			a.registry = r
		}
	}
}

// WithNativeTools(false) keeps the agent in markup mode even when the
// transport accepts tool definitions.
func WithNativeTools(enabled bool) Option {
	return func(a *Agent) {
		a.allowNative = enabled
	}
}

func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) {
		a.systemPrompt = prompt
	}
}

// WithGitStatus adds `git status --porcelain` of workingDir to every user
// message when workingDir is inside a repository.
func WithGitStatus(workingDir string) Option {
	return func(a *Agent) {
		a.includeGitStatus = true
		a.git = tools.NewGitOperations(workingDir)
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func WithDebugLogger(dl *debug.DebugLogger) Option {
	return func(a *Agent) {
		a.debug = dl
	}
}

func New(transport llm.ChatTransport, opts ...Option) *Agent {
	a := &Agent{
		transport:   transport,
		dispatcher:  parser.NewDispatcher(),
		registry:    tools.DefaultRegistry(),
		allowNative: true,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.systemPrompt == "" {
		a.systemPrompt = DefaultSystemPrompt
		if a.nativeTools() {
			a.systemPrompt = nativeToolsSystemPrompt
		}
	}

	a.logger.Info("Agent initialized", zap.Bool("native_tools", a.nativeTools()))
	return a
}

func (a *Agent) nativeTools() bool {
	return a.allowNative && a.transport != nil && a.transport.Capabilities().NativeTools
}

// Chat sends message to the model and returns the parsed reply. The raw
// message and reply text are appended to the history only on success.
func (a *Agent) Chat(ctx context.Context, message string, contextFiles []string) (*Turn, error) {
	if a.transport == nil {
		return nil, ErrNoTransport
	}

	native := a.nativeTools()
	enhanced := a.enhanceMessage(ctx, message, contextFiles, !native)

	messages := make([]llm.Message, 0, len(a.history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: a.systemPrompt})
	messages = append(messages, a.history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: enhanced})

	req := llm.ChatRequest{Messages: messages}
	if native {
		req.Tools = a.registry.Definitions()
	}

	resp, err := a.transport.Chat(ctx, req)
	if err != nil {
		_ = a.debug.LogError("chat", err, message)
		return nil, fmt.Errorf("chat transport failed: %w", err)
	}

	result := a.dispatcher.Parse(resp)
	text := resp.PlainText()

	a.history = append(a.history,
		llm.Message{Role: llm.RoleUser, Content: message},
		llm.Message{Role: llm.RoleAssistant, Content: text},
	)

	diags := make([]string, 0, len(result.Diagnostics))
	for _, d := range result.Diagnostics {
		diags = append(diags, d.String())
	}
	_ = a.debug.LogResponse(text, result.Actions, diags)

	a.logger.Info("Chat completed",
		zap.Int("actions", len(result.Actions)),
		zap.Int("diagnostics", len(result.Diagnostics)))

	return &Turn{
		Text:        text,
		Actions:     result.Actions,
		Diagnostics: result.Diagnostics,
	}, nil
}

// History returns a copy of the conversation so far.
func (a *Agent) History() []llm.Message {
	out := make([]llm.Message, len(a.history))
	copy(out, a.history)
	return out
}
