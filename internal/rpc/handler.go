package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"aicode/internal/action"
	"aicode/internal/config"
	"aicode/internal/debug"
	"aicode/internal/executor"
	"aicode/internal/llm"
	"aicode/internal/orchestrator"
	"aicode/internal/parser"
	"aicode/internal/tools"
)

const (
	serverName    = "aicode"
	serverVersion = "0.1.0"
)

type methodFunc func(ctx context.Context, params json.RawMessage) (any, *Error)

// Handler answers JSON-RPC requests for one client.
type Handler struct {
	cfg        *config.Config
	classifier *tools.CommandClassifier
	dispatcher *parser.Dispatcher
	registry   *tools.Registry
	routing    *orchestrator.RoutingEngine
	logger     *zap.Logger
	debug      *debug.DebugLogger

	mu       sync.Mutex
	executor *executor.Executor
	shutdown bool

	methods map[string]methodFunc
}

type Option func(*Handler)

func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

func WithDebugLogger(dl *debug.DebugLogger) Option {
	return func(h *Handler) {
		h.debug = dl
	}
}

func WithRegistry(r *tools.Registry) Option {
	return func(h *Handler) {
		if r != nil {
			h.registry = r
		}
	}
}

// NewHandler builds a handler from configuration. The working directory
// starts at cfg.Executor.WorkingDir and may be replaced by initialize.
func NewHandler(cfg *config.Config, opts ...Option) (*Handler, error) {
	if cfg == nil {
		var err error
		if cfg, err = config.LoadConfig(""); err != nil {
			return nil, err
		}
	}

	classifier, err := tools.NewCommandClassifier(cfg.Safety.ExtraPatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}
	mode, err := orchestrator.ParsePolicyMode(cfg.Policy.Mode)
	if err != nil {
		return nil, err
	}

	h := &Handler{
		cfg:        cfg,
		classifier: classifier,
		registry:   tools.DefaultRegistry(),
		routing:    orchestrator.NewRoutingEngine(mode),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.dispatcher = parser.NewDispatcher(parser.WithClassifier(classifier), parser.WithLogger(h.logger))
	h.executor = h.newExecutor(cfg.Executor.WorkingDir)

	h.methods = map[string]methodFunc{
		"initialize":   h.initialize,
		"parse":        h.parse,
		"clean":        h.clean,
		"is_dangerous": h.isDangerous,
		"tools/list":   h.toolsList,
		"execute":      h.execute,
		"shutdown":     h.handleShutdown,
	}

	return h, nil
}

func (h *Handler) newExecutor(workingDir string) *executor.Executor {
	return executor.New(workingDir,
		executor.WithClassifier(h.classifier),
		executor.WithLogger(h.logger),
		executor.WithDefaultTimeout(time.Duration(h.cfg.Executor.BashTimeoutSeconds)*time.Second))
}

// ShutdownRequested reports whether a shutdown call has been answered.
func (h *Handler) ShutdownRequested() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.shutdown
}

// HandleMessage decodes one raw message and dispatches it. It returns nil
// for notifications.
func (h *Handler) HandleMessage(ctx context.Context, data []byte) *Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		h.logger.Warn("Invalid JSON-RPC message", zap.Error(err))
		return newError(nil, CodeParseError, "Parse error", err.Error())
	}
	return h.Handle(ctx, req)
}

func (h *Handler) Handle(ctx context.Context, req Request) *Response {
	if req.Method == "" {
		return newError(req.ID, CodeInvalidRequest, "Invalid Request", nil)
	}

	method, ok := h.methods[req.Method]
	if !ok {
		if req.IsNotification() {
			return nil
		}
		return newError(req.ID, CodeMethodNotFound, "Method not found", req.Method)
	}

	h.logger.Debug("Handling request", zap.String("method", req.Method))
	result, rpcErr := h.call(ctx, method, req.Params)

	if req.IsNotification() {
		return nil
	}
	if rpcErr != nil {
		return newError(req.ID, rpcErr.Code, rpcErr.Message, rpcErr.Data)
	}
	return newResult(req.ID, result)
}

func (h *Handler) call(ctx context.Context, method methodFunc, params json.RawMessage) (result any, rpcErr *Error) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Method panicked", zap.Any("panic", r))
			result, rpcErr = nil, &Error{Code: CodeInternalError, Message: "Internal error", Data: fmt.Sprint(r)}
		}
	}()
	return method(ctx, params)
}

func decodeParams(raw json.RawMessage, v any) *Error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return invalidParams(err)
	}
	return nil
}

func (h *Handler) initialize(_ context.Context, raw json.RawMessage) (any, *Error) {
	var params struct {
		WorkingDir string `json:"working_dir"`
	}
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}

	h.mu.Lock()
	if params.WorkingDir != "" {
		abs, err := filepath.Abs(params.WorkingDir)
		if err != nil {
			h.mu.Unlock()
			return nil, invalidParams(err)
		}
		h.executor = h.newExecutor(abs)
	}
	workingDir := h.executor.WorkingDir()
	h.mu.Unlock()

	if h.debug.IsEnabled() && h.debug.SessionID() == "" {
		if err := h.debug.StartNewSession(""); err != nil {
			h.logger.Warn("Failed to start debug session", zap.Error(err))
		}
	}

	h.logger.Info("Session initialized", zap.String("working_dir", workingDir))

	return map[string]any{
		"serverInfo": map[string]any{
			"name":    serverName,
			"version": serverVersion,
		},
		"working_dir": workingDir,
		"policy":      string(h.routing.Mode()),
		"capabilities": map[string]any{
			"methods": h.methodNames(),
		},
	}, nil
}

func (h *Handler) methodNames() []string {
	return slices.Sorted(maps.Keys(h.methods))
}

type parseResult struct {
	Actions     []action.Record     `json:"actions"`
	Diagnostics []parser.Diagnostic `json:"diagnostics"`
}

func (h *Handler) parse(_ context.Context, raw json.RawMessage) (any, *Error) {
	var params struct {
		Text    *string            `json:"text"`
		Content []llm.ContentBlock `json:"content"`
	}
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}

	var res parser.Result
	switch {
	case len(params.Content) > 0:
		res = h.dispatcher.Parse(&llm.Response{Content: params.Content})
	case params.Text != nil:
		res = h.dispatcher.Parse(*params.Text)
	default:
		return nil, invalidParams(errors.New("text or content is required"))
	}

	diags := make([]string, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		diags = append(diags, d.String())
	}
	_ = h.debug.LogResponse(responseText(params.Text, params.Content), res.Actions, diags)

	out := parseResult{
		Actions:     action.Records(res.Actions),
		Diagnostics: res.Diagnostics,
	}
	if out.Diagnostics == nil {
		out.Diagnostics = []parser.Diagnostic{}
	}
	return out, nil
}

func responseText(text *string, content []llm.ContentBlock) string {
	if len(content) > 0 {
		return llm.Response{Content: content}.PlainText()
	}
	if text != nil {
		return *text
	}
	return ""
}

func (h *Handler) clean(_ context.Context, raw json.RawMessage) (any, *Error) {
	var params struct {
		Text string `json:"text"`
	}
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	return map[string]any{"text": parser.Clean(params.Text)}, nil
}

func (h *Handler) isDangerous(_ context.Context, raw json.RawMessage) (any, *Error) {
	var params struct {
		Command string `json:"command"`
	}
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	if params.Command == "" {
		return nil, invalidParams(errors.New("command is required"))
	}

	rule, dangerous := h.classifier.Match(params.Command)
	result := map[string]any{"dangerous": dangerous}
	if dangerous {
		result["rule"] = rule
	}
	return result, nil
}

func (h *Handler) toolsList(context.Context, json.RawMessage) (any, *Error) {
	return map[string]any{"tools": h.registry.Definitions()}, nil
}

type executeResult struct {
	Outcomes []orchestrator.Outcome `json:"outcomes"`
	Summary  orchestrator.Summary   `json:"summary"`
	Skipped  []parser.Diagnostic    `json:"diagnostics,omitempty"`
}

// execute runs a batch of action records. Actions that need approval run
// only when their index is listed in approved. Indices count mapped
// actions; unmappable records are reported and do not take a slot.
func (h *Handler) execute(ctx context.Context, raw json.RawMessage) (any, *Error) {
	var params struct {
		Actions  json.RawMessage `json:"actions"`
		Approved []int           `json:"approved"`
	}
	if rpcErr := decodeParams(raw, &params); rpcErr != nil {
		return nil, rpcErr
	}
	if len(params.Actions) == 0 {
		return nil, invalidParams(errors.New("actions is required"))
	}

	actions, diags := parser.FromRecords([]byte(params.Actions), h.classifier)

	h.mu.Lock()
	exec := h.executor
	h.mu.Unlock()

	runner := orchestrator.NewRunner(exec, h.routing, orchestrator.ApproveIndices(params.Approved),
		orchestrator.WithLogger(h.logger),
		orchestrator.WithDebugLogger(h.debug))
	outcomes := runner.Run(ctx, actions)

	return executeResult{
		Outcomes: outcomes,
		Summary:  orchestrator.Summarize(outcomes),
		Skipped:  diags,
	}, nil
}

func (h *Handler) handleShutdown(context.Context, json.RawMessage) (any, *Error) {
	h.mu.Lock()
	h.shutdown = true
	h.mu.Unlock()

	h.logger.Info("Shutdown requested")
	if err := h.debug.Close(); err != nil {
		h.logger.Warn("Failed to close debug log", zap.Error(err))
	}
	return map[string]any{"success": true}, nil
}
