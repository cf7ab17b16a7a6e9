// Package parser turns model responses into actions.
//
// Three encodings are recognized: native tool_use content blocks, JSON
// action records, and inline tag markup. The Dispatcher picks the strategy
// from the shape of the response.
package parser

import (
	"strings"

	"go.uber.org/zap"

	"aicode/internal/action"
	"aicode/internal/llm"
	"aicode/internal/tools"
)

// ContentResponse is a response made of typed content blocks.
type ContentResponse interface {
	ContentBlocks() []llm.ContentBlock
}

type plainTexter interface {
	PlainText() string
}

type Dispatcher struct {
	classifier action.Classifier
	logger     *zap.Logger
}

type Option func(*Dispatcher)

func WithClassifier(c action.Classifier) Option {
	return func(d *Dispatcher) {
		if c != nil {
			d.classifier = c
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		classifier: tools.DefaultClassifier(),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Parse extracts the actions from resp. It never fails; anything it cannot
// use is reported in Result.Diagnostics.
func (d *Dispatcher) Parse(resp any) Result {
	var result Result

	switch v := resp.(type) {
	case string:
		result = d.parseText(v)
	case []byte:
		result = d.parseText(string(v))
	case *llm.Response:
		if v == nil {
			result.Diagnostics = append(result.Diagnostics, newDiagnostic(SourceDispatch, "", "nil response"))
			break
		}
		result = d.parseContent(*v)
	case ContentResponse:
		result = d.parseContent(v)
	default:
		result.Diagnostics = append(result.Diagnostics, newDiagnostic(SourceDispatch, "", "unsupported response type %T", resp))
	}

	for _, diag := range result.Diagnostics {
		d.logger.Debug("Skipped response fragment",
			zap.String("source", diag.Source),
			zap.String("reason", diag.Message),
			zap.String("snippet", diag.Snippet))
	}
	d.logger.Debug("Parsed response",
		zap.Int("actions", len(result.Actions)),
		zap.Int("diagnostics", len(result.Diagnostics)))

	return result
}

func (d *Dispatcher) parseContent(resp ContentResponse) Result {
	blocks := resp.ContentBlocks()
	if len(blocks) == 0 {
		if pt, ok := resp.(plainTexter); ok {
			return d.parseText(pt.PlainText())
		}
		return Result{}
	}

	var result Result

	for _, block := range blocks {
		if block.Type != llm.BlockToolUse {
			continue
		}
		a, ok := FromToolCall(block.Name, block.Input, d.classifier)
		if !ok {
			result.Diagnostics = append(result.Diagnostics, newDiagnostic(SourceToolCall, block.ID, "unknown tool %q", block.Name))
			continue
		}
		result.Actions = append(result.Actions, a)
	}

	for _, block := range blocks {
		if block.Type != llm.BlockText || block.Text == "" {
			continue
		}
		result.merge(ExtractTags(Clean(block.Text), d.classifier))
	}

	return result
}

func (d *Dispatcher) parseText(text string) Result {
	var result Result

	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		actions, diags := FromRecords(trimmed, d.classifier)
		result.Diagnostics = append(result.Diagnostics, diags...)
		if len(actions) > 0 {
			result.Actions = actions
			return result
		}
	}

	result.merge(ExtractTags(Clean(text), d.classifier))
	return result
}

var defaultDispatcher = NewDispatcher()

// Parse runs resp through a dispatcher using the built-in safety rules.
func Parse(resp any) Result {
	return defaultDispatcher.Parse(resp)
}
