// Package llm defines the chat contract between the agent and a model
// transport. Transports live outside this module.
package llm

import (
	"context"
	"strings"

	"aicode/internal/tools"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	BlockText    = "text"
	BlockToolUse = "tool_use"
)

// ContentBlock is one element of a structured model response. Text blocks
// carry Text; tool_use blocks carry ID, Name and Input.
type ContentBlock struct {
	Type  string         `json:"type"`
	Text  string         `json:"text,omitempty"`
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

// Response is what a transport returns. Content is empty for plain-text
// transports.
type Response struct {
	Text    string         `json:"text,omitempty"`
	Content []ContentBlock `json:"content,omitempty"`
}

func (r Response) ContentBlocks() []ContentBlock {
	return r.Content
}

// PlainText returns Text, or the joined text blocks when Text is empty.
func (r Response) PlainText() string {
	if r.Text != "" || len(r.Content) == 0 {
		return r.Text
	}

	var parts []string
	for _, block := range r.Content {
		if block.Type == BlockText && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

type ChatRequest struct {
	Messages []Message
	Tools    []tools.ToolDefinition
}

type Capabilities struct {
	// NativeTools is set when the model accepts tool definitions and returns
	// tool_use blocks.
	NativeTools bool
}

// ChatTransport sends one request to a model and returns its reply.
type ChatTransport interface {
	Chat(ctx context.Context, req ChatRequest) (Response, error)
	Capabilities() Capabilities
}

// TransportFunc adapts a function to ChatTransport for transports without
// native tool support.
type TransportFunc func(ctx context.Context, req ChatRequest) (Response, error)

func (f TransportFunc) Chat(ctx context.Context, req ChatRequest) (Response, error) {
	return f(ctx, req)
}

func (f TransportFunc) Capabilities() Capabilities {
	return Capabilities{}
}
