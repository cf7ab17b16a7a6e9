package agent

import (
	"fmt"

	"go.uber.org/zap"

	"aicode/internal/config"
	"aicode/internal/llm"
	"aicode/internal/parser"
	"aicode/internal/tools"
)

// NewFromConfig builds an agent from the [agent] and [safety] sections.
// Options are applied after the configured ones.
func NewFromConfig(cfg *config.Config, transport llm.ChatTransport, logger *zap.Logger, opts ...Option) (*Agent, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	classifier, err := tools.NewCommandClassifier(cfg.Safety.ExtraPatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}

	configured := []Option{
		WithLogger(logger),
		WithDispatcher(parser.NewDispatcher(parser.WithClassifier(classifier), parser.WithLogger(logger))),
		WithNativeTools(cfg.Agent.NativeTools),
		WithSystemPrompt(cfg.Agent.SystemPrompt),
	}
	if cfg.Agent.IncludeGitStatus {
		configured = append(configured, WithGitStatus(cfg.Executor.WorkingDir))
	}

	return New(transport, append(configured, opts...)...), nil
}
