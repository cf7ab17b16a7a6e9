package debug

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"aicode/internal/action"
)

const maxContentLen = 500

var ErrNoSession = errors.New("no debug session started")

// DebugLogger writes a JSON-lines trace per session: raw responses, parsed
// actions, approval decisions and execution results. A nil or disabled
// logger accepts every call and writes nothing.
type DebugLogger struct {
	enabled bool
	baseDir string

	mu          sync.Mutex
	sessionID   string
	currentFile string
	file        *os.File
	logger      *zap.Logger
}

// NewDebugLogger creates a new debug logger
func NewDebugLogger(enabled bool, baseDir string) *DebugLogger {
	if baseDir == "" {
		baseDir = "/tmp/aicode-debug"
	}

	return &DebugLogger{
		enabled: enabled,
		baseDir: baseDir,
		logger:  zap.NewNop(),
	}
}

// StartNewSession opens a new trace file. An empty sessionID gets a random
// one. Any previous session file is closed.
func (dl *DebugLogger) StartNewSession(sessionID string) error {
	if !dl.IsEnabled() {
		return nil
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if err := os.MkdirAll(dl.baseDir, 0755); err != nil {
		return fmt.Errorf("failed to create debug directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dl.baseDir, fmt.Sprintf("session-%s-%s.jsonl", sessionID, timestamp))

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open debug file: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), zapcore.DebugLevel)

	dl.mu.Lock()
	defer dl.mu.Unlock()

	dl.closeLocked()
	dl.sessionID = sessionID
	dl.currentFile = path
	dl.file = file
	dl.logger = zap.New(core).With(zap.String("session", sessionID))

	dl.logger.Info("session started", zap.String("file", path))
	return nil
}

func (dl *DebugLogger) write(msg string, fields ...zap.Field) error {
	if !dl.IsEnabled() {
		return nil
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()

	if dl.file == nil {
		return ErrNoSession
	}
	dl.logger.Info(msg, fields...)
	return nil
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxContentLen {
		return s
	}
	return string(r[:maxContentLen]) + "... [truncated]"
}

// LogResponse records a model response and what was parsed out of it.
func (dl *DebugLogger) LogResponse(text string, actions []action.Action, diagnostics []string) error {
	kinds := make([]string, 0, len(actions))
	for _, a := range actions {
		kinds = append(kinds, string(a.Kind()))
	}

	return dl.write("response",
		zap.String("text", truncate(text)),
		zap.Strings("actions", kinds),
		zap.Strings("diagnostics", diagnostics))
}

// LogDecision records whether an action was approved, skipped or refused.
func (dl *DebugLogger) LogDecision(index int, a action.Action, decision, reason string) error {
	return dl.write("decision",
		zap.Int("index", index),
		zap.String("kind", string(a.Kind())),
		zap.String("description", a.Description()),
		zap.Bool("requires_confirmation", a.RequiresConfirmation()),
		zap.String("decision", decision),
		zap.String("reason", reason))
}

// LogAction records the outcome of one executed action.
func (dl *DebugLogger) LogAction(index int, a action.Action, success bool, output, errText string) error {
	fields := []zap.Field{
		zap.Int("index", index),
		zap.String("kind", string(a.Kind())),
		zap.Bool("success", success),
		zap.String("output", truncate(output)),
	}
	if errText != "" {
		fields = append(fields, zap.String("error", errText))
	}

	switch v := a.(type) {
	case action.Bash:
		fields = append(fields, zap.String("command", v.Command()))
	case action.CodeEdit:
		fields = append(fields, zap.String("file_path", v.FilePath()), zap.String("edit_type", string(v.EditType())))
	case action.FileRead:
		fields = append(fields, zap.String("file_path", v.FilePath()))
	case action.FileWrite:
		fields = append(fields, zap.String("file_path", v.FilePath()))
	}

	return dl.write("action", fields...)
}

// LogError logs critical errors with context
func (dl *DebugLogger) LogError(phase string, err error, context string) error {
	return dl.write("error",
		zap.String("phase", phase),
		zap.String("context", context),
		zap.Error(err))
}

// GetCurrentLogFile returns the path to the current log file
func (dl *DebugLogger) GetCurrentLogFile() string {
	if dl == nil {
		return ""
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return dl.currentFile
}

func (dl *DebugLogger) SessionID() string {
	if dl == nil {
		return ""
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return dl.sessionID
}

// IsEnabled returns whether debugging is enabled
func (dl *DebugLogger) IsEnabled() bool {
	return dl != nil && dl.enabled
}

func (dl *DebugLogger) Close() error {
	if dl == nil {
		return nil
	}
	dl.mu.Lock()
	defer dl.mu.Unlock()
	return dl.closeLocked()
}

func (dl *DebugLogger) closeLocked() error {
	if dl.file == nil {
		return nil
	}
	_ = dl.logger.Sync()
	err := dl.file.Close()
	dl.file = nil
	dl.logger = zap.NewNop()
	return err
}
