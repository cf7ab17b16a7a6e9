package agent

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aicode/internal/action"
	"aicode/internal/config"
	"aicode/internal/llm"
)

type fakeTransport struct {
	native    bool
	responses []llm.Response
	err       error
	requests  []llm.ChatRequest
}

func (f *fakeTransport) Chat(_ context.Context, req llm.ChatRequest) (llm.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return llm.Response{}, f.err
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

func (f *fakeTransport) Capabilities() llm.Capabilities {
	return llm.Capabilities{NativeTools: f.native}
}

func TestChatWithoutTransport(t *testing.T) {
	_, err := New(nil).Chat(context.Background(), "hi", nil)
	assert.True(t, errors.Is(err, ErrNoTransport))
}

func TestChatPromptMode(t *testing.T) {
	reply := "<think>plan</think>Running tests.\n<bash_command description=\"test\">pytest</bash_command>"
	transport := &fakeTransport{responses: []llm.Response{{Text: reply}, {Text: "done"}}}
	a := New(transport)

	turn, err := a.Chat(context.Background(), "run the tests", []string{"app.py", "test_app.py"})
	require.NoError(t, err)

	assert.Equal(t, reply, turn.Text)
	require.Len(t, turn.Actions, 1)
	assert.Equal(t, "pytest", turn.Actions[0].(action.Bash).Command())
	assert.Empty(t, turn.PendingConfirmation())

	req := transport.requests[0]
	assert.Nil(t, req.Tools)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, llm.RoleSystem, req.Messages[0].Role)
	assert.Equal(t, DefaultSystemPrompt, req.Messages[0].Content)

	user := req.Messages[1].Content
	assert.True(t, strings.HasPrefix(user, "run the tests"))
	assert.Contains(t, user, "Context files:\n- app.py\n- test_app.py")
	assert.Contains(t, user, "<file_edit path=")
	assert.Contains(t, user, "<bash_command description=")
	assert.Contains(t, user, "<read_file path=")
	assert.Contains(t, user, "<write_file path=")

	_, err = a.Chat(context.Background(), "thanks", nil)
	require.NoError(t, err)

	second := transport.requests[1].Messages
	require.Len(t, second, 4)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "run the tests"}, second[1])
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: reply}, second[2])
	assert.Equal(t, llm.RoleUser, second[3].Role)

	history := a.History()
	require.Len(t, history, 4)
	assert.Equal(t, "done", history[3].Content)
}

func TestChatNativeTools(t *testing.T) {
	transport := &fakeTransport{
		native: true,
		responses: []llm.Response{{Content: []llm.ContentBlock{
			{Type: llm.BlockText, Text: "Cleaning up."},
			{Type: llm.BlockToolUse, ID: "1", Name: "bash", Input: map[string]any{"command": "rm -rf /"}},
		}}},
	}
	a := New(transport)

	turn, err := a.Chat(context.Background(), "clean", nil)
	require.NoError(t, err)

	assert.Equal(t, "Cleaning up.", turn.Text)
	require.Len(t, turn.Actions, 1)
	assert.Equal(t, []int{0}, turn.PendingConfirmation())

	req := transport.requests[0]
	assert.Len(t, req.Tools, 4)
	assert.NotContains(t, req.Messages[len(req.Messages)-1].Content, "<file_edit")
}

func TestChatErrorLeavesHistoryUntouched(t *testing.T) {
	boom := errors.New("connection refused")
	a := New(&fakeTransport{err: boom})

	_, err := a.Chat(context.Background(), "hello", nil)
	assert.True(t, errors.Is(err, boom))
	assert.Empty(t, a.History())
}

func TestHistoryIsACopy(t *testing.T) {
	a := New(&fakeTransport{responses: []llm.Response{{Text: "ok"}}})
	_, err := a.Chat(context.Background(), "hi", nil)
	require.NoError(t, err)

	h := a.History()
	h[0].Content = "tampered"
	assert.Equal(t, "hi", a.History()[0].Content)
}

func TestChatIncludesGitStatus(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not installed")
	}
	dir := t.TempDir()
	require.NoError(t, exec.Command("git", "init", dir).Run())
	require.NoError(t, exec.Command("touch", dir+"/new.txt").Run())

	transport := &fakeTransport{responses: []llm.Response{{Text: "ok"}}}
	a := New(transport, WithGitStatus(dir), WithSystemPrompt("custom"))

	_, err := a.Chat(context.Background(), "status?", nil)
	require.NoError(t, err)

	msgs := transport.requests[0].Messages
	assert.Equal(t, "custom", msgs[0].Content)
	assert.Contains(t, msgs[1].Content, "Current git status:\n?? new.txt")
}

func TestNewFromConfig(t *testing.T) {
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Agent.NativeTools = false
	cfg.Agent.IncludeGitStatus = false
	cfg.Agent.SystemPrompt = "You edit Go code."
	cfg.Safety.ExtraPatterns = []string{`git\s+push\s+--force`}

	transport := &fakeTransport{
		native:    true,
		responses: []llm.Response{{Text: "<bash_command>git push --force</bash_command>"}},
	}
	a, err := NewFromConfig(cfg, transport, nil)
	require.NoError(t, err)

	turn, err := a.Chat(context.Background(), "ship it", nil)
	require.NoError(t, err)

	req := transport.requests[0]
	assert.Nil(t, req.Tools, "native tools disabled by config")
	assert.Equal(t, "You edit Go code.", req.Messages[0].Content)
	assert.Contains(t, req.Messages[1].Content, "<bash_command description=")
	assert.Equal(t, []int{0}, turn.PendingConfirmation())

	cfg.Safety.ExtraPatterns = []string{"("}
	_, err = NewFromConfig(cfg, transport, nil)
	assert.Error(t, err)
}
