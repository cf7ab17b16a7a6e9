package executor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"aicode/internal/action"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("uses POSIX shell syntax")
	}
}

func TestWriteThenRead(t *testing.T) {
	ex := New(t.TempDir())
	ctx := context.Background()

	content := "line one\nline two\n\ttabbed ✓\n"
	res := ex.Execute(ctx, action.NewFileWrite("docs/notes.txt", content, "save notes"))
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Wrote 30 bytes to docs/notes.txt", res.Output)
	assert.Nil(t, res.ExitCode)

	res = ex.Execute(ctx, action.NewFileRead("docs/notes.txt", "Read docs/notes.txt"))
	require.True(t, res.Success, res.Error)
	assert.Equal(t, content, res.Output)
}

func TestCodeEdit(t *testing.T) {
	dir := t.TempDir()
	ex := New(dir)
	ctx := context.Background()

	res := ex.Execute(ctx, action.NewCodeEdit("pkg/a.go", "package pkg\n", action.EditCreate, "create"))
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Created pkg/a.go (12 bytes)", res.Output)

	res = ex.Execute(ctx, action.NewCodeEdit("pkg/a.go", "package pkg2\n", action.EditModify, "modify"))
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Modified pkg/a.go (13 bytes)", res.Output)

	data, err := os.ReadFile(filepath.Join(dir, "pkg", "a.go"))
	require.NoError(t, err)
	assert.Equal(t, "package pkg2\n", string(data))

	res = ex.Execute(ctx, action.NewCodeEdit("pkg/a.go", "", action.EditDelete, "delete"))
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "Deleted pkg/a.go", res.Output)
	assert.NoFileExists(t, filepath.Join(dir, "pkg", "a.go"))
}

func TestDeleteMissingFails(t *testing.T) {
	res := New(t.TempDir()).Execute(context.Background(), action.NewCodeEdit("ghost.txt", "", action.EditDelete, ""))

	assert.False(t, res.Success)
	assert.Equal(t, "File not found: ghost.txt", res.Error)
}

func TestUnknownEditType(t *testing.T) {
	res := New(t.TempDir()).Execute(context.Background(), action.NewCodeEdit("a.txt", "x", "rename", ""))

	assert.False(t, res.Success)
	assert.Equal(t, "Unknown edit type: rename", res.Error)
}

func TestFileReadFailures(t *testing.T) {
	dir := t.TempDir()
	ex := New(dir)
	ctx := context.Background()

	res := ex.Execute(ctx, action.NewFileRead("missing.txt", ""))
	assert.False(t, res.Success)
	assert.Equal(t, "File not found: missing.txt", res.Error)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "blob.bin"), []byte{0xff, 0xfe, 0x00}, 0644))
	res = ex.Execute(ctx, action.NewFileRead("blob.bin", ""))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Failed to read file")
}

func TestAbsolutePathsUsedAsIs(t *testing.T) {
	other := t.TempDir()
	target := filepath.Join(other, "abs.txt")

	res := New(t.TempDir()).Execute(context.Background(), action.NewFileWrite(target, "abs", ""))
	require.True(t, res.Success, res.Error)
	assert.FileExists(t, target)
}

func TestBashResults(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	ex := New(dir)
	ctx := context.Background()

	tests := []struct {
		name     string
		bash     action.Bash
		success  bool
		output   string
		errText  string
		exitCode int
	}{
		{"stdout", action.NewBash("echo hello", ""), true, "hello\n", "", 0},
		{"stderr fallback", action.NewBash("echo warn >&2", ""), true, "warn\n", "", 0},
		{"nonzero with stderr", action.NewBash("echo bad >&2; exit 2", ""), false, "bad\n", "bad\n", 2},
		{"nonzero silent", action.NewBash("exit 1", ""), false, "", "command exited with code 1", 1},
		{"working dir", action.NewBash("basename \"$(pwd)\"", "", action.WithWorkingDir("sub")), true, "sub\n", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ex.Execute(ctx, tt.bash)
			assert.Equal(t, tt.success, res.Success)
			assert.Equal(t, tt.output, res.Output)
			assert.Equal(t, tt.errText, res.Error)
			require.NotNil(t, res.ExitCode)
			assert.Equal(t, tt.exitCode, *res.ExitCode)
		})
	}
}

func TestBatchContinuesAfterFailure(t *testing.T) {
	skipOnWindows(t)
	dir := t.TempDir()

	results := New(dir).ExecuteAll(context.Background(), []action.Action{
		action.NewBash("exit 1", "fail"),
		action.NewFileWrite("after.txt", "still written", "write"),
	})

	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	require.NotNil(t, results[0].ExitCode)
	assert.Equal(t, 1, *results[0].ExitCode)
	assert.True(t, results[1].Success)
	assert.FileExists(t, filepath.Join(dir, "after.txt"))
}

func TestNilActionFails(t *testing.T) {
	res := New(t.TempDir()).Execute(context.Background(), nil)
	assert.False(t, res.Success)
}

func TestResultJSON(t *testing.T) {
	code := 0
	data, err := json.Marshal(Result{Success: true, Output: "ok", ExitCode: &code})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"output":"ok","error":"","exit_code":0}`, string(data))

	data, err = json.Marshal(Result{Error: "File not found: x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":false,"output":"","error":"File not found: x"}`, string(data))
}

func TestFailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ex := New(t.TempDir(), WithLogger(zap.New(core)))

	ex.Execute(context.Background(), action.NewFileRead("nope", ""))

	assert.Equal(t, 1, logs.FilterMessage("Executing action").Len())
	failed := logs.FilterMessage("Action failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, "File not found: nope", failed[0].ContextMap()["error"])
}
