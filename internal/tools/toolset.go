package tools

import (
	"context"
	"path/filepath"
	"time"
)

// ToolSet bundles the file, shell and git helpers bound to one working
// directory.
type ToolSet struct {
	filesystem *FileSystem
	git        *GitOperations
	shell      *ShellRunner
	classifier *CommandClassifier
	workingDir string
}

func NewToolSet(workingDir string, classifier *CommandClassifier) *ToolSet {
	if workingDir == "" {
		workingDir = "."
	}
	if classifier == nil {
		classifier = DefaultClassifier()
	}

	return &ToolSet{
		filesystem: NewFileSystem(workingDir),
		git:        NewGitOperations(workingDir),
		shell:      NewShellRunner(),
		classifier: classifier,
		workingDir: workingDir,
	}
}

func (ts *ToolSet) WorkingDir() string {
	return ts.workingDir
}

func (ts *ToolSet) Classifier() *CommandClassifier {
	return ts.classifier
}

func (ts *ToolSet) Resolve(path string) (string, error) {
	return ts.filesystem.Resolve(path)
}

func (ts *ToolSet) Exists(path string) bool {
	return ts.filesystem.Exists(path)
}

func (ts *ToolSet) ReadFile(path string) ([]byte, error) {
	return ts.filesystem.ReadFile(path)
}

func (ts *ToolSet) WriteFile(path, content string) (int, error) {
	return ts.filesystem.WriteFile(path, content)
}

func (ts *ToolSet) DeleteFile(path string) error {
	return ts.filesystem.DeleteFile(path)
}

// ExecuteCommand runs command in dir, which is resolved against the working
// directory when relative.
func (ts *ToolSet) ExecuteCommand(ctx context.Context, command, dir string, timeout time.Duration) (ShellResult, error) {
	if dir == "" || dir == "." {
		dir = ts.workingDir
	} else if !filepath.IsAbs(dir) {
		dir = filepath.Join(ts.workingDir, dir)
	}
	return ts.shell.Run(ctx, command, dir, timeout)
}

func (ts *ToolSet) IsDangerous(command string) bool {
	return ts.classifier.IsDangerous(command)
}

func (ts *ToolSet) IsGitRepo(ctx context.Context) bool {
	return ts.git.IsGitRepo(ctx)
}

func (ts *ToolSet) GetGitStatus(ctx context.Context) (string, error) {
	return ts.git.GetStatus(ctx)
}

func (ts *ToolSet) GetGitBranch(ctx context.Context) (string, error) {
	return ts.git.GetBranch(ctx)
}
