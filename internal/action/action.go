// Package action defines the normalized actions extracted from LLM responses.
//
// Actions are immutable values. Each variant fixes its confirmation flag at
// construction time; Bash computes it once from the safety classifier.
package action

import (
	"aicode/internal/tools"
)

type Kind string

const (
	KindCodeEdit  Kind = "code_edit"
	KindBash      Kind = "bash"
	KindFileRead  Kind = "file_read"
	KindFileWrite Kind = "file_write"
	// KindSearch is reserved; no variant produces it yet.
	KindSearch Kind = "search"
)

type EditType string

const (
	EditCreate EditType = "create"
	EditModify EditType = "modify"
	EditDelete EditType = "delete"
)

const (
	DefaultTimeoutSeconds = 30
	DefaultWorkingDir     = "."
)

// Classifier decides whether a shell command needs explicit approval.
type Classifier interface {
	IsDangerous(command string) bool
}

// Action is one of CodeEdit, Bash, FileRead or FileWrite.
type Action interface {
	Kind() Kind
	Description() string
	RequiresConfirmation() bool
	Record() Record

	sealed()
}

type CodeEdit struct {
	filePath    string
	content     string
	editType    EditType
	description string
}

// NewCodeEdit builds a CodeEdit. An empty edit type means modify.
func NewCodeEdit(filePath, content string, editType EditType, description string) CodeEdit {
	if editType == "" {
		editType = EditModify
	}
	return CodeEdit{
		filePath:    filePath,
		content:     content,
		editType:    editType,
		description: description,
	}
}

func (a CodeEdit) Kind() Kind                 { return KindCodeEdit }
func (a CodeEdit) Description() string        { return a.description }
func (a CodeEdit) RequiresConfirmation() bool { return true }
func (a CodeEdit) FilePath() string           { return a.filePath }
func (a CodeEdit) Content() string            { return a.content }
func (a CodeEdit) EditType() EditType         { return a.editType }
func (a CodeEdit) sealed()                    {}

type Bash struct {
	command        string
	timeoutSeconds int
	workingDir     string
	description    string
	confirm        bool
}

type bashOptions struct {
	timeoutSeconds int
	workingDir     string
	classifier     Classifier
}

type BashOption func(*bashOptions)

// WithTimeout sets the timeout in seconds. Values <= 0 keep the default.
func WithTimeout(seconds int) BashOption {
	return func(o *bashOptions) {
		if seconds > 0 {
			o.timeoutSeconds = seconds
		}
	}
}

func WithWorkingDir(dir string) BashOption {
	return func(o *bashOptions) {
		if dir != "" {
			o.workingDir = dir
		}
	}
}

// WithClassifier replaces the built-in safety rules used for the
// confirmation flag.
func WithClassifier(c Classifier) BashOption {
	return func(o *bashOptions) {
		if c != nil {
			o.classifier = c
		}
	}
}

// NewBash builds a Bash action. The confirmation flag is computed here and
// never again.
func NewBash(command, description string, opts ...BashOption) Bash {
	o := bashOptions{
		timeoutSeconds: DefaultTimeoutSeconds,
		workingDir:     DefaultWorkingDir,
		classifier:     tools.DefaultClassifier(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return Bash{
		command:        command,
		timeoutSeconds: o.timeoutSeconds,
		workingDir:     o.workingDir,
		description:    description,
		confirm:        o.classifier.IsDangerous(command),
	}
}

func (a Bash) Kind() Kind                 { return KindBash }
func (a Bash) Description() string        { return a.description }
func (a Bash) RequiresConfirmation() bool { return a.confirm }
func (a Bash) Command() string            { return a.command }
func (a Bash) TimeoutSeconds() int        { return a.timeoutSeconds }
func (a Bash) WorkingDir() string         { return a.workingDir }
func (a Bash) sealed()                    {}

type FileRead struct {
	filePath    string
	description string
}

func NewFileRead(filePath, description string) FileRead {
	return FileRead{filePath: filePath, description: description}
}

func (a FileRead) Kind() Kind                 { return KindFileRead }
func (a FileRead) Description() string        { return a.description }
func (a FileRead) RequiresConfirmation() bool { return false }
func (a FileRead) FilePath() string           { return a.filePath }
func (a FileRead) sealed()                    {}

type FileWrite struct {
	filePath    string
	content     string
	description string
}

func NewFileWrite(filePath, content, description string) FileWrite {
	return FileWrite{filePath: filePath, content: content, description: description}
}

func (a FileWrite) Kind() Kind                 { return KindFileWrite }
func (a FileWrite) Description() string        { return a.description }
func (a FileWrite) RequiresConfirmation() bool { return true }
func (a FileWrite) FilePath() string           { return a.filePath }
func (a FileWrite) Content() string            { return a.content }
func (a FileWrite) sealed()                    {}
