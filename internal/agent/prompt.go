package agent

import (
	"context"
	"fmt"
	"strings"
)

const DefaultSystemPrompt = `You are an intelligent coding assistant that can:
1. Edit and create code files
2. Execute bash commands
3. Read and analyze files
4. Search through codebases

You should suggest actions in a structured format using XML tags.
Be precise and helpful. Always explain what each action does.`

const nativeToolsSystemPrompt = `You are an intelligent coding assistant that can:
1. Edit and create code files
2. Execute bash commands
3. Read and analyze files

Use the provided tools to act on the project.
Be precise and helpful. Always explain what each action does.`

var grammarInstructions = `Please respond with actions using these formats:

CODE EDIT:
<file_edit path="file.py" type="modify" description="Description">
` + "```python" + `
complete new file content
` + "```" + `
</file_edit>

BASH COMMAND:
<bash_command description="What this does">
command here
</bash_command>

FILE READ:
<read_file path="file.py" />

FILE WRITE:
<write_file path="notes.md" description="Description">
` + "```" + `
file content
` + "```" + `
</write_file>

type is one of create, modify or delete. Edits replace the whole file.
You can use multiple actions in one response.`

// enhanceMessage adds context files, the working tree status and, for
// models without native tools, the action markup instructions.
func (a *Agent) enhanceMessage(ctx context.Context, message string, contextFiles []string, withGrammar bool) string {
	var b strings.Builder
	b.WriteString(message)

	if len(contextFiles) > 0 {
		b.WriteString("\n\nContext files:\n")
		for _, f := range contextFiles {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}

	if status, ok := a.gitStatus(ctx); ok {
		if status == "" {
			status = "(clean)"
		}
		fmt.Fprintf(&b, "\n\nCurrent git status:\n%s", status)
	}

	if withGrammar {
		b.WriteString("\n\n")
		b.WriteString(grammarInstructions)
	}

	return b.String()
}

func (a *Agent) gitStatus(ctx context.Context) (string, bool) {
	if !a.includeGitStatus || a.git == nil || !a.git.IsGitRepo(ctx) {
		return "", false
	}
	status, err := a.git.GetStatus(ctx)
	if err != nil {
		return "", false
	}
	return strings.TrimRight(status, "\n"), true
}
