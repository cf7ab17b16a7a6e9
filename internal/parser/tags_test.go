package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aicode/internal/action"
)

func records(actions []action.Action) []action.Record {
	return action.Records(actions)
}

func TestExtractTagsRoundTrip(t *testing.T) {
	text := "<file_edit path=\"a.py\" type=\"create\" description=\"d\">\n```python\nCONTENT\n```\n</file_edit>"

	actions, diags := ExtractTags(text, nil)
	require.Empty(t, diags)
	require.Len(t, actions, 1)

	want := action.Record{
		action.FieldActionType:   "code_edit",
		action.FieldDescription:  "d",
		action.FieldConfirmation: true,
		action.FieldFilePath:     "a.py",
		action.FieldContent:      "CONTENT",
		action.FieldEditType:     "create",
	}
	if diff := cmp.Diff(want, actions[0].Record()); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractTagsMultipleActions(t *testing.T) {
	text := `I'll fix the bug and run the tests.

<bash_command description="install">pip install -r requirements.txt</bash_command>

<file_edit path="app.py" description="fix">
` + "```python\nprint('fixed')\n```" + `
</file_edit>

<bash_command>
  pytest -q
</bash_command>
`

	actions, diags := ExtractTags(text, nil)
	require.Empty(t, diags)
	require.Len(t, actions, 3)

	assert.Equal(t, action.KindCodeEdit, actions[0].Kind())
	assert.Equal(t, action.KindBash, actions[1].Kind())
	assert.Equal(t, action.KindBash, actions[2].Kind())
	assert.Equal(t, "pip install -r requirements.txt", actions[1].(action.Bash).Command())
	assert.Equal(t, "install", actions[1].Description())
	assert.Equal(t, "pytest -q", actions[2].(action.Bash).Command())
}

func TestExtractTagsDefaults(t *testing.T) {
	text := "<file_edit path=\"x.go\">\n```\npackage x\n```\n</file_edit>\n" +
		"<write_file path=\"notes.md\">\n```markdown\n# hi\n```\n</write_file>\n" +
		"<read_file path=\"go.mod\" />"

	actions, diags := ExtractTags(text, nil)
	require.Empty(t, diags)
	require.Len(t, actions, 3)

	edit := actions[0].(action.CodeEdit)
	assert.Equal(t, action.EditModify, edit.EditType())
	assert.Equal(t, "", edit.Description())
	assert.Equal(t, "package x", edit.Content())

	read := actions[1].(action.FileRead)
	assert.Equal(t, "go.mod", read.FilePath())
	assert.Equal(t, "Read go.mod", read.Description())
	assert.False(t, read.RequiresConfirmation())

	write := actions[2].(action.FileWrite)
	assert.Equal(t, "# hi", write.Content())
	assert.True(t, write.RequiresConfirmation())
}

func TestExtractTagsAttributeOrder(t *testing.T) {
	text := "<file_edit description=\"later\" type=\"delete\" path=\"old.txt\">\n```\n```\n</file_edit>"

	actions, diags := ExtractTags(text, nil)
	require.Empty(t, diags)
	require.Len(t, actions, 1)

	edit := actions[0].(action.CodeEdit)
	assert.Equal(t, "old.txt", edit.FilePath())
	assert.Equal(t, action.EditDelete, edit.EditType())
	assert.Equal(t, "", edit.Content())
}

func TestExtractTagsNestedFence(t *testing.T) {
	text := "<write_file path=\"README.md\">\n```markdown\nUsage:\n```sh\nmake\n```\n```\n</write_file>"

	actions, diags := ExtractTags(text, nil)
	require.Empty(t, diags)
	require.Len(t, actions, 1)
	assert.Equal(t, "Usage:\n```sh\nmake\n```", actions[0].(action.FileWrite).Content())
}

func TestExtractTagsDangerousCommand(t *testing.T) {
	actions, _ := ExtractTags("<bash_command>rm -rf /</bash_command><bash_command>ls</bash_command>", nil)
	require.Len(t, actions, 2)
	assert.True(t, actions[0].RequiresConfirmation())
	assert.False(t, actions[1].RequiresConfirmation())
}

func TestExtractTagsMalformed(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"missing path", "<file_edit type=\"create\">\n```\nx\n```\n</file_edit>"},
		{"unclosed", "<file_edit path=\"a\">\n```\nx\n```\n"},
		{"no fence", "<write_file path=\"a\">just text</write_file>"},
		{"empty command", "<bash_command>   </bash_command>"},
		{"read not self-closing", "<read_file path=\"a\">"},
		{"read without path", "<read_file />"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions, diags := ExtractTags(tt.text, nil)
			assert.Empty(t, actions)
			assert.NotEmpty(t, diags)
		})
	}
}

func TestExtractTagsReopenedBeforeClose(t *testing.T) {
	text := "<bash_command>echo a\n<bash_command>echo b</bash_command>"

	actions, diags := ExtractTags(text, nil)
	require.Len(t, actions, 1)
	assert.Equal(t, "echo b", actions[0].(action.Bash).Command())
	assert.Len(t, diags, 1)
}

func TestExtractTagsIgnoresProse(t *testing.T) {
	actions, diags := ExtractTags("Use a <div> or <file_editor> element here.", nil)
	assert.Empty(t, actions)
	assert.Empty(t, diags)
}

func TestExtractTagsKindOrdering(t *testing.T) {
	text := "<read_file path=\"a\" />" +
		"<write_file path=\"b\">\n```\nb\n```\n</write_file>" +
		"<bash_command>ls</bash_command>" +
		"<file_edit path=\"c\">\n```\nc\n```\n</file_edit>"

	actions, _ := ExtractTags(text, nil)

	var kinds []action.Kind
	for _, a := range actions {
		kinds = append(kinds, a.Kind())
	}
	assert.Equal(t, []action.Kind{action.KindCodeEdit, action.KindBash, action.KindFileRead, action.KindFileWrite}, kinds)
}

func TestParseEditsCleansFirst(t *testing.T) {
	text := "<think><file_edit path=\"draft.py\">\n```\nx\n```\n</file_edit></think>" +
		"<file_edit path=\"final.py\">\n```\ny\n```\n</file_edit>"

	edits := ParseEdits(text)
	require.Len(t, edits, 1)
	assert.Equal(t, ParsedEdit{FilePath: "final.py", NewContent: "y", EditType: "modify"}, edits[0])
}
