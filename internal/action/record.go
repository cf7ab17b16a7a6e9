package action

import "encoding/json"

// Record is the flat key-value form of an action. The discriminator lives
// under "action_type".
type Record map[string]any

const (
	FieldActionType   = "action_type"
	FieldDescription  = "description"
	FieldConfirmation = "requires_confirmation"
	FieldFilePath     = "file_path"
	FieldContent      = "content"
	FieldEditType     = "edit_type"
	FieldCommand      = "command"
	FieldTimeout      = "timeout"
	FieldWorkingDir   = "working_dir"
)

func base(kind Kind, description string, confirm bool) Record {
	return Record{
		FieldActionType:   string(kind),
		FieldDescription:  description,
		FieldConfirmation: confirm,
	}
}

func (a CodeEdit) Record() Record {
	r := base(a.Kind(), a.description, a.RequiresConfirmation())
	r[FieldFilePath] = a.filePath
	r[FieldContent] = a.content
	r[FieldEditType] = string(a.editType)
	return r
}

func (a Bash) Record() Record {
	r := base(a.Kind(), a.description, a.confirm)
	r[FieldCommand] = a.command
	r[FieldTimeout] = a.timeoutSeconds
	r[FieldWorkingDir] = a.workingDir
	return r
}

func (a FileRead) Record() Record {
	r := base(a.Kind(), a.description, a.RequiresConfirmation())
	r[FieldFilePath] = a.filePath
	return r
}

func (a FileWrite) Record() Record {
	r := base(a.Kind(), a.description, a.RequiresConfirmation())
	r[FieldFilePath] = a.filePath
	r[FieldContent] = a.content
	return r
}

func (a CodeEdit) MarshalJSON() ([]byte, error)  { return json.Marshal(a.Record()) }
func (a Bash) MarshalJSON() ([]byte, error)      { return json.Marshal(a.Record()) }
func (a FileRead) MarshalJSON() ([]byte, error)  { return json.Marshal(a.Record()) }
func (a FileWrite) MarshalJSON() ([]byte, error) { return json.Marshal(a.Record()) }

// Records serializes a batch in order.
func Records(actions []Action) []Record {
	out := make([]Record, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Record())
	}
	return out
}
