package parser

import (
	"bytes"
	"encoding/json"

	"aicode/internal/action"
)

// FromRecord maps one flat record onto an action. The kind is read from
// "action_type", falling back to "type". Any requires_confirmation value in
// the record is ignored.
func FromRecord(rec map[string]any, classifier action.Classifier) (action.Action, bool) {
	kind := argString(rec, action.FieldActionType, "type")
	if kind == "" {
		return nil, false
	}
	return FromToolCall(kind, rec, classifier)
}

// FromRecords accepts a decoded record, a list of records, or raw JSON.
func FromRecords(data any, classifier action.Classifier) ([]action.Action, []Diagnostic) {
	switch v := data.(type) {
	case string:
		return FromRecords([]byte(v), classifier)

	case []byte:
		dec := json.NewDecoder(bytes.NewReader(v))
		dec.UseNumber()
		var decoded any
		if err := dec.Decode(&decoded); err != nil {
			return nil, []Diagnostic{newDiagnostic(SourceRecord, string(v), "invalid JSON: %v", err)}
		}
		return FromRecords(decoded, classifier)

	case action.Record:
		return FromRecords(map[string]any(v), classifier)

	case map[string]any:
		a, ok := FromRecord(v, classifier)
		if !ok {
			return nil, []Diagnostic{newDiagnostic(SourceRecord, "", "unmappable record type %q", argString(v, action.FieldActionType, "type"))}
		}
		return []action.Action{a}, nil

	case []action.Record:
		items := make([]any, len(v))
		for i, r := range v {
			items[i] = map[string]any(r)
		}
		return FromRecords(items, classifier)

	case []map[string]any:
		items := make([]any, len(v))
		for i, r := range v {
			items[i] = r
		}
		return FromRecords(items, classifier)

	case []any:
		var (
			actions []action.Action
			diags   []Diagnostic
		)
		for i, item := range v {
			rec, ok := item.(map[string]any)
			if !ok {
				diags = append(diags, newDiagnostic(SourceRecord, "", "element %d is not an object", i))
				continue
			}
			a, ok := FromRecord(rec, classifier)
			if !ok {
				diags = append(diags, newDiagnostic(SourceRecord, "", "element %d has unmappable type %q", i, argString(rec, action.FieldActionType, "type")))
				continue
			}
			actions = append(actions, a)
		}
		return actions, diags
	}

	return nil, []Diagnostic{newDiagnostic(SourceRecord, "", "unsupported record value %T", data)}
}
