package parser

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"aicode/internal/action"
	"aicode/internal/tools"
)

// FromToolCall maps a native tool call onto an action. Unknown tool names
// yield false. Missing arguments default to empty values.
func FromToolCall(name string, args map[string]any, classifier action.Classifier) (action.Action, bool) {
	if classifier == nil {
		classifier = tools.DefaultClassifier()
	}

	switch name {
	case "edit_file", "code_edit":
		return action.NewCodeEdit(
			argString(args, "file_path", "path"),
			argString(args, "content"),
			action.EditType(argString(args, "edit_type")),
			argString(args, "description"),
		), true

	case "bash", "execute_command":
		opts := []action.BashOption{
			action.WithClassifier(classifier),
			action.WithWorkingDir(argString(args, "working_dir")),
		}
		if timeout, ok := argInt(args, "timeout", "timeout_seconds"); ok {
			opts = append(opts, action.WithTimeout(timeout))
		}
		return action.NewBash(argString(args, "command"), argString(args, "description"), opts...), true

	case "read_file", "file_read":
		return action.NewFileRead(argString(args, "file_path", "path"), argString(args, "description")), true

	case "write_file", "file_write":
		return action.NewFileWrite(
			argString(args, "file_path", "path"),
			argString(args, "content"),
			argString(args, "description"),
		), true
	}

	return nil, false
}

// argString returns the first present key as a string.
func argString(args map[string]any, keys ...string) string {
	for _, key := range keys {
		v, ok := args[key]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			return s
		case json.Number:
			return s.String()
		default:
			return fmt.Sprint(s)
		}
	}
	return ""
}

// argInt tolerates JSON floats, json.Number and numeric strings.
func argInt(args map[string]any, keys ...string) (int, bool) {
	for _, key := range keys {
		v, ok := args[key]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case int:
			return n, true
		case int64:
			return int(n), true
		case float64:
			if math.IsNaN(n) || math.IsInf(n, 0) {
				return 0, false
			}
			return int(n), true
		case json.Number:
			if i, err := n.Int64(); err == nil {
				return int(i), true
			}
			if f, err := n.Float64(); err == nil {
				return int(f), true
			}
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
				return i, true
			}
		}
		return 0, false
	}
	return 0, false
}
