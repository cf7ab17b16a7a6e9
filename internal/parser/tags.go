package parser

import (
	"fmt"
	"regexp"
	"strings"

	"aicode/internal/action"
	"aicode/internal/tools"
)

var attrPattern = regexp.MustCompile(`([A-Za-z_][\w-]*)\s*=\s*"([^"]*)"`)

func openingTag(name string) *regexp.Regexp {
	return regexp.MustCompile(`<` + name + `((?:\s+[A-Za-z_][\w-]*\s*=\s*"[^"]*")*)\s*(/?)>`)
}

var (
	fileEditTag  = openingTag("file_edit")
	bashTag      = openingTag("bash_command")
	readFileTag  = openingTag("read_file")
	writeFileTag = openingTag("write_file")
)

// ParsedEdit is a file_edit element before it becomes a CodeEdit.
type ParsedEdit struct {
	FilePath    string
	NewContent  string
	EditType    string
	Description string
}

type element struct {
	attrs map[string]string
	body  string
	raw   string
}

func parseAttrs(s string) map[string]string {
	attrs := make(map[string]string)
	for _, m := range attrPattern.FindAllStringSubmatch(s, -1) {
		if _, seen := attrs[m[1]]; !seen {
			attrs[m[1]] = m[2]
		}
	}
	return attrs
}

// scanElements finds every well-formed element of the named tag. When
// selfClosing is set only the `<name ... />` form is accepted; otherwise the
// element must have a body closed by `</name>`.
func scanElements(text, name string, open *regexp.Regexp, selfClosing bool) ([]element, []Diagnostic) {
	var (
		elements []element
		diags    []Diagnostic
	)

	closeTag := "</" + name + ">"
	matches := open.FindAllStringSubmatchIndex(text, -1)
	consumed := 0

	for i, m := range matches {
		if m[0] < consumed {
			continue
		}
		raw := text[m[0]:m[1]]
		isSelfClosing := m[5] > m[4]

		if selfClosing {
			if !isSelfClosing {
				diags = append(diags, newDiagnostic(SourceTags, raw, "%s must be self-closing", name))
				continue
			}
			elements = append(elements, element{attrs: parseAttrs(text[m[2]:m[3]]), raw: raw})
			consumed = m[1]
			continue
		}

		if isSelfClosing {
			diags = append(diags, newDiagnostic(SourceTags, raw, "%s has no body", name))
			continue
		}

		closeIdx := strings.Index(text[m[1]:], closeTag)
		if closeIdx < 0 {
			diags = append(diags, newDiagnostic(SourceTags, raw, "unclosed %s", name))
			continue
		}
		closeAt := m[1] + closeIdx
		if i+1 < len(matches) && matches[i+1][0] < closeAt {
			diags = append(diags, newDiagnostic(SourceTags, raw, "%s opened again before %s", name, closeTag))
			continue
		}

		elements = append(elements, element{
			attrs: parseAttrs(text[m[2]:m[3]]),
			body:  text[m[1]:closeAt],
			raw:   raw,
		})
		consumed = closeAt + len(closeTag)
	}

	return elements, diags
}

// fencedBody extracts the code between an opening ```lang line and the
// closing fence that ends the element body. One newline before the closing
// fence belongs to the fence.
func fencedBody(body string) (string, bool) {
	s := strings.TrimLeft(body, " \t\r\n")
	if !strings.HasPrefix(s, "```") {
		return "", false
	}

	nl := strings.IndexByte(s, '\n')
	if nl < 0 || strings.Contains(s[3:nl], "`") {
		return "", false
	}

	inner := strings.TrimRight(s[nl+1:], " \t\r\n")
	if !strings.HasSuffix(inner, "```") {
		return "", false
	}

	content := strings.TrimSuffix(inner[:len(inner)-3], "\n")
	content = strings.TrimSuffix(content, "\r")
	return content, true
}

func extractEdits(text string) ([]ParsedEdit, []Diagnostic) {
	elements, diags := scanElements(text, "file_edit", fileEditTag, false)

	var edits []ParsedEdit
	for _, el := range elements {
		path := el.attrs["path"]
		if path == "" {
			diags = append(diags, newDiagnostic(SourceTags, el.raw, "file_edit without path"))
			continue
		}
		content, ok := fencedBody(el.body)
		if !ok {
			diags = append(diags, newDiagnostic(SourceTags, el.raw, "file_edit body is not a fenced code block"))
			continue
		}
		editType := el.attrs["type"]
		if editType == "" {
			editType = string(action.EditModify)
		}
		edits = append(edits, ParsedEdit{
			FilePath:    path,
			NewContent:  content,
			EditType:    editType,
			Description: el.attrs["description"],
		})
	}
	return edits, diags
}

// ParseEdits returns the file_edit elements of text after removing reasoning
// blocks.
func ParseEdits(text string) []ParsedEdit {
	edits, _ := extractEdits(Clean(text))
	return edits
}

func extractBash(text string, classifier action.Classifier) ([]action.Action, []Diagnostic) {
	elements, diags := scanElements(text, "bash_command", bashTag, false)

	var actions []action.Action
	for _, el := range elements {
		command := strings.TrimSpace(el.body)
		if command == "" {
			diags = append(diags, newDiagnostic(SourceTags, el.raw, "empty bash_command"))
			continue
		}
		actions = append(actions, action.NewBash(command, el.attrs["description"], action.WithClassifier(classifier)))
	}
	return actions, diags
}

func extractReads(text string) ([]action.Action, []Diagnostic) {
	elements, diags := scanElements(text, "read_file", readFileTag, true)

	var actions []action.Action
	for _, el := range elements {
		path := el.attrs["path"]
		if path == "" {
			diags = append(diags, newDiagnostic(SourceTags, el.raw, "read_file without path"))
			continue
		}
		actions = append(actions, action.NewFileRead(path, fmt.Sprintf("Read %s", path)))
	}
	return actions, diags
}

func extractWrites(text string) ([]action.Action, []Diagnostic) {
	elements, diags := scanElements(text, "write_file", writeFileTag, false)

	var actions []action.Action
	for _, el := range elements {
		path := el.attrs["path"]
		if path == "" {
			diags = append(diags, newDiagnostic(SourceTags, el.raw, "write_file without path"))
			continue
		}
		content, ok := fencedBody(el.body)
		if !ok {
			diags = append(diags, newDiagnostic(SourceTags, el.raw, "write_file body is not a fenced code block"))
			continue
		}
		actions = append(actions, action.NewFileWrite(path, content, el.attrs["description"]))
	}
	return actions, diags
}

// ExtractTags turns the action markup in text into actions. All edits come
// first, then shell commands, reads and writes, each in document order.
// Malformed elements are skipped and reported as diagnostics.
func ExtractTags(text string, classifier action.Classifier) ([]action.Action, []Diagnostic) {
	if classifier == nil {
		classifier = tools.DefaultClassifier()
	}

	var (
		actions []action.Action
		diags   []Diagnostic
	)

	edits, editDiags := extractEdits(text)
	for _, e := range edits {
		actions = append(actions, action.NewCodeEdit(e.FilePath, e.NewContent, action.EditType(e.EditType), e.Description))
	}
	diags = append(diags, editDiags...)

	for _, pass := range []func(string) ([]action.Action, []Diagnostic){
		func(s string) ([]action.Action, []Diagnostic) { return extractBash(s, classifier) },
		extractReads,
		extractWrites,
	} {
		found, passDiags := pass(text)
		actions = append(actions, found...)
		diags = append(diags, passDiags...)
	}

	return actions, diags
}
