package tools

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	// ErrToolAlreadyRegistered is returned when registering a duplicate name
	// without WithOverride.
	ErrToolAlreadyRegistered = errors.New("tool already registered")

	ErrToolNotFound = errors.New("tool not found")

	ErrToolNameEmpty = errors.New("tool name cannot be empty")
)

// ToolDefinition is the schema advertised to models with native tool calling.
// Parameters is a JSON schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Registry holds tool definitions and their tags. It is safe for concurrent
// use and is always constructed explicitly; there is no process-wide instance.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]ToolDefinition
	tags  map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]ToolDefinition),
		tags:  make(map[string]map[string]struct{}),
	}
}

type registerOptions struct {
	tags     []string
	override bool
}

type RegisterOption func(*registerOptions)

func WithTags(tags ...string) RegisterOption {
	return func(o *registerOptions) {
		o.tags = append(o.tags, tags...)
	}
}

// WithOverride replaces an existing definition of the same name.
func WithOverride() RegisterOption {
	return func(o *registerOptions) {
		o.override = true
	}
}

func (r *Registry) Register(def ToolDefinition, opts ...RegisterOption) error {
	if def.Name == "" {
		return ErrToolNameEmpty
	}

	var o registerOptions
	for _, opt := range opts {
		opt(&o)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[def.Name]; exists && !o.override {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, def.Name)
	}

	r.tools[def.Name] = def
	for _, tag := range o.tags {
		if r.tags[tag] == nil {
			r.tags[tag] = make(map[string]struct{})
		}
		r.tags[tag][def.Name] = struct{}{}
	}

	return nil
}

func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tools[name]; !ok {
		return fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	delete(r.tools, name)
	for _, names := range r.tags {
		delete(names, name)
	}
	return nil
}

func (r *Registry) Get(name string) (ToolDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tools[name]
	return def, ok
}

// Names returns all registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Tags() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tags := make([]string, 0, len(r.tags))
	for tag := range r.tags {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Definitions returns every definition sorted by name.
func (r *Registry) Definitions() []ToolDefinition {
	return r.Filter(nil, nil)
}

// Filter returns definitions carrying any of tags (all when tags is empty)
// minus those carrying any of excludeTags, sorted by name.
func (r *Registry) Filter(tags, excludeTags []string) []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var defs []ToolDefinition
	for name, def := range r.tools {
		if len(tags) > 0 && !r.hasAnyTag(name, tags) {
			continue
		}
		if r.hasAnyTag(name, excludeTags) {
			continue
		}
		defs = append(defs, def)
	}

	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Name < defs[j].Name
	})
	return defs
}

func (r *Registry) hasAnyTag(name string, tags []string) bool {
	for _, tag := range tags {
		if _, ok := r.tags[tag][name]; ok {
			return true
		}
	}
	return false
}

func stringParam(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// DefaultRegistry returns a registry holding the four action tools.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	defs := []struct {
		def  ToolDefinition
		tags []string
	}{
		{
			def: ToolDefinition{
				Name:        "edit_file",
				Description: "Create, modify or delete a file. The content replaces the whole file.",
				Parameters: objectSchema(map[string]any{
					"file_path":   stringParam("File path relative to the working directory"),
					"content":     stringParam("Complete new file content"),
					"edit_type":   map[string]any{"type": "string", "enum": []string{"create", "modify", "delete"}},
					"description": stringParam("Short summary of the change"),
				}, "file_path"),
			},
			tags: []string{"filesystem", "write"},
		},
		{
			def: ToolDefinition{
				Name:        "bash",
				Description: "Run a shell command in the working directory.",
				Parameters: objectSchema(map[string]any{
					"command":     stringParam("Shell command to run"),
					"description": stringParam("What the command does"),
					"timeout":     map[string]any{"type": "integer", "description": "Timeout in seconds"},
				}, "command"),
			},
			tags: []string{"shell"},
		},
		{
			def: ToolDefinition{
				Name:        "read_file",
				Description: "Read a file and return its content.",
				Parameters: objectSchema(map[string]any{
					"file_path": stringParam("File path relative to the working directory"),
				}, "file_path"),
			},
			tags: []string{"filesystem", "read"},
		},
		{
			def: ToolDefinition{
				Name:        "write_file",
				Description: "Write content to a file, replacing it if it exists.",
				Parameters: objectSchema(map[string]any{
					"file_path":   stringParam("File path relative to the working directory"),
					"content":     stringParam("Content to write"),
					"description": stringParam("Short summary of the write"),
				}, "file_path", "content"),
			},
			tags: []string{"filesystem", "write"},
		},
	}

	for _, d := range defs {
		// Names are distinct, so registration cannot fail.
		_ = r.Register(d.def, WithTags(d.tags...))
	}

	return r
}
