package tools

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegister(t *testing.T) {
	r := NewRegistry()
	def := ToolDefinition{Name: "lint", Description: "run linter"}

	require.NoError(t, r.Register(def, WithTags("quality")))

	err := r.Register(def)
	assert.True(t, errors.Is(err, ErrToolAlreadyRegistered))

	def.Description = "run golangci-lint"
	require.NoError(t, r.Register(def, WithOverride()))

	got, ok := r.Get("lint")
	require.True(t, ok)
	assert.Equal(t, "run golangci-lint", got.Description)

	assert.True(t, errors.Is(r.Register(ToolDefinition{}), ErrToolNameEmpty))
}

func TestRegistryUnregister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(ToolDefinition{Name: "a"}, WithTags("x")))

	require.NoError(t, r.Unregister("a"))
	assert.Empty(t, r.Names())
	assert.Empty(t, r.Filter([]string{"x"}, nil))
	assert.True(t, errors.Is(r.Unregister("a"), ErrToolNotFound))
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, []string{"bash", "edit_file", "read_file", "write_file"}, r.Names())

	defs := r.Definitions()
	require.Len(t, defs, 4)
	assert.Equal(t, "bash", defs[0].Name)
	assert.Equal(t, "object", defs[0].Parameters["type"])
}

func TestRegistryFilter(t *testing.T) {
	r := DefaultRegistry()

	names := func(defs []ToolDefinition) []string {
		var out []string
		for _, d := range defs {
			out = append(out, d.Name)
		}
		return out
	}

	assert.Equal(t, []string{"edit_file", "read_file", "write_file"}, names(r.Filter([]string{"filesystem"}, nil)))
	assert.Equal(t, []string{"read_file"}, names(r.Filter([]string{"filesystem"}, []string{"write"})))
	assert.Equal(t, []string{"bash", "read_file"}, names(r.Filter(nil, []string{"write"})))
}
