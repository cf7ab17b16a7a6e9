package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeOverStdio(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("AICODE_LOG_LEVEL", "error")

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"is_dangerous","params":{"command":"sudo rm -rf /var"}}`,
		`{"jsonrpc":"2.0","id":2,"method":"shutdown"}`,
	}, "\n")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(input))
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", "missing.toml"})
	require.NoError(t, cmd.Execute())

	var replies []map[string]json.RawMessage
	scanner := bufio.NewScanner(&out)
	for scanner.Scan() {
		var reply map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &reply))
		replies = append(replies, reply)
	}
	require.Len(t, replies, 2)
	assert.JSONEq(t, `{"dangerous":true,"rule":"recursive delete of root"}`, string(replies[0]["result"]))
	assert.JSONEq(t, `{"success":true}`, string(replies[1]["result"]))
}

func TestServeRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[policy]\nmode = \"yolo\"\n"), 0o644))

	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader(""))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown policy mode")
}

func TestServeRejectsArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"extra"})
	assert.Error(t, cmd.Execute())
}
