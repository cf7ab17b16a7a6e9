package agent

import (
	"errors"

	"aicode/internal/action"
	"aicode/internal/parser"
)

// ErrNoTransport is returned by Chat when the agent was built without a
// chat transport.
var ErrNoTransport = errors.New("no chat transport configured")

// Turn is the outcome of one Chat call. Actions are proposals; the caller
// decides which of them run.
type Turn struct {
	Text        string              `json:"text"`
	Actions     []action.Action     `json:"actions"`
	Diagnostics []parser.Diagnostic `json:"diagnostics,omitempty"`
}

// PendingConfirmation lists the indices of actions that need approval.
func (t *Turn) PendingConfirmation() []int {
	var idx []int
	for i, a := range t.Actions {
		if a.RequiresConfirmation() {
			idx = append(idx, i)
		}
	}
	return idx
}
