// Package rpc serves the action core over JSON-RPC 2.0.
//
// A Handler owns one working directory and executor. Transports (stdio,
// websocket) create one handler per connection.
package rpc

import "encoding/json"

const Version = "2.0"

const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports a request without an id; it gets no response.
func (r Request) IsNotification() bool {
	return len(r.ID) == 0
}

type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

var nullID = json.RawMessage("null")

func newResult(id json.RawMessage, result any) *Response {
	if len(id) == 0 {
		id = nullID
	}
	return &Response{JSONRPC: Version, ID: id, Result: result}
}

func newError(id json.RawMessage, code int, message string, data any) *Response {
	if len(id) == 0 {
		id = nullID
	}
	return &Response{
		JSONRPC: Version,
		ID:      id,
		Error:   &Error{Code: code, Message: message, Data: data},
	}
}

func invalidParams(err error) *Error {
	return &Error{Code: CodeInvalidParams, Message: "Invalid params", Data: err.Error()}
}
