package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/statkit/statbridge"
	"github.com/statkit/statbridge/codec"
)

// diagPrefixLen bounds how much of an unparsable line is quoted back in a
// synthesized failure envelope.
const diagPrefixLen = 200

// WireRequest is the envelope transmitted to the runtime. All fields are
// required on the wire; optional host fields are normalized to empty
// containers.
type WireRequest struct {
	ID       string         `json:"id"`
	Script   string         `json:"script"`
	Data     map[string]any `json:"data"`
	Packages []string       `json:"packages"`
}

// WireResponse is the envelope the runtime terminates its output with.
type WireResponse struct {
	ID        string   `json:"id"`
	Success   bool     `json:"success"`
	Result    any      `json:"result,omitempty"`
	Error     string   `json:"error,omitempty"`
	Traceback string   `json:"traceback,omitempty"`
	Output    string   `json:"output,omitempty"`
	Plots     []string `json:"plots,omitempty"`
}

// NewWireRequest normalizes a host request into its wire form, encoding
// data values through the codec.
func NewWireRequest(req statbridge.Request) *WireRequest {
	data := make(map[string]any, len(req.Data))
	for k, v := range req.Data {
		data[k] = codec.Encode(v)
	}
	packages := req.Packages
	if packages == nil {
		packages = []string{}
	}
	return &WireRequest{
		ID:       req.ID,
		Script:   req.Script,
		Data:     data,
		Packages: packages,
	}
}

// EncodeFrame serializes the request as exactly one line, terminated by a
// line break, with no other bytes on that line.
func (r *WireRequest) EncodeFrame() ([]byte, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal wire request: %w", err)
	}
	// json.Marshal escapes control characters, so raw cannot contain a
	// literal line break; guard anyway since the framing depends on it.
	if bytes.ContainsRune(raw, '\n') {
		return nil, fmt.Errorf("wire request contains embedded line break")
	}
	return append(raw, '\n'), nil
}

// DecodeLine strictly detects a response envelope: a JSON object carrying
// both "id" and "success" members. It reports false for every other line,
// including valid JSON of the wrong shape.
func DecodeLine(line []byte) (*WireResponse, bool) {
	trimmed := bytes.TrimSpace(line)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return nil, false
	}
	if _, ok := probe["id"]; !ok {
		return nil, false
	}
	if _, ok := probe["success"]; !ok {
		return nil, false
	}

	var resp WireResponse
	if err := json.Unmarshal(trimmed, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

// ParseResponse applies the batch framing rule to everything captured since
// the request was sent: split into lines, discard trailing empty lines,
// treat the last non-empty line as the envelope and all preceding lines as
// console output. An unparsable last line yields a synthesized failure
// envelope with an empty ID.
func ParseResponse(raw []byte) *WireResponse {
	lines := strings.Split(string(raw), "\n")

	last := len(lines) - 1
	for last >= 0 && strings.TrimSpace(lines[last]) == "" {
		last--
	}
	if last < 0 {
		return &WireResponse{
			Success: false,
			Error:   "engine produced no output",
		}
	}

	output := strings.Join(lines[:last], "\n")
	envelope := lines[last]

	resp, ok := DecodeLine([]byte(envelope))
	if !ok {
		return &WireResponse{
			Success: false,
			Error:   fmt.Sprintf("invalid response envelope: %s", truncate(envelope, diagPrefixLen)),
			Output:  output,
		}
	}

	if resp.Output == "" && output != "" {
		resp.Output = output
	}
	return resp
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
