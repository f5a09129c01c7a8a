package protocol

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/statkit/statbridge"
)

func TestNewWireRequest_Normalizes(t *testing.T) {
	wr := NewWireRequest(statbridge.Request{ID: "r1", Script: "x"})
	if wr.Data == nil {
		t.Error("absent data must become an empty mapping")
	}
	if wr.Packages == nil {
		t.Error("absent packages must become an empty sequence")
	}

	raw, err := json.Marshal(wr)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	s := string(raw)
	if !strings.Contains(s, `"data":{}`) || !strings.Contains(s, `"packages":[]`) {
		t.Errorf("wire JSON must carry empty containers, got %s", s)
	}
}

func TestEncodeFrame_SingleLine(t *testing.T) {
	wr := NewWireRequest(statbridge.Request{
		ID:     "r2",
		Script: "print('a')\nprint('b')",
		Data:   map[string]any{"note": "line1\nline2"},
	})

	frame, err := wr.EncodeFrame()
	if err != nil {
		t.Fatalf("EncodeFrame failed: %v", err)
	}

	if !bytes.HasSuffix(frame, []byte("\n")) {
		t.Error("frame must end with a line break")
	}
	body := frame[:len(frame)-1]
	if bytes.ContainsRune(body, '\n') {
		t.Error("frame body must not contain embedded line breaks")
	}

	var back WireRequest
	if err := json.Unmarshal(body, &back); err != nil {
		t.Fatalf("frame is not valid JSON: %v", err)
	}
	if back.Script != "print('a')\nprint('b')" {
		t.Errorf("script mangled: %q", back.Script)
	}
}

func TestDecodeLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		ok   bool
	}{
		{"envelope", `{"id":"r1","success":true,"result":2}`, true},
		{"failure envelope", `{"id":"r1","success":false,"error":"boom"}`, true},
		{"plain text", `computing...`, false},
		{"json without id", `{"success":true}`, false},
		{"json without success", `{"id":"r1"}`, false},
		{"json array", `[1,2,3]`, false},
		{"truncated json", `{"id":"r1","success":`, false},
		{"empty", ``, false},
		{"whitespace envelope", `   {"id":"r1","success":true}   `, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, ok := DecodeLine([]byte(tt.line))
			if ok != tt.ok {
				t.Fatalf("DecodeLine ok = %v, want %v", ok, tt.ok)
			}
			if ok && resp.ID != "r1" {
				t.Errorf("ID = %q", resp.ID)
			}
		})
	}
}

func TestParseResponse_LastLineIsEnvelope(t *testing.T) {
	raw := []byte("loading data\nfitting model\n{\"id\":\"r7\",\"success\":true,\"result\":42}\n\n")
	resp := ParseResponse(raw)

	if resp.ID != "r7" || !resp.Success {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if resp.Output != "loading data\nfitting model" {
		t.Errorf("Output = %q", resp.Output)
	}
	if n, ok := resp.Result.(float64); !ok || n != 42 {
		t.Errorf("Result = %#v", resp.Result)
	}
}

func TestParseResponse_MalformedLastLine(t *testing.T) {
	raw := []byte("some diagnostics\nnot json")
	resp := ParseResponse(raw)

	if resp.Success {
		t.Fatal("malformed envelope must synthesize a failure")
	}
	if resp.ID != "" {
		t.Errorf("synthesized failure must leave id empty, got %q", resp.ID)
	}
	if !strings.Contains(resp.Error, "not json") {
		t.Errorf("diagnostic must quote the unparsable line, got %q", resp.Error)
	}
	if resp.Output != "some diagnostics" {
		t.Errorf("Output = %q", resp.Output)
	}
}

func TestParseResponse_LongMalformedLineIsTruncated(t *testing.T) {
	long := strings.Repeat("x", 1000)
	resp := ParseResponse([]byte(long))

	if resp.Success || resp.ID != "" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if len(resp.Error) > diagPrefixLen+64 {
		t.Errorf("diagnostic too long: %d bytes", len(resp.Error))
	}
	if !strings.Contains(resp.Error, strings.Repeat("x", diagPrefixLen)) {
		t.Error("diagnostic must contain the line prefix")
	}
}

func TestParseResponse_EmptyOutput(t *testing.T) {
	resp := ParseResponse([]byte("\n\n"))
	if resp.Success || resp.ID != "" {
		t.Fatalf("unexpected envelope: %+v", resp)
	}
	if !strings.Contains(resp.Error, "no output") {
		t.Errorf("Error = %q", resp.Error)
	}
}

func TestParseResponse_EnvelopeOutputWins(t *testing.T) {
	// A runtime that reports its own captured output keeps it; buffered
	// lines only fill the gap when the envelope carries none.
	raw := []byte("stray line\n{\"id\":\"r1\",\"success\":true,\"output\":\"from runtime\"}")
	resp := ParseResponse(raw)
	if resp.Output != "from runtime" {
		t.Errorf("Output = %q", resp.Output)
	}
}
