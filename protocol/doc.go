// Package protocol defines the line-delimited JSON envelopes exchanged with
// a runtime subprocess, and the framing rule for recovering a response
// envelope from captured output.
//
// # Envelope Format
//
// Exactly one JSON object per line, in both directions:
//
//	→ {"id":"r1","script":"result = 1+1","data":{},"packages":[]}
//	← diagnostic text, warnings, print() output ... (any number of lines)
//	← {"id":"r1","success":true,"result":2}
//
// Outbound envelopes normalize optional host fields: an absent data mapping
// or package list becomes an empty container, never null.
//
// # Framing
//
// The runtime may emit arbitrary diagnostic text on its output stream, but
// must terminate its response with exactly one line holding the JSON
// envelope and nothing else. Two recovery paths exist:
//
//   - Streaming: DecodeLine strictly detects an envelope line (a JSON
//     object carrying both "id" and "success"); every other line is
//     console output.
//   - Batch: ParseResponse takes everything buffered since the request was
//     sent, discards trailing empty lines, and treats the last non-empty
//     line as the envelope. This is the rule applied when the process
//     exits before a streaming envelope arrives.
//
// If the final line fails to parse, ParseResponse synthesizes a failure
// envelope with an empty ID and a diagnostic quoting a prefix of the
// unparsable line. Callers must treat an empty ID as "could not correlate"
// and fail the pending request.
package protocol
