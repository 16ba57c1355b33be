package protocol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Terminator delimits frames on the wire. JSON encoding never emits a raw
// newline, so scanning for it is unambiguous.
const Terminator = '\n'

// MaxFrameSize bounds a single frame. A peer exceeding it is treated as
// malformed and disconnected.
const MaxFrameSize = 64 * 1024

// EncodeRequest serializes a request into a single self-delimited frame.
func EncodeRequest(req *Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return append(data, Terminator), nil
}

// EncodeResponse serializes a response into a single self-delimited frame.
func EncodeResponse(resp *Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return append(data, Terminator), nil
}

// DecodeRequest parses the bytes of one frame. A trailing terminator is
// tolerated so transports that preserve it (TCP) and those that strip it
// (WebSocket messages) decode identically.
func DecodeRequest(frame []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(bytes.TrimRight(frame, "\n"), &req); err != nil {
		return nil, fmt.Errorf("decode request: %w", err)
	}
	if req.Parameters == nil {
		req.Parameters = map[string]string{}
	}
	return &req, nil
}

// DecodeResponse parses the bytes of one frame.
func DecodeResponse(frame []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(bytes.TrimRight(frame, "\n"), &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Parameters == nil {
		resp.Parameters = map[string]string{}
	}
	return &resp, nil
}

// FrameScanner accumulates bytes from a stream and yields one frame per
// terminator observed.
type FrameScanner struct {
	scanner *bufio.Scanner
}

func NewFrameScanner(r io.Reader) *FrameScanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 4096), MaxFrameSize)
	return &FrameScanner{scanner: s}
}

// Next returns the bytes of the next frame, without the terminator.
// io.EOF is returned on a clean end of stream.
func (fs *FrameScanner) Next() ([]byte, error) {
	if !fs.scanner.Scan() {
		if err := fs.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return fs.scanner.Bytes(), nil
}
