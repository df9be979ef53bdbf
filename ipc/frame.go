// Package ipc implements worker framing per CONTRACT_PROTOCOL.md.
//
// Every request and response travels as a 4-byte big-endian length prefix
// followed by a msgpack payload.
package ipc

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/pithecene-io/crucible/types"
)

// Frame size constants per CONTRACT_PROTOCOL.md.
const (
	// MaxFrameSize is the maximum frame size (64 MiB), including length prefix.
	// It holds a sumArray of 10M u32 values at msgpack's widest encoding.
	MaxFrameSize = 64 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// FrameErrorKind classifies frame errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
	// FrameErrorEncode indicates a msgpack encoding error.
	FrameErrorEncode
)

// FrameError represents a frame encoding or decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if this error invalidates the stream.
// Partial and oversized frames are fatal; decode errors affect one frame.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError returns true if the error is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// IsUnwritten reports whether err is an encoder rejection that left the
// stream untouched: the value failed to encode or exceeded MaxPayloadSize.
// The stream stays usable after such an error.
func IsUnwritten(err error) bool {
	var frameErr *FrameError
	if !errors.As(err, &frameErr) {
		return false
	}
	return frameErr.Kind == FrameErrorEncode || frameErr.Kind == FrameErrorTooLarge
}

// FrameDecoder decodes length-prefixed msgpack frames from a stream.
type FrameDecoder struct {
	reader *bufio.Reader
}

// NewFrameDecoder creates a new frame decoder.
// The reader is buffered so pipes returning short reads cost one syscall per
// buffer fill rather than per field.
func NewFrameDecoder(r io.Reader) *FrameDecoder {
	return &FrameDecoder{reader: bufio.NewReaderSize(r, 64*1024)}
}

// ReadFrame reads a single frame from the stream.
// Returns the raw payload bytes (msgpack-encoded).
//
// Errors:
//   - io.EOF: stream ended cleanly (no more frames)
//   - *FrameError with Kind=FrameErrorPartial: incomplete frame (fatal)
//   - *FrameError with Kind=FrameErrorTooLarge: frame exceeds limit (fatal)
func (d *FrameDecoder) ReadFrame() ([]byte, error) {
	var lengthBuf [LengthPrefixSize]byte
	_, err := io.ReadFull(d.reader, lengthBuf[:])
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read length prefix",
			Err:  err,
		}
	}

	payloadSize := binary.BigEndian.Uint32(lengthBuf[:])
	if payloadSize > MaxPayloadSize {
		return nil, &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", payloadSize, MaxPayloadSize),
		}
	}

	payload := make([]byte, payloadSize)
	_, err = io.ReadFull(d.reader, payload)
	if err != nil {
		return nil, &FrameError{
			Kind: FrameErrorPartial,
			Msg:  "failed to read payload",
			Err:  err,
		}
	}

	return payload, nil
}

// FrameEncoder writes length-prefixed msgpack frames to a stream.
// WriteFrame is safe for concurrent use; each frame is written atomically
// with respect to other WriteFrame calls on the same encoder.
type FrameEncoder struct {
	mu     sync.Mutex
	writer io.Writer
}

// NewFrameEncoder creates a new frame encoder.
func NewFrameEncoder(w io.Writer) *FrameEncoder {
	return &FrameEncoder{writer: w}
}

// WriteFrame encodes v as msgpack and writes it with a length prefix.
func (e *FrameEncoder) WriteFrame(v any) error {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return &FrameError{Kind: FrameErrorEncode, Msg: "failed to encode frame", Err: err}
	}
	return e.WritePayload(payload)
}

// WritePayload writes an already-encoded payload with a length prefix.
func (e *FrameEncoder) WritePayload(payload []byte) error {
	if len(payload) > MaxPayloadSize {
		return &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}

	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, err := e.writer.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// envelopeKeys are the fields ProbeEnvelope keeps.
var envelopeKeys = map[string]struct{}{
	"type":      {},
	"requestId": {},
	"version":   {},
}

// ProbeEnvelope decodes only the envelope fields (type, requestId, version)
// of a payload into a map, skipping payload fields without allocating them.
// The result is suitable for types.ValidateRequest/ValidateResponse.
func ProbeEnvelope(payload []byte) (map[string]any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(payload))
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "payload is not a record", Err: err}
	}
	if n < 0 {
		return nil, &FrameError{Kind: FrameErrorDecode, Msg: "payload is a nil record"}
	}

	env := make(map[string]any, len(envelopeKeys))
	for range n {
		key, err := dec.DecodeString()
		if err != nil {
			return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode field name", Err: err}
		}
		if _, keep := envelopeKeys[key]; !keep {
			if err := dec.Skip(); err != nil {
				return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to skip field " + key, Err: err}
			}
			continue
		}
		val, err := dec.DecodeInterface()
		if err != nil {
			return nil, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode field " + key, Err: err}
		}
		env[key] = val
	}
	return env, nil
}

// DecodeRequest decodes a payload as a Request.
func DecodeRequest(payload []byte) (*types.Request, error) {
	var req types.Request
	if err := msgpack.Unmarshal(payload, &req); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode request",
			Err:  err,
		}
	}
	return &req, nil
}

// DecodeResponse decodes a payload as a Response.
func DecodeResponse(payload []byte) (*types.Response, error) {
	var resp types.Response
	if err := msgpack.Unmarshal(payload, &resp); err != nil {
		return nil, &FrameError{
			Kind: FrameErrorDecode,
			Msg:  "failed to decode response",
			Err:  err,
		}
	}
	return &resp, nil
}
