package types

import "math"

// ValidateRequest reports whether v is a well-formed request envelope per
// CONTRACT_PROTOCOL.md: a non-nil record whose version equals
// ProtocolVersion, whose requestId is a string and whose type is a known
// request tag. Payload fields are not inspected.
//
// v may be a Request, *Request or a decoded map[string]any.
func ValidateRequest(v any) bool {
	env, ok := envelopeOf(v)
	if !ok {
		return false
	}
	return env.valid() && env.typ.IsRequestType()
}

// ValidateResponse is the response-side counterpart of ValidateRequest.
func ValidateResponse(v any) bool {
	env, ok := envelopeOf(v)
	if !ok {
		return false
	}
	return env.valid() && env.typ.IsResponseType()
}

// RequestIDOf extracts a usable request id from an arbitrary message.
// Returns UnknownRequestID when v has no string id.
func RequestIDOf(v any) string {
	env, ok := envelopeOf(v)
	if !ok || !env.hasID {
		return UnknownRequestID
	}
	return env.requestID
}

type envelope struct {
	typ       MessageType
	hasType   bool
	requestID string
	hasID     bool
	version   any
}

func (e envelope) valid() bool {
	return e.hasType && e.hasID && versionMatches(e.version)
}

func envelopeOf(v any) (envelope, bool) {
	switch m := v.(type) {
	case nil:
		return envelope{}, false
	case *Request:
		if m == nil {
			return envelope{}, false
		}
		return envelope{typ: m.Type, hasType: true, requestID: m.RequestID, hasID: true, version: m.Version}, true
	case Request:
		return envelope{typ: m.Type, hasType: true, requestID: m.RequestID, hasID: true, version: m.Version}, true
	case *Response:
		if m == nil {
			return envelope{}, false
		}
		return envelope{typ: m.Type, hasType: true, requestID: m.RequestID, hasID: true, version: m.Version}, true
	case Response:
		return envelope{typ: m.Type, hasType: true, requestID: m.RequestID, hasID: true, version: m.Version}, true
	case map[string]any:
		if m == nil {
			return envelope{}, false
		}
		var env envelope
		switch t := m["type"].(type) {
		case string:
			env.typ, env.hasType = MessageType(t), true
		case MessageType:
			env.typ, env.hasType = t, true
		}
		if id, ok := m["requestId"].(string); ok {
			env.requestID, env.hasID = id, true
		}
		env.version = m["version"]
		return env, true
	default:
		return envelope{}, false
	}
}

// versionMatches compares a decoded version against ProtocolVersion.
// msgpack decodes small integers into the narrowest type, so every integer
// kind is accepted; floats match only when they are exactly integral.
func versionMatches(v any) bool {
	switch n := v.(type) {
	case int:
		return n == ProtocolVersion
	case int8:
		return int(n) == ProtocolVersion
	case int16:
		return int(n) == ProtocolVersion
	case int32:
		return int(n) == ProtocolVersion
	case int64:
		return n == ProtocolVersion
	case uint:
		return n == ProtocolVersion
	case uint8:
		return int(n) == ProtocolVersion
	case uint16:
		return int(n) == ProtocolVersion
	case uint32:
		return uint64(n) == ProtocolVersion
	case uint64:
		return n == ProtocolVersion
	case float32:
		return float64(n) == ProtocolVersion
	case float64:
		return !math.IsNaN(n) && n == ProtocolVersion
	default:
		return false
	}
}
