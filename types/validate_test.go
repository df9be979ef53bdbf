package types //nolint:revive // types is a valid package name

import "testing"

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"nil", nil, false},
		{"nil pointer", (*Request)(nil), false},
		{"not a record", "ping", false},
		{"valid map", map[string]any{"type": "ping", "requestId": "x", "version": 1}, true},
		{"valid map int8 version", map[string]any{"type": "ping", "requestId": "x", "version": int8(1)}, true},
		{"valid map uint8 version", map[string]any{"type": "fibonacci", "requestId": "x", "version": uint8(1), "n": 10}, true},
		{"version 2", map[string]any{"type": "ping", "requestId": "x", "version": 2}, false},
		{"version string", map[string]any{"type": "ping", "requestId": "x", "version": "1"}, false},
		{"version missing", map[string]any{"type": "ping", "requestId": "x"}, false},
		{"requestId not string", map[string]any{"type": "ping", "requestId": 7, "version": 1}, false},
		{"requestId missing", map[string]any{"type": "ping", "version": 1}, false},
		{"unknown type", map[string]any{"type": "explode", "requestId": "x", "version": 1}, false},
		{"response type", map[string]any{"type": "ready", "requestId": "x", "version": 1}, false},
		{"struct", *NewRequest(MessageTypeQuicksort, "x"), true},
		{"struct pointer", NewRequest(MessageTypeWarmup, "x"), true},
		{"struct wrong version", &Request{Type: MessageTypePing, RequestID: "x", Version: 2}, false},
		{"empty id is still a string", map[string]any{"type": "ping", "requestId": "", "version": 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateRequest(tt.v); got != tt.want {
				t.Errorf("ValidateRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{"ready", map[string]any{"type": "ready", "requestId": "x", "version": 1}, true},
		{"error", map[string]any{"type": "error", "requestId": "x", "version": 1, "message": "m"}, true},
		{"request type", map[string]any{"type": "ping", "requestId": "x", "version": 1}, false},
		{"version 2", map[string]any{"type": "ready", "requestId": "x", "version": 2}, false},
		{"struct", NewResponse(MessageTypeQuicksortDone, "x"), true},
		{"struct bad version", &Response{Type: MessageTypeReady, RequestID: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateResponse(tt.v); got != tt.want {
				t.Errorf("ValidateResponse() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRequestIDOf(t *testing.T) {
	if got := RequestIDOf(map[string]any{"requestId": "abc", "version": 9}); got != "abc" {
		t.Errorf("RequestIDOf() = %q, want abc", got)
	}
	if got := RequestIDOf(map[string]any{"requestId": 5}); got != UnknownRequestID {
		t.Errorf("RequestIDOf() = %q, want %q", got, UnknownRequestID)
	}
	if got := RequestIDOf(42); got != UnknownRequestID {
		t.Errorf("RequestIDOf() = %q, want %q", got, UnknownRequestID)
	}
}
