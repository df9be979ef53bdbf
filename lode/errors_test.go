package lode

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"syscall"
	"testing"

	"github.com/aws/smithy-go"
)

type statusErr int

func (e statusErr) Error() string       { return "http response error" }
func (e statusErr) HTTPStatusCode() int { return int(e) }

func TestClassifyError_Messages(t *testing.T) {
	tests := []struct {
		msg  string
		want error
	}{
		{"context deadline exceeded", ErrTimeout},
		{"connection timeout after 30s", ErrTimeout},
		{"AccessDenied: you do not have access", ErrAccessDenied},
		{"received status 403", ErrAccessDenied},
		{"permission denied for /data/reports", ErrPermissionDenied},
		{"open /tmp/file: EACCES", ErrPermissionDenied},
		{"write /data/out: no space left on device", ErrDiskFull},
		{"quota exceeded for user", ErrDiskFull},
		{"no such file or directory", ErrNotFound},
		{"NoSuchKey: The specified key does not exist", ErrNotFound},
		{"NoSuchBucket", ErrNotFound},
		{"received status 429", ErrThrottled},
		{"SlowDown: please reduce request rate", ErrThrottled},
		{"NoCredentialProviders: no valid providers", ErrAuth},
		{"ExpiredToken: the security token has expired", ErrAuth},
		{"dial tcp 127.0.0.1:9000: connection refused", ErrNetwork},
		{"DNS lookup failed for bucket.s3.amazonaws.com", ErrNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			got := classifyError(errors.New(tt.msg))
			if !errors.Is(got, tt.want) {
				t.Errorf("classifyError(%q) = %v, want %v", tt.msg, got, tt.want)
			}
		})
	}
}

func TestClassifyError_Typed(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"deadline", fmt.Errorf("put: %w", context.DeadlineExceeded), ErrTimeout},
		{"not exist", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrNotExist}, ErrNotFound},
		{"permission", &fs.PathError{Op: "open", Path: "/x", Err: fs.ErrPermission}, ErrPermissionDenied},
		{"enospc", &fs.PathError{Op: "write", Path: "/x", Err: syscall.ENOSPC}, ErrDiskFull},
		{"dial", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("refused")}, ErrNetwork},
		{"api code", &smithy.GenericAPIError{Code: "SlowDown", Message: "reduce your request rate"}, ErrThrottled},
		{"api code wrapped", fmt.Errorf("get object: %w", &smithy.GenericAPIError{Code: "NoSuchKey"}), ErrNotFound},
		{"http 403", statusErr(403), ErrAccessDenied},
		{"http 401", statusErr(401), ErrAuth},
		{"http 503", statusErr(503), ErrThrottled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyError(tt.err); !errors.Is(got, tt.want) {
				t.Errorf("classifyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyError_Fallback(t *testing.T) {
	got := classifyError(errors.New("something completely unexpected happened"))
	if !errors.Is(got, errUnclassified) {
		t.Errorf("classifyError fallback = %v, want %q", got, "storage error")
	}
	if classifyError(nil) != nil {
		t.Error("classifyError(nil) should be nil")
	}
}

func TestStorageError_Chain(t *testing.T) {
	cause := errors.New("write /data: no space left on device")
	err := WrapWriteError(cause, "crucible/day=2026-10-18")

	if !errors.Is(err, ErrDiskFull) {
		t.Errorf("errors.Is(err, ErrDiskFull) = false for %v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("underlying cause should stay in the chain")
	}
	var se *StorageError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StorageError, got %T", err)
	}
	if se.Op != "write" || se.Path != "crucible/day=2026-10-18" {
		t.Errorf("unexpected StorageError fields: op=%q path=%q", se.Op, se.Path)
	}

	if WrapWriteError(nil, "x") != nil || WrapReadError(nil, "x") != nil || WrapInitError(nil, "x") != nil {
		t.Error("wrapping nil should return nil")
	}
	if err := WrapReadError(cause, ""); err.Error() != "read: no space left on device: "+cause.Error() {
		t.Errorf("unexpected message without path: %q", err.Error())
	}
}
