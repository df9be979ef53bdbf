package lode

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"strings"
	"syscall"

	"github.com/aws/smithy-go"
)

// Storage failure kinds. StorageError matches them with errors.Is.
var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	ErrDiskFull         = errors.New("no space left on device")
	ErrTimeout          = errors.New("operation timed out")
	ErrThrottled        = errors.New("rate limited")
	// ErrAuth is missing or invalid credentials.
	ErrAuth = errors.New("authentication failed")
	// ErrAccessDenied is valid credentials without permission.
	ErrAccessDenied = errors.New("access denied")
	ErrNetwork      = errors.New("network error")

	errUnclassified = errors.New("storage error")
)

// StorageError is a classified failure of one storage operation.
type StorageError struct {
	Kind error
	// Op is init, read or write.
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	where := e.Op
	if e.Path != "" {
		where += " " + e.Path
	}
	return fmt.Sprintf("%s: %v: %v", where, e.Kind, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is matches the error's Kind.
func (e *StorageError) Is(target error) bool { return errors.Is(e.Kind, target) }

// NewStorageError creates a classified storage error.
func NewStorageError(kind error, op, path string, err error) *StorageError {
	return &StorageError{Kind: kind, Op: op, Path: path, Err: err}
}

func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewStorageError(classifyError(err), op, path, err)
}

// WrapWriteError classifies a write failure. nil stays nil.
func WrapWriteError(err error, path string) error { return wrap("write", path, err) }

// WrapReadError classifies a read failure. nil stays nil.
func WrapReadError(err error, path string) error { return wrap("read", path, err) }

// WrapInitError classifies a client or dataset setup failure. nil stays nil.
func WrapInitError(err error, dataset string) error { return wrap("init", dataset, err) }

// classifyError maps err to a kind. Typed errors win; message patterns
// catch what the stores only report as text.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	for _, classify := range []func(error) error{classifyTyped, classifyAPI, classifyMessage} {
		if kind := classify(err); kind != nil {
			return kind
		}
	}
	return errUnclassified
}

func classifyTyped(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return ErrPermissionDenied
	case errors.Is(err, syscall.ENOSPC):
		return ErrDiskFull
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return ErrTimeout
		}
		return ErrNetwork
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ErrNetwork
	}
	return nil
}

// apiCodes maps S3 error codes to kinds.
var apiCodes = map[string]error{
	"AccessDenied":          ErrAccessDenied,
	"AllAccessDisabled":     ErrAccessDenied,
	"NoSuchKey":             ErrNotFound,
	"NoSuchBucket":          ErrNotFound,
	"NotFound":              ErrNotFound,
	"SlowDown":              ErrThrottled,
	"RequestLimitExceeded":  ErrThrottled,
	"InvalidAccessKeyId":    ErrAuth,
	"SignatureDoesNotMatch": ErrAuth,
	"ExpiredToken":          ErrAuth,
	"RequestTimeout":        ErrTimeout,
}

func classifyAPI(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if kind, ok := apiCodes[apiErr.ErrorCode()]; ok {
			return kind
		}
	}

	var status interface{ HTTPStatusCode() int }
	if !errors.As(err, &status) {
		return nil
	}
	switch status.HTTPStatusCode() {
	case http.StatusUnauthorized:
		return ErrAuth
	case http.StatusForbidden:
		return ErrAccessDenied
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return ErrThrottled
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrTimeout
	}
	return nil
}

// messagePatterns are tried in order against the lowercased message.
// Access denied precedes permission denied so provider 403s are not
// reported as EACCES.
var messagePatterns = []struct {
	kind     error
	patterns []string
}{
	{ErrAccessDenied, []string{"accessdenied", "forbidden", "403"}},
	{ErrPermissionDenied, []string{"permission denied", "access denied", "eacces"}},
	{ErrNotFound, []string{"no such file", "does not exist", "not found", "enoent", "404", "nosuchkey", "nosuchbucket"}},
	{ErrDiskFull, []string{"no space left", "disk full", "enospc", "quota exceeded"}},
	{ErrTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{ErrThrottled, []string{"slowdown", "rate exceeded", "throttl", "429", "toomanyrequests"}},
	{ErrAuth, []string{"nocredentialproviders", "credentials", "invalidaccesskeyid",
		"signaturedoesnotmatch", "expiredtoken", "401", "unauthorized"}},
	{ErrNetwork, []string{"connection refused", "no route to host", "network unreachable", "dns", "dial tcp"}},
}

func classifyMessage(err error) error {
	msg := strings.ToLower(err.Error())
	for _, rule := range messagePatterns {
		for _, p := range rule.patterns {
			if strings.Contains(msg, p) {
				return rule.kind
			}
		}
	}
	return nil
}
