package types

// MessageType is the discriminator of a request or response per
// CONTRACT_PROTOCOL.md.
type MessageType string

// Request message types.
const (
	MessageTypePing                   MessageType = "ping"
	MessageTypeWarmup                 MessageType = "warmup"
	MessageTypeFibonacci              MessageType = "fibonacci"
	MessageTypeFibonacciIter          MessageType = "fibonacciIter"
	MessageTypeFibonacciBatch         MessageType = "fibonacciBatch"
	MessageTypeFibonacciBatchRef      MessageType = "fibonacciBatchRef"
	MessageTypeFibonacciIterBatch     MessageType = "fibonacciIterBatch"
	MessageTypeSharedBufferProcess    MessageType = "sharedBufferProcess"
	MessageTypeSharedMemoryInit       MessageType = "sharedMemoryInit"
	MessageTypeSharedMemoryProcess    MessageType = "sharedMemoryProcess"
	MessageTypeSumArray               MessageType = "sumArray"
	MessageTypeSumArrayShared         MessageType = "sumArrayShared"
	MessageTypeDotProduct             MessageType = "dotProduct"
	MessageTypeSumF32                 MessageType = "sumF32"
	MessageTypeGrayscale              MessageType = "grayscale"
	MessageTypeBoxBlur                MessageType = "boxBlur"
	MessageTypeFFTDemo                MessageType = "fftDemo"
	MessageTypeGenerateSignal         MessageType = "generateSignal"
	MessageTypeMatrixMultiply         MessageType = "matrixMultiply"
	MessageTypeMatrixMultiplyRef      MessageType = "matrixMultiplyRef"
	MessageTypeMatrixMultiplyStrassen MessageType = "matrixMultiplyStrassen"
	MessageTypeMatrixMultiplyRefBench MessageType = "matrixMultiplyRefBench"
	MessageTypeMatrixMultiplyBench    MessageType = "matrixMultiplyBench"
	MessageTypeQuicksort              MessageType = "quicksort"
	MessageTypeQuicksortRef           MessageType = "quicksortRef"
	MessageTypeQuicksortRefBench      MessageType = "quicksortRefBench"
	MessageTypeQuicksortBench         MessageType = "quicksortBench"
)

// Response message types.
const (
	MessageTypeReady                      MessageType = "ready"
	MessageTypeWarmupDone                 MessageType = "warmupDone"
	MessageTypeError                      MessageType = "error"
	MessageTypeFibonacciResult            MessageType = "fibonacciResult"
	MessageTypeFibonacciIterResult        MessageType = "fibonacciIterResult"
	MessageTypeFibonacciBatchResult       MessageType = "fibonacciBatchResult"
	MessageTypeFibonacciBatchRefResult    MessageType = "fibonacciBatchRefResult"
	MessageTypeFibonacciIterBatchResult   MessageType = "fibonacciIterBatchResult"
	MessageTypeSharedBufferDone           MessageType = "sharedBufferDone"
	MessageTypeSharedMemoryReady          MessageType = "sharedMemoryReady"
	MessageTypeSharedMemoryProcessDone    MessageType = "sharedMemoryProcessDone"
	MessageTypeSumArrayResult             MessageType = "sumArrayResult"
	MessageTypeSumArraySharedResult       MessageType = "sumArraySharedResult"
	MessageTypeDotProductResult           MessageType = "dotProductResult"
	MessageTypeSumF32Result               MessageType = "sumF32Result"
	MessageTypeGrayscaleDone              MessageType = "grayscaleDone"
	MessageTypeBoxBlurDone                MessageType = "boxBlurDone"
	MessageTypeFFTDemoDone                MessageType = "fftDemoDone"
	MessageTypeGenerateSignalDone         MessageType = "generateSignalDone"
	MessageTypeMatrixMultiplyDone         MessageType = "matrixMultiplyDone"
	MessageTypeMatrixMultiplyRefDone      MessageType = "matrixMultiplyRefDone"
	MessageTypeMatrixMultiplyStrassenDone MessageType = "matrixMultiplyStrassenDone"
	MessageTypeMatrixMultiplyRefBenchDone MessageType = "matrixMultiplyRefBenchDone"
	MessageTypeMatrixMultiplyBenchDone    MessageType = "matrixMultiplyBenchDone"
	MessageTypeQuicksortDone              MessageType = "quicksortDone"
	MessageTypeQuicksortRefDone           MessageType = "quicksortRefDone"
	MessageTypeQuicksortRefBenchDone      MessageType = "quicksortRefBenchDone"
	MessageTypeQuicksortBenchDone         MessageType = "quicksortBenchDone"
)

// successResponses maps every request type to the response type that
// reports its successful completion. The key set is the request tag set.
var successResponses = map[MessageType]MessageType{
	MessageTypePing:                   MessageTypeReady,
	MessageTypeWarmup:                 MessageTypeWarmupDone,
	MessageTypeFibonacci:              MessageTypeFibonacciResult,
	MessageTypeFibonacciIter:          MessageTypeFibonacciIterResult,
	MessageTypeFibonacciBatch:         MessageTypeFibonacciBatchResult,
	MessageTypeFibonacciBatchRef:      MessageTypeFibonacciBatchRefResult,
	MessageTypeFibonacciIterBatch:     MessageTypeFibonacciIterBatchResult,
	MessageTypeSharedBufferProcess:    MessageTypeSharedBufferDone,
	MessageTypeSharedMemoryInit:       MessageTypeSharedMemoryReady,
	MessageTypeSharedMemoryProcess:    MessageTypeSharedMemoryProcessDone,
	MessageTypeSumArray:               MessageTypeSumArrayResult,
	MessageTypeSumArrayShared:         MessageTypeSumArraySharedResult,
	MessageTypeDotProduct:             MessageTypeDotProductResult,
	MessageTypeSumF32:                 MessageTypeSumF32Result,
	MessageTypeGrayscale:              MessageTypeGrayscaleDone,
	MessageTypeBoxBlur:                MessageTypeBoxBlurDone,
	MessageTypeFFTDemo:                MessageTypeFFTDemoDone,
	MessageTypeGenerateSignal:         MessageTypeGenerateSignalDone,
	MessageTypeMatrixMultiply:         MessageTypeMatrixMultiplyDone,
	MessageTypeMatrixMultiplyRef:      MessageTypeMatrixMultiplyRefDone,
	MessageTypeMatrixMultiplyStrassen: MessageTypeMatrixMultiplyStrassenDone,
	MessageTypeMatrixMultiplyRefBench: MessageTypeMatrixMultiplyRefBenchDone,
	MessageTypeMatrixMultiplyBench:    MessageTypeMatrixMultiplyBenchDone,
	MessageTypeQuicksort:              MessageTypeQuicksortDone,
	MessageTypeQuicksortRef:           MessageTypeQuicksortRefDone,
	MessageTypeQuicksortRefBench:      MessageTypeQuicksortRefBenchDone,
	MessageTypeQuicksortBench:         MessageTypeQuicksortBenchDone,
}

var responseTypes = func() map[MessageType]struct{} {
	set := map[MessageType]struct{}{MessageTypeError: {}}
	for _, resp := range successResponses {
		set[resp] = struct{}{}
	}
	return set
}()

// SuccessResponseType returns the response type emitted when a request of
// type t completes successfully.
func SuccessResponseType(t MessageType) (MessageType, bool) {
	resp, ok := successResponses[t]
	return resp, ok
}

// IsRequestType reports whether t is a known request tag.
func (t MessageType) IsRequestType() bool {
	_, ok := successResponses[t]
	return ok
}

// IsResponseType reports whether t is a known response tag.
func (t MessageType) IsResponseType() bool {
	_, ok := responseTypes[t]
	return ok
}

// RequestTypes returns every request tag. Order is unspecified.
func RequestTypes() []MessageType {
	out := make([]MessageType, 0, len(successResponses))
	for t := range successResponses {
		out = append(out, t)
	}
	return out
}

// Algorithm names a matrix multiplication strategy.
type Algorithm string

// Algorithm constants.
const (
	AlgorithmNaive    Algorithm = "naive"
	AlgorithmStrassen Algorithm = "strassen"
)

// SharedRef names a byte window inside a shared memory region.
// Messages carry refs, never the region contents, so they stay cheap to
// encode while the data itself is shared.
type SharedRef struct {
	// Region identifies the mapping (an anonymous region id or a file path).
	Region string `msgpack:"region" json:"region"`
	// Offset is the window start in bytes.
	Offset int `msgpack:"offset" json:"offset"`
	// Length is the window size in bytes.
	Length int `msgpack:"length" json:"length"`
}

// IsZero reports whether the ref names no region.
func (r SharedRef) IsZero() bool {
	return r.Region == ""
}

// Request is the flat wire form of every request variant.
// Type selects which payload fields are meaningful.
type Request struct {
	Type      MessageType `msgpack:"type"`
	RequestID string      `msgpack:"requestId"`
	Version   int         `msgpack:"version"`

	// Scalar parameters
	N          int       `msgpack:"n,omitempty"`
	Iterations int       `msgpack:"iterations,omitempty"`
	Length     int       `msgpack:"length,omitempty"`
	Width      int       `msgpack:"width,omitempty"`
	Height     int       `msgpack:"height,omitempty"`
	Radius     int       `msgpack:"radius,omitempty"`
	Size       int       `msgpack:"size,omitempty"`
	Freq1      float64   `msgpack:"freq1,omitempty"`
	Freq2      float64   `msgpack:"freq2,omitempty"`
	Freq3      float64   `msgpack:"freq3,omitempty"`
	Algorithm  Algorithm `msgpack:"algorithm,omitempty"`
	Ptr        uint32    `msgpack:"ptr,omitempty"`

	// Copied payload (sumArray)
	Data []uint32 `msgpack:"data,omitempty"`

	// Shared windows
	Buffer       *SharedRef `msgpack:"buffer,omitempty"`
	ABuffer      *SharedRef `msgpack:"aBuffer,omitempty"`
	BBuffer      *SharedRef `msgpack:"bBuffer,omitempty"`
	CBuffer      *SharedRef `msgpack:"cBuffer,omitempty"`
	InputBuffer  *SharedRef `msgpack:"inputBuffer,omitempty"`
	OutputBuffer *SharedRef `msgpack:"outputBuffer,omitempty"`
	Control      *SharedRef `msgpack:"control,omitempty"`
}

// NewRequest builds a request of type t stamped with the protocol version.
func NewRequest(t MessageType, requestID string) *Request {
	return &Request{Type: t, RequestID: requestID, Version: ProtocolVersion}
}

// Response is the flat wire form of every response variant.
type Response struct {
	Type      MessageType `msgpack:"type" json:"type"`
	RequestID string      `msgpack:"requestId" json:"requestId"`
	Version   int         `msgpack:"version" json:"version"`

	// Message is set on error responses.
	Message string `msgpack:"message,omitempty" json:"message,omitempty"`

	// Result is the numeric result of value kernels.
	Result float64 `msgpack:"result,omitempty" json:"result,omitempty"`
	// ResultBig is the exact 64-bit result of iterative fibonacci.
	ResultBig uint64 `msgpack:"resultBig,omitempty" json:"resultBig,omitempty"`
	// Iterations echoes the batch count.
	Iterations int `msgpack:"iterations,omitempty" json:"iterations,omitempty"`

	DurationMs    float64   `msgpack:"durationMs,omitempty" json:"durationMs,omitempty"`
	AlgorithmUsed Algorithm `msgpack:"algorithmUsed,omitempty" json:"algorithmUsed,omitempty"`

	// Shared memory arena fields (sharedMemoryReady).
	Available bool       `msgpack:"available,omitempty" json:"available,omitempty"`
	Memory    *SharedRef `msgpack:"buffer,omitempty" json:"buffer,omitempty"`
	Ptr       uint32     `msgpack:"ptr,omitempty" json:"ptr,omitempty"`
	Length    int        `msgpack:"length,omitempty" json:"length,omitempty"`

	// Threshold reports the active crossover threshold (warmupDone).
	Threshold int `msgpack:"threshold,omitempty" json:"threshold,omitempty"`
}

// NewResponse builds a response of type t answering requestID.
func NewResponse(t MessageType, requestID string) *Response {
	return &Response{Type: t, RequestID: requestID, Version: ProtocolVersion}
}

// NewErrorResponse builds an error response answering requestID.
func NewErrorResponse(requestID, message string) *Response {
	resp := NewResponse(MessageTypeError, requestID)
	resp.Message = message
	return resp
}

// UnknownRequestID is the id used when an invalid message has no usable id.
const UnknownRequestID = "unknown"
