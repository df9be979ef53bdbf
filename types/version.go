package types

// Version is the canonical project version shared by the CLI and the worker
// binary.
const Version = "0.2.0"

// ProtocolVersion is the worker protocol version per CONTRACT_PROTOCOL.md.
// Every request and response carries it; a mismatch invalidates the message.
const ProtocolVersion = 1
