package logger

import (
	"fmt"
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements so that file
// server, print server and transport logs can be queried together.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Econet Addressing
	// ========================================================================
	KeyClient   = "client"    // Econet station or AUN host
	KeyStation  = "station"   // Econet "net.station" pair
	KeyPort     = "port"      // Econet port
	KeySeq      = "seq"       // AUN sequence number
	KeyPktType  = "pkt_type"  // AUN packet type
	KeyFlag     = "flag"      // Econet flag byte
	KeyAttempt  = "attempt"   // Retransmission attempt
	KeyMaxBlock = "max_block" // Largest bulk-transfer chunk

	// ========================================================================
	// File Server Request
	// ========================================================================
	KeyFunction  = "function"   // FS function name: OPEN, GETBYTES, ...
	KeyCommand   = "command"    // *command name
	KeyHandle    = "handle"     // Client-visible handle number
	KeyUser      = "user"       // Login name
	KeySessionID = "session_id" // Session identifier
	KeyArg       = "arg"        // Sub-opcode (examine/info/args)

	// ========================================================================
	// File System Operations
	// ========================================================================
	KeyPath     = "path"      // Host path
	KeyAcorn    = "acorn"     // Path as the client sent it
	KeyOldPath  = "old_path"  // Source path for rename
	KeyNewPath  = "new_path"  // Destination path for rename
	KeyType     = "type"      // Object type or RISC OS file type
	KeySize     = "size"      // File size in bytes
	KeyAccess   = "access"    // Acorn access string
	KeyFileType = "file_type" // RISC OS 12-bit file type

	// ========================================================================
	// I/O Operations
	// ========================================================================
	KeyOffset = "offset" // File offset
	KeyCount  = "count"  // Byte count requested
	KeyBytes  = "bytes"  // Bytes actually moved
	KeyEOF    = "eof"    // End of file indicator
	KeyChunks = "chunks" // Bulk-transfer chunks exchanged

	// ========================================================================
	// Directory Operations
	// ========================================================================
	KeyStart    = "start"     // First entry requested
	KeyEntries  = "entries"   // Entries returned
	KeyCacheHit = "cache_hit" // Examine cache hit

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Acorn error number
	KeyStoreType  = "store_type"  // Metadata store: symlink, badger
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// ----------------------------------------------------------------------------
// Distributed Tracing
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ----------------------------------------------------------------------------
// Econet Addressing
// ----------------------------------------------------------------------------

// Client returns a slog.Attr for the requesting station
func Client(addr string) slog.Attr {
	return slog.String(KeyClient, addr)
}

// Station returns a slog.Attr for an Econet address as "net.station"
func Station(network, station uint8) slog.Attr {
	return slog.String(KeyStation, fmt.Sprintf("%d.%d", network, station))
}

// Port returns a slog.Attr for an Econet port, in hex as Acorn documents them
func Port(p uint8) slog.Attr {
	return slog.String(KeyPort, fmt.Sprintf("&%02X", p))
}

// Seq returns a slog.Attr for an AUN sequence number
func Seq(seq uint32) slog.Attr {
	return slog.Any(KeySeq, seq)
}

// ----------------------------------------------------------------------------
// File Server Request
// ----------------------------------------------------------------------------

// Function returns a slog.Attr for a file server function name
func Function(name string) slog.Attr {
	return slog.String(KeyFunction, name)
}

// Handle returns a slog.Attr for a client handle
func Handle(h uint8) slog.Attr {
	return slog.Int(KeyHandle, int(h))
}

// User returns a slog.Attr for a login name
func User(name string) slog.Attr {
	return slog.String(KeyUser, name)
}

// SessionID returns a slog.Attr for a session identifier
func SessionID(id string) slog.Attr {
	return slog.String(KeySessionID, id)
}

// ----------------------------------------------------------------------------
// File System Operations
// ----------------------------------------------------------------------------

// Path returns a slog.Attr for a host path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Acorn returns a slog.Attr for a path in Acorn syntax
func Acorn(p string) slog.Attr {
	return slog.String(KeyAcorn, p)
}

// Size returns a slog.Attr for file size
func Size(s uint64) slog.Attr {
	return slog.Uint64(KeySize, s)
}

// FileType returns a slog.Attr for a RISC OS file type, as &XXX
func FileType(t int) slog.Attr {
	return slog.String(KeyFileType, fmt.Sprintf("&%03X", t))
}

// ----------------------------------------------------------------------------
// I/O Operations
// ----------------------------------------------------------------------------

// Offset returns a slog.Attr for file offset
func Offset(off uint64) slog.Attr {
	return slog.Uint64(KeyOffset, off)
}

// Count returns a slog.Attr for byte count requested
func Count(c uint32) slog.Attr {
	return slog.Any(KeyCount, c)
}

// Bytes returns a slog.Attr for bytes actually transferred
func Bytes(n int) slog.Attr {
	return slog.Int(KeyBytes, n)
}

// EOF returns a slog.Attr for end-of-file indicator
func EOF(eof bool) slog.Attr {
	return slog.Bool(KeyEOF, eof)
}

// ----------------------------------------------------------------------------
// Operation Metadata
// ----------------------------------------------------------------------------

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorCode returns a slog.Attr for an Acorn error number, as &XX
func ErrorCode(code uint8) slog.Attr {
	return slog.String(KeyErrorCode, fmt.Sprintf("&%02X", code))
}

// StoreType returns a slog.Attr for the metadata store type
func StoreType(t string) slog.Attr {
	return slog.String(KeyStoreType, t)
}
