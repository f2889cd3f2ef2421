package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for Econet operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Client attributes
	// ========================================================================
	AttrClientAddr    = "client.address"
	AttrClientStation = "econet.station"

	// ========================================================================
	// Transport attributes
	// ========================================================================
	AttrPort      = "econet.port"
	AttrFlag      = "econet.flag"
	AttrSeq       = "aun.seq"
	AttrPktType   = "aun.type"
	AttrAttempts  = "aun.attempts"
	AttrTransport = "econet.transport" // aun, beebem

	// Resource attribute: this server's own address on BeebEm
	AttrServerStation = "econet.server.station"

	// ========================================================================
	// File server attributes
	// ========================================================================
	AttrFunction  = "fs.function"
	AttrCommand   = "fs.command"
	AttrHandle    = "fs.handle"
	AttrPath      = "fs.path"
	AttrOffset    = "fs.offset"
	AttrCount     = "fs.count"
	AttrSize      = "fs.size"
	AttrErrorCode = "fs.error_code"
	AttrEOF       = "fs.eof"
	AttrBytes     = "fs.bytes"
	AttrUsername  = "user.name"

	// ========================================================================
	// Print server attributes
	// ========================================================================
	AttrPrinter = "print.printer"
	AttrJob     = "print.job"

	// ========================================================================
	// Metadata store attributes
	// ========================================================================
	AttrStoreType = "store.type"
)

// Span names for operations.
const (
	// Root span for one inbound packet
	SpanPacket = "econet.packet"

	// Transport spans
	SpanTransmit = "transport.transmit"

	// Bulk transfer spans
	SpanDataSend = "fs.data_send"
	SpanDataRecv = "fs.data_recv"

	// Print server spans
	SpanPrintEnquiry = "print.enquiry"
	SpanPrintJob     = "print.job"
)

// ClientAddr returns an attribute for the requesting station
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// Station returns an attribute for an Econet "net.station" address
func Station(network, station uint8) attribute.KeyValue {
	return attribute.String(AttrClientStation, fmt.Sprintf("%d.%d", network, station))
}

// Port returns an attribute for an Econet port
func Port(port uint8) attribute.KeyValue {
	return attribute.Int(AttrPort, int(port))
}

// Seq returns an attribute for an AUN sequence number
func Seq(seq uint32) attribute.KeyValue {
	return attribute.Int64(AttrSeq, int64(seq))
}

// Attempts returns an attribute for the number of copies transmitted
func Attempts(n int) attribute.KeyValue {
	return attribute.Int(AttrAttempts, n)
}

// Transport returns an attribute for the encapsulation in use
func Transport(name string) attribute.KeyValue {
	return attribute.String(AttrTransport, name)
}

// Function returns an attribute for a file server function name
func Function(name string) attribute.KeyValue {
	return attribute.String(AttrFunction, name)
}

// Command returns an attribute for a * command name
func Command(name string) attribute.KeyValue {
	return attribute.String(AttrCommand, name)
}

// Handle returns an attribute for a client handle
func Handle(h uint8) attribute.KeyValue {
	return attribute.Int(AttrHandle, int(h))
}

// Path returns an attribute for a host path
func Path(p string) attribute.KeyValue {
	return attribute.String(AttrPath, p)
}

// Offset returns an attribute for a file offset
func Offset(off uint64) attribute.KeyValue {
	return attribute.Int64(AttrOffset, int64(off))
}

// Count returns an attribute for a requested byte count
func Count(n uint32) attribute.KeyValue {
	return attribute.Int64(AttrCount, int64(n))
}

// Size returns an attribute for a file size
func Size(size uint64) attribute.KeyValue {
	return attribute.Int64(AttrSize, int64(size))
}

// ErrorCode returns an attribute for an Acorn error number
func ErrorCode(code uint8) attribute.KeyValue {
	return attribute.Int(AttrErrorCode, int(code))
}

// EOF returns an attribute for end-of-file indicator
func EOF(eof bool) attribute.KeyValue {
	return attribute.Bool(AttrEOF, eof)
}

// Bytes returns an attribute for bytes actually transferred
func Bytes(n int) attribute.KeyValue {
	return attribute.Int(AttrBytes, n)
}

// Username returns an attribute for a login name
func Username(name string) attribute.KeyValue {
	return attribute.String(AttrUsername, name)
}

// Printer returns an attribute for a printer name
func Printer(name string) attribute.KeyValue {
	return attribute.String(AttrPrinter, name)
}

// StoreType returns an attribute for a metadata store type
func StoreType(t string) attribute.KeyValue {
	return attribute.String(AttrStoreType, t)
}

// StartFSSpan starts a span for a file server function.
func StartFSSpan(ctx context.Context, function string, client string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Function(function),
		ClientAddr(client),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "fs."+function, trace.WithAttributes(allAttrs...))
}

// StartTransmitSpan starts a span covering one reliable transmission.
func StartTransmitSpan(ctx context.Context, transport string, port uint8, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Transport(transport),
		Port(port),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanTransmit, trace.WithAttributes(allAttrs...))
}

// StartPrintSpan starts a span for a print server operation.
func StartPrintSpan(ctx context.Context, name string, client string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		ClientAddr(client),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}
