package logger

import (
	"context"
	"time"
)

type logContextKey struct{}

// LogContext is the per-request state the *Ctx functions prepend to a
// record. Values are immutable once stored in a context; the With
// methods return modified copies.
type LogContext struct {
	TraceID   string
	SpanID    string
	Function  string // FS function name, or print job/enquiry
	Client    string // Econet station or AUN host
	User      string // empty before *I AM
	Port      uint8  // Econet port the request arrived on
	StartTime time.Time
}

// NewLogContext starts a LogContext for a request from client.
func NewLogContext(client string) *LogContext {
	return &LogContext{Client: client, StartTime: time.Now()}
}

// WithContext stores lc in ctx.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey{}, lc)
}

// FromContext returns the LogContext stored in ctx, or nil.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey{}).(*LogContext)
	return lc
}

// Clone returns a shallow copy; nil stays nil.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	c := *lc
	return &c
}

func (lc *LogContext) with(set func(*LogContext)) *LogContext {
	c := lc.Clone()
	if c != nil {
		set(c)
	}
	return c
}

func (lc *LogContext) WithFunction(name string) *LogContext {
	return lc.with(func(c *LogContext) { c.Function = name })
}

func (lc *LogContext) WithUser(user string) *LogContext {
	return lc.with(func(c *LogContext) { c.User = user })
}

func (lc *LogContext) WithPort(port uint8) *LogContext {
	return lc.with(func(c *LogContext) { c.Port = port })
}

// WithTrace records the OpenTelemetry ids of the request's span.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	return lc.with(func(c *LogContext) { c.TraceID, c.SpanID = traceID, spanID })
}

// DurationMs is the time since StartTime, or 0 when it was never set.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return Duration(lc.StartTime)
}
