package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestText(useColor bool) (*bytes.Buffer, *slog.Logger) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, useColor)
	return &buf, slog.New(h)
}

func TestColorTextHandlerQuoting(t *testing.T) {
	buf, l := newTestText(false)
	l.Info("open", KeyAcorn, "$.Games.Elite", KeyPath, "/srv/my games", "empty", "")

	out := buf.String()
	assert.Contains(t, out, "[INFO] open")
	assert.Contains(t, out, "acorn=$.Games.Elite")
	assert.Contains(t, out, `path="/srv/my games"`)
	assert.Contains(t, out, `empty=""`)
}

func TestColorTextHandlerGroups(t *testing.T) {
	buf, l := newTestText(false)
	l.WithGroup("fs").With(Handle(3)).Info("getbytes", slog.Group("req", Offset(512), Count(256)))

	out := buf.String()
	assert.Contains(t, out, "fs.handle=3")
	assert.Contains(t, out, "fs.req.offset=512")
	assert.Contains(t, out, "fs.req.count=256")
}

func TestColorTextHandlerValues(t *testing.T) {
	buf, l := newTestText(false)
	l.Debug("done", Port(0x99), Err(errors.New("not found")), DurationMs(1.5), EOF(true))

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] done")
	assert.Contains(t, out, "port=&99")
	assert.Contains(t, out, `error="not found"`)
	assert.Contains(t, out, "duration_ms=1.500")
	assert.Contains(t, out, "eof=true")
}

func TestColorTextHandlerColor(t *testing.T) {
	buf, l := newTestText(true)
	l.Warn("slow", TraceID("abc"), Client("0.101"))

	out := buf.String()
	assert.Contains(t, out, colorYellow+"WARN"+colorReset)
	assert.Contains(t, out, colorGray+KeyTraceID+colorReset+"=abc")
	assert.Contains(t, out, colorCyan+KeyClient+colorReset+"=0.101")
}

func TestColorTextHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, nil, false)
	slog.New(h).Debug("hidden")
	assert.Empty(t, buf.String())
}
