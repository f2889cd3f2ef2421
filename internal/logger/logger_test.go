package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput points the logger at a buffer, uncoloured text at INFO,
// and restores the previous output when the test ends.
func captureOutput(t testing.TB) *bytes.Buffer {
	t.Helper()
	buf := new(bytes.Buffer)

	mu.Lock()
	prevOut, prevColor := output, useColor
	output, useColor = buf, false
	mu.Unlock()
	format.Store("text")
	level.Set(slog.LevelInfo)
	reconfigure()

	t.Cleanup(func() {
		mu.Lock()
		output, useColor = prevOut, prevColor
		mu.Unlock()
		format.Store("text")
		level.Set(slog.LevelInfo)
		reconfigure()
	})
	return buf
}

func decodeJSONLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry), buf.String())
	return entry
}

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level string
		shown []string
	}{
		{"DEBUG", []string{"debug", "info", "warn", "error"}},
		{"INFO", []string{"info", "warn", "error"}},
		{"WARN", []string{"warn", "error"}},
		{"ERROR", []string{"error"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := captureOutput(t)
			SetLevel(tt.level)

			Debug("msg-debug")
			Info("msg-info")
			Warn("msg-warn")
			Error("msg-error")

			out := buf.String()
			for _, name := range []string{"debug", "info", "warn", "error"} {
				shown := false
				for _, s := range tt.shown {
					shown = shown || s == name
				}
				if shown {
					assert.Contains(t, out, "msg-"+name)
				} else {
					assert.NotContains(t, out, "msg-"+name)
				}
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	buf := captureOutput(t)

	SetLevel("DeBuG")
	Debug("mixed case")
	assert.Contains(t, buf.String(), "mixed case")

	buf.Reset()
	SetLevel("WARN")
	SetLevel("INVALID")
	Info("still filtered")
	assert.Empty(t, buf.String(), "unknown level names are ignored")
}

func TestParseLevel(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warning": slog.LevelWarn,
		"ERROR":   slog.LevelError,
	} {
		got, ok := ParseLevel(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}

	_, ok := ParseLevel("TRACE")
	assert.False(t, ok)
}

func TestTextFormat(t *testing.T) {
	buf := captureOutput(t)
	SetLevel("DEBUG")

	Info("logged in", "user", "ALICE", "urd", "$.Users.Alice")
	Warn("")

	out := buf.String()
	assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] \[INFO\] logged in`, out)
	assert.Contains(t, out, "user=ALICE")
	assert.Contains(t, out, "urd=$.Users.Alice")
	assert.Contains(t, out, "[WARN]")
}

func TestJSONFormat(t *testing.T) {
	buf := captureOutput(t)
	SetFormat("json")

	Info("print job started", "bytes", 42, Port(0xd1))

	entry := decodeJSONLine(t, buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "print job started", entry["msg"])
	assert.Equal(t, float64(42), entry["bytes"])
	assert.Equal(t, "&D1", entry["port"])
	assert.Contains(t, entry, "time")
}

func TestFormatSwitching(t *testing.T) {
	buf := captureOutput(t)

	SetFormat("json")
	Info("as json")
	assert.True(t, json.Valid(bytes.TrimSpace(buf.Bytes())))

	buf.Reset()
	SetFormat("text")
	SetFormat("xml")
	Info("as text")
	assert.Contains(t, buf.String(), "[INFO] as text")
}

func TestContextLogging(t *testing.T) {
	t.Run("InjectsLogContext", func(t *testing.T) {
		buf := captureOutput(t)
		SetFormat("json")

		lc := NewLogContext("0.101").
			WithFunction("GETBYTES").
			WithUser("ALICE").
			WithPort(0x99).
			WithTrace("abc123", "xyz789")
		InfoCtx(WithContext(context.Background(), lc), "read", Handle(4))

		entry := decodeJSONLine(t, buf)
		assert.Equal(t, "abc123", entry[KeyTraceID])
		assert.Equal(t, "xyz789", entry[KeySpanID])
		assert.Equal(t, "GETBYTES", entry[KeyFunction])
		assert.Equal(t, "0.101", entry[KeyClient])
		assert.Equal(t, "ALICE", entry[KeyUser])
		assert.Equal(t, "&99", entry[KeyPort])
		assert.Equal(t, float64(4), entry[KeyHandle])
	})

	t.Run("EmptyFieldsOmitted", func(t *testing.T) {
		buf := captureOutput(t)
		SetFormat("json")

		WarnCtx(WithContext(context.Background(), NewLogContext("0.102")), "no login")

		entry := decodeJSONLine(t, buf)
		assert.Equal(t, "0.102", entry[KeyClient])
		assert.NotContains(t, entry, KeyUser)
		assert.NotContains(t, entry, KeyPort)
		assert.NotContains(t, entry, KeyTraceID)
	})

	t.Run("NilAndBareContexts", func(t *testing.T) {
		buf := captureOutput(t)

		require.NotPanics(t, func() {
			//nolint:staticcheck // nil context is tolerated
			InfoCtx(nil, "nil ctx")
			ErrorCtx(context.Background(), "bare ctx")
		})
		assert.Contains(t, buf.String(), "nil ctx")
		assert.Contains(t, buf.String(), "bare ctx")
	})

	t.Run("LevelStillFilters", func(t *testing.T) {
		buf := captureOutput(t)
		DebugCtx(WithContext(context.Background(), NewLogContext("0.103")), "hidden")
		assert.Empty(t, buf.String())
	})
}

func TestLogContext(t *testing.T) {
	lc := NewLogContext("0.254")
	assert.Equal(t, "0.254", lc.Client)
	assert.False(t, lc.StartTime.IsZero())
	assert.GreaterOrEqual(t, lc.DurationMs(), 0.0)

	named := lc.WithFunction("EXAMINE").WithUser("CAROL").WithPort(0xd1)
	assert.Equal(t, "EXAMINE", named.Function)
	assert.Equal(t, "CAROL", named.User)
	assert.Equal(t, uint8(0xd1), named.Port)
	assert.Empty(t, lc.Function, "With methods copy")

	var nilLC *LogContext
	assert.Nil(t, nilLC.Clone())
	assert.Nil(t, nilLC.WithUser("X"))
	assert.Zero(t, nilLC.DurationMs())
	assert.Nil(t, FromContext(context.Background()))
}

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, "&99", Port(0x99).Value.String())
	assert.Equal(t, "&D6", ErrorCode(0xd6).Value.String())
	assert.Equal(t, "&FFF", FileType(0xfff).Value.String())
	assert.Equal(t, "1.254", Station(1, 254).Value.String())

	assert.Equal(t, "", Err(nil).Key)
	assert.Equal(t, KeyError, Err(assert.AnError).Key)
}

func TestConcurrentLogging(t *testing.T) {
	t.Run("OneLinePerRecord", func(t *testing.T) {
		buf := captureOutput(t)

		const workers, each = 10, 100
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := range each {
					Info("tick", "worker", i, "n", j)
				}
			}()
		}
		wg.Wait()

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		assert.Len(t, lines, workers*each)
	})

	t.Run("LevelChangesWhileLogging", func(t *testing.T) {
		captureOutput(t)
		InitWithWriter(io.Discard, "DEBUG", "text", false)

		var wg sync.WaitGroup
		for i := range 4 {
			wg.Add(2)
			go func() {
				defer wg.Done()
				for j := range 50 {
					SetLevel([]string{"DEBUG", "ERROR"}[j%2])
				}
			}()
			go func() {
				defer wg.Done()
				for range 50 {
					Debug("d", "id", i)
					Error("e", "id", i)
				}
			}()
		}
		wg.Wait()
	})
}

func TestInit(t *testing.T) {
	t.Run("FileOutput", func(t *testing.T) {
		captureOutput(t)
		path := filepath.Join(t.TempDir(), "aund.log")

		require.NoError(t, Init(Config{Level: "DEBUG", Format: "json", Output: path}))
		Debug("to file")
		t.Cleanup(func() {
			mu.Lock()
			if logFile != nil {
				_ = logFile.Close()
				logFile = nil
			}
			mu.Unlock()
		})

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"to file"`)
	})

	t.Run("BadPath", func(t *testing.T) {
		captureOutput(t)
		err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "aund.log")})
		assert.Error(t, err)
	})

	t.Run("EmptyConfigKeepsSettings", func(t *testing.T) {
		buf := captureOutput(t)
		require.NoError(t, Init(Config{}))
		Info("unchanged")
		assert.Contains(t, buf.String(), "[INFO] unchanged")
	})

	t.Run("Stdout", func(t *testing.T) {
		captureOutput(t)
		require.NoError(t, Init(Config{Output: "stdout"}))
	})
}

func BenchmarkLogDisabled(b *testing.B) {
	captureOutput(b)
	InitWithWriter(io.Discard, "ERROR", "text", false)
	for b.Loop() {
		Debug("test message", "key", "value")
	}
}

func BenchmarkLogText(b *testing.B) {
	captureOutput(b)
	InitWithWriter(io.Discard, "DEBUG", "text", false)
	for b.Loop() {
		Info("test message", "key", "value", Handle(3))
	}
}

func BenchmarkLogCtx(b *testing.B) {
	captureOutput(b)
	InitWithWriter(io.Discard, "DEBUG", "json", false)
	ctx := WithContext(context.Background(), NewLogContext("0.101").WithFunction("GETBYTES"))
	for b.Loop() {
		InfoCtx(ctx, "test message", Count(256))
	}
}
