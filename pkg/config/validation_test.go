package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidAPIPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.API.Port = 70000 // Out of range

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for port out of range")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}
}

func TestValidate_NegativePort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.API.Port = -1

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for negative port")
	}
}

func TestValidate_MissingRoot(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.FileServer.Root = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for missing root")
	}
	if !strings.Contains(err.Error(), "Root") {
		t.Errorf("Expected error about root, got: %v", err)
	}
}

func TestValidate_UnknownTransport(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Transport.Type = "ethernet"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for unknown transport")
	}
}

func TestValidate_BeebEmNeedsStationTable(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Transport.Type = TransportBeebEm

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for beebem without a station table")
	}
	if !strings.Contains(err.Error(), "beebem_config") {
		t.Errorf("Expected error about beebem_config, got: %v", err)
	}

	cfg.Transport.BeebEmConfig = "/etc/aund/econet.cfg"
	cfg.Transport.Station = 255
	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for the broadcast station")
	}

	cfg.Transport.Station = 254
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected beebem config to pass, got: %v", err)
	}
}

func TestValidate_PathsStayInsideRoot(t *testing.T) {
	tests := []struct {
		urd, lib string
		ok       bool
	}{
		{"Users/alice", "Library", true},
		{"", "Library", true},
		{"/home/alice", "Library", false},
		{"../escape", "Library", false},
		{"Users", "Lib/../../x", false},
	}
	for _, tt := range tests {
		cfg := GetDefaultConfig()
		cfg.FileServer.URD = tt.urd
		cfg.FileServer.Lib = tt.lib
		err := Validate(cfg)
		if tt.ok && err != nil {
			t.Errorf("urd=%q lib=%q: unexpected error %v", tt.urd, tt.lib, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("urd=%q lib=%q: expected an error", tt.urd, tt.lib)
		}
	}
}

func TestValidate_DiscNameLength(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.FileServer.DiscName = "AVeryLongDiscName"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for a 17 character disc name")
	}
}

func TestValidate_BadgerNeedsPath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.FileServer.Metadata.Type = MetadataBadger

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for badger without a path")
	}

	cfg.FileServer.Metadata.Path = "/var/lib/aund/meta"
	if err := Validate(cfg); err != nil {
		t.Errorf("Expected badger with a path to pass, got: %v", err)
	}
}

func TestValidate_TypemapRules(t *testing.T) {
	tests := []struct {
		name string
		rule TypeRuleConfig
		ok   bool
	}{
		{"glob", TypeRuleConfig{Name: "*.txt", Type: 0xFFF}, true},
		{"perm", TypeRuleConfig{PermMask: 0o111, PermValue: 0o111, Type: 0xFEB}, true},
		{"empty", TypeRuleConfig{Type: 0xFFF}, false},
		{"bad glob", TypeRuleConfig{Name: "[", Type: 0xFFF}, false},
		{"value outside mask", TypeRuleConfig{PermMask: 0o100, PermValue: 0o111, Type: 0xFEB}, false},
		{"type too large", TypeRuleConfig{Name: "*", Type: 0x1000}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := GetDefaultConfig()
			cfg.FileServer.Typemap.Rules = []TypeRuleConfig{tt.rule}
			err := Validate(cfg)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestValidate_PrintServerNeedsSpoolDir(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.PrintServer.Enabled = true
	cfg.PrintServer.SpoolDir = ""

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for print server without a spool directory")
	}
}

func TestValidate_PrinterNameLength(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.PrintServer.Name = "PRINTER"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for a 7 character printer name")
	}
}

func TestValidate_MetricsAndAPIPortsDiffer(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 8080
	cfg.API.Enabled = true
	cfg.API.Port = 8080

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for clashing ports")
	}
}

func TestValidate_TelemetryEnabledWithoutEndpoint(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.Endpoint = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for telemetry enabled without endpoint")
	}
	if !strings.Contains(err.Error(), "telemetry") {
		t.Errorf("Expected error about telemetry endpoint, got: %v", err)
	}
}

func TestValidate_TelemetrySampleRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.SampleRate = 1.5 // Out of range (should be 0.0-1.0)

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for sample rate out of range")
	}
}

func TestValidate_LogLevelNormalization(t *testing.T) {
	// Validation accepts both uppercase and lowercase log levels
	testCases := []string{"info", "INFO", "debug", "DEBUG", "warn", "WARN", "error", "ERROR"}

	for _, level := range testCases {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level

		if err := Validate(cfg); err != nil {
			t.Errorf("Validation failed for level %q: %v", level, err)
		}

		// Validation should NOT normalize - level should remain as-is
		if cfg.Logging.Level != level {
			t.Errorf("Expected level to remain %q after validation, got %q", level, cfg.Logging.Level)
		}
	}
}
