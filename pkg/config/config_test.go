package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/aund/internal/bytesize"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences (e.g. \U -> Unicode escape), causing parse errors.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func TestLoad_DefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

fileserver:
  root: "` + yamlSafePath(tmpDir) + `/econet"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify defaults were applied
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.Transport.Type != TransportAUN {
		t.Errorf("Expected default transport 'aun', got %q", cfg.Transport.Type)
	}
	if cfg.Transport.Listen != ":32768" {
		t.Errorf("Expected default listen ':32768', got %q", cfg.Transport.Listen)
	}
	if cfg.FileServer.Lib != "Library" {
		t.Errorf("Expected default lib 'Library', got %q", cfg.FileServer.Lib)
	}
	if cfg.FileServer.Metadata.Type != MetadataSymlink {
		t.Errorf("Expected default metadata store 'symlink', got %q", cfg.FileServer.Metadata.Type)
	}
	if cfg.FileServer.Typemap.Default != 0xFFD {
		t.Errorf("Expected default file type 0xFFD, got %#x", cfg.FileServer.Typemap.Default)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Loading with no config file returns a valid default config.
	tmpDir := t.TempDir()
	nonExistentPath := filepath.Join(tmpDir, "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}

	if cfg == nil {
		t.Fatal("Expected default config to be returned")
	}

	if cfg.API.Port != 8080 {
		t.Errorf("Expected default API port 8080, got %d", cfg.API.Port)
	}
	if cfg.FileServer.Root != DefaultRoot {
		t.Errorf("Expected default root %q, got %q", DefaultRoot, cfg.FileServer.Root)
	}
}

func TestLoad_NoConfigFileRootFromEnv(t *testing.T) {
	t.Setenv("AUND_FILESERVER_ROOT", "/tmp/econet")

	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if cfg.FileServer.Root != "/tmp/econet" {
		t.Errorf("Expected root from env var, got %q", cfg.FileServer.Root)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	configContent := `
logging:
  level: INFO
  invalid yaml here [[[
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_MissingRoot(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("logging:\n  level: INFO\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Expected validation error for missing fileserver root")
	}
}

func TestLoad_TOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	configContent := `
[logging]
level = "WARN"
format = "json"

[fileserver]
root = "` + yamlSafePath(tmpDir) + `"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load TOML config: %v", err)
	}

	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level 'WARN', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format 'json', got %q", cfg.Logging.Format)
	}
}

func TestLoad_AcornNotation(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
fileserver:
  root: "` + yamlSafePath(tmpDir) + `"
  max_save_size: 16MB
  transfer_timeout: 5s
  typemap:
    default: "&FFD"
    rules:
      - name: "*.txt"
        type: "&FFF"
      - perm_mask: "0111"
        perm_value: "0111"
        type: 0xFEB
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.FileServer.MaxSaveSize != 16*bytesize.MB {
		t.Errorf("Expected max_save_size 16MB, got %d", cfg.FileServer.MaxSaveSize)
	}
	if cfg.FileServer.TransferTimeout != 5*time.Second {
		t.Errorf("Expected transfer_timeout 5s, got %v", cfg.FileServer.TransferTimeout)
	}
	rules := cfg.FileServer.Typemap.Rules
	if len(rules) != 2 {
		t.Fatalf("Expected 2 typemap rules, got %d", len(rules))
	}
	if rules[0].Type != 0xFFF {
		t.Errorf("Expected &FFF to parse as 0xFFF, got %#x", rules[0].Type)
	}
	if rules[1].PermMask != 0o111 || rules[1].PermValue != 0o111 {
		t.Errorf("Expected octal perm mask 0111, got %o/%o", rules[1].PermMask, rules[1].PermValue)
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default log format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown timeout 30s, got %v", cfg.ShutdownTimeout)
	}
	if cfg.API.Port != 8080 {
		t.Errorf("Expected default API port 8080, got %d", cfg.API.Port)
	}
	if cfg.Transport.Station != 254 {
		t.Errorf("Expected default station 254, got %d", cfg.Transport.Station)
	}
	if cfg.PrintServer.Name != "PRINT" {
		t.Errorf("Expected default printer name 'PRINT', got %q", cfg.PrintServer.Name)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()

	if !filepath.IsAbs(path) {
		t.Errorf("Expected absolute path, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected filename 'config.yaml', got %q", filepath.Base(path))
	}
}

func TestGetConfigDir(t *testing.T) {
	dir := GetConfigDir()

	if filepath.Base(dir) != "aund" {
		t.Errorf("Expected directory name 'aund', got %q", filepath.Base(dir))
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("AUND_LOGGING_LEVEL", "ERROR")
	t.Setenv("AUND_API_PORT", "9091")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
logging:
  level: "INFO"

fileserver:
  root: "` + yamlSafePath(tmpDir) + `"

api:
  port: 8080
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	// Verify environment variables override config file
	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level 'ERROR' from env var, got %q", cfg.Logging.Level)
	}
	if cfg.API.Port != 9091 {
		t.Errorf("Expected port 9091 from env var, got %d", cfg.API.Port)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.FileServer.Root = tmpDir
	cfg.FileServer.DiscName = "Archive"
	if err := SaveConfig(cfg, configPath); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if loaded.FileServer.DiscName != "Archive" {
		t.Errorf("Expected disc name 'Archive', got %q", loaded.FileServer.DiscName)
	}
	if loaded.Transport.RetryInterval != 100*time.Millisecond {
		t.Errorf("Expected retry interval 100ms, got %v", loaded.Transport.RetryInterval)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want uint64
	}{
		{"4095", 4095},
		{"0xFFF", 0xFFF},
		{"&ffb", 0xFFB},
		{"0755", 0o755},
		{" &FFD ", 0xFFD},
	}
	for _, tt := range tests {
		got, err := ParseNumber(tt.in)
		if err != nil {
			t.Errorf("ParseNumber(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseNumber(%q) = %#x, want %#x", tt.in, got, tt.want)
		}
	}

	if _, err := ParseNumber("&XYZ"); err == nil {
		t.Error("Expected error for &XYZ")
	}
}
