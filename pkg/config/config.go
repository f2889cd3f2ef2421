package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/marmos91/aund/internal/bytesize"
	"github.com/marmos91/aund/pkg/controlplane/api"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the aund configuration.
//
// It covers the network transport, the file server and print server
// engines, and the ambient services around them (logging, tracing,
// metrics and the admin API).
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (AUND_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0" yaml:"shutdown_timeout"`

	// Transport selects how Econet packets reach the server
	Transport TransportConfig `mapstructure:"transport" yaml:"transport"`

	// FileServer configures the Econet file server
	FileServer FileServerConfig `mapstructure:"fileserver" yaml:"fileserver"`

	// PrintServer configures the Econet print server
	PrintServer PrintServerConfig `mapstructure:"printserver" yaml:"printserver"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// API contains admin API server configuration
	API api.APIConfig `mapstructure:"api" yaml:"api"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, one span is exported per file server request to an
// OTLP-compatible collector.
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0 (sample all)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// Profiling contains Pyroscope continuous profiling configuration
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	// Enabled controls whether continuous profiling is enabled
	// Default: false (opt-in for profiling)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server endpoint (URL)
	// Default: "http://localhost:4040" (standard Pyroscope port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes specifies which profile types to collect
	// Valid values: cpu, alloc_objects, alloc_space, inuse_objects, inuse_space,
	//               goroutines, mutex_count, mutex_duration, block_count, block_duration
	ProfileTypes []string `mapstructure:"profile_types" yaml:"profile_types"`
}

// Transport types.
const (
	TransportAUN    = "aun"
	TransportBeebEm = "beebem"
)

// TransportConfig selects and tunes the Econet transport.
type TransportConfig struct {
	// Type is the encapsulation: "aun" (Acorn Universal Networking over
	// UDP) or "beebem" (the BeebEm emulator's Econet over UDP)
	// Default: aun
	Type string `mapstructure:"type" validate:"required,oneof=aun beebem" yaml:"type"`

	// Listen is the UDP address the AUN transport binds
	// Default: ":32768"
	Listen string `mapstructure:"listen" yaml:"listen"`

	// BeebEmConfig is the BeebEm station table (econet.cfg). Required
	// for the beebem transport.
	BeebEmConfig string `mapstructure:"beebem_config" yaml:"beebem_config,omitempty"`

	// Network and Station are this server's own Econet address on the
	// BeebEm transport
	// Default: 0.254
	Network uint8 `mapstructure:"network" yaml:"network"`
	Station uint8 `mapstructure:"station" yaml:"station"`

	// RetryInterval is the retransmission period of reliable unicasts
	// Default: 100ms
	RetryInterval time.Duration `mapstructure:"retry_interval" validate:"gte=0" yaml:"retry_interval"`

	// MaxRetries bounds retransmissions of one packet. 0 retries forever.
	// Default: 50
	MaxRetries int `mapstructure:"max_retries" validate:"gte=0" yaml:"max_retries"`
}

// FileServerConfig configures the Econet file server.
type FileServerConfig struct {
	// Root is the host directory served as "$" (required)
	Root string `mapstructure:"root" validate:"required" yaml:"root"`

	// URD is the user root directory, relative to Root, for every user
	// when no password file is configured
	URD string `mapstructure:"urd" yaml:"urd"`

	// Lib is the library directory, relative to Root
	// Default: "Library"
	Lib string `mapstructure:"lib" yaml:"lib"`

	// PasswordFile enables logins against a user:hash:urd:opt4 file.
	// Without it any user name is accepted.
	PasswordFile string `mapstructure:"password_file" yaml:"password_file,omitempty"`

	// DefaultOpt4 is the boot option of new accounts and of users when no
	// password file is configured
	DefaultOpt4 uint8 `mapstructure:"default_opt4" validate:"lte=15" yaml:"default_opt4"`

	// DiscName is the disc name reported to clients (max 16 characters)
	// Default: the host name
	DiscName string `mapstructure:"disc_name" validate:"omitempty,max=16" yaml:"disc_name,omitempty"`

	// UserGroup makes group permissions follow owner permissions when
	// clients set access bits
	UserGroup bool `mapstructure:"usergroup" yaml:"usergroup"`

	// TransferTimeout bounds the wait for each chunk of a bulk receive
	// Default: 30s
	TransferTimeout time.Duration `mapstructure:"transfer_timeout" validate:"gte=0" yaml:"transfer_timeout"`

	// PadShortReads restores the legacy zero padding of reads that hit
	// end of file
	PadShortReads bool `mapstructure:"pad_short_reads" yaml:"pad_short_reads"`

	// MaxSaveSize rejects larger SAVE requests. 0 disables the limit.
	// Supports human-readable formats: "16MB", "1Mi"
	MaxSaveSize bytesize.ByteSize `mapstructure:"max_save_size" yaml:"max_save_size,omitempty"`

	// Typemap guesses RISC OS file types for files without metadata
	Typemap TypemapConfig `mapstructure:"typemap" yaml:"typemap"`

	// Metadata selects where load and exec addresses are kept
	Metadata MetadataConfig `mapstructure:"metadata" yaml:"metadata"`
}

// TypemapConfig maps host files to RISC OS file types.
type TypemapConfig struct {
	// Default is the type of files no rule matches
	// Default: 0xFFD (Data)
	Default int `mapstructure:"default" validate:"gte=0,lte=4095" yaml:"default"`

	// Rules are tried in order; the first match wins
	Rules []TypeRuleConfig `mapstructure:"rules" validate:"dive" yaml:"rules,omitempty"`
}

// TypeRuleConfig is one typemap rule. A rule with both conditions set
// needs both to hold.
type TypeRuleConfig struct {
	// Name is a shell glob matched case-insensitively against the host leaf name
	Name string `mapstructure:"name" yaml:"name,omitempty"`

	// PermMask and PermValue test permission bits: mode&mask == value
	PermMask  uint32 `mapstructure:"perm_mask" yaml:"perm_mask,omitempty"`
	PermValue uint32 `mapstructure:"perm_value" yaml:"perm_value,omitempty"`

	// Type is the RISC OS file type (0 to 0xFFF)
	Type int `mapstructure:"type" validate:"gte=0,lte=4095" yaml:"type"`
}

// Metadata store types.
const (
	MetadataSymlink = "symlink"
	MetadataBadger  = "badger"
)

// MetadataConfig selects the load/exec metadata store.
type MetadataConfig struct {
	// Type is "symlink" (a .Acorn directory of symlinks next to each file)
	// or "badger" (an embedded key-value database)
	// Default: symlink
	Type string `mapstructure:"type" validate:"required,oneof=symlink badger" yaml:"type"`

	// Path is the badger database directory. Required for badger.
	Path string `mapstructure:"path" yaml:"path,omitempty"`
}

// PrintServerConfig configures the Econet print server.
type PrintServerConfig struct {
	// Enabled starts the print server alongside the file server
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Name is the printer name (max 6 characters). PRINT and SPOOL are
	// always answered too.
	// Default: "PRINT"
	Name string `mapstructure:"name" validate:"omitempty,max=6" yaml:"name"`

	// SpoolDir receives one file per print job. Required when enabled.
	SpoolDir string `mapstructure:"spool_dir" yaml:"spool_dir,omitempty"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (AUND_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	// Without a file the defaults still need a root from the environment
	// before they validate.
	if !configFileFound {
		cfg := GetDefaultConfig()
		if root := v.GetString("fileserver.root"); root != "" {
			cfg.FileServer.Root = root
		}
		return cfg, nil
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  aund init\n\n"+
				"Or specify a custom config file:\n"+
				"  aund <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  aund init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path in YAML.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Example: AUND_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("AUND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/aund/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
		fileTypeDecodeHook(),
	)
}

// byteSizeDecodeHook converts strings and integers to bytesize.ByteSize,
// so config files can use sizes like "16MB" or "1Mi".
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.ParseByteSize(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook converts strings like "30s" to time.Duration.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// fileTypeDecodeHook lets file types and permission masks be written the
// way RISC OS users write them: "&FFF", "0xFFF" or "0755".
func fileTypeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		s, ok := data.(string)
		if !ok {
			return data, nil
		}
		if to.Kind() != reflect.Int && to.Kind() != reflect.Uint32 {
			return data, nil
		}
		n, err := ParseNumber(s)
		if err != nil {
			return nil, err
		}
		if to.Kind() == reflect.Uint32 {
			return uint32(n), nil
		}
		return int(n), nil
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "aund")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "aund")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
