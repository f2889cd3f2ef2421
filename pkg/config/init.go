package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// configTemplate is the commented sample written by InitConfig. It must
// stay loadable: tests load it back and validate it.
const configTemplate = `# aund Configuration File
#
# aund serves a host directory to Acorn Econet clients over AUN (UDP).
# Every setting can be overridden with an AUND_ environment variable,
# e.g. AUND_LOGGING_LEVEL=DEBUG or AUND_FILESERVER_ROOT=/srv/econet.

logging:
  # DEBUG, INFO, WARN or ERROR
  level: INFO
  # text or json
  format: text
  # stdout, stderr or a file path
  output: stdout

telemetry:
  enabled: false
  endpoint: localhost:4317
  insecure: false
  sample_rate: 1.0
  profiling:
    enabled: false
    endpoint: http://localhost:4040

shutdown_timeout: 30s

transport:
  # aun (Acorn Universal Networking) or beebem (BeebEm emulator)
  type: aun
  listen: ":32768"
  # For beebem: the station table and this server's own address
  # beebem_config: /etc/aund/econet.cfg
  network: 0
  station: 254
  retry_interval: 100ms
  max_retries: 50

fileserver:
  # Host directory served as "$"
  root: %s
  # User root directory when no password file is configured
  urd: ""
  lib: Library
  # user:hash:urd:opt4 lines; manage with "aund user"
  # password_file: /etc/aund/passwd
  default_opt4: 0
  disc_name: %s
  # Group permissions follow owner permissions
  usergroup: false
  transfer_timeout: 30s
  pad_short_reads: false
  # Largest file a client may SAVE (0 = unlimited)
  max_save_size: 0
  typemap:
    default: 0xFFD
    rules:
      - name: "*.txt"
        type: 0xFFF
      - name: "*.bas"
        type: 0xFFB
      - perm_mask: 0o111
        perm_value: 0o111
        type: 0xFEB
  metadata:
    # symlink (.Acorn directories) or badger (embedded database)
    type: symlink
    # path: /var/lib/aund/meta

printserver:
  enabled: false
  name: PRINT
  spool_dir: /var/spool/aund

metrics:
  enabled: false
  port: 9090

api:
  enabled: false
  address: 127.0.0.1
  port: 8080
  read_timeout: 10s
  write_timeout: 10s
  idle_timeout: 60s
`

// InitConfig writes a sample configuration to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a sample configuration to path.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("configuration file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content := fmt.Sprintf(configTemplate, DefaultRoot, quoteYAML(defaultDiscName()))
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func quoteYAML(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
