package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the configuration for errors.
//
// Struct tags catch malformed fields; the checks after them cover rules
// that span several fields, such as the beebem transport needing its
// station table.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return formatValidationErrors(verrs)
		}
		return err
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.Endpoint == "" {
		return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
	}

	if cfg.Transport.Type == TransportBeebEm {
		if cfg.Transport.BeebEmConfig == "" {
			return fmt.Errorf("transport.beebem_config is required for the beebem transport")
		}
		if cfg.Transport.Station == 0 || cfg.Transport.Station == 255 {
			return fmt.Errorf("transport.station must be between 1 and 254, got %d", cfg.Transport.Station)
		}
	}

	if err := validateRelative("fileserver.urd", cfg.FileServer.URD); err != nil {
		return err
	}
	if err := validateRelative("fileserver.lib", cfg.FileServer.Lib); err != nil {
		return err
	}

	if cfg.FileServer.Metadata.Type == MetadataBadger && cfg.FileServer.Metadata.Path == "" {
		return fmt.Errorf("fileserver.metadata.path is required for the badger metadata store")
	}

	for i, rule := range cfg.FileServer.Typemap.Rules {
		if rule.Name == "" && rule.PermMask == 0 {
			return fmt.Errorf("fileserver.typemap.rules[%d]: a rule needs a name pattern or a perm_mask", i)
		}
		if rule.Name != "" {
			if _, err := filepath.Match(rule.Name, ""); err != nil {
				return fmt.Errorf("fileserver.typemap.rules[%d]: bad pattern %q: %w", i, rule.Name, err)
			}
		}
		if rule.PermValue&^rule.PermMask != 0 {
			return fmt.Errorf("fileserver.typemap.rules[%d]: perm_value has bits outside perm_mask", i)
		}
	}

	if cfg.PrintServer.Enabled && cfg.PrintServer.SpoolDir == "" {
		return fmt.Errorf("printserver.spool_dir is required when the print server is enabled")
	}

	if cfg.Metrics.Enabled && cfg.API.Enabled && cfg.Metrics.Port == cfg.API.Port {
		return fmt.Errorf("metrics.port and api.port must differ (both %d)", cfg.API.Port)
	}

	return nil
}

// validateRelative rejects paths that would leave the served root.
func validateRelative(field, p string) error {
	if p == "" {
		return nil
	}
	if filepath.IsAbs(p) {
		return fmt.Errorf("%s must be relative to fileserver.root, got %q", field, p)
	}
	clean := filepath.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s escapes fileserver.root: %q", field, p)
	}
	return nil
}

// formatValidationErrors turns validator errors into one message naming
// every failing field and the tag it failed.
func formatValidationErrors(verrs validator.ValidationErrors) error {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("%s: failed '%s' validation", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			msg += fmt.Sprintf(" (%s)", fe.Param())
		}
		msgs = append(msgs, msg)
	}
	return errors.New(strings.Join(msgs, "; "))
}

// ParseNumber parses an integer written in decimal, with a 0x prefix, or
// with the Acorn & prefix for hexadecimal. A leading 0 means octal, as
// permission masks are usually written.
func ParseNumber(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "&") {
		return strconv.ParseUint(s[1:], 16, 32)
	}
	return strconv.ParseUint(s, 0, 32)
}
