package config

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/marmos91/aund/internal/fileserver"
	"github.com/marmos91/aund/internal/logger"
	"github.com/marmos91/aund/internal/printserver"
	"github.com/marmos91/aund/pkg/metadata"
	"github.com/marmos91/aund/pkg/metadata/store/badger"
	"github.com/marmos91/aund/pkg/metadata/store/symlink"
	"github.com/marmos91/aund/pkg/metrics"
	"github.com/marmos91/aund/pkg/passwd"
	"github.com/marmos91/aund/pkg/transport"
	"github.com/marmos91/aund/pkg/transport/aun"
	"github.com/marmos91/aund/pkg/transport/beebem"
)

// CreateTransport builds the configured Econet transport. The transport
// is not bound until its Setup method is called.
func CreateTransport(cfg *TransportConfig) (transport.Transport, error) {
	m := metrics.NewTransportMetrics()

	switch cfg.Type {
	case TransportAUN:
		return aun.New(aun.Config{
			ListenAddr:    cfg.Listen,
			RetryInterval: cfg.RetryInterval,
			MaxRetries:    cfg.MaxRetries,
			Metrics:       m,
		}), nil

	case TransportBeebEm:
		return beebem.New(beebem.Config{
			ConfigFile:   cfg.BeebEmConfig,
			Network:      cfg.Network,
			Station:      cfg.Station,
			PollInterval: cfg.RetryInterval,
			MaxRetries:   cfg.MaxRetries,
			Metrics:      m,
		}), nil

	default:
		return nil, fmt.Errorf("unknown transport type: %q", cfg.Type)
	}
}

// CreateMetadataStore opens the configured load/exec metadata store,
// instrumented when metrics are enabled.
func CreateMetadataStore(cfg *MetadataConfig) (metadata.Store, error) {
	var store metadata.Store

	switch cfg.Type {
	case MetadataSymlink:
		store = symlink.New()

	case MetadataBadger:
		if err := os.MkdirAll(cfg.Path, 0755); err != nil {
			return nil, fmt.Errorf("failed to create metadata directory: %w", err)
		}
		s, err := badger.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger metadata store: %w", err)
		}
		store = s

	default:
		return nil, fmt.Errorf("unknown metadata store type: %q", cfg.Type)
	}

	logger.Debug("Metadata store opened", "type", cfg.Type, "path", cfg.Path)
	return metadata.Instrument(store, cfg.Type, metrics.NewMetadataMetrics()), nil
}

// OpenPasswordFile loads the password file, or returns nil when none is
// configured.
func OpenPasswordFile(cfg *FileServerConfig) (*passwd.File, error) {
	if cfg.PasswordFile == "" {
		return nil, nil
	}
	pw, err := passwd.Open(cfg.PasswordFile, cfg.DefaultOpt4)
	if err != nil {
		return nil, fmt.Errorf("failed to open password file: %w", err)
	}
	return pw, nil
}

// BuildTypemap converts the typemap section to the file server's form.
func BuildTypemap(cfg *TypemapConfig) *fileserver.Typemap {
	tm := &fileserver.Typemap{Default: cfg.Default}
	for _, r := range cfg.Rules {
		tm.Rules = append(tm.Rules, fileserver.TypeRule{
			Name:      r.Name,
			PermMask:  fs.FileMode(r.PermMask),
			PermValue: fs.FileMode(r.PermValue),
			Type:      r.Type,
		})
	}
	return tm
}

// FileServer builds the file server configuration. The password file and
// metadata store are opened by the caller, which owns their lifetimes.
func (c *FileServerConfig) FileServer(pw *passwd.File, meta metadata.Store, version string) fileserver.Config {
	return fileserver.Config{
		Root:            c.Root,
		URD:             c.URD,
		Lib:             c.Lib,
		Passwords:       pw,
		DefaultOpt4:     c.DefaultOpt4,
		DiscName:        c.DiscName,
		UserGroup:       c.UserGroup,
		TransferTimeout: c.TransferTimeout,
		PadShortReads:   c.PadShortReads,
		MaxSaveSize:     c.MaxSaveSize.Int64(),
		Typemap:         BuildTypemap(&c.Typemap),
		Metadata:        meta,
		Version:         version,
	}
}

// PrintServer builds the print server configuration.
func (c *PrintServerConfig) PrintServer() printserver.Config {
	return printserver.Config{
		Name:     c.Name,
		SpoolDir: c.SpoolDir,
	}
}
