package commands

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/marmos91/aund/internal/logger"
	"github.com/marmos91/aund/pkg/apiclient"
	"github.com/marmos91/aund/pkg/config"
)

// InitLogger initializes the structured logger from configuration.
func InitLogger(cfg *config.Config) error {
	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// loadConfig loads the configuration for commands that work without a
// running server. Unlike start, a missing default file is not an error.
func loadConfig() (*config.Config, error) {
	if GetConfigFile() != "" {
		return config.MustLoad(GetConfigFile())
	}
	return config.Load("")
}

var apiURL string

// newAPIClient connects to the admin API named by --api, or by the
// configuration when the flag is empty.
func newAPIClient() (*apiclient.Client, error) {
	if apiURL != "" {
		return apiclient.New(apiURL), nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.API.Enabled {
		return nil, errors.New("the admin API is disabled in the configuration (set api.enabled or pass --api)")
	}
	addr := net.JoinHostPort(cfg.API.Address, strconv.Itoa(cfg.API.Port))
	return apiclient.New("http://" + addr), nil
}

// ensureFile creates an empty file with mode perm if path does not exist.
func ensureFile(path string, perm os.FileMode) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if errors.Is(err, os.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, f.Close()
}
