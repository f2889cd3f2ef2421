package config

import (
	"fmt"
	"os"

	"github.com/marmos91/aund/internal/cli/output"
	"github.com/marmos91/aund/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the aund configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  aund config validate

  # Validate specific config file
  aund config validate --config /etc/aund/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	fmt.Printf("Configuration file: %s\n", displayPath)
	fmt.Println("Validation: OK")

	if warnings := configWarnings(cfg); len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	fmt.Printf("\nConfiguration summary:\n")
	return output.KeyValues(os.Stdout, [][2]string{
		{"Transport", fmt.Sprintf("%s (%s)", cfg.Transport.Type, cfg.Transport.Listen)},
		{"Root", cfg.FileServer.Root},
		{"Disc name", cfg.FileServer.DiscName},
		{"Metadata", cfg.FileServer.Metadata.Type},
		{"Print server", enabled(cfg.PrintServer.Enabled)},
		{"Admin API", enabled(cfg.API.Enabled)},
		{"Log level", cfg.Logging.Level},
	})
}

// configWarnings reports settings that load but will not work as the
// operator probably expects.
func configWarnings(cfg *config.Config) []string {
	var warnings []string

	if info, err := os.Stat(cfg.FileServer.Root); err != nil {
		warnings = append(warnings, fmt.Sprintf("Root %s is not accessible: %v", cfg.FileServer.Root, err))
	} else if !info.IsDir() {
		warnings = append(warnings, fmt.Sprintf("Root %s is not a directory", cfg.FileServer.Root))
	}

	if cfg.FileServer.PasswordFile == "" {
		warnings = append(warnings, "No password file configured: only anonymous logins will work")
	} else if _, err := os.Stat(cfg.FileServer.PasswordFile); err != nil {
		warnings = append(warnings, fmt.Sprintf("Password file %s is not readable: %v", cfg.FileServer.PasswordFile, err))
	}

	if cfg.API.Enabled && cfg.API.Address != "127.0.0.1" && cfg.API.Address != "localhost" && cfg.API.Address != "::1" {
		warnings = append(warnings, "Admin API has no authentication and is not bound to loopback")
	}

	return warnings
}

func enabled(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}
