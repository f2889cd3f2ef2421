package commands

import (
	"fmt"

	"github.com/marmos91/aund/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample aund configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/aund/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  aund init

  # Initialize with custom path
  aund init --config /etc/aund/config.yaml

  # Force overwrite existing config
  aund init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile := GetConfigFile()

	var configPath string
	var err error

	if configFile != "" {
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(initForce)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set fileserver.root to the directory you want to serve")
	fmt.Println("  2. Create accounts with: aund user add <name>")
	fmt.Println("  3. Start the server with: aund start")
	fmt.Printf("  4. Or specify custom config: aund start --config %s\n", configPath)

	return nil
}
