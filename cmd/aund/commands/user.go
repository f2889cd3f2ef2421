package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/marmos91/aund/internal/cli/output"
	"github.com/marmos91/aund/internal/cli/prompt"
	"github.com/marmos91/aund/pkg/passwd"
	"github.com/spf13/cobra"
)

var (
	userFile     string
	userOutput   string
	userURD      string
	userOpt4     int
	userPassword string
	userNoPass   bool
	userForce    bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage file server accounts",
	Long: `Manage the accounts in the password file.

The password file is taken from fileserver.password_file in the
configuration, or from --file. A running server picks up changes without
a restart.

Examples:
  aund user add ALICE --urd alice
  aund user passwd ALICE
  aund user opt4 ALICE 2
  aund user list -o json
  aund user remove ALICE`,
}

var userAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd <name>",
	Short: "Set an account's password",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserPasswd,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts",
	Args:  cobra.NoArgs,
	RunE:  runUserList,
}

var userRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserRemove,
}

var userOpt4Cmd = &cobra.Command{
	Use:   "opt4 <name> <0-3>",
	Short: "Set an account's boot option",
	Args:  cobra.ExactArgs(2),
	RunE:  runUserOpt4,
}

func init() {
	userCmd.PersistentFlags().StringVar(&userFile, "file", "", "Password file (default: fileserver.password_file)")

	userAddCmd.Flags().StringVar(&userURD, "urd", "", "User root directory, relative to the server root (default: prompt)")
	userAddCmd.Flags().IntVar(&userOpt4, "opt4", -1, "Boot option 0-3 (default: fileserver.default_opt4)")
	userAddCmd.Flags().StringVar(&userPassword, "password", "", "Password (default: prompt)")
	userAddCmd.Flags().BoolVar(&userNoPass, "no-password", false, "Create the account without a password")

	userPasswdCmd.Flags().StringVar(&userPassword, "password", "", "New password (default: prompt)")
	userPasswdCmd.Flags().BoolVar(&userNoPass, "no-password", false, "Clear the password")

	userListCmd.Flags().StringVarP(&userOutput, "output", "o", "table", "Output format (table|json|yaml)")

	userRemoveCmd.Flags().BoolVarP(&userForce, "force", "f", false, "Do not ask for confirmation")

	userCmd.AddCommand(userAddCmd, userPasswdCmd, userListCmd, userRemoveCmd, userOpt4Cmd)
}

// openPasswordFile opens the password file, creating an empty one first
// when create is set.
func openPasswordFile(create bool) (*passwd.File, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	path := userFile
	if path == "" {
		path = cfg.FileServer.PasswordFile
	}
	if path == "" {
		return nil, errors.New("no password file: set fileserver.password_file or pass --file")
	}

	if create {
		created, err := ensureFile(path, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to create password file: %w", err)
		}
		if created {
			fmt.Fprintf(os.Stderr, "Created password file %s\n", path)
		}
	}

	return passwd.Open(path, cfg.FileServer.DefaultOpt4)
}

// readPassword takes the password from --password or --no-password, or
// prompts for one.
func readPassword() (string, error) {
	if userNoPass {
		return "", nil
	}
	if userPassword != "" {
		return userPassword, prompt.ValidatePassword(userPassword)
	}
	return prompt.NewPassword()
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	name := args[0]
	if err := prompt.ValidateUserName(name); err != nil {
		return err
	}

	pw, err := openPasswordFile(true)
	if err != nil {
		return err
	}
	if _, err := pw.Lookup(name); err == nil {
		return fmt.Errorf("user %s already exists", name)
	}

	urd := userURD
	if !cmd.Flags().Changed("urd") {
		if urd, err = prompt.URD("User root directory", ""); err != nil {
			return err
		}
	} else if err := prompt.ValidateURD(urd); err != nil {
		return err
	}

	opt4, err := resolveOpt4(cmd)
	if err != nil {
		return err
	}

	password, err := readPassword()
	if err != nil {
		return err
	}

	if err := pw.Add(name, password, urd, opt4); err != nil {
		return fmt.Errorf("failed to add user: %w", err)
	}

	output.StdoutPrinter(output.FormatTable).Success(fmt.Sprintf("User %s added", name))
	return nil
}

// resolveOpt4 returns --opt4, or the configured default when the flag
// was not given.
func resolveOpt4(cmd *cobra.Command) (uint8, error) {
	if !cmd.Flags().Changed("opt4") {
		cfg, err := loadConfig()
		if err != nil {
			return 0, err
		}
		return cfg.FileServer.DefaultOpt4 & 3, nil
	}
	return prompt.ParseOpt4(fmt.Sprint(userOpt4))
}

func runUserPasswd(cmd *cobra.Command, args []string) error {
	pw, err := openPasswordFile(false)
	if err != nil {
		return err
	}

	password, err := readPassword()
	if err != nil {
		return err
	}

	if err := pw.SetPassword(args[0], password); err != nil {
		return fmt.Errorf("failed to set password: %w", err)
	}

	output.StdoutPrinter(output.FormatTable).Success(fmt.Sprintf("Password for %s updated", args[0]))
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(userOutput)
	if err != nil {
		return err
	}

	pw, err := openPasswordFile(false)
	if err != nil {
		return err
	}

	return output.StdoutPrinter(format).Print(output.AccountList(pw.Accounts()))
}

func runUserRemove(cmd *cobra.Command, args []string) error {
	pw, err := openPasswordFile(false)
	if err != nil {
		return err
	}
	if _, err := pw.Lookup(args[0]); err != nil {
		return fmt.Errorf("user %s: %w", args[0], err)
	}

	ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Remove user %s", args[0]), userForce)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println("Aborted")
		return nil
	}

	if err := pw.Remove(args[0]); err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}

	output.StdoutPrinter(output.FormatTable).Success(fmt.Sprintf("User %s removed", args[0]))
	return nil
}

func runUserOpt4(cmd *cobra.Command, args []string) error {
	opt4, err := prompt.ParseOpt4(args[1])
	if err != nil {
		return err
	}

	pw, err := openPasswordFile(false)
	if err != nil {
		return err
	}

	if err := pw.SetOpt4(args[0], opt4); err != nil {
		return fmt.Errorf("failed to set boot option: %w", err)
	}

	output.StdoutPrinter(output.FormatTable).Success(
		fmt.Sprintf("Boot option for %s set to %d (%s)", args[0], opt4, output.Opt4Name(opt4)))
	return nil
}
