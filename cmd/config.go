package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/config"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// DefaultOutput is the default output writer for config commands
var DefaultOutput OutputWriter = os.Stdout

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration and manage email recipients",
	Long: `Show the effective configuration and manage notification email recipients
in the configuration file.

Examples:
  n8n-video-renderer config show
  n8n-video-renderer config validate
  n8n-video-renderer config add recipient --key jane --name "Jane Doe" --email jane@example.com
  n8n-video-renderer config list recipients
  n8n-video-renderer config remove recipient jane`,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configAddCmd)
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configRemoveCmd)
	configCmd.AddCommand(configUpdateCmd)
}

// --- SHOW command ---

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with secrets masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		return RunConfigShowWithDependencies(cfg, DefaultOutput)
	},
}

// RunConfigShowWithDependencies prints cfg as YAML after masking secrets
func RunConfigShowWithDependencies(cfg *config.Config, out OutputWriter) error {
	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	_, err = out.Write(data)
	return err
}

// --- VALIDATE command ---

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration without starting the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration:\n%w", err)
		}
		fmt.Fprintln(DefaultOutput, "Configuration is valid.")
		return nil
	},
}

// loadConfigFile reads the file without environment overrides, so commands
// that save do not persist values that came from the environment
func loadConfigFile() (*config.Config, error) {
	if cfgFile == "" {
		cfgFile = config.DefaultPath
	}
	return config.LoadFile(cfgFile)
}

// --- ADD command ---

var (
	addKey   string
	addName  string
	addEmail string
)

var configAddCmd = &cobra.Command{
	Use:   "add recipient",
	Short: "Add a notification email recipient",
	Long: `Add a recipient for completion emails.

Example:
  n8n-video-renderer config add recipient --key jane --name "Jane Doe" --email "jane@example.com"`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigAdd,
}

func init() {
	configAddCmd.Flags().StringVar(&addKey, "key", "", "Unique key for the entry (required)")
	configAddCmd.Flags().StringVar(&addName, "name", "", "Display name")
	configAddCmd.Flags().StringVar(&addEmail, "email", "", "Email address (required)")
	configAddCmd.MarkFlagRequired("key")
	configAddCmd.MarkFlagRequired("email")
}

func runConfigAdd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFile()
	if err != nil {
		return err
	}
	return RunConfigAddWithDependencies(cfg, cfgFile, args[0], addKey, addName, addEmail, DefaultOutput)
}

// RunConfigAddWithDependencies runs the add command with injected dependencies
func RunConfigAddWithDependencies(cfg *config.Config, configPath, entityType, key, name, email string, out OutputWriter) error {
	if entityType != "recipient" {
		return fmt.Errorf("unknown entity type %q. Use recipient", entityType)
	}

	mgr := config.NewConfigManager(cfg, configPath)
	if err := mgr.AddRecipient(key, name, email); err != nil {
		return err
	}
	fmt.Fprintf(out, "Added recipient %q: %s <%s>\n", key, name, email)
	return nil
}

// --- LIST command ---

var configListCmd = &cobra.Command{
	Use:   "list recipients",
	Short: "List notification email recipients",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigList,
}

func runConfigList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFile()
	if err != nil {
		return err
	}
	return RunConfigListWithDependencies(cfg, cfgFile, args[0], DefaultOutput)
}

// RunConfigListWithDependencies runs the list command with injected dependencies
func RunConfigListWithDependencies(cfg *config.Config, configPath, entityType string, out OutputWriter) error {
	if entityType != "recipients" {
		return fmt.Errorf("unknown entity type %q. Use recipients", entityType)
	}

	recipients := config.NewConfigManager(cfg, configPath).ListRecipients()
	if len(recipients) == 0 {
		fmt.Fprintln(out, "No recipients configured.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KEY\tNAME\tEMAIL")
	for _, r := range recipients {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Key, r.Name, r.Address)
	}
	return w.Flush()
}

// --- REMOVE command ---

var configRemoveCmd = &cobra.Command{
	Use:   "remove recipient <key>",
	Short: "Remove a notification email recipient",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigRemove,
}

func runConfigRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFile()
	if err != nil {
		return err
	}
	return RunConfigRemoveWithDependencies(cfg, cfgFile, args[0], args[1], DefaultOutput)
}

// RunConfigRemoveWithDependencies runs the remove command with injected dependencies
func RunConfigRemoveWithDependencies(cfg *config.Config, configPath, entityType, key string, out OutputWriter) error {
	if entityType != "recipient" {
		return fmt.Errorf("unknown entity type %q. Use recipient", entityType)
	}

	if err := config.NewConfigManager(cfg, configPath).RemoveRecipient(key); err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed recipient %q\n", key)
	return nil
}

// --- UPDATE command ---

var (
	updateName  string
	updateEmail string
)

var configUpdateCmd = &cobra.Command{
	Use:   "update recipient <key>",
	Short: "Update a notification email recipient",
	Long: `Update the name and/or email of an existing recipient.

Example:
  n8n-video-renderer config update recipient jane --email "jane.new@example.com"`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigUpdate,
}

func init() {
	configUpdateCmd.Flags().StringVar(&updateName, "name", "", "New display name")
	configUpdateCmd.Flags().StringVar(&updateEmail, "email", "", "New email address")
}

func runConfigUpdate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfigFile()
	if err != nil {
		return err
	}
	if updateName == "" && updateEmail == "" {
		return fmt.Errorf("at least one of --name or --email is required")
	}
	return RunConfigUpdateWithDependencies(cfg, cfgFile, args[0], args[1], updateName, updateEmail, DefaultOutput)
}

// RunConfigUpdateWithDependencies runs the update command with injected dependencies
func RunConfigUpdateWithDependencies(cfg *config.Config, configPath, entityType, key, name, email string, out OutputWriter) error {
	if entityType != "recipient" {
		return fmt.Errorf("unknown entity type %q. Use recipient", entityType)
	}

	if err := config.NewConfigManager(cfg, configPath).UpdateRecipient(key, name, email); err != nil {
		return err
	}
	fmt.Fprintf(out, "Updated recipient %q\n", key)
	return nil
}
