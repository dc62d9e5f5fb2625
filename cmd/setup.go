package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/config"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
)

// Prompter interface for interactive prompts (allows mocking in tests)
type Prompter interface {
	Input(message string, defaultValue string) (string, error)
	Confirm(message string, defaultValue bool) (bool, error)
	Select(message string, options []string, defaultValue string) (string, error)
}

// SurveyPrompter implements Prompter using the survey library
type SurveyPrompter struct{}

func (p *SurveyPrompter) Input(message string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Input{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

func (p *SurveyPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	prompt := &survey.Confirm{
		Message: message,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return false, err
	}
	return result, nil
}

func (p *SurveyPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	result := ""
	prompt := &survey.Select{
		Message: message,
		Options: options,
		Default: defaultValue,
	}
	if err := survey.AskOne(prompt, &result); err != nil {
		return "", err
	}
	return result, nil
}

// DefaultPrompter is the prompter used in production
var DefaultPrompter Prompter = &SurveyPrompter{}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create configuration file interactively",
	Long: `Prompts for configuration values and creates config.yaml.

This command guides you through the listener port, speech synthesis,
video storage and completion notifications. Anything left out can still be
set later through environment variables.`,
	RunE: runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = config.DefaultPath
	}
	return RunSetupWithPrompter(DefaultPrompter, path, DefaultOutput)
}

// RunSetupWithPrompter runs the setup with a given prompter (for testing)
func RunSetupWithPrompter(prompter Prompter, configPath string, out OutputWriter) error {
	// Check if config already exists
	if _, err := os.Stat(configPath); err == nil {
		overwrite, err := prompter.Confirm("config.yaml already exists. Overwrite?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !overwrite {
			fmt.Fprintln(out, "Setup cancelled.")
			return nil
		}
	}

	fmt.Fprintln(out, "Welcome to n8n-video-renderer setup!")
	fmt.Fprintln(out)

	cfg := config.Default()

	steps := []func(Prompter, *config.Config) error{
		promptServer,
		promptSpeech,
		promptStorage,
		promptNotify,
	}
	for _, step := range steps {
		if err := step(prompter, cfg); err != nil {
			return err
		}
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration is not valid:\n%w", err)
	}

	if err := config.Save(cfg, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Configuration saved to %s\n", configPath)
	return nil
}

func promptServer(prompter Prompter, cfg *config.Config) error {
	port, err := prompter.Input("HTTP port?", strconv.Itoa(cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("port must be a number, got %q", port)
		}
		cfg.Server.Port = n
	}

	proxies, err := prompter.Input("Trusted proxy addresses (comma separated, * for any)?", strings.Join(cfg.Server.TrustedProxies, ","))
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if proxies != "" {
		cfg.Server.TrustedProxies = splitComma(proxies)
	}
	return nil
}

func promptSpeech(prompter Prompter, cfg *config.Config) error {
	provider, err := prompter.Select("Speech synthesizer?", []string{config.SpeechEdge, config.SpeechGoogle}, cfg.Speech.Provider)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Speech.Provider = provider

	defaultVoice := cfg.Speech.Voice
	if provider == config.SpeechGoogle {
		defaultVoice = "th-TH-Standard-A"
	}
	voice, err := prompter.Input("Voice?", defaultVoice)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if voice != "" {
		cfg.Speech.Voice = voice
	}
	return nil
}

func promptStorage(prompter Prompter, cfg *config.Config) error {
	backend, err := prompter.Select("Where should rendered videos go?",
		[]string{config.StorageGCS, config.StorageDrive, config.StorageLocal, config.StorageNone}, config.StorageGCS)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Storage.Backend = backend

	switch backend {
	case config.StorageGCS:
		bucket, err := prompter.Input("GCS bucket name?", "")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if bucket == "" {
			return fmt.Errorf("bucket is required")
		}
		cfg.Storage.GCS.Bucket = bucket

		prefix, err := prompter.Input("Object prefix?", cfg.Storage.GCS.Prefix)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		cfg.Storage.GCS.Prefix = prefix

		public, err := prompter.Confirm("Make uploaded videos public?", false)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		cfg.Storage.GCS.Public = public

	case config.StorageDrive:
		folder, err := prompter.Input("Google Drive folder ID?", "")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if folder == "" {
			return fmt.Errorf("folder ID is required")
		}
		cfg.Storage.Drive.FolderID = folder

	case config.StorageLocal:
		dir, err := prompter.Input("Output directory?", "")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if dir == "" {
			return fmt.Errorf("output directory is required")
		}
		cfg.Storage.Local.Dir = dir
	}

	if backend == config.StorageGCS || backend == config.StorageDrive || cfg.Speech.Provider == config.SpeechGoogle {
		credentials, err := prompter.Input("Path to Google credentials file (empty for application default)?", "")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		cfg.Google.CredentialsFile = credentials
	}
	return nil
}

func promptNotify(prompter Prompter, cfg *config.Config) error {
	webhook, err := prompter.Input("Webhook URL for completion events (optional)?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Notify.WebhookURL = webhook

	useTelegram, err := prompter.Confirm("Send Telegram notifications?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if useTelegram {
		token, err := prompter.Input("  Bot token:", "")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		chat, err := prompter.Input("  Chat ID:", "")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		chatID, err := strconv.ParseInt(chat, 10, 64)
		if err != nil {
			return fmt.Errorf("chat ID must be a number, got %q", chat)
		}
		cfg.Notify.Telegram = config.TelegramConfig{BotToken: token, ChatID: chatID}
	}

	useEmail, err := prompter.Confirm("Send email notifications through Gmail?", false)
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if !useEmail {
		return nil
	}

	cfg.Notify.Email.Enabled = true
	fromName, err := prompter.Input("Display name for outgoing emails?", "Video Renderer")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	cfg.Notify.Email.FromName = fromName

	fromAddress, err := prompter.Input("Gmail address to send from?", "")
	if err != nil {
		return fmt.Errorf("prompt cancelled")
	}
	if fromAddress == "" {
		return fmt.Errorf("from address is required")
	}
	cfg.Notify.Email.FromAddress = fromAddress

	if cfg.Google.CredentialsFile == "" {
		credentials, err := prompter.Input("Path to Google OAuth client file?", "credentials.json")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		cfg.Google.CredentialsFile = credentials
	}
	cfg.Google.TokenFile = "token.json"

	cfg.Notify.Email.Recipients = make(map[string]config.RecipientConfig)
	for {
		add, err := prompter.Confirm("Add an email recipient?", len(cfg.Notify.Email.Recipients) == 0)
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if !add {
			break
		}

		nickname, err := prompter.Input("  Nickname:", "")
		if err != nil {
			return fmt.Errorf("prompt cancelled")
		}
		if nickname == "" {
			return fmt.Errorf("nickname is required")
		}

		recipient, err := promptRecipientWithPrompter(prompter)
		if err != nil {
			return err
		}
		cfg.Notify.Email.Recipients[strings.ToLower(nickname)] = recipient
	}

	return nil
}

func promptRecipientWithPrompter(prompter Prompter) (config.RecipientConfig, error) {
	name, err := prompter.Input("  Full name:", "")
	if err != nil {
		return config.RecipientConfig{}, fmt.Errorf("prompt cancelled")
	}

	address, err := prompter.Input("  Email:", "")
	if err != nil {
		return config.RecipientConfig{}, fmt.Errorf("prompt cancelled")
	}
	if address == "" {
		return config.RecipientConfig{}, fmt.Errorf("email is required")
	}

	return config.RecipientConfig{
		Name:    name,
		Address: address,
	}, nil
}

func splitComma(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
