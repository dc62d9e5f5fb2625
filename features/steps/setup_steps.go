//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ROJSUWAN/n8n-video-renderer/cmd"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/config"

	"github.com/cucumber/godog"
)

type setupContext struct {
	tempDir         string
	configPath      string
	originalContent string
	output          bytes.Buffer
	err             error
}

var SharedSetupContext = &setupContext{}

// MockPrompter implements cmd.Prompter for testing
type MockPrompter struct {
	inputResponses   []string
	confirmResponses []bool
	selectResponses  []string
	inputIndex       int
	confirmIndex     int
	selectIndex      int
}

func NewMockPrompter(inputs []string, confirms []bool, selects []string) *MockPrompter {
	return &MockPrompter{
		inputResponses:   inputs,
		confirmResponses: confirms,
		selectResponses:  selects,
	}
}

func (m *MockPrompter) Input(message string, defaultValue string) (string, error) {
	if m.inputIndex >= len(m.inputResponses) {
		if defaultValue != "" {
			return defaultValue, nil
		}
		return "", fmt.Errorf("no more input responses available for message: %s", message)
	}
	response := m.inputResponses[m.inputIndex]
	m.inputIndex++
	return response, nil
}

func (m *MockPrompter) Confirm(message string, defaultValue bool) (bool, error) {
	if m.confirmIndex >= len(m.confirmResponses) {
		return defaultValue, nil
	}
	response := m.confirmResponses[m.confirmIndex]
	m.confirmIndex++
	return response, nil
}

func (m *MockPrompter) Select(message string, options []string, defaultValue string) (string, error) {
	if m.selectIndex >= len(m.selectResponses) {
		return defaultValue, nil
	}
	response := m.selectResponses[m.selectIndex]
	m.selectIndex++
	for _, o := range options {
		if o == response {
			return response, nil
		}
	}
	return "", fmt.Errorf("%q is not an option for %s", response, message)
}

func InitializeSetupScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedSetupContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		// Create temp directory for each scenario
		tempDir, err := os.MkdirTemp("", "setup-test-*")
		if err != nil {
			return c, err
		}
		testCtx.tempDir = tempDir
		testCtx.configPath = filepath.Join(tempDir, "config", "config.yaml")
		testCtx.originalContent = ""
		testCtx.output.Reset()
		testCtx.err = nil
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		SharedSetupContext = &setupContext{}
		return c, nil
	})

	ctx.Step(`^no config file exists for setup$`, testCtx.noConfigFileExistsForSetup)
	ctx.Step(`^a config file already exists for setup$`, testCtx.aConfigFileAlreadyExistsForSetup)
	ctx.Step(`^I run the setup command with inputs:$`, testCtx.iRunTheSetupCommandWithInputs)
	ctx.Step(`^I attempt the setup command with inputs:$`, testCtx.iAttemptTheSetupCommandWithInputs)
	ctx.Step(`^I run the setup command with confirmation "([^"]*)"$`, testCtx.iRunTheSetupCommandWithConfirmation)
	ctx.Step(`^I run the setup command with confirmation "([^"]*)" and inputs:$`, testCtx.iRunTheSetupCommandWithConfirmationAndInputs)
	ctx.Step(`^the setup should fail with "([^"]*)"$`, testCtx.theSetupShouldFailWith)
	ctx.Step(`^a config file should exist$`, testCtx.aConfigFileShouldExist)
	ctx.Step(`^no config file should exist$`, testCtx.noConfigFileShouldExist)
	ctx.Step(`^the config should have port (\d+)$`, testCtx.theConfigShouldHavePort)
	ctx.Step(`^the config should have speech provider "([^"]*)" with voice "([^"]*)"$`, testCtx.theConfigShouldHaveSpeechProvider)
	ctx.Step(`^the config should have storage backend "([^"]*)"$`, testCtx.theConfigShouldHaveStorageBackend)
	ctx.Step(`^the config should have GCS bucket "([^"]*)"$`, testCtx.theConfigShouldHaveGCSBucket)
	ctx.Step(`^the config should have local output directory "([^"]*)"$`, testCtx.theConfigShouldHaveLocalOutputDirectory)
	ctx.Step(`^the config should have webhook "([^"]*)"$`, testCtx.theConfigShouldHaveWebhook)
	ctx.Step(`^the config should have telegram chat (-?\d+)$`, testCtx.theConfigShouldHaveTelegramChat)
	ctx.Step(`^the config should have email recipient "([^"]*)"$`, testCtx.theConfigShouldHaveEmailRecipient)
	ctx.Step(`^the setup should be cancelled$`, testCtx.theSetupShouldBeCancelled)
	ctx.Step(`^the existing config should be unchanged$`, testCtx.theExistingConfigShouldBeUnchanged)
}

func (s *setupContext) noConfigFileExistsForSetup() error {
	return os.MkdirAll(filepath.Dir(s.configPath), 0755)
}

func (s *setupContext) aConfigFileAlreadyExistsForSetup() error {
	if err := os.MkdirAll(filepath.Dir(s.configPath), 0755); err != nil {
		return err
	}

	content := `server:
  port: 9000
storage:
  backend: local
  local:
    dir: "/original/videos"
`
	s.originalContent = content
	return os.WriteFile(s.configPath, []byte(content), 0644)
}

func (s *setupContext) run(prompter *MockPrompter) error {
	s.output.Reset()
	s.err = cmd.RunSetupWithPrompter(prompter, s.configPath, &s.output)
	return s.err
}

func (s *setupContext) iRunTheSetupCommandWithInputs(table *godog.Table) error {
	inputs, confirms, selects := parseInputTable(table)
	if err := s.run(NewMockPrompter(inputs, confirms, selects)); err != nil {
		return fmt.Errorf("setup command failed: %w", err)
	}
	return nil
}

func (s *setupContext) iAttemptTheSetupCommandWithInputs(table *godog.Table) error {
	inputs, confirms, selects := parseInputTable(table)
	s.run(NewMockPrompter(inputs, confirms, selects))
	return nil
}

func (s *setupContext) iRunTheSetupCommandWithConfirmation(confirmation string) error {
	confirm := strings.ToLower(confirmation) == "y"
	s.run(NewMockPrompter(nil, []bool{confirm}, nil))
	return nil
}

func (s *setupContext) iRunTheSetupCommandWithConfirmationAndInputs(confirmation string, table *godog.Table) error {
	confirm := strings.ToLower(confirmation) == "y"
	inputs, confirms, selects := parseInputTable(table)

	// Prepend the overwrite confirmation
	allConfirms := append([]bool{confirm}, confirms...)
	if err := s.run(NewMockPrompter(inputs, allConfirms, selects)); err != nil {
		return fmt.Errorf("setup command failed: %w", err)
	}
	return nil
}

// parseInputTable splits a | prompt | value | table into prompter answers.
// Prompts starting with "choose" are selects, prompts phrased as yes/no
// questions are confirms, everything else is text input.
func parseInputTable(table *godog.Table) ([]string, []bool, []string) {
	var inputs, selects []string
	var confirms []bool

	for i, row := range table.Rows {
		if i == 0 {
			continue // Skip header row
		}
		prompt := strings.ToLower(row.Cells[0].Value)
		value := row.Cells[1].Value

		switch {
		case strings.HasPrefix(prompt, "choose"):
			selects = append(selects, value)
		case isConfirmPrompt(prompt):
			confirms = append(confirms, strings.ToLower(value) == "y")
		default:
			inputs = append(inputs, value)
		}
	}

	return inputs, confirms, selects
}

func isConfirmPrompt(prompt string) bool {
	for _, p := range []string{"add", "use", "make", "send"} {
		if strings.HasPrefix(prompt, p) {
			return true
		}
	}
	return false
}

func (s *setupContext) theSetupShouldFailWith(expected string) error {
	if s.err == nil {
		return fmt.Errorf("expected setup to fail")
	}
	if !strings.Contains(s.err.Error(), expected) {
		return fmt.Errorf("expected error containing %q, got %q", expected, s.err.Error())
	}
	return nil
}

func (s *setupContext) aConfigFileShouldExist() error {
	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file does not exist at %s", s.configPath)
	}
	return nil
}

func (s *setupContext) noConfigFileShouldExist() error {
	if _, err := os.Stat(s.configPath); err == nil {
		return fmt.Errorf("config file unexpectedly exists at %s", s.configPath)
	}
	return nil
}

func (s *setupContext) load() (*config.Config, error) {
	cfg, err := config.LoadFile(s.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func (s *setupContext) theConfigShouldHavePort(expected int) error {
	cfg, err := s.load()
	if err != nil {
		return err
	}
	if cfg.Server.Port != expected {
		return fmt.Errorf("expected port %d, got %d", expected, cfg.Server.Port)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveSpeechProvider(provider, voice string) error {
	cfg, err := s.load()
	if err != nil {
		return err
	}
	if cfg.Speech.Provider != provider || cfg.Speech.Voice != voice {
		return fmt.Errorf("expected speech %s/%s, got %s/%s", provider, voice, cfg.Speech.Provider, cfg.Speech.Voice)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveStorageBackend(expected string) error {
	cfg, err := s.load()
	if err != nil {
		return err
	}
	if cfg.Storage.Backend != expected {
		return fmt.Errorf("expected storage backend %q, got %q", expected, cfg.Storage.Backend)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveGCSBucket(expected string) error {
	cfg, err := s.load()
	if err != nil {
		return err
	}
	if cfg.Storage.GCS.Bucket != expected {
		return fmt.Errorf("expected bucket %q, got %q", expected, cfg.Storage.GCS.Bucket)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveLocalOutputDirectory(expected string) error {
	cfg, err := s.load()
	if err != nil {
		return err
	}
	if cfg.Storage.Local.Dir != expected {
		return fmt.Errorf("expected local dir %q, got %q", expected, cfg.Storage.Local.Dir)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveWebhook(expected string) error {
	cfg, err := s.load()
	if err != nil {
		return err
	}
	if cfg.Notify.WebhookURL != expected {
		return fmt.Errorf("expected webhook %q, got %q", expected, cfg.Notify.WebhookURL)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveTelegramChat(expected string) error {
	cfg, err := s.load()
	if err != nil {
		return err
	}
	want, err := strconv.ParseInt(expected, 10, 64)
	if err != nil {
		return err
	}
	if cfg.Notify.Telegram.ChatID != want {
		return fmt.Errorf("expected telegram chat %d, got %d", want, cfg.Notify.Telegram.ChatID)
	}
	return nil
}

func (s *setupContext) theConfigShouldHaveEmailRecipient(nickname string) error {
	cfg, err := s.load()
	if err != nil {
		return err
	}
	if !cfg.Notify.Email.Enabled {
		return fmt.Errorf("expected email notifications to be enabled")
	}
	if _, ok := cfg.Notify.Email.Recipients[nickname]; !ok {
		return fmt.Errorf("recipient %q not found in %v", nickname, cfg.Notify.Email.Recipients)
	}
	return nil
}

func (s *setupContext) theSetupShouldBeCancelled() error {
	if s.err != nil {
		return fmt.Errorf("expected a clean cancel, got %v", s.err)
	}
	if !strings.Contains(s.output.String(), "Setup cancelled.") {
		return fmt.Errorf("expected setup to be cancelled, output: %s", s.output.String())
	}
	return nil
}

func (s *setupContext) theExistingConfigShouldBeUnchanged() error {
	content, err := os.ReadFile(s.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	if string(content) != s.originalContent {
		return fmt.Errorf("config content was changed")
	}
	return nil
}
