//go:build integration

package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ROJSUWAN/n8n-video-renderer/cmd"
	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/config"

	"github.com/cucumber/godog"
)

type configCrudContext struct {
	tempDir    string
	configPath string
	config     *config.Config
	output     *bytes.Buffer
	err        error
}

var SharedConfigCrudContext = &configCrudContext{}

func InitializeConfigCrudScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedConfigCrudContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		// Create temp directory for each scenario
		tempDir, err := os.MkdirTemp("", "config-crud-test-*")
		if err != nil {
			return c, err
		}
		testCtx.tempDir = tempDir
		testCtx.configPath = filepath.Join(tempDir, "config.yaml")
		testCtx.output = &bytes.Buffer{}
		testCtx.err = nil
		testCtx.config = nil
		return c, nil
	})

	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		// Cleanup temp directory
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		SharedConfigCrudContext = &configCrudContext{}
		return c, nil
	})

	// Background
	ctx.Step(`^a config file exists with initial data$`, testCtx.aConfigFileExistsWithInitialData)

	// Recipient steps
	ctx.Step(`^I run config add recipient with key "([^"]*)" name "([^"]*)" and email "([^"]*)"$`, testCtx.iRunConfigAddRecipient)
	ctx.Step(`^recipient "([^"]*)" exists with name "([^"]*)" and email "([^"]*)"$`, testCtx.recipientExistsWithNameAndEmail)
	ctx.Step(`^I run config list recipients$`, testCtx.iRunConfigListRecipients)
	ctx.Step(`^I run config remove recipient "([^"]*)"$`, testCtx.iRunConfigRemoveRecipient)
	ctx.Step(`^I run config update recipient "([^"]*)" with email "([^"]*)"$`, testCtx.iRunConfigUpdateRecipientEmail)
	ctx.Step(`^I run config update recipient "([^"]*)" with name "([^"]*)" and email "([^"]*)"$`, testCtx.iRunConfigUpdateRecipientNameAndEmail)
	ctx.Step(`^the config should contain recipient "([^"]*)" with name "([^"]*)" and email "([^"]*)"$`, testCtx.theConfigShouldContainRecipient)
	ctx.Step(`^the config should not contain recipient "([^"]*)"$`, testCtx.theConfigShouldNotContainRecipient)
	ctx.Step(`^I run config show$`, testCtx.iRunConfigShow)

	// Common assertions
	ctx.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	ctx.Step(`^the command should fail with "([^"]*)"$`, testCtx.theCommandShouldFailWith)
	ctx.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	ctx.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
}

func (c *configCrudContext) loadConfig() error {
	cfg, err := config.LoadFile(c.configPath)
	if err != nil {
		return err
	}
	c.config = cfg
	return nil
}

func (c *configCrudContext) saveConfig() error {
	return config.Save(c.config, c.configPath)
}

// --- Background ---

func (c *configCrudContext) aConfigFileExistsWithInitialData() error {
	c.config = config.Default()
	c.config.Storage.Backend = config.StorageGCS
	c.config.Storage.GCS.Bucket = "renders"
	c.config.Notify.Telegram = config.TelegramConfig{BotToken: "123456:secret-token", ChatID: 42}
	c.config.Notify.Email = config.EmailConfig{
		Enabled:     true,
		FromName:    "Video Renderer",
		FromAddress: "renderer@example.com",
		Recipients:  make(map[string]config.RecipientConfig),
	}
	return c.saveConfig()
}

// --- Recipient steps ---

func (c *configCrudContext) iRunConfigAddRecipient(key, name, email string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	c.output.Reset()
	c.err = cmd.RunConfigAddWithDependencies(c.config, c.configPath, "recipient", key, name, email, c.output)
	return nil
}

func (c *configCrudContext) recipientExistsWithNameAndEmail(key, name, email string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	if c.config.Notify.Email.Recipients == nil {
		c.config.Notify.Email.Recipients = make(map[string]config.RecipientConfig)
	}
	c.config.Notify.Email.Recipients[strings.ToLower(key)] = config.RecipientConfig{Name: name, Address: email}
	return c.saveConfig()
}

func (c *configCrudContext) iRunConfigListRecipients() error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	c.output.Reset()
	c.err = cmd.RunConfigListWithDependencies(c.config, c.configPath, "recipients", c.output)
	return nil
}

func (c *configCrudContext) iRunConfigRemoveRecipient(key string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	c.output.Reset()
	c.err = cmd.RunConfigRemoveWithDependencies(c.config, c.configPath, "recipient", key, c.output)
	return nil
}

func (c *configCrudContext) iRunConfigUpdateRecipientEmail(key, email string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	c.output.Reset()
	c.err = cmd.RunConfigUpdateWithDependencies(c.config, c.configPath, "recipient", key, "", email, c.output)
	return nil
}

func (c *configCrudContext) iRunConfigUpdateRecipientNameAndEmail(key, name, email string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	c.output.Reset()
	c.err = cmd.RunConfigUpdateWithDependencies(c.config, c.configPath, "recipient", key, name, email, c.output)
	return nil
}

func (c *configCrudContext) theConfigShouldContainRecipient(key, name, email string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	key = strings.ToLower(key)
	r, exists := c.config.Notify.Email.Recipients[key]
	if !exists {
		return fmt.Errorf("recipient %q not found in config", key)
	}
	if r.Name != name {
		return fmt.Errorf("expected recipient %q to have name %q, got %q", key, name, r.Name)
	}
	if r.Address != email {
		return fmt.Errorf("expected recipient %q to have email %q, got %q", key, email, r.Address)
	}
	return nil
}

func (c *configCrudContext) theConfigShouldNotContainRecipient(key string) error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	key = strings.ToLower(key)
	if _, exists := c.config.Notify.Email.Recipients[key]; exists {
		return fmt.Errorf("recipient %q should not exist in config", key)
	}
	return nil
}

func (c *configCrudContext) iRunConfigShow() error {
	if err := c.loadConfig(); err != nil {
		return err
	}
	c.output.Reset()
	c.err = cmd.RunConfigShowWithDependencies(c.config, c.output)
	return nil
}

// --- Common assertions ---

func (c *configCrudContext) theCommandShouldSucceed() error {
	if c.err != nil {
		return fmt.Errorf("expected command to succeed but got error: %v\nOutput: %s", c.err, c.output.String())
	}
	return nil
}

func (c *configCrudContext) theCommandShouldFailWith(expectedError string) error {
	if c.err == nil {
		return fmt.Errorf("expected command to fail with %q but it succeeded\nOutput: %s", expectedError, c.output.String())
	}
	errStr := strings.ToLower(c.err.Error())
	expected := strings.ToLower(expectedError)
	if !strings.Contains(errStr, expected) {
		return fmt.Errorf("expected error to contain %q but got %q", expectedError, c.err.Error())
	}
	return nil
}

func (c *configCrudContext) theOutputShouldContain(expected string) error {
	output := c.output.String()
	if !strings.Contains(output, expected) {
		return fmt.Errorf("expected output to contain %q but got:\n%s", expected, output)
	}
	return nil
}

func (c *configCrudContext) theOutputShouldNotContain(unexpected string) error {
	output := c.output.String()
	if strings.Contains(output, unexpected) {
		return fmt.Errorf("expected output not to contain %q but got:\n%s", unexpected, output)
	}
	return nil
}
