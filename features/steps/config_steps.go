//go:build integration

package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ROJSUWAN/n8n-video-renderer/infrastructure/config"

	"github.com/cucumber/godog"
)

type configContext struct {
	tempDir    string
	configPath string
	cfg        *config.Config
	loadErr    error
	restoreEnv []func()
}

// SharedConfigContext is reset before each scenario via After hook
var SharedConfigContext = &configContext{}

func InitializeConfigScenario(ctx *godog.ScenarioContext) {
	testCtx := SharedConfigContext

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		tempDir, err := os.MkdirTemp("", "config-test-*")
		if err != nil {
			return c, err
		}
		testCtx.tempDir = tempDir
		testCtx.configPath = filepath.Join(tempDir, "config.yaml")
		testCtx.cfg = nil
		testCtx.loadErr = nil
		return c, nil
	})

	// Reset context after each scenario
	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		for i := len(testCtx.restoreEnv) - 1; i >= 0; i-- {
			testCtx.restoreEnv[i]()
		}
		testCtx.restoreEnv = nil
		if testCtx.tempDir != "" {
			os.RemoveAll(testCtx.tempDir)
		}
		SharedConfigContext = &configContext{}
		return c, nil
	})

	ctx.Step(`^no configuration file exists$`, testCtx.noConfigurationFileExists)
	ctx.Step(`^a configuration file containing:$`, testCtx.aConfigurationFileContaining)
	ctx.Step(`^the environment variable "([^"]*)" is "([^"]*)"$`, testCtx.theEnvironmentVariableIs)
	ctx.Step(`^the environment variable "([^"]*)" is unset$`, testCtx.theEnvironmentVariableIsUnset)
	ctx.Step(`^I load the configuration$`, testCtx.iLoadTheConfiguration)
	ctx.Step(`^I attempt to load the configuration$`, testCtx.iAttemptToLoadTheConfiguration)
	ctx.Step(`^the listen address should be "([^"]*)"$`, testCtx.theListenAddressShouldBe)
	ctx.Step(`^the storage backend should be "([^"]*)"$`, testCtx.theStorageBackendShouldBe)
	ctx.Step(`^the trusted proxies should be "([^"]*)"$`, testCtx.theTrustedProxiesShouldBe)
	ctx.Step(`^the configuration should be valid$`, testCtx.theConfigurationShouldBeValid)
	ctx.Step(`^the configuration should be invalid mentioning "([^"]*)"$`, testCtx.theConfigurationShouldBeInvalidMentioning)
	ctx.Step(`^I should receive a configuration error mentioning "([^"]*)"$`, testCtx.iShouldReceiveAConfigurationErrorMentioning)
}

func (c *configContext) setEnv(key string, value *string) {
	old, had := os.LookupEnv(key)
	c.restoreEnv = append(c.restoreEnv, func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
	if value == nil {
		os.Unsetenv(key)
	} else {
		os.Setenv(key, *value)
	}
}

func (c *configContext) noConfigurationFileExists() error {
	if _, err := os.Stat(c.configPath); err == nil {
		return os.Remove(c.configPath)
	}
	return nil
}

func (c *configContext) aConfigurationFileContaining(doc *godog.DocString) error {
	return os.WriteFile(c.configPath, []byte(doc.Content), 0644)
}

func (c *configContext) theEnvironmentVariableIs(key, value string) error {
	c.setEnv(key, &value)
	return nil
}

func (c *configContext) theEnvironmentVariableIsUnset(key string) error {
	c.setEnv(key, nil)
	return nil
}

func (c *configContext) iLoadTheConfiguration() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("unexpected error loading config: %w", err)
	}
	c.cfg = cfg
	return nil
}

func (c *configContext) iAttemptToLoadTheConfiguration() error {
	cfg, err := config.Load(c.configPath)
	c.cfg = cfg
	c.loadErr = err
	return nil
}

func (c *configContext) theListenAddressShouldBe(expected string) error {
	if c.cfg == nil {
		return fmt.Errorf("config was not loaded")
	}
	if got := c.cfg.Addr(); got != expected {
		return fmt.Errorf("expected listen address %q, got %q", expected, got)
	}
	return nil
}

func (c *configContext) theStorageBackendShouldBe(expected string) error {
	if c.cfg == nil {
		return fmt.Errorf("config was not loaded")
	}
	if c.cfg.Storage.Backend != expected {
		return fmt.Errorf("expected storage backend %q, got %q", expected, c.cfg.Storage.Backend)
	}
	return nil
}

func (c *configContext) theTrustedProxiesShouldBe(expected string) error {
	if c.cfg == nil {
		return fmt.Errorf("config was not loaded")
	}
	if got := strings.Join(c.cfg.Server.TrustedProxies, ","); got != expected {
		return fmt.Errorf("expected trusted proxies %q, got %q", expected, got)
	}
	return nil
}

func (c *configContext) theConfigurationShouldBeValid() error {
	if c.cfg == nil {
		return fmt.Errorf("config was not loaded")
	}
	return c.cfg.Validate()
}

func (c *configContext) theConfigurationShouldBeInvalidMentioning(expected string) error {
	if c.cfg == nil {
		return fmt.Errorf("config was not loaded")
	}
	err := c.cfg.Validate()
	if err == nil {
		return fmt.Errorf("expected validation to fail")
	}
	if !strings.Contains(err.Error(), expected) {
		return fmt.Errorf("expected validation error to mention %q, got %q", expected, err.Error())
	}
	return nil
}

func (c *configContext) iShouldReceiveAConfigurationErrorMentioning(expected string) error {
	if c.loadErr == nil {
		return fmt.Errorf("expected an error but got none")
	}
	if !strings.Contains(c.loadErr.Error(), expected) {
		return fmt.Errorf("expected error to mention %q, got %q", expected, c.loadErr.Error())
	}
	return nil
}
