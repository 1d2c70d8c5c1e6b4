package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateShipment(); err != nil {
		return err
	}
	if err := c.validateDecode(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateAPI() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required. Set %s or edit %s (create with 'shipconf config init')", envBaseURL, defaultConfigPath)
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL, got %q", c.API.BaseURL)
	}
	if c.API.User == "" {
		return fmt.Errorf("api.user is required. Set %s or add it to the secrets file", envAPIUser)
	}
	if c.API.Password == "" {
		return fmt.Errorf("api.password is required. Set %s or add it to the secrets file", envAPIPassword)
	}
	if c.API.TimeoutSeconds <= 0 {
		return errors.New("api.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateShipment() error {
	dirs := []struct {
		key   string
		value string
	}{
		{"shipment.input_dir", c.Shipment.InputDir},
		{"shipment.output_dir", c.Shipment.OutputDir},
		{"shipment.problem_dir", c.Shipment.ProblemDir},
	}
	seen := make(map[string]string, len(dirs))
	for _, dir := range dirs {
		if dir.value == "" {
			return fmt.Errorf("%s must be set", dir.key)
		}
		if other, ok := seen[dir.value]; ok {
			return fmt.Errorf("%s and %s must be different folders", other, dir.key)
		}
		seen[dir.value] = dir.key
	}
	return nil
}

func (c *Config) validateDecode() error {
	if c.Decode.Density <= 0 {
		return errors.New("decode.density must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full http(s) topic URL, got %q", topic)
	}
	return nil
}
