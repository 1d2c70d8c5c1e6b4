package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeAPI()
	if err := c.normalizeShipment(); err != nil {
		return err
	}
	c.normalizeDecode()
	c.normalizeTools()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeNotifications()
	return c.normalizeMetrics()
}

func (c *Config) normalizeAPI() {
	c.API.User = envFallback(c.API.User, envAPIUser)
	c.API.Password = envFallback(c.API.Password, envAPIPassword)
	c.API.BaseURL = envFallback(c.API.BaseURL, envBaseURL)
	if c.API.BaseURL != "" && !strings.HasSuffix(c.API.BaseURL, "/") {
		c.API.BaseURL += "/"
	}
	if c.API.TimeoutSeconds == 0 {
		c.API.TimeoutSeconds = defaultTimeoutSeconds
	}
}

func (c *Config) normalizeShipment() error {
	c.Shipment.URL = strings.TrimLeft(strings.TrimSpace(c.Shipment.URL), "/")
	if c.Shipment.URL != "" && !strings.HasSuffix(c.Shipment.URL, "/") {
		c.Shipment.URL += "/"
	}
	var err error
	if c.Shipment.InputDir, err = expandPath(strings.TrimSpace(c.Shipment.InputDir)); err != nil {
		return fmt.Errorf("shipment.input_dir: %w", err)
	}
	if c.Shipment.OutputDir, err = expandPath(strings.TrimSpace(c.Shipment.OutputDir)); err != nil {
		return fmt.Errorf("shipment.output_dir: %w", err)
	}
	if c.Shipment.ProblemDir, err = expandPath(strings.TrimSpace(c.Shipment.ProblemDir)); err != nil {
		return fmt.Errorf("shipment.problem_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDecode() {
	if c.Decode.Density == 0 {
		c.Decode.Density = defaultDensity
	}
	exts := make([]string, 0, len(c.Decode.BarcodeExtensions))
	seen := make(map[string]struct{}, len(c.Decode.BarcodeExtensions))
	for _, ext := range c.Decode.BarcodeExtensions {
		ext = normalizeExtension(ext)
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	c.Decode.BarcodeExtensions = exts
}

func (c *Config) normalizeTools() {
	c.Tools.Magick = strings.TrimSpace(c.Tools.Magick)
	if c.Tools.Magick == "" {
		c.Tools.Magick = defaultMagickBinary
	}
	c.Tools.Zbarimg = strings.TrimSpace(c.Tools.Zbarimg)
	if c.Tools.Zbarimg == "" {
		c.Tools.Zbarimg = defaultZbarimgBinary
	}
	c.Tools.GhostscriptDir = strings.TrimSpace(c.Tools.GhostscriptDir)
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.SecretsFile, err = expandPath(strings.TrimSpace(c.Paths.SecretsFile)); err != nil {
		return fmt.Errorf("paths.secrets_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeMetrics() error {
	var err error
	if c.Metrics.TextfilePath, err = expandPath(strings.TrimSpace(c.Metrics.TextfilePath)); err != nil {
		return fmt.Errorf("metrics.textfile_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeout
	}
}

func envFallback(value, key string) string {
	value = strings.TrimSpace(value)
	if value != "" {
		return value
	}
	if env, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(env)
	}
	return ""
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
