package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// API contains the order-management service endpoint and credentials.
type API struct {
	User           string `toml:"user"`
	Password       string `toml:"password"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Shipment contains the shipment endpoint and the folders a batch works on.
type Shipment struct {
	URL        string `toml:"url"`
	InputDir   string `toml:"input_dir"`
	OutputDir  string `toml:"output_dir"`
	ProblemDir string `toml:"problem_dir"`
}

// Decode controls how shipment identifiers are read from scanned documents.
type Decode struct {
	Density           int      `toml:"density"`
	BarcodeExtensions []string `toml:"barcode_extensions"`
}

// Tools names the external imaging binaries.
type Tools struct {
	Magick         string `toml:"magick"`
	Zbarimg        string `toml:"zbarimg"`
	GhostscriptDir string `toml:"ghostscript_dir"`
}

// Paths contains state, log and secret locations.
type Paths struct {
	StateDir    string `toml:"state_dir"`
	LogDir      string `toml:"log_dir"`
	SecretsFile string `toml:"secrets_file"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// History controls the run ledger.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Metrics controls the Prometheus textfile export.
type Metrics struct {
	TextfilePath string `toml:"textfile_path"`
}

// Notifications controls ntfy alerts sent when a run finishes.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	// OnlyFailures suppresses the message for runs where every document succeeded.
	OnlyFailures bool `toml:"only_failures"`
}

// Config encapsulates all configuration values for shipconf.
//
// Configuration sections by subsystem:
//   - API: order-management base URL, credentials and request timeout
//   - Shipment: shipment endpoint plus input, output and problem folders
//   - Decode: rasterization density and which extensions carry barcodes
//   - Tools: ImageMagick, zbarimg and Ghostscript locations
//   - Paths: state (lock, history), logs and the optional secrets file
//   - Logging: log format and level
//   - History: run ledger toggle
//   - Metrics: Prometheus textfile output
//   - Notifications: ntfy run alerts
type Config struct {
	API      API      `toml:"api"`
	Shipment Shipment `toml:"shipment"`
	Decode   Decode   `toml:"decode"`
	Tools    Tools    `toml:"tools"`
	Paths    Paths    `toml:"paths"`
	Logging  Logging  `toml:"logging"`
	History  History  `toml:"history"`
	Metrics  Metrics  `toml:"metrics"`

	Notifications Notifications `toml:"notifications"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadSecrets(cfg.Paths.SecretsFile, resolvedPath); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("shipconf.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// loadSecrets populates the process environment from a dotenv file. An explicit
// secrets_file must exist; otherwise a .env beside the config file is used when
// present. Variables already set in the environment win.
func loadSecrets(secretsFile, configPath string) error {
	if strings.TrimSpace(secretsFile) != "" {
		path, err := expandPath(secretsFile)
		if err != nil {
			return fmt.Errorf("paths.secrets_file: %w", err)
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("load secrets file %q: %w", path, err)
		}
		return nil
	}
	if configPath == "" {
		return nil
	}
	candidate := SecretsPath(configPath)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		if err := godotenv.Load(candidate); err != nil {
			return fmt.Errorf("load secrets file %q: %w", candidate, err)
		}
	}
	return nil
}

// SecretsPath is the dotenv file picked up beside configPath when
// paths.secrets_file is unset.
func SecretsPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), ".env")
}

// CreateSecretsTemplate writes a dotenv file holding empty credential
// variables, readable only by its owner.
func CreateSecretsTemplate(path string) error {
	content, err := godotenv.Marshal(map[string]string{
		envAPIUser:     "",
		envAPIPassword: "",
	})
	if err != nil {
		return fmt.Errorf("render secrets template: %w", err)
	}
	if err := os.WriteFile(path, []byte(content+"\n"), 0o600); err != nil {
		return fmt.Errorf("write secrets template: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(path, 0o600)
}

// EnsureDirectories creates the state and log directories. The input, output and
// problem folders are owned by the operator and are never created here; a
// missing archive folder surfaces as an archival failure.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath is the file guarding against concurrent batch runs.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "shipconf.lock")
}

// HistoryPath is the SQLite run ledger location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LogPath is the JSON log file appended to by every command.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "shipconf.log")
}

// IsBarcodeDocument reports whether a file extension selects the barcode branch
// of identifier resolution.
func (c *Config) IsBarcodeDocument(ext string) bool {
	ext = normalizeExtension(ext)
	for _, candidate := range c.Decode.BarcodeExtensions {
		if candidate == ext {
			return true
		}
	}
	return false
}

// ToolEnv returns environment overrides for the imaging tools. ImageMagick
// locates Ghostscript through PATH, so a configured ghostscript_dir is
// prepended there.
func (c *Config) ToolEnv() []string {
	dir := strings.TrimSpace(c.Tools.GhostscriptDir)
	if dir == "" {
		return nil
	}
	return []string{"PATH=" + dir + string(os.PathListSeparator) + os.Getenv("PATH")}
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
