package config

const (
	defaultConfigPath       = "~/.config/shipconf/config.toml"
	defaultStateDir         = "~/.local/share/shipconf"
	defaultLogDir           = "~/.local/share/shipconf/logs"
	defaultTimeoutSeconds   = 120
	defaultDensity          = 300
	defaultMagickBinary     = "magick"
	defaultZbarimgBinary    = "zbarimg"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultBarcodeExtension = ".pdf"
	envAPIUser              = "SHIPCONF_API_USER"
	envAPIPassword          = "SHIPCONF_API_PASSWORD"
	envBaseURL              = "SHIPCONF_BASE_URL"
	defaultNtfyTimeout      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Decode: Decode{
			Density:           defaultDensity,
			BarcodeExtensions: []string{defaultBarcodeExtension},
		},
		Tools: Tools{
			Magick:  defaultMagickBinary,
			Zbarimg: defaultZbarimgBinary,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeout,
			OnlyFailures:          true,
		},
	}
}
