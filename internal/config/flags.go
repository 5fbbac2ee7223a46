package config

import "flag"

var (
	flagConfig     string
	flagDebug      bool
	flagLogFile    string
	flagMaxTexture int
	flagWorkers    int
)

// RegisterFlags binds the shared configuration flags to fs.
// Subcommands call this on their own flag set before parsing.
func RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&flagConfig, "config", "", "Path to config file")
	fs.BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	fs.StringVar(&flagLogFile, "log-file", "", "Write logs to this file (rotated)")
	fs.IntVar(&flagMaxTexture, "max-texture", 0, "Maximum exported texture edge in pixels")
	fs.IntVar(&flagWorkers, "workers", 0, "Image encode workers (0 = one per CPU)")
}

// ConfigPath returns the explicit config path if provided via -config.
func ConfigPath() string {
	return flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if flagDebug {
		cfg.Logging.Level = "debug"
	}
	if flagLogFile != "" {
		cfg.Logging.LogFile = flagLogFile
	}
	if flagMaxTexture > 0 {
		cfg.Export.MaxTextureSize = flagMaxTexture
	}
	if flagWorkers > 0 {
		cfg.Export.EncodeWorkers = flagWorkers
	}
}
