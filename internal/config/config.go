// Package config handles exporter configuration loading and management.
package config

// Config holds all tool settings.
type Config struct {
	Export  ExportConfig  `yaml:"export"`
	Meta    MetaConfig    `yaml:"meta"`
	Assets  AssetsConfig  `yaml:"assets"`
	Logging LoggingConfig `yaml:"logging"`
}

// ExportConfig holds container writer settings.
type ExportConfig struct {
	MaxTextureSize  int    `yaml:"max_texture_size"` // Longest texture edge in pixels
	JPEGQuality     int    `yaml:"jpeg_quality"`
	EncodeWorkers   int    `yaml:"encode_workers"` // 0 uses one worker per CPU
	Generator       string `yaml:"generator"`
	ExporterVersion string `yaml:"exporter_version"`
}

// MetaConfig holds the default avatar metadata. Caller metadata is merged over it.
type MetaConfig struct {
	Title             string `yaml:"title"`
	Author            string `yaml:"author"`
	Version           string `yaml:"version"`
	MetaVersion       string `yaml:"meta_version"`
	ViolentUssageName string `yaml:"violent_ussage_name"`
	SexualUssageName  string `yaml:"sexual_ussage_name"`
}

// Map returns the metadata keyed by the VRM 0.x field names. Empty values are omitted.
func (m MetaConfig) Map() map[string]interface{} {
	out := make(map[string]interface{})
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set("title", m.Title)
	set("author", m.Author)
	set("version", m.Version)
	set("metaVersion", m.MetaVersion)
	set("violentUssageName", m.ViolentUssageName)
	set("sexualUssageName", m.SexualUssageName)
	return out
}

// AssetsConfig holds texture lookup settings.
type AssetsConfig struct {
	SearchPaths []string `yaml:"search_paths"` // Directories searched for texture files
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Export: ExportConfig{
			MaxTextureSize:  2048,
			JPEGQuality:     92,
			EncodeWorkers:   0,
			Generator:       "vrm-customizer",
			ExporterVersion: "VRMCustomizer-1.0",
		},
		Meta: MetaConfig{
			Title:             "VRMCustomizer-1.0",
			Author:            "VRMCustomizer-1.0",
			Version:           "1.0.0",
			MetaVersion:       "0",
			ViolentUssageName: "Allow",
			SexualUssageName:  "Allow",
		},
		Assets: AssetsConfig{
			SearchPaths: []string{"."},
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
