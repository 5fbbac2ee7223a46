// Package exporter serializes a live avatar scene into a VRM 0.x binary glTF container.
//
// An export walks the scene graph in pre-order, packing vertex data into
// accessors and buffer views as it goes. Skins are resolved in a second pass once
// every node has an index, texture images are encoded concurrently and joined
// before the binary chunk is assembled.
package exporter

import (
	"bytes"
	"context"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/Faultbox/vrm-customizer/internal/config"
	"github.com/Faultbox/vrm-customizer/internal/logger"
	"github.com/Faultbox/vrm-customizer/internal/scene"
)

// Precondition and data errors. Any of them aborts the export.
var (
	ErrNoScene                  = errors.New("avatar has no scene root")
	ErrNoHumanoid               = errors.New("avatar has no humanoid")
	ErrNoExpressions            = errors.New("avatar has no expression manager")
	ErrNoLookAt                 = errors.New("avatar has no look-at component")
	ErrUnsupportedComponentType = errors.New("unsupported attribute component type")
	ErrUnsupportedItemSize      = errors.New("unsupported attribute item size")
)

// Options configure an Exporter.
type Options struct {
	MaxTextureSize  int // longest exported texture edge in pixels
	JPEGQuality     int
	Workers         int // image encode concurrency; 0 uses one worker per CPU
	Generator       string
	ExporterVersion string

	// Meta holds default metadata. Caller metadata passed to Export wins.
	Meta map[string]interface{}

	Logger *zap.Logger
}

// DefaultOptions returns the options derived from the default configuration.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig builds exporter options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxTextureSize:  cfg.Export.MaxTextureSize,
		JPEGQuality:     cfg.Export.JPEGQuality,
		Workers:         cfg.Export.EncodeWorkers,
		Generator:       cfg.Export.Generator,
		ExporterVersion: cfg.Export.ExporterVersion,
		Meta:            cfg.Meta.Map(),
	}
}

// Exporter writes avatars as VRM files. It holds no per-export state and
// may be used from several goroutines.
type Exporter struct {
	opts Options
	log  *zap.Logger
}

// New creates an exporter. Zero-valued numeric options fall back to the defaults.
func New(opts Options) *Exporter {
	def := config.Default().Export
	if opts.MaxTextureSize <= 0 {
		opts.MaxTextureSize = def.MaxTextureSize
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = def.JPEGQuality
	}
	if opts.ExporterVersion == "" {
		opts.ExporterVersion = def.ExporterVersion
	}
	if opts.Generator == "" {
		opts.Generator = def.Generator
	}

	log := opts.Logger
	if log == nil {
		log = logger.Log
	}
	return &Exporter{opts: opts, log: log.Named("exporter")}
}

// Export serializes the avatar and returns the complete container.
// meta is merged over the configured default metadata.
// The scene must not be modified until Export returns.
func (e *Exporter) Export(ctx context.Context, avatar *scene.Avatar, meta map[string]interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Write(ctx, &buf, avatar, meta); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write serializes the avatar to out. Nothing is written when the export fails.
func (e *Exporter) Write(ctx context.Context, out io.Writer, avatar *scene.Avatar, meta map[string]interface{}) error {
	if err := checkAvatar(avatar); err != nil {
		return err
	}

	w := newWriter(&e.opts, e.log)
	return w.write(ctx, out, avatar, meta)
}

func checkAvatar(a *scene.Avatar) error {
	switch {
	case a == nil || a.Scene == nil:
		return ErrNoScene
	case a.Humanoid == nil:
		return ErrNoHumanoid
	case a.Expressions == nil:
		return ErrNoExpressions
	case a.LookAt == nil:
		return ErrNoLookAt
	}
	return nil
}
