// vrmtool is a CLI utility for customizing and exporting VRM avatars.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"time"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/vrm-customizer/internal/assets"
	"github.com/Faultbox/vrm-customizer/internal/config"
	"github.com/Faultbox/vrm-customizer/internal/customize"
	"github.com/Faultbox/vrm-customizer/internal/exporter"
	"github.com/Faultbox/vrm-customizer/internal/importer"
	"github.com/Faultbox/vrm-customizer/internal/logger"
	"github.com/Faultbox/vrm-customizer/pkg/glb"
	"github.com/Faultbox/vrm-customizer/pkg/vrm"
)

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "export":
		err = cmdExport(args)
	case "info":
		err = cmdInfo(args, os.Stdout)
	case "config":
		err = cmdConfig(args, os.Stdout)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage(os.Stdout)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `vrmtool - VRM avatar customization utility

Usage:
  vrmtool <command> [options]

Commands:
  export [options] <in.glb|in.vrm> <out.vrm>   Customize and export an avatar
  info <file.vrm>                              Show container and document information
  config [options] [out.yaml]                  Write the effective configuration

Export options:
  -profile <file.yaml>   Customization profile (colors, textures, hidden nodes)
  -pose <file.yaml>      Bone and expression targets applied before export
  -meta <file.yaml>      Metadata merged over the configured defaults
  -config, -debug, -log-file, -max-texture, -workers

Examples:
  vrmtool export -profile blue_hair.yaml base.vrm custom.vrm
  vrmtool info custom.vrm`)
}

func cmdExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	profilePath := fs.String("profile", "", "Customization profile")
	posePath := fs.String("pose", "", "Pose file")
	metaPath := fs.String("meta", "", "Metadata file")
	config.RegisterFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: vrmtool export [options] <in.glb|in.vrm> <out.vrm>")
	}
	in, out := fs.Arg(0), fs.Arg(1)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()
	logger.Sugar.Debugf("Config: %+v", cfg)

	// Textures are looked up next to the model and the profile first.
	textures := assets.NewManager(cfg.Assets.SearchPaths...)
	textures.AddSearchPath(filepath.Dir(in))
	if *profilePath != "" {
		textures.AddSearchPath(filepath.Dir(*profilePath))
	}
	defer textures.Close()

	start := time.Now()
	avatar, err := importer.LoadFile(in, importer.Options{Images: textures, Logger: logger.Log})
	if err != nil {
		return err
	}
	logger.Info("loaded avatar", zap.String("path", in), zap.Duration("took", time.Since(start)))

	if *posePath != "" {
		pose, err := customize.LoadPose(*posePath)
		if err != nil {
			return err
		}
		if missing := avatar.ApplyPose(pose); len(missing) > 0 {
			logger.Warn("pose targets matched nothing", zap.Strings("names", missing))
		}
	}

	if *profilePath != "" {
		profile, err := customize.LoadProfile(*profilePath)
		if err != nil {
			return err
		}
		if _, err := customize.Apply(avatar, profile, textures); err != nil {
			return fmt.Errorf("applying profile: %w", err)
		}
	}

	var meta map[string]interface{}
	if *metaPath != "" {
		if meta, err = customize.LoadMeta(*metaPath); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := exporter.OptionsFromConfig(cfg)
	opts.Logger = logger.Log
	data, err := exporter.New(opts).Export(ctx, avatar, meta)
	if err != nil {
		return fmt.Errorf("exporting: %w", err)
	}
	if err := os.WriteFile(out, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}

	hits, misses := textures.Stats()
	logger.Info("exported avatar",
		zap.String("path", out),
		zap.Int("bytes", len(data)),
		zap.Int("texture_cache_hits", hits),
		zap.Int("texture_cache_misses", misses),
		zap.Duration("took", time.Since(start)))
	return nil
}

func cmdInfo(args []string, w io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: vrmtool info <file.vrm>")
	}

	f, err := glb.ParseFile(args[0])
	if err != nil {
		return err
	}

	// Only the JSON chunk is needed; buffers are not loaded.
	doc := new(gltf.Document)
	if err := json.Unmarshal(f.TrimJSON(), doc); err != nil {
		return fmt.Errorf("decoding glTF: %w", err)
	}

	fmt.Fprintf(w, "File:        %s\n", args[0])
	fmt.Fprintf(w, "Version:     %d\n", f.Header.Version)
	fmt.Fprintf(w, "Length:      %d bytes\n", f.Header.Length)
	fmt.Fprintf(w, "JSON chunk:  %d bytes\n", len(f.JSON))
	fmt.Fprintf(w, "BIN chunk:   %d bytes\n", len(f.BIN))
	fmt.Fprintf(w, "Generator:   %s\n", doc.Asset.Generator)
	fmt.Fprintln(w)

	counts := []struct {
		name string
		n    int
	}{
		{"nodes", len(doc.Nodes)},
		{"meshes", len(doc.Meshes)},
		{"skins", len(doc.Skins)},
		{"materials", len(doc.Materials)},
		{"textures", len(doc.Textures)},
		{"images", len(doc.Images)},
		{"accessors", len(doc.Accessors)},
		{"bufferViews", len(doc.BufferViews)},
	}
	fmt.Fprintln(w, "Elements:")
	for _, c := range counts {
		fmt.Fprintf(w, "  %-12s %d\n", c.name, c.n)
	}

	raw, ok := doc.Extensions[vrm.ExtensionName]
	if !ok {
		fmt.Fprintln(w, "\nNo VRM extension.")
		return nil
	}
	js, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	var rec vrm.VRM
	if err := json.Unmarshal(js, &rec); err != nil {
		return fmt.Errorf("decoding VRM extension: %w", err)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "VRM %s (%s)\n", rec.SpecVersion, rec.ExporterVersion)
	fmt.Fprintf(w, "  title:       %s\n", rec.Meta.Title())
	fmt.Fprintf(w, "  author:      %s\n", rec.Meta.Author())
	if rec.Humanoid != nil {
		fmt.Fprintf(w, "  human bones: %d\n", len(rec.Humanoid.HumanBones))
		if missing := rec.Humanoid.MissingRequired(); len(missing) > 0 {
			fmt.Fprintf(w, "  missing:     %v\n", missing)
		}
	}
	if rec.BlendShapeMaster != nil {
		var presets []string
		for _, g := range rec.BlendShapeMaster.BlendShapeGroups {
			presets = append(presets, g.PresetName)
		}
		sort.Strings(presets)
		fmt.Fprintf(w, "  blendshapes: %d %v\n", len(presets), presets)
	}
	return nil
}

func cmdConfig(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	config.RegisterFlags(fs)
	fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if fs.NArg() == 0 {
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(w, "Wrote %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
		return nil
	}
	if err := cfg.SaveTo(fs.Arg(0)); err != nil {
		return err
	}
	fmt.Fprintf(w, "Wrote %s\n", fs.Arg(0))
	return nil
}
