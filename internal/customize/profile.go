// Package customize applies customization profiles to loaded avatars:
// material re-coloring and re-texturing, node visibility and metadata overrides.
package customize

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/vrm-customizer/internal/scene"
)

// ErrInvalidColor is returned for colors that are neither hex strings nor RGB lists.
var ErrInvalidColor = errors.New("invalid color")

// Profile is a set of edits applied to an avatar before export.
type Profile struct {
	// Materials maps a material name or glob pattern to its edit.
	Materials map[string]MaterialEdit `yaml:"materials"`
	Hide      []string                `yaml:"hide"`
	Show      []string                `yaml:"show"`
	// Meta overrides the avatar's metadata.
	Meta map[string]interface{} `yaml:"meta"`
}

// MaterialEdit changes one material region. Unset fields are left alone.
type MaterialEdit struct {
	Color    *Color   `yaml:"color"`
	Opacity  *float32 `yaml:"opacity"`
	Emissive *Color   `yaml:"emissive"`

	// Texture files are resolved against the asset search paths.
	Texture   string `yaml:"texture"`
	NormalMap string `yaml:"normal_map"`
}

// Color is a linear RGB color written as "#rrggbb" or [r, g, b].
type Color scene.Color

// UnmarshalYAML accepts a hex string or a list of three components in [0, 1].
func (c *Color) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		parsed, err := ParseHex(value.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", value.Line, err)
		}
		*c = parsed
		return nil
	case yaml.SequenceNode:
		var rgb []float32
		if err := value.Decode(&rgb); err != nil {
			return err
		}
		if len(rgb) != 3 {
			return fmt.Errorf("line %d: %w: want 3 components, got %d", value.Line, ErrInvalidColor, len(rgb))
		}
		*c = Color{R: rgb[0], G: rgb[1], B: rgb[2]}
		return nil
	}
	return fmt.Errorf("line %d: %w", value.Line, ErrInvalidColor)
}

// MarshalYAML writes the color as a component list.
func (c Color) MarshalYAML() (interface{}, error) {
	return []float32{c.R, c.G, c.B}, nil
}

// ParseHex parses "#rrggbb" (the leading # is optional).
func ParseHex(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("%w: %q", ErrInvalidColor, s)
	}
	return Color{
		R: float32(v>>16&0xFF) / 255,
		G: float32(v>>8&0xFF) / 255,
		B: float32(v&0xFF) / 255,
	}, nil
}

// LoadProfile reads a profile from a YAML file. Unknown keys are rejected.
func LoadProfile(path string) (*Profile, error) {
	p := &Profile{}
	if err := decodeFile(path, p); err != nil {
		return nil, fmt.Errorf("loading profile from %s: %w", path, err)
	}
	return p, nil
}

// LoadPose reads one frame of bone and expression targets from a YAML file.
func LoadPose(path string) (*scene.Pose, error) {
	p := &scene.Pose{}
	if err := decodeFile(path, p); err != nil {
		return nil, fmt.Errorf("loading pose from %s: %w", path, err)
	}
	return p, nil
}

// LoadMeta reads a metadata map from a YAML file.
func LoadMeta(path string) (map[string]interface{}, error) {
	m := make(map[string]interface{})
	if err := decodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("loading metadata from %s: %w", path, err)
	}
	return m, nil
}

func decodeFile(path string, out interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
