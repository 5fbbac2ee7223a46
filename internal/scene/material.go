package scene

import (
	"github.com/Faultbox/vrm-customizer/pkg/vrm"
)

// Side selects which faces are rendered.
type Side int

// Face sides.
const (
	FrontSide Side = iota
	BackSide
	DoubleSide
)

// Color is a linear RGB colour.
type Color struct {
	R, G, B float32
}

// White is the default tint.
var White = Color{1, 1, 1}

// Scale returns c with every channel multiplied by s.
func (c Color) Scale(s float32) Color {
	return Color{c.R * s, c.G * s, c.B * s}
}

// Max returns the largest channel.
func (c Color) Max() float32 {
	m := c.R
	if c.G > m {
		m = c.G
	}
	if c.B > m {
		m = c.B
	}
	return m
}

// Material is implemented by every material kind.
type Material interface {
	Common() *MaterialBase
}

// MaterialBase holds properties shared by every material kind.
type MaterialBase struct {
	Handle

	Name        string
	Color       Color
	Opacity     float32
	Transparent bool
	AlphaTest   float32
	Side        Side

	Map         *Texture
	NormalMap   *Texture
	EmissiveMap *Texture

	Emissive          Color
	EmissiveIntensity float32
}

// Common returns the shared properties.
func (m *MaterialBase) Common() *MaterialBase {
	return m
}

func newBase(name string) MaterialBase {
	return MaterialBase{
		Name:              name,
		Color:             White,
		Opacity:           1,
		EmissiveIntensity: 1,
	}
}

// StandardMaterial is a metallic-roughness PBR material.
type StandardMaterial struct {
	MaterialBase

	Metalness   float32
	Roughness   float32
	NormalScale float32

	AOMap          *Texture
	AOMapIntensity float32

	// Unlit materials ignore scene lighting.
	Unlit bool
}

// NewStandardMaterial returns a white, fully rough, non-metallic material.
func NewStandardMaterial(name string) *StandardMaterial {
	return &StandardMaterial{
		MaterialBase:   newBase(name),
		Roughness:      1,
		NormalScale:    1,
		AOMapIntensity: 1,
	}
}

// MToonMaterial is a toon-shaded material.
type MToonMaterial struct {
	MaterialBase

	MatcapTexture *Texture

	// Properties is the shader record the material was loaded with.
	// Its texture slots are ignored; the material's own textures are exported.
	Properties *vrm.MaterialProperty
}

// NewMToonMaterial returns a white toon material.
func NewMToonMaterial(name string) *MToonMaterial {
	return &MToonMaterial{
		MaterialBase: newBase(name),
		Properties:   vrm.NewMaterialProperty(name),
	}
}
