package scene

import (
	"image"

	"github.com/Faultbox/vrm-customizer/pkg/math"
)

// Filter is a texture sampling filter.
type Filter int

// Texture filters.
const (
	FilterDefault Filter = iota
	FilterNearest
	FilterLinear
	FilterNearestMipmapNearest
	FilterLinearMipmapNearest
	FilterNearestMipmapLinear
	FilterLinearMipmapLinear
)

// Wrap is a texture coordinate wrapping mode.
type Wrap int

// Wrapping modes.
const (
	WrapRepeat Wrap = iota
	WrapClampToEdge
	WrapMirroredRepeat
)

// Image is decoded pixel data that several textures may share.
type Image struct {
	Handle

	Name   string
	Source image.Image
}

// NewImage wraps decoded pixels.
func NewImage(name string, src image.Image) *Image {
	return &Image{Name: name, Source: src}
}

// Texture samples an image with a sampler state and UV transform.
type Texture struct {
	Handle

	Name     string
	Image    *Image
	MimeType string
	FlipY    bool

	MagFilter Filter
	MinFilter Filter
	WrapS     Wrap
	WrapT     Wrap

	Offset   math.Vec2
	Repeat   math.Vec2
	Rotation float32
}

// NewTexture returns a texture over img with an identity UV transform.
func NewTexture(img *Image, mimeType string) *Texture {
	return &Texture{
		Image:     img,
		MimeType:  mimeType,
		MagFilter: FilterLinear,
		MinFilter: FilterLinearMipmapLinear,
		Repeat:    math.Vec2{X: 1, Y: 1},
	}
}

// HasTransform reports whether the UV transform differs from identity.
func (t *Texture) HasTransform() bool {
	return !t.Offset.IsZero() || t.Rotation != 0 || !t.repeatIsIdentity()
}

func (t *Texture) repeatIsIdentity() bool {
	return (t.Repeat.X == 1 && t.Repeat.Y == 1) || t.Repeat.IsZero()
}
