package importer

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/vrm-customizer/internal/assets"
	"github.com/Faultbox/vrm-customizer/internal/scene"
	"github.com/Faultbox/vrm-customizer/pkg/math"
	"github.com/Faultbox/vrm-customizer/pkg/vrm"
)

const (
	extUnlit            = "KHR_materials_unlit"
	extTextureTransform = "KHR_texture_transform"
)

// uvTransform is a decoded KHR_texture_transform.
type uvTransform struct {
	Offset   [2]float32  `json:"offset"`
	Rotation float32     `json:"rotation"`
	Scale    *[2]float32 `json:"scale"`
}

type textureKey struct {
	index    uint32
	offset   [2]float32
	scale    [2]float32
	rotation float32
}

type imageEntry struct {
	image *scene.Image
	mime  string
}

// loadMaterials converts every material. Toon materials are recognised by
// their VRM material property record, which shares the material's index.
func (l *loader) loadMaterials() {
	l.materials = make([]scene.Material, len(l.doc.Materials))
	for i, def := range l.doc.Materials {
		var prop *vrm.MaterialProperty
		if l.rec != nil && i < len(l.rec.MaterialProperties) {
			prop = l.rec.MaterialProperties[i]
		}
		if prop != nil && prop.Shader == vrm.ShaderMToon {
			l.materials[i] = l.mtoonMaterial(def, prop)
		} else {
			l.materials[i] = l.standardMaterial(def)
		}
	}
}

// material returns the material a primitive draws with.
func (l *loader) material(idx *uint32) scene.Material {
	if idx != nil && int(*idx) < len(l.materials) {
		return l.materials[*idx]
	}
	if idx != nil {
		l.log.Warn("primitive references a missing material", zap.Uint32("material", *idx))
	}
	if l.fallback == nil {
		l.fallback = scene.NewStandardMaterial("Default")
	}
	return l.fallback
}

func (l *loader) standardMaterial(def *gltf.Material) *scene.StandardMaterial {
	m := scene.NewStandardMaterial(def.Name)
	l.commonProperties(&m.MaterialBase, def)

	if pbr := def.PBRMetallicRoughness; pbr != nil {
		m.Metalness = 1
		if pbr.MetallicFactor != nil {
			m.Metalness = *pbr.MetallicFactor
		}
		if pbr.RoughnessFactor != nil {
			m.Roughness = *pbr.RoughnessFactor
		}
	}
	if _, ok := def.Extensions[extUnlit]; ok {
		m.Unlit = true
	}
	if nt := def.NormalTexture; nt != nil && nt.Scale != nil {
		m.NormalScale = *nt.Scale
	}
	if occ := def.OcclusionTexture; occ != nil && occ.Index != nil {
		m.AOMap = l.texture(*occ.Index, occ.Extensions)
		if occ.Strength != nil {
			m.AOMapIntensity = *occ.Strength
		}
	}
	return m
}

func (l *loader) mtoonMaterial(def *gltf.Material, prop *vrm.MaterialProperty) *scene.MToonMaterial {
	m := scene.NewMToonMaterial(def.Name)
	m.Properties = prop
	l.commonProperties(&m.MaterialBase, def)

	if c := prop.VectorProperties[vrm.VecColor]; len(c) >= 3 {
		m.Color = scene.Color{R: c[0], G: c[1], B: c[2]}
		if len(c) >= 4 {
			m.Opacity = c[3]
		}
	}

	slot := func(name string) *scene.Texture {
		idx, ok := prop.TextureProperties[name]
		if !ok || idx < 0 {
			return nil
		}
		return l.texture(uint32(idx), nil)
	}
	if t := slot(vrm.TexMainTex); t != nil {
		m.Map = t
	}
	if t := slot(vrm.TexBumpMap); t != nil {
		m.NormalMap = t
	}
	if t := slot(vrm.TexEmissionMap); t != nil {
		m.EmissiveMap = t
	}
	m.MatcapTexture = slot(vrm.TexSphereAdd)
	return m
}

// commonProperties reads the settings shared by every material kind.
func (l *loader) commonProperties(m *scene.MaterialBase, def *gltf.Material) {
	if pbr := def.PBRMetallicRoughness; pbr != nil {
		if c := pbr.BaseColorFactor; c != nil {
			m.Color = scene.Color{R: c[0], G: c[1], B: c[2]}
			m.Opacity = c[3]
		}
		if ti := pbr.BaseColorTexture; ti != nil {
			m.Map = l.texture(ti.Index, ti.Extensions)
		}
	}

	e := def.EmissiveFactor
	m.Emissive = scene.Color{R: e[0], G: e[1], B: e[2]}
	if ti := def.EmissiveTexture; ti != nil {
		m.EmissiveMap = l.texture(ti.Index, ti.Extensions)
	}
	if nt := def.NormalTexture; nt != nil && nt.Index != nil {
		m.NormalMap = l.texture(*nt.Index, nt.Extensions)
	}

	switch def.AlphaMode {
	case gltf.AlphaBlend:
		m.Transparent = true
	case gltf.AlphaMask:
		m.AlphaTest = 0.5
		if def.AlphaCutoff != nil {
			m.AlphaTest = *def.AlphaCutoff
		}
	}
	if def.DoubleSided {
		m.Side = scene.DoubleSide
	}
}

// texture returns the texture at idx with the UV transform from ext applied.
// Textures whose image cannot be loaded are skipped with a warning.
func (l *loader) texture(idx uint32, ext gltf.Extensions) *scene.Texture {
	tr := textureTransform(ext)
	key := textureKey{index: idx, offset: tr.Offset, rotation: tr.Rotation, scale: [2]float32{1, 1}}
	if tr.Scale != nil {
		key.scale = *tr.Scale
	}
	if t, ok := l.textures[key]; ok {
		return t
	}

	if int(idx) >= len(l.doc.Textures) {
		l.log.Warn("material references a missing texture", zap.Uint32("texture", idx))
		l.textures[key] = nil
		return nil
	}
	def := l.doc.Textures[idx]
	if def.Source == nil {
		l.log.Warn("texture has no image source", zap.String("texture", def.Name))
		l.textures[key] = nil
		return nil
	}
	img, ok := l.image(*def.Source)
	if !ok {
		l.textures[key] = nil
		return nil
	}

	t := scene.NewTexture(img.image, img.mime)
	t.Name = def.Name
	if def.Sampler != nil && int(*def.Sampler) < len(l.doc.Samplers) {
		s := l.doc.Samplers[*def.Sampler]
		t.MagFilter = magFilter(s.MagFilter)
		t.MinFilter = minFilter(s.MinFilter)
		t.WrapS = wrapMode(s.WrapS)
		t.WrapT = wrapMode(s.WrapT)
	}
	t.Offset = math.Vec2{X: key.offset[0], Y: key.offset[1]}
	t.Repeat = math.Vec2{X: key.scale[0], Y: key.scale[1]}
	t.Rotation = key.rotation

	l.textures[key] = t
	return t
}

func textureTransform(ext gltf.Extensions) uvTransform {
	var tr uvTransform
	raw, ok := ext[extTextureTransform]
	if !ok {
		return tr
	}
	// Unregistered extensions decode as raw JSON.
	data, err := json.Marshal(raw)
	if err != nil {
		return tr
	}
	_ = json.Unmarshal(data, &tr)
	return tr
}

// image decodes an image once and shares it between textures.
func (l *loader) image(idx uint32) (imageEntry, bool) {
	if e, ok := l.images[idx]; ok {
		return e, e.image != nil
	}
	e, err := l.decodeImage(idx)
	if err != nil {
		l.log.Warn("skipping undecodable image", zap.Uint32("image", idx), zap.Error(err))
	}
	l.images[idx] = e
	return e, e.image != nil
}

func (l *loader) decodeImage(idx uint32) (imageEntry, error) {
	if int(idx) >= len(l.doc.Images) {
		return imageEntry{}, fmt.Errorf("%w: image %d", ErrBadReference, idx)
	}
	def := l.doc.Images[idx]
	name := def.Name
	if name == "" {
		name = fmt.Sprintf("image_%d", idx)
	}

	var data []byte
	switch {
	case def.BufferView != nil:
		if int(*def.BufferView) >= len(l.doc.BufferViews) {
			return imageEntry{}, fmt.Errorf("%w: buffer view %d", ErrBadReference, *def.BufferView)
		}
		var err error
		if data, err = modeler.ReadBufferView(l.doc, l.doc.BufferViews[*def.BufferView]); err != nil {
			return imageEntry{}, err
		}
	case strings.HasPrefix(def.URI, "data:"):
		var err error
		if data, err = decodeDataURI(def.URI); err != nil {
			return imageEntry{}, err
		}
	case def.URI != "":
		if l.opts.Images == nil {
			return imageEntry{}, fmt.Errorf("external image %q and no resolver", def.URI)
		}
		img, mime, err := l.opts.Images.Image(def.URI)
		if err != nil {
			return imageEntry{}, err
		}
		return imageEntry{image: img, mime: mime}, nil
	default:
		return imageEntry{}, fmt.Errorf("image %d has no data", idx)
	}

	src, mime, err := assets.Decode(data, def.MimeType)
	if err != nil {
		return imageEntry{}, err
	}
	return imageEntry{image: scene.NewImage(name, src), mime: mime}, nil
}

func decodeDataURI(uri string) ([]byte, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 || !strings.HasSuffix(uri[:comma], ";base64") {
		return nil, fmt.Errorf("unsupported data URI")
	}
	return base64.StdEncoding.DecodeString(uri[comma+1:])
}

func magFilter(f gltf.MagFilter) scene.Filter {
	switch f {
	case gltf.MagNearest:
		return scene.FilterNearest
	case gltf.MagLinear:
		return scene.FilterLinear
	}
	return scene.FilterLinear
}

func minFilter(f gltf.MinFilter) scene.Filter {
	switch f {
	case gltf.MinNearest:
		return scene.FilterNearest
	case gltf.MinLinear:
		return scene.FilterLinear
	case gltf.MinNearestMipMapNearest:
		return scene.FilterNearestMipmapNearest
	case gltf.MinLinearMipMapNearest:
		return scene.FilterLinearMipmapNearest
	case gltf.MinNearestMipMapLinear:
		return scene.FilterNearestMipmapLinear
	}
	return scene.FilterLinearMipmapLinear
}

func wrapMode(w gltf.WrappingMode) scene.Wrap {
	switch w {
	case gltf.WrapClampToEdge:
		return scene.WrapClampToEdge
	case gltf.WrapMirroredRepeat:
		return scene.WrapMirroredRepeat
	}
	return scene.WrapRepeat
}
