package exporter

import (
	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/vrm-customizer/internal/scene"
	"github.com/Faultbox/vrm-customizer/pkg/vrm"
)

// Metallic and roughness written for materials without a PBR model.
const nonPBRFactor = 0.5

// serializeMaterial exports a material and returns its index with the image
// encodes it queued. Materials are deduplicated by name: distinct materials
// sharing a name collapse into the first one exported.
func (w *writer) serializeMaterial(mat scene.Material) (uint32, []*encodeTask) {
	base := mat.Common()
	if idx, ok := w.materials[base.Name]; ok {
		return idx, nil
	}

	def := &gltf.Material{
		Name:                 base.Name,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{},
	}
	var tasks []*encodeTask
	texture := func(t *scene.Texture) *uint32 {
		if t == nil {
			return nil
		}
		idx, queued := w.serializeTexture(t)
		tasks = append(tasks, queued...)
		return idx
	}

	var prop *vrm.MaterialProperty
	switch m := mat.(type) {
	case *scene.MToonMaterial:
		prop = w.mtoonProperty(m, texture)
		def.PBRMetallicRoughness.BaseColorFactor = &[4]float32{m.Color.R, m.Color.G, m.Color.B, 1}
		def.PBRMetallicRoughness.MetallicFactor = gltf.Float(nonPBRFactor)
		def.PBRMetallicRoughness.RoughnessFactor = gltf.Float(nonPBRFactor)
	case *scene.StandardMaterial:
		prop = vrm.NewMaterialProperty(base.Name)
		prop.Shader = vrm.ShaderNotSupported
		if c := base.Color; c != scene.White || base.Opacity != 1 {
			def.PBRMetallicRoughness.BaseColorFactor = &[4]float32{c.R, c.G, c.B, base.Opacity}
		}
		if m.Unlit {
			def.PBRMetallicRoughness.MetallicFactor = gltf.Float(nonPBRFactor)
			def.PBRMetallicRoughness.RoughnessFactor = gltf.Float(nonPBRFactor)
			def.Extensions = map[string]interface{}{extUnlit: map[string]interface{}{}}
		} else {
			def.PBRMetallicRoughness.MetallicFactor = gltf.Float(m.Metalness)
			def.PBRMetallicRoughness.RoughnessFactor = gltf.Float(m.Roughness)
		}
		if m.AOMap != nil {
			if idx := texture(m.AOMap); idx != nil {
				occ := &gltf.OcclusionTexture{Index: idx, TexCoord: 1}
				if m.AOMapIntensity != 1 {
					occ.Strength = gltf.Float(m.AOMapIntensity)
				}
				occ.Extensions = textureTransform(m.AOMap)
				def.OcclusionTexture = occ
			}
		}
	default:
		prop = vrm.NewMaterialProperty(base.Name)
		prop.Shader = vrm.ShaderNotSupported
		def.PBRMetallicRoughness.MetallicFactor = gltf.Float(nonPBRFactor)
		def.PBRMetallicRoughness.RoughnessFactor = gltf.Float(nonPBRFactor)
	}

	if idx := texture(base.Map); idx != nil {
		def.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{
			Index:      *idx,
			Extensions: textureTransform(base.Map),
		}
	}

	// Emissive components are limited to [0, 1].
	emissive := base.Emissive.Scale(base.EmissiveIntensity)
	if peak := emissive.Max(); peak > 0 {
		if peak > 1 {
			w.log.Warn("emissive exceeds 1, limiting", zap.String("material", base.Name), zap.Float32("max", peak))
			emissive = emissive.Scale(1 / peak)
		}
		def.EmissiveFactor = [3]float32{emissive.R, emissive.G, emissive.B}
	}
	if idx := texture(base.EmissiveMap); idx != nil {
		def.EmissiveTexture = &gltf.TextureInfo{
			Index:      *idx,
			Extensions: textureTransform(base.EmissiveMap),
		}
	}

	if idx := texture(base.NormalMap); idx != nil {
		nt := &gltf.NormalTexture{Index: idx}
		if sm, ok := mat.(*scene.StandardMaterial); ok && sm.NormalScale != 1 && sm.NormalScale != 0 {
			nt.Scale = gltf.Float(sm.NormalScale)
		}
		nt.Extensions = textureTransform(base.NormalMap)
		def.NormalTexture = nt
	}

	switch {
	case base.Transparent:
		def.AlphaMode = gltf.AlphaBlend
	case base.AlphaTest > 0:
		def.AlphaMode = gltf.AlphaMask
		def.AlphaCutoff = gltf.Float(base.AlphaTest)
	default:
		def.AlphaMode = gltf.AlphaOpaque
	}
	def.DoubleSided = base.Side == scene.DoubleSide

	w.doc.Materials = append(w.doc.Materials, def)
	idx := uint32(len(w.doc.Materials) - 1)
	w.materials[base.Name] = idx
	w.materialProps = append(w.materialProps, prop)
	return idx, tasks
}

// mtoonProperty builds the toon shading record: the loaded record's scalar
// properties plus the material's current textures and tint.
func (w *writer) mtoonProperty(m *scene.MToonMaterial, texture func(*scene.Texture) *uint32) *vrm.MaterialProperty {
	prop := m.Properties.Clone(m.Name)

	slots := []struct {
		name string
		tex  *scene.Texture
	}{
		{vrm.TexBumpMap, m.NormalMap},
		{vrm.TexEmissionMap, m.EmissiveMap},
		{vrm.TexMainTex, m.Map},
		{vrm.TexShadeTexture, m.Map},
		{vrm.TexSphereAdd, m.MatcapTexture},
	}
	for _, s := range slots {
		if idx := texture(s.tex); idx != nil {
			prop.TextureProperties[s.name] = int(*idx)
		}
	}

	tint := []float32{m.Color.R, m.Color.G, m.Color.B, 1}
	prop.VectorProperties[vrm.VecShadeColor] = tint
	prop.VectorProperties[vrm.VecEmissionColor] = append([]float32(nil), tint...)
	return prop
}

// textureTransform returns the KHR_texture_transform extension for t, or nil
// when its UV transform is the identity.
func textureTransform(t *scene.Texture) map[string]interface{} {
	if !t.HasTransform() {
		return nil
	}
	scale := t.Repeat.Array()
	if t.Repeat.IsZero() {
		scale = [2]float32{1, 1}
	}
	return map[string]interface{}{
		extTextureTransform: map[string]interface{}{
			"offset":   t.Offset.Array(),
			"rotation": t.Rotation,
			"scale":    scale,
		},
	}
}
