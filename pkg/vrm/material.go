package vrm

// Shader names recorded in material properties.
const (
	ShaderMToon         = "VRM/MToon"
	ShaderUnlitTexture  = "VRM/UnlitTexture"
	ShaderNotSupported  = "VRM_USE_GLTFSHADER"
	DefaultRenderQueue  = 2000
	TransparentQueueMin = 3000
)

// MToon texture slots written by the exporter.
const (
	TexBumpMap      = "_BumpMap"
	TexEmissionMap  = "_EmissionMap"
	TexMainTex      = "_MainTex"
	TexShadeTexture = "_ShadeTexture"
	TexSphereAdd    = "_SphereAdd"
)

// MToon colour vectors written by the exporter.
const (
	VecColor         = "_Color"
	VecShadeColor    = "_ShadeColor"
	VecEmissionColor = "_EmissionColor"
)

// MaterialProperty is the per-material toon shading record.
type MaterialProperty struct {
	Name              string               `json:"name"`
	Shader            string               `json:"shader"`
	RenderQueue       int                  `json:"renderQueue"`
	FloatProperties   map[string]float32   `json:"floatProperties"`
	VectorProperties  map[string][]float32 `json:"vectorProperties"`
	TextureProperties map[string]int       `json:"textureProperties"`
	KeywordMap        map[string]bool      `json:"keywordMap"`
	TagMap            map[string]string    `json:"tagMap"`
}

// NewMaterialProperty returns an empty MToon record.
func NewMaterialProperty(name string) *MaterialProperty {
	return &MaterialProperty{
		Name:              name,
		Shader:            ShaderMToon,
		RenderQueue:       DefaultRenderQueue,
		FloatProperties:   map[string]float32{},
		VectorProperties:  map[string][]float32{},
		TextureProperties: map[string]int{},
		KeywordMap:        map[string]bool{},
		TagMap:            map[string]string{},
	}
}

// Clone returns a deep copy with the given name. Texture slots are not copied:
// texture indices belong to the document the record was loaded from.
func (p *MaterialProperty) Clone(name string) *MaterialProperty {
	out := NewMaterialProperty(name)
	if p == nil {
		return out
	}
	if p.Shader != "" {
		out.Shader = p.Shader
	}
	out.RenderQueue = p.RenderQueue
	for k, v := range p.FloatProperties {
		out.FloatProperties[k] = v
	}
	for k, v := range p.VectorProperties {
		out.VectorProperties[k] = append([]float32(nil), v...)
	}
	for k, v := range p.KeywordMap {
		out.KeywordMap[k] = v
	}
	for k, v := range p.TagMap {
		out.TagMap[k] = v
	}
	return out
}
