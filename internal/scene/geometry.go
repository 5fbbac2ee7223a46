package scene

import (
	"github.com/Faultbox/vrm-customizer/pkg/math"
)

// Engine attribute names.
const (
	AttrPosition   = "position"
	AttrNormal     = "normal"
	AttrUV         = "uv"
	AttrUV2        = "uv2"
	AttrColor      = "color"
	AttrSkinIndex  = "skinIndex"
	AttrSkinWeight = "skinWeight"
	AttrTangent    = "tangent"
)

// Group is an index range drawn with one material slot.
type Group struct {
	Start         int
	Count         int
	MaterialIndex int
}

// Geometry is shared vertex data. Several meshes may reference one geometry.
type Geometry struct {
	Handle

	Name       string
	Attributes map[string]*Attribute
	Index      *Attribute
	Groups     []Group

	// MorphAttributes holds one attribute per morph target, keyed by the base
	// attribute name. Targets are absolute unless MorphTargetsRelative is set.
	MorphAttributes      map[string][]*Attribute
	MorphTargetsRelative bool

	Extras interface{}
}

// NewGeometry returns an empty geometry.
func NewGeometry() *Geometry {
	return &Geometry{
		Attributes:      make(map[string]*Attribute),
		MorphAttributes: make(map[string][]*Attribute),
	}
}

// SetAttribute sets a named vertex attribute.
func (g *Geometry) SetAttribute(name string, a *Attribute) {
	if g.Attributes == nil {
		g.Attributes = make(map[string]*Attribute)
	}
	g.Attributes[name] = a
}

// AddGroup appends a material group.
func (g *Geometry) AddGroup(start, count, materialIndex int) {
	g.Groups = append(g.Groups, Group{Start: start, Count: count, MaterialIndex: materialIndex})
}

// Skeleton is the ordered bone list of a skinned mesh and the matching
// inverse bind matrices.
type Skeleton struct {
	Bones        []*Node
	BoneInverses []math.Mat4
}

// Mesh attaches geometry and materials to a node.
type Mesh struct {
	Geometry  *Geometry
	Materials []Material

	// MaterialArray marks Materials as a slot list addressed by geometry
	// groups even when it holds a single entry.
	MaterialArray bool

	MorphTargetInfluences []float32
	TargetNames           []string

	// Skinned marks a skinned mesh. Skeleton and BindMatrix are read only
	// when it is set.
	Skinned    bool
	Skeleton   *Skeleton
	BindMatrix math.Mat4
}

// NewMesh returns a mesh drawing geometry with the given material slots.
func NewMesh(geometry *Geometry, materials ...Material) *Mesh {
	return &Mesh{Geometry: geometry, Materials: materials}
}

// NewSkinnedMesh returns a skinned mesh bound with an identity bind matrix.
func NewSkinnedMesh(geometry *Geometry, skeleton *Skeleton, materials ...Material) *Mesh {
	return &Mesh{
		Geometry:   geometry,
		Materials:  materials,
		Skinned:    true,
		Skeleton:   skeleton,
		BindMatrix: math.Identity(),
	}
}

// Bind returns the bind matrix, treating an unset matrix as identity.
func (m *Mesh) Bind() math.Mat4 {
	if m.BindMatrix == (math.Mat4{}) {
		return math.Identity()
	}
	return m.BindMatrix
}

// MultiMaterial reports whether the mesh draws its geometry groups with
// material slots.
func (m *Mesh) MultiMaterial() bool {
	return m.MaterialArray || len(m.Materials) > 1
}
