// Package vrm defines the VRM 0.x glTF extension schema written by the exporter
// and read back by the importer.
//
// Reference: https://github.com/vrm-c/vrm-specification/tree/master/specification/0.0
package vrm

// ExtensionName is the glTF extension key carrying the avatar record.
const ExtensionName = "VRM"

// SpecVersion is the VRM specification version the records conform to.
const SpecVersion = "0.0"

// VRM is the root of the "VRM" extension object.
type VRM struct {
	ExporterVersion    string              `json:"exporterVersion"`
	SpecVersion        string              `json:"specVersion"`
	Meta               Meta                `json:"meta"`
	Humanoid           *Humanoid           `json:"humanoid,omitempty"`
	FirstPerson        *FirstPerson        `json:"firstPerson,omitempty"`
	BlendShapeMaster   *BlendShapeMaster   `json:"blendShapeMaster,omitempty"`
	MaterialProperties []*MaterialProperty `json:"materialProperties"`
}

// New returns an empty record stamped with the exporter and format versions.
func New(exporterVersion string) *VRM {
	return &VRM{
		ExporterVersion:    exporterVersion,
		SpecVersion:        SpecVersion,
		Meta:               Meta{},
		MaterialProperties: []*MaterialProperty{},
	}
}

// Meta is the free-form avatar metadata block (title, author, permissions).
// Keys are kept verbatim so caller metadata merges without loss.
type Meta map[string]interface{}

// Merge copies every key of other into m, overwriting existing values.
func (m Meta) Merge(other map[string]interface{}) {
	for k, v := range other {
		m[k] = v
	}
}

// Title returns the "title" entry if it is a string.
func (m Meta) Title() string {
	s, _ := m["title"].(string)
	return s
}

// Author returns the "author" entry if it is a string.
func (m Meta) Author() string {
	s, _ := m["author"].(string)
	return s
}

// Vector3 is the {x, y, z} object form used by VRM 0.x records.
type Vector3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

// FirstPerson describes the first-person view origin and eye look-at model.
type FirstPerson struct {
	FirstPersonBone       int               `json:"firstPersonBone"`
	FirstPersonBoneOffset Vector3           `json:"firstPersonBoneOffset"`
	MeshAnnotations       []*MeshAnnotation `json:"meshAnnotations"`
	LookAtTypeName        string            `json:"lookAtTypeName"`
	LookAtHorizontalInner *DegreeMap        `json:"lookAtHorizontalInner,omitempty"`
	LookAtHorizontalOuter *DegreeMap        `json:"lookAtHorizontalOuter,omitempty"`
	LookAtVerticalDown    *DegreeMap        `json:"lookAtVerticalDown,omitempty"`
	LookAtVerticalUp      *DegreeMap        `json:"lookAtVerticalUp,omitempty"`
}

// MeshAnnotation sets the first-person visibility of one mesh.
type MeshAnnotation struct {
	Mesh            int    `json:"mesh"`
	FirstPersonFlag string `json:"firstPersonFlag"`
}

// DegreeMap maps an input angle range to an output range.
type DegreeMap struct {
	Curve  []float32 `json:"curve,omitempty"`
	XRange float32   `json:"xRange"`
	YRange float32   `json:"yRange"`
}

// Look-at type names.
const (
	LookAtBone       = "Bone"
	LookAtBlendShape = "BlendShape"
)

// BlendShapeMaster lists the avatar's expression groups.
type BlendShapeMaster struct {
	BlendShapeGroups []*BlendShapeGroup `json:"blendShapeGroups"`
}

// BlendShapeGroup is one named expression driving morph targets.
type BlendShapeGroup struct {
	Name           string                     `json:"name"`
	PresetName     string                     `json:"presetName"`
	IsBinary       bool                       `json:"isBinary"`
	Binds          []*BlendShapeBind          `json:"binds"`
	MaterialValues []*BlendShapeMaterialValue `json:"materialValues"`
}

// BlendShapeBind drives one morph target of one mesh. Weight is in [0, 100].
type BlendShapeBind struct {
	Mesh   int     `json:"mesh"`
	Index  int     `json:"index"`
	Weight float32 `json:"weight"`
}

// BlendShapeMaterialValue animates a material property with an expression.
type BlendShapeMaterialValue struct {
	MaterialName string    `json:"materialName"`
	PropertyName string    `json:"propertyName"`
	TargetValue  []float32 `json:"targetValue"`
}
