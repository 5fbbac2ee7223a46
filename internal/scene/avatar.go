package scene

import (
	"github.com/Faultbox/vrm-customizer/pkg/math"
	"github.com/Faultbox/vrm-customizer/pkg/vrm"
)

// Avatar is a loaded humanoid model: the scene graph plus the components
// that give it semantic meaning.
type Avatar struct {
	Scene       *Node
	Humanoid    *Humanoid
	Expressions *ExpressionManager
	LookAt      *LookAt
	FirstPerson *FirstPerson

	// Meta is the metadata block the avatar was loaded with.
	Meta map[string]interface{}
}

// Humanoid maps semantic bone names to scene nodes.
type Humanoid struct {
	Bones map[string]*Node
}

// NewHumanoid returns an empty bone mapping.
func NewHumanoid() *Humanoid {
	return &Humanoid{Bones: make(map[string]*Node)}
}

// SetBone binds a bone name to a node. VRM 1.0 names are normalized.
func (h *Humanoid) SetBone(name string, n *Node) {
	if h.Bones == nil {
		h.Bones = make(map[string]*Node)
	}
	h.Bones[vrm.BoneName(name)] = n
}

// Bone returns the node bound to name, or nil.
func (h *Humanoid) Bone(name string) *Node {
	return h.Bones[vrm.BoneName(name)]
}

// ExpressionManager holds the avatar's expressions in declaration order.
type ExpressionManager struct {
	Expressions []*Expression
}

// Get returns the expression whose name or expression name matches, or nil.
func (m *ExpressionManager) Get(name string) *Expression {
	for _, e := range m.Expressions {
		if e.Name == name || e.ExpressionName == name {
			return e
		}
	}
	return nil
}

// Add appends expressions.
func (m *ExpressionManager) Add(e ...*Expression) {
	m.Expressions = append(m.Expressions, e...)
}

// Expression drives morph targets on one or more meshes.
type Expression struct {
	// Name is the controller name, usually prefixed with vrm.ExpressionPrefix.
	Name string
	// ExpressionName is the VRM 1.0 expression (e.g. "happy", "blinkLeft").
	ExpressionName string
	IsBinary       bool
	Binds          []*ExpressionBind

	Weight float32
}

// ExpressionBind drives morph target Index of every mesh node in Primitives.
type ExpressionBind struct {
	Primitives []*Node
	Index      int
	Weight     float32
}

// SetWeight sets the expression weight and updates bound morph influences.
func (e *Expression) SetWeight(w float32) {
	if w < 0 {
		w = 0
	} else if w > 1 {
		w = 1
	}
	if e.IsBinary {
		if w > 0.5 {
			w = 1
		} else {
			w = 0
		}
	}
	e.Weight = w

	for _, b := range e.Binds {
		for _, p := range b.Primitives {
			if p.Mesh == nil || b.Index < 0 || b.Index >= len(p.Mesh.MorphTargetInfluences) {
				continue
			}
			p.Mesh.MorphTargetInfluences[b.Index] = w * b.Weight
		}
	}
}

// LookAt describes how the eyes follow a target.
type LookAt struct {
	// Type is vrm.LookAtBone or vrm.LookAtBlendShape.
	Type               string
	OffsetFromHeadBone math.Vec3

	HorizontalInner *RangeMap
	HorizontalOuter *RangeMap
	VerticalDown    *RangeMap
	VerticalUp      *RangeMap
}

// RangeMap maps input degrees in [0, InputMaxValue] to [0, OutputScale].
type RangeMap struct {
	InputMaxValue float32
	OutputScale   float32
}

// First-person annotation flags.
const (
	FirstPersonAuto            = "Auto"
	FirstPersonBoth            = "Both"
	FirstPersonThirdPersonOnly = "ThirdPersonOnly"
	FirstPersonFirstPersonOnly = "FirstPersonOnly"
)

// FirstPerson holds per-mesh first-person visibility.
type FirstPerson struct {
	Annotations []MeshAnnotation
}

// MeshAnnotation sets the first-person flag of the mesh on Node.
type MeshAnnotation struct {
	Node *Node
	Type string
}
