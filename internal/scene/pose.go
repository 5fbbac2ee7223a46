package scene

import (
	"sort"

	"github.com/Faultbox/vrm-customizer/pkg/math"
)

// DefaultPoseLerp is the interpolation factor used when a bone pose sets none.
const DefaultPoseLerp = 0.3

// BonePose is an externally computed bone target. Rotation holds XYZ Euler
// angles in radians.
type BonePose struct {
	Rotation *math.Vec3 `yaml:"rotation"`
	Position *math.Vec3 `yaml:"position"`
	Dampener float32    `yaml:"dampener"`
	Lerp     float32    `yaml:"lerp"`
}

// Pose is one frame of motion-capture output keyed by humanoid bone name
// and expression name.
type Pose struct {
	Bones       map[string]BonePose `yaml:"bones"`
	Expressions map[string]float32  `yaml:"expressions"`
}

// ApplyPose moves humanoid bones towards the pose targets and sets expression
// weights. It returns the names that matched no bone or expression.
func (a *Avatar) ApplyPose(p *Pose) []string {
	var missing []string

	for name, bp := range p.Bones {
		var node *Node
		if a.Humanoid != nil {
			node = a.Humanoid.Bone(name)
		}
		if node == nil {
			missing = append(missing, name)
			continue
		}
		bp.apply(node)
	}

	for name, w := range p.Expressions {
		var e *Expression
		if a.Expressions != nil {
			e = a.Expressions.Get(name)
		}
		if e == nil {
			missing = append(missing, name)
			continue
		}
		e.SetWeight(w)
	}

	sort.Strings(missing)
	return missing
}

func (bp BonePose) apply(n *Node) {
	t := bp.Lerp
	if t <= 0 {
		t = DefaultPoseLerp
	}
	if t > 1 {
		t = 1
	}

	if bp.Rotation != nil {
		d := bp.Dampener
		if d == 0 {
			d = 1
		}
		target := math.QuatFromEuler(bp.Rotation.Scale(d))
		n.Rotation = n.Rotation.Slerp(target, t)
	}
	if bp.Position != nil {
		n.Translation = n.Translation.Lerp(*bp.Position, t)
	}
}
