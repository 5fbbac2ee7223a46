package importer

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/vrm-customizer/internal/scene"
	"github.com/Faultbox/vrm-customizer/pkg/math"
	"github.com/Faultbox/vrm-customizer/pkg/vrm"
)

// extension decodes the VRM record. A plain glTF file yields nil.
func (l *loader) extension() (*vrm.VRM, error) {
	raw, ok := l.doc.Extensions[vrm.ExtensionName]
	if !ok {
		return nil, nil
	}
	// Unregistered extensions decode as raw JSON; re-encoding handles both forms.
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("reading VRM extension: %w", err)
	}
	rec := new(vrm.VRM)
	if err := json.Unmarshal(data, rec); err != nil {
		return nil, fmt.Errorf("decoding VRM extension: %w", err)
	}
	return rec, nil
}

// components builds the humanoid, expression, look-at and first-person
// components. Files without a VRM record get empty components.
func (l *loader) components(a *scene.Avatar) {
	a.Humanoid = scene.NewHumanoid()
	a.Expressions = &scene.ExpressionManager{}
	a.LookAt = &scene.LookAt{Type: vrm.LookAtBone}

	rec := l.rec
	if rec == nil {
		l.log.Warn("file has no VRM extension, avatar components are empty")
		return
	}

	a.Meta = make(map[string]interface{}, len(rec.Meta))
	for k, v := range rec.Meta {
		a.Meta[k] = v
	}

	if rec.Humanoid != nil {
		for _, hb := range rec.Humanoid.HumanBones {
			if hb.Node < 0 || hb.Node >= len(l.nodes) {
				l.log.Warn("humanoid bone references a missing node",
					zap.String("bone", hb.Bone), zap.Int("node", hb.Node))
				continue
			}
			a.Humanoid.SetBone(hb.Bone, l.nodes[hb.Node])
		}
	}

	if rec.BlendShapeMaster != nil {
		for _, g := range rec.BlendShapeMaster.BlendShapeGroups {
			a.Expressions.Add(l.expression(g))
		}
	}

	if fp := rec.FirstPerson; fp != nil {
		la := a.LookAt
		if fp.LookAtTypeName != "" {
			la.Type = fp.LookAtTypeName
		}
		o := fp.FirstPersonBoneOffset
		la.OffsetFromHeadBone = math.Vec3{X: o.X, Y: o.Y, Z: o.Z}
		la.HorizontalInner = rangeMap(fp.LookAtHorizontalInner)
		la.HorizontalOuter = rangeMap(fp.LookAtHorizontalOuter)
		la.VerticalDown = rangeMap(fp.LookAtVerticalDown)
		la.VerticalUp = rangeMap(fp.LookAtVerticalUp)

		if len(fp.MeshAnnotations) > 0 {
			a.FirstPerson = &scene.FirstPerson{}
			for _, ann := range fp.MeshAnnotations {
				for _, n := range l.meshNodes(ann.Mesh) {
					a.FirstPerson.Annotations = append(a.FirstPerson.Annotations,
						scene.MeshAnnotation{Node: n, Type: ann.FirstPersonFlag})
				}
			}
		}
	}
}

func (l *loader) expression(g *vrm.BlendShapeGroup) *scene.Expression {
	e := &scene.Expression{
		Name:           vrm.ExpressionPrefix + g.Name,
		ExpressionName: vrm.ExpressionName(g.PresetName),
		IsBinary:       g.IsBinary,
	}
	for _, b := range g.Binds {
		nodes := l.meshNodes(b.Mesh)
		if len(nodes) == 0 {
			l.log.Warn("blend shape bind references an unused mesh",
				zap.String("group", g.Name), zap.Int("mesh", b.Mesh))
			continue
		}
		e.Binds = append(e.Binds, &scene.ExpressionBind{
			Primitives: nodes,
			Index:      b.Index,
			Weight:     b.Weight / 100,
		})
	}
	return e
}

// meshNodes returns the nodes drawing the glTF mesh at idx.
func (l *loader) meshNodes(idx int) []*scene.Node {
	if idx < 0 {
		return nil
	}
	return l.meshUse[uint32(idx)]
}

func rangeMap(d *vrm.DegreeMap) *scene.RangeMap {
	if d == nil {
		return nil
	}
	return &scene.RangeMap{InputMaxValue: d.XRange, OutputScale: d.YRange}
}
