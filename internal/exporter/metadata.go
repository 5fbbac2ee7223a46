package exporter

import (
	"go.uber.org/zap"

	"github.com/Faultbox/vrm-customizer/internal/scene"
	"github.com/Faultbox/vrm-customizer/pkg/vrm"
)

// defaultDegreeCurve is the linear look-at curve written when none is known.
var defaultDegreeCurve = []float32{0, 0, 0, 1, 1, 1, 1, 0}

// buildVRM assembles the avatar extension from components resolved against
// the finished node table.
func (w *writer) buildVRM(a *scene.Avatar, t nodeTable, meta map[string]interface{}) *vrm.VRM {
	rec := vrm.New(w.opts.ExporterVersion)
	rec.Meta.Merge(w.opts.Meta)
	rec.Meta.Merge(a.Meta)
	rec.Meta.Merge(meta)

	rec.Humanoid = w.buildHumanoid(a.Humanoid, t)
	rec.BlendShapeMaster = w.buildBlendShapes(a.Expressions, t)
	rec.FirstPerson = w.buildFirstPerson(a, t)
	rec.MaterialProperties = w.materialProps
	return rec
}

func (w *writer) buildHumanoid(h *scene.Humanoid, t nodeTable) *vrm.Humanoid {
	out := vrm.NewHumanoid()
	for _, bone := range vrm.HumanBones {
		n := h.Bones[bone]
		if n == nil {
			continue
		}
		idx, ok := t.Lookup(n.Name)
		if !ok {
			w.log.Warn("humanoid bone node was not exported", zap.String("bone", bone), zap.String("node", n.Name))
			continue
		}
		out.HumanBones = append(out.HumanBones, &vrm.HumanBone{Bone: bone, Node: int(idx), UseDefaultValues: true})
	}

	for name := range h.Bones {
		if !vrm.IsHumanBone(name) {
			w.log.Debug("ignoring non-vocabulary bone", zap.String("bone", name))
		}
	}
	if missing := out.MissingRequired(); len(missing) > 0 {
		w.log.Warn("humanoid is missing required bones", zap.Strings("bones", missing))
	}
	return out
}

// buildBlendShapes converts expressions to blend shape groups. Binds point at
// the mesh of each bound node; weights are scaled to [0, 100].
func (w *writer) buildBlendShapes(m *scene.ExpressionManager, t nodeTable) *vrm.BlendShapeMaster {
	master := &vrm.BlendShapeMaster{BlendShapeGroups: []*vrm.BlendShapeGroup{}}

	for _, e := range m.Expressions {
		name := vrm.GroupName(e.Name)
		if name == "" {
			name = e.ExpressionName
		}
		expr := e.ExpressionName
		if expr == "" {
			expr = name
		}

		grp := &vrm.BlendShapeGroup{
			Name:           name,
			PresetName:     vrm.PresetName(expr),
			IsBinary:       e.IsBinary,
			Binds:          []*vrm.BlendShapeBind{},
			MaterialValues: []*vrm.BlendShapeMaterialValue{},
		}
		for _, b := range e.Binds {
			for _, p := range b.Primitives {
				if p == nil {
					continue
				}
				mesh, ok := w.nodeMesh(t, p.Name)
				if !ok {
					w.log.Warn("blend shape bind target has no exported mesh",
						zap.String("expression", name), zap.String("node", p.Name))
					continue
				}
				grp.Binds = append(grp.Binds, &vrm.BlendShapeBind{
					Mesh:   mesh,
					Index:  b.Index,
					Weight: b.Weight * 100,
				})
			}
		}
		master.BlendShapeGroups = append(master.BlendShapeGroups, grp)
	}
	return master
}

// buildFirstPerson writes the view origin and look-at model. It returns nil
// when the avatar has no exported head bone.
func (w *writer) buildFirstPerson(a *scene.Avatar, t nodeTable) *vrm.FirstPerson {
	head := a.Humanoid.Bones["head"]
	if head == nil {
		w.log.Warn("no head bone, omitting first person settings")
		return nil
	}
	headIdx, ok := t.Lookup(head.Name)
	if !ok {
		w.log.Warn("head bone was not exported, omitting first person settings", zap.String("node", head.Name))
		return nil
	}

	la := a.LookAt
	fp := &vrm.FirstPerson{
		FirstPersonBone: int(headIdx),
		FirstPersonBoneOffset: vrm.Vector3{
			X: la.OffsetFromHeadBone.X,
			Y: la.OffsetFromHeadBone.Y,
			Z: la.OffsetFromHeadBone.Z,
		},
		MeshAnnotations:       []*vrm.MeshAnnotation{},
		LookAtTypeName:        la.Type,
		LookAtHorizontalInner: degreeMap(la.HorizontalInner),
		LookAtHorizontalOuter: degreeMap(la.HorizontalOuter),
		LookAtVerticalDown:    degreeMap(la.VerticalDown),
		LookAtVerticalUp:      degreeMap(la.VerticalUp),
	}
	if fp.LookAtTypeName == "" {
		fp.LookAtTypeName = vrm.LookAtBone
	}

	if a.FirstPerson != nil {
		for _, ann := range a.FirstPerson.Annotations {
			if ann.Node == nil {
				continue
			}
			mesh, ok := w.nodeMesh(t, ann.Node.Name)
			if !ok {
				w.log.Debug("first person annotation has no exported mesh", zap.String("node", ann.Node.Name))
				continue
			}
			flag := ann.Type
			if flag == "" {
				flag = scene.FirstPersonAuto
			}
			fp.MeshAnnotations = append(fp.MeshAnnotations, &vrm.MeshAnnotation{Mesh: mesh, FirstPersonFlag: flag})
		}
	}
	return fp
}

// nodeMesh returns the mesh index of the exported node called name.
func (w *writer) nodeMesh(t nodeTable, name string) (int, bool) {
	idx, ok := t.Lookup(name)
	if !ok {
		return 0, false
	}
	mesh := w.doc.Nodes[idx].Mesh
	if mesh == nil {
		return 0, false
	}
	return int(*mesh), true
}

func degreeMap(r *scene.RangeMap) *vrm.DegreeMap {
	if r == nil {
		return nil
	}
	return &vrm.DegreeMap{
		Curve:  append([]float32(nil), defaultDegreeCurve...),
		XRange: r.InputMaxValue,
		YRange: r.OutputScale,
	}
}
