package exporter

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/vrm-customizer/internal/scene"
)

// normalTolerance is the allowed deviation of a normal's length from 1.
const normalTolerance = 0.0005

// outlineMarker in a material name flags a render-only outline pass.
const outlineMarker = "Outline"

var attributeNames = map[string]string{
	scene.AttrUV:         "TEXCOORD_0",
	scene.AttrUV2:        "TEXCOORD_1",
	scene.AttrColor:      "COLOR_0",
	scene.AttrSkinWeight: "WEIGHTS_0",
	scene.AttrSkinIndex:  "JOINTS_0",
}

var standardAttribute = regexp.MustCompile(`^(POSITION|NORMAL|TANGENT|TEXCOORD_\d+|COLOR_\d+|JOINTS_\d+|WEIGHTS_\d+)$`)

// attributeName maps an engine attribute name to its glTF semantic.
// Non-standard names are exported as custom attributes with a leading underscore.
func attributeName(name string) string {
	out, ok := attributeNames[name]
	if !ok {
		out = strings.ToUpper(name)
	}
	if !standardAttribute.MatchString(out) {
		out = "_" + out
	}
	return out
}

// primitiveGroup is one index range drawn with one material.
type primitiveGroup struct {
	start, count int
	material     scene.Material
}

// serializeMesh exports a mesh and returns its index together with the image
// encodes its materials queued. Identical geometry and material combinations are
// exported once. A nil index means the mesh has nothing exportable.
func (w *writer) serializeMesh(m *scene.Mesh, name string) (*uint32, []*encodeTask, error) {
	g := m.Geometry
	if g == nil {
		return nil, nil, nil
	}

	key := meshKey(m)
	if idx, ok := w.meshes[key]; ok {
		return idx, nil, nil
	}

	index := g.Index
	groups := w.meshGroups(m)
	if len(groups) == 0 {
		w.log.Debug("mesh has no exportable groups", zap.String("mesh", name))
		w.meshes[key] = nil
		return nil, nil, nil
	}
	if index == nil && m.MultiMaterial() {
		index = w.sequentialIndex(g)
	}

	attrs, err := w.serializeAttributes(g)
	if err != nil {
		return nil, nil, fmt.Errorf("mesh %q: %w", name, err)
	}
	if len(attrs) == 0 {
		w.log.Debug("mesh has no exportable attributes", zap.String("mesh", name))
		w.meshes[key] = nil
		return nil, nil, nil
	}

	def := &gltf.Mesh{Name: name}

	var targets []gltf.Attribute
	if len(m.MorphTargetInfluences) > 0 {
		targets, err = w.serializeMorphTargets(m, name)
		if err != nil {
			return nil, nil, fmt.Errorf("mesh %q: %w", name, err)
		}
		def.Weights = append([]float32(nil), m.MorphTargetInfluences...)
		if len(m.TargetNames) > 0 {
			names := make([]string, len(m.MorphTargetInfluences))
			copy(names, m.TargetNames)
			def.Extras = map[string]interface{}{"targetNames": names}
		}
	}

	var extras interface{}
	if g.Extras != nil {
		if extras, err = roundTripExtras(g.Extras); err != nil {
			w.log.Warn("dropping geometry extras", zap.String("mesh", name), zap.Error(err))
			extras = nil
		}
	}

	var tasks []*encodeTask
	for _, grp := range groups {
		p := &gltf.Primitive{
			Mode:       gltf.PrimitiveTriangles,
			Attributes: attrs,
			Extras:     extras,
		}
		if len(targets) > 0 {
			p.Targets = targets
		}

		if index != nil {
			k := attrKey{id: index.ID(), start: grp.start, count: grp.count}
			acc, ok := w.attributes[k]
			if !ok {
				if acc, err = w.serializeAccessor(index, usageIndex, grp.start, grp.count); err != nil {
					return nil, nil, fmt.Errorf("mesh %q indices: %w", name, err)
				}
				w.attributes[k] = acc
			}
			p.Indices = acc
		}

		if grp.material != nil {
			mi, t := w.serializeMaterial(grp.material)
			p.Material = gltf.Index(mi)
			tasks = append(tasks, t...)
		}
		def.Primitives = append(def.Primitives, p)
	}

	w.doc.Meshes = append(w.doc.Meshes, def)
	idx := gltf.Index(uint32(len(w.doc.Meshes) - 1))
	w.meshes[key] = idx
	return idx, tasks, nil
}

func meshKey(m *scene.Mesh) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d", m.Geometry.ID())
	for _, mat := range m.Materials {
		if mat == nil {
			b.WriteString(":-")
			continue
		}
		fmt.Fprintf(&b, ":%d", mat.Common().ID())
	}
	return b.String()
}

// meshGroups resolves the material groups to export. Outline passes, empty
// ranges and groups with an unknown material slot are left out.
func (w *writer) meshGroups(m *scene.Mesh) []primitiveGroup {
	g := m.Geometry

	total := 0
	if g.Index != nil {
		total = g.Index.Count()
	} else if pos := g.Attributes[scene.AttrPosition]; pos != nil {
		total = pos.Count()
	}

	var src []scene.Group
	switch {
	case m.MultiMaterial():
		if len(g.Groups) == 0 {
			w.log.Debug("multi-material mesh has no groups", zap.String("geometry", g.Name))
			return nil
		}
		src = g.Groups
	default:
		src = []scene.Group{{Start: 0, Count: total, MaterialIndex: 0}}
	}

	var out []primitiveGroup
	for _, grp := range src {
		var mat scene.Material
		if len(m.Materials) > 0 {
			if grp.MaterialIndex < 0 || grp.MaterialIndex >= len(m.Materials) {
				w.log.Warn("group references missing material slot",
					zap.String("geometry", g.Name), zap.Int("slot", grp.MaterialIndex))
				continue
			}
			mat = m.Materials[grp.MaterialIndex]
		}
		if mat != nil && strings.Contains(mat.Common().Name, outlineMarker) {
			continue
		}

		start, count := grp.Start, grp.Count
		if start < 0 || start >= total {
			continue
		}
		if count < 0 || count > total-start {
			count = total - start
		}
		if count == 0 {
			continue
		}
		out = append(out, primitiveGroup{start: start, count: count, material: mat})
	}
	return out
}

// sequentialIndex returns an identity index over a non-indexed geometry so its
// groups can be split into primitives.
func (w *writer) sequentialIndex(g *scene.Geometry) *scene.Attribute {
	if idx, ok := w.indices[g.ID()]; ok {
		return idx
	}
	n := 0
	if pos := g.Attributes[scene.AttrPosition]; pos != nil {
		n = pos.Count()
	}
	data := make([]uint32, n)
	for i := range data {
		data[i] = uint32(i)
	}
	idx := scene.NewAttribute(data, 1)
	w.indices[g.ID()] = idx
	return idx
}

// serializeAttributes exports every vertex attribute except morph data, in name order.
func (w *writer) serializeAttributes(g *scene.Geometry) (gltf.Attribute, error) {
	names := make([]string, 0, len(g.Attributes))
	for name := range g.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)

	attrs := gltf.Attribute{}
	for _, name := range names {
		if strings.HasPrefix(name, "morph") {
			continue
		}
		src := g.Attributes[name]
		if src == nil || src.Count() == 0 {
			continue
		}
		semantic := attributeName(name)

		key := attrKey{id: src.ID(), start: 0, count: src.Count()}
		if acc, ok := w.attributes[key]; ok {
			attrs[semantic] = *acc
			continue
		}

		out := src
		switch {
		case name == scene.AttrNormal && !isUnitNormals(src):
			w.log.Warn("creating normalized normal attribute from non-unit normals",
				zap.String("geometry", g.Name))
			out = w.normalizedNormals(src)
		case semantic == "JOINTS_0" && !isNarrowJoints(src):
			w.log.Warn("converting joint indices to unsigned short",
				zap.String("geometry", g.Name), zap.String("from", fmt.Sprintf("%T", src.Data)))
			out = w.narrowJoints(src)
		}

		acc, err := w.serializeAccessor(out, usageVertex, 0, out.Count())
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		if acc != nil {
			attrs[semantic] = *acc
			w.attributes[key] = acc
		}
	}
	return attrs, nil
}

// serializeMorphTargets exports one target per influence. Only position and
// normal morphs can be expressed; absolute targets are converted to deltas.
func (w *writer) serializeMorphTargets(m *scene.Mesh, name string) ([]gltf.Attribute, error) {
	g := m.Geometry

	names := make([]string, 0, len(g.MorphAttributes))
	for n := range g.MorphAttributes {
		names = append(names, n)
	}
	sort.Strings(names)

	warned := false
	targets := make([]gltf.Attribute, 0, len(m.MorphTargetInfluences))
	for i := range m.MorphTargetInfluences {
		target := gltf.Attribute{}
		for _, attrName := range names {
			if attrName != scene.AttrPosition && attrName != scene.AttrNormal {
				if !warned {
					w.log.Warn("only position and normal morph targets are exported",
						zap.String("mesh", name), zap.String("attribute", attrName))
					warned = true
				}
				continue
			}
			list := g.MorphAttributes[attrName]
			if i >= len(list) || list[i] == nil {
				continue
			}
			morph := list[i]
			semantic := strings.ToUpper(attrName)

			key := attrKey{id: morph.ID(), start: 0, count: morph.Count()}
			if acc, ok := w.attributes[key]; ok {
				target[semantic] = *acc
				continue
			}

			delta := morph
			if !g.MorphTargetsRelative {
				base := g.Attributes[attrName]
				if base == nil || base.Count() != morph.Count() {
					w.log.Warn("morph target has no matching base attribute, exporting as-is",
						zap.String("mesh", name), zap.String("attribute", attrName), zap.Int("target", i))
				} else {
					delta = morphDelta(morph, base)
				}
			}

			acc, err := w.serializeAccessor(delta, usageVertex, 0, delta.Count())
			if err != nil {
				return nil, fmt.Errorf("morph target %d %s: %w", i, attrName, err)
			}
			if acc != nil {
				target[semantic] = *acc
				w.attributes[key] = acc
			}
		}
		targets = append(targets, target)
	}
	return targets, nil
}

// morphDelta returns target minus base, element-wise, as a new float attribute.
func morphDelta(target, base *scene.Attribute) *scene.Attribute {
	n := target.ItemSize
	out := make([]float32, target.Count()*n)
	for i := 0; i < target.Count(); i++ {
		for c := 0; c < n; c++ {
			var b float64
			if c < base.ItemSize {
				b = base.Component(i, c)
			}
			out[i*n+c] = float32(target.Component(i, c) - b)
		}
	}
	return scene.NewAttribute(out, n)
}

func isUnitNormals(a *scene.Attribute) bool {
	if a.ItemSize != 3 {
		return true
	}
	for i := 0; i < a.Count(); i++ {
		x, y, z := a.X(i), a.Y(i), a.Z(i)
		if math.Abs(math.Sqrt(x*x+y*y+z*z)-1) > normalTolerance {
			return false
		}
	}
	return true
}

// normalizedNormals returns a unit-length copy of a. Zero vectors become +X.
// The source attribute is never modified.
func (w *writer) normalizedNormals(a *scene.Attribute) *scene.Attribute {
	if n, ok := w.normals[a.ID()]; ok {
		return n
	}
	out := make([]float32, a.Count()*3)
	for i := 0; i < a.Count(); i++ {
		x, y, z := a.X(i), a.Y(i), a.Z(i)
		l := math.Sqrt(x*x + y*y + z*z)
		if l == 0 {
			out[i*3] = 1
			continue
		}
		out[i*3] = float32(x / l)
		out[i*3+1] = float32(y / l)
		out[i*3+2] = float32(z / l)
	}
	n := scene.NewAttribute(out, 3)
	w.normals[a.ID()] = n
	return n
}

func isNarrowJoints(a *scene.Attribute) bool {
	switch a.Data.(type) {
	case []uint8, []uint16:
		return true
	}
	return false
}

// narrowJoints converts joint indices to unsigned 16-bit, clamping out-of-range values.
func (w *writer) narrowJoints(a *scene.Attribute) *scene.Attribute {
	if j, ok := w.joints[a.ID()]; ok {
		return j
	}
	out := make([]uint16, a.Len())
	for i := range out {
		v := a.At(i)
		switch {
		case v < 0:
			v = 0
		case v > math.MaxUint16:
			v = math.MaxUint16
		}
		out[i] = uint16(v)
	}
	j := scene.NewAttribute(out, a.ItemSize)
	w.joints[a.ID()] = j
	return j
}
