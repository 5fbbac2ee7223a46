package importer

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/vrm-customizer/internal/scene"
)

var attributeNames = map[string]string{
	"POSITION":   scene.AttrPosition,
	"NORMAL":     scene.AttrNormal,
	"TANGENT":    scene.AttrTangent,
	"TEXCOORD_0": scene.AttrUV,
	"TEXCOORD_1": scene.AttrUV2,
	"COLOR_0":    scene.AttrColor,
	"JOINTS_0":   scene.AttrSkinIndex,
	"WEIGHTS_0":  scene.AttrSkinWeight,
}

var itemSizes = map[gltf.AccessorType]int{
	gltf.AccessorScalar: 1,
	gltf.AccessorVec2:   2,
	gltf.AccessorVec3:   3,
	gltf.AccessorVec4:   4,
	gltf.AccessorMat2:   4,
	gltf.AccessorMat3:   9,
	gltf.AccessorMat4:   16,
}

// attributeName maps a glTF semantic to the engine attribute name.
// Custom attributes lose their leading underscore.
func attributeName(semantic string) string {
	if name, ok := attributeNames[semantic]; ok {
		return name
	}
	return strings.ToLower(strings.TrimPrefix(semantic, "_"))
}

// geometryPart is one geometry of a mesh with its material slots.
type geometryPart struct {
	geometry  *scene.Geometry
	materials []scene.Material
	targets   int
}

// geometry converts a glTF mesh. Consecutive indexed triangle primitives
// sharing attributes and morph targets are merged into one geometry.
func (l *loader) geometry(idx uint32) ([]*geometryPart, error) {
	if parts, ok := l.geoms[idx]; ok {
		return parts, nil
	}
	if int(idx) >= len(l.doc.Meshes) {
		return nil, fmt.Errorf("%w: mesh %d", ErrBadReference, idx)
	}
	mesh := l.doc.Meshes[idx]

	var runs [][]*gltf.Primitive
	lastKey := ""
	for _, p := range mesh.Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			l.log.Warn("skipping non-triangle primitive", zap.String("mesh", mesh.Name))
			continue
		}
		key := primitiveKey(p)
		if p.Indices != nil && key == lastKey && len(runs) > 0 {
			runs[len(runs)-1] = append(runs[len(runs)-1], p)
			continue
		}
		runs = append(runs, []*gltf.Primitive{p})
		lastKey = ""
		if p.Indices != nil {
			lastKey = key
		}
	}

	parts := make([]*geometryPart, 0, len(runs))
	for _, run := range runs {
		part, err := l.mergePrimitives(mesh.Name, run)
		if err != nil {
			return nil, fmt.Errorf("mesh %q: %w", mesh.Name, err)
		}
		parts = append(parts, part)
	}
	l.geoms[idx] = parts
	return parts, nil
}

// primitiveKey identifies the vertex data a primitive draws from.
func primitiveKey(p *gltf.Primitive) string {
	var b strings.Builder
	writeAttrs := func(a gltf.Attribute) {
		names := make([]string, 0, len(a))
		for k := range a {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(&b, "%s=%d,", k, a[k])
		}
	}
	writeAttrs(p.Attributes)
	for _, t := range p.Targets {
		b.WriteString("|")
		writeAttrs(t)
	}
	return b.String()
}

func (l *loader) mergePrimitives(name string, run []*gltf.Primitive) (*geometryPart, error) {
	first := run[0]
	g := scene.NewGeometry()
	g.Name = name
	g.Extras = first.Extras

	for semantic, acc := range first.Attributes {
		a, err := l.accessor(acc)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", semantic, err)
		}
		g.SetAttribute(attributeName(semantic), a)
	}

	if err := l.morphTargets(g, first.Targets); err != nil {
		return nil, err
	}

	part := &geometryPart{geometry: g, targets: len(first.Targets)}
	if first.Indices == nil {
		part.materials = []scene.Material{l.material(first.Material)}
		return part, nil
	}

	var indices []uint32
	for i, p := range run {
		a, err := l.accessor(*p.Indices)
		if err != nil {
			return nil, fmt.Errorf("indices: %w", err)
		}
		start := len(indices)
		for j := 0; j < a.Len(); j++ {
			indices = append(indices, uint32(a.At(j)))
		}
		if len(run) > 1 {
			g.AddGroup(start, len(indices)-start, i)
		}
		part.materials = append(part.materials, l.material(p.Material))
	}
	g.Index = indexAttribute(indices)
	return part, nil
}

// morphTargets loads the targets' attributes. Only attributes present in
// every target are kept so target indices stay aligned.
func (l *loader) morphTargets(g *scene.Geometry, targets []gltf.Attribute) error {
	if len(targets) == 0 {
		return nil
	}
	g.MorphTargetsRelative = true

	for semantic := range targets[0] {
		list := make([]*scene.Attribute, 0, len(targets))
		for i, t := range targets {
			acc, ok := t[semantic]
			if !ok {
				l.log.Warn("morph attribute missing from some targets, dropping",
					zap.String("mesh", g.Name), zap.String("attribute", semantic), zap.Int("target", i))
				list = nil
				break
			}
			a, err := l.accessor(acc)
			if err != nil {
				return fmt.Errorf("morph target %d %s: %w", i, semantic, err)
			}
			list = append(list, a)
		}
		if list != nil {
			g.MorphAttributes[attributeName(semantic)] = list
		}
	}
	return nil
}

// indexAttribute stores indices in the narrowest unsigned type that fits.
func indexAttribute(indices []uint32) *scene.Attribute {
	var peak uint32
	for _, v := range indices {
		if v > peak {
			peak = v
		}
	}
	if peak > 0xFFFF {
		return scene.NewAttribute(indices, 1)
	}
	narrow := make([]uint16, len(indices))
	for i, v := range indices {
		narrow[i] = uint16(v)
	}
	return scene.NewAttribute(narrow, 1)
}

// accessor reads an accessor into a flat attribute. Accessors are read once
// so primitives sharing data share attributes.
func (l *loader) accessor(idx uint32) (*scene.Attribute, error) {
	if a, ok := l.attrs[idx]; ok {
		return a, nil
	}
	if int(idx) >= len(l.doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d", ErrBadReference, idx)
	}
	acr := l.doc.Accessors[idx]

	size, ok := itemSizes[acr.Type]
	if !ok {
		return nil, fmt.Errorf("accessor %d: unsupported type %v", idx, acr.Type)
	}
	data, err := modeler.ReadAccessor(l.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("reading accessor %d: %w", idx, err)
	}
	flat, err := flatten(data, acr.Normalized)
	if err != nil {
		return nil, fmt.Errorf("accessor %d: %w", idx, err)
	}

	a := scene.NewAttribute(flat, size)
	// Signed data is converted to float and no longer needs normalizing.
	_, isFloat := flat.([]float32)
	a.Normalized = acr.Normalized && !isFloat
	l.attrs[idx] = a
	return a, nil
}

// flatten turns the typed slices returned by the modeler (scalars, vectors
// or matrices) into a flat component slice. Signed integer components are
// widened to float32, normalized when the accessor says so.
func flatten(data interface{}, normalized bool) (interface{}, error) {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Slice {
		return nil, fmt.Errorf("unexpected accessor data %T", data)
	}
	elem := v.Type().Elem()
	for elem.Kind() == reflect.Array {
		elem = elem.Elem()
	}

	switch elem.Kind() {
	case reflect.Float32:
		var out []float32
		walk(v, func(e reflect.Value) { out = append(out, float32(e.Float())) })
		return out, nil
	case reflect.Uint8:
		var out []uint8
		walk(v, func(e reflect.Value) { out = append(out, uint8(e.Uint())) })
		return out, nil
	case reflect.Uint16:
		var out []uint16
		walk(v, func(e reflect.Value) { out = append(out, uint16(e.Uint())) })
		return out, nil
	case reflect.Uint32:
		var out []uint32
		walk(v, func(e reflect.Value) { out = append(out, uint32(e.Uint())) })
		return out, nil
	case reflect.Int8, reflect.Int16:
		scale := float32(1)
		if normalized {
			scale = 127
			if elem.Kind() == reflect.Int16 {
				scale = 32767
			}
		}
		var out []float32
		walk(v, func(e reflect.Value) {
			f := float32(e.Int()) / scale
			if f < -1 && normalized {
				f = -1
			}
			out = append(out, f)
		})
		return out, nil
	}
	return nil, fmt.Errorf("unsupported component kind %s", elem.Kind())
}

func walk(v reflect.Value, fn func(reflect.Value)) {
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			walk(v.Index(i), fn)
		}
	default:
		fn(v)
	}
}
