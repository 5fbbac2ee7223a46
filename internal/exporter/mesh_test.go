package exporter

import (
	"testing"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/vrm-customizer/internal/scene"
)

func TestAttributeName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"position", "POSITION"},
		{"normal", "NORMAL"},
		{"tangent", "TANGENT"},
		{"uv", "TEXCOORD_0"},
		{"uv2", "TEXCOORD_1"},
		{"color", "COLOR_0"},
		{"skinIndex", "JOINTS_0"},
		{"skinWeight", "WEIGHTS_0"},
		{"texcoord_3", "TEXCOORD_3"},
		{"batchId", "_BATCHID"},
		{"uv3", "_UV3"},
	}

	for _, tt := range tests {
		if got := attributeName(tt.in); got != tt.want {
			t.Errorf("attributeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSerializeMesh_SingleMaterial(t *testing.T) {
	w := testWriter(t)
	g := quadGeometry()
	g.Index = scene.NewAttribute([]uint16{0, 1, 2, 0, 2, 3}, 1)
	m := scene.NewMesh(g, scene.NewStandardMaterial("Skin"))

	idx, _, err := w.serializeMesh(m, "Body")
	if err != nil || idx == nil {
		t.Fatalf("serializeMesh = (%v, %v)", idx, err)
	}

	def := w.doc.Meshes[*idx]
	if def.Name != "Body" || len(def.Primitives) != 1 {
		t.Fatalf("mesh %q has %d primitives", def.Name, len(def.Primitives))
	}
	p := def.Primitives[0]
	if _, ok := p.Attributes["POSITION"]; !ok {
		t.Error("missing POSITION")
	}
	if p.Indices == nil || w.doc.Accessors[*p.Indices].Count != 6 {
		t.Error("expected a 6-element index accessor")
	}
	if p.Material == nil || w.doc.Materials[*p.Material].Name != "Skin" {
		t.Error("expected material Skin")
	}
}

func TestSerializeMesh_OutlineGroupDropped(t *testing.T) {
	w := testWriter(t)
	m := scene.NewMesh(indexedQuad(),
		scene.NewStandardMaterial("Base"),
		scene.NewStandardMaterial("Base_Outline"))

	idx, _, err := w.serializeMesh(m, "Body")
	if err != nil || idx == nil {
		t.Fatalf("serializeMesh = (%v, %v)", idx, err)
	}

	prims := w.doc.Meshes[*idx].Primitives
	if len(prims) != 1 {
		t.Fatalf("got %d primitives, want 1", len(prims))
	}
	if name := w.doc.Materials[*prims[0].Material].Name; name != "Base" {
		t.Errorf("primitive material = %q, want Base", name)
	}
	if len(w.doc.Materials) != 1 {
		t.Errorf("outline material was exported: %d materials", len(w.doc.Materials))
	}
	if acc := w.doc.Accessors[*prims[0].Indices]; acc.Count != 3 || acc.Max[0] != 2 {
		t.Errorf("index accessor count %d max %v, want first group", acc.Count, acc.Max[0])
	}
}

func TestSerializeMesh_Skipped(t *testing.T) {
	outlineOnly := indexedQuad()

	noGroups := quadGeometry()
	noGroups.Index = scene.NewAttribute([]uint16{0, 1, 2}, 1)

	noAttrs := scene.NewGeometry()
	noAttrs.Index = scene.NewAttribute([]uint16{0, 1, 2}, 1)

	tests := []struct {
		name string
		mesh *scene.Mesh
	}{
		{"outline only", scene.NewMesh(outlineOnly,
			scene.NewStandardMaterial("A_Outline"), scene.NewStandardMaterial("B_Outline"))},
		{"multi-material without groups", scene.NewMesh(noGroups,
			scene.NewStandardMaterial("A"), scene.NewStandardMaterial("B"))},
		{"one slot array without groups", &scene.Mesh{Geometry: noGroups,
			Materials: []scene.Material{scene.NewStandardMaterial("A")}, MaterialArray: true}},
		{"no attributes", scene.NewMesh(noAttrs, scene.NewStandardMaterial("A"))},
		{"no geometry", &scene.Mesh{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testWriter(t)
			idx, tasks, err := w.serializeMesh(tt.mesh, "m")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if idx != nil || len(tasks) != 0 {
				t.Errorf("expected no mesh, got %v with %d tasks", idx, len(tasks))
			}
			if len(w.doc.Meshes) != 0 || len(w.doc.Materials) != 0 {
				t.Error("skipped mesh left entries in the document")
			}
		})
	}
}

func TestSerializeMesh_OneSlotArray(t *testing.T) {
	w := testWriter(t)
	g := quadGeometry()
	g.Index = scene.NewAttribute([]uint16{0, 1, 2, 0, 2, 3}, 1)
	g.AddGroup(0, 3, 0)
	g.AddGroup(3, 3, 0)
	m := scene.NewMesh(g, scene.NewStandardMaterial("Skin"))
	m.MaterialArray = true

	idx, _, err := w.serializeMesh(m, "Body")
	if err != nil || idx == nil {
		t.Fatalf("serializeMesh = (%v, %v)", idx, err)
	}

	prims := w.doc.Meshes[*idx].Primitives
	if len(prims) != 2 {
		t.Fatalf("got %d primitives, want one per group", len(prims))
	}
	for i, p := range prims {
		if acc := w.doc.Accessors[*p.Indices]; acc.Count != 3 {
			t.Errorf("primitive %d index count = %d, want 3", i, acc.Count)
		}
		if *p.Material != *prims[0].Material {
			t.Errorf("primitive %d uses a different material", i)
		}
	}
	if len(w.doc.Materials) != 1 {
		t.Errorf("got %d materials, want 1", len(w.doc.Materials))
	}
}

func TestSerializeMesh_Dedup(t *testing.T) {
	w := testWriter(t)
	g := quadGeometry()
	mat := scene.NewStandardMaterial("Skin")

	a, _, _ := w.serializeMesh(scene.NewMesh(g, mat), "A")
	b, _, _ := w.serializeMesh(scene.NewMesh(g, mat), "B")
	if a == nil || b == nil || *a != *b {
		t.Fatalf("same geometry and material should share a mesh: %v %v", a, b)
	}

	c, _, _ := w.serializeMesh(scene.NewMesh(g, scene.NewStandardMaterial("Other")), "C")
	if c == nil || *c == *a {
		t.Fatal("different material should produce a new mesh")
	}
	if len(w.doc.Meshes) != 2 {
		t.Errorf("got %d meshes, want 2", len(w.doc.Meshes))
	}
	// The position attribute is shared by both meshes.
	if len(w.doc.Accessors) != 1 {
		t.Errorf("got %d accessors, want 1", len(w.doc.Accessors))
	}
}

func TestSerializeMesh_IndexCache(t *testing.T) {
	w := testWriter(t)
	g := indexedQuad()
	g.Groups = append(g.Groups, scene.Group{Start: 0, Count: 3, MaterialIndex: 1})

	idx, _, err := w.serializeMesh(scene.NewMesh(g,
		scene.NewStandardMaterial("A"), scene.NewStandardMaterial("B")), "m")
	if err != nil || idx == nil {
		t.Fatalf("serializeMesh = (%v, %v)", idx, err)
	}
	prims := w.doc.Meshes[*idx].Primitives
	if len(prims) != 3 {
		t.Fatalf("got %d primitives, want 3", len(prims))
	}
	if *prims[0].Indices != *prims[2].Indices {
		t.Error("identical index ranges should share an accessor")
	}
	if *prims[0].Indices == *prims[1].Indices {
		t.Error("different ranges must not share an accessor")
	}
}

func TestSerializeMesh_NonIndexedGroups(t *testing.T) {
	w := testWriter(t)
	g := quadGeometry()
	g.AddGroup(0, 2, 0)
	g.AddGroup(2, 2, 1)

	idx, _, err := w.serializeMesh(scene.NewMesh(g,
		scene.NewStandardMaterial("A"), scene.NewStandardMaterial("B")), "m")
	if err != nil || idx == nil {
		t.Fatalf("serializeMesh = (%v, %v)", idx, err)
	}
	p := w.doc.Meshes[*idx].Primitives[1]
	acc := w.doc.Accessors[*p.Indices]
	if acc.Count != 2 || acc.Min[0] != 2 || acc.Max[0] != 3 {
		t.Errorf("synthesized index range = %d [%v, %v], want 2 [2, 3]", acc.Count, acc.Min[0], acc.Max[0])
	}
}

func TestSerializeMesh_NormalsNotMutated(t *testing.T) {
	w := testWriter(t)
	g := quadGeometry()
	raw := []float32{
		0, 0, 2,
		0, 0, 1,
		0, 0, 0,
		3, 4, 0,
	}
	normals := scene.NewAttribute(append([]float32(nil), raw...), 3)
	g.SetAttribute(scene.AttrNormal, normals)

	idx, _, err := w.serializeMesh(scene.NewMesh(g, scene.NewStandardMaterial("A")), "m")
	if err != nil || idx == nil {
		t.Fatalf("serializeMesh = (%v, %v)", idx, err)
	}

	live := normals.Data.([]float32)
	for i := range raw {
		if live[i] != raw[i] {
			t.Fatalf("live normals modified at %d: %v", i, live)
		}
	}
	if g.Attributes[scene.AttrNormal] != normals {
		t.Fatal("live normal attribute replaced")
	}

	acc := w.doc.Accessors[w.doc.Meshes[*idx].Primitives[0].Attributes["NORMAL"]]
	got := decodeFloats(t, w, acc, 3)
	want := []float32{0, 0, 1, 0, 0, 1, 1, 0, 0, 0.6, 0.8, 0}
	for i := range want {
		if abs32(got[i]-want[i]) > 1e-6 {
			t.Errorf("exported normals = %v, want %v", got, want)
			break
		}
	}
}

func TestSerializeMesh_JointDowncast(t *testing.T) {
	tests := []struct {
		name string
		data interface{}
	}{
		{"uint32", []uint32{0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 70000}},
		{"float32", []float32{0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3, 0, 1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testWriter(t)
			g := quadGeometry()
			joints := scene.NewAttribute(tt.data, 4)
			g.SetAttribute(scene.AttrSkinIndex, joints)

			idx, _, err := w.serializeMesh(scene.NewMesh(g, scene.NewStandardMaterial("A")), "m")
			if err != nil || idx == nil {
				t.Fatalf("serializeMesh = (%v, %v)", idx, err)
			}
			acc := w.doc.Accessors[w.doc.Meshes[*idx].Primitives[0].Attributes["JOINTS_0"]]
			if acc.ComponentType != gltf.ComponentUshort {
				t.Errorf("joint component type = %v, want unsigned short", acc.ComponentType)
			}
			if acc.Max[3] > 65535 {
				t.Errorf("joint max %v not clamped", acc.Max[3])
			}
			if _, ok := joints.Data.([]uint16); ok {
				t.Error("live joint attribute was converted")
			}
		})
	}
}

func TestSerializeMesh_MorphTargets(t *testing.T) {
	w := testWriter(t)
	g := quadGeometry()
	target := scene.NewAttribute([]float32{
		0, 0, 1,
		1, 0, 1,
		1, 1, 1,
		0, 1, 1,
	}, 3)
	g.MorphAttributes[scene.AttrPosition] = []*scene.Attribute{target}
	g.MorphAttributes[scene.AttrTangent] = []*scene.Attribute{scene.NewAttribute(make([]float32, 16), 4)}

	m := scene.NewMesh(g, scene.NewStandardMaterial("A"))
	m.MorphTargetInfluences = []float32{0.25}
	m.TargetNames = []string{"Lift"}

	idx, _, err := w.serializeMesh(m, "m")
	if err != nil || idx == nil {
		t.Fatalf("serializeMesh = (%v, %v)", idx, err)
	}
	def := w.doc.Meshes[*idx]

	if len(def.Weights) != 1 || def.Weights[0] != 0.25 {
		t.Errorf("weights = %v", def.Weights)
	}
	extras, _ := def.Extras.(map[string]interface{})
	if names, _ := extras["targetNames"].([]string); len(names) != 1 || names[0] != "Lift" {
		t.Errorf("extras = %v", def.Extras)
	}

	p := def.Primitives[0]
	if len(p.Targets) != 1 {
		t.Fatalf("got %d targets, want 1", len(p.Targets))
	}
	if _, ok := p.Targets[0]["TANGENT"]; ok {
		t.Error("tangent morph must not be exported")
	}
	acc := w.doc.Accessors[p.Targets[0]["POSITION"]]
	got := decodeFloats(t, w, acc, 3)
	for i := 0; i < 4; i++ {
		if got[i*3] != 0 || got[i*3+1] != 0 || got[i*3+2] != 1 {
			t.Fatalf("morph deltas = %v, want (0, 0, 1) per vertex", got)
		}
	}

	// Absolute data stays untouched.
	if target.Data.([]float32)[3] != 1 {
		t.Error("live morph target modified")
	}
}

func TestSerializeMesh_RelativeMorphTargets(t *testing.T) {
	w := testWriter(t)
	g := quadGeometry()
	g.MorphTargetsRelative = true
	g.MorphAttributes[scene.AttrPosition] = []*scene.Attribute{
		scene.NewAttribute([]float32{0, 2, 0, 0, 2, 0, 0, 2, 0, 0, 2, 0}, 3),
	}
	m := scene.NewMesh(g, scene.NewStandardMaterial("A"))
	m.MorphTargetInfluences = []float32{0}

	idx, _, err := w.serializeMesh(m, "m")
	if err != nil || idx == nil {
		t.Fatalf("serializeMesh = (%v, %v)", idx, err)
	}
	acc := w.doc.Accessors[w.doc.Meshes[*idx].Primitives[0].Targets[0]["POSITION"]]
	if acc.Max[1] != 2 || acc.Min[1] != 2 {
		t.Errorf("relative targets must be exported as-is, got bounds %v..%v", acc.Min, acc.Max)
	}
	if w.doc.Meshes[*idx].Extras != nil {
		t.Error("no target names means no extras")
	}
}

func TestSerializeMesh_UnsupportedAttribute(t *testing.T) {
	w := testWriter(t)
	g := quadGeometry()
	g.SetAttribute(scene.AttrUV, scene.NewAttribute([]float64{0, 0, 1, 0, 1, 1, 0, 1}, 2))

	if _, _, err := w.serializeMesh(scene.NewMesh(g, scene.NewStandardMaterial("A")), "m"); err == nil {
		t.Fatal("expected unsupported component type error")
	}
}

func abs32(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}
