package exporter

import (
	"testing"

	"github.com/Faultbox/vrm-customizer/internal/scene"
	"github.com/Faultbox/vrm-customizer/pkg/math"
)

func walk(t *testing.T, root *scene.Node) (*writer, nodeTable, []skinJob) {
	t.Helper()
	w := testWriter(t)
	wk := newWalker(w)
	if err := wk.scene(root); err != nil {
		t.Fatalf("walk failed: %v", err)
	}
	table, jobs, _ := wk.close()
	return w, table, jobs
}

func TestWalker_PreOrderIndices(t *testing.T) {
	root := scene.NewNode("Root")
	a := scene.NewNode("A")
	a1 := scene.NewNode("A1")
	a2 := scene.NewNode("A2")
	a11 := scene.NewNode("A11")
	b := scene.NewNode("B")
	a1.Add(a11)
	a.Add(a1, a2)
	root.Add(a, b)

	w, table, _ := walk(t, root)

	order := []string{"A", "A1", "A11", "A2", "B"}
	if len(w.doc.Nodes) != len(order) {
		t.Fatalf("got %d nodes, want %d", len(w.doc.Nodes), len(order))
	}
	for i, name := range order {
		if w.doc.Nodes[i].Name != name {
			t.Errorf("node %d = %q, want %q", i, w.doc.Nodes[i].Name, name)
		}
		if idx, ok := table.Lookup(name); !ok || int(idx) != i {
			t.Errorf("Lookup(%q) = %d, %v", name, idx, ok)
		}
	}

	// Parents precede their children.
	for i, n := range w.doc.Nodes {
		for _, c := range n.Children {
			if int(c) <= i {
				t.Errorf("child %d of node %d not after parent", c, i)
			}
		}
	}

	sc := w.doc.Scenes[*w.doc.Scene]
	if sc.Name != "Root" || len(sc.Nodes) != 2 || sc.Nodes[0] != 0 || sc.Nodes[1] != 4 {
		t.Errorf("scene = %q %v", sc.Name, sc.Nodes)
	}
}

func TestWalker_RigAndHiddenExcluded(t *testing.T) {
	root := scene.NewNode("Root")
	rig := scene.NewNode("VRMHumanoidRig")
	rigChild := scene.NewNode("Normalized_Hips")
	rigChild.Mesh = scene.NewMesh(quadGeometry(), scene.NewStandardMaterial("Rig"))
	rig.Add(rigChild)

	body := scene.NewNode("Body")
	hidden := scene.NewNode("Hidden")
	hidden.Hidden = true
	hiddenChild := scene.NewNode("UnderHidden")
	hidden.Add(hiddenChild)
	body.Add(hidden, rig)

	hiddenTop := scene.NewNode("HiddenTop")
	hiddenTop.Hidden = true
	root.Add(body, hiddenTop)

	w, table, _ := walk(t, root)

	if len(w.doc.Nodes) != 1 || w.doc.Nodes[0].Name != "Body" {
		t.Fatalf("nodes = %d, want only Body", len(w.doc.Nodes))
	}
	if len(w.doc.Nodes[0].Children) != 0 {
		t.Error("excluded children must not be referenced")
	}
	for _, name := range []string{"VRMHumanoidRig", "Normalized_Hips", "Hidden", "UnderHidden", "HiddenTop"} {
		if _, ok := table.Lookup(name); ok {
			t.Errorf("%s should not be exported", name)
		}
	}
	if len(w.doc.Meshes) != 0 {
		t.Error("mesh under the rig was exported")
	}
}

func TestWalker_Transform(t *testing.T) {
	root := scene.NewNode("Root")
	n := scene.NewNode("N")
	n.Translation = math.Vec3{X: 1, Y: 2, Z: 3}
	n.Rotation = math.Quat{X: 0, Y: 0.7071068, Z: 0, W: 0.7071068}
	n.Scale = math.Vec3{X: 2, Y: 2, Z: 2}
	root.Add(n)

	w, _, _ := walk(t, root)
	def := w.doc.Nodes[0]
	if def.Translation != [3]float32{1, 2, 3} || def.Rotation != n.Rotation.Array() || def.Scale != [3]float32{2, 2, 2} {
		t.Errorf("transform = %v %v %v", def.Translation, def.Rotation, def.Scale)
	}
}

func TestWalker_DuplicateNames(t *testing.T) {
	root := scene.NewNode("Root")
	root.Add(scene.NewNode("Same"), scene.NewNode("Same"))

	w, table, _ := walk(t, root)
	if len(w.doc.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(w.doc.Nodes))
	}
	if idx, _ := table.Lookup("Same"); idx != 0 {
		t.Errorf("Lookup = %d, want first node", idx)
	}
}

func TestWalker_Extras(t *testing.T) {
	root := scene.NewNode("Root")

	plain := scene.NewNode("Plain")
	plain.Extras = map[string]interface{}{"layer": 3}

	bad := scene.NewNode("Bad")
	bad.Extras = map[string]interface{}{"ch": make(chan int)}

	bone := scene.NewBone("Bone")
	bone.Extras = map[string]interface{}{"side": "left"}

	root.Add(plain, bad, bone)

	w, _, _ := walk(t, root)

	if m, _ := w.doc.Nodes[0].Extras.(map[string]interface{}); m["layer"] != float64(3) {
		t.Errorf("plain extras = %v", w.doc.Nodes[0].Extras)
	}
	if w.doc.Nodes[1].Extras != nil {
		t.Errorf("non-serializable extras should be dropped, got %v", w.doc.Nodes[1].Extras)
	}
	if w.doc.Nodes[1].Name != "Bad" {
		t.Error("node with bad extras must still be exported")
	}
	m, _ := w.doc.Nodes[2].Extras.(map[string]interface{})
	if m["isBone"] != true || m["side"] != "left" {
		t.Errorf("bone extras = %v", w.doc.Nodes[2].Extras)
	}
}

func TestWalker_SkinsQueued(t *testing.T) {
	a := testAvatar()
	w, table, jobs := walk(t, a.Scene)

	if len(jobs) != 1 || jobs[0].name != "Body" {
		t.Fatalf("jobs = %+v", jobs)
	}
	if w.doc.Nodes[jobs[0].node].Skin != nil {
		t.Error("skin must not be attached during the walk")
	}

	idx, err := w.serializeSkin(table, jobs[0])
	if err != nil || idx == nil {
		t.Fatalf("serializeSkin = (%v, %v)", idx, err)
	}
	skin := w.doc.Skins[*idx]
	if len(skin.Joints) != 2 || skin.Joints[0] != 1 || skin.Joints[1] != 2 {
		t.Errorf("joints = %v, want [1 2]", skin.Joints)
	}
	if *skin.Skeleton != 1 {
		t.Errorf("skeleton = %d, want 1", *skin.Skeleton)
	}
	if *w.doc.Nodes[0].Skin != *idx {
		t.Error("skin not attached to its node")
	}
	if len(w.doc.Nodes) != 3 {
		t.Errorf("skin export added nodes: %d", len(w.doc.Nodes))
	}
}
