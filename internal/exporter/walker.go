package exporter

import (
	"encoding/json"
	"strings"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/vrm-customizer/internal/scene"
)

// rigMarker in a node name flags renderer-internal rig scaffolding.
const rigMarker = "VRMHumanoidRig"

// nodeTable maps exported node names to indices. It is only produced by a
// finished walk, so holding one means every node index is final.
type nodeTable struct {
	byName map[string]uint32
}

// Lookup returns the exported index of the node called name.
func (t nodeTable) Lookup(name string) (uint32, bool) {
	idx, ok := t.byName[name]
	return idx, ok
}

// walker assigns node indices in pre-order and exports meshes on the way.
type walker struct {
	w       *writer
	names   map[string]uint32
	skins   []skinJob
	pending []*encodeTask
}

func newWalker(w *writer) *walker {
	return &walker{w: w, names: make(map[string]uint32)}
}

// scene exports the visible top-level children of root as the default scene.
func (wk *walker) scene(root *scene.Node) error {
	sc := &gltf.Scene{Name: root.Name}
	for _, child := range root.Children {
		if !child.Visible() {
			continue
		}
		idx, err := wk.node(child)
		if err != nil {
			return err
		}
		if idx != nil {
			sc.Nodes = append(sc.Nodes, *idx)
		}
	}

	wk.w.doc.Scenes = append(wk.w.doc.Scenes, sc)
	wk.w.doc.Scene = gltf.Index(uint32(len(wk.w.doc.Scenes) - 1))
	return nil
}

// node exports n and its visible descendants. Rig scaffolding is skipped with
// its whole subtree and yields a nil index.
func (wk *walker) node(n *scene.Node) (*uint32, error) {
	if strings.Contains(n.Name, rigMarker) {
		return nil, nil
	}
	w := wk.w

	def := &gltf.Node{
		Name:        n.Name,
		Translation: n.Translation.Array(),
		Rotation:    n.Rotation.Array(),
		Scale:       n.Scale.Array(),
	}

	// Reserve the index before visiting children so parents precede descendants.
	w.doc.Nodes = append(w.doc.Nodes, def)
	idx := uint32(len(w.doc.Nodes) - 1)

	if prev, dup := wk.names[n.Name]; dup {
		w.log.Warn("duplicate node name, references resolve to the first node",
			zap.String("name", n.Name), zap.Uint32("first", prev), zap.Uint32("duplicate", idx))
	} else {
		wk.names[n.Name] = idx
	}

	if extras, ok := w.nodeExtras(n); ok {
		def.Extras = extras
	}

	if n.Mesh != nil {
		mesh, tasks, err := w.serializeMesh(n.Mesh, n.Name)
		if err != nil {
			return nil, err
		}
		wk.pending = append(wk.pending, tasks...)
		if mesh != nil {
			def.Mesh = mesh
			if n.Mesh.Skinned {
				wk.skins = append(wk.skins, skinJob{node: idx, name: n.Name, mesh: n.Mesh})
			}
		}
	}

	for _, child := range n.Children {
		if !child.Visible() {
			continue
		}
		ci, err := wk.node(child)
		if err != nil {
			return nil, err
		}
		if ci != nil {
			def.Children = append(def.Children, *ci)
		}
	}
	return gltf.Index(idx), nil
}

// close ends the walk and hands over the node table, the queued skins and
// the image encodes queued by materials.
func (wk *walker) close() (nodeTable, []skinJob, []*encodeTask) {
	t := nodeTable{byName: wk.names}
	wk.names = nil
	return t, wk.skins, wk.pending
}

// nodeExtras returns the node's metadata as plain JSON values, tagged with
// isBone for joints. Metadata that does not survive a JSON round trip is dropped.
func (w *writer) nodeExtras(n *scene.Node) (interface{}, bool) {
	var extras interface{}
	if n.Extras != nil {
		v, err := roundTripExtras(n.Extras)
		if err != nil {
			w.log.Warn("dropping node extras", zap.String("node", n.Name), zap.Error(err))
		} else {
			extras = v
		}
	}

	if !n.IsBone {
		return extras, extras != nil
	}
	m, ok := extras.(map[string]interface{})
	if !ok {
		if extras != nil {
			w.log.Debug("node extras are not an object, replacing with bone tag", zap.String("node", n.Name))
		}
		m = make(map[string]interface{})
	}
	m["isBone"] = true
	return m, true
}

// roundTripExtras converts arbitrary metadata into JSON-compatible values.
func roundTripExtras(v interface{}) (interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
