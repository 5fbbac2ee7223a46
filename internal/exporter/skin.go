package exporter

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/vrm-customizer/internal/scene"
	"github.com/Faultbox/vrm-customizer/pkg/math"
)

// skinJob is a skinned node discovered by the walker, resolved once the
// node table is complete.
type skinJob struct {
	node uint32
	name string
	mesh *scene.Mesh
}

// serializeSkin exports the skin of one skinned node and attaches it.
// The joint list refers to indices already in the table; no nodes are added.
// A nil index means the node is exported unskinned.
func (w *writer) serializeSkin(t nodeTable, job skinJob) (*uint32, error) {
	sk := job.mesh.Skeleton
	if sk == nil || len(sk.Bones) == 0 {
		w.log.Debug("skinned mesh has no skeleton", zap.String("node", job.name))
		w.unskin(job)
		return nil, nil
	}

	bind := job.mesh.Bind()
	joints := make([]uint32, 0, len(sk.Bones))
	matrices := make([]float32, 0, len(sk.Bones)*16)

	for i, bone := range sk.Bones {
		if bone == nil {
			w.log.Warn("skeleton has a nil joint, skipping skin",
				zap.String("node", job.name), zap.Int("joint", i))
			w.unskin(job)
			return nil, nil
		}
		idx, ok := t.Lookup(bone.Name)
		if !ok {
			w.log.Warn("joint was not exported, skipping skin",
				zap.String("node", job.name), zap.String("joint", bone.Name))
			w.unskin(job)
			return nil, nil
		}
		joints = append(joints, idx)

		inv := math.Identity()
		if i < len(sk.BoneInverses) {
			inv = sk.BoneInverses[i]
		}
		m := inv.Mul(bind)
		matrices = append(matrices, m[:]...)
	}

	acc, err := w.serializeAccessor(scene.NewAttribute(matrices, 16), usageData, 0, len(joints))
	if err != nil {
		return nil, fmt.Errorf("skin %q: %w", job.name, err)
	}

	w.doc.Skins = append(w.doc.Skins, &gltf.Skin{
		Name:                job.name,
		InverseBindMatrices: acc,
		Skeleton:            gltf.Index(joints[0]),
		Joints:              joints,
	})
	idx := gltf.Index(uint32(len(w.doc.Skins) - 1))
	w.doc.Nodes[job.node].Skin = idx
	return idx, nil
}

// unskin points a node whose skin was skipped at a copy of its mesh without
// JOINTS_0 and WEIGHTS_0. Joint data without a skin is invalid glTF, and the
// original mesh may still be shared with nodes that do have a skin.
func (w *writer) unskin(job skinJob) {
	node := w.doc.Nodes[job.node]
	if node.Mesh == nil {
		return
	}
	src := *node.Mesh
	if idx, ok := w.unskinned[src]; ok {
		node.Mesh = gltf.Index(idx)
		return
	}

	mesh := w.doc.Meshes[src]
	stripped := false
	prims := make([]*gltf.Primitive, len(mesh.Primitives))
	for i, p := range mesh.Primitives {
		attrs := make(gltf.Attribute, len(p.Attributes))
		for k, v := range p.Attributes {
			if k == gltf.JOINTS_0 || k == gltf.WEIGHTS_0 {
				stripped = true
				continue
			}
			attrs[k] = v
		}
		cp := *p
		cp.Attributes = attrs
		prims[i] = &cp
	}
	if !stripped {
		w.unskinned[src] = src
		return
	}

	cp := *mesh
	cp.Primitives = prims
	w.doc.Meshes = append(w.doc.Meshes, &cp)
	idx := uint32(len(w.doc.Meshes) - 1)
	w.unskinned[src] = idx
	node.Mesh = gltf.Index(idx)
}
