package importer

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/vrm-customizer/internal/scene"
	"github.com/Faultbox/vrm-customizer/pkg/math"
)

// loadNodes creates every node, links the hierarchy and attaches meshes.
func (l *loader) loadNodes() error {
	l.nodes = make([]*scene.Node, len(l.doc.Nodes))
	seen := make(map[string]bool, len(l.doc.Nodes))
	for i, def := range l.doc.Nodes {
		name := def.Name
		if name == "" || seen[name] {
			name = fmt.Sprintf("node_%d", i)
			l.log.Debug("renaming node", zap.String("from", def.Name), zap.String("to", name))
		}
		seen[name] = true

		n := scene.NewNode(name)
		setTransform(n, def)
		n.Extras = def.Extras
		if m, ok := def.Extras.(map[string]interface{}); ok {
			if b, _ := m["isBone"].(bool); b {
				n.IsBone = true
			}
		}
		l.nodes[i] = n
	}

	for i, def := range l.doc.Nodes {
		for _, c := range def.Children {
			child, err := l.node(c)
			if err != nil {
				return fmt.Errorf("node %q: %w", def.Name, err)
			}
			if child.Parent != nil {
				l.log.Warn("node has several parents, keeping the first",
					zap.String("node", child.Name))
				continue
			}
			l.nodes[i].Add(child)
		}
	}

	for i, def := range l.doc.Nodes {
		if def.Mesh == nil {
			continue
		}
		if err := l.attachMesh(l.nodes[i], def); err != nil {
			return fmt.Errorf("node %q: %w", def.Name, err)
		}
	}
	return nil
}

// setTransform copies the node's local transform. A matrix, when present,
// takes precedence over TRS.
func setTransform(n *scene.Node, def *gltf.Node) {
	m := math.Mat4(def.Matrix)
	if m != (math.Mat4{}) && !m.IsIdentity(0) {
		n.Translation, n.Rotation, n.Scale = m.Decompose()
		return
	}
	t := def.TranslationOrDefault()
	r := def.RotationOrDefault()
	s := def.ScaleOrDefault()
	n.Translation = math.Vec3{X: t[0], Y: t[1], Z: t[2]}
	n.Rotation = math.Quat{X: r[0], Y: r[1], Z: r[2], W: r[3]}
	n.Scale = math.Vec3{X: s[0], Y: s[1], Z: s[2]}
}

// attachMesh gives n the node's mesh. Mesh parts beyond the first hang off
// child nodes named after n.
func (l *loader) attachMesh(n *scene.Node, def *gltf.Node) error {
	meshIdx := *def.Mesh
	parts, err := l.geometry(meshIdx)
	if err != nil {
		return err
	}
	src := l.doc.Meshes[meshIdx]

	var skel *scene.Skeleton
	if def.Skin != nil {
		if skel, err = l.skeleton(*def.Skin); err != nil {
			return err
		}
	}

	for i, part := range parts {
		target := n
		if i > 0 {
			target = scene.NewNode(fmt.Sprintf("%s_%d", n.Name, i))
			n.Add(target)
		}

		mesh := scene.NewMesh(part.geometry, part.materials...)
		mesh.MaterialArray = len(part.geometry.Groups) > 0
		if part.targets > 0 {
			mesh.MorphTargetInfluences = make([]float32, part.targets)
			copy(mesh.MorphTargetInfluences, src.Weights)
			mesh.TargetNames = targetNames(src.Extras)
		}
		if skel != nil {
			mesh.Skinned = true
			mesh.Skeleton = skel
			mesh.BindMatrix = math.Identity()
		}
		target.Mesh = mesh
		l.meshUse[meshIdx] = append(l.meshUse[meshIdx], target)
	}
	return nil
}

func targetNames(extras interface{}) []string {
	m, ok := extras.(map[string]interface{})
	if !ok {
		return nil
	}
	list, _ := m["targetNames"].([]interface{})
	names := make([]string, 0, len(list))
	for _, v := range list {
		s, _ := v.(string)
		names = append(names, s)
	}
	return names
}

// skeleton reads a skin. Joint nodes are marked as bones.
func (l *loader) skeleton(idx uint32) (*scene.Skeleton, error) {
	if int(idx) >= len(l.doc.Skins) {
		return nil, fmt.Errorf("%w: skin %d", ErrBadReference, idx)
	}
	skin := l.doc.Skins[idx]

	skel := &scene.Skeleton{
		Bones:        make([]*scene.Node, len(skin.Joints)),
		BoneInverses: make([]math.Mat4, len(skin.Joints)),
	}
	for i, j := range skin.Joints {
		bone, err := l.node(j)
		if err != nil {
			return nil, fmt.Errorf("skin %d: %w", idx, err)
		}
		bone.IsBone = true
		skel.Bones[i] = bone
		skel.BoneInverses[i] = math.Identity()
	}

	if skin.InverseBindMatrices != nil {
		a, err := l.accessor(*skin.InverseBindMatrices)
		if err != nil {
			return nil, fmt.Errorf("skin %d inverse bind matrices: %w", idx, err)
		}
		if a.ItemSize != 16 {
			return nil, fmt.Errorf("skin %d: inverse bind matrices have %d components", idx, a.ItemSize)
		}
		data := a.Float32s()
		for i := range skel.BoneInverses {
			if (i+1)*16 > len(data) {
				break
			}
			copy(skel.BoneInverses[i][:], data[i*16:(i+1)*16])
		}
	}
	return skel, nil
}
