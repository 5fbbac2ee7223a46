package exporter

import (
	"image"
	"image/color"
	"testing"

	"go.uber.org/zap"

	"github.com/Faultbox/vrm-customizer/internal/scene"
	"github.com/Faultbox/vrm-customizer/pkg/math"
)

func testWriter(t *testing.T) *writer {
	t.Helper()
	opts := DefaultOptions()
	opts.Workers = 2
	return newWriter(&opts, zap.NewNop())
}

func quadPositions() *scene.Attribute {
	return scene.NewAttribute([]float32{
		0, 0, 0,
		1, 0, 0,
		1, 1, 0,
		0, 1, 0,
	}, 3)
}

func quadGeometry() *scene.Geometry {
	g := scene.NewGeometry()
	g.Name = "quad"
	g.SetAttribute(scene.AttrPosition, quadPositions())
	return g
}

// indexedQuad has two triangles, one per material group.
func indexedQuad() *scene.Geometry {
	g := quadGeometry()
	g.Index = scene.NewAttribute([]uint16{0, 1, 2, 0, 2, 3}, 1)
	g.AddGroup(0, 3, 0)
	g.AddGroup(3, 3, 1)
	return g
}

func checkerImage(w, h int) *scene.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.Set(x, y, color.NRGBA{255, 0, 0, 255})
			} else {
				img.Set(x, y, color.NRGBA{0, 0, 255, 255})
			}
		}
	}
	return scene.NewImage("checker", img)
}

// testAvatar builds a root with one skinned quad and a two-bone skeleton.
// Node order in pre-order: Body, Hips, Head.
func testAvatar() *scene.Avatar {
	root := scene.NewNode("Root")

	hips := scene.NewBone("Hips")
	hips.Translation = math.Vec3{Y: 1}
	head := scene.NewBone("Head")
	head.Translation = math.Vec3{Y: 0.5}
	hips.Add(head)

	skel := &scene.Skeleton{
		Bones:        []*scene.Node{hips, head},
		BoneInverses: []math.Mat4{math.Identity(), math.Identity()},
	}
	mesh := scene.NewSkinnedMesh(quadGeometry(), skel, scene.NewStandardMaterial("Skin"))

	body := scene.NewNode("Body")
	body.Mesh = mesh

	root.Add(body, hips)

	h := scene.NewHumanoid()
	h.SetBone("hips", hips)
	h.SetBone("head", head)

	return &scene.Avatar{
		Scene:       root,
		Humanoid:    h,
		Expressions: &scene.ExpressionManager{},
		LookAt:      &scene.LookAt{Type: "Bone"},
	}
}
