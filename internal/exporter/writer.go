package exporter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/vrm-customizer/internal/scene"
	"github.com/Faultbox/vrm-customizer/pkg/glb"
	"github.com/Faultbox/vrm-customizer/pkg/vrm"
)

// Extensions declared by every exported document.
var extensionsUsed = []string{
	extUnlit,
	extTextureTransform,
	"VRMC_materials_mtoon",
	vrm.ExtensionName,
}

const (
	extUnlit            = "KHR_materials_unlit"
	extTextureTransform = "KHR_texture_transform"
)

// attrKey identifies one packed range of an attribute.
type attrKey struct {
	id           uint64
	start, count int
}

type imageKey struct {
	id    uint64
	mime  string
	flipY bool
}

// writer holds the state of a single export call.
type writer struct {
	opts *Options
	log  *zap.Logger

	doc *gltf.Document

	// Binary regions in production order.
	chunks     [][]byte
	byteOffset int

	attributes map[attrKey]*uint32
	meshes     map[string]*uint32
	materials  map[string]uint32
	textures   map[uint64]*uint32
	images     map[imageKey]uint32

	// Unskinned copies of meshes, keyed by the source mesh index.
	unskinned map[uint32]uint32

	// Export-only replacements for live attributes, keyed by the source ID.
	normals map[uint64]*scene.Attribute
	joints  map[uint64]*scene.Attribute
	indices map[uint64]*scene.Attribute

	materialProps []*vrm.MaterialProperty
}

func newWriter(opts *Options, log *zap.Logger) *writer {
	return &writer{
		opts: opts,
		log:  log,
		doc: &gltf.Document{
			Asset: gltf.Asset{Version: "2.0", Generator: opts.Generator},
		},
		attributes:    make(map[attrKey]*uint32),
		meshes:        make(map[string]*uint32),
		materials:     make(map[string]uint32),
		textures:      make(map[uint64]*uint32),
		images:        make(map[imageKey]uint32),
		unskinned:     make(map[uint32]uint32),
		normals:       make(map[uint64]*scene.Attribute),
		joints:        make(map[uint64]*scene.Attribute),
		indices:       make(map[uint64]*scene.Attribute),
		materialProps: []*vrm.MaterialProperty{},
	}
}

// write runs the export phases in order: graph walk, skins, metadata,
// image join, then container assembly.
func (w *writer) write(ctx context.Context, out io.Writer, avatar *scene.Avatar, meta map[string]interface{}) error {
	walk := newWalker(w)
	if err := walk.scene(avatar.Scene); err != nil {
		return err
	}
	table, jobs, pending := walk.close()

	for _, job := range jobs {
		if _, err := w.serializeSkin(table, job); err != nil {
			return err
		}
	}

	w.doc.ExtensionsUsed = append([]string(nil), extensionsUsed...)
	w.doc.Extensions = map[string]interface{}{
		vrm.ExtensionName: w.buildVRM(avatar, table, meta),
	}

	if err := w.encodeImages(ctx, pending); err != nil {
		return err
	}

	bin := w.binary()
	if len(bin) > 0 {
		w.doc.Buffers = []*gltf.Buffer{{ByteLength: uint32(len(bin))}}
	}

	jsonData, err := json.Marshal(w.doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	w.log.Debug("export assembled",
		zap.Int("nodes", len(w.doc.Nodes)),
		zap.Int("meshes", len(w.doc.Meshes)),
		zap.Int("materials", len(w.doc.Materials)),
		zap.Int("images", len(w.doc.Images)),
		zap.Int("json_bytes", len(jsonData)),
		zap.Int("bin_bytes", len(bin)))

	return glb.Write(out, jsonData, bin)
}

// appendBufferView records a padded binary region and returns its buffer view index.
func (w *writer) appendBufferView(data []byte, stride int, target gltf.Target) uint32 {
	padded := glb.Pad(data, 0)

	bv := &gltf.BufferView{
		Buffer:     0,
		ByteOffset: uint32(w.byteOffset),
		ByteLength: uint32(len(padded)),
		Target:     target,
	}
	if stride > 0 {
		bv.ByteStride = uint32(stride)
	}

	w.chunks = append(w.chunks, padded)
	w.byteOffset += len(padded)
	w.doc.BufferViews = append(w.doc.BufferViews, bv)
	return uint32(len(w.doc.BufferViews) - 1)
}

// binary concatenates every region in the order it was produced.
func (w *writer) binary() []byte {
	if w.byteOffset == 0 {
		return nil
	}
	out := make([]byte, 0, w.byteOffset)
	for _, c := range w.chunks {
		out = append(out, c...)
	}
	return out
}
