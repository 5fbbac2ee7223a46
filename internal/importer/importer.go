// Package importer loads binary glTF and VRM 0.x files into live avatar scenes.
//
// Every glTF node becomes a scene node. Primitives of one mesh that share
// their vertex attributes are merged into a single geometry with one material
// group per primitive. The VRM extension, when present, supplies the humanoid,
// expressions, look-at and toon material records.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/vrm-customizer/internal/logger"
	"github.com/Faultbox/vrm-customizer/internal/scene"
	"github.com/Faultbox/vrm-customizer/pkg/glb"
	"github.com/Faultbox/vrm-customizer/pkg/vrm"
)

// Import errors.
var (
	ErrNoScene      = errors.New("document has no scene")
	ErrBadReference = errors.New("index out of range")
)

// ImageResolver loads images referenced by URI.
type ImageResolver interface {
	Image(uri string) (*scene.Image, string, error)
}

// Options configure a load.
type Options struct {
	// Images resolves external image URIs. Without it such images are skipped.
	Images ImageResolver
	Logger *zap.Logger
}

// LoadFile reads a .glb or .vrm file.
func LoadFile(path string, opts Options) (*scene.Avatar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model: %w", err)
	}
	return Load(data, opts)
}

// Load decodes a binary glTF container.
func Load(data []byte, opts Options) (*scene.Avatar, error) {
	if _, err := glb.Parse(data); err != nil {
		return nil, fmt.Errorf("parsing container: %w", err)
	}
	return Decode(bytes.NewReader(data), opts)
}

// Decode reads a glTF document from r and builds the avatar.
func Decode(r io.Reader, opts Options) (*scene.Avatar, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding glTF: %w", err)
	}
	return FromDocument(doc, opts)
}

// FromDocument builds an avatar from a decoded document.
func FromDocument(doc *gltf.Document, opts Options) (*scene.Avatar, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Log
	}
	l := &loader{
		doc:      doc,
		opts:     opts,
		log:      log.Named("importer"),
		attrs:    make(map[uint32]*scene.Attribute),
		geoms:    make(map[uint32][]*geometryPart),
		textures: make(map[textureKey]*scene.Texture),
		images:   make(map[uint32]imageEntry),
		meshUse:  make(map[uint32][]*scene.Node),
	}
	return l.load()
}

// loader holds the state of one import.
type loader struct {
	doc  *gltf.Document
	opts Options
	log  *zap.Logger

	rec *vrm.VRM

	nodes     []*scene.Node
	attrs     map[uint32]*scene.Attribute
	geoms     map[uint32][]*geometryPart
	materials []scene.Material
	fallback  scene.Material
	textures  map[textureKey]*scene.Texture
	images    map[uint32]imageEntry

	// meshUse lists the nodes drawing each glTF mesh.
	meshUse map[uint32][]*scene.Node
}

func (l *loader) load() (*scene.Avatar, error) {
	if len(l.doc.Scenes) == 0 {
		return nil, ErrNoScene
	}
	sceneIdx := uint32(0)
	if l.doc.Scene != nil {
		sceneIdx = *l.doc.Scene
	}
	if int(sceneIdx) >= len(l.doc.Scenes) {
		return nil, fmt.Errorf("%w: scene %d", ErrBadReference, sceneIdx)
	}

	rec, err := l.extension()
	if err != nil {
		return nil, err
	}
	l.rec = rec

	l.loadMaterials()
	if err := l.loadNodes(); err != nil {
		return nil, err
	}

	sc := l.doc.Scenes[sceneIdx]
	name := sc.Name
	if name == "" {
		name = "Scene"
	}
	root := scene.NewNode(name)
	for _, idx := range sc.Nodes {
		n, err := l.node(idx)
		if err != nil {
			return nil, err
		}
		if n.Parent == nil {
			root.Add(n)
		}
	}

	a := &scene.Avatar{Scene: root}
	l.components(a)
	return a, nil
}

func (l *loader) node(idx uint32) (*scene.Node, error) {
	if int(idx) >= len(l.nodes) {
		return nil, fmt.Errorf("%w: node %d", ErrBadReference, idx)
	}
	return l.nodes[idx], nil
}
