package exporter

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/vrm-customizer/internal/scene"
)

// Image MIME types the container can carry.
const (
	mimePNG  = "image/png"
	mimeJPEG = "image/jpeg"
)

var magFilters = map[scene.Filter]gltf.MagFilter{
	scene.FilterNearest: gltf.MagNearest,
	scene.FilterLinear:  gltf.MagLinear,
}

var minFilters = map[scene.Filter]gltf.MinFilter{
	scene.FilterNearest:              gltf.MinNearest,
	scene.FilterLinear:               gltf.MinLinear,
	scene.FilterNearestMipmapNearest: gltf.MinNearestMipMapNearest,
	scene.FilterLinearMipmapNearest:  gltf.MinLinearMipMapNearest,
	scene.FilterNearestMipmapLinear:  gltf.MinNearestMipMapLinear,
	scene.FilterLinearMipmapLinear:   gltf.MinLinearMipMapLinear,
}

var wrapModes = map[scene.Wrap]gltf.WrappingMode{
	scene.WrapRepeat:         gltf.WrapRepeat,
	scene.WrapClampToEdge:    gltf.WrapClampToEdge,
	scene.WrapMirroredRepeat: gltf.WrapMirroredRepeat,
}

// exportMimeType picks the encoding for a texture. Anything that is not jpeg is written as png.
func exportMimeType(mime string) string {
	if mime == mimeJPEG {
		return mimeJPEG
	}
	return mimePNG
}

// serializeTexture exports a texture with its own sampler and returns its index.
// Textures are deduplicated by identity. The returned task, if any, must be
// joined before the container is written.
func (w *writer) serializeTexture(t *scene.Texture) (*uint32, []*encodeTask) {
	if idx, ok := w.textures[t.ID()]; ok {
		return idx, nil
	}

	if t.Image == nil || t.Image.Source == nil || t.Image.Source.Bounds().Empty() {
		w.log.Warn("texture has no image data, skipping", zap.String("texture", t.Name))
		w.textures[t.ID()] = nil
		return nil, nil
	}

	mime := exportMimeType(t.MimeType)
	if t.MimeType != "" && t.MimeType != mime {
		w.log.Debug("re-encoding texture", zap.String("texture", t.Name),
			zap.String("from", t.MimeType), zap.String("to", mime))
	}

	img, task := w.serializeImage(t.Image, mime, t.FlipY)

	w.doc.Samplers = append(w.doc.Samplers, &gltf.Sampler{
		MagFilter: magFilters[t.MagFilter],
		MinFilter: minFilters[t.MinFilter],
		WrapS:     wrapModes[t.WrapS],
		WrapT:     wrapModes[t.WrapT],
	})
	sampler := uint32(len(w.doc.Samplers) - 1)

	w.doc.Textures = append(w.doc.Textures, &gltf.Texture{
		Name:    t.Name,
		Sampler: gltf.Index(sampler),
		Source:  gltf.Index(img),
	})
	idx := gltf.Index(uint32(len(w.doc.Textures) - 1))
	w.textures[t.ID()] = idx

	if task == nil {
		return idx, nil
	}
	return idx, []*encodeTask{task}
}

// serializeImage reserves an image descriptor. Its buffer view is filled in once
// the returned task has been encoded. Images are shared per (source, mime, flip).
func (w *writer) serializeImage(img *scene.Image, mime string, flipY bool) (uint32, *encodeTask) {
	key := imageKey{id: img.ID(), mime: mime, flipY: flipY}
	if idx, ok := w.images[key]; ok {
		return idx, nil
	}

	idx := uint32(len(w.doc.Images))
	w.doc.Images = append(w.doc.Images, &gltf.Image{
		Name:     fmt.Sprintf("image_%d", idx),
		MimeType: mime,
	})
	w.images[key] = idx

	return idx, &encodeTask{
		image: idx,
		name:  img.Name,
		src:   img.Source,
		mime:  mime,
		flipY: flipY,
	}
}
