package exporter

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"runtime"
	"sort"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// encodeTask is one pending image encode. It writes only its own data field,
// so tasks can run in any order.
type encodeTask struct {
	image uint32 // index into doc.Images
	name  string
	src   image.Image
	mime  string
	flipY bool

	data []byte
}

// encode rasterizes the source bounded to maxSize, flips it if requested and
// compresses it.
func (t *encodeTask) encode(maxSize, quality int) error {
	sb := t.src.Bounds()
	width, height := fitSize(sb.Dx(), sb.Dy(), maxSize)

	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	if width == sb.Dx() && height == sb.Dy() {
		draw.Draw(dst, dst.Bounds(), t.src, sb.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), t.src, sb, draw.Src, nil)
	}
	if t.flipY {
		flipVertical(dst)
	}

	var buf bytes.Buffer
	var err error
	switch t.mime {
	case mimeJPEG:
		err = jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality})
	default:
		err = png.Encode(&buf, dst)
	}
	if err != nil {
		return fmt.Errorf("encoding image %d (%s): %w", t.image, t.name, err)
	}
	t.data = buf.Bytes()
	return nil
}

// fitSize scales (w, h) down to fit within maxSize on both axes, keeping the aspect ratio.
func fitSize(w, h, maxSize int) (int, int) {
	if maxSize <= 0 || (w <= maxSize && h <= maxSize) {
		return w, h
	}
	if w >= h {
		nh := h * maxSize / w
		if nh < 1 {
			nh = 1
		}
		return maxSize, nh
	}
	nw := w * maxSize / h
	if nw < 1 {
		nw = 1
	}
	return nw, maxSize
}

func flipVertical(img *image.NRGBA) {
	b := img.Bounds()
	row := make([]byte, b.Dx()*4)
	for y0, y1 := 0, b.Dy()-1; y0 < y1; y0, y1 = y0+1, y1-1 {
		top := img.Pix[y0*img.Stride : y0*img.Stride+len(row)]
		bottom := img.Pix[y1*img.Stride : y1*img.Stride+len(row)]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}

// encodeImages runs every pending encode and then appends the encoded images
// to the binary buffer in image index order. The first failure cancels the rest.
func (w *writer) encodeImages(ctx context.Context, tasks []*encodeTask) error {
	if len(tasks) == 0 {
		return nil
	}

	workers := w.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, t := range tasks {
		t := t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return t.encode(w.opts.MaxTextureSize, w.opts.JPEGQuality)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sorted := append([]*encodeTask(nil), tasks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].image < sorted[j].image })

	var none gltf.Target
	for _, t := range sorted {
		bv := w.appendBufferView(t.data, 0, none)
		w.doc.Images[t.image].BufferView = gltf.Index(bv)
		w.log.Debug("image encoded", zap.Uint32("image", t.image), zap.String("mime", t.mime), zap.Int("bytes", len(t.data)))
	}
	return nil
}
