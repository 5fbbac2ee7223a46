package exporter

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/vrm-customizer/internal/scene"
)

// bufferUsage selects the buffer view target of a packed attribute.
type bufferUsage int

const (
	usageData   bufferUsage = iota // no target, no stride (inverse bind matrices)
	usageVertex                    // ARRAY_BUFFER with byte stride
	usageIndex                     // ELEMENT_ARRAY_BUFFER
)

var accessorTypes = map[int]gltf.AccessorType{
	1:  gltf.AccessorScalar,
	2:  gltf.AccessorVec2,
	3:  gltf.AccessorVec3,
	4:  gltf.AccessorVec4,
	9:  gltf.AccessorMat3,
	16: gltf.AccessorMat4,
}

// componentType infers the encoding from the attribute's storage.
func componentType(a *scene.Attribute) (gltf.ComponentType, int, error) {
	switch a.Data.(type) {
	case []float32:
		return gltf.ComponentFloat, 4, nil
	case []uint32:
		return gltf.ComponentUint, 4, nil
	case []uint16:
		return gltf.ComponentUshort, 2, nil
	case []uint8:
		return gltf.ComponentUbyte, 1, nil
	}
	return 0, 0, fmt.Errorf("%w: %T", ErrUnsupportedComponentType, a.Data)
}

// serializeAccessor packs count items of a starting at item start and returns
// the new accessor index. A zero count yields no accessor.
// Every call appends exactly one buffer view.
func (w *writer) serializeAccessor(a *scene.Attribute, usage bufferUsage, start, count int) (*uint32, error) {
	if count <= 0 {
		return nil, nil
	}

	ctype, size, err := componentType(a)
	if err != nil {
		return nil, err
	}
	atype, ok := accessorTypes[a.ItemSize]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedItemSize, a.ItemSize)
	}
	if start < 0 || start+count > a.Count() {
		return nil, fmt.Errorf("accessor range [%d, %d) exceeds %d items", start, start+count, a.Count())
	}

	lower, upper := bounds(a, start, count)
	data := packAttribute(a, start, count)

	var bv uint32
	switch usage {
	case usageVertex:
		bv = w.appendBufferView(data, a.ItemSize*size, gltf.TargetArrayBuffer)
	case usageIndex:
		bv = w.appendBufferView(data, 0, gltf.TargetElementArrayBuffer)
	default:
		var none gltf.Target
		bv = w.appendBufferView(data, 0, none)
	}

	w.doc.Accessors = append(w.doc.Accessors, &gltf.Accessor{
		BufferView:    gltf.Index(bv),
		ComponentType: ctype,
		Normalized:    a.Normalized,
		Count:         uint32(count),
		Type:          atype,
		Min:           lower,
		Max:           upper,
	})
	return gltf.Index(uint32(len(w.doc.Accessors) - 1)), nil
}

// bounds computes per-component min and max over the exported range.
// Small item sizes go through the component getters, matrices through flat indexing.
func bounds(a *scene.Attribute, start, count int) (lower, upper []float32) {
	n := a.ItemSize
	lower = make([]float32, n)
	upper = make([]float32, n)
	for c := 0; c < n; c++ {
		lower[c] = float32(math.Inf(1))
		upper[c] = float32(math.Inf(-1))
	}

	for i := start; i < start+count; i++ {
		for c := 0; c < n; c++ {
			var v float64
			if n <= 4 {
				v = a.Component(i, c)
			} else {
				v = a.At(i*n + c)
			}
			f := float32(v)
			if f < lower[c] {
				lower[c] = f
			}
			if f > upper[c] {
				upper[c] = f
			}
		}
	}
	return lower, upper
}

// packAttribute encodes the range little-endian in the attribute's own width.
// The result is not padded.
func packAttribute(a *scene.Attribute, start, count int) []byte {
	lo, hi := start*a.ItemSize, (start+count)*a.ItemSize

	switch d := a.Data.(type) {
	case []float32:
		out := make([]byte, (hi-lo)*4)
		for i, v := range d[lo:hi] {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
		}
		return out
	case []uint32:
		out := make([]byte, (hi-lo)*4)
		for i, v := range d[lo:hi] {
			binary.LittleEndian.PutUint32(out[i*4:], v)
		}
		return out
	case []uint16:
		out := make([]byte, (hi-lo)*2)
		for i, v := range d[lo:hi] {
			binary.LittleEndian.PutUint16(out[i*2:], v)
		}
		return out
	case []uint8:
		return append([]byte(nil), d[lo:hi]...)
	}
	return nil
}
