package exporter

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/qmuntal/gltf"

	"github.com/Faultbox/vrm-customizer/internal/scene"
)

func TestComponentType(t *testing.T) {
	tests := []struct {
		name string
		data interface{}
		want gltf.ComponentType
		size int
	}{
		{"float32", []float32{1}, gltf.ComponentFloat, 4},
		{"uint32", []uint32{1}, gltf.ComponentUint, 4},
		{"uint16", []uint16{1}, gltf.ComponentUshort, 2},
		{"uint8", []uint8{1}, gltf.ComponentUbyte, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, size, err := componentType(scene.NewAttribute(tt.data, 1))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want || size != tt.size {
				t.Errorf("got (%v, %d), want (%v, %d)", got, size, tt.want, tt.size)
			}
		})
	}
}

func TestSerializeAccessor_Errors(t *testing.T) {
	tests := []struct {
		name    string
		attr    *scene.Attribute
		wantErr error
	}{
		{"float64 storage", scene.NewAttribute([]float64{1, 2, 3}, 3), ErrUnsupportedComponentType},
		{"int16 storage", scene.NewAttribute([]int16{1, 2}, 1), ErrUnsupportedComponentType},
		{"item size 5", scene.NewAttribute([]float32{1, 2, 3, 4, 5}, 5), ErrUnsupportedItemSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testWriter(t)
			_, err := w.serializeAccessor(tt.attr, usageVertex, 0, tt.attr.Count())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
			if len(w.doc.BufferViews) != 0 {
				t.Error("failed accessor must not append a buffer view")
			}
		})
	}
}

func TestSerializeAccessor_ZeroCount(t *testing.T) {
	w := testWriter(t)
	idx, err := w.serializeAccessor(quadPositions(), usageVertex, 0, 0)
	if err != nil || idx != nil {
		t.Fatalf("got (%v, %v), want (nil, nil)", idx, err)
	}
	if len(w.doc.Accessors) != 0 || w.byteOffset != 0 {
		t.Error("zero count must not produce output")
	}
}

// decodeFloats reads the float32 payload of an accessor back from the writer's binary.
func decodeFloats(t *testing.T, w *writer, acc *gltf.Accessor, itemSize int) []float32 {
	t.Helper()
	bin := w.binary()
	bv := w.doc.BufferViews[*acc.BufferView]
	out := make([]float32, int(acc.Count)*itemSize)
	for i := range out {
		off := int(bv.ByteOffset) + int(acc.ByteOffset) + i*4
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(bin[off:]))
	}
	return out
}

func TestSerializeAccessor_BoundsRoundTrip(t *testing.T) {
	attr := scene.NewAttribute([]float32{
		-1, 2, 0.5,
		3, -4, 0.25,
		0, 0, 7,
		9, 9, 9, // outside the exported range
	}, 3)

	w := testWriter(t)
	idx, err := w.serializeAccessor(attr, usageVertex, 0, 3)
	if err != nil {
		t.Fatalf("serializeAccessor failed: %v", err)
	}
	acc := w.doc.Accessors[*idx]

	if acc.Count != 3 || acc.Type != gltf.AccessorVec3 {
		t.Fatalf("count/type = %d/%v", acc.Count, acc.Type)
	}

	wantMin := []float32{-1, -4, 0.25}
	wantMax := []float32{3, 2, 7}
	for c := 0; c < 3; c++ {
		if acc.Min[c] != wantMin[c] || acc.Max[c] != wantMax[c] {
			t.Errorf("component %d bounds = [%v, %v], want [%v, %v]", c, acc.Min[c], acc.Max[c], wantMin[c], wantMax[c])
		}
	}

	values := decodeFloats(t, w, acc, 3)
	for c := 0; c < 3; c++ {
		hitMin, hitMax := false, false
		for i := 0; i < 3; i++ {
			v := values[i*3+c]
			if v < acc.Min[c] || v > acc.Max[c] {
				t.Errorf("value %v outside [%v, %v]", v, acc.Min[c], acc.Max[c])
			}
			hitMin = hitMin || v == acc.Min[c]
			hitMax = hitMax || v == acc.Max[c]
		}
		if !hitMin || !hitMax {
			t.Errorf("component %d bounds not attained", c)
		}
	}
}

func TestSerializeAccessor_PartialRange(t *testing.T) {
	index := scene.NewAttribute([]uint16{0, 1, 2, 7, 8, 9}, 1)

	w := testWriter(t)
	idx, err := w.serializeAccessor(index, usageIndex, 3, 3)
	if err != nil {
		t.Fatalf("serializeAccessor failed: %v", err)
	}
	acc := w.doc.Accessors[*idx]
	if acc.Min[0] != 7 || acc.Max[0] != 9 {
		t.Errorf("bounds = [%v, %v], want [7, 9]", acc.Min[0], acc.Max[0])
	}

	bin := w.binary()
	if got := binary.LittleEndian.Uint16(bin[0:]); got != 7 {
		t.Errorf("first packed index = %d, want 7", got)
	}
	// 3 x uint16 = 6 bytes, padded to 8.
	if bv := w.doc.BufferViews[*acc.BufferView]; bv.ByteLength != 8 {
		t.Errorf("byteLength = %d, want 8", bv.ByteLength)
	}
	if bin[6] != 0 || bin[7] != 0 {
		t.Errorf("padding bytes = %v, want zero", bin[6:8])
	}
}

func TestSerializeAccessor_MatrixBounds(t *testing.T) {
	m := make([]float32, 32)
	for i := range m {
		m[i] = float32(i)
	}

	w := testWriter(t)
	idx, err := w.serializeAccessor(scene.NewAttribute(m, 16), usageData, 0, 2)
	if err != nil {
		t.Fatalf("serializeAccessor failed: %v", err)
	}
	acc := w.doc.Accessors[*idx]
	if acc.Type != gltf.AccessorMat4 {
		t.Errorf("type = %v, want MAT4", acc.Type)
	}
	for c := 0; c < 16; c++ {
		if acc.Min[c] != float32(c) || acc.Max[c] != float32(16+c) {
			t.Errorf("component %d bounds = [%v, %v]", c, acc.Min[c], acc.Max[c])
		}
	}
}

func TestSerializeAccessor_BufferViewTargets(t *testing.T) {
	tests := []struct {
		name       string
		attr       *scene.Attribute
		usage      bufferUsage
		wantTarget gltf.Target
		wantStride uint32
	}{
		{"vertex", quadPositions(), usageVertex, gltf.TargetArrayBuffer, 12},
		{"joints", scene.NewAttribute([]uint16{0, 1, 0, 0}, 4), usageVertex, gltf.TargetArrayBuffer, 8},
		{"index", scene.NewAttribute([]uint32{0, 1, 2}, 1), usageIndex, gltf.TargetElementArrayBuffer, 0},
		{"data", scene.NewAttribute(make([]float32, 16), 16), usageData, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := testWriter(t)
			if _, err := w.serializeAccessor(tt.attr, tt.usage, 0, tt.attr.Count()); err != nil {
				t.Fatalf("serializeAccessor failed: %v", err)
			}
			bv := w.doc.BufferViews[0]
			if bv.Target != tt.wantTarget {
				t.Errorf("target = %v, want %v", bv.Target, tt.wantTarget)
			}
			if bv.ByteStride != tt.wantStride {
				t.Errorf("stride = %d, want %d", bv.ByteStride, tt.wantStride)
			}
		})
	}
}

func TestSerializeAccessor_Alignment(t *testing.T) {
	w := testWriter(t)
	attrs := []*scene.Attribute{
		scene.NewAttribute([]uint8{1, 2, 3}, 1),
		scene.NewAttribute([]uint16{1, 2, 3}, 1),
		scene.NewAttribute([]uint8{1, 2, 3, 4, 5}, 1),
		quadPositions(),
	}
	for _, a := range attrs {
		if _, err := w.serializeAccessor(a, usageData, 0, a.Count()); err != nil {
			t.Fatalf("serializeAccessor failed: %v", err)
		}
	}

	offset := uint32(0)
	for i, bv := range w.doc.BufferViews {
		if bv.ByteLength%4 != 0 || bv.ByteOffset%4 != 0 {
			t.Errorf("view %d offset %d length %d not aligned", i, bv.ByteOffset, bv.ByteLength)
		}
		if bv.ByteOffset != offset {
			t.Errorf("view %d offset = %d, want %d", i, bv.ByteOffset, offset)
		}
		offset += bv.ByteLength
	}
	if len(w.binary()) != int(offset) {
		t.Errorf("binary length = %d, want %d", len(w.binary()), offset)
	}
	if len(w.doc.BufferViews) != len(w.doc.Accessors) {
		t.Error("expected one buffer view per accessor")
	}
}
