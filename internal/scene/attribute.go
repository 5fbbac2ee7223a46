package scene

import (
	"fmt"
	"reflect"
)

// Attribute is a flat numeric array interpreted as Count() items of ItemSize components.
// Data holds one of []float32, []uint32, []uint16 or []uint8; any other slice kind
// is carried as-is and rejected when encoded.
type Attribute struct {
	Handle

	Data       interface{}
	ItemSize   int
	Normalized bool
}

// NewAttribute wraps data as an attribute of itemSize components per item.
func NewAttribute(data interface{}, itemSize int) *Attribute {
	return &Attribute{Data: data, ItemSize: itemSize}
}

// Len returns the total number of components.
func (a *Attribute) Len() int {
	switch d := a.Data.(type) {
	case []float32:
		return len(d)
	case []uint32:
		return len(d)
	case []uint16:
		return len(d)
	case []uint8:
		return len(d)
	case nil:
		return 0
	}
	v := reflect.ValueOf(a.Data)
	if v.Kind() == reflect.Slice {
		return v.Len()
	}
	return 0
}

// Count returns the number of items.
func (a *Attribute) Count() int {
	if a.ItemSize <= 0 {
		return 0
	}
	return a.Len() / a.ItemSize
}

// At returns the component at flat index i.
func (a *Attribute) At(i int) float64 {
	switch d := a.Data.(type) {
	case []float32:
		return float64(d[i])
	case []uint32:
		return float64(d[i])
	case []uint16:
		return float64(d[i])
	case []uint8:
		return float64(d[i])
	}
	v := reflect.ValueOf(a.Data).Index(i)
	switch {
	case v.CanFloat():
		return v.Float()
	case v.CanInt():
		return float64(v.Int())
	case v.CanUint():
		return float64(v.Uint())
	}
	panic(fmt.Sprintf("scene: attribute element %s is not numeric", v.Kind()))
}

// Component returns component c (0=X, 1=Y, 2=Z, 3=W) of item i.
func (a *Attribute) Component(i, c int) float64 {
	return a.At(i*a.ItemSize + c)
}

// X returns the first component of item i.
func (a *Attribute) X(i int) float64 { return a.Component(i, 0) }

// Y returns the second component of item i.
func (a *Attribute) Y(i int) float64 { return a.Component(i, 1) }

// Z returns the third component of item i.
func (a *Attribute) Z(i int) float64 { return a.Component(i, 2) }

// W returns the fourth component of item i.
func (a *Attribute) W(i int) float64 { return a.Component(i, 3) }

// Float32s returns the data widened to float32. The returned slice is a copy.
func (a *Attribute) Float32s() []float32 {
	out := make([]float32, a.Len())
	for i := range out {
		out[i] = float32(a.At(i))
	}
	return out
}

// Clone returns a copy with its own identity and backing array.
func (a *Attribute) Clone() *Attribute {
	c := &Attribute{ItemSize: a.ItemSize, Normalized: a.Normalized}
	switch d := a.Data.(type) {
	case []float32:
		c.Data = append([]float32(nil), d...)
	case []uint32:
		c.Data = append([]uint32(nil), d...)
	case []uint16:
		c.Data = append([]uint16(nil), d...)
	case []uint8:
		c.Data = append([]uint8(nil), d...)
	default:
		c.Data = a.Data
	}
	return c
}
