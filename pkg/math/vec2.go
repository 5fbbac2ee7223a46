package math

// Vec2 is a 2D vector, used for texture-space offsets and repeats.
type Vec2 struct {
	X, Y float32
}

// IsZero reports whether both components are zero.
func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Array returns the components as a fixed array.
func (v Vec2) Array() [2]float32 {
	return [2]float32{v.X, v.Y}
}
