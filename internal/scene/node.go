package scene

import (
	"github.com/Faultbox/vrm-customizer/pkg/math"
)

// Node is a scene graph node with a local TRS transform.
type Node struct {
	Name        string
	Translation math.Vec3
	Rotation    math.Quat
	Scale       math.Vec3

	Parent   *Node
	Children []*Node

	Mesh   *Mesh
	IsBone bool
	Hidden bool

	// Extras is free-form metadata carried to the exported node.
	Extras interface{}
}

// NewNode returns a visible node with an identity transform.
func NewNode(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: math.QuatIdentity(),
		Scale:    math.One(),
	}
}

// NewBone returns a joint node.
func NewBone(name string) *Node {
	n := NewNode(name)
	n.IsBone = true
	return n
}

// Add attaches children to n, detaching them from any previous parent.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		if c.Parent != nil {
			c.Parent.Remove(c)
		}
		c.Parent = n
		n.Children = append(n.Children, c)
	}
	return n
}

// Remove detaches child from n.
func (n *Node) Remove(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			return
		}
	}
}

// Visible reports whether the node is shown.
func (n *Node) Visible() bool {
	return !n.Hidden
}

// Traverse calls fn for n and its descendants in pre-order.
// Returning false from fn skips that node's subtree.
func (n *Node) Traverse(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Traverse(fn)
	}
}

// Find returns the first node named name in n's subtree, or nil.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Traverse(func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.Name == name {
			found = c
			return false
		}
		return true
	})
	return found
}

// LocalMatrix returns the node's local transform.
func (n *Node) LocalMatrix() math.Mat4 {
	return math.Compose(n.Translation, n.Rotation, n.Scale)
}

// WorldMatrix returns the transform from node space to root space.
func (n *Node) WorldMatrix() math.Mat4 {
	m := n.LocalMatrix()
	for p := n.Parent; p != nil; p = p.Parent {
		m = p.LocalMatrix().Mul(m)
	}
	return m
}
