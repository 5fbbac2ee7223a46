// Package scene is the in-memory avatar scene graph: nodes, meshes, materials,
// textures, skeletons and the humanoid/expression components layered on top.
// The exporter reads it; the importer and the customization layer build and edit it.
package scene

import "sync/atomic"

var lastID atomic.Uint64

// Handle gives an entity a stable identity used as a cache key.
// The ID is allocated on first use from a process-wide monotonically increasing
// counter, so entities that are never cached never consume one.
type Handle struct {
	id atomic.Uint64
}

// ID returns the entity's identity, allocating it on the first call.
func (h *Handle) ID() uint64 {
	if id := h.id.Load(); id != 0 {
		return id
	}
	h.id.CompareAndSwap(0, lastID.Add(1))
	return h.id.Load()
}
