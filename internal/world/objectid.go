package world

import "sync/atomic"

// ObjectIDGenerator generates unique object IDs for world entities.
//
// ID ranges (convention):
//
//	0x00000000 - 0x0FFFFFFF: Reserved (0 = free cell in the occupancy grid)
//	0x10000000 - 0x1FFFFFFF: Structures
//	0x20000000 - 0x2FFFFFFF: Units
type ObjectIDGenerator struct {
	nextStructureID atomic.Uint32
	nextUnitID      atomic.Uint32
}

// NewObjectIDGenerator creates a new ID generator.
func NewObjectIDGenerator() *ObjectIDGenerator {
	gen := &ObjectIDGenerator{}
	gen.nextStructureID.Store(0x10000000)
	gen.nextUnitID.Store(0x20000000)
	return gen
}

// NextStructureID generates next unique structure object ID.
// Thread-safe via atomic increment.
func (g *ObjectIDGenerator) NextStructureID() uint32 {
	return g.nextStructureID.Add(1)
}

// NextUnitID generates next unique unit object ID.
// Thread-safe via atomic increment.
func (g *ObjectIDGenerator) NextUnitID() uint32 {
	return g.nextUnitID.Add(1)
}

// IsUnitID reports whether id lies in the unit range.
func IsUnitID(id uint32) bool {
	return id >= 0x20000000 && id < 0x30000000
}
