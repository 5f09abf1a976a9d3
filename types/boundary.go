package types

import "strings"

// Boundary identifies one of the four edges of a Cartesian grid block.
// It doubles as the index into per-edge arrays (boundary types, neighbour
// indices, copy-layer channels).
type Boundary uint8

const (
	BND_Left Boundary = iota
	BND_Right
	BND_Bottom
	BND_Top
)

// NumBoundaries is the length of every per-edge array.
const NumBoundaries = 4

func (b Boundary) String() string {
	switch b {
	case BND_Left:
		return "Left"
	case BND_Right:
		return "Right"
	case BND_Bottom:
		return "Bottom"
	case BND_Top:
		return "Top"
	}
	return "Unknown"
}

// Opposite returns the edge facing b across a shared block boundary: a copy
// layer sent from a neighbour's Right edge fills the receiver's Left ghost
// column, and so on.
func (b Boundary) Opposite() Boundary {
	switch b {
	case BND_Left:
		return BND_Right
	case BND_Right:
		return BND_Left
	case BND_Bottom:
		return BND_Top
	case BND_Top:
		return BND_Bottom
	}
	panic("unknown boundary edge")
}

// BoundaryType selects the ghost-cell treatment on one block edge.
type BoundaryType uint8

const (
	// BC_Wall reflects the flow: h and the tangential momentum are mirrored,
	// the normal momentum changes sign.
	BC_Wall BoundaryType = iota
	// BC_Outflow is the zero-gradient condition, all unknowns copied.
	BC_Outflow
	// BC_Connect couples the edge to a neighbouring block via copy layers.
	BC_Connect
	// BC_Passive leaves the ghost cells to the caller.
	BC_Passive
)

func (bt BoundaryType) String() string {
	switch bt {
	case BC_Wall:
		return "Wall"
	case BC_Outflow:
		return "Outflow"
	case BC_Connect:
		return "Connect"
	case BC_Passive:
		return "Passive"
	}
	return "Unknown"
}

var BoundaryTypeNameMap = map[string]BoundaryType{
	"wall":       BC_Wall,
	"reflective": BC_Wall,
	"outflow":    BC_Outflow,
	"out":        BC_Outflow,
	"connect":    BC_Connect,
	"passive":    BC_Passive,
}

// NewBoundaryType resolves a configuration name like "wall" or "OUTFLOW".
func NewBoundaryType(name string) (bt BoundaryType, ok bool) {
	bt, ok = BoundaryTypeNameMap[strings.ToLower(strings.TrimSpace(name))]
	return
}
