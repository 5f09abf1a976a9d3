package SWE2D

import (
	"errors"
	"fmt"

	"github.com/oldenj/shallow-water-equations/types"
)

/*
	Copy-layer exchange between neighbouring blocks.

	Every CONNECT edge is wired to exactly one neighbour through a pair of
	buffered channels. Channel FIFO order gives the per-edge ordering
	guarantee (the k-th layer sent across an edge is consumed by the
	receiver's k-th exchange of that edge); buffering lets a fast neighbour
	post its layer and move on while the receiver is still computing, which
	is the cooperative wait the protocol requires. The global dt reduction
	bounds the skew between neighbours to a single step, so a small buffer
	can never block a sender.
*/

// CopyLayer carries one cell-thick slab of interior state from the sender's
// edge. H/Hu/Hv have length ny (Left/Right) or nx (Bottom/Top); B is empty
// unless ContainsBathymetry is set, which happens exactly once right after
// initialization.
type CopyLayer struct {
	Boundary           types.Boundary // the sender's edge
	ContainsBathymetry bool
	H, Hu, Hv, B       []float32
}

// BlockConnection is one block's view of the channel pair across a shared
// edge.
type BlockConnection struct {
	send chan<- *CopyLayer
	recv <-chan *CopyLayer
}

const connectionBuffer = 2 // one regular layer ahead plus the bathymetry layer

// ErrAborted reports that the simulation was torn down while a block was
// waiting on a neighbour.
var ErrAborted = errors.New("simulation aborted")

// ConnectBlocks wires edge aEdge of block a to the opposite edge of block b
// and marks both edges CONNECT. Both blocks must have matching interior
// sizes along the shared edge.
func ConnectBlocks(a *Block, aEdge types.Boundary, b *Block) error {
	var (
		bEdge = aEdge.Opposite()
	)
	switch aEdge {
	case types.BND_Left, types.BND_Right:
		if a.Ny != b.Ny {
			return fmt.Errorf("vertical edge size mismatch: %d vs %d", a.Ny, b.Ny)
		}
	default:
		if a.Nx != b.Nx {
			return fmt.Errorf("horizontal edge size mismatch: %d vs %d", a.Nx, b.Nx)
		}
	}
	ab := make(chan *CopyLayer, connectionBuffer)
	ba := make(chan *CopyLayer, connectionBuffer)
	a.neighbours[aEdge] = &BlockConnection{send: ab, recv: ba}
	b.neighbours[bEdge] = &BlockConnection{send: ba, recv: ab}
	a.boundaryType[aEdge] = types.BC_Connect
	b.boundaryType[bEdge] = types.BC_Connect
	return nil
}

// SendCopyLayers packs and posts one copy layer per CONNECT edge. The
// message buffers are allocated per send and handed off to the receiver.
func (blk *Block) SendCopyLayers(sendBathymetry bool) {
	var (
		nx, ny = blk.Nx, blk.Ny
	)
	if conn := blk.neighbours[types.BND_Left]; conn != nil {
		// Interior column x=1; contiguous thanks to the column major layout.
		conn.send <- blk.packColumn(types.BND_Left, 1, sendBathymetry)
	}
	if conn := blk.neighbours[types.BND_Right]; conn != nil {
		conn.send <- blk.packColumn(types.BND_Right, nx, sendBathymetry)
	}
	if conn := blk.neighbours[types.BND_Bottom]; conn != nil {
		conn.send <- blk.packRow(types.BND_Bottom, 1, sendBathymetry)
	}
	if conn := blk.neighbours[types.BND_Top]; conn != nil {
		conn.send <- blk.packRow(types.BND_Top, ny, sendBathymetry)
	}
}

func (blk *Block) packColumn(edge types.Boundary, x int, withB bool) (msg *CopyLayer) {
	var (
		ny   = blk.Ny
		msgB []float32
	)
	if withB {
		msgB = make([]float32, ny)
		copy(msgB, blk.b.Col(x)[1:ny+1])
	}
	msg = &CopyLayer{
		Boundary:           edge,
		ContainsBathymetry: withB,
		H:                  make([]float32, ny),
		Hu:                 make([]float32, ny),
		Hv:                 make([]float32, ny),
		B:                  msgB,
	}
	copy(msg.H, blk.h.Col(x)[1:ny+1])
	copy(msg.Hu, blk.hu.Col(x)[1:ny+1])
	copy(msg.Hv, blk.hv.Col(x)[1:ny+1])
	return
}

func (blk *Block) packRow(edge types.Boundary, y int, withB bool) (msg *CopyLayer) {
	var (
		nx   = blk.Nx
		msgB []float32
	)
	if withB {
		msgB = make([]float32, nx)
		blk.b.GatherRow(y, 1, msgB)
	}
	msg = &CopyLayer{
		Boundary:           edge,
		ContainsBathymetry: withB,
		H:                  make([]float32, nx),
		Hu:                 make([]float32, nx),
		Hv:                 make([]float32, nx),
		B:                  msgB,
	}
	blk.h.GatherRow(y, 1, msg.H)
	blk.hu.GatherRow(y, 1, msg.Hu)
	blk.hv.GatherRow(y, 1, msg.Hv)
	return
}

// ReceiveGhostLayers waits for one copy layer per CONNECT edge and unpacks
// each into the matching ghost strip. The wait aborts cleanly when abort is
// closed.
func (blk *Block) ReceiveGhostLayers(abort <-chan struct{}) error {
	for _, edge := range []types.Boundary{
		types.BND_Left, types.BND_Right, types.BND_Bottom, types.BND_Top,
	} {
		conn := blk.neighbours[edge]
		if conn == nil {
			continue
		}
		select {
		case msg := <-conn.recv:
			blk.ProcessCopyLayer(msg)
		case <-abort:
			return ErrAborted
		}
	}
	return nil
}

// ProcessCopyLayer unpacks a neighbour's copy layer into the ghost strip of
// the opposite edge: a layer from the sender's RIGHT edge fills this
// block's LEFT ghost column, and so on.
func (blk *Block) ProcessCopyLayer(msg *CopyLayer) {
	var (
		edge   = msg.Boundary.Opposite()
		nx, ny = blk.Nx, blk.Ny
	)
	if blk.boundaryType[edge] != types.BC_Connect {
		panic(fmt.Sprintf("copy layer from %s edge but %s boundary is %s",
			msg.Boundary, edge, blk.boundaryType[edge]))
	}
	switch edge {
	case types.BND_Left:
		blk.unpackColumn(0, msg)
	case types.BND_Right:
		blk.unpackColumn(nx+1, msg)
	case types.BND_Bottom:
		blk.unpackRow(0, msg)
	case types.BND_Top:
		blk.unpackRow(ny+1, msg)
	}
}

func (blk *Block) unpackColumn(x int, msg *CopyLayer) {
	var (
		ny = blk.Ny
	)
	if msg.ContainsBathymetry {
		copy(blk.b.Col(x)[1:ny+1], msg.B)
	}
	copy(blk.h.Col(x)[1:ny+1], msg.H)
	copy(blk.hu.Col(x)[1:ny+1], msg.Hu)
	copy(blk.hv.Col(x)[1:ny+1], msg.Hv)
}

func (blk *Block) unpackRow(y int, msg *CopyLayer) {
	if msg.ContainsBathymetry {
		blk.b.ScatterRow(y, 1, msg.B)
	}
	blk.h.ScatterRow(y, 1, msg.H)
	blk.hu.ScatterRow(y, 1, msg.Hu)
	blk.hv.ScatterRow(y, 1, msg.Hv)
}
