package SWE2D

import (
	"fmt"
	"math"

	"github.com/oldenj/shallow-water-equations/types"
	"github.com/oldenj/shallow-water-equations/utils"
)

/*
	Block owns one tile of the global Cartesian grid and the full per-step
	pipeline on it: ghost layer maintenance, the two flux sweeps, the
	unknown update and checkpoint output.

	Every unknown is stored on the (nx+2) x (ny+2) grid including the one
	cell ghost frame; the interior is [1,nx] x [1,ny]. An index pair [x][y]
	addresses the actual position (x, y), so parts of some net update arrays
	stay unused rather than shifting indices around.

	A Block implements the three-operation contract shared by all block
	flavors (BlockOperator): SetGhostLayer, ComputeNumericalFluxes,
	UpdateUnknowns.
*/
type Block struct {
	// Immutable identity
	Nx, Ny           int     // interior cell counts
	Dx, Dy           float64 // cell sizes
	OriginX, OriginY float64 // physical position of the left-bottom corner
	PosX, PosY       int     // position on the block lattice

	boundaryType [types.NumBoundaries]types.BoundaryType

	// Unknowns, single precision with a one cell ghost frame
	h, hu, hv, b utils.Float2D

	// Net updates of the x-sweep
	hNetUpdatesLeft, hNetUpdatesRight   utils.Float2D
	huNetUpdatesLeft, huNetUpdatesRight utils.Float2D

	// Net updates of the y-sweep
	hNetUpdatesBelow, hNetUpdatesAbove   utils.Float2D
	hvNetUpdatesBelow, hvNetUpdatesAbove utils.Float2D

	solver         RiemannSolver
	sweepMapX      *utils.PartitionMap // partitions the nx+1 vertical edge columns
	sweepMapY      *utils.PartitionMap // partitions the nx interior columns
	parallelDegree int

	// Copy-layer connections per edge, nil unless the boundary is CONNECT
	neighbours [types.NumBoundaries]*BlockConnection

	writer Writer

	maxTimestep           float64 // local dt after the sweeps, global dt after the reduction
	currentSimulationTime float64
	currentCheckpoint     int
	stepCount             int

	Timers utils.BlockTimers
}

// BlockOperator is the narrow contract every block flavor exposes to the
// time-step coordinator.
type BlockOperator interface {
	SetGhostLayer()
	ComputeNumericalFluxes()
	UpdateUnknowns(dt float64)
}

// RiemannSolver is the external flux kernel invoked per cell pair. It must
// be pure and safe to call concurrently on disjoint cells.
type RiemannSolver func(hL, hR, huL, huR, bL, bR float32) (
	hUpdateL, hUpdateR, huUpdateL, huUpdateR, maxWaveSpeed float32)

func NewBlock(nx, ny int, dx, dy, originX, originY float64, posX, posY int,
	solver RiemannSolver, parallelDegree int) (blk *Block, err error) {
	if nx < 1 || ny < 1 {
		return nil, fmt.Errorf("invalid cell counts (%d, %d)", nx, ny)
	}
	if dx <= 0 || dy <= 0 {
		return nil, fmt.Errorf("invalid cell sizes (%g, %g)", dx, dy)
	}
	if solver == nil {
		return nil, fmt.Errorf("no Riemann solver supplied")
	}
	if parallelDegree < 1 {
		parallelDegree = 1
	}
	if parallelDegree > nx {
		parallelDegree = nx
	}
	blk = &Block{
		Nx:      nx,
		Ny:      ny,
		Dx:      dx,
		Dy:      dy,
		OriginX: originX,
		OriginY: originY,
		PosX:    posX,
		PosY:    posY,

		h:  utils.NewFloat2D(nx+2, ny+2),
		hu: utils.NewFloat2D(nx+2, ny+2),
		hv: utils.NewFloat2D(nx+2, ny+2),
		b:  utils.NewFloat2D(nx+2, ny+2),

		hNetUpdatesLeft:   utils.NewFloat2D(nx+2, ny+2),
		hNetUpdatesRight:  utils.NewFloat2D(nx+2, ny+2),
		huNetUpdatesLeft:  utils.NewFloat2D(nx+2, ny+2),
		huNetUpdatesRight: utils.NewFloat2D(nx+2, ny+2),

		hNetUpdatesBelow:  utils.NewFloat2D(nx+1, ny+2),
		hNetUpdatesAbove:  utils.NewFloat2D(nx+1, ny+2),
		hvNetUpdatesBelow: utils.NewFloat2D(nx+1, ny+2),
		hvNetUpdatesAbove: utils.NewFloat2D(nx+1, ny+2),

		solver:         solver,
		parallelDegree: parallelDegree,
	}
	blk.sweepMapX = utils.NewPartitionMap(parallelDegree, nx+1)
	blk.sweepMapY = utils.NewPartitionMap(parallelDegree, nx)
	for i := range blk.boundaryType {
		blk.boundaryType[i] = types.BC_Passive
	}
	return
}

// Default getter methods, mainly for writers and tests.

func (blk *Block) CellCountHorizontal() int          { return blk.Nx }
func (blk *Block) CellCountVertical() int            { return blk.Ny }
func (blk *Block) CellSizeHorizontal() float64       { return blk.Dx }
func (blk *Block) CellSizeVertical() float64         { return blk.Dy }
func (blk *Block) WaterHeight() utils.Float2D        { return blk.h }
func (blk *Block) MomentumHorizontal() utils.Float2D { return blk.hu }
func (blk *Block) MomentumVertical() utils.Float2D   { return blk.hv }
func (blk *Block) Bathymetry() utils.Float2D         { return blk.b }
func (blk *Block) MaxTimestep() float64              { return blk.maxTimestep }
func (blk *Block) CurrentSimulationTime() float64    { return blk.currentSimulationTime }

func (blk *Block) BoundaryTypes() [types.NumBoundaries]types.BoundaryType {
	return blk.boundaryType
}

func (blk *Block) SetBoundaryType(edge types.Boundary, bt types.BoundaryType) {
	blk.boundaryType[edge] = bt
	if bt == types.BC_Wall || bt == types.BC_Outflow {
		blk.ApplyBoundaryBathymetry()
	}
}

func (blk *Block) SetWriter(w Writer) { blk.writer = w }

// InitScenario samples the scenario at the interior cell centers, installs
// the boundary type vector and fills the ghost frames.
func (blk *Block) InitScenario(scenario Scenario,
	boundaries [types.NumBoundaries]types.BoundaryType) {
	for i := 1; i <= blk.Nx; i++ {
		for j := 1; j <= blk.Ny; j++ {
			// Index [1][1] maps to the cell centered half a cell size off the
			// block origin.
			x := blk.OriginX + (float64(i)-0.5)*blk.Dx
			y := blk.OriginY + (float64(j)-0.5)*blk.Dy
			h := scenario.GetWaterHeight(x, y)
			blk.b.Set(i, j, scenario.GetBathymetry(x, y))
			blk.h.Set(i, j, h)
			blk.hu.Set(i, j, scenario.GetVeloc_u(x, y)*h)
			blk.hv.Set(i, j, scenario.GetVeloc_v(x, y)*h)
		}
	}
	blk.boundaryType = boundaries
	blk.ApplyBoundaryConditions()
	blk.ApplyBoundaryBathymetry()
}

// SetGhostLayer fills the outer ghost cells; CONNECT edges are refreshed
// separately by the copy-layer exchange.
func (blk *Block) SetGhostLayer() {
	blk.ApplyBoundaryConditions()
}

/*
	ApplyBoundaryBathymetry copies the adjacent interior strips into the
	ghost strips on WALL and OUTFLOW edges, then fills the four corner ghost
	cells with their diagonal interior neighbours. It must run once after
	the initial scenario load and whenever a boundary changes to
	WALL/OUTFLOW; bathymetry is immutable otherwise.
*/
func (blk *Block) ApplyBoundaryBathymetry() {
	var (
		nx, ny = blk.Nx, blk.Ny
	)
	if blk.isMirroredBathymetry(types.BND_Left) {
		copy(blk.b.Col(0), blk.b.Col(1)) // contiguous, column major
	}
	if blk.isMirroredBathymetry(types.BND_Right) {
		copy(blk.b.Col(nx+1), blk.b.Col(nx))
	}
	if blk.isMirroredBathymetry(types.BND_Bottom) {
		for i := 0; i <= nx+1; i++ {
			blk.b.Set(i, 0, blk.b.At(i, 1))
		}
	}
	if blk.isMirroredBathymetry(types.BND_Top) {
		for i := 0; i <= nx+1; i++ {
			blk.b.Set(i, ny+1, blk.b.At(i, ny))
		}
	}

	blk.b.Set(0, 0, blk.b.At(1, 1))
	blk.b.Set(0, ny+1, blk.b.At(1, ny))
	blk.b.Set(nx+1, 0, blk.b.At(nx, 1))
	blk.b.Set(nx+1, ny+1, blk.b.At(nx, ny))
}

func (blk *Block) isMirroredBathymetry(edge types.Boundary) bool {
	bt := blk.boundaryType[edge]
	return bt == types.BC_Wall || bt == types.BC_Outflow
}

/*
	ApplyBoundaryConditions fills the ghost cells of the outer edges before
	every flux computation. WALL mirrors h and the tangential momentum and
	negates the normal momentum; OUTFLOW copies all three unknowns. CONNECT
	ghost cells are owned by the copy-layer exchange and PASSIVE ones by the
	embedding caller.

	The corner ghost cells take the value of the diagonal interior
	neighbour, which poses a zero Riemann problem across the corner - the
	dimensionally split sweeps touch the corner cells and need a steady
	state there.
*/
func (blk *Block) ApplyBoundaryConditions() {
	var (
		nx, ny = blk.Nx, blk.Ny
	)
	switch blk.boundaryType[types.BND_Left] {
	case types.BC_Wall:
		for j := 1; j <= ny; j++ {
			blk.h.Set(0, j, blk.h.At(1, j))
			blk.hu.Set(0, j, -blk.hu.At(1, j))
			blk.hv.Set(0, j, blk.hv.At(1, j))
		}
	case types.BC_Outflow:
		for j := 1; j <= ny; j++ {
			blk.h.Set(0, j, blk.h.At(1, j))
			blk.hu.Set(0, j, blk.hu.At(1, j))
			blk.hv.Set(0, j, blk.hv.At(1, j))
		}
	case types.BC_Connect, types.BC_Passive:
	default:
		panic(fmt.Sprintf("unknown boundary type %d on left edge", blk.boundaryType[types.BND_Left]))
	}

	switch blk.boundaryType[types.BND_Right] {
	case types.BC_Wall:
		for j := 1; j <= ny; j++ {
			blk.h.Set(nx+1, j, blk.h.At(nx, j))
			blk.hu.Set(nx+1, j, -blk.hu.At(nx, j))
			blk.hv.Set(nx+1, j, blk.hv.At(nx, j))
		}
	case types.BC_Outflow:
		for j := 1; j <= ny; j++ {
			blk.h.Set(nx+1, j, blk.h.At(nx, j))
			blk.hu.Set(nx+1, j, blk.hu.At(nx, j))
			blk.hv.Set(nx+1, j, blk.hv.At(nx, j))
		}
	case types.BC_Connect, types.BC_Passive:
	default:
		panic(fmt.Sprintf("unknown boundary type %d on right edge", blk.boundaryType[types.BND_Right]))
	}

	switch blk.boundaryType[types.BND_Bottom] {
	case types.BC_Wall:
		for i := 1; i <= nx; i++ {
			blk.h.Set(i, 0, blk.h.At(i, 1))
			blk.hu.Set(i, 0, blk.hu.At(i, 1))
			blk.hv.Set(i, 0, -blk.hv.At(i, 1))
		}
	case types.BC_Outflow:
		for i := 1; i <= nx; i++ {
			blk.h.Set(i, 0, blk.h.At(i, 1))
			blk.hu.Set(i, 0, blk.hu.At(i, 1))
			blk.hv.Set(i, 0, blk.hv.At(i, 1))
		}
	case types.BC_Connect, types.BC_Passive:
	default:
		panic(fmt.Sprintf("unknown boundary type %d on bottom edge", blk.boundaryType[types.BND_Bottom]))
	}

	switch blk.boundaryType[types.BND_Top] {
	case types.BC_Wall:
		for i := 1; i <= nx; i++ {
			blk.h.Set(i, ny+1, blk.h.At(i, ny))
			blk.hu.Set(i, ny+1, blk.hu.At(i, ny))
			blk.hv.Set(i, ny+1, -blk.hv.At(i, ny))
		}
	case types.BC_Outflow:
		for i := 1; i <= nx; i++ {
			blk.h.Set(i, ny+1, blk.h.At(i, ny))
			blk.hu.Set(i, ny+1, blk.hu.At(i, ny))
			blk.hv.Set(i, ny+1, blk.hv.At(i, ny))
		}
	case types.BC_Connect, types.BC_Passive:
	default:
		panic(fmt.Sprintf("unknown boundary type %d on top edge", blk.boundaryType[types.BND_Top]))
	}

	blk.setCorner(0, 0, 1, 1)
	blk.setCorner(0, ny+1, 1, ny)
	blk.setCorner(nx+1, 0, nx, 1)
	blk.setCorner(nx+1, ny+1, nx, ny)
}

func (blk *Block) setCorner(gx, gy, ix, iy int) {
	blk.h.Set(gx, gy, blk.h.At(ix, iy))
	blk.hu.Set(gx, gy, blk.hu.At(ix, iy))
	blk.hv.Set(gx, gy, blk.hv.At(ix, iy))
}

/*
	ReferenceMaxTimestep is the base reference for the CFL bound, estimating
	the fastest wave from the cell-local particle velocity plus sqrt(g*h).
	The canonical dt path is ComputeNumericalFluxes, which bounds dt with
	the exact wave speeds returned by the flux kernel; this estimate exists
	for cross-checks.
*/
func (blk *Block) ReferenceMaxTimestep(dryTol, cflNumber float64) (dt float64) {
	var (
		maximumWaveSpeed float64
	)
	for i := 1; i <= blk.Nx; i++ {
		for j := 1; j <= blk.Ny; j++ {
			h := float64(blk.h.At(i, j))
			if h > dryTol {
				momentum := math.Max(
					math.Abs(float64(blk.hu.At(i, j))),
					math.Abs(float64(blk.hv.At(i, j))))
				waveSpeed := momentum/h + math.Sqrt(gravity*h)
				maximumWaveSpeed = math.Max(maximumWaveSpeed, waveSpeed)
			}
		}
	}
	dt = cflNumber * math.Min(blk.Dx, blk.Dy) / maximumWaveSpeed
	return
}

func (blk *Block) writeTimestep() error {
	if blk.writer == nil {
		return nil
	}
	return blk.writer.WriteTimeStep(blk.h, blk.hu, blk.hv, blk.currentSimulationTime)
}
