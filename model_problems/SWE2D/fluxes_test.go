package SWE2D

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oldenj/shallow-water-equations/solvers"
	"github.com/oldenj/shallow-water-equations/types"
)

func TestComputeNumericalFluxes(t *testing.T) {
	{ // The local dt follows 0.4*min(dx/maxHorizontal, dy/maxVertical); with
		// a mock kernel of constant wave speed both directions see the same
		// wave speed and the smaller cell size wins
		mock := func(hL, hR, huL, huR, bL, bR float32) (a, b, c, d, speed float32) {
			return 0, 0, 0, 0, 2.5
		}
		blk, err := NewBlock(10, 6, 8, 12, 0, 0, 0, 0, mock, 3)
		require.NoError(t, err)
		blk.InitScenario(&SuppliedScenario{
			WaterHeight: func(x, y float64) float32 { return 1 },
		}, allWall())
		blk.ComputeNumericalFluxes()
		assert.InDelta(t, 0.4*8/2.5, blk.MaxTimestep(), 1e-12)
	}
	{ // A fully dry block yields no time step constraint
		blk, err := NewBlock(4, 4, 10, 10, 0, 0, 0, 0, solvers.ComputeNetUpdates, 1)
		require.NoError(t, err)
		blk.InitScenario(&SuppliedScenario{
			Bathymetry: func(x, y float64) float32 { return 5 },
		}, allWall())
		blk.ComputeNumericalFluxes()
		assert.True(t, math.IsInf(blk.MaxTimestep(), 1))
	}
	{ // Steady lake over a bathymetry bump: every net update vanishes, so
		// the state is preserved exactly by the following update
		blk := newTestBlock(t, 12, 12)
		blk.Dx, blk.Dy = 100, 100
		scenario := NewLakeAtRestScenario()
		blk.InitScenario(scenario, allWall())
		before := blk.h.Copy()

		blk.SetGhostLayer()
		blk.ComputeNumericalFluxes()
		dt := blk.MaxTimestep()
		assert.False(t, math.IsInf(dt, 1))
		blk.UpdateUnknowns(dt)

		for i := 1; i <= 12; i++ {
			for j := 1; j <= 12; j++ {
				assert.InDelta(t, float64(before.At(i, j)), float64(blk.h.At(i, j)), 1e-5)
				assert.InDelta(t, 0, float64(blk.hu.At(i, j)), 1e-6)
				assert.InDelta(t, 0, float64(blk.hv.At(i, j)), 1e-6)
			}
		}
	}
	{ // Net update bookkeeping: a kernel that hands each side its input
		// height lets us check which slot each edge writes
		record := func(hL, hR, huL, huR, bL, bR float32) (a, b, c, d, speed float32) {
			return hL, hR, hL, hR, 1
		}
		blk, err := NewBlock(3, 3, 10, 10, 0, 0, 0, 0, record, 1)
		require.NoError(t, err)
		blk.InitScenario(&SuppliedScenario{
			WaterHeight: func(x, y float64) float32 { return float32(x + 100*y) },
		}, allOutflow())
		blk.ComputeNumericalFluxes()

		// The x-sweep pairs (x, y) and (x+1, y): the left-going update of the
		// pair lands at [x][y], the right-going one at [x+1][y]
		for x := 0; x <= 3; x++ {
			for y := 1; y <= 3; y++ {
				assert.Equal(t, blk.h.At(x, y), blk.hNetUpdatesLeft.At(x, y))
				assert.Equal(t, blk.h.At(x+1, y), blk.hNetUpdatesRight.At(x+1, y))
			}
		}
		// The y-sweep pairs (x, y) and (x, y+1)
		for x := 1; x <= 3; x++ {
			for y := 0; y <= 3; y++ {
				assert.Equal(t, blk.h.At(x, y), blk.hNetUpdatesBelow.At(x, y))
				assert.Equal(t, blk.h.At(x, y+1), blk.hNetUpdatesAbove.At(x, y+1))
			}
		}
	}
}

func TestUpdateUnknowns(t *testing.T) {
	{ // The update applies the exact finite volume formulas per cell
		mock := func(hL, hR, huL, huR, bL, bR float32) (a, b, c, d, speed float32) {
			return 1, 2, 3, 4, 1
		}
		blk, err := NewBlock(3, 3, 10, 20, 0, 0, 0, 0, mock, 1)
		require.NoError(t, err)
		blk.InitScenario(&SuppliedScenario{
			WaterHeight: func(x, y float64) float32 { return 50 },
		}, allWall())
		blk.ComputeNumericalFluxes()
		dt := blk.MaxTimestep()
		blk.UpdateUnknowns(dt)

		var (
			ddx = float32(dt / 10)
			ddy = float32(dt / 20)
		)
		// Every interior cell accumulates Right+Left = 2+1 in x and
		// Above+Below = 2+1 in y for h; 4+3 for the momenta
		for i := 1; i <= 3; i++ {
			for j := 1; j <= 3; j++ {
				assert.InDelta(t, float64(50-ddx*3-ddy*3), float64(blk.h.At(i, j)), 1e-5)
				assert.InDelta(t, float64(0-ddx*7), float64(blk.hu.At(i, j)), 1e-5)
				assert.InDelta(t, float64(0-ddy*7), float64(blk.hv.At(i, j)), 1e-5)
			}
		}
	}
	{ // A dt that disagrees with the reduced local dt is fatal
		blk := newTestBlock(t, 4, 4)
		blk.InitScenario(&SuppliedScenario{
			WaterHeight: func(x, y float64) float32 { return 10 },
		}, allWall())
		blk.ComputeNumericalFluxes()
		assert.Panics(t, func() {
			blk.UpdateUnknowns(blk.MaxTimestep() + 1)
		})
	}
}

func TestBoundaryTypeDispatch(t *testing.T) {
	// An unknown boundary type must be caught, not silently skipped
	blk := newTestBlock(t, 3, 3)
	blk.InitScenario(rampScenario(), allWall())
	blk.boundaryType[types.BND_Top] = types.BoundaryType(99)
	assert.Panics(t, func() { blk.ApplyBoundaryConditions() })
}
