package SWE2D

import (
	"fmt"
	"math"
	"sync"
)

const (
	gravity = 9.81

	// CFL number of the scheme, strictly below 0.5 to leave headroom on the
	// directionally combined sweeps.
	cflNumber = 0.4

	// Tolerance of the dt cross-check in UpdateUnknowns.
	dtTolerance = 1e-5
)

/*
	ComputeNumericalFluxes runs both sweeps over the pre-step snapshot of
	the unknowns (ghost layers must be fresh and stay frozen throughout)
	and leaves the per-edge net updates in the scratch fields.

	x-sweep: every horizontally adjacent cell pair (x, y), (x+1, y) with
	x in [0,nx], y in [1,ny] poses one Riemann problem; the left-going
	update lands in [x][y] of the Left fields, the right-going one in
	[x+1][y] of the Right fields. The y-sweep is the symmetric transpose
	for x in [1,nx], y in [0,ny].

	Both sweeps parallelize over columns: each worker owns a disjoint
	x-range, so every written element has a unique index, and the wave
	speeds reduce per worker before the final max. The local time step

		maxTimestep = 0.4 * min(dx/maxHorizontalWaveSpeed,
		                        dy/maxVerticalWaveSpeed)

	is stored on the block; a fully dry block yields +Inf, meaning "no
	constraint", and the global reduction picks the true minimum from the
	wet blocks.
*/
func (blk *Block) ComputeNumericalFluxes() {
	var (
		NP = blk.parallelDegree
		wg = sync.WaitGroup{}

		maxHorizontal = make([]float64, NP)
		maxVertical   = make([]float64, NP)
	)

	// x-sweep over the vertical edges
	for np := 0; np < NP; np++ {
		wg.Add(1)
		go func(np int) {
			defer wg.Done()
			var (
				xMin, xMax = blk.sweepMapX.GetBucketRange(np)
				maxWave    float32
			)
			for x := xMin; x < xMax; x++ {
				for y := 1; y <= blk.Ny; y++ {
					hL, hR, huL, huR, wave := blk.solver(
						blk.h.At(x, y), blk.h.At(x+1, y),
						blk.hu.At(x, y), blk.hu.At(x+1, y),
						blk.b.At(x, y), blk.b.At(x+1, y))
					blk.hNetUpdatesLeft.Set(x, y, hL)
					blk.hNetUpdatesRight.Set(x+1, y, hR)
					blk.huNetUpdatesLeft.Set(x, y, huL)
					blk.huNetUpdatesRight.Set(x+1, y, huR)
					if wave > maxWave {
						maxWave = wave
					}
				}
			}
			maxHorizontal[np] = float64(maxWave)
		}(np)
	}
	wg.Wait()

	// y-sweep over the horizontal edges
	for np := 0; np < NP; np++ {
		wg.Add(1)
		go func(np int) {
			defer wg.Done()
			var (
				xMin, xMax = blk.sweepMapY.GetBucketRange(np)
				maxWave    float32
			)
			for x := xMin + 1; x <= xMax; x++ {
				for y := 0; y <= blk.Ny; y++ {
					hB, hA, hvB, hvA, wave := blk.solver(
						blk.h.At(x, y), blk.h.At(x, y+1),
						blk.hv.At(x, y), blk.hv.At(x, y+1),
						blk.b.At(x, y), blk.b.At(x, y+1))
					blk.hNetUpdatesBelow.Set(x, y, hB)
					blk.hNetUpdatesAbove.Set(x, y+1, hA)
					blk.hvNetUpdatesBelow.Set(x, y, hvB)
					blk.hvNetUpdatesAbove.Set(x, y+1, hvA)
					if wave > maxWave {
						maxWave = wave
					}
				}
			}
			maxVertical[np] = float64(maxWave)
		}(np)
	}
	wg.Wait()

	var maxH, maxV float64
	for np := 0; np < NP; np++ {
		maxH = math.Max(maxH, maxHorizontal[np])
		maxV = math.Max(maxV, maxVertical[np])
	}
	blk.maxTimestep = cflNumber * math.Min(blk.Dx/maxH, blk.Dy/maxV)

	// cautious CFL cross-check against each direction
	if maxH > 0 && blk.maxTimestep >= 0.5*blk.Dx/maxH {
		panic(fmt.Sprintf("CFL violation in x: dt=%g exceeds %g", blk.maxTimestep, 0.5*blk.Dx/maxH))
	}
	if maxV > 0 && blk.maxTimestep >= 0.5*blk.Dy/maxV {
		panic(fmt.Sprintf("CFL violation in y: dt=%g exceeds %g", blk.maxTimestep, 0.5*blk.Dy/maxV))
	}
}

/*
	UpdateUnknowns applies the accumulated net updates to the interior cells
	under the globally agreed dt. The reduced dt was written back into
	maxTimestep by the coordinator; a disagreement beyond the tolerance
	means the reduction protocol broke and is fatal.
*/
func (blk *Block) UpdateUnknowns(dt float64) {
	if math.Abs(dt-blk.maxTimestep) >= dtTolerance {
		panic(fmt.Sprintf("dt %g disagrees with the reduced local dt %g", dt, blk.maxTimestep))
	}
	var (
		NP = blk.parallelDegree
		wg = sync.WaitGroup{}

		ddx = float32(dt / blk.Dx)
		ddy = float32(dt / blk.Dy)
	)
	for np := 0; np < NP; np++ {
		wg.Add(1)
		go func(np int) {
			defer wg.Done()
			xMin, xMax := blk.sweepMapY.GetBucketRange(np)
			for x := xMin + 1; x <= xMax; x++ {
				for y := 1; y <= blk.Ny; y++ {
					blk.h.Set(x, y, blk.h.At(x, y)-
						ddx*(blk.hNetUpdatesRight.At(x, y)+blk.hNetUpdatesLeft.At(x, y))-
						ddy*(blk.hNetUpdatesAbove.At(x, y)+blk.hNetUpdatesBelow.At(x, y)))
					blk.hu.Set(x, y, blk.hu.At(x, y)-
						ddx*(blk.huNetUpdatesRight.At(x, y)+blk.huNetUpdatesLeft.At(x, y)))
					blk.hv.Set(x, y, blk.hv.At(x, y)-
						ddy*(blk.hvNetUpdatesAbove.At(x, y)+blk.hvNetUpdatesBelow.At(x, y)))
				}
			}
		}(np)
	}
	wg.Wait()
}
