package SWE2D

import (
	"fmt"
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/oldenj/shallow-water-equations/solvers"
	"github.com/oldenj/shallow-water-equations/types"
	"github.com/oldenj/shallow-water-equations/utils"
)

/*
	Simulation assembles a BlockCountX x BlockCountY lattice of blocks over
	the global grid and drives them to completion. Every block runs the same
	per-step state machine on its own goroutine:

		INIT -> EXCHANGE_BATHY -> [APPLY_BC -> SEND/RECV HALO ->
		COMPUTE_FLUX -> REDUCE_DT -> UPDATE -> ADVANCE_CLOCK ->
		(MAYBE_WRITE)]* -> DONE

	Blocks coordinate only through the copy-layer channels and the global
	minimum reduction of the time step; there is no shared mutable state
	between them. All configuration is fixed at construction.
*/
type Simulation struct {
	Config

	blocks  []*Block // column major on the lattice: index posX*BlockCountY + posY
	writers []Writer

	dtReducer               *utils.MinReducer
	checkpointInstantOfTime []float64

	abort    chan struct{}
	failOnce sync.Once
	firstErr error

	logger *log.Logger
}

// Config is the immutable launcher configuration handed to NewSimulation.
type Config struct {
	// Global interior grid and its partitioning
	CellCountX, CellCountY   int
	BlockCountX, BlockCountY int

	CellSizeX, CellSizeY float64
	OriginX, OriginY     float64

	SimulationDuration float64
	CheckpointCount    int

	// Boundary treatment of the four outer domain edges; inner edges are
	// always CONNECT.
	Boundaries [types.NumBoundaries]types.BoundaryType

	Scenario Scenario

	// Solver is the Riemann flux kernel; nil selects the f-wave solver.
	Solver RiemannSolver

	// WriterFactory builds the per-block checkpoint writer; nil disables
	// output.
	WriterFactory func(blk *Block) (Writer, error)

	// ParallelDegree is the total number of sweep workers, divided over
	// the blocks; 0 means one worker per CPU.
	ParallelDegree int

	Verbose bool
}

func (cfg *Config) validate() error {
	if cfg.CellCountX < 1 || cfg.CellCountY < 1 {
		return fmt.Errorf("invalid global cell counts (%d, %d)", cfg.CellCountX, cfg.CellCountY)
	}
	if cfg.BlockCountX < 1 || cfg.BlockCountY < 1 {
		return fmt.Errorf("invalid block counts (%d, %d)", cfg.BlockCountX, cfg.BlockCountY)
	}
	if cfg.BlockCountX > cfg.CellCountX || cfg.BlockCountY > cfg.CellCountY {
		return fmt.Errorf("more blocks (%d, %d) than cells (%d, %d)",
			cfg.BlockCountX, cfg.BlockCountY, cfg.CellCountX, cfg.CellCountY)
	}
	if cfg.CellSizeX <= 0 || cfg.CellSizeY <= 0 {
		return fmt.Errorf("invalid cell sizes (%g, %g)", cfg.CellSizeX, cfg.CellSizeY)
	}
	if cfg.SimulationDuration <= 0 {
		return fmt.Errorf("invalid simulation duration %g", cfg.SimulationDuration)
	}
	if cfg.CheckpointCount < 1 {
		return fmt.Errorf("invalid checkpoint count %d", cfg.CheckpointCount)
	}
	if cfg.Scenario == nil {
		return fmt.Errorf("no scenario supplied")
	}
	for edge, bt := range cfg.Boundaries {
		if bt == types.BC_Connect {
			return fmt.Errorf("outer %s edge cannot be CONNECT", types.Boundary(edge))
		}
	}
	return nil
}

func NewSimulation(cfg Config, logger *log.Logger) (sim *Simulation, err error) {
	if err = cfg.validate(); err != nil {
		return
	}
	if cfg.Solver == nil {
		cfg.Solver = solvers.ComputeNetUpdates
	}
	if logger == nil {
		logger = log.Default()
	}

	var (
		BX, BY    = cfg.BlockCountX, cfg.BlockCountY
		numBlocks = BX * BY
		pmX       = utils.NewPartitionMap(BX, cfg.CellCountX)
		pmY       = utils.NewPartitionMap(BY, cfg.CellCountY)
		degree    = cfg.ParallelDegree
	)
	if degree == 0 {
		degree = runtime.NumCPU()
	}
	threadsPerBlock := degree / numBlocks
	if threadsPerBlock < 1 {
		threadsPerBlock = 1
	}

	sim = &Simulation{
		Config:    cfg,
		blocks:    make([]*Block, numBlocks),
		dtReducer: utils.NewMinReducer(numBlocks),
		abort:     make(chan struct{}),
		logger:    logger,
	}

	// Checkpoint k is reached at (k+1) * duration/count; the initial state
	// is written separately at t=0.
	sim.checkpointInstantOfTime = make([]float64, cfg.CheckpointCount)
	for k := range sim.checkpointInstantOfTime {
		sim.checkpointInstantOfTime[k] = float64(k+1) * cfg.SimulationDuration / float64(cfg.CheckpointCount)
	}

	for posX := 0; posX < BX; posX++ {
		for posY := 0; posY < BY; posY++ {
			var (
				xMin, _ = pmX.GetBucketRange(posX)
				yMin, _ = pmY.GetBucketRange(posY)
				nx      = pmX.GetBucketDimension(posX)
				ny      = pmY.GetBucketDimension(posY)
				originX = cfg.OriginX + float64(xMin)*cfg.CellSizeX
				originY = cfg.OriginY + float64(yMin)*cfg.CellSizeY
			)
			blk, berr := NewBlock(nx, ny, cfg.CellSizeX, cfg.CellSizeY,
				originX, originY, posX, posY, cfg.Solver, threadsPerBlock)
			if berr != nil {
				return nil, berr
			}

			boundaries := [types.NumBoundaries]types.BoundaryType{}
			boundaries[types.BND_Left] = innerOrOuter(posX > 0, cfg.Boundaries[types.BND_Left])
			boundaries[types.BND_Right] = innerOrOuter(posX < BX-1, cfg.Boundaries[types.BND_Right])
			boundaries[types.BND_Bottom] = innerOrOuter(posY > 0, cfg.Boundaries[types.BND_Bottom])
			boundaries[types.BND_Top] = innerOrOuter(posY < BY-1, cfg.Boundaries[types.BND_Top])
			blk.InitScenario(cfg.Scenario, boundaries)

			sim.blocks[posX*BY+posY] = blk
		}
	}

	// Wire the copy-layer channel pairs between lattice neighbours.
	for posX := 0; posX < BX; posX++ {
		for posY := 0; posY < BY; posY++ {
			blk := sim.Block(posX, posY)
			if posX < BX-1 {
				if err = ConnectBlocks(blk, types.BND_Right, sim.Block(posX+1, posY)); err != nil {
					return nil, err
				}
			}
			if posY < BY-1 {
				if err = ConnectBlocks(blk, types.BND_Top, sim.Block(posX, posY+1)); err != nil {
					return nil, err
				}
			}
		}
	}

	if cfg.WriterFactory != nil {
		for _, blk := range sim.blocks {
			w, werr := cfg.WriterFactory(blk)
			if werr != nil {
				sim.closeWriters()
				return nil, werr
			}
			blk.SetWriter(w)
			sim.writers = append(sim.writers, w)
		}
	}

	logger.Info("simulation assembled",
		"blocks", numBlocks, "lattice", fmt.Sprintf("%dx%d", BX, BY),
		"grid", fmt.Sprintf("%dx%d", cfg.CellCountX, cfg.CellCountY),
		"threadsPerBlock", threadsPerBlock)
	return
}

func innerOrOuter(inner bool, outer types.BoundaryType) types.BoundaryType {
	if inner {
		return types.BC_Connect
	}
	return outer
}

// Block returns the block at lattice position (posX, posY).
func (sim *Simulation) Block(posX, posY int) *Block {
	return sim.blocks[posX*sim.BlockCountY+posY]
}

// Blocks returns all blocks in lattice column major order.
func (sim *Simulation) Blocks() []*Block { return sim.blocks }

// RecombineField gathers the interiors of a per-block field into one global
// field without ghost cells, indexed [0,CellCountX) x [0,CellCountY).
func (sim *Simulation) RecombineField(get func(*Block) utils.Float2D) utils.Float2D {
	var (
		out = utils.NewFloat2D(sim.CellCountX, sim.CellCountY)
		pmX = utils.NewPartitionMap(sim.BlockCountX, sim.CellCountX)
		pmY = utils.NewPartitionMap(sim.BlockCountY, sim.CellCountY)
	)
	for posX := 0; posX < sim.BlockCountX; posX++ {
		xMin, _ := pmX.GetBucketRange(posX)
		for posY := 0; posY < sim.BlockCountY; posY++ {
			yMin, _ := pmY.GetBucketRange(posY)
			var (
				blk = sim.Block(posX, posY)
				f   = get(blk)
			)
			for i := 1; i <= blk.Nx; i++ {
				for j := 1; j <= blk.Ny; j++ {
					out.Set(xMin+i-1, yMin+j-1, f.At(i, j))
				}
			}
		}
	}
	return out
}

// Err reports the first failure after Run returns.
func (sim *Simulation) Err() error { return sim.firstErr }

func (sim *Simulation) fail(err error) {
	sim.failOnce.Do(func() {
		sim.firstErr = err
		sim.dtReducer.Abort()
		close(sim.abort)
		sim.logger.Error("aborting simulation", "err", err)
	})
}

func (sim *Simulation) closeWriters() {
	for _, w := range sim.writers {
		if cerr := w.Close(); cerr != nil && sim.firstErr == nil {
			sim.firstErr = cerr
		}
	}
	sim.writers = nil
}

// Run executes the simulation to completion and returns the first error, if
// any. It is a one-shot call.
func (sim *Simulation) Run() error {
	var (
		wg    = sync.WaitGroup{}
		start = time.Now()
	)
	if sim.Verbose {
		fmt.Printf("Solving until simulation duration = %8.5f over %d checkpoints\n",
			sim.SimulationDuration, sim.CheckpointCount)
		fmt.Printf("    step      time        dt  checkpoint\n")
	}
	for _, blk := range sim.blocks {
		wg.Add(1)
		go func(blk *Block) {
			defer wg.Done()
			if err := sim.runBlock(blk); err != nil && err != ErrAborted {
				sim.fail(err)
			}
		}(blk)
	}
	wg.Wait()
	sim.closeWriters()
	if sim.firstErr == nil {
		sim.printFinal(time.Since(start))
	}
	return sim.firstErr
}

// runBlock is the per-block state machine: halo exchange, sweeps, the dt
// collective, the update, and checkpointing.
func (sim *Simulation) runBlock(blk *Block) (err error) {
	blk.Timers.Wall.Start()
	defer blk.Timers.Wall.Stop()

	sim.logger.Debug("block spawned", "posX", blk.PosX, "posY", blk.PosY,
		"nx", blk.Nx, "ny", blk.Ny)

	// Initial state at t=0, before any step runs.
	if err = blk.writeTimestep(); err != nil {
		return
	}

	// One-time bathymetry exchange so CONNECT ghost bathymetry is in place
	// before the first sweep.
	blk.Timers.Exchange.Start()
	blk.SendCopyLayers(true)
	err = blk.ReceiveGhostLayers(sim.abort)
	blk.Timers.Exchange.Stop()
	if err != nil {
		return
	}

	for blk.currentCheckpoint < sim.CheckpointCount {
		blk.SetGhostLayer()

		blk.Timers.Exchange.Start()
		blk.SendCopyLayers(false)
		err = blk.ReceiveGhostLayers(sim.abort)
		blk.Timers.Exchange.Stop()
		if err != nil {
			return
		}

		blk.Timers.Compute.Start()
		blk.ComputeNumericalFluxes()
		blk.Timers.Compute.Stop()

		blk.Timers.Exchange.Start()
		dt := sim.dtReducer.Reduce(blk.maxTimestep)
		blk.Timers.Exchange.Stop()
		if math.IsNaN(dt) {
			return ErrAborted
		}
		// The reduced dt becomes the authoritative step size.
		blk.maxTimestep = dt

		blk.Timers.Compute.Start()
		blk.UpdateUnknowns(dt)
		blk.Timers.Compute.Stop()

		blk.currentSimulationTime += dt
		blk.stepCount++

		for blk.currentCheckpoint < sim.CheckpointCount &&
			blk.currentSimulationTime >= sim.checkpointInstantOfTime[blk.currentCheckpoint] {
			if err = blk.writeTimestep(); err != nil {
				return
			}
			blk.currentCheckpoint++
			if sim.Verbose && blk.PosX == 0 && blk.PosY == 0 {
				fmt.Printf("%8d%10.4f%10.6f  %4d/%d\n",
					blk.stepCount, blk.currentSimulationTime, dt,
					blk.currentCheckpoint, sim.CheckpointCount)
			}
		}
	}
	sim.logger.Debug("block finished", "posX", blk.PosX, "posY", blk.PosY,
		"steps", blk.stepCount,
		"compute", blk.Timers.Compute.Elapsed(),
		"exchange", blk.Timers.Exchange.Elapsed())
	return nil
}

func (sim *Simulation) printFinal(elapsed time.Duration) {
	var (
		cells   = sim.CellCountX * sim.CellCountY
		steps   int
		compute time.Duration
	)
	for _, blk := range sim.blocks {
		if blk.stepCount > steps {
			steps = blk.stepCount
		}
		compute += blk.Timers.Compute.Elapsed()
	}
	if steps == 0 {
		return
	}
	rate := float64(compute.Microseconds()) / float64(cells*steps)
	sim.logger.Info("simulation finished",
		"steps", steps, "elapsed", elapsed.Round(time.Millisecond),
		"usPerCellStep", fmt.Sprintf("%8.5f", rate))
}
