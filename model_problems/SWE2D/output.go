package SWE2D

import "github.com/oldenj/shallow-water-equations/utils"

// Writer consumes one time slice of a block's unknowns per checkpoint. The
// fields include the one cell ghost frame; writers strip it on output.
// Write errors abort the whole simulation.
type Writer interface {
	WriteTimeStep(h, hu, hv utils.Float2D, t float64) error
	Close() error
}
