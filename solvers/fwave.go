package solvers

import "math"

/*
	F-wave solver for the one dimensional shallow water Riemann problem

		q_t + f(q)_x = psi(x)
		q = [h, hu], f(q) = [hu, hu^2/h + g/2 h^2], psi = [0, -g h b_x]

	posed between a left and a right cell state. The flux difference,
	corrected by the bathymetry source term, is decomposed onto the Roe
	eigenvectors; each resulting wave is accumulated into the net update of
	the side it travels towards. The same kernel serves the x-sweep (pass hu)
	and the y-sweep (pass hv) of the dimensionally split scheme.

	The solver is pure and allocation free, so it is safe to invoke
	concurrently on disjoint cell pairs.
*/

const (
	Gravity = 9.81

	// Cells with less water than DryTol are treated as dry; the interface
	// between a wet and a dry cell acts as a reflecting wall.
	DryTol = 0.01

	// Wave speeds below zeroTol in magnitude are treated as stationary and
	// split evenly between both sides.
	zeroTol = 1e-7
)

// ComputeNetUpdates solves the Riemann problem between two adjacent cells
// and returns the left- and right-going net updates for h and hu along with
// the maximum absolute wave speed observed at this edge.
func ComputeNetUpdates(hL, hR, huL, huR, bL, bR float32) (
	hUpdateL, hUpdateR, huUpdateL, huUpdateR, maxWaveSpeed float32) {
	var (
		hl, hr   = float64(hL), float64(hR)
		hul, hur = float64(huL), float64(huR)
		bl, br   = float64(bL), float64(bR)

		dryL = hl < DryTol
		dryR = hr < DryTol
	)
	if dryL && dryR {
		return
	}
	// A wet/dry interface reflects: solve against the mirrored wet state,
	// then discard the updates belonging to the dry side.
	if dryR {
		hr, hur, br = hl, -hul, bl
	} else if dryL {
		hl, hul, bl = hr, -hur, br
	}

	var (
		uL = hul / hl
		uR = hur / hr

		sqrtHL = math.Sqrt(hl)
		sqrtHR = math.Sqrt(hr)

		// Roe averages
		uRoe = (uL*sqrtHL + uR*sqrtHR) / (sqrtHL + sqrtHR)
		cRoe = math.Sqrt(0.5 * Gravity * (hl + hr))

		lambda1 = uRoe - cRoe
		lambda2 = uRoe + cRoe
	)

	// Flux difference across the edge, with the bathymetry source term
	// folded into the momentum component. The hydrostatic pressure
	// difference g/2 (hr^2 - hl^2) and the source term share the factor
	// g/2 (hl + hr), so they are summed as one jump in surface elevation,
	// which cancels exactly for a lake at rest.
	var (
		dF1 = hur - hul
		dF2 = (hur*hur/hr - hul*hul/hl) +
			0.5*Gravity*(hl+hr)*((hr-hl)+(br-bl))
	)

	// Decompose [dF1, dF2] onto the eigenvectors [1, lambda1], [1, lambda2].
	var (
		denom = lambda2 - lambda1
		beta1 = (lambda2*dF1 - dF2) / denom
		beta2 = (dF2 - lambda1*dF1) / denom

		updL, updR [2]float64
	)
	accumulate(&updL, &updR, beta1, lambda1)
	accumulate(&updL, &updR, beta2, lambda2)

	if dryR {
		updR[0], updR[1] = 0, 0
	} else if dryL {
		updL[0], updL[1] = 0, 0
	}

	hUpdateL = float32(updL[0])
	huUpdateL = float32(updL[1])
	hUpdateR = float32(updR[0])
	huUpdateR = float32(updR[1])
	maxWaveSpeed = float32(math.Max(math.Abs(lambda1), math.Abs(lambda2)))
	return
}

func accumulate(updL, updR *[2]float64, beta, lambda float64) {
	switch {
	case lambda < -zeroTol:
		updL[0] += beta
		updL[1] += beta * lambda
	case lambda > zeroTol:
		updR[0] += beta
		updR[1] += beta * lambda
	default:
		updL[0] += 0.5 * beta
		updL[1] += 0.5 * beta * lambda
		updR[0] += 0.5 * beta
		updR[1] += 0.5 * beta * lambda
	}
}
