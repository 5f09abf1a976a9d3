package utils

import (
	"math"
	"sync"
)

type PartitionMap struct {
	MaxIndex       int // MaxIndex is partitioned into ParallelDegree partitions
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketDimension(bucketNum int) (kMax int) {
	var (
		k1, k2 = pm.GetBucketRange(bucketNum)
	)
	kMax = k2 - k1
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	// This routine splits one dimension into ParallelDegree pieces, with a maximum imbalance of one item
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}

/*
	MinReducer is the collective used for the global time step: every
	participant contributes its local value and blocks until all NP
	contributions of the round have arrived, then resumes with the round
	minimum. Rounds are delimited by generations so that a fast participant
	entering round k+1 can never disturb a slow one still reading the
	result of round k.
*/
type MinReducer struct {
	NP        int
	mu        sync.Mutex
	gen       *reduceGeneration
	abort     chan struct{}
	abortOnce sync.Once
}

type reduceGeneration struct {
	arrived int
	min     float64
	result  float64
	gate    chan struct{}
}

func newReduceGeneration() *reduceGeneration {
	return &reduceGeneration{
		min:  math.Inf(1),
		gate: make(chan struct{}),
	}
}

func NewMinReducer(NP int) *MinReducer {
	if NP < 1 {
		panic("MinReducer requires at least one participant")
	}
	return &MinReducer{
		NP:    NP,
		gen:   newReduceGeneration(),
		abort: make(chan struct{}),
	}
}

// Reduce contributes val and returns the minimum over all NP contributions
// of the current round. The last arrival publishes the result and opens the
// gate; everyone else blocks on it. After Abort, waiters resume with NaN.
func (r *MinReducer) Reduce(val float64) float64 {
	r.mu.Lock()
	gen := r.gen
	if val < gen.min {
		gen.min = val
	}
	gen.arrived++
	if gen.arrived == r.NP {
		gen.result = gen.min
		r.gen = newReduceGeneration()
		r.mu.Unlock()
		close(gen.gate)
		return gen.result
	}
	r.mu.Unlock()
	select {
	case <-gen.gate:
		return gen.result
	case <-r.abort:
		return math.NaN()
	}
}

// Abort releases every current and future waiter with a NaN result. Used to
// tear the collective down when one participant fails; a participant that
// never contributes again would otherwise block the rest forever.
func (r *MinReducer) Abort() {
	r.abortOnce.Do(func() { close(r.abort) })
}
