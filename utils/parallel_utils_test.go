package utils

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionMap(t *testing.T) {
	{ // Buckets cover the index range exactly once, imbalance at most one
		for _, NP := range []int{1, 2, 3, 7} {
			for _, maxIndex := range []int{7, 8, 100, 101} {
				if NP > maxIndex {
					continue
				}
				pm := NewPartitionMap(NP, maxIndex)
				var covered int
				prevEnd := 0
				for n := 0; n < NP; n++ {
					kMin, kMax := pm.GetBucketRange(n)
					assert.Equal(t, prevEnd, kMin)
					assert.Equal(t, kMax-kMin, pm.GetBucketDimension(n))
					assert.True(t, pm.GetBucketDimension(n) >= maxIndex/NP)
					assert.True(t, pm.GetBucketDimension(n) <= maxIndex/NP+1)
					covered += kMax - kMin
					prevEnd = kMax
				}
				assert.Equal(t, maxIndex, covered)
				assert.Equal(t, maxIndex, prevEnd)
			}
		}
	}
}

func TestMinReducer(t *testing.T) {
	{ // Every participant of every round sees the same round minimum
		const (
			NP     = 8
			rounds = 50
		)
		r := NewMinReducer(NP)
		results := make([][]float64, NP)
		wg := sync.WaitGroup{}
		for np := 0; np < NP; np++ {
			wg.Add(1)
			go func(np int) {
				defer wg.Done()
				for round := 0; round < rounds; round++ {
					val := float64((np+round)%NP) + 0.5
					results[np] = append(results[np], r.Reduce(val))
				}
			}(np)
		}
		wg.Wait()
		for round := 0; round < rounds; round++ {
			// The contributions of round r are (np+r)%NP + 0.5, so the
			// minimum is always 0.5.
			for np := 0; np < NP; np++ {
				require.Equal(t, 0.5, results[np][round])
			}
		}
	}
	{ // +Inf contributions mean "no constraint"
		r := NewMinReducer(2)
		wg := sync.WaitGroup{}
		var got float64
		wg.Add(1)
		go func() {
			defer wg.Done()
			got = r.Reduce(math.Inf(1))
		}()
		assert.Equal(t, 0.25, r.Reduce(0.25))
		wg.Wait()
		assert.Equal(t, 0.25, got)
	}
	{ // Abort releases a blocked waiter with NaN
		r := NewMinReducer(2)
		done := make(chan float64, 1)
		go func() {
			done <- r.Reduce(1.0)
		}()
		r.Abort()
		assert.True(t, math.IsNaN(<-done))
	}
}
