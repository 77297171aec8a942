package pointcloud

import (
	"container/heap"
	"math"
	"math/rand"

	"go.viam.com/posematch/utils"
)

type keyedIndex struct {
	key   float64
	index int
}

// reservoir is a min heap on key holding the best candidates seen so far.
type reservoir []keyedIndex

func (r reservoir) Len() int            { return len(r) }
func (r reservoir) Less(i, j int) bool  { return r[i].key < r[j].key }
func (r reservoir) Swap(i, j int)       { r[i], r[j] = r[j], r[i] }
func (r *reservoir) Push(x interface{}) { *r = append(*r, x.(keyedIndex)) }
func (r *reservoir) Pop() interface{} {
	old := *r
	n := len(old)
	x := old[n-1]
	*r = old[:n-1]
	return x
}

// SampleIndices draws min(n, Size()) distinct kernel indices with probability proportional to kernel
// weight, in random order. Kernels of non-positive weight are only drawn once every positive kernel
// has been.
func (m *Model) SampleIndices(rng *rand.Rand, n int) []int {
	n = utils.MinInt(n, len(m.kernels))
	if n <= 0 {
		return nil
	}
	r := make(reservoir, 0, n)
	for i, k := range m.kernels {
		key := math.Inf(-1)
		if k.Weight > 0 {
			// log(u)/w orders like u^(1/w) without underflow
			key = math.Log(1-rng.Float64()) / k.Weight
		}
		switch {
		case len(r) < n:
			heap.Push(&r, keyedIndex{key: key, index: i})
		case key > r[0].key:
			r[0] = keyedIndex{key: key, index: i}
			heap.Fix(&r, 0)
		}
	}
	out := make([]int, len(r))
	for i, ki := range r {
		out[i] = ki.index
	}
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Sample returns a model made of a weighted sample of n kernels, drawn without replacement.
func (m *Model) Sample(rng *rand.Rand, n int) *Model {
	return m.Subset(m.SampleIndices(rng, n))
}
