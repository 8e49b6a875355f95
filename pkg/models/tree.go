package models

import (
	"math"
	"sort"
)

// node is one node of a regression tree, stored in a flat slice. Leaf nodes
// carry the predicted value; internal nodes route on Feature < Threshold,
// with NaN (missing) values always routed left.
type node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Value     float64 `json:"v"`
	Leaf      bool    `json:"leaf"`
}

type tree struct {
	Nodes []node `json:"nodes"`
}

func (t *tree) predict(row []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		v := row[n.Feature]
		if math.IsNaN(v) || v < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// treeBuilder grows one least-squares regression tree on the residuals of
// the current ensemble. Splits maximize variance reduction; gains are
// accumulated per feature for the importance report.
type treeBuilder struct {
	X          [][]float64
	grad       []float64 // residuals to fit
	maxDepth   int
	minSamples int
	gains      []float64 // per-feature accumulated gain
}

func (b *treeBuilder) build(samples []int) *tree {
	t := &tree{}
	b.grow(t, samples, 0)
	return t
}

// grow appends the subtree for samples and returns its node index.
func (b *treeBuilder) grow(t *tree, samples []int, depth int) int {
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, node{})

	sum := 0.0
	for _, s := range samples {
		sum += b.grad[s]
	}
	mean := sum / float64(len(samples))

	if depth >= b.maxDepth || len(samples) < 2*b.minSamples {
		t.Nodes[idx] = node{Leaf: true, Value: mean}
		return idx
	}

	feat, thresh, gain, ok := b.bestSplit(samples)
	if !ok {
		t.Nodes[idx] = node{Leaf: true, Value: mean}
		return idx
	}
	b.gains[feat] += gain

	var left, right []int
	for _, s := range samples {
		v := b.X[s][feat]
		if math.IsNaN(v) || v < thresh {
			left = append(left, s)
		} else {
			right = append(right, s)
		}
	}

	l := b.grow(t, left, depth+1)
	r := b.grow(t, right, depth+1)
	t.Nodes[idx] = node{Feature: feat, Threshold: thresh, Left: l, Right: r}
	return idx
}

// bestSplit scans every feature for the split with the largest reduction in
// sum of squared residuals. Samples with a missing feature value are pinned
// to the left side, so they are counted in the left partition of every
// candidate threshold for that feature.
func (b *treeBuilder) bestSplit(samples []int) (feature int, threshold, gain float64, ok bool) {
	nFeatures := len(b.X[samples[0]])

	var totalSum, totalSq float64
	for _, s := range samples {
		g := b.grad[s]
		totalSum += g
		totalSq += g * g
	}
	n := float64(len(samples))
	parentSSE := totalSq - totalSum*totalSum/n

	bestGain := 0.0

	type pair struct {
		v float64
		g float64
	}
	sorted := make([]pair, 0, len(samples))

	for f := 0; f < nFeatures; f++ {
		sorted = sorted[:0]
		missSum, missSq := 0.0, 0.0
		missN := 0
		for _, s := range samples {
			v := b.X[s][f]
			if math.IsNaN(v) {
				missSum += b.grad[s]
				missSq += b.grad[s] * b.grad[s]
				missN++
				continue
			}
			sorted = append(sorted, pair{v: v, g: b.grad[s]})
		}
		if len(sorted) < 2 {
			continue
		}
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].v < sorted[j].v })

		leftSum, leftSq := missSum, missSq
		leftN := missN
		for i := 0; i < len(sorted)-1; i++ {
			leftSum += sorted[i].g
			leftSq += sorted[i].g * sorted[i].g
			leftN++

			if sorted[i].v == sorted[i+1].v {
				continue
			}
			rightN := len(samples) - leftN
			if leftN < b.minSamples || rightN < b.minSamples {
				continue
			}

			rightSum := totalSum - leftSum
			rightSq := totalSq - leftSq
			leftSSE := leftSq - leftSum*leftSum/float64(leftN)
			rightSSE := rightSq - rightSum*rightSum/float64(rightN)

			g := parentSSE - leftSSE - rightSSE
			if g > bestGain {
				bestGain = g
				feature = f
				threshold = (sorted[i].v + sorted[i+1].v) / 2
				ok = true
			}
		}
	}

	return feature, threshold, bestGain, ok
}
