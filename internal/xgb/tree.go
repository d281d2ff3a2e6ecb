// internal/xgb/tree.go
package xgb

import "math"

// A Tree is one regression tree of a gradient boosted ensemble, stored in
// the flat array layout XGBoost serialises. Node 0 is the root; a node is a
// leaf when its left child is -1, in which case SplitConditions holds the
// leaf value.
type Tree struct {
	LeftChildren    []int
	RightChildren   []int
	SplitIndices    []int
	SplitConditions []float32
	// DefaultLeft gives the branch taken when the split feature is missing (NaN).
	DefaultLeft []bool
	// Group is the output class this tree contributes to.
	Group int
}

func (t *Tree) isLeaf(node int) bool {
	return t.LeftChildren[node] == -1
}

// Leaf drops a feature vector down the tree and returns the index of the
// leaf node it ends up in. The tree must have passed validate.
func (t *Tree) Leaf(x []float32) int {
	node := 0
	for !t.isLeaf(node) {
		v := x[t.SplitIndices[node]]
		switch {
		case math.IsNaN(float64(v)):
			if t.DefaultLeft[node] {
				node = t.LeftChildren[node]
			} else {
				node = t.RightChildren[node]
			}
		case v < t.SplitConditions[node]:
			node = t.LeftChildren[node]
		default:
			node = t.RightChildren[node]
		}
	}
	return node
}

// Evaluate returns the leaf value reached by x.
func (t *Tree) Evaluate(x []float32) float32 {
	return t.SplitConditions[t.Leaf(x)]
}
