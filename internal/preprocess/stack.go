// internal/preprocess/stack.go
package preprocess

import "fmt"

// Layout selects how member outputs are arranged in the stacked vector.
// The meta-classifier must have been trained on the same layout.
type Layout string

const (
	// Concat places member vectors end to end: [m0..., m1..., ...].
	Concat Layout = "concat"
	// Interleave alternates members per class: [m0c0, m1c0, m0c1, m1c1, ...].
	// This is what depth-stacking equally sized outputs and flattening
	// produces. All members must have the same output dimension.
	Interleave Layout = "interleave"
)

// ParseLayout validates a layout name; empty means Concat.
func ParseLayout(s string) (Layout, error) {
	switch Layout(s) {
	case "", Concat:
		return Concat, nil
	case Interleave:
		return Interleave, nil
	default:
		return "", fmt.Errorf("unknown stacking layout %q", s)
	}
}

// StackedLength is the feature vector length produced from members with
// the given output dimensions.
func StackedLength(dims []int) int {
	n := 0
	for _, d := range dims {
		n += d
	}
	return n
}

// Stack combines per-member probability vectors into one row vector of
// shape (1, total). Values are copied unchanged.
func Stack(vectors [][]float32, layout Layout) ([]float32, error) {
	total := 0
	for _, v := range vectors {
		total += len(v)
	}
	out := make([]float32, 0, total)

	switch layout {
	case Concat, "":
		for _, v := range vectors {
			out = append(out, v...)
		}
	case Interleave:
		if len(vectors) == 0 {
			return out, nil
		}
		dim := len(vectors[0])
		for i, v := range vectors {
			if len(v) != dim {
				return nil, fmt.Errorf("interleave layout needs equal output sizes: member 0 has %d, member %d has %d", dim, i, len(v))
			}
		}
		for c := 0; c < dim; c++ {
			for _, v := range vectors {
				out = append(out, v[c])
			}
		}
	default:
		return nil, fmt.Errorf("unknown stacking layout %q", layout)
	}
	return out, nil
}
