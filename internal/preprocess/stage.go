// internal/preprocess/stage.go
package preprocess

import (
	"fmt"
	"image"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/SyedDaiam9101/leaf-classifier/internal/inference"
	"github.com/SyedDaiam9101/leaf-classifier/internal/metrics"
)

// MemberError reports a failed forward pass of one ensemble member.
type MemberError struct {
	Member string
	Index  int
	Err    error
}

func (e *MemberError) Error() string {
	return fmt.Sprintf("member %d (%s): %v", e.Index, e.Member, e.Err)
}

func (e *MemberError) Unwrap() error { return e.Err }

// Options tunes how the ensemble is run.
type Options struct {
	// Parallel runs members concurrently. Members are independent and
	// read-only after load; outputs keep member order either way.
	Parallel bool
}

// Run resizes img for each member, runs inference and returns one
// probability vector per member in member order.
func Run(img image.Image, members []inference.Member, opts Options) ([][]float32, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("no ensemble members")
	}

	predict := func(i int, m inference.Member) ([]float32, error) {
		w, h := m.InputSize()
		t := ToTensor(img, w, h)

		start := time.Now()
		probs, err := m.Predict(t.Data)
		metrics.RecordMemberLatency(m.Name(), time.Since(start).Seconds())
		if err != nil {
			return nil, &MemberError{Member: m.Name(), Index: i, Err: err}
		}
		if len(probs) != m.OutputDim() {
			return nil, &MemberError{
				Member: m.Name(),
				Index:  i,
				Err:    fmt.Errorf("output has length %d, expected %d", len(probs), m.OutputDim()),
			}
		}
		return probs, nil
	}

	if !opts.Parallel {
		out := make([][]float32, len(members))
		for i, m := range members {
			probs, err := predict(i, m)
			if err != nil {
				return nil, err
			}
			out[i] = probs
		}
		return out, nil
	}

	idx := make([]int, len(members))
	for i := range idx {
		idx[i] = i
	}
	return iter.MapErr(idx, func(i *int) ([]float32, error) {
		return predict(*i, members[*i])
	})
}
