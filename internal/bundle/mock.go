// internal/bundle/mock.go
package bundle

import (
	"context"
	"fmt"

	"github.com/SyedDaiam9101/leaf-classifier/internal/disease"
	"github.com/SyedDaiam9101/leaf-classifier/internal/inference"
	"github.com/SyedDaiam9101/leaf-classifier/internal/preprocess"
)

// SumArgmax is a Meta for concat-stacked features: it sums each class's
// probability across members and returns the best class.
type SumArgmax struct {
	NumClasses int
}

func (s SumArgmax) Predict(features []float32) (int, error) {
	if s.NumClasses <= 0 || len(features) == 0 || len(features)%s.NumClasses != 0 {
		return 0, fmt.Errorf("feature vector of length %d does not split into %d classes", len(features), s.NumClasses)
	}
	sums := make([]float32, s.NumClasses)
	for i, v := range features {
		sums[i%s.NumClasses] += v
	}
	best := 0
	for i := 1; i < len(sums); i++ {
		if sums[i] > sums[best] {
			best = i
		}
	}
	return best, nil
}

// colourScores is a deterministic stand-in for a CNN: it scores the six
// classes from the mean RGB of the input, favouring class 2 (Fresh) for
// green images.
func colourScores(pixels []float32) []float32 {
	var r, g, b float32
	n := float32(len(pixels) / inference.Channels)
	for i := 0; i+2 < len(pixels); i += inference.Channels {
		r += pixels[i]
		g += pixels[i+1]
		b += pixels[i+2]
	}
	r, g, b = r/n, g/n, b/n
	scores := []float32{r, b, g, 1 - g, (r + g) / 2, (r + g + b) / 3}
	var sum float32
	for _, s := range scores {
		sum += s
	}
	if sum == 0 {
		return []float32{1, 0, 0, 0, 0, 0}
	}
	for i := range scores {
		scores[i] /= sum
	}
	return scores
}

var mockMembers = map[disease.Category][]string{
	disease.Smooth: {"MobileNetV2", "VGG16"},
	disease.Sponge: {"NASNetMobile", "VGG16"},
}

// NewMockLoader returns a Loader that builds bundles from mock members, for
// running the service without ONNX runtime or model files.
func NewMockLoader() Loader {
	return LoaderFunc(func(ctx context.Context, c disease.Category) (*Bundle, error) {
		names, ok := mockMembers[c]
		if !ok {
			return nil, &disease.InvalidCategoryError{Value: c.String()}
		}
		numClasses := len(disease.Labels(c))
		b := &Bundle{
			Category: c,
			Meta:     SumArgmax{NumClasses: numClasses},
			Layout:   preprocess.Concat,
		}
		for _, name := range names {
			b.Members = append(b.Members, inference.NewMockFunc(name, 224, 224, numClasses, colourScores))
		}
		return b, nil
	})
}
