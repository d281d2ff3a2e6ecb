// internal/inference/interface.go
package inference

// Member is one ensemble member: a pretrained image classifier with a fixed
// expected input resolution. This abstraction allows for easy mocking in
// tests and swapping runtimes.
type Member interface {
	// Name identifies the member in logs and metrics.
	Name() string

	// InputSize is the resolution images must be resized to.
	InputSize() (width, height int)

	// OutputDim is the length of the probability vector Predict returns.
	OutputDim() int

	// Predict runs a forward pass on one image.
	// pixels: NHWC tensor data of shape (1, height, width, 3), values in [0,1]
	// Returns the class-probability vector of length OutputDim.
	Predict(pixels []float32) ([]float32, error)

	// Close releases any resources held by the member.
	Close() error
}
