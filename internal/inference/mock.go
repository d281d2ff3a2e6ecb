// internal/inference/mock.go
package inference

import (
	"fmt"
	"sync"
)

// MockMember is a mock implementation of Member for testing.
// It returns deterministic dummy probabilities without requiring the ONNX
// shared library.
type MockMember struct {
	// MemberName is returned by Name
	MemberName string
	// Width and Height are the expected input resolution
	Width, Height int
	// Output is the probability vector returned for every image
	Output []float32
	// Fn, when set, computes the output from the input pixels instead of Output
	Fn func(pixels []float32) []float32
	// ShouldError if true, Predict will return an error
	ShouldError bool
	// ErrorMessage is the error message to return when ShouldError is true
	ErrorMessage string

	mu        sync.Mutex
	callCount int
	lastLen   int
	closed    bool
}

// NewMock creates a MockMember with the given input size that always
// returns output.
func NewMock(name string, width, height int, output []float32) *MockMember {
	return &MockMember{
		MemberName: name,
		Width:      width,
		Height:     height,
		Output:     output,
	}
}

// NewMockFunc creates a MockMember whose output is computed by fn.
// outputDim must match the length of every vector fn returns.
func NewMockFunc(name string, width, height, outputDim int, fn func([]float32) []float32) *MockMember {
	return &MockMember{
		MemberName: name,
		Width:      width,
		Height:     height,
		Output:     make([]float32, outputDim),
		Fn:         fn,
	}
}

func (m *MockMember) Name() string { return m.MemberName }

func (m *MockMember) InputSize() (int, int) { return m.Width, m.Height }

func (m *MockMember) OutputDim() int { return len(m.Output) }

// Predict validates the input size and returns the configured output.
func (m *MockMember) Predict(pixels []float32) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.callCount++
	m.lastLen = len(pixels)

	if m.ShouldError {
		if m.ErrorMessage != "" {
			return nil, fmt.Errorf("%s", m.ErrorMessage)
		}
		return nil, fmt.Errorf("mock inference error")
	}

	expected := m.Width * m.Height * Channels
	if len(pixels) != expected {
		return nil, fmt.Errorf("input has wrong size: got %d, expected %d", len(pixels), expected)
	}

	if m.Fn != nil {
		return m.Fn(pixels), nil
	}
	out := make([]float32, len(m.Output))
	copy(out, m.Output)
	return out, nil
}

// Close marks the mock closed.
func (m *MockMember) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// CallCount returns the number of Predict calls so far.
func (m *MockMember) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// LastInputLen returns the length of the most recent Predict input.
func (m *MockMember) LastInputLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastLen
}

// Closed reports whether Close has been called.
func (m *MockMember) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// SetError configures the mock to return an error on the next Predict call
func (m *MockMember) SetError(msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ShouldError = true
	m.ErrorMessage = msg
}

// ClearError clears any configured error
func (m *MockMember) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ShouldError = false
	m.ErrorMessage = ""
}

// Ensure MockMember implements Member at compile time
var _ Member = (*MockMember)(nil)
