// internal/inference/inference.go
package inference

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Channels is the number of colour channels every member consumes (RGB).
const Channels = 3

// Spec describes an ONNX ensemble member on disk.
type Spec struct {
	Name       string
	Path       string
	Width      int
	Height     int
	OutputDim  int
	InputName  string
	OutputName string
}

var envMu sync.Mutex

// InitEnvironment initializes the ONNX runtime once per process. libPath
// overrides the onnxruntime shared library location when non-empty.
func InitEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libPath != "" {
		ort.SetSharedLibraryPath(libPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX environment: %w", err)
	}
	return nil
}

// DestroyEnvironment tears down the ONNX runtime. All sessions must have
// been closed first.
func DestroyEnvironment() error {
	envMu.Lock()
	defer envMu.Unlock()

	if !ort.IsInitialized() {
		return nil
	}
	return ort.DestroyEnvironment()
}

// Session wraps an ONNX runtime session for one ensemble member.
// Calls to Predict are serialized. It implements the Member interface.
type Session struct {
	mu      sync.Mutex
	session *ort.DynamicAdvancedSession
	spec    Spec
}

// New creates a new Session by loading the ONNX graph at spec.Path.
// InitEnvironment must have been called.
func New(spec Spec) (*Session, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("member %s: invalid input size %dx%d", spec.Name, spec.Width, spec.Height)
	}
	if spec.OutputDim <= 0 {
		return nil, fmt.Errorf("member %s: invalid output dimension %d", spec.Name, spec.OutputDim)
	}
	if spec.InputName == "" {
		spec.InputName = "input"
	}
	if spec.OutputName == "" {
		spec.OutputName = "output"
	}

	session, err := ort.NewDynamicAdvancedSession(
		spec.Path,
		[]string{spec.InputName},
		[]string{spec.OutputName},
		nil, // Use default session options
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Session{
		session: session,
		spec:    spec,
	}, nil
}

// Name returns the member name from its spec.
func (s *Session) Name() string { return s.spec.Name }

// InputSize returns the member's expected input resolution.
func (s *Session) InputSize() (int, int) { return s.spec.Width, s.spec.Height }

// OutputDim returns the length of the member's probability vector.
func (s *Session) OutputDim() int { return s.spec.OutputDim }

// Predict runs the member on one NHWC image tensor.
func (s *Session) Predict(pixels []float32) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil {
		return nil, fmt.Errorf("inference session is nil")
	}

	w, h := int64(s.spec.Width), int64(s.spec.Height)
	if int64(len(pixels)) != h*w*Channels {
		return nil, fmt.Errorf("input has wrong size: got %d, expected %d", len(pixels), h*w*Channels)
	}

	// Create input tensor with shape [1, H, W, C]
	inputTensor, err := ort.NewTensor(ort.NewShape(1, h, w, Channels), pixels)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	// Create output tensor with shape [1, outputDim]
	outputData := make([]float32, s.spec.OutputDim)
	outputTensor, err := ort.NewTensor(ort.NewShape(1, int64(s.spec.OutputDim)), outputData)
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	err = s.session.Run(
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{outputTensor},
	)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	out := make([]float32, s.spec.OutputDim)
	copy(out, outputTensor.GetData())
	return out, nil
}

// Close releases the ONNX session resources
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session != nil {
		err := s.session.Destroy()
		s.session = nil
		if err != nil {
			return fmt.Errorf("failed to destroy session: %w", err)
		}
	}
	return nil
}

// Ensure Session implements Member at compile time
var _ Member = (*Session)(nil)
