// internal/inference/inference_test.go
package inference

import (
	"os"
	"testing"
)

func TestMockMember_Predict(t *testing.T) {
	mock := NewMock("vgg16", 2, 2, []float32{0.1, 0.7, 0.2})

	pixels := make([]float32, 2*2*Channels)
	probs, err := mock.Predict(pixels)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	expected := []float32{0.1, 0.7, 0.2}
	if len(probs) != len(expected) {
		t.Fatalf("Expected %d probabilities, got %d", len(expected), len(probs))
	}
	for i, v := range expected {
		if probs[i] != v {
			t.Errorf("probs[%d] = %f, expected %f", i, probs[i], v)
		}
	}

	// Callers may mutate the result without affecting the mock
	probs[0] = 9
	again, _ := mock.Predict(pixels)
	if again[0] != 0.1 {
		t.Errorf("Expected mock output to be copied, got %f", again[0])
	}

	if mock.CallCount() != 2 {
		t.Errorf("Expected CallCount=2, got %d", mock.CallCount())
	}
	if mock.LastInputLen() != 12 {
		t.Errorf("Expected LastInputLen=12, got %d", mock.LastInputLen())
	}
	if mock.OutputDim() != 3 {
		t.Errorf("Expected OutputDim=3, got %d", mock.OutputDim())
	}
}

func TestMockMember_PredictError(t *testing.T) {
	mock := NewMock("m", 1, 1, []float32{1})
	mock.SetError("test error")

	_, err := mock.Predict(make([]float32, 3))
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if err.Error() != "test error" {
		t.Errorf("Expected 'test error', got '%s'", err.Error())
	}

	mock.ClearError()
	if _, err := mock.Predict(make([]float32, 3)); err != nil {
		t.Errorf("Expected no error after ClearError, got %v", err)
	}
}

func TestMockMember_WrongInputSize(t *testing.T) {
	mock := NewMock("m", 2, 2, []float32{1})
	if _, err := mock.Predict(make([]float32, 4)); err == nil {
		t.Fatal("Expected error for wrong input size")
	}
}

func TestMockMember_Func(t *testing.T) {
	mock := NewMockFunc("mean", 1, 2, 2, func(p []float32) []float32 {
		var sum float32
		for _, v := range p {
			sum += v
		}
		mean := sum / float32(len(p))
		return []float32{mean, 1 - mean}
	})

	probs, err := mock.Predict([]float32{1, 1, 1, 0, 0, 0})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if probs[0] != 0.5 || probs[1] != 0.5 {
		t.Errorf("Expected [0.5 0.5], got %v", probs)
	}
	if mock.OutputDim() != 2 {
		t.Errorf("Expected OutputDim=2, got %d", mock.OutputDim())
	}
}

func TestMockMember_Close(t *testing.T) {
	mock := NewMock("m", 1, 1, []float32{1})
	if mock.Closed() {
		t.Fatal("mock closed before Close")
	}
	if err := mock.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !mock.Closed() {
		t.Error("Expected mock to be closed")
	}
}

func TestNew_InvalidSpec(t *testing.T) {
	if _, err := New(Spec{Name: "bad", Path: "x.onnx", Width: 0, Height: 224, OutputDim: 6}); err == nil {
		t.Error("Expected error for zero width")
	}
	if _, err := New(Spec{Name: "bad", Path: "x.onnx", Width: 224, Height: 224}); err == nil {
		t.Error("Expected error for zero output dimension")
	}
}

func TestRealInference_WithModel(t *testing.T) {
	// Skip if ONNX model or library is not available
	modelPath := "testdata/member.onnx"
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		t.Skip("Skipping real inference test: testdata/member.onnx not found")
	}

	if err := InitEnvironment(os.Getenv("ONNXRUNTIME_LIB")); err != nil {
		t.Skipf("Skipping real inference test: %v", err)
	}
	defer DestroyEnvironment()

	sess, err := New(Spec{Name: "test", Path: modelPath, Width: 2, Height: 2, OutputDim: 6})
	if err != nil {
		t.Skipf("Skipping real inference test: %v", err)
	}
	defer sess.Close()

	probs, err := sess.Predict(make([]float32, 2*2*Channels))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if len(probs) != 6 {
		t.Errorf("Expected 6 probabilities, got %d", len(probs))
	}
}
