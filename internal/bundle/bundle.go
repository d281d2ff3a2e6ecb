// internal/bundle/bundle.go

// Package bundle loads the per-category model artifacts (ensemble members
// plus meta-classifier) and caches them for the life of the process.
package bundle

import (
	"errors"
	"fmt"

	"github.com/SyedDaiam9101/leaf-classifier/internal/disease"
	"github.com/SyedDaiam9101/leaf-classifier/internal/inference"
	"github.com/SyedDaiam9101/leaf-classifier/internal/preprocess"
)

// Meta is the second-stage classifier over the stacked member outputs.
// *xgb.Model implements it.
type Meta interface {
	Predict(features []float32) (int, error)
}

// Bundle is everything needed to classify images of one category. Members
// are ordered as during meta-classifier training; reordering them silently
// corrupts predictions.
type Bundle struct {
	Category disease.Category
	Members  []inference.Member
	Meta     Meta
	Layout   preprocess.Layout
}

// FeatureLength is the length of the stacked vector fed to Meta.
func (b *Bundle) FeatureLength() int {
	dims := make([]int, len(b.Members))
	for i, m := range b.Members {
		dims[i] = m.OutputDim()
	}
	return preprocess.StackedLength(dims)
}

// Close releases all member resources.
func (b *Bundle) Close() error {
	var errs []error
	for _, m := range b.Members {
		if err := m.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close member %s: %w", m.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// LoadError is returned when an artifact of a category bundle is missing or
// corrupt. Path names the offending file.
type LoadError struct {
	Category disease.Category
	Path     string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s model bundle from %s: %v", e.Category, e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
