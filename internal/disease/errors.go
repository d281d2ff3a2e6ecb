// internal/disease/errors.go
package disease

import "fmt"

// InvalidCategoryError is returned when a category selector is not one of
// the known plant varieties.
type InvalidCategoryError struct {
	Value string
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("invalid model type %q: expected smooth or sponge", e.Value)
}

// FatalMismatchError means the meta-classifier produced a class index the
// label set does not cover. The deployed model and label list disagree and
// the service cannot recover without a redeploy.
type FatalMismatchError struct {
	Category  Category
	Index     int
	NumLabels int
}

func (e *FatalMismatchError) Error() string {
	return fmt.Sprintf("class index %d out of range for %s labels (have %d): model/label mismatch",
		e.Index, e.Category, e.NumLabels)
}
