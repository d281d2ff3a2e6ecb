// internal/disease/category.go
package disease

import (
	"fmt"
	"strings"
)

// Category selects which ensemble and label set apply to an image.
type Category int

const (
	Smooth Category = iota + 1
	Sponge
)

// Categories lists every category in a stable order.
var Categories = []Category{Smooth, Sponge}

// ParseCategory converts a user-supplied selector into a Category.
// Matching is case-insensitive and ignores surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "smooth":
		return Smooth, nil
	case "sponge":
		return Sponge, nil
	default:
		return 0, &InvalidCategoryError{Value: s}
	}
}

// String returns the lower-case wire name of the category.
func (c Category) String() string {
	switch c {
	case Smooth:
		return "smooth"
	case Sponge:
		return "sponge"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case Smooth, Sponge:
		return true
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, &InvalidCategoryError{Value: c.String()}
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler so categories can be
// read directly from YAML manifests and JSON bodies.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
