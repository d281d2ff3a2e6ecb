// internal/disease/resolver_test.go
package disease

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory("Smooth")
	require.NoError(t, err)
	assert.Equal(t, Smooth, c)

	c, err = ParseCategory("  sponge ")
	require.NoError(t, err)
	assert.Equal(t, Sponge, c)

	_, err = ParseCategory("Woven")
	var ice *InvalidCategoryError
	require.True(t, errors.As(err, &ice))
	assert.Equal(t, "Woven", ice.Value)
}

func TestCategoryText(t *testing.T) {
	var c Category
	require.NoError(t, c.UnmarshalText([]byte("SPONGE")))
	assert.Equal(t, Sponge, c)

	b, err := Smooth.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "smooth", string(b))

	_, err = Category(0).MarshalText()
	assert.Error(t, err)
	assert.False(t, Category(7).Valid())
}

func TestResolveFresh(t *testing.T) {
	r := NewResolver()
	label, info, err := r.Resolve(Smooth, 2)
	require.NoError(t, err)
	assert.Equal(t, "Fresh", label)
	assert.Equal(t, "The leaf appears healthy and fresh with no visible signs of disease.", info)

	label, _, err = r.Resolve(Sponge, 1)
	require.NoError(t, err)
	assert.Equal(t, "Downy Mildew", label)
}

func TestResolveOutOfRange(t *testing.T) {
	r := NewResolver()
	for _, idx := range []int{-1, 6, 100} {
		_, _, err := r.Resolve(Smooth, idx)
		var fme *FatalMismatchError
		require.True(t, errors.As(err, &fme), "index %d", idx)
		assert.Equal(t, idx, fme.Index)
		assert.Equal(t, 6, fme.NumLabels)
	}
}

func TestInfoFallback(t *testing.T) {
	r := NewResolver()
	assert.Equal(t, "No info available.", r.Info("Powdery Mildew"))
	assert.Equal(t, NoInfo, r.Info(""))
}

func TestLabelsReturnsCopy(t *testing.T) {
	l := Labels(Smooth)
	l[0] = "changed"
	assert.Equal(t, "Alternaria", Labels(Smooth)[0])
	assert.Nil(t, Labels(Category(0)))
}

func TestLoadInfoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "info.yaml")
	content := `diseases:
  - name: Alternaria
    info: Dark brown to black spots with concentric rings.
  - name: Powdery Mildew
    info: White powder on leaf surfaces.
  - name: ""
    info: ignored
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r := NewResolver()
	require.NoError(t, r.LoadInfoFile(path))
	assert.Equal(t, "Dark brown to black spots with concentric rings.", r.Info("Alternaria"))
	assert.Equal(t, "White powder on leaf surfaces.", r.Info("Powdery Mildew"))
	assert.Equal(t, "Mosaic disease causes irregular patterns and discoloration on leaves.", r.Info("Mosaic disease"))

	assert.Error(t, r.LoadInfoFile(filepath.Join(t.TempDir(), "missing.yaml")))
}
