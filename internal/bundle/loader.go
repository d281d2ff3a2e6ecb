// internal/bundle/loader.go
package bundle

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/SyedDaiam9101/leaf-classifier/internal/disease"
	"github.com/SyedDaiam9101/leaf-classifier/internal/inference"
	"github.com/SyedDaiam9101/leaf-classifier/internal/preprocess"
	"github.com/SyedDaiam9101/leaf-classifier/internal/xgb"
)

// Loader builds the bundle for a category from persistent storage.
type Loader interface {
	Load(ctx context.Context, c disease.Category) (*Bundle, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, c disease.Category) (*Bundle, error)

func (f LoaderFunc) Load(ctx context.Context, c disease.Category) (*Bundle, error) {
	return f(ctx, c)
}

// MemberOpener creates a member from its spec.
type MemberOpener func(spec inference.Spec) (inference.Member, error)

// OpenONNX opens members with the ONNX runtime.
func OpenONNX(spec inference.Spec) (inference.Member, error) {
	return inference.New(spec)
}

// FileLoader loads bundles from <Dir>/<category>/manifest.yaml.
type FileLoader struct {
	Dir    string
	Open   MemberOpener
	Logger zerolog.Logger
}

// NewFileLoader returns a FileLoader that opens members with ONNX runtime.
func NewFileLoader(dir string, logger zerolog.Logger) *FileLoader {
	return &FileLoader{Dir: dir, Open: OpenONNX, Logger: logger}
}

// Load reads the manifest, checks every artifact exists, then opens the
// members and the meta-classifier. On any failure the members opened so far
// are closed and a *LoadError naming the failing file is returned.
func (l *FileLoader) Load(ctx context.Context, c disease.Category) (*Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	manifestPath := ManifestPath(l.Dir, c)
	manifest, err := ReadManifest(manifestPath)
	if err != nil {
		return nil, &LoadError{Category: c, Path: manifestPath, Err: err}
	}
	if manifest.Category != c {
		return nil, &LoadError{
			Category: c,
			Path:     manifestPath,
			Err:      fmt.Errorf("manifest is for category %s", manifest.Category),
		}
	}

	specs := manifest.MemberSpecs()
	metaPath := manifest.Resolve(manifest.Meta.Path)

	// Fail fast on missing files before paying for session creation.
	for _, s := range specs {
		if _, err := os.Stat(s.Path); err != nil {
			return nil, &LoadError{Category: c, Path: s.Path, Err: err}
		}
	}
	if _, err := os.Stat(metaPath); err != nil {
		return nil, &LoadError{Category: c, Path: metaPath, Err: err}
	}

	open := l.Open
	if open == nil {
		open = OpenONNX
	}

	b := &Bundle{Category: c, Layout: preprocess.Layout(manifest.Layout)}
	if b.Layout == "" {
		b.Layout = preprocess.Concat
	}
	for _, s := range specs {
		m, err := open(s)
		if err != nil {
			b.Close()
			return nil, &LoadError{Category: c, Path: s.Path, Err: err}
		}
		b.Members = append(b.Members, m)
		l.Logger.Info().
			Str("category", c.String()).
			Str("member", s.Name).
			Int("width", s.Width).
			Int("height", s.Height).
			Msg("loaded ensemble member")
	}

	if b.Layout == preprocess.Interleave {
		for _, m := range b.Members[1:] {
			if m.OutputDim() != b.Members[0].OutputDim() {
				b.Close()
				return nil, &LoadError{
					Category: c,
					Path:     manifestPath,
					Err:      fmt.Errorf("interleave layout needs equal member output sizes"),
				}
			}
		}
	}

	meta, err := xgb.LoadFile(metaPath)
	if err != nil {
		b.Close()
		return nil, &LoadError{Category: c, Path: metaPath, Err: err}
	}
	if meta.NumFeatures > 0 && meta.NumFeatures != b.FeatureLength() {
		b.Close()
		return nil, &LoadError{
			Category: c,
			Path:     metaPath,
			Err: fmt.Errorf("meta-classifier expects %d features, members produce %d",
				meta.NumFeatures, b.FeatureLength()),
		}
	}
	if labels := disease.Labels(c); meta.NumClasses != len(labels) {
		l.Logger.Warn().
			Str("category", c.String()).
			Int("classes", meta.NumClasses).
			Int("labels", len(labels)).
			Msg("meta-classifier class count differs from label list")
	}
	b.Meta = meta

	l.Logger.Info().
		Str("category", c.String()).
		Int("members", len(b.Members)).
		Int("features", b.FeatureLength()).
		Int("trees", len(meta.Trees)).
		Str("layout", string(b.Layout)).
		Msg("loaded meta-classifier")

	return b, nil
}
