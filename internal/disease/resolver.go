// internal/disease/resolver.go
package disease

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NoInfo is returned for labels without a description.
const NoInfo = "No info available."

var smoothLabels = []string{"Alternaria", "Angular Spot", "Fresh", "Holed", "Mosaic Virus", "Others"}

var spongeLabels = []string{"Bacteria Leaf Spot", "Downy Mildew", "Fresh", "Insect", "Mosaic disease", "Others"}

var defaultInfo = map[string]string{
	"Alternaria":         "Alternaria leaf spot is a fungal disease that causes dark spots on leaves. It thrives in warm, humid conditions.",
	"Angular Spot":       "Angular leaf spot is a bacterial disease causing angular water-soaked lesions on leaves.",
	"Fresh":              "The leaf appears healthy and fresh with no visible signs of disease.",
	"Holed":              "Holes in leaves may be caused by insect damage or physical injury.",
	"Mosaic Virus":       "Mosaic virus causes mottled patterns on leaves and can stunt plant growth.",
	"Others":             "Other unidentified diseases or conditions affecting the plant.",
	"Bacteria Leaf Spot": "Bacterial leaf spot causes small, dark lesions on leaves that may have a yellow halo.",
	"Downy Mildew":       "Downy mildew is a fungal disease that appears as white or gray patches on the underside of leaves.",
	"Insect":             "Signs of insect damage such as holes, chewing marks, or discoloration.",
	"Mosaic disease":     "Mosaic disease causes irregular patterns and discoloration on leaves.",
}

// Labels returns a copy of the ordered label list the meta-classifier for c
// was trained against.
func Labels(c Category) []string {
	var src []string
	switch c {
	case Smooth:
		src = smoothLabels
	case Sponge:
		src = spongeLabels
	default:
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// Resolver maps class indices to labels and labels to description text.
type Resolver struct {
	info map[string]string
}

// NewResolver returns a Resolver using the built-in description texts.
func NewResolver() *Resolver {
	info := make(map[string]string, len(defaultInfo))
	for k, v := range defaultInfo {
		info[k] = v
	}
	return &Resolver{info: info}
}

// infoFile is the on-disk format accepted by LoadInfoFile.
type infoFile struct {
	Diseases []struct {
		Name string `yaml:"name"`
		Info string `yaml:"info"`
	} `yaml:"diseases"`
}

// LoadInfoFile merges descriptions from a YAML file of the form
//
//	diseases:
//	  - name: Alternaria
//	    info: ...
//
// Entries in the file replace built-in texts with the same name.
func (r *Resolver) LoadInfoFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read disease info file: %w", err)
	}
	var f infoFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse disease info file %s: %w", path, err)
	}
	for _, d := range f.Diseases {
		if d.Name == "" {
			continue
		}
		r.info[d.Name] = d.Info
	}
	return nil
}

// Info returns the description for label, or NoInfo when none is known.
func (r *Resolver) Info(label string) string {
	if text, ok := r.info[label]; ok && text != "" {
		return text
	}
	return NoInfo
}

// Resolve maps a class index of category c to its label and description.
func (r *Resolver) Resolve(c Category, index int) (string, string, error) {
	if !c.Valid() {
		return "", "", &InvalidCategoryError{Value: c.String()}
	}
	labels := Labels(c)
	if index < 0 || index >= len(labels) {
		return "", "", &FatalMismatchError{Category: c, Index: index, NumLabels: len(labels)}
	}
	label := labels[index]
	return label, r.Info(label), nil
}
