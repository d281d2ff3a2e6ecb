// internal/xgb/model.go

// Package xgb evaluates gradient boosted tree classifiers saved with
// XGBoost's JSON model format (Booster.save_model("model.json")).
package xgb

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// Model is a loaded boosted tree ensemble. It is immutable after Load and
// safe for concurrent use.
type Model struct {
	// NumClasses is the number of output classes (2 for binary objectives).
	NumClasses int
	// NumFeatures is the length of feature vectors the model was trained on.
	NumFeatures int
	// Objective is the XGBoost objective name, e.g. "multi:softprob".
	Objective string
	// BaseMargins holds the starting score of each output group.
	BaseMargins []float32
	Trees       []Tree
	// Weights scales each tree's leaf value. It is only set for dart
	// boosters; nil means every tree counts fully.
	Weights []float32

	groups int
}

type jsonModel struct {
	Learner struct {
		LearnerModelParam struct {
			BaseScore  string `json:"base_score"`
			NumClass   string `json:"num_class"`
			NumFeature string `json:"num_feature"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
		GradientBooster struct {
			Name       string      `json:"name"`
			Model      *jsonGBTree `json:"model"`
			WeightDrop []float32   `json:"weight_drop"`
			// dart boosters nest the tree model one level deeper
			GBTree *struct {
				Model *jsonGBTree `json:"model"`
			} `json:"gbtree"`
		} `json:"gradient_booster"`
	} `json:"learner"`
}

type jsonGBTree struct {
	TreeInfo []int      `json:"tree_info"`
	Trees    []jsonTree `json:"trees"`
}

type jsonTree struct {
	LeftChildren    []int     `json:"left_children"`
	RightChildren   []int     `json:"right_children"`
	SplitIndices    []int     `json:"split_indices"`
	SplitConditions []float32 `json:"split_conditions"`
	DefaultLeft     flags     `json:"default_left"`
}

// flags accepts both the integer (0/1) and boolean encodings XGBoost has
// used for default_left across versions.
type flags []bool

func (f *flags) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make([]bool, len(raw))
	for i, r := range raw {
		switch s := strings.TrimSpace(string(r)); s {
		case "true", "1":
			out[i] = true
		case "false", "0":
			out[i] = false
		default:
			return fmt.Errorf("default_left[%d]: unexpected value %s", i, s)
		}
	}
	*f = out
	return nil
}

// Load reads an XGBoost JSON model.
func Load(r io.Reader) (*Model, error) {
	var jm jsonModel
	if err := json.NewDecoder(r).Decode(&jm); err != nil {
		return nil, fmt.Errorf("failed to decode xgboost model: %w", err)
	}

	gb := jm.Learner.GradientBooster.Model
	if gb == nil && jm.Learner.GradientBooster.GBTree != nil {
		gb = jm.Learner.GradientBooster.GBTree.Model
	}
	if gb == nil {
		return nil, fmt.Errorf("unsupported booster %q: no tree model", jm.Learner.GradientBooster.Name)
	}
	if len(gb.Trees) == 0 {
		return nil, fmt.Errorf("xgboost model has no trees")
	}
	if len(gb.TreeInfo) != len(gb.Trees) {
		return nil, fmt.Errorf("tree_info has %d entries for %d trees", len(gb.TreeInfo), len(gb.Trees))
	}

	param := jm.Learner.LearnerModelParam
	numClass, err := parseIntParam("num_class", param.NumClass)
	if err != nil {
		return nil, err
	}
	numFeature, err := parseIntParam("num_feature", param.NumFeature)
	if err != nil {
		return nil, err
	}
	baseScores, err := parseBaseScore(param.BaseScore)
	if err != nil {
		return nil, err
	}
	if w := jm.Learner.GradientBooster.WeightDrop; w != nil && len(w) != len(gb.Trees) {
		return nil, fmt.Errorf("weight_drop has %d entries for %d trees", len(w), len(gb.Trees))
	}

	m := &Model{
		NumFeatures: numFeature,
		Objective:   jm.Learner.Objective.Name,
		Trees:       make([]Tree, len(gb.Trees)),
		Weights:     jm.Learner.GradientBooster.WeightDrop,
	}
	if numClass > 1 {
		m.NumClasses = numClass
		m.groups = numClass
	} else {
		m.NumClasses = 2
		m.groups = 1
	}

	// a single base_score applies to every group
	switch len(baseScores) {
	case 1:
		m.BaseMargins = make([]float32, m.groups)
		for i := range m.BaseMargins {
			m.BaseMargins[i] = baseScores[0]
		}
	case m.groups:
		m.BaseMargins = baseScores
	default:
		return nil, fmt.Errorf("base_score has %d entries for %d output groups", len(baseScores), m.groups)
	}
	if m.groups == 1 {
		m.BaseMargins[0] = probToMargin(m.Objective, m.BaseMargins[0])
	}

	for i, jt := range gb.Trees {
		t := Tree{
			LeftChildren:    jt.LeftChildren,
			RightChildren:   jt.RightChildren,
			SplitIndices:    jt.SplitIndices,
			SplitConditions: jt.SplitConditions,
			DefaultLeft:     jt.DefaultLeft,
			Group:           gb.TreeInfo[i],
		}
		if err := m.validate(&t); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		m.Trees[i] = t
	}
	return m, nil
}

// LoadFile reads an XGBoost JSON model from path.
func LoadFile(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func (m *Model) validate(t *Tree) error {
	n := len(t.LeftChildren)
	if n == 0 {
		return fmt.Errorf("empty tree")
	}
	if len(t.RightChildren) != n || len(t.SplitIndices) != n ||
		len(t.SplitConditions) != n || len(t.DefaultLeft) != n {
		return fmt.Errorf("inconsistent node arrays")
	}
	if t.Group < 0 || t.Group >= m.groups {
		return fmt.Errorf("output group %d out of range [0,%d)", t.Group, m.groups)
	}
	for node := 0; node < n; node++ {
		if t.isLeaf(node) {
			continue
		}
		// children are always allocated after their parent, which also
		// guarantees traversal terminates
		l, r := t.LeftChildren[node], t.RightChildren[node]
		if l <= node || l >= n || r <= node || r >= n {
			return fmt.Errorf("node %d has invalid children (%d, %d)", node, l, r)
		}
		if f := t.SplitIndices[node]; f < 0 || (m.NumFeatures > 0 && f >= m.NumFeatures) {
			return fmt.Errorf("node %d splits on feature %d, model has %d", node, f, m.NumFeatures)
		}
	}
	return nil
}

// Margins returns the raw (untransformed) score of each output group.
func (m *Model) Margins(x []float32) ([]float32, error) {
	if m.NumFeatures > 0 && len(x) != m.NumFeatures {
		return nil, fmt.Errorf("feature vector has length %d, model expects %d", len(x), m.NumFeatures)
	}
	margins := make([]float32, m.groups)
	copy(margins, m.BaseMargins)
	for i := range m.Trees {
		t := &m.Trees[i]
		if m.Weights != nil {
			margins[t.Group] += m.Weights[i] * t.Evaluate(x)
		} else {
			margins[t.Group] += t.Evaluate(x)
		}
	}
	return margins, nil
}

// Predict returns the predicted class for x: the argmax over output groups
// for multi-class models, or 1 when the positive-class probability exceeds
// 0.5 for binary models. Ties resolve to the lowest class index.
func (m *Model) Predict(x []float32) (int, error) {
	margins, err := m.Margins(x)
	if err != nil {
		return 0, err
	}
	if m.groups == 1 {
		if margins[0] > 0 {
			return 1, nil
		}
		return 0, nil
	}
	best := 0
	for i := 1; i < len(margins); i++ {
		if margins[i] > margins[best] {
			best = i
		}
	}
	return best, nil
}

func parseIntParam(name, s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return v, nil
}

// parseBaseScore handles both the scalar ("5E-1") and vector
// ("[5E-1,1E-1]") encodings of base_score.
func parseBaseScore(s string) ([]float32, error) {
	s = strings.Trim(strings.TrimSpace(s), "[]")
	if s == "" {
		return []float32{0.5}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid base_score %q: %w", s, err)
		}
		out[i] = float32(v)
	}
	return out, nil
}

func probToMargin(objective string, p float32) float32 {
	switch objective {
	case "binary:logistic", "binary:logitraw", "reg:logistic":
		if p <= 0 || p >= 1 {
			return 0
		}
		return float32(-math.Log(1/float64(p) - 1))
	default:
		return p
	}
}
