// Package model runs the pre-trained fraud classifier: a boosted tree
// ensemble exported to JSON, plus the scaler and label encoders it was
// trained with.
package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/opensource-finance/harrier/internal/domain"
)

// SchemaVersion ties artifacts to the 47-column input layout. Artifacts
// with a different schema are rejected at load time.
const SchemaVersion = "eth-fraud-47/v1"

// node is one split or leaf in a decision tree. Value is the expected
// margin of samples reaching the node, which makes exact path
// attribution possible: each split's contribution is the change in
// expected value between a node and the chosen child.
type node struct {
	Leaf      bool    `json:"leaf"`
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// tree is a single decision tree stored as a node array rooted at 0.
type tree struct {
	Nodes []node `json:"nodes"`
}

// ensemble is the full boosted model.
type ensemble struct {
	Schema    string  `json:"schema"`
	BaseScore float64 `json:"base_score"`
	Trees     []tree  `json:"trees"`
}

// loadEnsemble reads a model artifact. A missing file returns nil with
// no error; the detector degrades to placeholder predictions.
func loadEnsemble(path string) (*ensemble, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read model artifact: %w", err)
	}

	var e ensemble
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("parse model artifact: %w", err)
	}
	if e.Schema != SchemaVersion {
		return nil, fmt.Errorf("model artifact schema %q, want %q", e.Schema, SchemaVersion)
	}
	if err := e.validate(); err != nil {
		return nil, fmt.Errorf("model artifact: %w", err)
	}
	return &e, nil
}

func (e *ensemble) validate() error {
	for ti, t := range e.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, n := range t.Nodes {
			if n.Leaf {
				continue
			}
			if n.Feature < 0 || n.Feature >= domain.FeatureCount {
				return fmt.Errorf("tree %d node %d: feature index %d out of range", ti, ni, n.Feature)
			}
			if n.Left < 0 || n.Left >= len(t.Nodes) || n.Right < 0 || n.Right >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d: child index out of range", ti, ni)
			}
		}
	}
	return nil
}

// margin sums the leaf margins for one preprocessed input.
func (e *ensemble) margin(x []float64) float64 {
	m := e.BaseScore
	for _, t := range e.Trees {
		m += t.leafValue(x)
	}
	return m
}

func (t *tree) leafValue(x []float64) float64 {
	n := t.Nodes[0]
	for !n.Leaf {
		if x[n.Feature] < n.Threshold {
			n = t.Nodes[n.Left]
		} else {
			n = t.Nodes[n.Right]
		}
	}
	return n.Value
}

// contributions returns per-feature signed margin deltas accumulated
// along every tree's decision path. The deltas plus the bias (base score
// and root expected values) reconstruct the final margin exactly.
func (e *ensemble) contributions(x []float64) []float64 {
	out := make([]float64, domain.FeatureCount)
	for _, t := range e.Trees {
		n := t.Nodes[0]
		for !n.Leaf {
			var next node
			if x[n.Feature] < n.Threshold {
				next = t.Nodes[n.Left]
			} else {
				next = t.Nodes[n.Right]
			}
			out[n.Feature] += next.Value - n.Value
			n = next
		}
	}
	return out
}

// probability squashes a margin into the positive-class probability.
func probability(margin float64) float64 {
	return 1 / (1 + math.Exp(-margin))
}
