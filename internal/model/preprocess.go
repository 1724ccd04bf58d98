package model

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"

	"github.com/opensource-finance/harrier/internal/domain"
)

// preprocessorArtifact is the on-disk scaler and encoder export.
type preprocessorArtifact struct {
	Schema string `json:"schema"`
	Scaler *struct {
		Mean  []float64 `json:"mean"`
		Scale []float64 `json:"scale"`
	} `json:"scaler"`
	// LabelEncoders maps a categorical column to its ordered class list;
	// a value's code is its index in that list.
	LabelEncoders map[string][]string `json:"label_encoders"`
}

// preprocessor turns a feature vector into the model input: categorical
// columns label-encoded, numeric columns standard-scaled, all in the
// frozen column order.
type preprocessor struct {
	mean     []float64
	scale    []float64
	encoders map[string]map[string]float64
}

// loadPreprocessor reads the preprocessing artifact. A missing file
// returns an empty preprocessor: raw numeric passthrough and hash
// encoding for categoricals.
func loadPreprocessor(path string) (*preprocessor, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &preprocessor{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read preprocessor artifact: %w", err)
	}

	var art preprocessorArtifact
	if err := json.Unmarshal(raw, &art); err != nil {
		return nil, fmt.Errorf("parse preprocessor artifact: %w", err)
	}
	if art.Schema != SchemaVersion {
		return nil, fmt.Errorf("preprocessor artifact schema %q, want %q", art.Schema, SchemaVersion)
	}

	p := &preprocessor{}
	if art.Scaler != nil {
		if len(art.Scaler.Mean) != domain.NumericFeatureCount || len(art.Scaler.Scale) != domain.NumericFeatureCount {
			return nil, fmt.Errorf("scaler width %d/%d, want %d",
				len(art.Scaler.Mean), len(art.Scaler.Scale), domain.NumericFeatureCount)
		}
		p.mean = art.Scaler.Mean
		p.scale = art.Scaler.Scale
	}
	if len(art.LabelEncoders) > 0 {
		p.encoders = make(map[string]map[string]float64, len(art.LabelEncoders))
		for col, classes := range art.LabelEncoders {
			m := make(map[string]float64, len(classes))
			for i, class := range classes {
				m[class] = float64(i)
			}
			p.encoders[col] = m
		}
	}
	return p, nil
}

// transform produces the 47-wide model input vector.
func (p *preprocessor) transform(f *domain.FeatureVector) []float64 {
	out := make([]float64, 0, domain.FeatureCount)

	numeric := f.Numeric()
	j := 0
	catVals := f.Categorical()
	catCols := domain.CategoricalColumns()
	k := 0

	for _, col := range domain.FeatureColumns() {
		if k < len(catCols) && col == catCols[k] {
			out = append(out, p.encode(col, catVals[k]))
			k++
			continue
		}
		v := numeric[j]
		if p.mean != nil {
			scale := p.scale[j]
			if scale == 0 {
				scale = 1
			}
			v = (v - p.mean[j]) / scale
		}
		out = append(out, v)
		j++
	}
	return out
}

// encode maps a categorical value to its numeric code. Known classes use
// their trained index, unknown classes map to 0, and columns without a
// trained encoder fall back to a stable hash bucket.
func (p *preprocessor) encode(column, value string) float64 {
	enc, ok := p.encoders[column]
	if !ok {
		return hashBucket(value)
	}
	code, ok := enc[value]
	if !ok {
		return 0
	}
	return code
}

// hashBucket maps a string into [0, 1000) deterministically (FNV-1a).
func hashBucket(value string) float64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(value))
	return float64(h.Sum64() % 1000)
}
