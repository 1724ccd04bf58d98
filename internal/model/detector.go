package model

import (
	"errors"
	"log/slog"
	"sort"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// ErrNegativeTopN is returned when a caller asks for a negative number
// of explanation factors.
var ErrNegativeTopN = errors.New("top-n must be non-negative")

// fallbackFeatures is the fixed importance ranking used when no trained
// ensemble is available, taken from the training run's global feature
// importances.
var fallbackFeatures = []string{
	" ERC20_most_rec_token_type",
	" Total ERC20 tnxs",
	"Time Diff between first and last (Mins)",
	"Unique Received From Addresses",
	" ERC20 most sent token type",
	"avg val received",
	"Sent tnx",
	"Unique Sent To Addresses",
}

// Detector scores feature vectors with the loaded ensemble. It always
// answers: with no artifact on disk it returns the fixed placeholder
// prediction and the static fallback explanation instead of failing.
type Detector struct {
	ensemble *ensemble
	pre      *preprocessor
	logger   *slog.Logger
}

// Load builds a Detector from the configured artifact paths. Missing
// artifacts degrade with a warning; malformed ones are an error.
func Load(cfg domain.ModelConfig, logger *slog.Logger) (*Detector, error) {
	if logger == nil {
		logger = slog.Default()
	}

	ens, err := loadEnsemble(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	if ens == nil {
		logger.Warn("model artifact not found, using placeholder predictions",
			"path", cfg.ModelPath)
	}

	pre, err := loadPreprocessor(cfg.PreprocessorPath)
	if err != nil {
		return nil, err
	}
	if pre.mean == nil && pre.encoders == nil {
		logger.Warn("preprocessor artifact not found, using raw features",
			"path", cfg.PreprocessorPath)
	}

	return &Detector{ensemble: ens, pre: pre, logger: logger}, nil
}

// Loaded reports whether a trained ensemble is available.
func (d *Detector) Loaded() bool {
	return d.ensemble != nil
}

// Predict classifies one feature vector.
func (d *Detector) Predict(f *domain.FeatureVector) domain.Prediction {
	if d.ensemble == nil {
		return domain.PlaceholderPrediction()
	}

	prob := probability(d.ensemble.margin(d.pre.transform(f)))
	return domain.Prediction{
		IsFraud:          prob >= domain.FraudThreshold,
		FraudProbability: prob,
		Confidence:       domain.ConfidenceFor(prob),
		ModelLoaded:      true,
	}
}

// Explain ranks the features that drove the prediction for f. With a
// loaded ensemble it uses exact path contributions; otherwise it falls
// back to the static ranking. topN bounds the result; zero yields an
// empty set and a negative value is caller error.
func (d *Detector) Explain(f *domain.FeatureVector, topN int) (*domain.AttributionSet, error) {
	if topN < 0 {
		return nil, ErrNegativeTopN
	}
	if d.ensemble == nil {
		return d.fallbackExplanation(f, topN), nil
	}

	contribs := d.ensemble.contributions(d.pre.transform(f))
	columns := domain.FeatureColumns()

	order := make([]int, len(columns))
	for i := range order {
		order[i] = i
	}
	// Rank by absolute contribution, schema order breaking ties so the
	// result is deterministic.
	sort.SliceStable(order, func(a, b int) bool {
		return abs(contribs[order[a]]) > abs(contribs[order[b]])
	})

	if topN > len(order) {
		topN = len(order)
	}

	factors := make([]domain.Attribution, 0, topN)
	for _, idx := range order[:topN] {
		col := columns[idx]
		c := contribs[idx]
		raw := f.Value(col)

		impact := domain.ImpactDecreases
		if c > 0 {
			impact = domain.ImpactIncreases
		}
		factors = append(factors, domain.Attribution{
			Feature:    strings.TrimSpace(col),
			Value:      raw,
			Importance: abs(c),
			Impact:     impact,
			Reason:     reasonFor(col, raw),
		})
	}

	return &domain.AttributionSet{
		Method:  domain.MethodPathContribution,
		Factors: factors,
	}, nil
}

func (d *Detector) fallbackExplanation(f *domain.FeatureVector, topN int) *domain.AttributionSet {
	if topN > len(fallbackFeatures) {
		topN = len(fallbackFeatures)
	}

	factors := make([]domain.Attribution, 0, topN)
	for _, col := range fallbackFeatures[:topN] {
		raw := f.Value(col)
		factors = append(factors, domain.Attribution{
			Feature:    strings.TrimSpace(col),
			Value:      raw,
			Importance: 0,
			Impact:     domain.ImpactUnknown,
			Reason:     reasonFor(col, raw),
		})
	}
	return &domain.AttributionSet{
		Method:  domain.MethodStaticRank,
		Factors: factors,
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
