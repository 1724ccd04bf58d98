package domain

// FraudThreshold is the probability at or above which a wallet is
// classified as fraudulent.
const FraudThreshold = 0.5

// Confidence tiers derived from distance to the decision boundary.
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Prediction is the raw classifier output for one wallet.
type Prediction struct {
	IsFraud          bool    `json:"is_fraud"`
	FraudProbability float64 `json:"fraud_probability"`
	Confidence       string  `json:"confidence"`

	// ModelLoaded is false when the service runs without a trained
	// artifact and returns the fixed placeholder prediction.
	ModelLoaded bool `json:"model_loaded"`
}

// PlaceholderPrediction is returned for every wallet when no model
// artifact is loaded. Callers detect it via ModelLoaded.
func PlaceholderPrediction() Prediction {
	return Prediction{
		IsFraud:          false,
		FraudProbability: 0.15,
		Confidence:       ConfidenceLow,
		ModelLoaded:      false,
	}
}

// ConfidenceFor maps a fraud probability to a confidence tier.
// Probabilities far from 0.5 in either direction are high confidence.
func ConfidenceFor(probability float64) string {
	switch {
	case probability >= 0.85 || probability <= 0.15:
		return ConfidenceHigh
	case probability >= 0.70 || probability <= 0.30:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
