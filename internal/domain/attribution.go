package domain

// Impact describes the direction a feature pushed the fraud probability.
type Impact string

const (
	ImpactIncreases Impact = "increases"
	ImpactDecreases Impact = "decreases"

	// ImpactUnknown marks fallback attributions, where no per-prediction
	// contribution is available.
	ImpactUnknown Impact = "unknown"
)

// Attribution methods.
const (
	// MethodPathContribution is the exact per-prediction mode: signed
	// contributions accumulated along each tree's decision path.
	MethodPathContribution = "path-contribution"

	// MethodStaticRank is the deterministic fallback: a fixed ranking of
	// historically important features, importance zero, impact unknown.
	MethodStaticRank = "static-rank"
)

// Attribution explains one feature's role in a prediction.
type Attribution struct {
	Feature    string  `json:"feature"`
	Value      any     `json:"value"`
	Importance float64 `json:"importance"`
	Impact     Impact  `json:"impact"`
	Reason     string  `json:"reason"`
}

// AttributionSet is a ranked explanation for one prediction.
type AttributionSet struct {
	Method  string        `json:"method"`
	Factors []Attribution `json:"factors"`
}
