package domain

import (
	"time"
)

// Verdict bands over the 0-100 score.
const (
	VerdictSafe       = "safe"
	VerdictSuspicious = "suspicious"
	VerdictDangerous  = "dangerous"
)

// Recommended actions, one per verdict unless policy overrides.
const (
	RecommendationApprove = "approve"
	RecommendationReview  = "review"
	RecommendationReject  = "reject"
)

// VerdictFor maps a 0-100 score to its verdict band and recommendation.
func VerdictFor(score float64) (verdict, recommendation string) {
	switch {
	case score < 25:
		return VerdictSafe, RecommendationApprove
	case score < 60:
		return VerdictSuspicious, RecommendationReview
	default:
		return VerdictDangerous, RecommendationReject
	}
}

// Report is the complete scoring result for one wallet.
type Report struct {
	ID      string `json:"id"`
	Address string `json:"address"`

	IsFraud bool `json:"is_fraud"`

	// Score is the fraud probability scaled to 0-100, rounded to 2 dp.
	Score          float64 `json:"score"`
	Confidence     string  `json:"confidence"`
	Verdict        string  `json:"verdict"`
	Recommendation string  `json:"recommendation"`
	ModelLoaded    bool    `json:"model_loaded"`

	// Explanation and Stats are only populated for detailed scoring.
	Explanation *Explanation `json:"explanation,omitempty"`
	Stats       *WalletStats `json:"stats,omitempty"`

	// Overrides lists policy rules that fired on this report.
	Overrides []PolicyOverride `json:"overrides,omitempty"`

	EvaluatedAt   time.Time `json:"evaluatedAt"`
	EngineVersion string    `json:"engineVersion,omitempty"`
}

// Explanation is the human-readable part of a detailed report.
type Explanation struct {
	Summary    string        `json:"summary"`
	Method     string        `json:"method"`
	TopFactors []Attribution `json:"top_factors"`
}

// WalletStats are headline numbers surfaced alongside a detailed report.
type WalletStats struct {
	EthTransactions      int     `json:"eth_transactions"`
	TokenTransactions    int     `json:"token_transactions"`
	BalanceEth           float64 `json:"balance_eth"`
	AccountAgeDays       float64 `json:"account_age_days"`
	UniqueCounterparties int     `json:"unique_counterparties"`
}

// PolicyOverride records a policy rule that changed or annotated the
// recommendation after classification.
type PolicyOverride struct {
	RuleID string `json:"ruleId"`
	Action string `json:"action"`
	Reason string `json:"reason,omitempty"`
}
