package model

import (
	"testing"
)

func TestReasonTemplates(t *testing.T) {
	tests := []struct {
		name    string
		feature string
		value   any
		want    string
	}{
		{"token uniq", " ERC20 uniq sent addr", 7.0, "Interacted with 7 unique token addresses"},
		{"token total", " Total ERC20 tnxs", 12.0, "Total of 12 ERC-20 transactions"},
		{"token type", " ERC20_most_rec_token_type", "USDT", "Most common token type: USDT"},
		{"token generic", " ERC20 max val sent", 3.0, "Unusual ERC-20 token activity pattern"},
		{"span minutes", "Time Diff between first and last (Mins)", 45.0, "Account active for only 45 minutes"},
		{"span hours", "Time Diff between first and last (Mins)", 120.0, "Account active for 2.0 hours"},
		{"span days", "Time Diff between first and last (Mins)", 2880.0, "Account active for 2.0 days"},
		{"avg gap", "Avg min between sent tnx", 15.25, "Average 15.2 minutes between transactions"},
		{"uniq addresses", "Unique Sent To Addresses", 4.0, "Interacted with 4 unique addresses"},
		{"value metric", "avg val received", 0.5, "Value metric: 0.5000 ETH"},
		{"sent count", "Sent tnx", 10.0, "Sent 10 transactions"},
		{"received count", "Received Tnx", 5.0, "Received 5 transactions"},
		{"contract", "Number of Created Contracts", 1.0, "Contract interaction: 1"},
		{"contract total", "total transactions (including tnx to create contract", 15.0, "Contract interaction: 15"},
		{"generic", " unusual flag", 1.0, "unusual flag: 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := reasonFor(tt.feature, tt.value); got != tt.want {
				t.Errorf("reasonFor(%q, %v) = %q, want %q", tt.feature, tt.value, got, tt.want)
			}
		})
	}
}

// ERC-20 timing columns match both the token and the timing rule; the
// token rule must win.
func TestReasonPrecedence(t *testing.T) {
	got := reasonFor(" ERC20 avg time between sent tnx", 30.0)
	if got != "Unusual ERC-20 token activity pattern" {
		t.Errorf("token rule must take precedence, got %q", got)
	}
}
