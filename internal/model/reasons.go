package model

import (
	"fmt"
	"strings"
)

// reasonFor renders a templated sentence for one feature. Matching is by
// case-insensitive substring with a fixed precedence: token activity
// first, then timing, uniqueness, values, plain counts, contracts, and
// finally a generic rendering. Several column names match more than one
// category, so the order matters.
func reasonFor(feature string, value any) string {
	lower := strings.ToLower(feature)

	switch {
	case strings.Contains(lower, "erc20") || strings.Contains(lower, "token"):
		switch {
		case strings.Contains(lower, "uniq"):
			return fmt.Sprintf("Interacted with %v unique token addresses", value)
		case strings.Contains(lower, "total") && strings.Contains(lower, "tnx"):
			return fmt.Sprintf("Total of %v ERC-20 transactions", value)
		case strings.Contains(lower, "type"):
			return fmt.Sprintf("Most common token type: %v", value)
		default:
			return "Unusual ERC-20 token activity pattern"
		}

	case strings.Contains(lower, "time") || strings.Contains(lower, "diff") || strings.Contains(lower, "min between"):
		if strings.Contains(lower, "diff") {
			mins := asFloat(value)
			switch {
			case mins < 60:
				return fmt.Sprintf("Account active for only %.0f minutes", mins)
			case mins < 1440:
				return fmt.Sprintf("Account active for %.1f hours", mins/60)
			default:
				return fmt.Sprintf("Account active for %.1f days", mins/1440)
			}
		}
		return fmt.Sprintf("Average %.1f minutes between transactions", asFloat(value))

	case strings.Contains(lower, "uniq"):
		return fmt.Sprintf("Interacted with %v unique addresses", value)

	case strings.Contains(lower, "val") || strings.Contains(lower, "ether") || strings.Contains(lower, "balance"):
		return fmt.Sprintf("Value metric: %.4f ETH", asFloat(value))

	case strings.Contains(lower, "sent tnx"):
		return fmt.Sprintf("Sent %v transactions", value)

	case strings.Contains(lower, "received") && strings.Contains(lower, "tnx"):
		return fmt.Sprintf("Received %v transactions", value)

	case strings.Contains(lower, "contract"):
		return fmt.Sprintf("Contract interaction: %v", value)

	default:
		return fmt.Sprintf("%s: %v", strings.TrimSpace(feature), value)
	}
}

func asFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
