// Package features turns raw ledger records into the fixed 47-column
// vector the fraud classifier expects.
package features

import (
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/params"

	"github.com/opensource-finance/harrier/internal/domain"
)

// partition splits native transactions into sent and received sets for
// addr. Comparison is case-insensitive; records missing the relevant
// field fall out of both sets.
func partition(txs []domain.Transaction, addr string) (sent, received []domain.Transaction) {
	for _, tx := range txs {
		if tx.SentBy(addr) {
			sent = append(sent, tx)
		}
		if tx.ReceivedBy(addr) {
			received = append(received, tx)
		}
	}
	return sent, received
}

// contractCreations collects the distinct non-empty contractAddress
// values across a native transaction list, lowercased.
func contractCreations(txs []domain.Transaction) map[string]bool {
	out := make(map[string]bool)
	for _, tx := range txs {
		if tx.ContractAddress != "" {
			out[strings.ToLower(tx.ContractAddress)] = true
		}
	}
	return out
}

// isContractBound reports whether a sent transaction targets a contract:
// either its destination is a known creation address or it carries
// calldata.
func isContractBound(tx domain.Transaction, creations map[string]bool) bool {
	return creations[strings.ToLower(tx.To)] || tx.HasPayload()
}

// parseEther converts a record's wei value to ether. Returns false when
// the field is absent or unparseable; such records are skipped in value
// statistics rather than polluting them with zeros.
func parseEther(tx domain.Transaction) (float64, bool) {
	if tx.Value == "" {
		return 0, false
	}
	i, ok := new(big.Int).SetString(tx.Value, 10)
	if !ok {
		return 0, false
	}
	f, _ := new(big.Float).SetInt(i).Float64()
	return f / params.Ether, true
}

// etherValues returns the parseable ether values of a transaction list.
func etherValues(txs []domain.Transaction) []float64 {
	var out []float64
	for _, tx := range txs {
		if v, ok := parseEther(tx); ok {
			out = append(out, v)
		}
	}
	return out
}

// timestamps returns the parseable Unix timestamps of a transaction list.
func timestamps(txs []domain.Transaction) []int64 {
	var out []int64
	for _, tx := range txs {
		if tx.TimeStamp == "" {
			continue
		}
		ts, err := strconv.ParseInt(tx.TimeStamp, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, ts)
	}
	return out
}

// avgMinutesBetween averages the gaps between consecutive timestamps in
// minutes. Zero or one timestamps yield 0.
func avgMinutesBetween(ts []int64) float64 {
	if len(ts) < 2 {
		return 0
	}
	sorted := make([]int64, len(ts))
	copy(sorted, ts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total float64
	for i := 1; i < len(sorted); i++ {
		total += float64(sorted[i]-sorted[i-1]) / 60
	}
	return total / float64(len(sorted)-1)
}

// spanMinutes is the distance between the earliest and latest timestamp.
func spanMinutes(ts []int64) float64 {
	if len(ts) == 0 {
		return 0
	}
	minTS, maxTS := ts[0], ts[0]
	for _, t := range ts[1:] {
		if t < minTS {
			minTS = t
		}
		if t > maxTS {
			maxTS = t
		}
	}
	return float64(maxTS-minTS) / 60
}

// uniqueAddrs counts distinct non-empty values of one address field,
// case-insensitively.
func uniqueAddrs(txs []domain.Transaction, pick func(domain.Transaction) string) float64 {
	seen := make(map[string]bool)
	for _, tx := range txs {
		if a := pick(tx); a != "" {
			seen[strings.ToLower(a)] = true
		}
	}
	return float64(len(seen))
}

// tokenSymbols returns the symbol of every transfer, substituting
// "Unknown" for records without one.
func tokenSymbols(txs []domain.Transaction) []string {
	out := make([]string, len(txs))
	for i, tx := range txs {
		if tx.TokenSymbol != "" {
			out[i] = tx.TokenSymbol
		} else {
			out[i] = "Unknown"
		}
	}
	return out
}

// uniqueStrings counts distinct values.
func uniqueStrings(values []string) float64 {
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		seen[v] = true
	}
	return float64(len(seen))
}

// mostFrequent returns the most common value, ties broken by first
// encounter order. ok is false for an empty input.
func mostFrequent(values []string) (top string, ok bool) {
	if len(values) == 0 {
		return "", false
	}
	counts := make(map[string]int, len(values))
	firstSeen := make(map[string]int, len(values))
	for i, v := range values {
		if _, seen := firstSeen[v]; !seen {
			firstSeen[v] = i
		}
		counts[v]++
	}
	best := -1
	for v, c := range counts {
		if c > best || (c == best && firstSeen[v] < firstSeen[top]) {
			best = c
			top = v
		}
	}
	return top, true
}

// stats holds min/max/mean/sum over a value set.
type stats struct {
	Min, Max, Mean, Sum float64
}

// valueStats computes stats over values; ok is false for an empty set,
// in which case only Sum (zero) is meaningful.
func valueStats(values []float64) (stats, bool) {
	var s stats
	if len(values) == 0 {
		return s, false
	}
	s.Min, s.Max = values[0], values[0]
	for _, v := range values {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		s.Sum += v
	}
	s.Mean = s.Sum / float64(len(values))
	return s, true
}
