package features

import (
	"math"
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

const testAddr = "0x00009277775ac7d0d59eaad8fee3d10ac6c805e8"

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestExtractEmptyHistory(t *testing.T) {
	f, err := Extract(testAddr, nil, nil, "2500000000000000000")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if !almostEqual(f.TotalEtherBalance, 2.5) {
		t.Errorf("expected balance 2.5, got %v", f.TotalEtherBalance)
	}

	// Everything else keeps the training-set defaults.
	def := domain.DefaultFeatures()
	if f.SentTnx != def.SentTnx {
		t.Errorf("expected default sent count %v, got %v", def.SentTnx, f.SentTnx)
	}
	if f.AvgMinBetweenSentTnx != def.AvgMinBetweenSentTnx {
		t.Errorf("expected default avg-min %v, got %v", def.AvgMinBetweenSentTnx, f.AvgMinBetweenSentTnx)
	}
	if f.ERC20MostRecTokenType != "None" {
		t.Errorf("expected token type None, got %q", f.ERC20MostRecTokenType)
	}
}

func TestExtractEmptyHistoryEmptyBalance(t *testing.T) {
	f, err := Extract(testAddr, nil, nil, "")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if f.TotalEtherBalance != 0 {
		t.Errorf("expected zero balance, got %v", f.TotalEtherBalance)
	}
}

func TestExtractInvalidAddress(t *testing.T) {
	for _, addr := range []string{"", "not-an-address", "0x1234"} {
		if _, err := Extract(addr, nil, nil, "0"); err == nil {
			t.Errorf("expected error for address %q", addr)
		}
	}
}

func TestExtractInvalidBalance(t *testing.T) {
	if _, err := Extract(testAddr, nil, nil, "not-a-number"); err == nil {
		t.Error("expected error for non-numeric balance")
	}
}

func TestExtractSentTransactions(t *testing.T) {
	txs := []domain.Transaction{
		{From: testAddr, To: "0x1111111111111111111111111111111111111111", Value: "1000000000000000000", TimeStamp: "1000"},
		{From: testAddr, To: "0x2222222222222222222222222222222222222222", Value: "2000000000000000000", TimeStamp: "2000"},
		{From: testAddr, To: "0x1111111111111111111111111111111111111111", Value: "3000000000000000000", TimeStamp: "3000"},
	}

	f, err := Extract(testAddr, txs, nil, "0")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if f.SentTnx != 3 {
		t.Errorf("expected 3 sent, got %v", f.SentTnx)
	}
	if !almostEqual(f.TotalEtherSent, 6.0) {
		t.Errorf("expected total sent 6.0, got %v", f.TotalEtherSent)
	}
	if !almostEqual(f.AvgValSent, 2.0) {
		t.Errorf("expected avg sent 2.0, got %v", f.AvgValSent)
	}
	if !almostEqual(f.MinValSent, 1.0) || !almostEqual(f.MaxValSent, 3.0) {
		t.Errorf("expected min/max 1.0/3.0, got %v/%v", f.MinValSent, f.MaxValSent)
	}
	if f.UniqueSentTo != 2 {
		t.Errorf("expected 2 unique recipients, got %v", f.UniqueSentTo)
	}
	if f.ReceivedTnx != 0 {
		t.Errorf("expected 0 received, got %v", f.ReceivedTnx)
	}
	// No received transfers: received sum flushes to zero, but the
	// min/max/avg defaults stay.
	if f.TotalEtherReceived != 0 {
		t.Errorf("expected received total 0, got %v", f.TotalEtherReceived)
	}
	def := domain.DefaultFeatures()
	if f.MaxValueReceived != def.MaxValueReceived {
		t.Errorf("expected default max received %v, got %v", def.MaxValueReceived, f.MaxValueReceived)
	}
}

func TestExtractTimingGaps(t *testing.T) {
	txs := []domain.Transaction{
		{From: testAddr, To: "0x1111111111111111111111111111111111111111", TimeStamp: "220"},
		{From: testAddr, To: "0x1111111111111111111111111111111111111111", TimeStamp: "100"},
		{From: testAddr, To: "0x1111111111111111111111111111111111111111", TimeStamp: "160"},
	}

	f, err := Extract(testAddr, txs, nil, "0")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if !almostEqual(f.AvgMinBetweenSentTnx, 1.0) {
		t.Errorf("expected 1.0 min average gap, got %v", f.AvgMinBetweenSentTnx)
	}
	if !almostEqual(f.TimeDiffFirstLastMins, 2.0) {
		t.Errorf("expected 2.0 min span, got %v", f.TimeDiffFirstLastMins)
	}
}

func TestExtractSkipsMalformedRecords(t *testing.T) {
	txs := []domain.Transaction{
		{From: testAddr, To: "0x1111111111111111111111111111111111111111", Value: "oops", TimeStamp: "nope"},
		{From: testAddr, To: "0x2222222222222222222222222222222222222222", Value: "1000000000000000000", TimeStamp: "600"},
	}

	f, err := Extract(testAddr, txs, nil, "0")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if f.SentTnx != 2 {
		t.Errorf("expected 2 sent (count includes malformed), got %v", f.SentTnx)
	}
	if !almostEqual(f.TotalEtherSent, 1.0) {
		t.Errorf("expected 1.0 total from parseable value, got %v", f.TotalEtherSent)
	}
	if !almostEqual(f.MinValSent, 1.0) {
		t.Errorf("malformed value leaked into min: %v", f.MinValSent)
	}
	if f.AvgMinBetweenSentTnx != 0 {
		t.Errorf("expected 0 gap for one valid timestamp, got %v", f.AvgMinBetweenSentTnx)
	}
}

func TestExtractCaseInsensitiveAddresses(t *testing.T) {
	upper := "0x00009277775AC7D0D59EAAD8FEE3D10AC6C805E8"
	txs := []domain.Transaction{
		{From: upper, To: "0x1111111111111111111111111111111111111111", Value: "1000000000000000000"},
	}

	f, err := Extract(testAddr, txs, nil, "0")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if f.SentTnx != 1 {
		t.Errorf("expected case-insensitive match, got sent=%v", f.SentTnx)
	}
}

func TestExtractContractInteractions(t *testing.T) {
	contract := "0x9999999999999999999999999999999999999999"
	txs := []domain.Transaction{
		// Creates a contract.
		{From: testAddr, ContractAddress: contract, TimeStamp: "100"},
		// Sent to the created contract.
		{From: testAddr, To: contract, Value: "2000000000000000000", TimeStamp: "200"},
		// Carries calldata, so it counts as a contract interaction too.
		{From: testAddr, To: "0x1111111111111111111111111111111111111111", Value: "1000000000000000000", Input: "0xa9059cbb", TimeStamp: "300"},
		// Plain transfer, no payload.
		{From: testAddr, To: "0x2222222222222222222222222222222222222222", Value: "5000000000000000000", Input: "0x", TimeStamp: "400"},
	}

	f, err := Extract(testAddr, txs, nil, "0")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if f.CreatedContracts != 1 {
		t.Errorf("expected 1 created contract, got %v", f.CreatedContracts)
	}
	if !almostEqual(f.TotalEtherSentContracts, 3.0) {
		t.Errorf("expected 3.0 ether to contracts, got %v", f.TotalEtherSentContracts)
	}
	if !almostEqual(f.MaxValSentToContract, 2.0) {
		t.Errorf("expected 2.0 max to contract, got %v", f.MaxValSentToContract)
	}
}

func TestExtractTokenFeatures(t *testing.T) {
	peer := "0x3333333333333333333333333333333333333333"
	tokenTxs := []domain.Transaction{
		{From: testAddr, To: peer, Value: "1000000000000000000", TimeStamp: "100", TokenSymbol: "USDT"},
		{From: testAddr, To: peer, Value: "2000000000000000000", TimeStamp: "160", TokenSymbol: "DAI"},
		{From: testAddr, To: peer, Value: "1000000000000000000", TimeStamp: "220", TokenSymbol: "USDT"},
		{From: peer, To: testAddr, Value: "4000000000000000000", TimeStamp: "300", TokenSymbol: "WETH"},
		{From: peer, To: testAddr, Value: "4000000000000000000", TimeStamp: "400"},
	}

	f, err := Extract(testAddr, nil, tokenTxs, "0")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}

	if f.ERC20TotalTnxs != 5 {
		t.Errorf("expected 5 token txs, got %v", f.ERC20TotalTnxs)
	}
	if !almostEqual(f.ERC20TotalEtherSent, 4.0) {
		t.Errorf("expected 4.0 sent, got %v", f.ERC20TotalEtherSent)
	}
	if !almostEqual(f.ERC20TotalEtherReceived, 8.0) {
		t.Errorf("expected 8.0 received, got %v", f.ERC20TotalEtherReceived)
	}
	if f.ERC20MostSentTokenType != "USDT" {
		t.Errorf("expected USDT most sent, got %q", f.ERC20MostSentTokenType)
	}
	// Missing symbols map to Unknown; WETH and Unknown tie, the first
	// encountered wins.
	if f.ERC20MostRecTokenType != "WETH" {
		t.Errorf("expected WETH most received, got %q", f.ERC20MostRecTokenType)
	}
	if f.ERC20UniqSentTokenName != 2 {
		t.Errorf("expected 2 unique sent symbols, got %v", f.ERC20UniqSentTokenName)
	}
	if f.ERC20UniqRecTokenName != 2 {
		t.Errorf("expected 2 unique received symbols, got %v", f.ERC20UniqRecTokenName)
	}
	// Schema quirk: the duplicate columns mirror their source columns.
	if f.ERC20UniqSentContractAddr != f.ERC20UniqSentAddr {
		t.Error("uniq sent addr duplicate out of sync")
	}
	if f.ERC20AvgTimeBetweenRec2Tnx != f.ERC20AvgTimeBetweenRecTnx {
		t.Error("avg time rec duplicate out of sync")
	}
	if !almostEqual(f.ERC20AvgTimeBetweenSentTnx, 1.0) {
		t.Errorf("expected 1.0 min sent gap, got %v", f.ERC20AvgTimeBetweenSentTnx)
	}
}

func TestUniqueCountsBoundedByTxCounts(t *testing.T) {
	txs := []domain.Transaction{
		{From: testAddr, To: "0x1111111111111111111111111111111111111111"},
		{From: testAddr, To: "0x1111111111111111111111111111111111111111"},
		{From: testAddr},
	}

	f, err := Extract(testAddr, txs, nil, "0")
	if err != nil {
		t.Fatalf("extract failed: %v", err)
	}
	if f.UniqueSentTo > f.SentTnx {
		t.Errorf("unique recipients %v exceeds sent count %v", f.UniqueSentTo, f.SentTnx)
	}
	if f.UniqueSentTo != 1 {
		t.Errorf("expected 1 unique recipient, got %v", f.UniqueSentTo)
	}
}

func TestAvgMinutesBetween(t *testing.T) {
	tests := []struct {
		name string
		ts   []int64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []int64{100}, 0},
		{"even gaps", []int64{100, 160, 220}, 1.0},
		{"unsorted", []int64{220, 100, 160}, 1.0},
		{"uneven gaps", []int64{0, 60, 300}, 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := avgMinutesBetween(tt.ts); !almostEqual(got, tt.want) {
				t.Errorf("avgMinutesBetween(%v) = %v, want %v", tt.ts, got, tt.want)
			}
		})
	}
}

func TestMostFrequent(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   string
		ok     bool
	}{
		{"empty", nil, "", false},
		{"single", []string{"USDT"}, "USDT", true},
		{"majority", []string{"DAI", "USDT", "USDT"}, "USDT", true},
		{"tie keeps first seen", []string{"DAI", "USDT", "USDT", "DAI"}, "DAI", true},
		{"all tied keeps first seen", []string{"WETH", "DAI", "USDC"}, "WETH", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := mostFrequent(tt.values)
			if got != tt.want || ok != tt.ok {
				t.Errorf("mostFrequent(%v) = %q,%v want %q,%v", tt.values, got, ok, tt.want, tt.ok)
			}
		})
	}
}
