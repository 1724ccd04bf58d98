package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/bus"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/model"
	"github.com/opensource-finance/harrier/internal/policy"
)

const testAddr = "0x00009277775ac7d0d59eaad8fee3d10ac6c805e8"

type fakeFetcher struct {
	snap *domain.WalletSnapshot
	err  error
}

func (f *fakeFetcher) Fetch(ctx context.Context, address string) (*domain.WalletSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func emptySnapshot() *domain.WalletSnapshot {
	return &domain.WalletSnapshot{
		Address:    testAddr,
		BalanceWei: "1000000000000000000",
		FetchedAt:  time.Now().UTC(),
	}
}

func unloadedDetector(t *testing.T) *model.Detector {
	t.Helper()
	dir := t.TempDir()
	det, err := model.Load(domain.ModelConfig{
		ModelPath:        filepath.Join(dir, "missing_model.json"),
		PreprocessorPath: filepath.Join(dir, "missing_pre.json"),
	}, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return det
}

// fraudDetector loads a one-split ensemble that flags any wallet with
// more than five sent transactions.
func fraudDetector(t *testing.T) *model.Detector {
	t.Helper()
	dir := t.TempDir()

	artifact := `{
		"schema": "eth-fraud-47/v1",
		"base_score": 0,
		"trees": [{
			"nodes": [
				{"feature": 3, "threshold": 5, "left": 1, "right": 2, "value": 0},
				{"leaf": true, "value": -2},
				{"leaf": true, "value": 2}
			]
		}]
	}`
	path := filepath.Join(dir, "model.json")
	if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	det, err := model.Load(domain.ModelConfig{
		ModelPath:        path,
		PreprocessorPath: filepath.Join(dir, "missing_pre.json"),
	}, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return det
}

// snapshotWithSends returns a wallet with n outgoing transactions.
func snapshotWithSends(n int) *domain.WalletSnapshot {
	txs := make([]domain.Transaction, 0, n)
	for i := 0; i < n; i++ {
		txs = append(txs, domain.Transaction{
			Hash:      fmt.Sprintf("0x%02d", i),
			From:      testAddr,
			To:        "0x1111111111111111111111111111111111111111",
			Value:     "1000000000000000000",
			TimeStamp: fmt.Sprintf("%d", 1600000000+i*60),
		})
	}
	return &domain.WalletSnapshot{
		Address:    testAddr,
		NativeTxs:  txs,
		BalanceWei: "2000000000000000000",
		FetchedAt:  time.Now().UTC(),
	}
}

func TestScoreWithoutModel(t *testing.T) {
	scorer := New(&fakeFetcher{snap: emptySnapshot()}, unloadedDetector(t), nil, nil, nil, "test")

	report, err := scorer.Score(context.Background(), testAddr, Options{})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if report.ModelLoaded {
		t.Error("ModelLoaded should be false without an artifact")
	}
	if report.IsFraud {
		t.Error("placeholder prediction should not be fraud")
	}
	if report.Score != 15 {
		t.Errorf("expected score 15 from placeholder probability, got %v", report.Score)
	}
	if report.Verdict != domain.VerdictSafe || report.Recommendation != domain.RecommendationApprove {
		t.Errorf("expected safe/approve, got %s/%s", report.Verdict, report.Recommendation)
	}
	if report.Explanation != nil || report.Stats != nil {
		t.Error("condensed scoring should not populate explanation or stats")
	}
	if report.ID == "" {
		t.Error("report should carry an ID")
	}
	if report.EngineVersion != "test" {
		t.Errorf("unexpected engine version %q", report.EngineVersion)
	}
}

func TestScoreDetailedFallbackExplanation(t *testing.T) {
	scorer := New(&fakeFetcher{snap: emptySnapshot()}, unloadedDetector(t), nil, nil, nil, "test")

	report, err := scorer.Score(context.Background(), testAddr, Options{Explain: true, TopFeatures: 3})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if report.Explanation == nil {
		t.Fatal("expected explanation")
	}
	if report.Explanation.Method != domain.MethodStaticRank {
		t.Errorf("expected static-rank method, got %s", report.Explanation.Method)
	}
	if len(report.Explanation.TopFactors) != 3 {
		t.Errorf("expected 3 factors, got %d", len(report.Explanation.TopFactors))
	}
	if !strings.Contains(report.Explanation.Summary, "No fraud indicators") {
		t.Errorf("unexpected summary %q", report.Explanation.Summary)
	}

	if report.Stats == nil {
		t.Fatal("expected stats")
	}
	if report.Stats.BalanceEth != 1.0 {
		t.Errorf("expected 1.0 ETH balance, got %v", report.Stats.BalanceEth)
	}
	// Stats echo the feature vector, so an empty history reports the
	// schema default transaction count rather than zero.
	if report.Stats.EthTransactions != 15 {
		t.Errorf("expected default transaction count 15 for empty wallet, got %d", report.Stats.EthTransactions)
	}
}

func TestScoreFraudVerdictAndSummary(t *testing.T) {
	scorer := New(&fakeFetcher{snap: snapshotWithSends(10)}, fraudDetector(t), nil, nil, nil, "test")

	report, err := scorer.Score(context.Background(), testAddr, Options{Explain: true})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if !report.IsFraud {
		t.Fatal("expected fraud classification for 10 sent txs")
	}
	// sigmoid(2) * 100 = 88.08
	if report.Score != 88.08 {
		t.Errorf("expected score 88.08, got %v", report.Score)
	}
	if report.Verdict != domain.VerdictDangerous || report.Recommendation != domain.RecommendationReject {
		t.Errorf("expected dangerous/reject, got %s/%s", report.Verdict, report.Recommendation)
	}
	if report.Explanation.Method != domain.MethodPathContribution {
		t.Errorf("expected path-contribution explanation, got %s", report.Explanation.Method)
	}
	if !strings.HasPrefix(report.Explanation.Summary, "Flagged as potential fraud") {
		t.Errorf("unexpected summary %q", report.Explanation.Summary)
	}
	if len(report.Explanation.TopFactors) == 0 || report.Explanation.TopFactors[0].Feature != "Sent tnx" {
		t.Errorf("expected Sent tnx as top factor, got %+v", report.Explanation.TopFactors)
	}

	if report.Stats.EthTransactions != 10 {
		t.Errorf("expected 10 eth transactions, got %d", report.Stats.EthTransactions)
	}
	if report.Stats.UniqueCounterparties != 1 {
		t.Errorf("expected 1 unique counterparty, got %d", report.Stats.UniqueCounterparties)
	}
	// 9 minutes between first and last tx.
	if report.Stats.AccountAgeDays != 0.01 {
		t.Errorf("expected 0.01 account age days, got %v", report.Stats.AccountAgeDays)
	}
}

// marginDetector loads an ensemble that yields the given margin for
// every input.
func marginDetector(t *testing.T, margin float64) *model.Detector {
	t.Helper()
	dir := t.TempDir()

	artifact := fmt.Sprintf(`{
		"schema": "eth-fraud-47/v1",
		"base_score": 0,
		"trees": [{
			"nodes": [
				{"feature": 3, "threshold": 5, "left": 1, "right": 2, "value": 0},
				{"leaf": true, "value": %v},
				{"leaf": true, "value": %v}
			]
		}]
	}`, margin, margin)
	path := filepath.Join(dir, "model.json")
	if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}

	det, err := model.Load(domain.ModelConfig{
		ModelPath:        path,
		PreprocessorPath: filepath.Join(dir, "missing_pre.json"),
	}, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return det
}

func TestScoreBandsBeforeRounding(t *testing.T) {
	// sigmoid(-1.0988)*100 = 24.9965: displays as 25.0 after rounding
	// but must stay inside the safe band.
	scorer := New(&fakeFetcher{snap: emptySnapshot()}, marginDetector(t, -1.0988), nil, nil, nil, "test")

	report, err := scorer.Score(context.Background(), testAddr, Options{})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if report.Score != 25.0 {
		t.Errorf("expected rounded score 25.0, got %v", report.Score)
	}
	if report.Verdict != domain.VerdictSafe {
		t.Errorf("expected safe verdict at the band edge, got %s", report.Verdict)
	}
	if report.Recommendation != domain.RecommendationApprove {
		t.Errorf("expected approve recommendation, got %s", report.Recommendation)
	}
}

func TestScoreDefaultTopFeatures(t *testing.T) {
	scorer := New(&fakeFetcher{snap: emptySnapshot()}, unloadedDetector(t), nil, nil, nil, "test")

	report, err := scorer.Score(context.Background(), testAddr, Options{Explain: true})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if len(report.Explanation.TopFactors) != DefaultTopFeatures {
		t.Errorf("expected %d factors by default, got %d", DefaultTopFeatures, len(report.Explanation.TopFactors))
	}
}

func TestScoreNegativeTopFeatures(t *testing.T) {
	scorer := New(&fakeFetcher{snap: emptySnapshot()}, unloadedDetector(t), nil, nil, nil, "test")

	_, err := scorer.Score(context.Background(), testAddr, Options{Explain: true, TopFeatures: -1})
	if err == nil {
		t.Fatal("expected error for negative top features")
	}
}

func TestScoreFetchError(t *testing.T) {
	scorer := New(&fakeFetcher{err: fmt.Errorf("provider down")}, unloadedDetector(t), nil, nil, nil, "test")

	_, err := scorer.Score(context.Background(), testAddr, Options{})
	if err == nil {
		t.Fatal("expected fetch error to propagate")
	}
}

func TestScorePolicyOverride(t *testing.T) {
	engine, err := policy.NewEngine([]domain.PolicyRuleConfig{
		{
			ID:         "low-confidence-review",
			Expression: `confidence == "low" && verdict == "safe"`,
			Action:     "review",
			Reason:     "low confidence verdicts need a second look",
		},
	})
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	scorer := New(&fakeFetcher{snap: emptySnapshot()}, unloadedDetector(t), engine, nil, nil, "test")

	report, err := scorer.Score(context.Background(), testAddr, Options{})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	if len(report.Overrides) != 1 {
		t.Fatalf("expected 1 override, got %d", len(report.Overrides))
	}
	if report.Recommendation != domain.RecommendationReview {
		t.Errorf("expected recommendation escalated to review, got %s", report.Recommendation)
	}
}

func TestScorePublishesEvents(t *testing.T) {
	eventBus := bus.NewChannelBus(10)
	defer eventBus.Close()

	var mu sync.Mutex
	var scored, alerts []*domain.Report

	ctx := context.Background()
	eventBus.Subscribe(ctx, domain.TopicWalletScored, func(ctx context.Context, msg *domain.Message) error {
		var r domain.Report
		if err := json.Unmarshal(msg.Payload, &r); err != nil {
			return err
		}
		mu.Lock()
		scored = append(scored, &r)
		mu.Unlock()
		return nil
	})
	eventBus.Subscribe(ctx, domain.TopicAlert, func(ctx context.Context, msg *domain.Message) error {
		var r domain.Report
		if err := json.Unmarshal(msg.Payload, &r); err != nil {
			return err
		}
		mu.Lock()
		alerts = append(alerts, &r)
		mu.Unlock()
		return nil
	})
	time.Sleep(10 * time.Millisecond)

	scorer := New(&fakeFetcher{snap: snapshotWithSends(10)}, fraudDetector(t), nil, eventBus, nil, "test")
	if _, err := scorer.Score(ctx, testAddr, Options{}); err != nil {
		t.Fatalf("Score failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for {
		mu.Lock()
		gotScored, gotAlerts := len(scored), len(alerts)
		mu.Unlock()
		if gotScored == 1 && gotAlerts == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected 1 scored event and 1 alert, got %d and %d", gotScored, gotAlerts)
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if scored[0].Address != testAddr {
		t.Errorf("scored event address mismatch: %s", scored[0].Address)
	}
	if !alerts[0].IsFraud {
		t.Error("alert event should carry a fraud report")
	}
}

func TestScoreAddressLowercased(t *testing.T) {
	scorer := New(&fakeFetcher{snap: emptySnapshot()}, unloadedDetector(t), nil, nil, nil, "test")

	upper := "0x" + strings.ToUpper(testAddr[2:])
	report, err := scorer.Score(context.Background(), upper, Options{})
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if report.Address != testAddr {
		t.Errorf("expected lowercased address %s, got %s", testAddr, report.Address)
	}
}
