// Package scoring composes fetching, feature extraction, classification
// and policy into a single wallet scoring pipeline.
package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/features"
	"github.com/opensource-finance/harrier/internal/metrics"
	"github.com/opensource-finance/harrier/internal/model"
	"github.com/opensource-finance/harrier/internal/policy"
)

// DefaultTopFeatures is how many attribution factors a detailed report
// carries when the caller does not ask for a specific count.
const DefaultTopFeatures = 5

// Options controls how much work a single scoring does.
type Options struct {
	// Explain adds the attribution factors and wallet stats that the
	// detailed endpoint returns.
	Explain bool

	// TopFeatures caps the number of attribution factors. Zero means
	// DefaultTopFeatures. Only meaningful with Explain.
	TopFeatures int
}

// Scorer runs the scoring pipeline for one wallet at a time.
type Scorer struct {
	fetcher  domain.WalletFetcher
	detector *model.Detector
	policy   *policy.Engine
	bus      domain.EventBus
	logger   *slog.Logger
	version  string
}

// New creates a scorer. The policy engine and event bus are optional.
func New(fetcher domain.WalletFetcher, detector *model.Detector, pol *policy.Engine, bus domain.EventBus, logger *slog.Logger, version string) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{
		fetcher:  fetcher,
		detector: detector,
		policy:   pol,
		bus:      bus,
		logger:   logger,
		version:  version,
	}
}

// Score fetches the wallet, extracts its feature vector, classifies it
// and applies policy rules. The returned report always carries the
// verdict band and recommendation. With Options.Explain it also carries
// the attribution factors and wallet stats.
func (s *Scorer) Score(ctx context.Context, address string, opts Options) (*domain.Report, error) {
	start := time.Now()

	snap, err := s.fetcher.Fetch(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("fetch wallet %s: %w", address, err)
	}

	f, err := features.FromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("extract features for %s: %w", address, err)
	}

	pred := s.detector.Predict(f)
	// Band on the raw score; rounding is display-only and could flip a
	// probability sitting just under a boundary into the next band.
	rawScore := pred.FraudProbability * 100
	verdict, recommendation := domain.VerdictFor(rawScore)
	score := round2(rawScore)

	report := &domain.Report{
		ID:             uuid.New().String(),
		Address:        strings.ToLower(address),
		IsFraud:        pred.IsFraud,
		Score:          score,
		Confidence:     pred.Confidence,
		Verdict:        verdict,
		Recommendation: recommendation,
		ModelLoaded:    pred.ModelLoaded,
		EvaluatedAt:    time.Now().UTC(),
		EngineVersion:  s.version,
	}

	if opts.Explain {
		topN := opts.TopFeatures
		if topN == 0 {
			topN = DefaultTopFeatures
		}
		attrs, err := s.detector.Explain(f, topN)
		if err != nil {
			return nil, fmt.Errorf("explain %s: %w", address, err)
		}
		report.Explanation = &domain.Explanation{
			Summary:    summarize(pred, attrs.Factors),
			Method:     attrs.Method,
			TopFactors: attrs.Factors,
		}
		report.Stats = walletStats(f)
	}

	if s.policy != nil {
		s.policy.Apply(report, pred.FraudProbability, f)
	}

	s.publish(ctx, report)

	metrics.ScoresTotal.WithLabelValues(report.Verdict).Inc()
	if report.IsFraud {
		metrics.FraudsFlagged.Inc()
	}
	metrics.ScoreDuration.Observe(time.Since(start).Seconds())

	s.logger.Info("wallet scored",
		"address", report.Address,
		"score", report.Score,
		"verdict", report.Verdict,
		"recommendation", report.Recommendation,
		"model_loaded", report.ModelLoaded,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return report, nil
}

// publish emits the scored event, plus an alert when the wallet was
// classified as fraud. Bus failures are logged, never fatal.
func (s *Scorer) publish(ctx context.Context, report *domain.Report) {
	if s.bus == nil {
		return
	}

	payload, err := json.Marshal(report)
	if err != nil {
		s.logger.Warn("failed to encode report for publishing", "error", err)
		return
	}

	if err := s.bus.Publish(ctx, domain.TopicWalletScored, payload); err != nil {
		s.logger.Warn("failed to publish scored event", "address", report.Address, "error", err)
	}

	if report.IsFraud {
		if err := s.bus.Publish(ctx, domain.TopicAlert, payload); err != nil {
			s.logger.Warn("failed to publish alert", "address", report.Address, "error", err)
		}
	}
}

func summarize(pred domain.Prediction, factors []domain.Attribution) string {
	if !pred.IsFraud {
		return "No fraud indicators detected. Wallet behavior appears normal."
	}

	reasons := make([]string, 0, 3)
	for _, factor := range factors {
		if len(reasons) == 3 {
			break
		}
		reasons = append(reasons, factor.Reason)
	}
	return "Flagged as potential fraud. Key indicators: " + strings.Join(reasons, "; ")
}

func walletStats(f *domain.FeatureVector) *domain.WalletStats {
	ageDays := 0.0
	if f.TimeDiffFirstLastMins > 0 {
		ageDays = round2(f.TimeDiffFirstLastMins / 1440)
	}

	return &domain.WalletStats{
		EthTransactions:      int(f.TotalTransactions),
		TokenTransactions:    int(f.ERC20TotalTnxs),
		BalanceEth:           round6(f.TotalEtherBalance),
		AccountAgeDays:       ageDays,
		UniqueCounterparties: int(f.UniqueSentTo) + int(f.UniqueReceivedFrom),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
