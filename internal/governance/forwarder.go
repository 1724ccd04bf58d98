// Package governance forwards fraud alerts to an external review
// service where flagged wallets go through a voting workflow.
package governance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/metrics"
	"github.com/opensource-finance/harrier/internal/retry"
)

// Proposal is the payload posted to the review endpoint for each alert.
type Proposal struct {
	Address        string   `json:"address"`
	Score          float64  `json:"score"`
	Verdict        string   `json:"verdict"`
	Recommendation string   `json:"recommendation"`
	Reasons        []string `json:"reasons,omitempty"`
	ReportID       string   `json:"report_id"`
	SubmittedAt    string   `json:"submitted_at"`
}

// Forwarder subscribes to the alert topic and delivers proposals to the
// configured endpoint with retry. Delivery failures are logged and
// dropped; they never block the scoring pipeline.
type Forwarder struct {
	cfg    domain.GovernanceConfig
	bus    domain.EventBus
	client *http.Client
	logger *slog.Logger
	sub    domain.Subscription
}

// NewForwarder creates a forwarder. Start must be called to begin
// consuming alerts.
func NewForwarder(cfg domain.GovernanceConfig, bus domain.EventBus, logger *slog.Logger) *Forwarder {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelayMs <= 0 {
		cfg.BaseDelayMs = 500
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{
		cfg: cfg,
		bus: bus,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start subscribes to the alert topic.
func (f *Forwarder) Start(ctx context.Context) error {
	sub, err := f.bus.Subscribe(ctx, domain.TopicAlert, f.handleAlert)
	if err != nil {
		return fmt.Errorf("subscribe to alerts: %w", err)
	}
	f.sub = sub

	f.logger.Info("governance forwarder started",
		"endpoint", f.cfg.Endpoint,
		"max_attempts", f.cfg.MaxAttempts,
	)
	return nil
}

// Stop unsubscribes from the alert topic.
func (f *Forwarder) Stop() error {
	if f.sub == nil {
		return nil
	}
	return f.sub.Unsubscribe()
}

func (f *Forwarder) handleAlert(ctx context.Context, msg *domain.Message) error {
	var report domain.Report
	if err := json.Unmarshal(msg.Payload, &report); err != nil {
		f.logger.Error("malformed alert payload", "error", err)
		return nil
	}

	if err := f.Forward(ctx, &report); err != nil {
		metrics.AlertsForwarded.WithLabelValues("dropped").Inc()
		f.logger.Error("alert dropped after retries",
			"address", report.Address,
			"report_id", report.ID,
			"error", err,
		)
		return nil
	}

	metrics.AlertsForwarded.WithLabelValues("delivered").Inc()
	f.logger.Info("alert forwarded for review",
		"address", report.Address,
		"report_id", report.ID,
	)
	return nil
}

// Forward posts one proposal, retrying transient failures with backoff.
func (f *Forwarder) Forward(ctx context.Context, report *domain.Report) error {
	proposal := proposalFor(report)

	body, err := json.Marshal(proposal)
	if err != nil {
		return fmt.Errorf("encode proposal: %w", err)
	}

	return retry.Do(ctx, f.cfg.MaxAttempts, f.cfg.BaseDelay(), func() error {
		return f.post(ctx, body)
	})
}

func (f *Forwarder) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("post proposal: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// Client errors do not resolve on retry.
		return retry.Permanent(fmt.Errorf("review endpoint rejected proposal: %s", resp.Status))
	default:
		return fmt.Errorf("review endpoint unavailable: %s", resp.Status)
	}
}

func proposalFor(report *domain.Report) Proposal {
	var reasons []string
	if report.Explanation != nil {
		for _, factor := range report.Explanation.TopFactors {
			reasons = append(reasons, factor.Reason)
			if len(reasons) == 3 {
				break
			}
		}
	}

	return Proposal{
		Address:        report.Address,
		Score:          report.Score,
		Verdict:        report.Verdict,
		Recommendation: report.Recommendation,
		Reasons:        reasons,
		ReportID:       report.ID,
		SubmittedAt:    report.EvaluatedAt.UTC().Format(time.RFC3339),
	}
}
