package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/etherscan"
	"github.com/opensource-finance/harrier/internal/model"
	"github.com/opensource-finance/harrier/internal/scoring"
)

// WalletScorer runs the scoring pipeline for one address.
type WalletScorer interface {
	Score(ctx context.Context, address string, opts scoring.Options) (*domain.Report, error)
}

// Handler holds dependencies for API handlers.
type Handler struct {
	scorer   WalletScorer
	detector *model.Detector
	repo     domain.Repository
	cache    domain.Cache
	version  string
	started  time.Time
}

// NewHandler creates a new API handler.
func NewHandler(scorer WalletScorer, detector *model.Detector, repo domain.Repository, cache domain.Cache, version string) *Handler {
	return &Handler{
		scorer:   scorer,
		detector: detector,
		repo:     repo,
		cache:    cache,
		version:  version,
		started:  time.Now(),
	}
}

// AnalyzeRequest is the request body for both analyze endpoints.
type AnalyzeRequest struct {
	Address string `json:"address"`

	// TopFeatures is only honored by the detailed endpoint.
	TopFeatures *int `json:"top_features,omitempty"`
}

// AnalyzeResponse is the condensed response for POST /analyze.
type AnalyzeResponse struct {
	Address        string                  `json:"address"`
	IsFraud        bool                    `json:"is_fraud"`
	Score          float64                 `json:"score"`
	Verdict        string                  `json:"verdict"`
	Recommendation string                  `json:"recommendation"`
	Overrides      []domain.PolicyOverride `json:"overrides,omitempty"`
}

// Analyze handles POST /analyze requests with a condensed verdict.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	report, err := h.scorer.Score(r.Context(), req.Address, scoring.Options{})
	if err != nil {
		h.writeScoringError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AnalyzeResponse{
		Address:        report.Address,
		IsFraud:        report.IsFraud,
		Score:          report.Score,
		Verdict:        report.Verdict,
		Recommendation: report.Recommendation,
		Overrides:      report.Overrides,
	})
}

// AnalyzeDetailed handles POST /analyze/detailed requests, returning the
// full report with explanation and stats.
func (h *Handler) AnalyzeDetailed(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	opts := scoring.Options{Explain: true}
	if req.TopFeatures != nil {
		if *req.TopFeatures < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "top_features must be non-negative",
			})
			return
		}
		opts.TopFeatures = *req.TopFeatures
	}

	report, err := h.scorer.Score(r.Context(), req.Address, opts)
	if err != nil {
		h.writeScoringError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) parseRequest(w http.ResponseWriter, r *http.Request) (*AnalyzeRequest, bool) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return nil, false
	}

	req.Address = strings.TrimSpace(req.Address)
	if req.Address == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "address is required",
		})
		return nil, false
	}
	if !common.IsHexAddress(req.Address) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "address is not a valid hex Ethereum address",
		})
		return nil, false
	}

	return &req, true
}

func (h *Handler) writeScoringError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrNegativeTopN):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "top_features must be non-negative",
		})
	case errors.Is(err, etherscan.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, map[string]string{
			"error": "chain provider rate limit exceeded, try again later",
		})
	case errors.Is(err, etherscan.ErrUpstream):
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": "chain provider unavailable",
		})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	modelLoaded := false
	if h.detector != nil {
		modelLoaded = h.detector.Loaded()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":       status,
		"model_loaded": modelLoaded,
		"version":      h.version,
		"uptime_s":     int64(time.Since(h.started).Seconds()),
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
