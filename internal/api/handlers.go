package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rahulsinghal1904/cart-advisor-agent/internal/deal"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/fetch"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/models"
	"github.com/rahulsinghal1904/cart-advisor-agent/internal/provider"
)

// Evaluator is the slice of the provider the handlers need.
type Evaluator interface {
	GetPrice(ctx context.Context, rawURL string) (*models.ProductRecord, error)
	FindAlternatives(ctx context.Context, primary *models.ProductRecord) ([]models.AlternativeRecord, error)
	Evaluate(ctx context.Context, text string) (*provider.EvaluationResult, error)
}

type Handlers struct {
	evaluator Evaluator
	logger    *slog.Logger
}

func NewHandlers(evaluator Evaluator, logger *slog.Logger) *Handlers {
	return &Handlers{
		evaluator: evaluator,
		logger:    logger,
	}
}

// EvaluateRequest carries free-form text containing one or more product URLs.
type EvaluateRequest struct {
	Query string `json:"query"`
}

// Evaluate runs the full pipeline: fetch each product URL in the query,
// search for alternatives, and score the deal.
func (h *Handlers) Evaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		h.respondError(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := h.evaluator.Evaluate(r.Context(), req.Query)
	if err != nil {
		if errors.Is(err, fetch.ErrUnsupportedRetailer) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("evaluation failed", "error", err)
		h.respondError(w, http.StatusInternalServerError, "evaluation failed")
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// ProductRequest asks for price data on a single product URL.
type ProductRequest struct {
	URL string `json:"url"`
}

// GetProduct fetches one product record through the tier cascade without
// running the alternatives or scoring stages.
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	record, err := h.evaluator.GetPrice(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, fetch.ErrUnsupportedRetailer) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("product fetch failed", "error", err, "url", req.URL)
		h.respondError(w, http.StatusInternalServerError, "product fetch failed")
		return
	}

	h.respondJSON(w, http.StatusOK, record)
}

// AlternativesResponse wraps the alternatives list with the verdict computed
// against the primary record.
type AlternativesResponse struct {
	Product      *models.ProductRecord      `json:"product"`
	Alternatives []models.AlternativeRecord `json:"alternatives"`
	Verdict      *models.DealVerdict        `json:"verdict"`
}

// GetAlternatives fetches a product and searches competing retailers for
// comparable listings.
func (h *Handlers) GetAlternatives(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "url is required")
		return
	}

	record, err := h.evaluator.GetPrice(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, fetch.ErrUnsupportedRetailer) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("product fetch failed", "error", err, "url", req.URL)
		h.respondError(w, http.StatusInternalServerError, "product fetch failed")
		return
	}

	alts, err := h.evaluator.FindAlternatives(r.Context(), record)
	if err != nil {
		h.logger.Error("alternatives search failed", "error", err, "url", req.URL)
		alts = nil
	}

	h.respondJSON(w, http.StatusOK, AlternativesResponse{
		Product:      record,
		Alternatives: alts,
		Verdict:      deal.Analyze(record, alts),
	})
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
