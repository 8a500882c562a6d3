package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/internal/history"
	"github.com/wonny/valuescan/internal/options"
	"github.com/wonny/valuescan/internal/service"
	"github.com/wonny/valuescan/internal/universe"
	"github.com/wonny/valuescan/pkg/config"
	"github.com/wonny/valuescan/pkg/logger"
)

// Scanner is the part of service.Service the API exposes
type Scanner interface {
	Config() config.ScanConfig
	ResolveUniverse(ctx context.Context, name string) ([]contracts.SecurityID, universe.Resolution)
	EvaluateOne(ctx context.Context, id contracts.SecurityID) (*contracts.ValuationResult, error)
	RunBatch(ctx context.Context, ids []contracts.SecurityID, maxParallel int, progress contracts.ProgressFunc) contracts.ScanResult[contracts.ValuationResult]
	ScanOptions(ctx context.Context, id contracts.SecurityID, underlyingPrice float64) ([]contracts.OptionValuationResult, error)
	ScanOptionsBatch(ctx context.Context, ids []contracts.SecurityID, maxParallel int, filter options.FilterOptions, progress contracts.ProgressFunc) contracts.ScanResult[contracts.OptionValuationResult]
	UpcomingEarnings(ctx context.Context, ids []contracts.SecurityID, window time.Duration, maxParallel int) ([]service.UpcomingEarning, contracts.ScanResult[service.UpcomingEarning])
}

var _ Scanner = (*service.Service)(nil)

// ScanHandler handles universe, valuation and option endpoints
// ⭐ SSOT: 스캔 API 핸들러는 이 구조체에서만
type ScanHandler struct {
	svc     Scanner
	history history.Store
	logger  *logger.Logger
}

// NewScanHandler creates a new scan handler; store may be nil
func NewScanHandler(svc Scanner, store history.Store, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		svc:     svc,
		history: store,
		logger:  log.WithModule("api"),
	}
}

// ScanRequest selects ids either directly or by universe name
type ScanRequest struct {
	Universe      string   `json:"universe"`
	IDs           []string `json:"ids"`
	MaxParallel   int      `json:"max_parallel"`
	Type          string   `json:"type,omitempty"`           // options only: call | put
	MinDivergence *float64 `json:"min_divergence,omitempty"` // options only
}

var errEmptyRequest = errors.New("either ids or universe is required")

// resolve turns a request into ids; unknown universes are an error here
func (h *ScanHandler) resolve(ctx context.Context, req ScanRequest) ([]contracts.SecurityID, string, error) {
	if len(req.IDs) > 0 {
		return universe.Dedupe(contracts.IDs(req.IDs...)), "custom", nil
	}
	if strings.TrimSpace(req.Universe) == "" {
		return nil, "", errEmptyRequest
	}

	ids, res := h.svc.ResolveUniverse(ctx, req.Universe)
	if res.Source == universe.SourceNone {
		return nil, "", fmt.Errorf("%w: %q", contracts.ErrUnknownUniverse, req.Universe)
	}
	return ids, res.Name, nil
}

// GetUniverse returns the resolved ids of a universe
// GET /api/universe/{name}
func (h *ScanHandler) GetUniverse(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	ids, res := h.svc.ResolveUniverse(r.Context(), name)
	if res.Source == universe.SourceNone {
		respondError(w, http.StatusNotFound, fmt.Sprintf("unknown universe %q", name))
		return
	}

	respondData(w, map[string]interface{}{
		"resolution": res,
		"ids":        ids,
	})
}

// GetValuation values a single security
// GET /api/valuation/{id}
func (h *ScanHandler) GetValuation(w http.ResponseWriter, r *http.Request) {
	id := contracts.NormalizeID(mux.Vars(r)["id"])
	if id == "" {
		respondError(w, http.StatusBadRequest, "security id is required")
		return
	}

	result, err := h.svc.EvaluateOne(r.Context(), id)
	if err != nil {
		h.logger.WithError(err).WithField("security_id", id).Debug("Valuation unavailable")
		respondFailure(w, err)
		return
	}

	respondData(w, result)
}

// GetOptions prices the listed options of one underlying
// GET /api/options/{id}?type=call&min_divergence=10&underlying=123.4
func (h *ScanHandler) GetOptions(w http.ResponseWriter, r *http.Request) {
	id := contracts.NormalizeID(mux.Vars(r)["id"])
	q := r.URL.Query()

	filter, err := parseFilter(q.Get("type"), q.Get("min_divergence"), -100)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	underlying, _ := strconv.ParseFloat(q.Get("underlying"), 64)

	results, err := h.svc.ScanOptions(r.Context(), id, underlying)
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondData(w, options.Filter(results, filter))
}

// GetEarnings lists upcoming earnings for a universe
// GET /api/earnings?universe=sp500&days=30
func (h *ScanHandler) GetEarnings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ids, _, err := h.resolve(r.Context(), ScanRequest{Universe: q.Get("universe"), IDs: splitIDs(q.Get("ids"))})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var window time.Duration
	if days, err := strconv.Atoi(q.Get("days")); err == nil && days > 0 {
		window = time.Duration(days) * 24 * time.Hour
	}

	upcoming, result := h.svc.UpcomingEarnings(r.Context(), ids, window, 0)
	respondData(w, map[string]interface{}{
		"upcoming":  upcoming,
		"attempted": result.Attempted,
		"failed":    result.Failed,
	})
}

// GetRuns lists recent batch summaries
// GET /api/runs?limit=20
func (h *ScanHandler) GetRuns(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		respondData(w, []contracts.RunSummary{})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list runs")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve run history")
		return
	}

	respondData(w, runs)
}

func parseFilter(typ, minDivergence string, defaultMin float64) (options.FilterOptions, error) {
	filter := options.FilterOptions{MinDivergence: defaultMin}

	if typ != "" && !strings.EqualFold(typ, "all") {
		t, err := contracts.ParseOptionType(typ)
		if err != nil {
			return filter, err
		}
		filter.Type = t
	}
	if minDivergence != "" {
		v, err := strconv.ParseFloat(minDivergence, 64)
		if err != nil {
			return filter, fmt.Errorf("invalid min_divergence %q", minDivergence)
		}
		filter.MinDivergence = v
	}
	return filter, nil
}

func splitIDs(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}
