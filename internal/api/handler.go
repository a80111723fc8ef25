// Package api serves the tagging service and evaluation runs over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/lueurxax/event-tagger/internal/core/domain"
	coreerrors "github.com/lueurxax/event-tagger/internal/core/errors"
	"github.com/lueurxax/event-tagger/internal/evaluation"
	"github.com/lueurxax/event-tagger/internal/platform/observability"
	"github.com/lueurxax/event-tagger/internal/tagging"
)

// Routes.
const (
	routeTags     = "/api/v1/events/tags"
	routeTag      = "/api/v1/events/tag"
	routeBatch    = "/api/v1/events/tag/batch"
	routeEvaluate = "/api/v1/events/evaluate"
)

// Rate limiting constants.
const (
	rateLimitRequests = 60
	rateLimitBurst    = 20
	rateLimitWindow   = time.Minute
)

const (
	maxBodyBytes       = 1 << 20
	headerContentType  = "Content-Type"
	headerRequestID    = "X-Request-ID"
	contentTypeJSON    = "application/json"
	logFieldRequestID  = "request_id"
	logFieldRoute      = "route"
	errBodyInvalidJSON = "invalid JSON body"
)

// Tagger is the part of the tagging service the API needs.
type Tagger interface {
	Predict(ctx context.Context, item domain.Item) (domain.Prediction, error)
	TagBatch(ctx context.Context, items []domain.Item, concurrency int) (tagging.BatchResult, error)
	Catalog() *domain.Catalog
}

// Runner runs one evaluation.
type Runner interface {
	Run(ctx context.Context) (*evaluation.Report, error)
}

// Handler serves the /api/v1 routes.
type Handler struct {
	tagger           Tagger
	runner           Runner
	batchConcurrency int
	logger           *zerolog.Logger
	now              func() time.Time
	mux              *http.ServeMux

	// one evaluation at a time
	evalMu sync.Mutex

	// IP-based rate limiting
	limiters   map[string]*rate.Limiter
	limitersMu sync.Mutex
}

// NewHandler creates the API handler. runner may be nil, which disables the
// evaluate route.
func NewHandler(tagger Tagger, runner Runner, batchConcurrency int, logger *zerolog.Logger) *Handler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	h := &Handler{
		tagger:           tagger,
		runner:           runner,
		batchConcurrency: batchConcurrency,
		logger:           logger,
		now:              time.Now,
		mux:              http.NewServeMux(),
		limiters:         make(map[string]*rate.Limiter),
	}

	h.Register(h.mux)

	return h
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("GET "+routeTags, h.wrap(routeTags, h.listTags))
	mux.Handle("POST "+routeTag, h.wrap(routeTag, h.tagItem))
	mux.Handle("POST "+routeBatch, h.wrap(routeBatch, h.tagBatch))
	mux.Handle("POST "+routeEvaluate, h.wrap(routeEvaluate, h.evaluate))
}

// ServeHTTP serves the API routes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type tagsResponse struct {
	Tags  []domain.TagRule `json:"tags"`
	Count int              `json:"count"`
}

type tagResponse struct {
	ID string `json:"arrangement_nummer"`
	domain.Prediction
	ElapsedMS int64 `json:"processing_time_ms"`
}

type batchRequest struct {
	Items []domain.Item `json:"items"`
}

func (h *Handler) listTags(w http.ResponseWriter, _ *http.Request) int {
	rules := h.tagger.Catalog().Rules()
	if rules == nil {
		rules = []domain.TagRule{}
	}

	return writeJSON(w, http.StatusOK, tagsResponse{Tags: rules, Count: len(rules)})
}

func (h *Handler) tagItem(w http.ResponseWriter, r *http.Request) int {
	var item domain.Item
	if err := decodeBody(w, r, &item); err != nil {
		return writeError(w, http.StatusBadRequest, errBodyInvalidJSON, err)
	}

	started := h.now()

	pred, err := h.tagger.Predict(r.Context(), item)
	if err != nil {
		return writeError(w, predictionStatus(err), "tagging failed", err)
	}

	return writeJSON(w, http.StatusOK, tagResponse{
		ID:         item.ID,
		Prediction: pred,
		ElapsedMS:  h.now().Sub(started).Milliseconds(),
	})
}

func (h *Handler) tagBatch(w http.ResponseWriter, r *http.Request) int {
	var req batchRequest
	if err := decodeBody(w, r, &req); err != nil {
		return writeError(w, http.StatusBadRequest, errBodyInvalidJSON, err)
	}

	result, err := h.tagger.TagBatch(r.Context(), req.Items, h.batchConcurrency)
	if err != nil {
		return writeError(w, http.StatusUnprocessableEntity, "invalid batch", err)
	}

	return writeJSON(w, http.StatusOK, result)
}

func (h *Handler) evaluate(w http.ResponseWriter, r *http.Request) int {
	if h.runner == nil {
		return writeError(w, http.StatusServiceUnavailable, "evaluation is not configured", nil)
	}

	if !h.evalMu.TryLock() {
		return writeError(w, http.StatusConflict, "an evaluation is already running", nil)
	}
	defer h.evalMu.Unlock()

	report, err := h.runner.Run(r.Context())
	if err != nil {
		if errors.Is(err, coreerrors.ErrDatasetUnavailable) {
			return writeError(w, http.StatusServiceUnavailable, "evaluation dataset unavailable", err)
		}

		return writeError(w, http.StatusInternalServerError, "evaluation failed", err)
	}

	return writeJSON(w, http.StatusOK, report)
}

// predictionStatus maps a tagging error to a response code: rejected input
// is the caller's fault, anything else is an upstream failure.
func predictionStatus(err error) int {
	switch {
	case errors.Is(err, coreerrors.ErrInvalidInput), errors.Is(err, coreerrors.ErrSensitiveContent):
		return http.StatusUnprocessableEntity
	case errors.Is(err, coreerrors.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

type routeFunc func(w http.ResponseWriter, r *http.Request) int

// wrap adds request IDs, rate limiting, logging and metrics to a route.
func (h *Handler) wrap(route string, fn routeFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := h.now()

		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(headerRequestID, requestID)
		w.Header().Set("Cache-Control", "no-store")

		var code int
		if h.allowRequest(getClientIP(r)) {
			code = fn(w, r)
		} else {
			code = writeError(w, http.StatusTooManyRequests, "too many requests", nil)
		}

		elapsed := h.now().Sub(start)

		observability.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
		observability.HTTPRequestDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		event := h.logger.Debug()
		if code >= http.StatusInternalServerError {
			event = h.logger.Warn()
		}

		event.
			Str(logFieldRequestID, requestID).
			Str(logFieldRoute, route).
			Int("status", code).
			Dur("elapsed", elapsed).
			Msg("API request")
	})
}

func (h *Handler) allowRequest(ip string) bool {
	h.limitersMu.Lock()

	limiter, ok := h.limiters[ip]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(rateLimitWindow/rateLimitRequests), rateLimitBurst)
		h.limiters[ip] = limiter
	}

	h.limitersMu.Unlock()

	return limiter.Allow()
}

func getClientIP(r *http.Request) string {
	// Check X-Forwarded-For header (common with reverse proxies)
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i > 0 {
		host = host[:i]
	}

	return host
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) int {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(body)

	return code
}

func writeError(w http.ResponseWriter, code int, msg string, err error) int {
	resp := errorResponse{Error: msg}
	if err != nil {
		resp.Detail = err.Error()
	}

	return writeJSON(w, code, resp)
}
