// Package api 提供 HTTP 查询接口：query string → core.Options → JSON Selection。
package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rushteam/relaykit/core"
	"github.com/rushteam/relaykit/engine"
	"github.com/rushteam/relaykit/render"
	"github.com/rushteam/relaykit/snapshot"
)

// Handler 持有只读快照与查询引擎。快照可以整体替换（SetSnapshot），
// 正在执行的查询继续使用旧快照。
type Handler struct {
	engine   *engine.Engine
	defaults core.Options
	metrics  *Metrics
	logger   *slog.Logger

	snapshot atomic.Pointer[snapshot.Snapshot]
}

// HandlerOption 配置 Handler。
type HandlerOption func(*Handler)

// WithDefaults 设置未出现在 query string 中的查询参数默认值。
func WithDefaults(opts core.Options) HandlerOption {
	return func(h *Handler) { h.defaults = opts }
}

// WithMetrics 启用 Prometheus 指标与 /metrics 路由。
func WithMetrics(m *Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

func WithLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) { h.logger = l }
}

func NewHandler(e *engine.Engine, snap *snapshot.Snapshot, opts ...HandlerOption) *Handler {
	h := &Handler{
		engine:   e,
		defaults: core.DefaultOptions(),
		logger:   slog.Default().With("component", "relaykit.api"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.SetSnapshot(snap)
	return h
}

// SetSnapshot 原子替换快照。
func (h *Handler) SetSnapshot(snap *snapshot.Snapshot) {
	if snap == nil {
		snap = &snapshot.Snapshot{}
	}
	h.snapshot.Store(snap)
	if h.metrics != nil {
		h.metrics.setSnapshotSize(len(snap.Relays))
	}
}

// Router 注册路由：/result.json、/result、/batch.json，启用指标时还有 /metrics。
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/result.json", h.resultHandler).Methods(http.MethodGet)
	r.HandleFunc("/result", h.resultHandler).Methods(http.MethodGet)
	r.HandleFunc("/batch.json", h.batchHandler).Methods(http.MethodPost)
	if h.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.metrics.Registry(), promhttp.HandlerOpts{}))
	}
	return r
}

// resultHandler 执行一次查询并以 JSON 返回 {results, excluded, total}。
func (h *Handler) resultHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	opts, err := ParseQuery(r.URL.Query(), h.defaults)
	if err != nil {
		h.fail(w, start, "bad_request", http.StatusBadRequest, err)
		return
	}

	snap := h.snapshot.Load()
	sel, err := h.engine.Run(r.Context(), snap.Relays, opts)
	switch {
	case core.IsConfigError(err):
		h.fail(w, start, "bad_request", http.StatusBadRequest, err)
		return
	case err != nil:
		h.logger.Error("query failed", "query", r.URL.RawQuery, "error", err)
		h.fail(w, start, "error", http.StatusInternalServerError, fmt.Errorf("failed to run query: %w", err))
		return
	}

	if h.metrics != nil {
		h.metrics.observe("ok", start)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := render.JSON(w, sel); err != nil {
		h.logger.Warn("write response", "error", err)
	}
}

// BatchRequest 是 /batch.json 的请求体。每条查询以 Handler 的默认值为基础，
// 字段名同 core.Options 的 json tag。
type BatchRequest struct {
	Queries []json.RawMessage `json:"queries"`
}

// BatchResponse 与 BatchRequest.Queries 一一对应。
type BatchResponse struct {
	Selections []*core.Selection `json:"selections"`
}

// batchHandler 在同一份快照上并发执行多条查询。
func (h *Handler) batchHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, start, "bad_request", http.StatusBadRequest, fmt.Errorf("failed to decode request: %w", err))
		return
	}
	queries := make([]core.Options, len(req.Queries))
	for i, raw := range req.Queries {
		queries[i] = h.defaults
		if err := json.Unmarshal(raw, &queries[i]); err != nil {
			h.fail(w, start, "bad_request", http.StatusBadRequest, fmt.Errorf("failed to decode query #%d: %w", i, err))
			return
		}
	}

	snap := h.snapshot.Load()
	sels, err := h.engine.RunBatch(r.Context(), snap.Relays, queries)
	switch {
	case core.IsConfigError(err):
		h.fail(w, start, "bad_request", http.StatusBadRequest, err)
		return
	case err != nil:
		h.logger.Error("batch failed", "queries", len(queries), "error", err)
		h.fail(w, start, "error", http.StatusInternalServerError, fmt.Errorf("failed to run batch: %w", err))
		return
	}
	for _, sel := range sels {
		if sel.Results == nil {
			sel.Results = []*core.Row{}
		}
	}
	if sels == nil {
		sels = []*core.Selection{}
	}

	if h.metrics != nil {
		h.metrics.observe("ok", start)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(BatchResponse{Selections: sels}); err != nil {
		h.logger.Warn("write response", "error", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, start time.Time, result string, status int, err error) {
	if h.metrics != nil {
		h.metrics.observe(result, start)
	}
	http.Error(w, err.Error(), status)
}
