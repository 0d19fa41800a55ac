package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/common-repository/sms-manager/internal/events"
	"github.com/common-repository/sms-manager/internal/metrics"
	"github.com/common-repository/sms-manager/internal/notice"
	"github.com/common-repository/sms-manager/internal/repo"
	"github.com/common-repository/sms-manager/internal/settings"
)

// Dependencies exposes core collaborators to the admin handlers.
type Dependencies struct {
	Repository repo.Repository
	Settings   *settings.Store
	Notices    *notice.Store
	Bus        *events.Bus
}

// Server wraps an http.Server with the admin and observability routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	metrics    *metrics.Metrics
	deps       Dependencies
}

// New creates a new HTTP server listening on addr.
func New(addr string, logger *slog.Logger, metricRegistry *metrics.Metrics, deps Dependencies) *Server {
	server := &Server{
		logger:  logger.With("component", "http"),
		metrics: metricRegistry,
		deps:    deps,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", server.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /admin/orders", server.handleCreateOrder)
	mux.HandleFunc("POST /admin/orders/{id}/send-sms", server.handleSendSMS)
	mux.HandleFunc("POST /admin/orders/{id}/status", server.handleUpdateStatus)
	mux.HandleFunc("GET /admin/orders/{id}/notes", server.handleListNotes)
	mux.HandleFunc("GET /admin/settings", server.handleGetSettings)
	mux.HandleFunc("PUT /admin/settings", server.handlePutSettings)
	mux.HandleFunc("GET /admin/notices", server.handleNotices)

	server.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return server
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.deps.Repository != nil {
		if err := s.deps.Repository.Ping(r.Context()); err != nil {
			s.logger.Warn("health check database ping failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Number         string `json:"number"`
		Status         string `json:"status"`
		BillingPhone   string `json:"billing_phone"`
		BillingCountry string `json:"billing_country"`
		Total          string `json:"total"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Number == "" {
		http.Error(w, "number is required", http.StatusBadRequest)
		return
	}
	if req.Status == "" {
		req.Status = "pending"
	}
	if req.Total == "" {
		req.Total = "0"
	}

	ord, err := s.deps.Repository.InsertOrder(r.Context(), repo.NewOrder{
		Number:         req.Number,
		Status:         req.Status,
		BillingPhone:   req.BillingPhone,
		BillingCountry: req.BillingCountry,
		Total:          req.Total,
	})
	if err != nil {
		s.countError("http_create_order")
		s.logger.Error("creating order failed", "error", err)
		http.Error(w, "failed to create order", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, ord)
}

// handleSendSMS is the manual trigger: it publishes the fixed admin action
// event and reports accepted regardless of the dispatch outcome, which is
// recorded against the order (or as an admin notice when disabled).
func (s *Server) handleSendSMS(w http.ResponseWriter, r *http.Request) {
	id, ok := s.orderID(w, r)
	if !ok {
		return
	}

	s.deps.Bus.Publish(r.Context(), events.Event{
		Type:    events.ManualSendRequested,
		OrderID: id,
	})

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]any{"status": "accepted", "order_id": id})
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := s.orderID(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		http.Error(w, "status is required", http.StatusBadRequest)
		return
	}

	ord, err := s.deps.Repository.UpdateOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		if errors.Is(err, repo.ErrOrderNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		s.countError("http_update_status")
		s.logger.Error("updating order status failed", "error", err, "order_id", id)
		http.Error(w, "failed to update order status", http.StatusInternalServerError)
		return
	}

	s.deps.Bus.Publish(r.Context(), events.Event{
		Type:   events.OrderStatusChanged,
		Order:  ord,
		Status: ord.Status,
	})

	writeJSON(w, ord)
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := s.orderID(w, r)
	if !ok {
		return
	}

	notes, err := s.deps.Repository.ListOrderNotes(r.Context(), id)
	if err != nil {
		s.logger.Error("listing order notes failed", "error", err, "order_id", id)
		http.Error(w, "failed to list order notes", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"order_id": id, "notes": notes})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Settings.Load(r.Context())
	if err != nil {
		s.logger.Error("loading settings failed", "error", err)
		http.Error(w, "failed to load settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, st)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var st settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if err := s.deps.Settings.Save(r.Context(), st); err != nil {
		s.logger.Error("saving settings failed", "error", err)
		http.Error(w, "failed to save settings", http.StatusInternalServerError)
		return
	}
	writeJSON(w, st)
}

// handleNotices drains pending one-time admin notices; each notice is
// returned exactly once.
func (s *Server) handleNotices(w http.ResponseWriter, r *http.Request) {
	notices, err := s.deps.Notices.PopAll(r.Context())
	if err != nil {
		s.logger.Error("draining notices failed", "error", err)
		http.Error(w, "failed to read notices", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"notices": notices})
}

func (s *Server) countError(component string) {
	if s.metrics == nil {
		return
	}
	s.metrics.Errors.WithLabelValues(component).Inc()
}

func (s *Server) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode json", http.StatusInternalServerError)
	}
}
