package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"pos_umkm/internal/connectivity"
	"pos_umkm/internal/order"
	"pos_umkm/internal/pos"
	"pos_umkm/internal/shift"
	"pos_umkm/internal/syncer"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Monitor interface {
	Status() connectivity.Event
	Set(online bool) bool
}

type Syncer interface {
	Drain(ctx context.Context) (syncer.Result, error)
	LastResult() (syncer.Result, bool)
}

type Queue interface {
	List(ctx context.Context) ([]pos.QueuedOperation, error)
}

type Shifts interface {
	State(ctx context.Context) (shift.State, error)
	Current(ctx context.Context) (pos.Shift, bool, error)
}

type Orders interface {
	Orders(ctx context.Context) ([]order.Listed, error)
}

// Handler exposes terminal state to local tooling and accepts the platform's
// reachability signals.
type Handler struct {
	monitor Monitor
	syncer  Syncer
	queue   Queue
	shifts  Shifts
	orders  Orders
	logger  *zap.Logger
}

func NewHandler(monitor Monitor, s Syncer, q Queue, shifts Shifts, orders Orders, logger *zap.Logger) *Handler {
	return &Handler{
		monitor: monitor,
		syncer:  s,
		queue:   q,
		shifts:  shifts,
		orders:  orders,
		logger:  logger.Named("httpapi"),
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type ShiftStatus struct {
	State       shift.State `json:"state"`
	ID          string      `json:"id,omitempty"`
	Provisional bool        `json:"provisional,omitempty"`
	OpenedAt    *time.Time  `json:"opened_at,omitempty"`
}

type StatusResponse struct {
	Online   bool           `json:"online"`
	Since    time.Time      `json:"since"`
	Shift    ShiftStatus    `json:"shift"`
	Pending  int            `json:"pending"`
	LastSync *syncer.Result `json:"last_sync,omitempty"`
}

type ConnectivityRequest struct {
	Online *bool `json:"online"`
}

type ConnectivityResponse struct {
	Online  bool `json:"online"`
	Changed bool `json:"changed"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", h.Health)
	r.Get("/status", h.Status)
	r.Post("/connectivity", h.SetConnectivity)
	r.Post("/sync", h.Sync)
	r.Get("/queue", h.Queue)
	r.Get("/orders", h.Orders)
	return r
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	event := h.monitor.Status()
	resp := StatusResponse{Online: event.Online, Since: event.At}

	state, err := h.shifts.State(ctx)
	if err != nil {
		h.internal(w, "shift state", err)
		return
	}
	resp.Shift.State = state
	current, ok, err := h.shifts.Current(ctx)
	if err != nil {
		h.internal(w, "current shift", err)
		return
	}
	if ok {
		resp.Shift.ID = current.ID
		resp.Shift.Provisional = current.Temporary()
		resp.Shift.OpenedAt = &current.OpenedAt
	}

	ops, err := h.queue.List(ctx)
	if err != nil {
		h.internal(w, "queue", err)
		return
	}
	resp.Pending = len(ops)
	if last, ok := h.syncer.LastResult(); ok {
		resp.LastSync = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) SetConnectivity(w http.ResponseWriter, r *http.Request) {
	var req ConnectivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Online == nil {
		writeError(w, http.StatusBadRequest, "missing_fields", "online is required")
		return
	}

	changed := h.monitor.Set(*req.Online)
	writeJSON(w, http.StatusOK, ConnectivityResponse{Online: *req.Online, Changed: changed})
}

func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	res, err := h.syncer.Drain(r.Context())
	switch {
	case errors.Is(err, syncer.ErrPassInFlight):
		writeError(w, http.StatusConflict, "sync_in_progress", "A sync pass is already running")
	case errors.Is(err, syncer.ErrStopped):
		writeError(w, http.StatusServiceUnavailable, "sync_stopped", "The sync engine is shutting down")
	case err != nil:
		h.internal(w, "sync", err)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *Handler) Queue(w http.ResponseWriter, r *http.Request) {
	ops, err := h.queue.List(r.Context())
	if err != nil {
		h.internal(w, "queue", err)
		return
	}
	if ops == nil {
		ops = []pos.QueuedOperation{}
	}
	writeJSON(w, http.StatusOK, ops)
}

func (h *Handler) Orders(w http.ResponseWriter, r *http.Request) {
	listed, err := h.orders.Orders(r.Context())
	if err != nil {
		h.internal(w, "orders", err)
		return
	}
	writeJSON(w, http.StatusOK, listed)
}

func (h *Handler) internal(w http.ResponseWriter, what string, err error) {
	h.logger.Error(what, zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
