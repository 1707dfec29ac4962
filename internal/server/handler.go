package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"smart-bartender/internal/auth"
	"smart-bartender/internal/catalog"
	"smart-bartender/internal/common/logger"
	"smart-bartender/internal/domain"
	"smart-bartender/internal/history"
	"smart-bartender/internal/queue"
	"smart-bartender/internal/recommend"
)

type Handler struct {
	log       *logger.Logger
	auth      *auth.Service
	queue     *queue.Service
	history   *history.Service
	catalog   *catalog.Service
	recommend *recommend.Service
	workerKey string
}

func NewHandler(log *logger.Logger, a *auth.Service, q *queue.Service, h *history.Service, c *catalog.Service, r *recommend.Service, workerKey string) *Handler {
	return &Handler{log: log, auth: a, queue: q, history: h, catalog: c, recommend: r, workerKey: workerKey}
}

type credentialsBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	err := h.auth.Register(r.Context(), body.Username, body.Password)
	switch {
	case errors.Is(err, auth.ErrUserExists):
		writeProblem(w, http.StatusConflict, "user_exists", err.Error())
	case errors.Is(err, auth.ErrBadCredentials):
		writeProblem(w, http.StatusBadRequest, "bad_request", err.Error())
	case err != nil:
		writeProblem(w, http.StatusInternalServerError, "storage_error", err.Error())
	default:
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "username": body.Username})
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body credentialsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	token, err := h.auth.Login(r.Context(), body.Username, body.Password)
	switch {
	case errors.Is(err, auth.ErrBadCredentials):
		writeProblem(w, http.StatusUnauthorized, "bad_credentials", err.Error())
	case err != nil:
		writeProblem(w, http.StatusInternalServerError, "storage_error", err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "username": body.Username, "token": token})
	}
}

func (h *Handler) Drinks(w http.ResponseWriter, r *http.Request) {
	drinks, err := h.catalog.List(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, drinks)
}

func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	username, err := h.auth.Resolve(r)
	if err != nil {
		writeProblem(w, http.StatusUnauthorized, "not_authenticated", "login required")
		return
	}
	k := atoiDefault(r.URL.Query().Get("k"), 5)
	recs, err := h.recommend.ForUser(r.Context(), username, k)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "username": username, "recommendations": recs})
}

// Checkout accepts the cart and answers with the generated per-unit order
// ids plus the queue snapshot of the last enqueued unit.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	username, err := h.auth.Resolve(r)
	if err != nil {
		writeProblem(w, http.StatusUnauthorized, "not_authenticated", "login required")
		return
	}
	var req domain.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	resp, err := h.queue.Checkout(r.Context(), username, req)
	switch {
	case errors.Is(err, queue.ErrNoValidItems):
		writeProblem(w, http.StatusBadRequest, "no_valid_items", err.Error())
	case err != nil:
		writeProblem(w, http.StatusInternalServerError, "storage_error", err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":       true,
			"saved":    true,
			"queued":   true,
			"count":    resp.Count,
			"orderId":  resp.OrderID,
			"orderIds": resp.OrderIDs,
			"queue":    resp.Queue,
		})
	}
}

func (h *Handler) MyQueue(w http.ResponseWriter, r *http.Request) {
	username, err := h.auth.Resolve(r)
	if err != nil {
		writeProblem(w, http.StatusUnauthorized, "not_authenticated", "login required")
		return
	}
	orders, err := h.queue.MyQueue(r.Context(), username)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "username": username, "count": len(orders), "orders": orders})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	username, err := h.auth.Resolve(r)
	if err != nil {
		writeProblem(w, http.StatusUnauthorized, "not_authenticated", "login required")
		return
	}
	orders, err := h.history.ForUser(r.Context(), username)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "username": username, "orders": orders})
}

func (h *Handler) QueueStatus(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("orderId")
	info, err := h.queue.Position(r.Context(), orderID)
	switch {
	case errors.Is(err, queue.ErrNotFound):
		// Completed and never-existed are indistinguishable here.
		writeProblem(w, http.StatusNotFound, "not_found", "not in queue (maybe already completed)")
	case err != nil:
		writeProblem(w, http.StatusInternalServerError, "storage_error", err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":              true,
			"orderId":         orderID,
			"position":        info.Position,
			"ahead":           info.Ahead,
			"status":          info.Status,
			"etaSeconds":      info.EtaSeconds,
			"etaAheadSeconds": info.EtaAheadSeconds,
			"etaThisSeconds":  info.EtaThisSeconds,
			"estSeconds":      info.EstSeconds,
		})
	}
}

func (h *Handler) QueueActive(w http.ResponseWriter, r *http.Request) {
	limit := atoiDefault(r.URL.Query().Get("limit"), 20)
	active, total, err := h.queue.ActiveQueue(r.Context(), limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "count": total, "queue": active})
}

// checkWorkerKey compares the shared key for exact equality. Mismatch is a
// hard rejection with no detail leaked.
func (h *Handler) checkWorkerKey(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Query().Get("key") != h.workerKey {
		writeProblem(w, http.StatusUnauthorized, "invalid_key", "invalid key")
		return false
	}
	return true
}

// WorkerNext is polled by the dispensing controller. Response shapes on
// the /api/esp/* endpoints are fixed by the deployed firmware.
func (h *Handler) WorkerNext(w http.ResponseWriter, r *http.Request) {
	if !h.checkWorkerKey(w, r) {
		return
	}
	job, err := h.queue.NextJob(r.Context())
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "storage_error", err.Error())
		return
	}
	if job == nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "order": nil})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "order": job})
}

type completeBody struct {
	ID string `json:"id"`
}

func (h *Handler) WorkerComplete(w http.ResponseWriter, r *http.Request) {
	if !h.checkWorkerKey(w, r) {
		return
	}
	var body completeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	err := h.queue.CompleteUnit(r.Context(), body.ID)
	var tooEarly *queue.TooEarlyError
	switch {
	case errors.As(err, &tooEarly):
		writeJSON(w, http.StatusConflict, map[string]any{
			"ok":          false,
			"error":       "Too early to complete",
			"waitSeconds": tooEarly.WaitSeconds,
		})
	case errors.Is(err, queue.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"ok": false, "error": "Order not found"})
	case err != nil:
		writeProblem(w, http.StatusInternalServerError, "storage_error", err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProblem: single error shape across the API (simplified problem+JSON).
func writeProblem(w http.ResponseWriter, code int, typ, detail string) {
	writeJSON(w, code, map[string]any{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}

func atoiDefault(s string, d int) int {
	if s == "" {
		return d
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return d
	}
	return n
}
