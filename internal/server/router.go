package server

import "net/http"

func Router(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/register", h.Register)
	mux.HandleFunc("POST /api/auth/login", h.Login)

	mux.HandleFunc("GET /api/drinks", h.Drinks)
	mux.HandleFunc("GET /api/recommendations", h.Recommendations)

	mux.HandleFunc("POST /checkout", h.Checkout)
	mux.HandleFunc("GET /api/my/queue", h.MyQueue)
	mux.HandleFunc("GET /api/history", h.History)
	mux.HandleFunc("GET /api/queue/status", h.QueueStatus)
	mux.HandleFunc("GET /api/queue/active", h.QueueActive)

	// Dispensing controller.
	mux.HandleFunc("GET /api/esp/next", h.WorkerNext)
	mux.HandleFunc("POST /api/esp/complete", h.WorkerComplete)

	return mux
}
