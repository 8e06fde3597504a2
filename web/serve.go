package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// Serve blocks running the operator console on addr.
func (h *Handler) Serve(addr string) error {
	h.logger.Info("http", "url", fmt.Sprintf("http://%s", addr))
	return http.ListenAndServe(addr, middleware.Logger(h.Router()))
}
