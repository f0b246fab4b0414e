package api

import (
	"net/http"

	"clumsy/internal/logging"
	"clumsy/internal/middleware"
	"clumsy/internal/repo"
)

// NewServer returns the full HTTP handler for r: health check, repository
// routes and the middleware chain.
func NewServer(r *repo.Repository, logger *logging.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthCheck)
	NewRepoHandler(r, logger).Register(mux)

	return middleware.Chain(
		mux,
		middleware.Recover(logger),
		middleware.Logger(logger),
		middleware.RequestID,
	)
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"healthy"}`))
}
