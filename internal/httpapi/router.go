// Package httpapi is the HTTP control plane: task inspection and
// creation endpoints layered over the task queue, wrapped in the same
// auth/rate-limit/CORS/trace/request-id middleware chain as the rest
// of this codebase's ambient stack.
package httpapi

import (
	"log"
	"net/http"

	"github.com/bloglens/intel-service/internal/httpapi/handlers"
	"github.com/bloglens/intel-service/internal/httpapi/middleware"
)

type RouterDependencies struct {
	API            *handlers.API
	Logger         *log.Logger
	AuthToken      string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", deps.API.Health)
	mux.HandleFunc("/api/tasks", deps.API.Tasks)
	mux.HandleFunc("/api/tasks/", deps.API.TaskByID)
	mux.HandleFunc("/api/tasks/scrape", deps.API.Scrape)
	mux.HandleFunc("/api/tasks/discover", deps.API.Discover)

	handler := http.Handler(mux)
	handler = middleware.Auth(deps.AuthToken)(handler)
	handler = middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: deps.CORSOrigins,
	})(handler)
	handler = middleware.Trace(deps.Logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
