package core

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzhttp"
)

const defaultRequestTimeout = 60 * time.Second

var redactedHeaders = []string{"Authorization", "Cookie"}

// MountRoutes installs the middleware chain, the /v1 group and /health.
//
// Middleware order:
//  1. Recoverer        outermost so every panic is caught
//  2. RequestID        before anything that logs
//  3. ContextTimeout
//  4. SecurityHeaders
//  5. RequestLogger
//  6. CORS
//  7. Compression      gzip for clients that accept it, bodies over 1 KB
func (s *Server) MountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(ContextTimeoutMiddleware(s.requestTimeout()))
	s.router.Use(SecurityHeadersMiddleware)
	s.router.Use(RequestLogger(s.Logger, redactedHeaders))
	s.router.Use(NewCORSMiddleware(s.corsOrigins()))
	s.router.Use(CompressionMiddleware)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		JSON(w, r, http.StatusNotFound, APIErrorResponse{Error: ErrorDetail{
			Code:    "not_found_route",
			Message: "no route for " + r.Method + " " + r.URL.Path,
		}})
	})

	s.router.Route("/v1", func(r chi.Router) {
		for _, register := range s.V1RouteRegistrars {
			register(r)
		}
	})
	s.router.Get("/health", s.HandleHealth)
}

// CompressionMiddleware gzips responses when the client sends
// Accept-Encoding: gzip. Small bodies are passed through unchanged.
func CompressionMiddleware(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}

func (s *Server) requestTimeout() time.Duration {
	if s.Config != nil && s.Config.Server.RequestTimeout > 0 {
		return s.Config.Server.RequestTimeout
	}
	return defaultRequestTimeout
}

func (s *Server) corsOrigins() []string {
	if s.Config != nil && len(s.Config.Server.CORSOrigins) > 0 {
		return s.Config.Server.CORSOrigins
	}
	return []string{"*"}
}
