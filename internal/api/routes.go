package api

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/mediarr/mediarr/internal/auth"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	router := mux.NewRouter()

	router.Use(corsMiddleware)
	router.Use(loggingMiddleware)

	router.HandleFunc("/", handler.RootHandler).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/health", handler.HealthCheck).Methods("GET")
	api.HandleFunc("/cache", handler.CacheQuery).Methods("GET")
	api.HandleFunc("/cron/populate", handler.CronPopulate).Methods("GET", "POST")
	api.HandleFunc("/populate/status", handler.PopulateStatus).Methods("GET")
	api.HandleFunc("/populate", handler.requireBearer(handler.ManualPopulate)).Methods("POST")

	return router
}

// requireBearer guards operator endpoints. Without a configured secret
// any non-empty bearer token is accepted; with one, the token must be a
// valid signed operator token.
func (h *Handler) requireBearer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if h.jwtSecret != "" {
			claims, err := auth.ValidateToken(h.jwtSecret, token)
			if err != nil {
				respondError(w, http.StatusUnauthorized, "invalid bearer token")
				return
			}
			log.Printf("operator %s triggered %s", claims.Operator, r.URL.Path)
		}
		next(w, r)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs all requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	})
}
