// Package server wires the populated store to its HTTP surface: the
// GraphQL endpoint, the table catalog listing, health, and metrics.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	gql "github.com/dd0wney/semconv-graph/pkg/graphql"
	"github.com/dd0wney/semconv-graph/pkg/logging"
	"github.com/dd0wney/semconv-graph/pkg/metrics"
	"github.com/dd0wney/semconv-graph/pkg/storage"
)

// Server exposes the read-only HTTP surface over a single shared store
// handle. The store is constructed by the caller and passed in; the
// server never opens or closes it.
type Server struct {
	store     *storage.Store
	logger    logging.Logger
	metrics   *metrics.Registry
	startTime time.Time
}

// New creates a Server. logger may be nil; reg may be nil.
func New(store *storage.Store, logger logging.Logger, reg *metrics.Registry) (*Server, error) {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Server{
		store:     store,
		logger:    logger.With(logging.Component("server")),
		metrics:   reg,
		startTime: time.Now(),
	}, nil
}

// Handler builds the HTTP routing table.
func (s *Server) Handler() (http.Handler, error) {
	schema, err := gql.GenerateSchema(s.store)
	if err != nil {
		return nil, fmt.Errorf("generate graphql schema: %w", err)
	}

	router := mux.NewRouter()
	router.Handle("/graphql", gql.NewGraphQLHandler(schema, s.metrics)).Methods("GET", "POST", "OPTIONS")
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/tables", s.handleTables).Methods("GET")
	if s.metrics != nil {
		router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}

	router.Use(s.loggingMiddleware)
	router.Use(corsMiddleware)
	if s.metrics != nil {
		router.Use(s.metricsMiddleware)
	}
	return router, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	counts := make(map[string]int)
	for _, info := range s.store.ShowTables() {
		var (
			n   int
			err error
		)
		if info.Kind == "NODE" {
			n, err = s.store.CountNodes(info.Name)
		} else {
			n, err = s.store.CountRels(info.Name)
		}
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		counts[info.Name] = n
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"uptime": time.Since(s.startTime).String(),
		"tables": counts,
	})
}

// handleTables is the HTTP form of the catalog listing (show_tables).
func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.store.ShowTables())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// Middleware

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		requestID := uuid.NewString()

		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			logging.String("request_id", requestID),
			logging.String("method", r.Method),
			logging.Path(r.URL.Path),
			logging.Int("status", rec.status),
			logging.Latency(time.Since(start)))
	})
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.metrics.HTTPRequestsInFlight.Inc()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.metrics.HTTPRequestsInFlight.Dec()
		s.metrics.RecordHTTPRequest(r.Method, r.URL.Path,
			fmt.Sprintf("%d", rec.status), time.Since(start))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
