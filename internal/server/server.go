package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"payroll-gateway/internal/handlers"
)

// Server is the operator-facing HTTP server of the gateway.
type Server struct {
	router  *mux.Router
	handler *handlers.Handler
	log     *zap.Logger
}

func New(handler *handlers.Handler, log *zap.Logger) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		handler: handler,
		log:     log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/runs", s.handler.CreateRun).Methods("POST")
	s.router.HandleFunc("/batches", s.handler.ListBatches).Methods("GET")
	s.router.HandleFunc("/batches/{id}", s.handler.GetBatch).Methods("GET")
	s.router.HandleFunc("/batches/{id}/submit", s.handler.SubmitBatch).Methods("POST")
	s.router.HandleFunc("/batches/{id}/inquire", s.handler.InquireBatch).Methods("POST")
	s.router.HandleFunc("/batches/{id}/reset", s.handler.ResetBatch).Methods("POST")
	s.router.HandleFunc("/batches/{id}/file", s.handler.SignedFile).Methods("GET")
	s.router.HandleFunc("/keys/diagnose", s.handler.DiagnoseKey).Methods("POST")
	s.router.HandleFunc("/health", s.handler.Health).Methods("GET")

	s.router.Use(s.loggingMiddleware)
}

// Router exposes the configured router, mainly for tests.
func (s *Server) Router() http.Handler { return s.router }

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.log.Info("starting payroll gateway", zap.String("addr", addr))

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv.ListenAndServe()
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
