package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/skyagarwal/mangwale-flow/catalog"
	"github.com/skyagarwal/mangwale-flow/engine"
	"github.com/skyagarwal/mangwale-flow/logger"
	"github.com/skyagarwal/mangwale-flow/persistence"
)

type Server struct {
	http.Server
	Port     int
	engine   *engine.FlowEngine
	catalog  *catalog.Catalog
	loader   *catalog.Loader
	flowsDir string
	sessions persistence.SessionStore
}

func NewServer(httpPort int, eng *engine.FlowEngine, cat *catalog.Catalog, loader *catalog.Loader, flowsDir string, sessions persistence.SessionStore) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", httpPort),
			IdleTimeout: 2 * time.Second,
		},
		Port:     httpPort,
		engine:   eng,
		catalog:  cat,
		loader:   loader,
		flowsDir: flowsDir,
		sessions: sessions,
	}

	router := mux.NewRouter()
	router.HandleFunc("/event", s.HandleEvent).Methods(http.MethodPost)

	router.HandleFunc("/session/{id}", s.HandleGetSession).Methods(http.MethodGet)
	router.HandleFunc("/session/{id}", s.HandleDeleteSession).Methods(http.MethodDelete)

	router.HandleFunc("/metadata/flow", s.HandleCreateFlow).Methods(http.MethodPost)
	router.HandleFunc("/metadata/flow/{id}", s.HandleGetFlow).Methods(http.MethodGet)
	router.HandleFunc("/metadata/flows", s.HandleListFlows).Methods(http.MethodGet)
	router.HandleFunc("/metadata/reload", s.HandleReloadFlows).Methods(http.MethodPost)

	router.Use(loggingMiddleware)
	s.Handler = router
	return s, nil
}

func (s *Server) Start() error {
	logger.Info("starting http server on", zap.Int("port", s.Port))
	if err := s.ListenAndServe(); err != nil {
		return err
	}
	return nil
}

func (s *Server) Stop() error {
	logger.Info("stopping http server")
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := s.Shutdown(ctx)
	if err != nil {
		logger.Error("error shutting down http server")
	}
	return nil
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info(r.RequestURI)
		next.ServeHTTP(w, r)
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondOK(w http.ResponseWriter, message map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)
	res, _ := json.Marshal(message)
	w.Write(res)
}

func respondOKWithoutBody(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}
