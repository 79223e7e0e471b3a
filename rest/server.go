package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/waypoint-labs/waypoint/interceptor"
	"github.com/waypoint-labs/waypoint/logger"
	"github.com/waypoint-labs/waypoint/metadata"
	"github.com/waypoint-labs/waypoint/model"
	"github.com/waypoint-labs/waypoint/navigator"
	"go.uber.org/zap"
)

type Server struct {
	http.Server
	Port            int
	metadataService metadata.Service
	navigators      *navigator.Registry
	interceptor     *interceptor.Interceptor
	contexts        *model.ContextRegistry
}

func NewServer(httpPort int, metadataService metadata.Service, navigators *navigator.Registry, in *interceptor.Interceptor, contexts *model.ContextRegistry) (*Server, error) {
	s := &Server{
		Server: http.Server{
			Addr:        fmt.Sprintf(":%d", httpPort),
			IdleTimeout: 2 * time.Second,
		},
		metadataService: metadataService,
		navigators:      navigators,
		interceptor:     in,
		contexts:        contexts,
		Port:            httpPort,
	}

	router := mux.NewRouter()
	router.HandleFunc("/metadata/process", s.HandleCreateProcess).Methods(http.MethodPost)
	router.HandleFunc("/metadata/process/{name}", s.HandleGetProcess).Methods(http.MethodGet)
	router.HandleFunc("/metadata/process/{name}", s.HandleDeleteProcess).Methods(http.MethodDelete)

	router.HandleFunc("/metadata/bot", s.HandleRegisterBot).Methods(http.MethodPost)
	router.HandleFunc("/metadata/bot/{id}", s.HandleGetBot).Methods(http.MethodGet)
	router.HandleFunc("/metadata/bot/{id}", s.HandleUnregisterBot).Methods(http.MethodDelete)

	router.HandleFunc("/navigation/start", s.HandleStartLocations).Methods(http.MethodPost)
	router.HandleFunc("/navigation/next", s.HandleNextLocations).Methods(http.MethodPost)
	router.HandleFunc("/navigation/boundary", s.HandleBoundaryEvents).Methods(http.MethodPost)

	router.HandleFunc("/event", s.HandleEvent).Methods(http.MethodPost)
	router.HandleFunc("/event/runtime", s.HandleRuntimeEvent).Methods(http.MethodPost)

	router.HandleFunc("/stats", s.HandleStats).Methods(http.MethodGet)

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
