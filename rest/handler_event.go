package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/waypoint-labs/waypoint/logger"
	"github.com/waypoint-labs/waypoint/model"
	"go.uber.org/zap"
)

func (s *Server) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var event model.ServiceEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	result, err := s.interceptor.CheckInterception(&event)
	if err != nil {
		logger.Error("error intercepting event", zap.String("event", event.Id), zap.String("type", event.Type), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error intercepting event")
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

type runtimeEventRequest struct {
	SubroutineId string
	Kind         model.RuntimeEventType
	Name         string
}

func (s *Server) HandleRuntimeEvent(w http.ResponseWriter, r *http.Request) {
	var req runtimeEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	sctx := s.contexts.Get(req.SubroutineId)
	if sctx == nil {
		logger.Info("no active subroutine for runtime event", zap.String("subroutine", req.SubroutineId), zap.String("name", req.Name))
		respondWithError(w, http.StatusNotFound, "subroutine not found")
		return
	}
	sctx.EnqueueRuntimeEvent(req.Kind, req.Name)
	respondOKWithoutBody(w)
}

func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, s.interceptor.GetStats())
}
