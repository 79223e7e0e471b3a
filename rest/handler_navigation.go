package rest

import (
	"encoding/json"
	"net/http"

	"github.com/waypoint-labs/waypoint/logger"
	"github.com/waypoint-labs/waypoint/model"
	"github.com/waypoint-labs/waypoint/navigator"
	"go.uber.org/zap"
)

type navigationRequest struct {
	Process      string
	ObjectType   string
	ObjectId     string
	SubroutineId string
	Location     model.Location
}

// resolveNavigation loads the named process and resolves the navigator for
// its graph type. The live subroutine context is looked up by id, creating
// and registering one on first use.
func (s *Server) resolveNavigation(req navigationRequest) (navigator.Navigator, []byte, *model.SubroutineContext, error) {
	def, err := s.metadataService.GetStorage().GetProcessDefinition(req.Process)
	if err != nil {
		return nil, nil, nil, err
	}
	nav, err := s.navigators.Get(def.Type)
	if err != nil {
		return nil, nil, nil, err
	}
	sctx := s.contexts.Get(req.SubroutineId)
	if sctx == nil {
		sctx = model.NewSubroutineContext(req.SubroutineId)
		s.contexts.Put(sctx)
	}
	return nav, def.Document, sctx, nil
}

func (s *Server) HandleStartLocations(w http.ResponseWriter, r *http.Request) {
	var req navigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	nav, doc, sctx, err := s.resolveNavigation(req)
	if err != nil {
		logger.Error("error resolving navigation", zap.String("process", req.Process), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	decision, err := nav.GetAvailableStartLocations(doc, req.ObjectType, req.ObjectId, sctx)
	if err != nil {
		logger.Error("error computing start locations", zap.String("process", req.Process), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error computing start locations")
		return
	}
	respondWithJSON(w, http.StatusOK, decision)
}

func (s *Server) HandleNextLocations(w http.ResponseWriter, r *http.Request) {
	var req navigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	nav, doc, sctx, err := s.resolveNavigation(req)
	if err != nil {
		logger.Error("error resolving navigation", zap.String("process", req.Process), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	decision, err := nav.GetAvailableNextLocations(doc, req.Location, sctx)
	if err != nil {
		logger.Error("error computing next locations", zap.String("process", req.Process), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error computing next locations")
		return
	}
	respondWithJSON(w, http.StatusOK, decision)
}

func (s *Server) HandleBoundaryEvents(w http.ResponseWriter, r *http.Request) {
	var req navigationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	nav, doc, sctx, err := s.resolveNavigation(req)
	if err != nil {
		logger.Error("error resolving navigation", zap.String("process", req.Process), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	decision, err := nav.GetTriggeredBoundaryEvents(doc, req.Location, sctx)
	if err != nil {
		logger.Error("error checking boundary events", zap.String("process", req.Process), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error checking boundary events")
		return
	}
	respondWithJSON(w, http.StatusOK, decision)
}
