package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/waypoint-labs/waypoint/logger"
	"github.com/waypoint-labs/waypoint/model"
)

func (s *Server) HandleCreateProcess(w http.ResponseWriter, r *http.Request) {
	var def model.ProcessDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	err := s.metadataService.Validate(def.Document)
	if err != nil {
		logger.Error("error validating process definition", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	err = s.metadataService.GetStorage().SaveProcessDefinition(def)
	if err != nil {
		logger.Error("error creating process definition", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, "error creating process definition")
		return
	}
	respondOK(w, map[string]any{"created": true})
}

func (s *Server) HandleGetProcess(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, ok := vars["name"]
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	def, err := s.metadataService.GetStorage().GetProcessDefinition(name)
	if err != nil {
		logger.Info("process definition does not exist", zap.String("name", name))
		respondWithError(w, http.StatusNotFound, "process definition does not exist")
		return
	}
	respondWithJSON(w, http.StatusOK, def)
}

func (s *Server) HandleDeleteProcess(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, ok := vars["name"]
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	err := s.metadataService.GetStorage().DeleteProcessDefinition(name)
	if err != nil {
		logger.Error("error deleting process definition", zap.String("name", name), zap.Error(err))
		respondWithError(w, http.StatusNotFound, "process definition does not exist")
		return
	}
	respondOK(w, map[string]any{"deleted": true})
}
