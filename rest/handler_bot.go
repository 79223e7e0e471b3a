package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/waypoint-labs/waypoint/logger"
	"github.com/waypoint-labs/waypoint/metadata"
	"github.com/waypoint-labs/waypoint/model"
)

func (s *Server) HandleRegisterBot(w http.ResponseWriter, r *http.Request) {
	var bot model.Bot
	if err := json.NewDecoder(r.Body).Decode(&bot); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if err := metadata.ValidateBot(bot); err != nil {
		logger.Error("error validating bot", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.metadataService.GetStorage().SaveBotDefinition(bot); err != nil {
		logger.Error("error saving bot", zap.String("bot", bot.Id), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, "error saving bot")
		return
	}
	s.interceptor.RegisterBot(&bot)
	respondOK(w, map[string]any{"registered": true})
}

func (s *Server) HandleGetBot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, ok := vars["id"]
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	bot, err := s.metadataService.GetStorage().GetBotDefinition(id)
	if err != nil {
		logger.Info("bot does not exist", zap.String("bot", id))
		respondWithError(w, http.StatusNotFound, "bot does not exist")
		return
	}
	respondWithJSON(w, http.StatusOK, bot)
}

func (s *Server) HandleUnregisterBot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, ok := vars["id"]
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if err := s.metadataService.GetStorage().DeleteBotDefinition(id); err != nil {
		logger.Error("error deleting bot", zap.String("bot", id), zap.Error(err))
		respondWithError(w, http.StatusNotFound, "bot does not exist")
		return
	}
	s.interceptor.UnregisterBot(id)
	respondOK(w, map[string]any{"unregistered": true})
}
