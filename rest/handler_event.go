package rest

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/skyagarwal/mangwale-flow/logger"
	"github.com/skyagarwal/mangwale-flow/model"
)

func (s *Server) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var event model.InboundEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed event")
		return
	}
	defer r.Body.Close()
	if event.ConversationId == "" {
		respondWithError(w, http.StatusBadRequest, "conversationId is required")
		return
	}
	fx, err := s.engine.HandleEvent(r.Context(), event)
	if err != nil {
		logger.Error("error handling event", zap.String("conversation", event.ConversationId), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error handling event")
		return
	}
	respondWithJSON(w, http.StatusOK, fx)
}
