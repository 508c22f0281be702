package rest

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/skyagarwal/mangwale-flow/logger"
)

type sessionView struct {
	ConversationId string         `json:"conversationId"`
	ActiveFlowId   string         `json:"activeFlowId,omitempty"`
	ActiveStateId  string         `json:"activeStateId,omitempty"`
	State          string         `json:"state"`
	Context        map[string]any `json:"context"`
	WaitDeadline   int64          `json:"waitDeadline,omitempty"`
	UpdatedAt      int64          `json:"updatedAt"`
}

func (s *Server) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	conversationId := vars["id"]
	session, err := s.sessions.GetSession(conversationId)
	if err != nil {
		logger.Info("session does not exist", zap.String("conversation", conversationId))
		respondWithError(w, http.StatusNotFound, "session does not exist")
		return
	}
	respondWithJSON(w, http.StatusOK, sessionView{
		ConversationId: session.ConversationId,
		ActiveFlowId:   session.ActiveFlowId,
		ActiveStateId:  session.ActiveStateId,
		State:          session.State.String(),
		Context:        session.Context,
		WaitDeadline:   session.WaitDeadline,
		UpdatedAt:      session.UpdatedAt,
	})
}

func (s *Server) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	conversationId := vars["id"]
	if err := s.sessions.DeleteSession(conversationId); err != nil {
		logger.Error("error deleting session", zap.String("conversation", conversationId), zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "error deleting session")
		return
	}
	respondOKWithoutBody(w)
}
