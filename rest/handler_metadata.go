package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/skyagarwal/mangwale-flow/catalog"
	"github.com/skyagarwal/mangwale-flow/logger"
	"github.com/skyagarwal/mangwale-flow/model"
)

func (s *Server) HandleCreateFlow(w http.ResponseWriter, r *http.Request) {
	var def model.FlowDefinition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		respondWithError(w, http.StatusBadRequest, "malformed flow definition")
		return
	}
	defer r.Body.Close()
	if err := catalog.Validate(def); err != nil {
		logger.Error("error validating flow", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.catalog.Register(def); err != nil {
		logger.Error("error registering flow", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, "error registering flow")
		return
	}
	respondOK(w, map[string]any{"created": true})
}

func (s *Server) HandleGetFlow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	flowId := vars["id"]
	flow, ok := s.catalog.Get(flowId)
	if !ok {
		logger.Info("flow does not exist", zap.String("flow", flowId))
		respondWithError(w, http.StatusNotFound, "flow does not exist")
		return
	}
	respondWithJSON(w, http.StatusOK, flow)
}

func (s *Server) HandleListFlows(w http.ResponseWriter, r *http.Request) {
	type flowSummary struct {
		Id       string `json:"id"`
		Name     string `json:"name"`
		Trigger  string `json:"trigger"`
		Priority int    `json:"priority"`
		Enabled  bool   `json:"enabled"`
	}
	flows := s.catalog.ByPriority()
	summaries := make([]flowSummary, 0, len(flows))
	for _, f := range flows {
		summaries = append(summaries, flowSummary{
			Id:       f.Id,
			Name:     f.Name,
			Trigger:  f.Trigger,
			Priority: f.Priority,
			Enabled:  f.Enabled,
		})
	}
	respondWithJSON(w, http.StatusOK, summaries)
}

// HandleReloadFlows re-reads the flows directory and swaps the catalog in one
// step. Conversations keep running on the old set until the swap.
func (s *Server) HandleReloadFlows(w http.ResponseWriter, r *http.Request) {
	defs, err := s.loader.LoadDir(s.flowsDir)
	if err != nil {
		logger.Error("error reloading flows", zap.String("dir", s.flowsDir), zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.catalog.Load(defs); err != nil {
		logger.Error("error loading catalog", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondOK(w, map[string]any{"loaded": len(defs)})
}
