package catalog

import (
	"strings"

	"go.uber.org/zap"

	"github.com/skyagarwal/mangwale-flow/logger"
	"github.com/skyagarwal/mangwale-flow/model"
)

// Selector picks a flow for a fresh turn. Continuation of an in-flight flow
// takes precedence over selection and is decided by the orchestrator, which
// holds the session; the selector only ever sees turns that need a new flow.
type Selector struct {
	catalog *Catalog
}

func NewSelector(catalog *Catalog) *Selector {
	return &Selector{catalog: catalog}
}

func (s *Selector) Select(event model.InboundEvent, conversation *model.ConversationContext) (*model.FlowDefinition, error) {
	for _, def := range s.catalog.ByPriority() {
		if !def.Enabled {
			continue
		}
		if TriggerMatches(def.Trigger, event) {
			logger.Debug("flow selected",
				zap.String("flow", def.Id),
				zap.Int("priority", def.Priority),
				zap.String("conversation", event.ConversationId))
			d := def
			return &d, nil
		}
	}
	return nil, model.ErrNoFlowMatched
}

// TriggerMatches checks one trigger pattern against an inbound event.
// `|` splits the pattern into alternatives; each alternative matches on exact
// intent label or case-insensitive substring of the message text.
func TriggerMatches(trigger string, event model.InboundEvent) bool {
	if trigger == "" {
		return false
	}
	text := strings.ToLower(strings.TrimSpace(event.Text()))
	for _, alt := range strings.Split(trigger, "|") {
		alt = strings.ToLower(strings.TrimSpace(alt))
		if alt == "" {
			continue
		}
		if event.Intent != "" && strings.EqualFold(event.Intent, alt) {
			return true
		}
		if text != "" && strings.Contains(text, alt) {
			return true
		}
	}
	return false
}
