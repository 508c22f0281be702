package timers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/skyagarwal/mangwale-flow/catalog"
	"github.com/skyagarwal/mangwale-flow/engine"
	"github.com/skyagarwal/mangwale-flow/executor"
	"github.com/skyagarwal/mangwale-flow/expression"
	"github.com/skyagarwal/mangwale-flow/model"
	"github.com/skyagarwal/mangwale-flow/persistence/inmem"
)

func TestSweepFiresExpiredWaits(t *testing.T) {
	cat := catalog.NewCatalog()
	require.NoError(t, cat.Load([]model.FlowDefinition{{
		Id:           "confirm",
		Trigger:      "confirm",
		Enabled:      true,
		Priority:     50,
		InitialState: "ask",
		FinalStates:  []string{"expired"},
		States: map[string]model.StateDefinition{
			"ask": {
				Type: model.STATE_TYPE_WAIT,
				OnEntry: []model.ActionInvocation{
					{Id: "prompt", Executor: "response", Config: map[string]any{"message": "still there?"}},
				},
				TimeoutMs: 1,
				Transitions: map[string]string{
					"user_message": "expired",
					"timeout":      "goodbye",
				},
			},
			"goodbye": {
				Type: model.STATE_TYPE_ACTION,
				Actions: []model.ActionInvocation{
					{Id: "bye", Executor: "response", Config: map[string]any{"message": "Closing the chat."}},
				},
				Transitions: map[string]string{"default": "expired"},
			},
			"expired": {Type: model.STATE_TYPE_END},
		},
	}}))

	registry := executor.NewRegistry()
	registry.Register("response", executor.NewResponseExecutor())
	store := inmem.NewInMemorySessionStore()
	queue := inmem.NewInMemoryDelayQueue()
	eng := engine.NewFlowEngine(cat, engine.NewRunner(registry, expression.NewEvaluator()), store, queue)

	_, err := eng.HandleEvent(context.Background(), model.InboundEvent{ConversationId: "c1", Message: "confirm"})
	require.NoError(t, err)

	var delivered []*model.OutboundEffects
	var wg sync.WaitGroup
	sweeper := NewSweeper(queue, eng, time.Minute, func(fx *model.OutboundEffects) {
		delivered = append(delivered, fx)
	}, &wg)

	time.Sleep(5 * time.Millisecond)
	sweeper.sweep()

	require.Len(t, delivered, 1)
	require.Equal(t, "Closing the chat.", delivered[0].Messages[0].Text)
	session, err := store.GetSession("c1")
	require.NoError(t, err)
	require.Equal(t, model.COMPLETED, session.State)
}
