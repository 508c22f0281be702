package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skyagarwal/mangwale-flow/executor"
	"github.com/skyagarwal/mangwale-flow/expression"
	"github.com/skyagarwal/mangwale-flow/model"
)

type stubExecutor struct {
	calls int
	fn    func(config map[string]any, conversation *model.ConversationContext) (*executor.Result, error)
}

func (s *stubExecutor) Invoke(ctx context.Context, config map[string]any, conversation *model.ConversationContext) (*executor.Result, error) {
	s.calls++
	return s.fn(config, conversation)
}

func newTestRunner(executors map[string]executor.Executor) *Runner {
	registry := executor.NewRegistry()
	registry.Register("response", executor.NewResponseExecutor())
	registry.Register("session", executor.NewSessionExecutor())
	for name, ex := range executors {
		registry.Register(name, ex)
	}
	return NewRunner(registry, expression.NewEvaluator())
}

func TestDecisionFirstMatchWins(t *testing.T) {
	flow := &model.FlowDefinition{
		Id:           "f",
		InitialState: "branch",
		FinalStates:  []string{"a_end", "b_end"},
		States: map[string]model.StateDefinition{
			"branch": {
				Type: model.STATE_TYPE_DECISION,
				Conditions: []model.Condition{
					{If: "score > 1", Event: "first"},
					{If: "score > 0", Event: "second"},
					{If: "true", Event: "fallback"},
				},
				Transitions: map[string]string{
					"first":    "a_end",
					"second":   "b_end",
					"fallback": "b_end",
				},
			},
			"a_end": {Type: model.STATE_TYPE_END},
			"b_end": {Type: model.STATE_TYPE_END},
		},
	}
	runner := newTestRunner(nil)

	// both the first and second condition hold; only the first may fire
	conversation := model.NewConversationContext("c1")
	conversation.Set("score", 5)
	result, err := runner.Enter(context.Background(), flow, "branch", conversation, model.NewOutboundEffects("c1"))
	require.NoError(t, err)
	require.Equal(t, "a_end", result.NextState)

	conversation = model.NewConversationContext("c1")
	conversation.Set("score", 0)
	result, err = runner.Enter(context.Background(), flow, "branch", conversation, model.NewOutboundEffects("c1"))
	require.NoError(t, err)
	require.Equal(t, "b_end", result.NextState, "literal true fallback fires when nothing else matches")
}

func retryFlow(onError model.ErrorPolicy, withErrorEdge bool) *model.FlowDefinition {
	transitions := map[string]string{"success": "ok", "default": "ok"}
	if withErrorEdge {
		transitions["error"] = "failed"
	}
	return &model.FlowDefinition{
		Id:           "f",
		InitialState: "call",
		FinalStates:  []string{"ok", "failed"},
		States: map[string]model.StateDefinition{
			"call": {
				Type: model.STATE_TYPE_ACTION,
				Actions: []model.ActionInvocation{
					{Id: "a1", Executor: "flaky", OnError: onError, RetryCount: 2},
				},
				Transitions: transitions,
			},
			"ok":     {Type: model.STATE_TYPE_END},
			"failed": {Type: model.STATE_TYPE_END},
		},
	}
}

func TestRetryExhaustionFollowsErrorEdge(t *testing.T) {
	flaky := &stubExecutor{fn: func(config map[string]any, conversation *model.ConversationContext) (*executor.Result, error) {
		return nil, errors.New("boom")
	}}
	runner := newTestRunner(map[string]executor.Executor{"flaky": flaky})

	result, err := runner.Enter(context.Background(), retryFlow(model.ON_ERROR_RETRY, true), "call", model.NewConversationContext("c1"), model.NewOutboundEffects("c1"))
	require.NoError(t, err)
	require.Equal(t, 3, flaky.calls, "retryCount 2 means exactly 3 attempts")
	require.Equal(t, "failed", result.NextState)
}

func TestRetryExhaustionWithoutErrorEdgeIsFatal(t *testing.T) {
	flaky := &stubExecutor{fn: func(config map[string]any, conversation *model.ConversationContext) (*executor.Result, error) {
		return nil, errors.New("boom")
	}}
	runner := newTestRunner(map[string]executor.Executor{"flaky": flaky})

	_, err := runner.Enter(context.Background(), retryFlow(model.ON_ERROR_RETRY, false), "call", model.NewConversationContext("c1"), model.NewOutboundEffects("c1"))
	require.Error(t, err)
	var execErr model.ExecutorError
	require.True(t, errors.As(err, &execErr))
	require.Equal(t, 3, flaky.calls)
}

func TestOnErrorContinue(t *testing.T) {
	flaky := &stubExecutor{fn: func(config map[string]any, conversation *model.ConversationContext) (*executor.Result, error) {
		return nil, errors.New("boom")
	}}
	runner := newTestRunner(map[string]executor.Executor{"flaky": flaky})
	flow := retryFlow(model.ON_ERROR_CONTINUE, false)

	result, err := runner.Enter(context.Background(), flow, "call", model.NewConversationContext("c1"), model.NewOutboundEffects("c1"))
	require.NoError(t, err)
	require.Equal(t, 1, flaky.calls, "continue does not retry")
	require.Equal(t, "ok", result.NextState)
}

func TestActionOutputBindingAndEvent(t *testing.T) {
	lookup := &stubExecutor{fn: func(config map[string]any, conversation *model.ConversationContext) (*executor.Result, error) {
		return &executor.Result{Output: map[string]any{"id": "A1"}, Event: "found"}, nil
	}}
	runner := newTestRunner(map[string]executor.Executor{"lookup": lookup})
	flow := &model.FlowDefinition{
		Id:           "f",
		InitialState: "fetch",
		FinalStates:  []string{"done"},
		States: map[string]model.StateDefinition{
			"fetch": {
				Type: model.STATE_TYPE_ACTION,
				Actions: []model.ActionInvocation{
					{Id: "a1", Executor: "lookup", Output: "order"},
				},
				Transitions: map[string]string{"found": "done", "default": "done"},
			},
			"done": {Type: model.STATE_TYPE_END},
		},
	}
	conversation := model.NewConversationContext("c1")
	result, err := runner.Enter(context.Background(), flow, "fetch", conversation, model.NewOutboundEffects("c1"))
	require.NoError(t, err)
	require.Equal(t, "done", result.NextState)
	order, ok := conversation.Get("order")
	require.True(t, ok)
	require.Equal(t, "A1", order.(map[string]any)["id"])
}

func waitFlow() *model.FlowDefinition {
	return &model.FlowDefinition{
		Id:           "f",
		InitialState: "confirm",
		FinalStates:  []string{"yes_end", "timeout_end"},
		States: map[string]model.StateDefinition{
			"confirm": {
				Type: model.STATE_TYPE_WAIT,
				OnEntry: []model.ActionInvocation{
					{Id: "prompt", Executor: "response", Config: map[string]any{"message": "yes or no?"}},
				},
				Validator: &model.InputValidator{
					ValidKeywords: []string{"yes", "no"},
					ErrorMessage:  "Please answer yes or no.",
				},
				TimeoutMs: 300000,
				Transitions: map[string]string{
					"user_message": "yes_end",
					"timeout":      "timeout_end",
				},
			},
			"yes_end":     {Type: model.STATE_TYPE_END},
			"timeout_end": {Type: model.STATE_TYPE_END},
		},
	}
}

func TestWaitEntryPromptsAndSuspends(t *testing.T) {
	runner := newTestRunner(nil)
	fx := model.NewOutboundEffects("c1")
	result, err := runner.Enter(context.Background(), waitFlow(), "confirm", model.NewConversationContext("c1"), fx)
	require.NoError(t, err)
	require.Equal(t, STEP_WAITING, result.Status)
	require.Equal(t, int64(300000), result.TimeoutMs)
	require.Len(t, fx.Messages, 1)
	require.Equal(t, "yes or no?", fx.Messages[0].Text)
}

func TestValidatorRejection(t *testing.T) {
	runner := newTestRunner(nil)
	conversation := model.NewConversationContext("c1")
	conversation.Set(model.KEY_USER_MESSAGE, "maybe")
	fx := model.NewOutboundEffects("c1")

	result, err := runner.ResumeMessage(context.Background(), waitFlow(), "confirm", conversation, fx)
	require.NoError(t, err)
	require.Equal(t, STEP_REJECTED, result.Status)
	require.Len(t, fx.Messages, 1)
	require.Equal(t, "Please answer yes or no.", fx.Messages[0].Text)
}

func TestValidatorAcceptsKeyword(t *testing.T) {
	runner := newTestRunner(nil)
	conversation := model.NewConversationContext("c1")
	conversation.Set(model.KEY_USER_MESSAGE, "YES")
	fx := model.NewOutboundEffects("c1")

	result, err := runner.ResumeMessage(context.Background(), waitFlow(), "confirm", conversation, fx)
	require.NoError(t, err)
	require.Equal(t, STEP_CONTINUE, result.Status)
	require.Equal(t, "yes_end", result.NextState)
}

func TestTimeoutResume(t *testing.T) {
	runner := newTestRunner(nil)
	result, err := runner.ResumeTimeout(waitFlow(), "confirm", model.NewConversationContext("c1"))
	require.NoError(t, err)
	require.Equal(t, "timeout_end", result.NextState)
}

func TestUnmatchedTransitionIsDefinitionError(t *testing.T) {
	odd := &stubExecutor{fn: func(config map[string]any, conversation *model.ConversationContext) (*executor.Result, error) {
		return &executor.Result{Event: "surprise"}, nil
	}}
	runner := newTestRunner(map[string]executor.Executor{"odd": odd})
	flow := &model.FlowDefinition{
		Id:           "f",
		InitialState: "s",
		FinalStates:  []string{"done"},
		States: map[string]model.StateDefinition{
			"s": {
				Type: model.STATE_TYPE_ACTION,
				Actions: []model.ActionInvocation{
					{Id: "a1", Executor: "odd"},
				},
				Transitions: map[string]string{"success": "done"},
			},
			"done": {Type: model.STATE_TYPE_END},
		},
	}
	_, err := runner.Enter(context.Background(), flow, "s", model.NewConversationContext("c1"), model.NewOutboundEffects("c1"))
	require.Error(t, err)
	var defErr model.DefinitionError
	require.True(t, errors.As(err, &defErr))
}
