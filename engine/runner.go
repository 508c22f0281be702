package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/skyagarwal/mangwale-flow/analytics"
	"github.com/skyagarwal/mangwale-flow/executor"
	"github.com/skyagarwal/mangwale-flow/expression"
	"github.com/skyagarwal/mangwale-flow/logger"
	"github.com/skyagarwal/mangwale-flow/model"
)

type StepStatus int

const STEP_CONTINUE StepStatus = 1
const STEP_WAITING StepStatus = 2
const STEP_REJECTED StepStatus = 3
const STEP_COMPLETED StepStatus = 4

// StepResult tells the orchestrator what one state execution decided:
// advance to NextState, park the conversation, bounce invalid input, or
// finish the flow with Completion.
type StepResult struct {
	Status     StepStatus
	NextState  string
	TimeoutMs  int64
	Completion *model.CompletionSpec
}

// Runner executes a single state of a flow definition. It owns no persistence
// and no timers; it mutates only the conversation context and the outbound
// effects passed to it.
type Runner struct {
	registry  *executor.Registry
	evaluator *expression.Evaluator
}

func NewRunner(registry *executor.Registry, evaluator *expression.Evaluator) *Runner {
	return &Runner{
		registry:  registry,
		evaluator: evaluator,
	}
}

// Enter executes stateId of flow on first arrival.
func (r *Runner) Enter(ctx context.Context, flow *model.FlowDefinition, stateId string, conversation *model.ConversationContext, fx *model.OutboundEffects) (*StepResult, error) {
	state, ok := flow.State(stateId)
	if !ok {
		return nil, model.DefinitionError{FlowId: flow.Id, StateId: stateId, Detail: "state not defined"}
	}
	switch state.Type {
	case model.STATE_TYPE_ACTION:
		return r.enterAction(ctx, flow, stateId, state, conversation, fx)
	case model.STATE_TYPE_DECISION:
		return r.enterDecision(flow, stateId, state, conversation)
	case model.STATE_TYPE_WAIT:
		return r.enterWait(ctx, flow, stateId, state, conversation, fx)
	case model.STATE_TYPE_END:
		return r.enterEnd(ctx, flow, stateId, state, conversation, fx)
	}
	return nil, model.DefinitionError{FlowId: flow.Id, StateId: stateId, Detail: fmt.Sprintf("unknown state type %s", state.Type)}
}

// ResumeMessage feeds a user message into a waiting state. Invalid input is
// bounced with the validator's error message and the state does not advance.
func (r *Runner) ResumeMessage(ctx context.Context, flow *model.FlowDefinition, stateId string, conversation *model.ConversationContext, fx *model.OutboundEffects) (*StepResult, error) {
	state, ok := flow.State(stateId)
	if !ok {
		return nil, model.DefinitionError{FlowId: flow.Id, StateId: stateId, Detail: "state not defined"}
	}
	if state.Type != model.STATE_TYPE_WAIT {
		return nil, model.DefinitionError{FlowId: flow.Id, StateId: stateId, Detail: "resume on non-wait state"}
	}
	input := conversation.UserMessage()
	if state.Validator != nil && !validInput(state.Validator, input) {
		fx.AddMessage(model.OutboundMessage{Text: state.Validator.ErrorMessage})
		logger.Debug("input rejected by validator",
			zap.String("flow", flow.Id),
			zap.String("state", stateId))
		return &StepResult{Status: STEP_REJECTED}, nil
	}
	event, err := r.runActions(ctx, flow, stateId, state, state.Actions, conversation, fx)
	if err != nil {
		return nil, err
	}
	next, err := resolveTransition(flow, stateId, state, event, model.EVENT_USER_MESSAGE)
	if err != nil {
		return nil, err
	}
	return &StepResult{Status: STEP_CONTINUE, NextState: next}, nil
}

// ResumeTimeout fires the timeout edge of a waiting state.
func (r *Runner) ResumeTimeout(flow *model.FlowDefinition, stateId string, conversation *model.ConversationContext) (*StepResult, error) {
	state, ok := flow.State(stateId)
	if !ok {
		return nil, model.DefinitionError{FlowId: flow.Id, StateId: stateId, Detail: "state not defined"}
	}
	if state.Type != model.STATE_TYPE_WAIT {
		return nil, model.DefinitionError{FlowId: flow.Id, StateId: stateId, Detail: "timeout on non-wait state"}
	}
	next, err := resolveTransition(flow, stateId, state, model.EVENT_TIMEOUT)
	if err != nil {
		return nil, err
	}
	return &StepResult{Status: STEP_CONTINUE, NextState: next}, nil
}

func (r *Runner) enterAction(ctx context.Context, flow *model.FlowDefinition, stateId string, state model.StateDefinition, conversation *model.ConversationContext, fx *model.OutboundEffects) (*StepResult, error) {
	if _, err := r.runActions(ctx, flow, stateId, state, state.OnEntry, conversation, fx); err != nil {
		return nil, err
	}
	event, err := r.runActions(ctx, flow, stateId, state, state.Actions, conversation, fx)
	if err != nil {
		return nil, err
	}
	if event == "" {
		event = model.EVENT_SUCCESS
	}
	next, err := resolveTransition(flow, stateId, state, event)
	if err != nil {
		return nil, err
	}
	return &StepResult{Status: STEP_CONTINUE, NextState: next}, nil
}

func (r *Runner) enterDecision(flow *model.FlowDefinition, stateId string, state model.StateDefinition, conversation *model.ConversationContext) (*StepResult, error) {
	event := model.EVENT_DEFAULT
	for _, cond := range state.Conditions {
		if r.evaluator.Evaluate(cond.If, conversation.Data) {
			event = cond.Event
			break
		}
	}
	next, err := resolveTransition(flow, stateId, state, event)
	if err != nil {
		return nil, err
	}
	logger.Debug("decision taken",
		zap.String("flow", flow.Id),
		zap.String("state", stateId),
		zap.String("event", event),
		zap.String("next", next))
	return &StepResult{Status: STEP_CONTINUE, NextState: next}, nil
}

func (r *Runner) enterWait(ctx context.Context, flow *model.FlowDefinition, stateId string, state model.StateDefinition, conversation *model.ConversationContext, fx *model.OutboundEffects) (*StepResult, error) {
	if _, err := r.runActions(ctx, flow, stateId, state, state.OnEntry, conversation, fx); err != nil {
		return nil, err
	}
	return &StepResult{Status: STEP_WAITING, TimeoutMs: state.TimeoutMs}, nil
}

func (r *Runner) enterEnd(ctx context.Context, flow *model.FlowDefinition, stateId string, state model.StateDefinition, conversation *model.ConversationContext, fx *model.OutboundEffects) (*StepResult, error) {
	if _, err := r.runActions(ctx, flow, stateId, state, state.OnEntry, conversation, fx); err != nil {
		return nil, err
	}
	if _, err := r.runActions(ctx, flow, stateId, state, state.Actions, conversation, fx); err != nil {
		return nil, err
	}
	return &StepResult{Status: STEP_COMPLETED, Completion: state.Completion}, nil
}

// runActions invokes a state's actions in order. The first event an executor
// emits becomes the state's transition event; later emissions are ignored.
func (r *Runner) runActions(ctx context.Context, flow *model.FlowDefinition, stateId string, state model.StateDefinition, actions []model.ActionInvocation, conversation *model.ConversationContext, fx *model.OutboundEffects) (string, error) {
	var event string
	for _, inv := range actions {
		result, err := r.invokeWithRetry(ctx, flow, inv, conversation)
		if err != nil {
			switch inv.OnError {
			case model.ON_ERROR_CONTINUE:
				logger.Warn("action failed, continuing",
					zap.String("flow", flow.Id),
					zap.String("state", stateId),
					zap.String("action", inv.Id),
					zap.Error(err))
				continue
			case model.ON_ERROR_RETRY:
				// retries are exhausted; without an error edge this kills the turn
				if _, ok := state.Transitions[model.EVENT_ERROR]; !ok {
					return "", model.ExecutorError{Executor: inv.Executor, ActionId: inv.Id, Err: err}
				}
				if event == "" {
					event = model.EVENT_ERROR
				}
				continue
			default:
				return "", model.ExecutorError{Executor: inv.Executor, ActionId: inv.Id, Err: err}
			}
		}
		if result.Output != nil && inv.Output != "" {
			conversation.Set(inv.Output, result.Output)
		}
		if result.Outbound != nil {
			fx.AddMessage(*result.Outbound)
			conversation.Set(model.KEY_LAST_RESPONSE, result.Outbound.Text)
		}
		if event == "" && result.Event != "" {
			event = result.Event
		}
	}
	return event, nil
}

// invokeWithRetry runs one action, re-attempting on failure up to retryCount
// extra times when the action's policy is retry.
func (r *Runner) invokeWithRetry(ctx context.Context, flow *model.FlowDefinition, inv model.ActionInvocation, conversation *model.ConversationContext) (*executor.Result, error) {
	attempts := 1
	if inv.OnError == model.ON_ERROR_RETRY && inv.RetryCount > 0 {
		attempts = inv.RetryCount + 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		config := r.evaluator.RenderConfig(inv.Config, conversation.Data)
		result, err := r.registry.Invoke(ctx, inv.Executor, config, conversation)
		if err == nil {
			analytics.RecordActionSuccess(flow.Id, conversation.ConversationId, inv.Executor, inv.Id, result.Output)
			return result, nil
		}
		lastErr = err
		logger.Warn("action attempt failed",
			zap.String("flow", flow.Id),
			zap.String("action", inv.Id),
			zap.Int("attempt", i+1),
			zap.Error(err))
	}
	analytics.RecordActionFailure(flow.Id, conversation.ConversationId, inv.Executor, inv.Id, lastErr.Error())
	return nil, lastErr
}

// resolveTransition looks events up in declared order, then falls back to the
// default edge. An empty event is skipped, not matched.
func resolveTransition(flow *model.FlowDefinition, stateId string, state model.StateDefinition, events ...string) (string, error) {
	for _, event := range events {
		if event == "" {
			continue
		}
		if next, ok := state.Transitions[event]; ok {
			return next, nil
		}
	}
	if next, ok := state.Transitions[model.EVENT_DEFAULT]; ok {
		return next, nil
	}
	return "", model.DefinitionError{FlowId: flow.Id, StateId: stateId, Detail: fmt.Sprintf("no transition for events %v", events)}
}

func validInput(v *model.InputValidator, input string) bool {
	if len(v.ValidKeywords) == 0 {
		return true
	}
	lowered := strings.ToLower(input)
	for _, kw := range v.ValidKeywords {
		if strings.Contains(lowered, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
