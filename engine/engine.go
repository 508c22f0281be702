package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/skyagarwal/mangwale-flow/analytics"
	"github.com/skyagarwal/mangwale-flow/catalog"
	"github.com/skyagarwal/mangwale-flow/logger"
	"github.com/skyagarwal/mangwale-flow/model"
	"github.com/skyagarwal/mangwale-flow/persistence"
)

// maxCascadeDepth caps how many states one inbound event may traverse,
// including states of chained flows. A well formed flow reaches a wait or end
// state long before this.
const maxCascadeDepth = 64

const DEFAULT_FALLBACK_MESSAGE = "Sorry, I did not understand that. Type 'help' to see what I can do."
const ACTION_FAILURE_MESSAGE = "Something went wrong on our side. Please try again in a moment."

const NEXT_FLOW_AUTO = "auto"
const NEXT_FLOW_NONE = "none"

// FlowEngine drives one conversation turn at a time: it loads the session,
// selects or resumes a flow, cascades through states until the flow parks or
// finishes, and commits the session only when the whole turn succeeded.
type FlowEngine struct {
	catalog         *catalog.Catalog
	selector        *catalog.Selector
	runner          *Runner
	store           persistence.SessionStore
	delayQueue      persistence.DelayQueue
	fallbackMessage string
}

func NewFlowEngine(cat *catalog.Catalog, runner *Runner, store persistence.SessionStore, delayQueue persistence.DelayQueue) *FlowEngine {
	return &FlowEngine{
		catalog:         cat,
		selector:        catalog.NewSelector(cat),
		runner:          runner,
		store:           store,
		delayQueue:      delayQueue,
		fallbackMessage: DEFAULT_FALLBACK_MESSAGE,
	}
}

func (e *FlowEngine) SetFallbackMessage(msg string) {
	if msg != "" {
		e.fallbackMessage = msg
	}
}

// HandleEvent runs one user turn. A waiting session consumes the message as
// input to its wait state; otherwise the message selects a new flow. The
// stored session is replaced only after every state of the turn executed, so
// a failed turn leaves the previous session intact.
func (e *FlowEngine) HandleEvent(ctx context.Context, event model.InboundEvent) (*model.OutboundEffects, error) {
	session, err := e.loadSession(event.ConversationId)
	if err != nil {
		return nil, err
	}
	working := session.Clone()
	conversation := model.ContextOf(working)
	conversation.Set(model.KEY_CONVERSATION_ID, event.ConversationId)
	conversation.Set(model.KEY_USER_MESSAGE, event.Text())
	fx := model.NewOutboundEffects(event.ConversationId)

	if working.InFlight() && working.State == model.WAITING {
		return e.resumeWaiting(ctx, event, session, working, conversation, fx)
	}
	return e.startFlow(ctx, event, session, working, conversation, fx)
}

// HandleTimeout fires the timeout edge for a conversation whose wait deadline
// passed. A pop that raced a user message is detected by re-checking the
// stored session and dropped silently.
func (e *FlowEngine) HandleTimeout(ctx context.Context, conversationId string) (*model.OutboundEffects, error) {
	fx := model.NewOutboundEffects(conversationId)
	session, err := e.store.GetSession(conversationId)
	if err != nil {
		if isNotFound(err) {
			return fx, nil
		}
		return nil, err
	}
	now := time.Now().UnixMilli()
	if session.State != model.WAITING || session.WaitDeadline == 0 || session.WaitDeadline > now {
		return fx, nil
	}
	working := session.Clone()
	conversation := model.ContextOf(working)
	flow, ok := e.catalog.Get(working.ActiveFlowId)
	if !ok {
		return fx, e.abortFlow(working, fx)
	}
	result, err := e.runner.ResumeTimeout(flow, working.ActiveStateId, conversation)
	if err != nil {
		return e.failTurn(session, working, fx, err)
	}
	working.State = model.RUNNING
	working.WaitDeadline = 0
	return e.drive(ctx, model.InboundEvent{ConversationId: conversationId}, flow, result.NextState, session, working, conversation, fx)
}

func (e *FlowEngine) resumeWaiting(ctx context.Context, event model.InboundEvent, pristine, working *model.Session, conversation *model.ConversationContext, fx *model.OutboundEffects) (*model.OutboundEffects, error) {
	// a user message beats the timer; disarm it before stepping
	if working.WaitDeadline > 0 {
		if err := e.delayQueue.Remove(persistence.WAIT_TIMEOUT_QUEUE, []byte(working.ConversationId)); err != nil {
			logger.Warn("failed to disarm wait timeout", zap.String("conversation", working.ConversationId), zap.Error(err))
		}
	}
	flow, ok := e.catalog.Get(working.ActiveFlowId)
	if !ok {
		// the flow disappeared in a reload; drop it and treat the message fresh
		working.ActiveFlowId = ""
		working.ActiveStateId = ""
		working.State = 0
		working.WaitDeadline = 0
		return e.startFlow(ctx, event, pristine, working, conversation, fx)
	}
	result, err := e.runner.ResumeMessage(ctx, flow, working.ActiveStateId, conversation, fx)
	if err != nil {
		return e.failTurn(pristine, working, fx, err)
	}
	if result.Status == STEP_REJECTED {
		e.rearmTimeout(working)
		return fx, e.commit(working, fx)
	}
	working.State = model.RUNNING
	working.WaitDeadline = 0
	return e.drive(ctx, event, flow, result.NextState, pristine, working, conversation, fx)
}

func (e *FlowEngine) startFlow(ctx context.Context, event model.InboundEvent, pristine, working *model.Session, conversation *model.ConversationContext, fx *model.OutboundEffects) (*model.OutboundEffects, error) {
	flow, err := e.selector.Select(event, conversation)
	if err != nil {
		if errors.Is(err, model.ErrNoFlowMatched) {
			fx.AddMessage(model.OutboundMessage{Text: e.fallbackMessage})
			return fx, nil
		}
		return nil, err
	}
	working.State = model.RUNNING
	working.ActiveFlowId = flow.Id
	return e.drive(ctx, event, flow, flow.InitialState, pristine, working, conversation, fx)
}

// drive cascades through states starting at stateId until the turn parks on a
// wait state, the flow (and any chained flow) completes, or a step fails.
func (e *FlowEngine) drive(ctx context.Context, event model.InboundEvent, flow *model.FlowDefinition, stateId string, pristine, working *model.Session, conversation *model.ConversationContext, fx *model.OutboundEffects) (*model.OutboundEffects, error) {
	for depth := 0; depth < maxCascadeDepth; depth++ {
		working.ActiveStateId = stateId
		fx.FlowId = flow.Id
		fx.StateId = stateId
		result, err := e.runner.Enter(ctx, flow, stateId, conversation, fx)
		if err != nil {
			return e.failTurn(pristine, working, fx, err)
		}
		switch result.Status {
		case STEP_CONTINUE:
			stateId = result.NextState
			continue
		case STEP_WAITING:
			working.State = model.WAITING
			if result.TimeoutMs > 0 {
				working.WaitDeadline = time.Now().UnixMilli() + result.TimeoutMs
				e.armTimeout(working, time.Duration(result.TimeoutMs)*time.Millisecond)
			} else {
				working.WaitDeadline = 0
			}
			analytics.RecordTurn(flow.Id, working.ConversationId, stateId, working.State.String())
			return fx, e.commit(working, fx)
		case STEP_COMPLETED:
			analytics.RecordTurn(flow.Id, working.ConversationId, stateId, model.COMPLETED.String())
			next, nextState := e.nextFlow(event, result.Completion, conversation)
			if next != nil {
				logger.Info("chaining flow",
					zap.String("conversation", working.ConversationId),
					zap.String("from", flow.Id),
					zap.String("to", next.Id))
				working.ActiveFlowId = next.Id
				flow = next
				stateId = nextState
				continue
			}
			working.ActiveFlowId = ""
			working.ActiveStateId = ""
			working.State = model.COMPLETED
			working.WaitDeadline = 0
			fx.Completed = true
			return fx, e.commit(working, fx)
		}
		return nil, model.DefinitionError{FlowId: flow.Id, StateId: stateId, Detail: "runner returned no status"}
	}
	return e.failTurn(pristine, working, fx, model.DefinitionError{FlowId: flow.Id, StateId: stateId, Detail: "cascade depth exceeded"})
}

// nextFlow resolves what runs after a completed flow: an explicit next flow
// id, a fresh selection over the triggering event, or the pending action the
// user was interrupted from.
func (e *FlowEngine) nextFlow(event model.InboundEvent, completion *model.CompletionSpec, conversation *model.ConversationContext) (*model.FlowDefinition, string) {
	if completion == nil {
		return nil, ""
	}
	if completion.ResumePendingAction {
		if pending := conversation.PendingAction(); pending != "" {
			delete(conversation.Data, model.KEY_PENDING_ACTION)
			resumeEvent := model.InboundEvent{
				ConversationId: conversation.ConversationId,
				Message:        pending,
				Intent:         pending,
			}
			if flow, err := e.selector.Select(resumeEvent, conversation); err == nil {
				return flow, flow.InitialState
			}
			logger.Warn("pending action matched no flow", zap.String("action", pending))
		}
	}
	switch completion.NextFlowSelection {
	case "", NEXT_FLOW_NONE:
		return nil, ""
	case NEXT_FLOW_AUTO:
		// the next inbound message re-selects anyway once the flow is cleared;
		// chaining on the current event here would loop the same flow
		return nil, ""
	default:
		if flow, ok := e.catalog.Get(completion.NextFlowSelection); ok && flow.Enabled {
			return flow, flow.InitialState
		}
		logger.Warn("next flow not in catalog", zap.String("flow", completion.NextFlowSelection))
		return nil, ""
	}
}

// failTurn maps a step failure to its user-facing outcome. The half-finished
// turn's context writes live only in the working clone and are dropped either
// way. An executor failure discards the turn and, when the turn had consumed
// a wait, re-arms the timer it disarmed; a broken definition aborts the
// stored flow from the pre-turn session so the conversation is not stuck in
// it.
func (e *FlowEngine) failTurn(pristine, working *model.Session, fx *model.OutboundEffects, err error) (*model.OutboundEffects, error) {
	failed := model.NewOutboundEffects(working.ConversationId)
	failed.AddMessage(model.OutboundMessage{Text: ACTION_FAILURE_MESSAGE})
	var defErr model.DefinitionError
	if errors.As(err, &defErr) {
		logger.Error("aborting flow on definition error", zap.String("conversation", working.ConversationId), zap.Error(err))
		return failed, e.abortFlow(pristine.Clone(), failed)
	}
	logger.Error("turn failed", zap.String("conversation", working.ConversationId), zap.Error(err))
	if pristine.State == model.WAITING && pristine.WaitDeadline > 0 {
		e.rearmTimeout(pristine)
	}
	return failed, nil
}

func (e *FlowEngine) abortFlow(working *model.Session, fx *model.OutboundEffects) error {
	working.ActiveFlowId = ""
	working.ActiveStateId = ""
	working.State = model.FAILED
	working.WaitDeadline = 0
	return e.commit(working, fx)
}

func (e *FlowEngine) commit(working *model.Session, fx *model.OutboundEffects) error {
	working.UpdatedAt = time.Now().UnixMilli()
	if err := e.store.SaveSession(working); err != nil {
		return err
	}
	return nil
}

func (e *FlowEngine) armTimeout(working *model.Session, delay time.Duration) {
	err := e.delayQueue.PushWithDelay(persistence.WAIT_TIMEOUT_QUEUE, delay, []byte(working.ConversationId))
	if err != nil {
		logger.Error("failed to arm wait timeout", zap.String("conversation", working.ConversationId), zap.Error(err))
	}
}

func (e *FlowEngine) rearmTimeout(working *model.Session) {
	if working.WaitDeadline == 0 {
		return
	}
	remaining := time.Duration(working.WaitDeadline-time.Now().UnixMilli()) * time.Millisecond
	if remaining < 0 {
		remaining = 0
	}
	e.armTimeout(working, remaining)
}

func (e *FlowEngine) loadSession(conversationId string) (*model.Session, error) {
	session, err := e.store.GetSession(conversationId)
	if err != nil {
		if isNotFound(err) {
			return model.NewSession(conversationId), nil
		}
		return nil, err
	}
	return session, nil
}

func isNotFound(err error) bool {
	var notFound persistence.SessionNotFoundError
	return errors.As(err, &notFound)
}
