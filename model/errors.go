package model

import (
	"errors"
	"fmt"
)

// ErrNoFlowMatched is a selection miss, not a failure: the caller owns the
// fallback behavior.
var ErrNoFlowMatched = errors.New("no flow matched")

// DefinitionError marks a broken flow definition: a dangling state reference
// or an event with no transition. Fatal at load time; at runtime it aborts the
// current flow.
type DefinitionError struct {
	FlowId  string
	StateId string
	Detail  string
}

func (e DefinitionError) Error() string {
	return fmt.Sprintf("flow %s state %s: %s", e.FlowId, e.StateId, e.Detail)
}

// ExecutorError is an action failure that survived its onError policy.
type ExecutorError struct {
	Executor string
	ActionId string
	Err      error
}

func (e ExecutorError) Error() string {
	return fmt.Sprintf("executor %s action %s: %v", e.Executor, e.ActionId, e.Err)
}

func (e ExecutorError) Unwrap() error {
	return e.Err
}
