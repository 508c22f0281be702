package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/skyagarwal/mangwale-flow/logger"
	"github.com/skyagarwal/mangwale-flow/model"
)

// Loader reads flow definitions from YAML files. Malformed definitions are
// rejected at load time, before any conversation can reach them.
type Loader struct{}

func NewLoader() *Loader {
	return &Loader{}
}

func (l *Loader) LoadFile(path string) (model.FlowDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.FlowDefinition{}, fmt.Errorf("error reading flow file: %w", err)
	}
	var def model.FlowDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return model.FlowDefinition{}, fmt.Errorf("error unmarshalling flow %s: %w", path, err)
	}
	if err := Validate(def); err != nil {
		return model.FlowDefinition{}, fmt.Errorf("invalid flow %s: %w", path, err)
	}
	return def, nil
}

func (l *Loader) LoadDir(dir string) ([]model.FlowDefinition, error) {
	var defs []model.FlowDefinition
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		paths, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			def, err := l.LoadFile(path)
			if err != nil {
				return nil, err
			}
			logger.Info("loaded flow definition",
				zap.String("flow", def.Id),
				zap.String("file", filepath.Base(path)))
			defs = append(defs, def)
		}
	}
	return defs, nil
}

// Validate checks a definition for structural errors: the initial state and every
// transition target must exist, final states must be end states, decision
// states need conditions, and error policies must be known values.
func Validate(def model.FlowDefinition) error {
	if def.Id == "" {
		return fmt.Errorf("flow id can not be empty")
	}
	if len(def.States) == 0 {
		return fmt.Errorf("flow %s has no states", def.Id)
	}
	if _, ok := def.States[def.InitialState]; !ok {
		return fmt.Errorf("flow %s: initial state %s not defined", def.Id, def.InitialState)
	}
	for _, id := range def.FinalStates {
		state, ok := def.States[id]
		if !ok {
			return fmt.Errorf("flow %s: final state %s not defined", def.Id, id)
		}
		if state.Type != model.STATE_TYPE_END {
			return fmt.Errorf("flow %s: final state %s is type %s, expected end", def.Id, id, state.Type)
		}
	}
	for id, state := range def.States {
		if err := validateState(def, id, state); err != nil {
			return err
		}
	}
	return nil
}

func validateState(def model.FlowDefinition, id string, state model.StateDefinition) error {
	switch state.Type {
	case model.STATE_TYPE_ACTION:
		if len(state.Actions) == 0 && len(state.OnEntry) == 0 {
			return fmt.Errorf("flow %s: action state %s has no actions", def.Id, id)
		}
		if len(state.Transitions) == 0 {
			return fmt.Errorf("flow %s: action state %s has no transitions", def.Id, id)
		}
	case model.STATE_TYPE_DECISION:
		if len(state.Conditions) == 0 {
			return fmt.Errorf("flow %s: decision state %s has no conditions", def.Id, id)
		}
		if len(state.Transitions) == 0 {
			return fmt.Errorf("flow %s: decision state %s has no transitions", def.Id, id)
		}
		for _, c := range state.Conditions {
			if c.Event == "" {
				return fmt.Errorf("flow %s: decision state %s has a condition without an event", def.Id, id)
			}
		}
	case model.STATE_TYPE_WAIT:
		if len(state.Transitions) == 0 {
			return fmt.Errorf("flow %s: wait state %s has no transitions", def.Id, id)
		}
		if state.TimeoutMs < 0 {
			return fmt.Errorf("flow %s: wait state %s has negative timeout", def.Id, id)
		}
	case model.STATE_TYPE_END:
	default:
		return fmt.Errorf("flow %s: state %s has invalid type %s", def.Id, id, state.Type)
	}
	for event, target := range state.Transitions {
		if _, ok := def.States[target]; !ok {
			return fmt.Errorf("flow %s: state %s transition %s references undefined state %s", def.Id, id, event, target)
		}
	}
	for _, inv := range append(append([]model.ActionInvocation{}, state.OnEntry...), state.Actions...) {
		if inv.Executor == "" {
			return fmt.Errorf("flow %s: state %s action %s has no executor", def.Id, id, inv.Id)
		}
		switch inv.OnError {
		case "", model.ON_ERROR_RETRY, model.ON_ERROR_CONTINUE, model.ON_ERROR_FAIL:
		default:
			return fmt.Errorf("flow %s: state %s action %s has invalid onError %s", def.Id, id, inv.Id, inv.OnError)
		}
		if inv.RetryCount < 0 {
			return fmt.Errorf("flow %s: state %s action %s has negative retryCount", def.Id, id, inv.Id)
		}
	}
	return nil
}
