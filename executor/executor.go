package executor

import (
	"context"
	"fmt"

	"github.com/skyagarwal/mangwale-flow/model"
)

// Result is the uniform output of every executor: an optional value bound
// into the context, an optional named event for transition lookup, and an
// optional message for the delivery channel.
type Result struct {
	Output   any
	Event    string
	Outbound *model.OutboundMessage
}

// Executor is the single capability every side effect is invoked through.
// Config arrives with all template strings already rendered.
type Executor interface {
	Invoke(ctx context.Context, config map[string]any, conversation *model.ConversationContext) (*Result, error)
}

type Registry struct {
	executors map[string]Executor
}

func NewRegistry() *Registry {
	return &Registry{
		executors: make(map[string]Executor),
	}
}

func (r *Registry) Register(name string, ex Executor) {
	r.executors[name] = ex
}

func (r *Registry) Get(name string) (Executor, bool) {
	ex, ok := r.executors[name]
	return ex, ok
}

func (r *Registry) Invoke(ctx context.Context, name string, config map[string]any, conversation *model.ConversationContext) (*Result, error) {
	ex, ok := r.executors[name]
	if !ok {
		return nil, fmt.Errorf("executor %s not registered", name)
	}
	return ex.Invoke(ctx, config, conversation)
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	return names
}

func getString(config map[string]any, key string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getBool(config map[string]any, key string) bool {
	if v, ok := config[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func getMap(config map[string]any, key string) map[string]any {
	if v, ok := config[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}
