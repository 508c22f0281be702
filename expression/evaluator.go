package expression

import (
	"regexp"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/skyagarwal/mangwale-flow/logger"
)

// Helper functions available to all guard expressions. Flow content is
// authored by non-engineers, so the surface stays small and side-effect free.
var exprFunctions = []expr.Option{
	expr.Function("includes", func(params ...any) (any, error) {
		s, _ := params[0].(string)
		sub, _ := params[1].(string)
		return strings.Contains(strings.ToLower(s), strings.ToLower(sub)), nil
	}, new(func(string, string) bool)),
	expr.Function("test", func(params ...any) (any, error) {
		pattern, _ := params[0].(string)
		s, _ := params[1].(string)
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, nil
		}
		return re.MatchString(s), nil
	}, new(func(string, string) bool)),
	expr.Function("lower", func(params ...any) (any, error) {
		s, _ := params[0].(string)
		return strings.ToLower(s), nil
	}, new(func(string) string)),
}

// Evaluator runs guard expressions against a conversation context. Compiled
// programs are immutable, so they are cached and shared across conversations.
type Evaluator struct {
	programs *cache.Cache
}

func NewEvaluator() *Evaluator {
	return &Evaluator{
		programs: cache.New(1*time.Hour, 10*time.Minute),
	}
}

// Evaluate returns the boolean value of expression against ctx. Missing fields
// are falsy and a malformed expression is false, never a crashed turn: guards
// are flow content, not trusted code.
func (e *Evaluator) Evaluate(expression string, ctx map[string]any) bool {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return false
	}
	if expression == "true" {
		return true
	}
	program, err := e.compile(expression)
	if err != nil {
		logger.Warn("expression compile failed", zap.String("expression", expression), zap.Error(err))
		return false
	}
	out, err := expr.Run(program, Env(ctx))
	if err != nil {
		logger.Warn("expression run failed", zap.String("expression", expression), zap.Error(err))
		return false
	}
	return Truthy(out)
}

func (e *Evaluator) compile(expression string) (*vm.Program, error) {
	if cached, ok := e.programs.Get(expression); ok {
		return cached.(*vm.Program), nil
	}
	opts := []expr.Option{
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
	}
	opts = append(opts, exprFunctions...)
	program, err := expr.Compile(expression, opts...)
	if err != nil {
		return nil, err
	}
	e.programs.Set(expression, program, cache.DefaultExpiration)
	return program, nil
}

// Env builds the evaluation namespace: every context key at top level plus a
// "context" alias, so both `authenticated` and `context.authenticated` work.
func Env(ctx map[string]any) map[string]any {
	env := make(map[string]any, len(ctx)+2)
	for k, v := range ctx {
		env[k] = v
	}
	env["context"] = ctx
	env["null"] = nil
	return env
}

func Truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case map[string]any:
		return len(v) > 0
	case []any:
		return len(v) > 0
	}
	return true
}
