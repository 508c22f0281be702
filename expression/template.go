package expression

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"
)

var ifBlockPattern = regexp.MustCompile(`(?s)\{\{#if\s+([^}]+)\}\}(.*?)(?:\{\{else\}\}(.*?))?\{\{/if\}\}`)
var tokenPattern = regexp.MustCompile(`\{\{\s*([^#/}][^}]*?)\s*\}\}`)

// Render substitutes {{path}} tokens (dotted paths included), {{#if}} blocks
// and the {{json path}} helper against ctx. A missing field renders as the
// empty string, never an error.
func (e *Evaluator) Render(template string, ctx map[string]any) string {
	out := ifBlockPattern.ReplaceAllStringFunc(template, func(block string) string {
		m := ifBlockPattern.FindStringSubmatch(block)
		if e.Evaluate(m[1], ctx) {
			return m[2]
		}
		return m[3]
	})
	return tokenPattern.ReplaceAllStringFunc(out, func(token string) string {
		path := strings.TrimSpace(tokenPattern.FindStringSubmatch(token)[1])
		if rest, ok := strings.CutPrefix(path, "json "); ok {
			value := Lookup(ctx, strings.TrimSpace(rest))
			if value == nil {
				return ""
			}
			data, err := json.Marshal(value)
			if err != nil {
				return ""
			}
			return string(data)
		}
		value := Lookup(ctx, path)
		if value == nil {
			return ""
		}
		return fmt.Sprintf("%v", value)
	})
}

// Lookup resolves a dotted path against ctx: a literal key first, then a
// jsonpath descent. Returns nil when the path does not resolve.
func Lookup(ctx map[string]any, path string) any {
	if v, ok := ctx[path]; ok {
		return v
	}
	path = strings.TrimPrefix(path, "context.")
	if v, ok := ctx[path]; ok {
		return v
	}
	v, err := jsonpath.JsonPathLookup(ctx, "$."+path)
	if err != nil {
		return nil
	}
	return v
}

// RenderConfig renders every string leaf of an executor config before the
// executor runs. Maps and lists are walked recursively; other literals pass
// through untouched.
func (e *Evaluator) RenderConfig(config map[string]any, ctx map[string]any) map[string]any {
	out := make(map[string]any, len(config))
	for k, v := range config {
		out[k] = e.renderValue(v, ctx)
	}
	return out
}

func (e *Evaluator) renderValue(value any, ctx map[string]any) any {
	switch v := value.(type) {
	case string:
		return e.Render(v, ctx)
	case map[string]any:
		return e.RenderConfig(v, ctx)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = e.renderValue(item, ctx)
		}
		return out
	default:
		return value
	}
}
