package expression

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T, ev *Evaluator,
	){
		"test simple token":   testSimpleToken,
		"test dotted path":    testDottedPath,
		"test missing field":  testMissingField,
		"test if block":       testIfBlock,
		"test json helper":    testJsonHelper,
		"test config render":  testConfigRender,
	} {
		t.Run(scenario, func(t *testing.T) {
			fn(t, NewEvaluator())
		})
	}
}

func testSimpleToken(t *testing.T, ev *Evaluator) {
	ctx := map[string]any{"name": "Asha"}
	require.Equal(t, "Hello Asha!", ev.Render("Hello {{name}}!", ctx))
	require.Equal(t, "Hello Asha!", ev.Render("Hello {{ name }}!", ctx))
}

func testDottedPath(t *testing.T, ev *Evaluator) {
	ctx := map[string]any{
		"new_address": map[string]any{
			"latitude": 19.076,
			"city":     "Mumbai",
		},
	}
	require.Equal(t, "19.076", ev.Render("{{new_address.latitude}}", ctx))
	require.Equal(t, "Mumbai", ev.Render("{{new_address.city}}", ctx))
}

func testMissingField(t *testing.T, ev *Evaluator) {
	require.Equal(t, "Hello !", ev.Render("Hello {{name}}!", map[string]any{}))
	require.Equal(t, "", ev.Render("{{a.b.c}}", map[string]any{}))
}

func testIfBlock(t *testing.T, ev *Evaluator) {
	require.Equal(t, "Hi, Asha!", ev.Render("Hi{{#if name}}, {{name}}{{/if}}!", map[string]any{"name": "Asha"}))
	require.Equal(t, "Hi!", ev.Render("Hi{{#if name}}, {{name}}{{/if}}!", map[string]any{}))
	require.Equal(t, "guest", ev.Render("{{#if name}}{{name}}{{else}}guest{{/if}}", map[string]any{}))
}

func testJsonHelper(t *testing.T, ev *Evaluator) {
	ctx := map[string]any{"order": map[string]any{"id": "A1"}}
	require.Equal(t, `{"id":"A1"}`, ev.Render("{{json order}}", ctx))
	require.Equal(t, "", ev.Render("{{json missing}}", ctx))
}

func testConfigRender(t *testing.T, ev *Evaluator) {
	ctx := map[string]any{"phone": "9876543210"}
	config := map[string]any{
		"action": "send_otp",
		"params": map[string]any{
			"phone": "{{phone}}",
		},
		"retries": 3,
	}
	rendered := ev.RenderConfig(config, ctx)
	require.Equal(t, "send_otp", rendered["action"])
	require.Equal(t, "9876543210", rendered["params"].(map[string]any)["phone"])
	require.Equal(t, 3, rendered["retries"])
}
