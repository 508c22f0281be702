package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skyagarwal/mangwale-flow/model"
)

const validFlowYaml = `
id: confirm
name: Confirm
version: "1.0"
trigger: confirm
enabled: true
priority: 50
initialState: ask
finalStates:
  - done
states:
  ask:
    type: wait
    onEntry:
      - id: prompt
        executor: response
        config:
          message: "yes or no?"
    validator:
      validKeywords:
        - "yes"
        - "no"
      errorMessage: "Please answer yes or no."
    timeoutMs: 300000
    transitions:
      user_message: done
      timeout: done
  done:
    type: end
`

func TestLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "confirm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validFlowYaml), 0644))

	loader := NewLoader()
	def, err := loader.LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, "confirm", def.Id)
	require.Equal(t, model.STATE_TYPE_WAIT, def.States["ask"].Type)
	require.Equal(t, []string{"yes", "no"}, def.States["ask"].Validator.ValidKeywords)
	require.Equal(t, int64(300000), def.States["ask"].TimeoutMs)

	defs, err := loader.LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, defs, 1)
}

func TestShippedFlows(t *testing.T) {
	defs, err := NewLoader().LoadDir(filepath.Join("..", "flows"))
	require.NoError(t, err)
	require.NotEmpty(t, defs)

	cat := NewCatalog()
	require.NoError(t, cat.Load(defs))
	for _, id := range []string{"greeting", "authentication", "support", "cart_recovery", "manage_address"} {
		_, ok := cat.Get(id)
		require.True(t, ok, id)
	}
}

func TestValidate(t *testing.T) {
	base := func() model.FlowDefinition {
		return model.FlowDefinition{
			Id:           "f1",
			Enabled:      true,
			InitialState: "start",
			FinalStates:  []string{"done"},
			States: map[string]model.StateDefinition{
				"start": {
					Type: model.STATE_TYPE_ACTION,
					Actions: []model.ActionInvocation{
						{Id: "a", Executor: "response", Config: map[string]any{"message": "hi"}},
					},
					Transitions: map[string]string{"default": "done"},
				},
				"done": {Type: model.STATE_TYPE_END},
			},
		}
	}

	for scenario, fn := range map[string]func(
		t *testing.T,
	){
		"test valid definition": func(t *testing.T) {
			require.NoError(t, Validate(base()))
		},
		"test missing initial state": func(t *testing.T) {
			def := base()
			def.InitialState = "nowhere"
			require.Error(t, Validate(def))
		},
		"test dangling transition": func(t *testing.T) {
			def := base()
			s := def.States["start"]
			s.Transitions = map[string]string{"default": "missing"}
			def.States["start"] = s
			require.Error(t, Validate(def))
		},
		"test final state must be end": func(t *testing.T) {
			def := base()
			def.FinalStates = []string{"start"}
			require.Error(t, Validate(def))
		},
		"test decision needs conditions": func(t *testing.T) {
			def := base()
			def.States["branch"] = model.StateDefinition{
				Type:        model.STATE_TYPE_DECISION,
				Transitions: map[string]string{"default": "done"},
			}
			require.Error(t, Validate(def))
		},
		"test invalid onError": func(t *testing.T) {
			def := base()
			s := def.States["start"]
			s.Actions = []model.ActionInvocation{
				{Id: "a", Executor: "response", OnError: "explode"},
			}
			def.States["start"] = s
			require.Error(t, Validate(def))
		},
		"test empty id": func(t *testing.T) {
			def := base()
			def.Id = ""
			require.Error(t, Validate(def))
		},
	} {
		t.Run(scenario, fn)
	}
}
