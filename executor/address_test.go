package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skyagarwal/mangwale-flow/model"
)

type stubLLM struct {
	completion string
	err        error
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return s.completion, s.err
}

func TestAddressExtractionComplete(t *testing.T) {
	llm := &stubLLM{completion: "```json\n{\"street\": \"12 MG Road\", \"city\": \"Pune\", \"latitude\": 18.52, \"longitude\": 73.85, \"complete\": true}\n```"}
	ex := NewAddressExecutor(llm)
	conversation := model.NewConversationContext("c1")

	result, err := ex.Invoke(context.Background(), map[string]any{
		"text": "12 MG Road, Pune",
	}, conversation)
	require.NoError(t, err)
	require.Equal(t, model.EVENT_SUCCESS, result.Event)
	address := result.Output.(map[string]any)
	require.Equal(t, "12 MG Road", address["street"])
	require.Equal(t, 18.52, address["latitude"])
}

func TestAddressExtractionIncomplete(t *testing.T) {
	llm := &stubLLM{completion: `{"street": "", "city": "Pune", "complete": false}`}
	ex := NewAddressExecutor(llm)

	result, err := ex.Invoke(context.Background(), map[string]any{
		"text": "somewhere in Pune",
	}, model.NewConversationContext("c1"))
	require.NoError(t, err)
	require.Equal(t, "waiting_for_input", result.Event)
}

func TestAddressEmptyInput(t *testing.T) {
	ex := NewAddressExecutor(&stubLLM{})
	result, err := ex.Invoke(context.Background(), map[string]any{}, model.NewConversationContext("c1"))
	require.NoError(t, err)
	require.Equal(t, "waiting_for_input", result.Event)
}

func TestAddressLLMFailure(t *testing.T) {
	ex := NewAddressExecutor(&stubLLM{err: errors.New("model timeout")})
	_, err := ex.Invoke(context.Background(), map[string]any{"text": "12 MG Road"}, model.NewConversationContext("c1"))
	require.Error(t, err)
}

func TestLLMExecutorParseJson(t *testing.T) {
	ex := NewLLMExecutor(&stubLLM{completion: `{"label": "refund"}`})
	result, err := ex.Invoke(context.Background(), map[string]any{
		"prompt":    "classify this",
		"parseJson": true,
	}, model.NewConversationContext("c1"))
	require.NoError(t, err)
	require.Equal(t, "refund", result.Output.(map[string]any)["label"])

	ex = NewLLMExecutor(&stubLLM{completion: "not json"})
	_, err = ex.Invoke(context.Background(), map[string]any{
		"prompt":    "classify this",
		"parseJson": true,
	}, model.NewConversationContext("c1"))
	require.Error(t, err)
}
