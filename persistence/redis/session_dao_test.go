package redis

import (
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/skyagarwal/mangwale-flow/model"
	"github.com/skyagarwal/mangwale-flow/persistence"
)

func TestSessionStore(t *testing.T) {
	for scenario, fn := range map[string]func(
		t *testing.T, store *redisSessionStore,
	){
		"test save and get":   testSaveGet,
		"test missing":        testMissing,
		"test delete":         testDelete,
		"test context survives round trip": testContextRoundTrip,
	} {
		t.Run(scenario, func(t *testing.T) {
			mr := miniredis.RunT(t)
			store := NewRedisSessionStore(Config{
				Addrs:     []string{mr.Addr()},
				Namespace: "test",
			})
			fn(t, store)
		})
	}
}

func testSaveGet(t *testing.T, store *redisSessionStore) {
	session := model.NewSession("c1")
	session.ActiveFlowId = "greeting"
	session.ActiveStateId = "welcome"
	session.State = model.WAITING
	session.WaitDeadline = 12345
	require.NoError(t, store.SaveSession(session))

	loaded, err := store.GetSession("c1")
	require.NoError(t, err)
	require.Equal(t, "greeting", loaded.ActiveFlowId)
	require.Equal(t, "welcome", loaded.ActiveStateId)
	require.Equal(t, model.WAITING, loaded.State)
	require.Equal(t, int64(12345), loaded.WaitDeadline)
}

func testMissing(t *testing.T, store *redisSessionStore) {
	_, err := store.GetSession("nobody")
	var notFound persistence.SessionNotFoundError
	require.True(t, errors.As(err, &notFound))
}

func testDelete(t *testing.T, store *redisSessionStore) {
	session := model.NewSession("c1")
	require.NoError(t, store.SaveSession(session))
	require.NoError(t, store.DeleteSession("c1"))
	_, err := store.GetSession("c1")
	require.Error(t, err)
}

func testContextRoundTrip(t *testing.T, store *redisSessionStore) {
	session := model.NewSession("c1")
	session.Context["authenticated"] = true
	session.Context["new_address"] = map[string]any{"city": "Mumbai", "latitude": 19.076}
	require.NoError(t, store.SaveSession(session))

	loaded, err := store.GetSession("c1")
	require.NoError(t, err)
	require.Equal(t, true, loaded.Context["authenticated"])
	address := loaded.Context["new_address"].(map[string]any)
	require.Equal(t, "Mumbai", address["city"])
	require.Equal(t, 19.076, address["latitude"])
}
