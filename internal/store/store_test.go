package store

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	return New(rdb, slogt.New(t)), mr
}

func TestStoreGetSet(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	_, ok, err := st.Get(ctx, "chat_messages_0000")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, st.Set(ctx, "chat_messages_0000", `["hello"]`))

	val, ok, err := st.Get(ctx, "chat_messages_0000")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, `["hello"]`, val)
}

func TestStoreLoadAbsentKeyLeavesValue(t *testing.T) {
	st, _ := newTestStore(t)

	msgs := []string{"existing"}
	st.Load(context.Background(), "chat_messages_0000", &msgs)

	require.Equal(t, []string{"existing"}, msgs)
}

func TestStoreLoadCorruptValueTreatedAsEmpty(t *testing.T) {
	st, mr := newTestStore(t)
	ctx := context.Background()

	mr.Set("chat_messages_0000", "{not json")

	var msgs []string
	st.Load(ctx, "chat_messages_0000", &msgs)
	require.Empty(t, msgs)

	// The corrupt value stays in place; readers just ignore it.
	val, ok, err := st.Get(ctx, "chat_messages_0000")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "{not json", val)
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	type entry struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}

	st.Save(ctx, "chat_messages_0000", []entry{{ID: "1", Text: "hi"}})

	var got []entry
	st.Load(ctx, "chat_messages_0000", &got)
	require.Equal(t, []entry{{ID: "1", Text: "hi"}}, got)
}

func TestKeysCarryRoomSuffix(t *testing.T) {
	require.Equal(t, "chat_messages_0000", MessagesKey("0000"))
	require.Equal(t, "chat_typing_0000", TypingKey("0000"))
	require.Equal(t, "chat_users_0000", UsersKey("0000"))
	require.Equal(t, "chat_game_0000", GameKey("0000"))
}
