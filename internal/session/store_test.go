package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreferencesMergeFillsAndOverwrites(t *testing.T) {
	base := Preferences{Make: "Nissan", MaxKM: 45000}
	merged := base.Merge(Preferences{Model: "Sentra", MaxKM: 30000})

	assert.Equal(t, Preferences{Make: "Nissan", Model: "Sentra", MaxKM: 30000}, merged)
	assert.Equal(t, base, base.Merge(Preferences{}), "empty update keeps every slot")
}

func TestStore_AppendTurnCapsHistory(t *testing.T) {
	clock := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	store := NewStore(NewMemoryStore(0), WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		require.NoError(t, store.AppendTurn(ctx, "u1", map[string]int{"n": i}))
	}

	sess, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sess.History, DefaultHistoryLimit)

	var first map[string]int
	require.NoError(t, json.Unmarshal(sess.History[0].Payload, &first))
	assert.Equal(t, 2, first["n"], "oldest turns are evicted first")
	assert.True(t, sess.History[0].Timestamp.Before(sess.History[4].Timestamp))
}

func TestStore_FieldAccessors(t *testing.T) {
	store := NewStore(NewMemoryStore(time.Minute))
	ctx := context.Background()

	require.NoError(t, store.StorePreferences(ctx, "u1", Preferences{Make: "Toyota"}))
	require.NoError(t, store.StorePreferences(ctx, "u1", Preferences{MinYear: 2019}))
	prefs, err := store.Preferences(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, Preferences{Make: "Toyota", MinYear: 2019}, prefs)

	require.NoError(t, store.SetExpectedSlot(ctx, "u1", "model"))
	slot, err := store.ExpectedSlot(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "model", slot)

	require.NoError(t, store.SetQuestion(ctx, "u1", Question{Slot: "model", Options: []string{"Corolla", "Yaris"}}))
	q, err := store.Question(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, []string{"Corolla", "Yaris"}, q.Options)
	assert.NotNil(t, q.Metadata)

	require.NoError(t, store.ClearQuestion(ctx, "u1"))
	q, err = store.Question(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, q)

	prefs, err = store.Preferences(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Toyota", prefs.Make, "mutators keep unrelated fields")
}

func TestStore_SetQuestionRejectsEmptyOptions(t *testing.T) {
	store := NewStore(NewMemoryStore(time.Minute))
	err := store.SetQuestion(context.Background(), "u1", Question{Slot: "brand"})
	assert.Error(t, err)
}

func TestStore_SaveTrimsHistory(t *testing.T) {
	store := NewStore(NewMemoryStore(time.Minute), WithHistoryLimit(2))
	ctx := context.Background()

	sess := Session{History: []Turn{{Payload: json.RawMessage(`1`)}, {Payload: json.RawMessage(`2`)}, {Payload: json.RawMessage(`3`)}}}
	require.NoError(t, store.Save(ctx, "u1", sess))

	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, loaded.History, 2)
	assert.JSONEq(t, `2`, string(loaded.History[0].Payload))
}

func TestMemoryStore_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	backend := NewMemoryStore(30 * time.Minute)
	backend.SetClock(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, backend.Save(ctx, "u1", Session{ExpectedSlot: "brand"}))
	now = now.Add(29 * time.Minute)
	sess, err := backend.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "brand", sess.ExpectedSlot)

	now = now.Add(time.Minute)
	sess, err = backend.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, sess.ExpectedSlot)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	backend := NewMemoryStore(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := backend.Load(ctx, "u1")
	assert.ErrorIs(t, err, context.Canceled)
}
