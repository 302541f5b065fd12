package store_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nanban-ai/nanban/internal/conversation"
	"github.com/nanban-ai/nanban/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateAndGetUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateUser(ctx, "u1", "Kumar", "CHENNAI", "JALIANA"))

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Kumar", u.Name)
	assert.Equal(t, "CHENNAI", u.Dialect)
	assert.Equal(t, "JALIANA", u.Persona)
	assert.True(t, u.VoiceEnabled)

	_, err = s.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdatePreferences(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, "u1", "", "COMMON", "JALIANA"))

	require.NoError(t, s.UpdatePreferences(ctx, "u1", "Priya", "KOVAI", "AMAITHIYANA", false))

	u, err := s.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Priya", u.Name)
	assert.Equal(t, "KOVAI", u.Dialect)
	assert.False(t, u.VoiceEnabled)

	assert.ErrorIs(t, s.UpdatePreferences(ctx, "ghost", "x", "COMMON", "JALIANA", true), store.ErrNotFound)
}

func TestHistoryChronologicalAndBounded(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, "u1", "", "COMMON", "JALIANA"))

	for i := 0; i < 6; i++ {
		role := conversation.RoleUser
		if i%2 == 1 {
			role = conversation.RoleAssistant
		}
		require.NoError(t, s.AppendTurn(ctx, "u1", role, fmt.Sprintf("m%d", i)))
	}

	turns, err := s.History(ctx, "u1", 4)
	require.NoError(t, err)
	require.Len(t, turns, 4)
	// Most recent four, oldest first.
	assert.Equal(t, "m2", turns[0].Content)
	assert.Equal(t, "m5", turns[3].Content)

	require.NoError(t, s.ClearHistory(ctx, "u1"))
	turns, err = s.History(ctx, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestMemoryLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, "u1", "", "COMMON", "JALIANA"))

	// No row yet.
	m, err := s.GetMemory(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, m)

	require.NoError(t, s.SetMemory(ctx, "u1", store.Memory{
		Consent:   store.ConsentGranted,
		Facts:     "Lives in Madurai. Exam next week.",
		Mood:      "anxious",
		ReplyMode: "detailed",
	}))

	m, err = s.GetMemory(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, store.ConsentGranted, m.Consent)
	assert.Equal(t, "anxious", m.Mood)

	// Upsert replaces.
	require.NoError(t, s.SetMemory(ctx, "u1", store.Memory{Consent: store.ConsentDenied, Facts: "x"}))
	m, err = s.GetMemory(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, store.ConsentDenied, m.Consent)

	// Forget clears every field.
	require.NoError(t, s.ClearMemory(ctx, "u1"))
	m, err = s.GetMemory(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, store.ConsentUnset, m.Consent)
	assert.Empty(t, m.Facts)
	assert.Empty(t, m.Mood)
	assert.Empty(t, m.ReplyMode)
}

func TestStatsCountsMessagesAndCheckins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, "u1", "Arun", "NELLAI", "THELIVANA"))

	require.NoError(t, s.AppendTurn(ctx, "u1", conversation.RoleUser, "hi"))
	require.NoError(t, s.AppendTurn(ctx, "u1", conversation.RoleAssistant, "hello"))
	require.NoError(t, s.RecordCheckin(ctx, "u1", "happy"))

	st, err := s.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Arun", st.Name)
	assert.Equal(t, 2, st.TotalMessages)
	assert.Equal(t, 1, st.TotalCheckins)

	_, err = s.Stats(ctx, "nobody")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
