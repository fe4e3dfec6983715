package session

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTokenIsAlphanumeric(t *testing.T) {
	seen := map[string]bool{}
	pattern := regexp.MustCompile(`^[a-zA-Z0-9]{32}$`)
	for i := 0; i < 16; i++ {
		token, err := NewToken()
		require.NoError(t, err)
		assert.Regexp(t, pattern, token)
		assert.False(t, seen[token], "token repeated")
		seen[token] = true
	}
}

func TestOrderTokenIsSingleUse(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	token, err := store.IssueOrderToken(ctx, "sess-1", 412)
	require.NoError(t, err)

	ok, err := store.ConsumeOrderToken(ctx, "sess-1", 412, token)
	require.NoError(t, err)
	assert.True(t, ok)

	// Consumed: the same token never validates twice.
	ok, err = store.ConsumeOrderToken(ctx, "sess-1", 412, token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrderTokenClearedEvenOnMismatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	token, err := store.IssueOrderToken(ctx, "sess-1", 412)
	require.NoError(t, err)

	ok, err := store.ConsumeOrderToken(ctx, "sess-1", 412, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	// A failed validation must also clear the token.
	ok, err = store.ConsumeOrderToken(ctx, "sess-1", 412, token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOrderTokenRejectsOtherOrderAndSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	token, err := store.IssueOrderToken(ctx, "sess-1", 412)
	require.NoError(t, err)

	ok, err := store.ConsumeOrderToken(ctx, "sess-2", 412, token)
	require.NoError(t, err)
	assert.False(t, ok)

	token, err = store.IssueOrderToken(ctx, "sess-1", 412)
	require.NoError(t, err)
	ok, err = store.ConsumeOrderToken(ctx, "sess-1", 413, token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestConsumeCheckAttemptAllowsNinePolls(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	token, err := store.IssueCheckToken(ctx, "sess-1", 412)
	require.NoError(t, err)

	orderID, ok, err := store.CheckOrderID(ctx, "sess-1", token)
	require.NoError(t, err)
	require.True(t, ok)
	assert.EqualValues(t, 412, orderID)

	for i := 0; i < 9; i++ {
		ok, err := store.ConsumeCheckAttempt(ctx, "sess-1")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}
	for i := 0; i < 3; i++ {
		ok, err := store.ConsumeCheckAttempt(ctx, "sess-1")
		require.NoError(t, err)
		assert.False(t, ok, "exhausted attempt %d", i+1)
	}
}

func TestConsumeCheckAttemptWithoutSession(t *testing.T) {
	_, err := NewMemoryStore().ConsumeCheckAttempt(context.Background(), "sess-unknown")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestCheckOrderIDRejectsWrongToken(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.IssueCheckToken(ctx, "sess-1", 412)
	require.NoError(t, err)

	_, ok, err := store.CheckOrderID(ctx, "sess-1", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)
}
