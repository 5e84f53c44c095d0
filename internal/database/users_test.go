package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConsumeVerificationTokenSingleUse(t *testing.T) {
	store := newTestStore(t)
	user := createTestUser(t, store, "verify@example.com")

	require.NoError(t, store.SetVerificationCredentials(user.ID, "tok-1", "111111", futureExpiry()))

	userID, err := store.ConsumeVerificationToken("tok-1", time.Now())
	require.NoError(t, err)
	require.Equal(t, user.ID, userID)

	got, err := store.GetUserByID(user.ID)
	require.NoError(t, err)
	require.True(t, got.IsVerified())
	require.Nil(t, got.VerificationToken)
	require.Nil(t, got.VerificationCode)

	// Replay of a consumed token fails like an unknown token.
	_, err = store.ConsumeVerificationToken("tok-1", time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestConsumeVerificationTokenExpired(t *testing.T) {
	store := newTestStore(t)
	user := createTestUser(t, store, "expired@example.com")

	require.NoError(t, store.SetVerificationCredentials(user.ID, "tok-old", "222222", pastExpiry()))

	_, err := store.ConsumeVerificationToken("tok-old", time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)

	got, err := store.GetUserByID(user.ID)
	require.NoError(t, err)
	require.False(t, got.IsVerified())
}

func TestSetVerificationCredentialsSupersedes(t *testing.T) {
	store := newTestStore(t)
	user := createTestUser(t, store, "supersede@example.com")

	require.NoError(t, store.SetVerificationCredentials(user.ID, "tok-first", "111111", futureExpiry()))
	require.NoError(t, store.SetVerificationCredentials(user.ID, "tok-second", "222222", futureExpiry()))

	_, err := store.ConsumeVerificationToken("tok-first", time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)

	userID, err := store.ConsumeVerificationToken("tok-second", time.Now())
	require.NoError(t, err)
	require.Equal(t, user.ID, userID)
}

func TestConsumeVerificationCode(t *testing.T) {
	store := newTestStore(t)
	user := createTestUser(t, store, "bycode@example.com")

	require.NoError(t, store.SetVerificationCredentials(user.ID, "tok-x", "654321", futureExpiry()))

	// The code only counts together with the matching email.
	_, err := store.ConsumeVerificationCode("other@example.com", "654321", time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)

	userID, err := store.ConsumeVerificationCode("bycode@example.com", "654321", time.Now())
	require.NoError(t, err)
	require.Equal(t, user.ID, userID)

	got, err := store.GetUserByID(user.ID)
	require.NoError(t, err)
	require.True(t, got.IsVerified())

	// Consuming the code retires the paired token too.
	require.Nil(t, got.VerificationToken)
	require.Nil(t, got.VerificationCode)

	_, err = store.ConsumeVerificationCode("bycode@example.com", "654321", time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestConsumeVerificationCodeAlreadyVerified(t *testing.T) {
	store := newTestStore(t)
	user := createTestUser(t, store, "already@example.com")

	require.NoError(t, store.SetVerificationCredentials(user.ID, "tok-a", "123456", futureExpiry()))
	_, err := store.ConsumeVerificationToken("tok-a", time.Now())
	require.NoError(t, err)

	// A leftover code does nothing once the account is verified.
	require.NoError(t, store.SetVerificationCredentials(user.ID, "tok-b", "123456", futureExpiry()))
	_, err = store.ConsumeVerificationCode("already@example.com", "123456", time.Now())
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSwapResetCodeForToken(t *testing.T) {
	store := newTestStore(t)
	user := createTestUser(t, store, "reset@example.com")

	require.NoError(t, store.SetResetCredentials(user.ID, "reset-tok", "777777", futureExpiry()))

	_, err := store.SwapResetCodeForToken("reset@example.com", "000000", time.Now(), "fresh-tok", futureExpiry())
	require.ErrorIs(t, err, sql.ErrNoRows)

	userID, err := store.SwapResetCodeForToken("reset@example.com", "777777", time.Now(), "fresh-tok", futureExpiry())
	require.NoError(t, err)
	require.Equal(t, user.ID, userID)

	// The code was consumed by the swap.
	_, err = store.SwapResetCodeForToken("reset@example.com", "777777", time.Now(), "another-tok", futureExpiry())
	require.ErrorIs(t, err, sql.ErrNoRows)

	// The swapped-in token completes the reset exactly once.
	newHash := "$2a$10$new.hash.value"
	userID, err = store.ConsumeResetToken("fresh-tok", time.Now(), newHash)
	require.NoError(t, err)
	require.Equal(t, user.ID, userID)

	got, err := store.GetUserByID(user.ID)
	require.NoError(t, err)
	require.Equal(t, newHash, *got.Password)
	require.Nil(t, got.ResetToken)

	_, err = store.ConsumeResetToken("fresh-tok", time.Now(), "other-hash")
	require.ErrorIs(t, err, sql.ErrNoRows)
}

func TestConsumeResetTokenExpired(t *testing.T) {
	store := newTestStore(t)
	user := createTestUser(t, store, "staletoken@example.com")

	require.NoError(t, store.SetResetCredentials(user.ID, "stale-tok", "333333", pastExpiry()))

	_, err := store.ConsumeResetToken("stale-tok", time.Now(), "hash")
	require.ErrorIs(t, err, sql.ErrNoRows)

	// The original password survives a failed consume.
	got, err := store.GetUserByID(user.ID)
	require.NoError(t, err)
	require.NotEqual(t, "hash", *got.Password)
}

func TestUpdatePassword(t *testing.T) {
	store := newTestStore(t)
	user := createTestUser(t, store, "pwchange@example.com")

	require.NoError(t, store.UpdatePassword(user.ID, "updated-hash"))

	got, err := store.GetUserByID(user.ID)
	require.NoError(t, err)
	require.Equal(t, "updated-hash", *got.Password)
}
