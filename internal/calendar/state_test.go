package calendar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateRoundTrip(t *testing.T) {
	raw, err := EncodeState(State{UserID: "user-1", Redirect: "/settings", Reauth: true}, "secret")
	require.NoError(t, err)

	state, ok := DecodeState(raw, "secret")
	require.True(t, ok)
	assert.Equal(t, "user-1", state.UserID)
	assert.Equal(t, "/settings", state.Redirect)
	assert.True(t, state.Reauth)
	assert.NotEmpty(t, state.Nonce)
}

func TestStateNonceVaries(t *testing.T) {
	a, err := EncodeState(State{UserID: "user-1"}, "secret")
	require.NoError(t, err)
	b, err := EncodeState(State{UserID: "user-1"}, "secret")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestStateRejectsTampering(t *testing.T) {
	raw, err := EncodeState(State{UserID: "user-1"}, "secret")
	require.NoError(t, err)

	parts := strings.SplitN(raw, ".", 2)
	require.Len(t, parts, 2)

	// Flip the payload while keeping the original signature.
	forged, err := EncodeState(State{UserID: "attacker"}, "secret")
	require.NoError(t, err)
	forgedPayload := strings.SplitN(forged, ".", 2)[0]

	_, ok := DecodeState(forgedPayload+"."+parts[1], "secret")
	assert.False(t, ok)
}

func TestStateRejectsWrongSecret(t *testing.T) {
	raw, err := EncodeState(State{UserID: "user-1"}, "secret")
	require.NoError(t, err)

	_, ok := DecodeState(raw, "other-secret")
	assert.False(t, ok)
}

func TestStateRejectsMalformed(t *testing.T) {
	_, ok := DecodeState("", "secret")
	assert.False(t, ok)
	_, ok = DecodeState("no-dot-here", "secret")
	assert.False(t, ok)
	_, ok = DecodeState("a.b.c", "secret")
	assert.False(t, ok)
	_, ok = DecodeState("!!!.???", "secret")
	assert.False(t, ok)
}
