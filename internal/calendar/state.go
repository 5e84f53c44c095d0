package calendar

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"
)

// State is the correlation payload round-tripped through the provider's
// authorization redirect. The callback uses it to attribute the grant to the
// right account and to resume the right client flow.
type State struct {
	UserID   string `json:"uid"`
	Redirect string `json:"redirect,omitempty"`
	Reauth   bool   `json:"reauth,omitempty"`
	Nonce    string `json:"nonce"`
}

// EncodeState serializes and HMAC-signs a state payload.
func EncodeState(state State, secret string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	state.Nonce = base64.RawURLEncoding.EncodeToString(nonce)

	payload, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(payload)
	return encoded + "." + signState(encoded, secret), nil
}

// DecodeState verifies the signature and deserializes the payload. The
// second return is false for any tampered or malformed value.
func DecodeState(raw, secret string) (State, bool) {
	parts := strings.Split(raw, ".")
	if len(parts) != 2 {
		return State{}, false
	}
	if !hmac.Equal([]byte(signState(parts[0], secret)), []byte(parts[1])) {
		return State{}, false
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return State{}, false
	}
	var state State
	if err := json.Unmarshal(payload, &state); err != nil {
		return State{}, false
	}
	return state, true
}

func signState(encoded, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(encoded))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
