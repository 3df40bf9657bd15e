package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	codec := NewCodec("secret", time.Hour)

	token, err := codec.Encode(Payload{Username: "alice", Role: "admin", SessionID: "abc"})
	require.NoError(t, err)

	payload, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", payload.Username)
	assert.Equal(t, "admin", payload.Role)
	assert.Equal(t, "abc", payload.SessionID)
	assert.True(t, payload.IsAdmin())
}

func TestCodec_RejectsWrongSecret(t *testing.T) {
	token, err := NewCodec("secret", time.Hour).Encode(Payload{Username: "alice", Role: "user"})
	require.NoError(t, err)

	_, err = NewCodec("other", time.Hour).Decode(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_RejectsTamperedPayload(t *testing.T) {
	codec := NewCodec("secret", time.Hour)
	token, err := codec.Encode(Payload{Username: "alice", Role: "user"})
	require.NoError(t, err)

	other, err := codec.Encode(Payload{Username: "mallory", Role: "admin"})
	require.NoError(t, err)

	// splice the admin claims onto alice's signature
	parts := strings.Split(token, ".")
	otherParts := strings.Split(other, ".")
	forged := parts[0] + "." + otherParts[1] + "." + parts[2]

	_, err = codec.Decode(forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCodec_Expired(t *testing.T) {
	codec := NewCodec("secret", time.Minute)
	issued := time.Now().Add(-time.Hour)
	codec.now = func() time.Time { return issued }

	token, err := codec.Encode(Payload{Username: "alice", Role: "user"})
	require.NoError(t, err)

	codec.now = time.Now
	_, err = codec.Decode(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestCodec_Garbage(t *testing.T) {
	codec := NewCodec("secret", time.Hour)

	for _, token := range []string{"", "abc", "a.b", "a.b.c"} {
		_, err := codec.Decode(token)
		assert.Error(t, err, token)
	}
}
