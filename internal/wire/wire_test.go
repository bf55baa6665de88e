package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	env, err := Encode(TypeWelcome, WelcomePayload{PlayerID: "p1"})
	require.NoError(t, err)

	raw, err := Marshal(env)
	require.NoError(t, err)

	decoded, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, TypeWelcome, decoded.Type)

	var payload WelcomePayload
	require.NoError(t, UnmarshalData(decoded.Data, &payload))
	assert.Equal(t, "p1", payload.PlayerID)
}

func TestEncode_NilPayloadOmitsData(t *testing.T) {
	env, err := Encode(TypeHeartbeat, nil)
	require.NoError(t, err)
	assert.Equal(t, TypeHeartbeat, env.Type)
	assert.Nil(t, env.Data)
}

func TestDecode_MalformedFrame(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)
}
