package sanction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRegistry(t *testing.T) {
	require.NoError(t, ValidateRegistry())
}

func TestParseKindRoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
}

func TestParseKindUnknownTag(t *testing.T) {
	k, err := ParseKind("softban")
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Equal(t, KindUnknown, k)
	assert.False(t, k.Valid())
}

func TestKindInverses(t *testing.T) {
	inv, ok := Ban.Inverse()
	assert.True(t, ok)
	assert.Equal(t, Unban, inv)

	inv, ok = Mute.Inverse()
	assert.True(t, ok)
	assert.Equal(t, Unmute, inv)

	for _, k := range []Kind{Kick, Unban, Warn, Unmute} {
		_, ok := k.Inverse()
		assert.False(t, ok, k.String())
		assert.False(t, k.TimeBound(), k.String())
	}
}

func TestKindPresentation(t *testing.T) {
	assert.Equal(t, "Banned", Ban.Title())
	assert.Equal(t, "unmuted", Unmute.PastTense())
	assert.Equal(t, Punitive, Warn.Polarity())
	assert.Equal(t, Restorative, Unban.Polarity())
	assert.True(t, Kick.NotifyFirst())
	assert.True(t, Ban.NotifyFirst())
	assert.False(t, Mute.NotifyFirst())
	assert.Equal(t, "kind(99)", Kind(99).String())
}
