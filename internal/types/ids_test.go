package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewID(t *testing.T) {
	id := NewID()
	require.NoError(t, id.Validate())
	assert.NotEqual(t, id, NewID())
}

func TestDeriveID(t *testing.T) {
	a := DeriveID("the same content")
	b := DeriveID("the same content")
	c := DeriveID("different content")

	require.NoError(t, a.Validate())
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestParseID(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		original := NewID()
		parsed, err := ParseID(original.String())
		require.NoError(t, err)
		assert.Equal(t, original, parsed)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := ParseID("")
		assert.Error(t, err)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := ParseID("not-a-uuid")
		assert.Error(t, err)
	})
}

func TestID_JSON(t *testing.T) {
	id := NewID()

	data, err := json.Marshal(id)
	require.NoError(t, err)

	var decoded ID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, id, decoded)

	t.Run("zero marshals to null", func(t *testing.T) {
		data, err := json.Marshal(ID(""))
		require.NoError(t, err)
		assert.Equal(t, "null", string(data))
	})
}
