package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyOf_Deterministic(t *testing.T) {
	k1, err := KeyOf("extension", "/a.extension")
	require.NoError(t, err)
	k2, err := KeyOf("extension", "/a.extension")
	require.NoError(t, err)

	assert.Equal(t, k1, k2)
	assert.Len(t, k1, 64, "SHA-256 hex digest")
}

func TestKeyOf_DistinguishesKindAndLocation(t *testing.T) {
	keyOf := func(kind, location string) string {
		key, err := KeyOf(kind, location)
		require.NoError(t, err)
		return key
	}
	base := keyOf("extension", "/a")
	assert.NotEqual(t, base, keyOf("listener", "/a"))
	assert.NotEqual(t, base, keyOf("extension", "/b"))
}

func TestNew_KeyStableAcrossContentChanges(t *testing.T) {
	a1, err := New("extension", "/a.extension", "/a.extension", "a", map[string]any{"module": "m1"}, nil)
	require.NoError(t, err)
	a2, err := New("extension", "/a.extension", "/a.extension", "a", map[string]any{"module": "m2"}, nil)
	require.NoError(t, err)

	assert.Equal(t, a1.Key, a2.Key, "key depends on identity only")
	assert.NotEqual(t, a1.Hash, a2.Hash, "hash tracks content")
}

func TestNew_HashIgnoresDecoderRepresentation(t *testing.T) {
	fromYAML, err := New("job", "/j.job", "/j.job", "j", map[string]any{"retries": 3}, nil)
	require.NoError(t, err)
	fromJSON, err := New("job", "/j.job", "/j.job", "j", map[string]any{"retries": int64(3)}, nil)
	require.NoError(t, err)

	assert.Equal(t, fromYAML.Hash, fromJSON.Hash)
}

func TestNew_HashIncludesDependencies(t *testing.T) {
	a1, err := New("extension", "/b", "/b", "b", nil, []Reference{"a"})
	require.NoError(t, err)
	a2, err := New("extension", "/b", "/b", "b", nil, []Reference{"c"})
	require.NoError(t, err)

	assert.NotEqual(t, a1.Hash, a2.Hash)
}

func TestNew_Validation(t *testing.T) {
	_, err := New("", "/a", "/a", "a", nil, nil)
	require.Error(t, err)

	_, err = New("extension", "/a", "", "a", nil, nil)
	require.Error(t, err)
}

func TestNew_Defaults(t *testing.T) {
	a, err := New("extension", "/src", "/src#x", "x", nil, []Reference{"dep"})
	require.NoError(t, err)

	assert.Equal(t, LifecycleDiscovered, a.Lifecycle)
	assert.Equal(t, map[string]any{}, a.Payload)
	assert.Equal(t, []Reference{"/src#x", "x"}, a.Refs())
	assert.True(t, a.DependsOn("dep"))
	assert.False(t, a.DependsOn("other"))
	assert.Equal(t, "extension:/src#x", a.String())
}
