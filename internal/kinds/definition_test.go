package kinds

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/artisync/internal/artifact"
	"github.com/roach88/artisync/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "kinds.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDefinition_Accepts(t *testing.T) {
	k := NewExtension(nil)

	assert.True(t, k.IsAccepted("/project/menu.extension"))
	assert.False(t, k.IsAccepted("/project/menu.extensionpoint"))
	assert.False(t, k.IsAccepted(".extension"), "bare extension has no name")
	assert.True(t, k.IsAcceptedType(KindExtension))
	assert.False(t, k.IsAcceptedType(KindExtensionPoint))
}

func TestDefinition_ParseWrapsMalformed(t *testing.T) {
	k := NewExtensionPoint(nil)
	_, err := k.Parse("/a.extensionpoint", []byte(`{"description":"no name"}`))
	require.Error(t, err)
	assert.True(t, artifact.IsMalformed(err))

	var me *artifact.MalformedArtifactError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, KindExtensionPoint, me.Kind)
	assert.Equal(t, "/a.extensionpoint", me.Location)
}

func TestDefinition_FragmentLocations(t *testing.T) {
	k := NewRole(nil)
	arts, err := k.Parse("/sec/app.roles", []byte(`[{"name":"admin"},{"name":"viewer","description":"read only"}]`))
	require.NoError(t, err)
	require.Len(t, arts, 2)

	assert.Equal(t, "/sec/app.roles#admin", arts[0].Location)
	assert.Equal(t, "/sec/app.roles", arts[0].Source)
	assert.Equal(t, "admin", arts[0].Name)
	assert.Equal(t, KindRole, arts[0].Kind)
	assert.NotEqual(t, arts[0].Key, arts[1].Key)
	assert.Equal(t, "read only", arts[1].Payload["description"])
}

func TestDefinition_PersistLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	k := NewExtensionPoint(s)

	arts, err := k.Parse("/a.extensionpoint", []byte(`{"name":"menu"}`))
	require.NoError(t, err)
	require.Len(t, arts, 1)

	saved, err := k.Persist(ctx, arts[0])
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	found, err := k.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, arts[0].Key, found[0].Key)

	// Other kinds never see it.
	others, err := NewExtension(s).FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, others)

	require.NoError(t, k.Remove(ctx, found[0]))
	require.NoError(t, k.Remove(ctx, found[0]), "removing twice is a no-op")
	found, err = k.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestRegisterDefaults(t *testing.T) {
	reg := artifact.NewRegistry()
	require.NoError(t, RegisterDefaults(reg, nil))

	var names []string
	for _, k := range reg.Kinds() {
		names = append(names, k.Name())
	}
	assert.Equal(t, []string{
		KindExtensionPoint, KindExtension, KindRole, KindAccess,
		KindSchema, KindListener, KindWebsocket, KindJob,
	}, names)

	k, ok := reg.ForPath("/x/nightly.job")
	require.True(t, ok)
	assert.Equal(t, KindJob, k.Name())

	require.Error(t, RegisterDefaults(reg, nil), "second registration collides")
}

func TestEmbeddedSchemasCompile(t *testing.T) {
	compiled, err := compileSchemas()
	require.NoError(t, err)
	for _, name := range []string{"extensionpoint", "extension", "roles", "access", "listener", "websocket"} {
		assert.Contains(t, compiled, name)
	}
}
