package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalVersionChain(t *testing.T) {
	srv, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	// The empty chain has no children yet.
	_, found, err := srv.GetChildVersion(ctx, "")
	require.NoError(t, err)
	assert.False(t, found)

	first, err := srv.AddVersion(ctx, "", []byte("one"))
	require.NoError(t, err)
	second, err := srv.AddVersion(ctx, first, []byte("two"))
	require.NoError(t, err)

	v, found, err := srv.GetChildVersion(ctx, "")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, first, v.ID)
	assert.Equal(t, []byte("one"), v.Payload)

	v, found, err = srv.GetChildVersion(ctx, first)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, second, v.ID)

	_, found, err = srv.GetChildVersion(ctx, second)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLocalAddVersionConflict(t *testing.T) {
	srv, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := srv.AddVersion(ctx, "", []byte("one"))
	require.NoError(t, err)

	// A second writer with a stale parent loses.
	_, err = srv.AddVersion(ctx, "", []byte("stale"))
	assert.ErrorIs(t, err, ErrVersionConflict)

	_, err = srv.AddVersion(ctx, first, []byte("two"))
	assert.NoError(t, err)
}

func TestLocalSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	srv, err := NewLocal(dir)
	require.NoError(t, err)
	first, err := srv.AddVersion(ctx, "", []byte("one"))
	require.NoError(t, err)

	reopened, err := NewLocal(dir)
	require.NoError(t, err)
	v, found, err := reopened.GetChildVersion(ctx, "")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, first, v.ID)
}
