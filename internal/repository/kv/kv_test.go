package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMirror struct {
	docs  map[string][]byte
	loads int
	err   error
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{docs: make(map[string][]byte)}
}

func (m *fakeMirror) LoadDocument(_ context.Context, namespace, key string) ([]byte, bool, error) {
	m.loads++
	if m.err != nil {
		return nil, false, m.err
	}
	v, ok := m.docs[namespace+"/"+key]
	return v, ok, nil
}

func (m *fakeMirror) SaveDocument(_ context.Context, namespace, key string, value []byte) error {
	if m.err != nil {
		return m.err
	}
	m.docs[namespace+"/"+key] = value
	return nil
}

func (m *fakeMirror) DeleteDocument(_ context.Context, namespace, key string) error {
	delete(m.docs, namespace+"/"+key)
	return nil
}

func TestMirroredStore_SetWritesBothCopies(t *testing.T) {
	ctx := context.Background()
	mirror := newFakeMirror()
	store := NewMirroredStore(NewMemoryCache(), mirror, nil)

	require.NoError(t, store.Set(ctx, "karim", KeyTypes, []string{"Poly", "Zip"}))
	assert.JSONEq(t, `["Poly","Zip"]`, string(mirror.docs["karim/"+KeyTypes]))

	var got []string
	found, err := store.Get(ctx, "karim", KeyTypes, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"Poly", "Zip"}, got)
	assert.Zero(t, mirror.loads)
}

func TestMirroredStore_GetFallsBackToMirrorAndFillsCache(t *testing.T) {
	ctx := context.Background()
	mirror := newFakeMirror()
	mirror.docs["karim/"+KeySizes] = []byte(`["10/14"]`)
	store := NewMirroredStore(NewMemoryCache(), mirror, nil)

	var got []string
	found, err := store.Get(ctx, "karim", KeySizes, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"10/14"}, got)

	_, err = store.Get(ctx, "karim", KeySizes, &got)
	require.NoError(t, err)
	assert.Equal(t, 1, mirror.loads)
}

func TestMirroredStore_MissingKey(t *testing.T) {
	var got []string
	found, err := NewMemoryStore().Get(context.Background(), "karim", KeySales, &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestMirroredStore_NamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Set(ctx, "karim", KeyColors, []string{"White"}))

	var got []string
	found, err := store.Get(ctx, "rahim", KeyColors, &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMirroredStore_MirrorErrorsSurface(t *testing.T) {
	ctx := context.Background()
	mirror := newFakeMirror()
	mirror.err = errors.New("network down")
	store := NewMirroredStore(NewMemoryCache(), mirror, nil)

	assert.ErrorContains(t, store.Set(ctx, "karim", KeyTypes, []string{"x"}), "network down")

	var got []string
	_, err := NewMirroredStore(NewMemoryCache(), mirror, nil).Get(ctx, "karim", KeyTypes, &got)
	assert.ErrorContains(t, err, "network down")
}

func TestMirroredStore_Delete(t *testing.T) {
	ctx := context.Background()
	mirror := newFakeMirror()
	store := NewMirroredStore(NewMemoryCache(), mirror, nil)
	require.NoError(t, store.Set(ctx, "karim", KeyCourierVault, map[string]string{"v": "v1"}))

	require.NoError(t, store.Delete(ctx, "karim", KeyCourierVault))

	var got map[string]string
	found, err := store.Get(ctx, "karim", KeyCourierVault, &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, mirror.docs)
}
