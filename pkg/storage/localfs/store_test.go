package localfs

import (
	"bytes"
	"context"
	"io/ioutil"
	"testing"

	"github.com/dataprov/dataprov/pkg/errors"
	"github.com/dataprov/dataprov/pkg/storage"
	"github.com/dataprov/dataprov/pkg/storage/status"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() storage.Store {
	return New(afero.NewMemMapFs())
}

func TestStorePutGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	require.NoError(t, store.Put(ctx, "datasets/d1/dataset.yaml", bytes.NewBufferString("name: d1"), storage.NoOverWrite))

	has, err := store.Has(ctx, "datasets/d1/dataset.yaml")
	require.NoError(t, err)
	assert.True(t, has)

	rdr, err := store.Get(ctx, "datasets/d1/dataset.yaml")
	require.NoError(t, err)
	defer rdr.Close()
	content, err := ioutil.ReadAll(rdr)
	require.NoError(t, err)
	assert.Equal(t, "name: d1", string(content))
}

func TestStoreGetMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	_, err := store.Get(ctx, "no/such/key")
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotExists))
}

func TestStorePutExclusive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	require.NoError(t, store.Put(ctx, "k", bytes.NewBufferString("v1"), storage.NoOverWrite))

	err := store.Put(ctx, "k", bytes.NewBufferString("v2"), storage.NoOverWrite)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrExists))

	// overwrite replaces the record
	require.NoError(t, store.Put(ctx, "k", bytes.NewBufferString("v2"), storage.OverWrite))
	rdr, err := store.Get(ctx, "k")
	require.NoError(t, err)
	defer rdr.Close()
	content, err := ioutil.ReadAll(rdr)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(content))
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	require.NoError(t, store.Put(ctx, "k", bytes.NewBufferString("v"), storage.NoOverWrite))
	require.NoError(t, store.Delete(ctx, "k"))

	has, err := store.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, has)

	// deleting a missing key is not an error
	require.NoError(t, store.Delete(ctx, "k"))
}

func TestStoreKeys(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	for _, key := range []string{
		"datasets/d2/dataset.yaml",
		"datasets/d1/dataset.yaml",
		"tags/d1/v1.yaml",
	} {
		require.NoError(t, store.Put(ctx, key, bytes.NewBufferString("x"), storage.NoOverWrite))
	}

	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"datasets/d1/dataset.yaml",
		"datasets/d2/dataset.yaml",
		"tags/d1/v1.yaml",
	}, keys)
}

func TestStoreKeysPrefix(t *testing.T) {
	ctx := context.Background()
	store := newTestStore()

	for _, key := range []string{
		"datasets/d1/dataset.yaml",
		"datasets/d2/dataset.yaml",
		"datasets/d3/dataset.yaml",
		"tags/d1/v1.yaml",
	} {
		require.NoError(t, store.Put(ctx, key, bytes.NewBufferString("x"), storage.NoOverWrite))
	}

	keys, next, err := store.KeysPrefix(ctx, "", "datasets/", "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"datasets/d1/dataset.yaml", "datasets/d2/dataset.yaml"}, keys)
	require.NotEmpty(t, next)

	keys, next, err = store.KeysPrefix(ctx, next, "datasets/", "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"datasets/d3/dataset.yaml"}, keys)
	assert.Empty(t, next)

	_, _, err = store.KeysPrefix(ctx, "", "", "/", 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, status.ErrNotSupported))
}
