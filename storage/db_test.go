package storage

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemDBPutGet(t *testing.T) {
	db := NewMemDB()
	require.NoError(t, db.Put([]byte("k"), []byte("v1")))

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), got)

	has, err := db.Has([]byte("k"))
	require.NoError(t, err)
	require.True(t, has)

	_, err = db.Get([]byte("missing"))
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestMemDBDelete(t *testing.T) {
	db := NewMemDB()
	require.NoError(t, db.Put([]byte("k"), []byte("v")))
	require.NoError(t, db.Delete([]byte("k")))

	has, err := db.Has([]byte("k"))
	require.NoError(t, err)
	require.False(t, has)
}

func TestMemDBPutCopiesValue(t *testing.T) {
	db := NewMemDB()
	value := []byte("original")
	require.NoError(t, db.Put([]byte("k"), value))
	value[0] = 'X'

	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("original"), got)
}
