package kv

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/pixian5/homepage-sub000/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSetAndGet_InsertThenGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "homepageData", []byte(`{"schemaVersion":1}`)))

	v, err := r.Get(ctx, "homepageData")
	require.NoError(t, err)
	require.Equal(t, []byte(`{"schemaVersion":1}`), v)
}

func TestGet_NotExists_ReturnsNilNil(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	v, err := r.Get(context.Background(), "absent")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestSet_UpsertOverwritesValue(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "k", []byte("old")))
	require.NoError(t, r.Set(ctx, "k", []byte("new")))

	v, err := r.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("new"), v)
}

func TestListDeleteClear(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "a", []byte{0xAA}))
	require.NoError(t, r.Set(ctx, "b", []byte{0xBB, 0xCC}))

	m, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, m, 2)
	assert.Equal(t, []byte{0xBB, 0xCC}, m["b"])

	require.NoError(t, r.Delete(ctx, "a"))
	require.NoError(t, r.Delete(ctx, "a"), "deleting twice is fine")
	v, err := r.Get(ctx, "a")
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, r.Clear(ctx))
	m, err = r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestSetWithinQuota(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "iconCache", make([]byte, 40)))

	// 40 used by another key + 60 new = 100, exactly at the limit.
	require.NoError(t, r.SetWithinQuota(ctx, "homepageData", make([]byte, 60), 100))

	// Overwriting the same key does not count its old value.
	require.NoError(t, r.SetWithinQuota(ctx, "homepageData", make([]byte, 60), 100))

	err := r.SetWithinQuota(ctx, "homepageData", make([]byte, 61), 100)
	require.ErrorIs(t, err, common.ErrQuotaExceeded)

	v, err := r.Get(ctx, "homepageData")
	require.NoError(t, err)
	assert.Len(t, v, 60, "rejected write must not be applied")
}

func TestOpenSQLite_FileIsReopenable(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "homepage.db")

	db, err := OpenSQLite(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, NewSQLiteRepository(db).Set(ctx, "k", []byte("v")))
	require.NoError(t, db.Close())

	db, err = OpenSQLite(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()

	v, err := NewSQLiteRepository(db).Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)
}

func TestRunSQLiteMigrations_IsIdempotent(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, RunSQLiteMigrations(context.Background(), db))
}

func TestSQLiteErrorsWrapped(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()
	require.NoError(t, db.Close())

	_, err := r.Get(ctx, "k")
	require.ErrorContains(t, err, "failed to get kv[k]")
	require.ErrorContains(t, r.Set(ctx, "k", []byte("v")), "failed to set kv[k]")
	require.ErrorContains(t, r.Delete(ctx, "k"), "failed to delete kv[k]")
	require.ErrorContains(t, r.Clear(ctx), "failed to clear kv")
	_, err = r.List(ctx)
	require.ErrorContains(t, err, "failed to list kv")
}
