package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixian5/homepage-sub000/internal/common"
	"github.com/pixian5/homepage-sub000/internal/repositories/kv"
)

// misbehavingRepository fails in configurable ways on Set.
type misbehavingRepository struct {
	*kv.MemoryRepository
	panicOnSet bool
	block      chan struct{}
	setErr     error
}

func (m *misbehavingRepository) Set(ctx context.Context, key string, value []byte) error {
	if m.panicOnSet {
		panic("area exploded")
	}
	if m.block != nil {
		<-m.block
	}
	if m.setErr != nil {
		return m.setErr
	}
	return m.MemoryRepository.Set(ctx, key, value)
}

func TestAdapter_RoundTrip(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(kv.NewMemoryRepository(), kv.NewMemoryRepository())

	require.True(t, a.Available(Local))
	require.True(t, a.Available(Synced))

	require.NoError(t, a.Set(ctx, Local, "k", []byte(`"v"`)))
	v, err := a.Get(ctx, Local, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte(`"v"`), v)

	v, err = a.Get(ctx, Synced, "k")
	require.NoError(t, err)
	assert.Nil(t, v, "tiers are independent")

	require.NoError(t, a.Remove(ctx, Local, "k"))
	require.NoError(t, a.Remove(ctx, Local, "k"), "removing an absent key succeeds")
	v, err = a.Get(ctx, Local, "k")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestAdapter_Unavailable(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(nil, nil)

	assert.False(t, a.Available(Local))
	v, err := a.Get(ctx, Local, "k")
	require.NoError(t, err)
	assert.Nil(t, v)

	err = a.Set(ctx, Synced, "k", []byte("1"))
	require.ErrorIs(t, err, common.ErrStorageUnavailable)
	err = a.Remove(ctx, Local, "k")
	require.ErrorIs(t, err, common.ErrStorageUnavailable)

	ok, err := a.GetJSON(ctx, Local, "k", new(map[string]any))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdapter_PerItemQuota(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(nil, kv.NewMemoryRepository(), WithQuota(Synced, Quota{PerItemBytes: 4}))

	require.NoError(t, a.Set(ctx, Synced, "a", []byte("1234")))
	err := a.Set(ctx, Synced, "b", []byte("12345"))
	require.ErrorIs(t, err, common.ErrQuotaExceeded)
}

func TestAdapter_TotalQuota(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(kv.NewMemoryRepository(), nil, WithQuota(Local, Quota{TotalBytes: 10}))

	require.NoError(t, a.Set(ctx, Local, "a", []byte("123456")))
	require.NoError(t, a.Set(ctx, Local, "a", []byte("1234567890")), "overwrite only counts the new value")

	err := a.Set(ctx, Local, "b", []byte("1"))
	require.ErrorIs(t, err, common.ErrQuotaExceeded)

	v, err := a.Get(ctx, Local, "b")
	require.NoError(t, err)
	assert.Nil(t, v, "rejected write leaves nothing behind")
}

func TestAdapter_TotalQuotaWithSQLite(t *testing.T) {
	ctx := context.Background()
	db, err := kv.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	repo := kv.NewSQLiteRepository(db)

	a := NewAdapter(repo, nil, WithQuota(Local, Quota{TotalBytes: 8}))
	require.NoError(t, a.Set(ctx, Local, "a", []byte("1234")))
	require.NoError(t, a.Set(ctx, Local, "b", []byte("5678")))
	require.ErrorIs(t, a.Set(ctx, Local, "c", []byte("9")), common.ErrQuotaExceeded)
}

func TestAdapter_PanicIsRecovered(t *testing.T) {
	ctx := context.Background()
	repo := &misbehavingRepository{MemoryRepository: kv.NewMemoryRepository(), panicOnSet: true}
	a := NewAdapter(repo, nil)

	err := a.Set(ctx, Local, "k", []byte("1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
}

func TestAdapter_HungCallTimesOut(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	repo := &misbehavingRepository{MemoryRepository: kv.NewMemoryRepository(), block: release}
	a := NewAdapter(repo, nil, WithTimeout(20*time.Millisecond))

	start := time.Now()
	err := a.Set(ctx, Local, "k", []byte("1"))
	require.ErrorIs(t, err, common.ErrStorageTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestAdapter_CancelledCallIsNotATimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	repo := &misbehavingRepository{MemoryRepository: kv.NewMemoryRepository(), block: release}
	a := NewAdapter(repo, nil, WithTimeout(time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)
	err := a.Set(ctx, Local, "k", []byte("1"))
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, common.ErrStorageTimeout)
}

func TestAdapter_AreaErrorPropagates(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	repo := &misbehavingRepository{MemoryRepository: kv.NewMemoryRepository(), setErr: boom}
	a := NewAdapter(nil, repo)

	require.ErrorIs(t, a.Set(ctx, Synced, "k", []byte("1")), boom)
}

func TestAdapter_JSON(t *testing.T) {
	ctx := context.Background()
	a := NewAdapter(kv.NewMemoryRepository(), nil)

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, a.SetJSON(ctx, Local, "p", payload{Name: "x"}))

	var got payload
	ok, err := a.GetJSON(ctx, Local, "p", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "x", got.Name)

	require.NoError(t, a.Set(ctx, Local, "bad", []byte("{")))
	_, err = a.GetJSON(ctx, Local, "bad", &got)
	require.Error(t, err)
}

func TestTier_String(t *testing.T) {
	assert.Equal(t, "local", Local.String())
	assert.Equal(t, "synced", Synced.String())
	assert.Equal(t, "tier(7)", Tier(7).String())
}
