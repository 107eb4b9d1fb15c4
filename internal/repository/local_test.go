package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/config"
	"github.com/sysu-ecnc-dev/sa-signup/backend/internal/domain"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Database.ConnectTimeout = 5
	cfg.Database.QueryTimeout = 5
	cfg.Database.TransactionTimeout = 5
	cfg.Local.Path = filepath.Join(t.TempDir(), "data", "signups.db")
	return cfg
}

func openTestStore(t *testing.T) *LocalStore {
	t.Helper()
	store, err := OpenLocal(context.Background(), newTestConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newSignup(name string, first string, second string) *domain.Signup {
	return &domain.Signup{
		Name:  name,
		Email: fmt.Sprintf("%s@apu.ac.jp", name),
		SelectedShifts: []domain.SelectedShift{
			{ShiftID: first, Availability: domain.AvailabilityFullSemester},
			{ShiftID: second, Availability: domain.AvailabilityQ2Only},
		},
	}
}

func TestOpen_SelectsLocalWithoutDSN(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Database.DSN = "YOUR_DATABASE_DSN"

	store, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	defer store.Close()

	assert.Equal(t, BackendLocal, store.Backend())
}

func TestLocalStore_CreateAssignsIDAndTimestamp(t *testing.T) {
	store := openTestStore(t)
	signup := newSignup("jane", "mt2", "tf4")

	require.NoError(t, store.Create(context.Background(), signup))

	assert.NotEmpty(t, signup.ID)
	assert.False(t, signup.Timestamp.IsZero())

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, signup.ID, all[0].ID)
	assert.Equal(t, signup.SelectedShifts, all[0].SelectedShifts)
	assert.True(t, signup.Timestamp.Equal(all[0].Timestamp))
}

func TestLocalStore_ListAllNewestFirst(t *testing.T) {
	store := openTestStore(t)

	// 固定时钟，所有记录的时间戳相同，顺序只能依赖写入顺序
	fixed := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	names := []string{"first", "second", "third"}
	for _, name := range names {
		require.NoError(t, store.Create(context.Background(), newSignup(name, "mt2", "mt3")))
	}

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].Name)
	assert.Equal(t, "second", all[1].Name)
	assert.Equal(t, "first", all[2].Name)
}

func TestLocalStore_TimestampNeverGoesBackwards(t *testing.T) {
	store := openTestStore(t)

	later := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return later }
	first := newSignup("first", "mt2", "mt3")
	require.NoError(t, store.Create(context.Background(), first))

	// 时钟回拨
	store.now = func() time.Time { return later.Add(-time.Hour) }
	second := newSignup("second", "mt2", "mt3")
	require.NoError(t, store.Create(context.Background(), second))

	assert.False(t, second.Timestamp.Before(first.Timestamp))
}

func TestLocalStore_CreateWithinCapacity(t *testing.T) {
	store := openTestStore(t)
	catalog := domain.NewCatalog([]domain.ShiftSlot{
		{ID: "a", Name: "Slot A", Capacity: 1},
		{ID: "b", Name: "Slot B", Capacity: 5},
		{ID: "c", Name: "Slot C", Capacity: 5},
	})

	require.NoError(t, store.CreateWithinCapacity(context.Background(), newSignup("one", "a", "b"), catalog))

	rejected := newSignup("two", "c", "a")
	err := store.CreateWithinCapacity(context.Background(), rejected, catalog)

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, domain.KindSlotFull, vErr.Kind)
	assert.Equal(t, "a", vErr.SlotID)
	assert.Empty(t, rejected.ID)

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLocalStore_DeleteTwice(t *testing.T) {
	store := openTestStore(t)
	signup := newSignup("jane", "mt2", "tf4")
	require.NoError(t, store.Create(context.Background(), signup))

	require.NoError(t, store.DeleteByID(context.Background(), signup.ID))

	err := store.DeleteByID(context.Background(), signup.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLocalStore_PersistsAcrossReopen(t *testing.T) {
	cfg := newTestConfig(t)

	store, err := OpenLocal(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), newSignup("jane", "mt2", "tf4")))
	require.NoError(t, store.Close())

	reopened, err := OpenLocal(context.Background(), cfg)
	require.NoError(t, err)
	defer reopened.Close()

	all, err := reopened.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "jane", all[0].Name)
}

func TestLocalStore_UnavailableAfterClose(t *testing.T) {
	store := openTestStore(t)
	require.NoError(t, store.Close())

	_, err := store.ListAll(context.Background())
	assert.True(t, errors.Is(err, ErrStoreUnavailable))

	err = store.Create(context.Background(), newSignup("jane", "mt2", "tf4"))
	assert.True(t, errors.Is(err, ErrStoreUnavailable))
}
