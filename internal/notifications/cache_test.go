package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/propnest/propnest-client/pkg/db"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, conn.AutoMigrate(Models()...))

	cache, err := NewCache(db.Wrap(conn))
	require.NoError(t, err)
	return cache
}

func TestCacheSnapshotRoundTrip(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()
	propertyID := int64(44)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	received := created.Add(time.Minute)

	items := []Record{
		{ID: 2, Title: "New review", Message: "5 stars", CreatedAt: created, ReceivedAt: received, PropertyID: &propertyID},
		{ID: 1, Title: "Welcome", Message: "hello", IsRead: true, CreatedAt: created},
		{ID: 2, Title: "New review", Message: "5 stars", CreatedAt: created},
	}
	require.NoError(t, cache.SaveSnapshot(ctx, 9, items))
	require.NoError(t, cache.SaveSnapshot(ctx, 10, []Record{{ID: 99, Title: "other", Message: "user"}}))

	loaded, err := cache.LoadSnapshot(ctx, 9)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Equal(t, []int64{2, 1, 2}, ids(loaded))
	assert.Equal(t, received, loaded[0].ReceivedAt)
	require.NotNil(t, loaded[0].PropertyID)
	assert.Equal(t, propertyID, *loaded[0].PropertyID)
	assert.True(t, loaded[1].IsRead)
	assert.True(t, loaded[2].ReceivedAt.IsZero())
}

func TestCacheSaveReplacesPreviousSnapshot(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.SaveSnapshot(ctx, 9, []Record{{ID: 1, Title: "a", Message: "a"}, {ID: 2, Title: "b", Message: "b"}}))
	require.NoError(t, cache.SaveSnapshot(ctx, 9, []Record{{ID: 3, Title: "c", Message: "c"}}))

	loaded, err := cache.LoadSnapshot(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, ids(loaded))

	require.NoError(t, cache.Forget(ctx, 9))
	loaded, err = cache.LoadSnapshot(ctx, 9)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestCacheRequiresUser(t *testing.T) {
	cache := newTestCache(t)
	require.Error(t, cache.SaveSnapshot(context.Background(), 0, nil))
	_, err := cache.LoadSnapshot(context.Background(), 0)
	require.Error(t, err)
}
