package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"pos-service/internal/cache"
	"pos-service/internal/config"
	"pos-service/internal/database"
	"pos-service/internal/events"
	"pos-service/internal/inventory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCatalog(t *testing.T, c cache.Cache) (*Service, *database.SingleWriterDB) {
	t.Helper()

	cfg := &config.Config{SQLitePath: filepath.Join(t.TempDir(), "catalog_test.db")}
	db, err := database.NewSingleWriterDB(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bus := events.NewInMemoryEventPublisher(zap.NewNop())
	inv := inventory.NewService(db, bus, zap.NewNop(), 100, 100)
	return NewService(db, inv, c, 300, zap.NewNop()), db
}

func TestValidCategory(t *testing.T) {
	assert.True(t, ValidCategory("LIPSTICK"))
	assert.True(t, ValidCategory("BLUSH"))
	assert.False(t, ValidCategory("PERFUME"))
	assert.False(t, ValidCategory("lipstick"))
}

func TestCreate_RejectsUnknownCategory(t *testing.T) {
	svc, _ := newTestCatalog(t, nil)

	_, err := svc.Create(context.Background(), &database.Product{
		Description: "Mystery Item",
		Price:       100.0,
		Category:    "PERFUME",
	})

	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestCreate_DefaultsStatusActive(t *testing.T) {
	svc, _ := newTestCatalog(t, nil)
	ctx := context.Background()

	id, err := svc.Create(ctx, &database.Product{
		Description: "Velvet Lipstick",
		Price:       299.0,
		Category:    "LIPSTICK",
	})
	require.NoError(t, err)

	item, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, item.Active())
	assert.Equal(t, 100, item.Stock)
}

func TestLoad_BrowseJoinsStock(t *testing.T) {
	svc, db := newTestCatalog(t, nil)
	ctx := context.Background()

	lipstick, err := svc.Create(ctx, &database.Product{Description: "Velvet Lipstick", Price: 299.0, Category: "LIPSTICK"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, &database.Product{Description: "Silk Blush", Price: 199.0, Category: "BLUSH"})
	require.NoError(t, err)
	require.NoError(t, db.UpsertStock(ctx, lipstick, 7))

	items := svc.Load(ctx, ViewBrowse)

	require.Len(t, items, 2)
	assert.Equal(t, "Silk Blush", items[0].Description)
	assert.Equal(t, 100, items[0].Stock)
	assert.Equal(t, "Velvet Lipstick", items[1].Description)
	assert.Equal(t, 7, items[1].Stock)
}

func TestLoad_ManageOrdersNewestFirst(t *testing.T) {
	svc, _ := newTestCatalog(t, nil)
	ctx := context.Background()

	first, err := svc.Create(ctx, &database.Product{Description: "Velvet Lipstick", Price: 299.0, Category: "LIPSTICK"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, &database.Product{Description: "Silk Blush", Price: 199.0, Category: "BLUSH"})
	require.NoError(t, err)

	items := svc.Load(ctx, ViewManage)

	require.Len(t, items, 2)
	assert.Equal(t, second, items[0].ID)
	assert.Equal(t, first, items[1].ID)
}

func TestLoad_CacheInvalidatedOnMutation(t *testing.T) {
	memCache := cache.NewInMemoryCache(zap.NewNop())
	svc, _ := newTestCatalog(t, memCache)
	ctx := context.Background()

	_, err := svc.Create(ctx, &database.Product{Description: "Velvet Lipstick", Price: 299.0, Category: "LIPSTICK"})
	require.NoError(t, err)

	// First load fills the cache
	require.Len(t, svc.Load(ctx, ViewBrowse), 1)

	// A mutation invalidates it, so the next load sees the new product
	_, err = svc.Create(ctx, &database.Product{Description: "Silk Blush", Price: 199.0, Category: "BLUSH"})
	require.NoError(t, err)

	assert.Len(t, svc.Load(ctx, ViewBrowse), 2)
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestCatalog(t, nil)
	ctx := context.Background()

	id, err := svc.Create(ctx, &database.Product{Description: "Velvet Lipstick", Price: 299.0, Category: "LIPSTICK"})
	require.NoError(t, err)

	assert.Error(t, svc.UpdateStatus(ctx, id, "Paused"))
	assert.NoError(t, svc.UpdateStatus(ctx, id, "Inactive"))

	item, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.False(t, item.Active())
}

func TestDelete_RemovesFromCatalog(t *testing.T) {
	svc, _ := newTestCatalog(t, nil)
	ctx := context.Background()

	id, err := svc.Create(ctx, &database.Product{Description: "Velvet Lipstick", Price: 299.0, Category: "LIPSTICK"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, id))

	_, err = svc.Get(ctx, id)
	assert.ErrorIs(t, err, database.ErrProductNotFound)
}
