package db_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productblog/internal/db"
	"productblog/internal/models"
)

func newStore(t *testing.T) *db.Products {
	t.Helper()
	conn, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))
	t.Cleanup(func() {
		sqlDB, _ := conn.DB()
		_ = sqlDB.Close()
	})
	return db.NewProducts(conn)
}

func product(name, sku, price string) *models.Product {
	return &models.Product{
		ProductName: name,
		SKU:         sku,
		Price:       decimal.RequireFromString(price),
	}
}

func TestInsertAssignsID(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	p := product("Widget", "W-1", "9.99")
	p.ID = 42
	require.NoError(t, s.Insert(ctx, p))
	assert.NotZero(t, p.ID)
	assert.NotEqual(t, uint(42), p.ID)

	got, err := s.Find(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", got.ProductName)
	assert.True(t, decimal.RequireFromString("9.99").Equal(got.Price))
	assert.Nil(t, got.ImageMimeType)
	assert.False(t, got.HasImage())
}

func TestListSkipsImageBytes(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	size := "4"
	with := product("Lamp", "L-1", "20")
	with.ImageData = []byte("full")
	with.ImageMimeType = &size
	with.ImageThumbnail = []byte("thumbnail")
	require.NoError(t, s.Insert(ctx, with))
	require.NoError(t, s.Insert(ctx, product("Desk", "D-1", "100")))

	items, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Lamp", items[0].ProductName)
	assert.Nil(t, items[0].ImageData)
	assert.Nil(t, items[0].ImageThumbnail)
	assert.Equal(t, int64(len("thumbnail")), items[0].ThumbnailSize)
	assert.True(t, items[0].HasThumbnail())
	require.NotNil(t, items[0].ImageMimeType)
	assert.Equal(t, "4", *items[0].ImageMimeType)
	assert.True(t, decimal.RequireFromString("20").Equal(items[0].Price))

	assert.False(t, items[1].HasThumbnail())
	assert.Zero(t, items[1].ThumbnailSize)

	got, err := s.Find(ctx, with.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("thumbnail"), got.ImageThumbnail)
}

func TestFindMissing(t *testing.T) {
	s := newStore(t)
	_, err := s.Find(context.Background(), 7)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestUpdateOverwritesRecord(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	p := product("Widget", "W-1", "9.99")
	mime := "1234"
	p.ImageData = []byte{1, 2, 3}
	p.ImageMimeType = &mime
	p.ImageThumbnail = []byte{4, 5}
	require.NoError(t, s.Insert(ctx, p))

	p.ProductName = "Gadget"
	p.ImageData = nil
	p.ImageMimeType = nil
	p.ImageThumbnail = nil
	require.NoError(t, s.Update(ctx, p))

	got, err := s.Find(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Gadget", got.ProductName)
	assert.False(t, got.HasImage())
	assert.False(t, got.HasThumbnail())
	assert.Nil(t, got.ImageMimeType)
}

func TestUpdateMissingRowDoesNotInsert(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	p := product("Ghost", "G-1", "1")
	p.ID = 99
	assert.ErrorIs(t, s.Update(ctx, p), db.ErrNotFound)

	items, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDeleteManySkipsUnknownIDs(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	a := product("A", "A-1", "1")
	b := product("B", "B-1", "2")
	require.NoError(t, s.Insert(ctx, a))
	require.NoError(t, s.Insert(ctx, b))

	n, err := s.DeleteMany(ctx, []uint{a.ID, 777, a.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Find(ctx, a.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = s.Find(ctx, b.ID)
	assert.NoError(t, err)
}

func TestDeleteManyNothingMatched(t *testing.T) {
	s := newStore(t)
	n, err := s.DeleteMany(context.Background(), []uint{1, 2})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIDsAreNotReused(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	a := product("A", "A-1", "1")
	require.NoError(t, s.Insert(ctx, a))
	_, err := s.DeleteMany(ctx, []uint{a.ID})
	require.NoError(t, err)

	b := product("B", "B-1", "1")
	require.NoError(t, s.Insert(ctx, b))
	assert.Greater(t, b.ID, a.ID)
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := db.Open("oracle", "x")
	assert.ErrorContains(t, err, "unsupported driver")
}
