package storage

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
)

func setupTestMongo(t *testing.T) (*MongoLocalStore, func()) {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	store := NewMongoLocalStore(db)
	require.NoError(t, store.CreateIndexes(ctx))

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}
	return store, cleanup
}

func TestLocalStore_GetCart_Missing(t *testing.T) {
	store, cleanup := setupTestMongo(t)
	defer cleanup()

	lines, err := store.GetCart(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestLocalStore_SaveAndGet(t *testing.T) {
	store, cleanup := setupTestMongo(t)
	defer cleanup()
	ctx := context.Background()

	lines := []domain.CartLine{
		{ProductID: "p1", Quantity: 2, UnitPrice: decimal.RequireFromString("10.10"), Size: "M"},
		{ProductID: "p2", Quantity: 1, UnitPrice: decimal.NewFromInt(5)},
	}
	require.NoError(t, store.SaveCart(ctx, "s1", lines))

	got, err := store.GetCart(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "M", got[0].Size)
	assert.True(t, decimal.RequireFromString("25.2").Equal(domain.Subtotal(got)))
}

func TestLocalStore_SkipsNullItems(t *testing.T) {
	store, cleanup := setupTestMongo(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.collection.InsertOne(ctx, bson.M{
		"session_id": "s-null",
		"items":      bson.A{nil, bson.M{"product_id": "p1", "quantity": 1, "unit_price": "3"}},
		"updated_at": time.Now(),
	})
	require.NoError(t, err)

	got, err := store.GetCart(ctx, "s-null")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ProductID)
}

func TestLocalStore_Clear(t *testing.T) {
	store, cleanup := setupTestMongo(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.SaveCart(ctx, "s1", []domain.CartLine{{ProductID: "p1", Quantity: 1}}))
	require.NoError(t, store.ClearCart(ctx, "s1"))
	require.NoError(t, store.ClearCart(ctx, "s1"))

	got, err := store.GetCart(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, got)
}
