package navstate

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, 10*time.Minute), mr
}

type checkoutPage struct {
	Step   int  `json:"step"`
	BuyNow bool `json:"buyNow"`
}

func TestScope_SaveLoadClose(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	scope, err := store.Open("s1", "/checkout/")
	require.NoError(t, err)
	require.NoError(t, scope.Save(ctx, checkoutPage{Step: 2, BuyNow: true}))
	assert.True(t, mr.Exists("navstate:s1:checkout"))

	var got checkoutPage
	require.NoError(t, scope.Load(ctx, &got))
	assert.Equal(t, checkoutPage{Step: 2, BuyNow: true}, got)

	require.NoError(t, scope.Close(ctx))
	assert.ErrorIs(t, scope.Load(ctx, &got), ErrNoState)
	require.NoError(t, scope.Close(ctx))
}

func TestScope_IsolatedByRouteAndSession(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	a, err := store.Open("s1", "checkout")
	require.NoError(t, err)
	b, err := store.Open("s1", "cart")
	require.NoError(t, err)
	c, err := store.Open("s2", "checkout")
	require.NoError(t, err)

	require.NoError(t, a.Save(ctx, json.RawMessage(`{"x":1}`)))

	var v json.RawMessage
	assert.ErrorIs(t, b.Load(ctx, &v), ErrNoState)
	assert.ErrorIs(t, c.Load(ctx, &v), ErrNoState)
}

func TestScope_Expires(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	scope, err := store.Open("s1", "checkout")
	require.NoError(t, err)
	require.NoError(t, scope.Save(ctx, checkoutPage{Step: 1}))

	mr.FastForward(11 * time.Minute)

	var got checkoutPage
	assert.ErrorIs(t, scope.Load(ctx, &got), ErrNoState)
}

func TestOpen_InvalidRoute(t *testing.T) {
	store, _ := setupStore(t)

	_, err := store.Open("s1", "/")
	assert.ErrorIs(t, err, ErrInvalidRoute)
	_, err = store.Open("", "checkout")
	assert.ErrorIs(t, err, ErrInvalidRoute)
}
