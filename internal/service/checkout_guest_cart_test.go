package service

import (
	"context"
	"errors"
	"testing"

	"github.com/fjod/storefront-checkout/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddToGuestCart_MergesByLineKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddToGuestCart(ctx, sessionID, []domain.CartLine{line("p1", 1, 10)})
	require.NoError(t, err)

	other := line("p1", 1, 10)
	other.Size = "L"
	cart, err := f.svc.AddToGuestCart(ctx, sessionID, []domain.CartLine{line("p1", 1, 10), other})
	require.NoError(t, err)

	require.Len(t, cart.Lines, 2)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	assert.Equal(t, "L", cart.Lines[1].Size)
	assert.True(t, decimal.NewFromInt(30).Equal(cart.Subtotal))
	assert.Equal(t, cart.Lines, f.local.Carts[sessionID])
}

func TestReplaceGuestCart_FeedsGuestResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.local.Carts = map[string][]domain.CartLine{sessionID: {line("old", 5, 1)}}

	_, err := f.svc.ReplaceGuestCart(ctx, sessionID, []domain.CartLine{line("p1", 1, 10), line("p1", 1, 10)})
	require.NoError(t, err)

	cart, err := f.svc.Resolve(ctx, ResolveRequest{SessionID: sessionID})
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "p1", cart.Lines[0].ProductID)
	assert.True(t, decimal.NewFromInt(20).Equal(cart.Subtotal))
}

func TestGuestCart_RejectsInvalidLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.AddToGuestCart(ctx, sessionID, []domain.CartLine{{Quantity: 1}})
	assert.ErrorIs(t, err, ErrInvalidCartLine)

	_, err = f.svc.ReplaceGuestCart(ctx, sessionID, []domain.CartLine{line("p1", 0, 10)})
	assert.ErrorIs(t, err, ErrInvalidCartLine)
	assert.Empty(t, f.local.Carts)
}

func TestGuestCart_ReadError(t *testing.T) {
	f := newFixture(t)
	f.local.GetErr = errors.New("mongo down")

	_, err := f.svc.GuestCart(context.Background(), sessionID)
	assert.Error(t, err)

	_, err = f.svc.AddToGuestCart(context.Background(), sessionID, []domain.CartLine{line("p1", 1, 10)})
	assert.Error(t, err)
}
