package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/nathangtg/coffee-single-tenant-sub000/common/errors"
	"github.com/nathangtg/coffee-single-tenant-sub000/models"
)

func TestCart_AddMergesIdenticalLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	add := func(qty int, notes string, opts ...uuid.UUID) *models.CartView {
		v, err := f.cart.AddItem(ctx, f.alice, f.alice.ID, &models.AddCartItemRequest{ItemID: f.latte, Quantity: qty, Notes: notes, OptionIDs: opts})
		require.NoError(t, err)
		return v
	}

	add(1, "", f.oatMilk)
	v := add(1, "", f.oatMilk)
	require.Len(t, v.Lines, 1)
	assert.Equal(t, 2, v.Lines[0].Quantity)
	assert.Equal(t, "9.00", v.Total.StringFixed(2))

	v = add(1, "no foam", f.oatMilk)
	assert.Len(t, v.Lines, 2)
	v = add(1, "")
	assert.Len(t, v.Lines, 3)
	assert.Equal(t, "17.50", v.Subtotal.StringFixed(2))
}

func TestCart_AddRejectsBadSelections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, f.alice, f.alice.ID, &models.AddCartItemRequest{ItemID: uuid.New(), Quantity: 1})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	f.store.setAvailable(f.muffin, false)
	_, err = f.cart.AddItem(ctx, f.alice, f.alice.ID, &models.AddCartItemRequest{ItemID: f.muffin, Quantity: 1})
	assert.True(t, apperrors.IsKind(err, apperrors.KindUpstreamUnavailable))

	_, err = f.cart.AddItem(ctx, f.alice, f.alice.ID, &models.AddCartItemRequest{ItemID: f.latte, Quantity: 0})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestCart_UpdateAndRemove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.cart.AddItem(ctx, f.alice, f.alice.ID, &models.AddCartItemRequest{ItemID: f.muffin, Quantity: 1})
	require.NoError(t, err)
	lineID := v.Lines[0].LineID

	notes := "warmed"
	v, err = f.cart.UpdateItem(ctx, f.alice, f.alice.ID, lineID, &models.UpdateCartItemRequest{Quantity: 4, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, 4, v.Lines[0].Quantity)
	assert.Equal(t, "warmed", v.Lines[0].Notes)
	assert.Equal(t, "13.00", v.Total.StringFixed(2))

	_, err = f.cart.UpdateItem(ctx, f.alice, f.alice.ID, "missing", &models.UpdateCartItemRequest{Quantity: 1})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFoundOrForbidden))

	v, err = f.cart.RemoveItem(ctx, f.alice, f.alice.ID, lineID)
	require.NoError(t, err)
	assert.Empty(t, v.Lines)

	_, err = f.cart.RemoveItem(ctx, f.alice, f.alice.ID, lineID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFoundOrForbidden))
}

func TestCart_Scope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, f.alice, f.alice.ID, &models.AddCartItemRequest{ItemID: f.muffin, Quantity: 2})
	require.NoError(t, err)

	_, err = f.cart.GetCart(ctx, f.bob, f.alice.ID)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFoundOrForbidden))
	_, err = f.cart.AddItem(ctx, f.bob, f.alice.ID, &models.AddCartItemRequest{ItemID: f.muffin, Quantity: 1})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFoundOrForbidden))
	assert.True(t, apperrors.IsKind(f.cart.ClearCart(ctx, f.staff, f.alice.ID), apperrors.KindNotFoundOrForbidden))

	v, err := f.cart.GetCart(ctx, f.admin, f.alice.ID)
	require.NoError(t, err)
	assert.Len(t, v.Lines, 1)

	require.NoError(t, f.cart.ClearCart(ctx, f.admin, f.alice.ID))
	v, err = f.cart.GetCart(ctx, f.alice, f.alice.ID)
	require.NoError(t, err)
	assert.Empty(t, v.Lines)
}

func TestCart_ViewSkipsUnavailableLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.cart.AddItem(ctx, f.alice, f.alice.ID, &models.AddCartItemRequest{ItemID: f.muffin, Quantity: 1})
	require.NoError(t, err)
	_, err = f.cart.AddItem(ctx, f.alice, f.alice.ID, &models.AddCartItemRequest{ItemID: f.latte, Quantity: 1})
	require.NoError(t, err)
	f.store.setAvailable(f.muffin, false)

	v, err := f.cart.GetCart(ctx, f.alice, f.alice.ID)
	require.NoError(t, err)
	assert.Len(t, v.Lines, 2)
	assert.Equal(t, "4.00", v.Total.StringFixed(2))
}

func TestCatalogService_ListMenu(t *testing.T) {
	f := newFixture(t)
	f.store.setAvailable(f.muffin, false)

	items, err := NewCatalogService(f.store.Catalog(), zap.NewNop()).ListMenu(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Latte", items[0].Name)
	assert.Len(t, items[0].Options, 1)
}
