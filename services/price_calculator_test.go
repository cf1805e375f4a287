package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/nathangtg/coffee-single-tenant-sub000/common/errors"
	"github.com/nathangtg/coffee-single-tenant-sub000/models"
)

func TestCalculate_LineWithOption(t *testing.T) {
	store := newMemStore()
	latte := store.addItem("Latte", "4.00", true)
	oat := store.addOption(latte, "Oat milk", "0.50")

	pc := NewPriceCalculator(true, decimal.Zero)
	quote, err := pc.Calculate(context.Background(), store.Catalog(), []PriceLineInput{
		{ItemID: latte, Quantity: 2, OptionIDs: []uuid.UUID{oat}},
	})
	require.NoError(t, err)
	assert.Equal(t, "9.00", quote.Subtotal.StringFixed(2))
	require.Len(t, quote.Lines, 1)
	assert.Equal(t, "4.00", quote.Lines[0].UnitPrice.StringFixed(2))
	require.Len(t, quote.Lines[0].Options, 1)
	assert.Equal(t, "0.50", quote.Lines[0].Options[0].PriceModifier.StringFixed(2))
}

func TestCalculate_SumsLinesAndNegativeModifiers(t *testing.T) {
	store := newMemStore()
	espresso := store.addItem("Espresso", "2.75", true)
	mocha := store.addItem("Mocha", "4.35", true)
	small := store.addOption(mocha, "Small", "-0.40")

	pc := NewPriceCalculator(true, decimal.Zero)
	quote, err := pc.Calculate(context.Background(), store.Catalog(), []PriceLineInput{
		{ItemID: espresso, Quantity: 3},
		{ItemID: mocha, Quantity: 2, OptionIDs: []uuid.UUID{small}},
	})
	require.NoError(t, err)
	// 3×2.75 + 2×(4.35−0.40)
	assert.Equal(t, "16.15", quote.Subtotal.StringFixed(2))
}

func TestCalculate_MissingAndUnavailableItems(t *testing.T) {
	store := newMemStore()
	ok := store.addItem("Latte", "4.00", true)
	soldOut := store.addItem("Pumpkin Spice", "5.50", false)
	pc := NewPriceCalculator(true, decimal.Zero)

	_, err := pc.Calculate(context.Background(), store.Catalog(), []PriceLineInput{
		{ItemID: ok, Quantity: 1},
		{ItemID: soldOut, Quantity: 1},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUpstreamUnavailable))
	assert.Contains(t, err.Error(), "Pumpkin Spice")

	_, err = pc.Calculate(context.Background(), store.Catalog(), []PriceLineInput{{ItemID: uuid.New(), Quantity: 1}})
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
}

func TestCalculate_OptionPolicy(t *testing.T) {
	store := newMemStore()
	latte := store.addItem("Latte", "4.00", true)
	tea := store.addItem("Tea", "3.00", true)
	lemon := store.addOption(tea, "Lemon", "0.25")
	unknown := uuid.New()

	strict := NewPriceCalculator(true, decimal.Zero)
	lenient := NewPriceCalculator(false, decimal.Zero)

	t.Run("unknown option", func(t *testing.T) {
		lines := []PriceLineInput{{ItemID: latte, Quantity: 1, OptionIDs: []uuid.UUID{unknown}}}

		_, err := strict.Calculate(context.Background(), store.Catalog(), lines)
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

		quote, err := lenient.Calculate(context.Background(), store.Catalog(), lines)
		require.NoError(t, err)
		assert.Equal(t, "4.00", quote.Subtotal.StringFixed(2))
		assert.Empty(t, quote.Lines[0].Options)
	})

	t.Run("option from another item", func(t *testing.T) {
		lines := []PriceLineInput{{ItemID: latte, Quantity: 2, OptionIDs: []uuid.UUID{lemon}}}

		_, err := strict.Calculate(context.Background(), store.Catalog(), lines)
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

		quote, err := lenient.Calculate(context.Background(), store.Catalog(), lines)
		require.NoError(t, err)
		assert.Equal(t, "8.50", quote.Subtotal.StringFixed(2))
	})
}

func TestTotals_RoundsTax(t *testing.T) {
	pc := NewPriceCalculator(true, decimal.RequireFromString("0.0825"))
	tax, total := pc.Totals(decimal.RequireFromString("9.00"))
	assert.Equal(t, "0.74", tax.StringFixed(2))
	assert.Equal(t, "9.74", total.StringFixed(2))
}

func TestPriceCartLine_FlagsProblems(t *testing.T) {
	store := newMemStore()
	latte := store.addItem("Latte", "4.00", true)
	pc := NewPriceCalculator(true, decimal.Zero)

	v := pc.PriceCartLine(context.Background(), store.Catalog(), models.CartItem{ItemID: latte, Quantity: 3})
	assert.True(t, v.Available)
	assert.Equal(t, "12.00", v.LineTotal.StringFixed(2))

	store.setAvailable(latte, false)
	v = pc.PriceCartLine(context.Background(), store.Catalog(), models.CartItem{ItemID: latte, Quantity: 3})
	assert.False(t, v.Available)
	assert.Contains(t, v.Problem, "unavailable")
}

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{8}-\d{4}-[0-9A-F]{6}$`)

func TestOrderNumber_Format(t *testing.T) {
	g := NewOrderNumberGenerator(5)
	g.now = func() time.Time { return time.Date(2026, 3, 15, 9, 42, 0, 0, time.UTC) }

	n := g.Candidate()
	assert.Regexp(t, orderNumberPattern, n)
	assert.Contains(t, n, "ORD-20260315-0942-")
}

func TestOrderNumber_RetriesThenExhausts(t *testing.T) {
	g := NewOrderNumberGenerator(5)
	suffixes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	i := 0
	g.suffix = func() string { s := suffixes[i%len(suffixes)]; i++; return s }

	taken := func(_ context.Context, n string) (bool, error) { return n[len(n)-6:] == "AAAAAA", nil }
	used := 0
	n, err := g.Next(context.Background(), &used, taken)
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", n[len(n)-6:])
	assert.Equal(t, 3, used)

	always := func(context.Context, string) (bool, error) { return true, nil }
	used = 0
	_, err = g.Next(context.Background(), &used, always)
	assert.ErrorIs(t, err, apperrors.ErrNumberGenerationExhausted)
	assert.Equal(t, 5, used)
}
