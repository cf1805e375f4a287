package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apperrors "github.com/nathangtg/coffee-single-tenant-sub000/common/errors"
	"github.com/nathangtg/coffee-single-tenant-sub000/models"
	"github.com/nathangtg/coffee-single-tenant-sub000/repository"
)

// PriceLineInput is one line to price: an item, a quantity and chosen options.
type PriceLineInput struct {
	ItemID    uuid.UUID
	Quantity  int
	OptionIDs []uuid.UUID
	Notes     *string
}

type PricedOption struct {
	OptionID      uuid.UUID
	PriceModifier decimal.Decimal
}

// PricedLine carries the values captured onto OrderItem and OrderItemOption.
type PricedLine struct {
	ItemID    uuid.UUID
	ItemName  string
	Quantity  int
	UnitPrice decimal.Decimal
	Options   []PricedOption
	Notes     *string
	LineTotal decimal.Decimal
}

type PriceQuote struct {
	Lines    []PricedLine
	Subtotal decimal.Decimal
}

// PriceCalculator prices lines against the current catalog. It never writes.
//
// In strict mode an unknown option id, or an option that belongs to a
// different item, rejects the batch. Otherwise unknown options are skipped and
// foreign options are priced as given.
type PriceCalculator struct {
	strict  bool
	taxRate decimal.Decimal
}

func NewPriceCalculator(strict bool, taxRate decimal.Decimal) *PriceCalculator {
	return &PriceCalculator{strict: strict, taxRate: taxRate}
}

// Calculate prices every line. Any missing or unavailable item fails the
// whole batch.
func (pc *PriceCalculator) Calculate(ctx context.Context, catalog repository.CatalogRepository, lines []PriceLineInput) (*PriceQuote, error) {
	quote := &PriceQuote{Lines: make([]PricedLine, 0, len(lines)), Subtotal: decimal.Zero}
	for _, line := range lines {
		priced, err := pc.priceLine(ctx, catalog, line)
		if err != nil {
			return nil, err
		}
		quote.Lines = append(quote.Lines, priced)
		quote.Subtotal = quote.Subtotal.Add(priced.LineTotal)
	}
	quote.Subtotal = quote.Subtotal.Round(2)
	return quote, nil
}

func (pc *PriceCalculator) priceLine(ctx context.Context, catalog repository.CatalogRepository, line PriceLineInput) (PricedLine, error) {
	item, err := catalog.GetItem(ctx, line.ItemID)
	if errors.Is(err, repository.ErrNotFound) {
		return PricedLine{}, apperrors.Validation(fmt.Sprintf("Item %s not found", line.ItemID))
	}
	if err != nil {
		return PricedLine{}, apperrors.Internal("Failed to read catalog", err)
	}
	if !item.IsAvailable {
		return PricedLine{}, apperrors.UpstreamUnavailable(fmt.Sprintf("Item %q is currently unavailable", item.Name))
	}

	qty := decimal.NewFromInt(int64(line.Quantity))
	priced := PricedLine{
		ItemID:    item.ID,
		ItemName:  item.Name,
		Quantity:  line.Quantity,
		UnitPrice: item.Price,
		Notes:     line.Notes,
		LineTotal: item.Price.Mul(qty),
	}

	for _, optID := range line.OptionIDs {
		opt, err := catalog.GetOption(ctx, optID)
		if errors.Is(err, repository.ErrNotFound) {
			if pc.strict {
				return PricedLine{}, apperrors.Validation(fmt.Sprintf("Option %s not found", optID))
			}
			continue
		}
		if err != nil {
			return PricedLine{}, apperrors.Internal("Failed to read catalog", err)
		}
		if pc.strict && opt.ItemID != item.ID {
			return PricedLine{}, apperrors.Validation(fmt.Sprintf("Option %q does not belong to item %q", opt.Name, item.Name))
		}
		priced.Options = append(priced.Options, PricedOption{OptionID: opt.ID, PriceModifier: opt.PriceModifier})
		priced.LineTotal = priced.LineTotal.Add(opt.PriceModifier.Mul(qty))
	}
	return priced, nil
}

// Tax returns subtotal × rate rounded to cents.
func (pc *PriceCalculator) Tax(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(pc.taxRate).Round(2)
}

// Totals returns (tax, total) for a subtotal with no discount.
func (pc *PriceCalculator) Totals(subtotal decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	tax := pc.Tax(subtotal)
	return tax, subtotal.Add(tax).Round(2)
}

// PriceCartLine prices one cart line for display. Problems are reported on
// the line instead of failing the cart.
func (pc *PriceCalculator) PriceCartLine(ctx context.Context, catalog repository.CatalogRepository, ci models.CartItem) models.CartLineView {
	view := models.CartLineView{CartItem: ci, UnitPrice: decimal.Zero, LineTotal: decimal.Zero}

	priced, err := pc.priceLine(ctx, catalog, PriceLineInput{ItemID: ci.ItemID, Quantity: ci.Quantity, OptionIDs: ci.OptionIDs})
	if err != nil {
		view.Problem = apperrors.FromError(err).Message
		return view
	}
	view.Name = priced.ItemName
	view.UnitPrice = priced.UnitPrice
	view.LineTotal = priced.LineTotal.Round(2)
	view.Available = true
	return view
}
