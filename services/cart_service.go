package services

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nathangtg/coffee-single-tenant-sub000/auth"
	apperrors "github.com/nathangtg/coffee-single-tenant-sub000/common/errors"
	"github.com/nathangtg/coffee-single-tenant-sub000/common/logger"
	"github.com/nathangtg/coffee-single-tenant-sub000/models"
	"github.com/nathangtg/coffee-single-tenant-sub000/repository"
)

var (
	errCartNotFound     = apperrors.NotFoundOrForbidden("Cart not found")
	errCartLineNotFound = apperrors.NotFoundOrForbidden("Cart item not found")
)

// CartService manages a user's pre-checkout selection. Carts are priced on
// read; nothing about price is stored.
type CartService struct {
	carts   repository.CartRepository
	catalog repository.CatalogRepository
	pricer  *PriceCalculator
	logger  *zap.Logger
}

func NewCartService(carts repository.CartRepository, catalog repository.CatalogRepository, pricer *PriceCalculator, logger *zap.Logger) *CartService {
	return &CartService{carts: carts, catalog: catalog, pricer: pricer, logger: logger}
}

func (s *CartService) GetCart(ctx context.Context, p auth.Principal, ownerID uuid.UUID) (*models.CartView, error) {
	if err := auth.Authorize(p, ownerID, errCartNotFound); err != nil {
		return nil, err
	}
	cart, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, cart), nil
}

// AddItem validates the selection against the catalog and merges it into an
// identical existing line when there is one.
func (s *CartService) AddItem(ctx context.Context, p auth.Principal, ownerID uuid.UUID, req *models.AddCartItemRequest) (*models.CartView, error) {
	if err := auth.Authorize(p, ownerID, errCartNotFound); err != nil {
		return nil, err
	}
	if req.Quantity < 1 {
		return nil, apperrors.Validation("quantity must be at least 1")
	}
	if _, err := s.pricer.priceLine(ctx, s.catalog, PriceLineInput{ItemID: req.ItemID, Quantity: req.Quantity, OptionIDs: req.OptionIDs}); err != nil {
		return nil, err
	}

	cart, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	notes := strings.TrimSpace(req.Notes)
	options := sortedIDs(req.OptionIDs)
	merged := false
	for i, line := range cart.Items {
		if line.ItemID == req.ItemID && line.Notes == notes && slices.Equal(sortedIDs(line.OptionIDs), options) {
			cart.Items[i].Quantity += req.Quantity
			merged = true
			break
		}
	}
	if !merged {
		cart.Items = append(cart.Items, models.CartItem{
			LineID:    uuid.NewString(),
			ItemID:    req.ItemID,
			Quantity:  req.Quantity,
			Notes:     notes,
			OptionIDs: options,
			AddedAt:   time.Now().UTC(),
		})
	}

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return s.view(ctx, cart), nil
}

func (s *CartService) UpdateItem(ctx context.Context, p auth.Principal, ownerID uuid.UUID, lineID string, req *models.UpdateCartItemRequest) (*models.CartView, error) {
	if err := auth.Authorize(p, ownerID, errCartNotFound); err != nil {
		return nil, err
	}
	if req.Quantity < 1 {
		return nil, apperrors.Validation("quantity must be at least 1")
	}
	cart, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	idx := slices.IndexFunc(cart.Items, func(ci models.CartItem) bool { return ci.LineID == lineID })
	if idx < 0 {
		return nil, errCartLineNotFound
	}
	cart.Items[idx].Quantity = req.Quantity
	if req.Notes != nil {
		cart.Items[idx].Notes = strings.TrimSpace(*req.Notes)
	}

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return s.view(ctx, cart), nil
}

func (s *CartService) RemoveItem(ctx context.Context, p auth.Principal, ownerID uuid.UUID, lineID string) (*models.CartView, error) {
	if err := auth.Authorize(p, ownerID, errCartNotFound); err != nil {
		return nil, err
	}
	cart, err := s.load(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	before := len(cart.Items)
	cart.Items = slices.DeleteFunc(cart.Items, func(ci models.CartItem) bool { return ci.LineID == lineID })
	if len(cart.Items) == before {
		return nil, errCartLineNotFound
	}

	if err := s.save(ctx, cart); err != nil {
		return nil, err
	}
	return s.view(ctx, cart), nil
}

func (s *CartService) ClearCart(ctx context.Context, p auth.Principal, ownerID uuid.UUID) error {
	if err := auth.Authorize(p, ownerID, errCartNotFound); err != nil {
		return err
	}
	if err := s.carts.DeleteCart(ctx, ownerID.String()); err != nil {
		logger.For(ctx, s.logger).Error("failed to clear cart", zap.String("user_id", ownerID.String()), zap.Error(err))
		return apperrors.Internal("Failed to clear cart", err)
	}
	return nil
}

func (s *CartService) load(ctx context.Context, ownerID uuid.UUID) (*models.Cart, error) {
	cart, err := s.carts.GetCart(ctx, ownerID.String())
	if err != nil {
		logger.For(ctx, s.logger).Error("failed to get cart", zap.String("user_id", ownerID.String()), zap.Error(err))
		return nil, apperrors.Internal("Failed to get cart", err)
	}
	if cart == nil {
		cart = &models.Cart{UserID: ownerID.String(), Items: []models.CartItem{}}
	}
	return cart, nil
}

func (s *CartService) save(ctx context.Context, cart *models.Cart) error {
	if err := s.carts.SaveCart(ctx, cart); err != nil {
		logger.For(ctx, s.logger).Error("failed to save cart", zap.String("user_id", cart.UserID), zap.Error(err))
		return apperrors.Internal("Failed to save cart", err)
	}
	return nil
}

func (s *CartService) view(ctx context.Context, cart *models.Cart) *models.CartView {
	v := &models.CartView{
		UserID:    cart.UserID,
		Lines:     make([]models.CartLineView, 0, len(cart.Items)),
		Subtotal:  decimal.Zero,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, ci := range cart.Items {
		line := s.pricer.PriceCartLine(ctx, s.catalog, ci)
		if line.Available {
			v.Subtotal = v.Subtotal.Add(line.LineTotal)
		}
		v.Lines = append(v.Lines, line)
	}
	v.Subtotal = v.Subtotal.Round(2)
	v.Tax, v.Total = s.pricer.Totals(v.Subtotal)
	return v
}

func sortedIDs(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	return out
}
