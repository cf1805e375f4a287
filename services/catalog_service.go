package services

import (
	"context"

	"go.uber.org/zap"

	apperrors "github.com/nathangtg/coffee-single-tenant-sub000/common/errors"
	"github.com/nathangtg/coffee-single-tenant-sub000/common/logger"
	"github.com/nathangtg/coffee-single-tenant-sub000/models"
	"github.com/nathangtg/coffee-single-tenant-sub000/repository"
)

type CatalogService struct {
	catalog repository.CatalogRepository
	logger  *zap.Logger
}

func NewCatalogService(catalog repository.CatalogRepository, logger *zap.Logger) *CatalogService {
	return &CatalogService{catalog: catalog, logger: logger}
}

// ListMenu returns the items that can currently be ordered.
func (s *CatalogService) ListMenu(ctx context.Context) ([]models.Item, error) {
	items, err := s.catalog.ListMenu(ctx)
	if err != nil {
		logger.For(ctx, s.logger).Error("failed to list menu", zap.Error(err))
		return nil, apperrors.Internal("Failed to load menu", err)
	}
	if items == nil {
		items = []models.Item{}
	}
	return items, nil
}
