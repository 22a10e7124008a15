package service

import (
	"context"
	"fmt"

	"github.com/forrex322/shop/internal/domain"
	"github.com/forrex322/shop/internal/repository"
	"github.com/forrex322/shop/pkg/pagination"
)

// CatalogService serves read-only catalog pages.
type CatalogService struct {
	catalog repository.CatalogRepository
}

// NewCatalogService creates a catalog service.
func NewCatalogService(catalog repository.CatalogRepository) *CatalogService {
	return &CatalogService{catalog: catalog}
}

// Products returns one page of products, optionally limited to a category.
func (s *CatalogService) Products(ctx context.Context, categoryID string, page pagination.Params) (pagination.Result[domain.Product], error) {
	products, total, err := s.catalog.ListProducts(ctx, repository.ProductFilter{CategoryID: categoryID, Page: page})
	if err != nil {
		return pagination.Result[domain.Product]{}, fmt.Errorf("list products: %w", err)
	}
	return pagination.NewResult(products, total, page), nil
}

// Categories returns every category.
func (s *CatalogService) Categories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.catalog.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	return categories, nil
}

// Product returns the product with slug.
func (s *CatalogService) Product(ctx context.Context, slug string) (*domain.Product, error) {
	p, err := s.catalog.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// Category returns the category with slug and a page of its products.
func (s *CatalogService) Category(ctx context.Context, slug string, page pagination.Params) (*domain.Category, pagination.Result[domain.Product], error) {
	c, err := s.catalog.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, pagination.Result[domain.Product]{}, fmt.Errorf("get category: %w", err)
	}

	products, err := s.Products(ctx, c.ID, page)
	if err != nil {
		return nil, pagination.Result[domain.Product]{}, err
	}
	return c, products, nil
}
