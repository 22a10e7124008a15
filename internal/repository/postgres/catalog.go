package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/forrex322/shop/internal/domain"
	"github.com/forrex322/shop/internal/repository"
	"github.com/forrex322/shop/pkg/database"
	apperrors "github.com/forrex322/shop/pkg/errors"
)

const productColumns = `id, category_id, title, slug, description, image_url, price, created_at`

// CatalogRepository implements repository.CatalogRepository using PostgreSQL.
type CatalogRepository struct {
	pool database.DBTX
}

// NewCatalogRepository creates a new PostgreSQL-backed catalog repository.
func NewCatalogRepository(pool database.DBTX) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// ListProducts returns one page of products, newest first, with the total
// count of matching rows.
func (r *CatalogRepository) ListProducts(ctx context.Context, filter repository.ProductFilter) (_ []domain.Product, _ int, err error) {
	args := []any{}
	where := ""
	if filter.CategoryID != "" {
		where = "WHERE category_id = $1"
		args = append(args, filter.CategoryID)
	}
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, filter.Page.Limit(), filter.Page.Offset())

	ctx, end := trace(ctx, "ListProducts", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var total int
	products := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID, &p.CategoryID, &p.Title, &p.Slug, &p.Description, &p.ImageURL, &p.Price, &p.CreatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, total, nil
}

// ListCategories returns every category ordered by name.
func (r *CatalogRepository) ListCategories(ctx context.Context) (_ []domain.Category, err error) {
	query := `SELECT id, name, slug FROM categories ORDER BY name`

	ctx, end := trace(ctx, "ListCategories", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}

	return categories, nil
}

// GetProductBySlug returns the product with the given slug.
func (r *CatalogRepository) GetProductBySlug(ctx context.Context, slug string) (_ *domain.Product, err error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE slug = $1`

	ctx, end := trace(ctx, "GetProductBySlug", query)
	defer func() { end(err) }()

	var p domain.Product
	err = r.pool.QueryRow(ctx, query, slug).Scan(
		&p.ID, &p.CategoryID, &p.Title, &p.Slug, &p.Description, &p.ImageURL, &p.Price, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", slug)
		}
		return nil, fmt.Errorf("get product by slug: %w", err)
	}
	return &p, nil
}

// GetCategoryBySlug returns the category with the given slug.
func (r *CatalogRepository) GetCategoryBySlug(ctx context.Context, slug string) (_ *domain.Category, err error) {
	query := `SELECT id, name, slug FROM categories WHERE slug = $1`

	ctx, end := trace(ctx, "GetCategoryBySlug", query)
	defer func() { end(err) }()

	var c domain.Category
	if err = r.pool.QueryRow(ctx, query, slug).Scan(&c.ID, &c.Name, &c.Slug); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("category", slug)
		}
		return nil, fmt.Errorf("get category by slug: %w", err)
	}
	return &c, nil
}

// CreateCategory inserts a category.
func (r *CatalogRepository) CreateCategory(ctx context.Context, c *domain.Category) (err error) {
	query := `INSERT INTO categories (id, name, slug) VALUES ($1, $2, $3)`

	ctx, end := trace(ctx, "CreateCategory", query)
	defer func() { end(err) }()

	if _, err = r.pool.Exec(ctx, query, c.ID, c.Name, c.Slug); err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("category", "slug", c.Slug)
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// CreateProduct inserts a product.
func (r *CatalogRepository) CreateProduct(ctx context.Context, p *domain.Product) (err error) {
	query := `
		INSERT INTO products (id, category_id, title, slug, description, image_url, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	ctx, end := trace(ctx, "CreateProduct", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		p.ID, p.CategoryID, p.Title, p.Slug, p.Description, p.ImageURL, p.Price, p.CreatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}
