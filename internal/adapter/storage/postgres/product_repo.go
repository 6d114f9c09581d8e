package postgres

import (
	"context"
	"errors"
	"fmt"

	"crypto-checkout/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// ProductRepo implements ports.ProductRepository.
type ProductRepo struct {
	pool Pool
}

// NewProductRepo creates a new ProductRepo.
func NewProductRepo(pool Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

// Create inserts a catalog item and fills in its assigned id.
func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	query := `INSERT INTO products (name, description, price, created_at)
		VALUES ($1, $2, $3, $4) RETURNING id`

	err := r.pool.QueryRow(ctx, query, p.Name, p.Description, p.Price, p.CreatedAt).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID fetches a catalog item.
func (r *ProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT id, name, description, price, created_at FROM products WHERE id = $1`

	p := &domain.Product{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return p, nil
}

// List returns the full catalog in insertion order.
func (r *ProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT id, name, description, price, created_at FROM products ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}
