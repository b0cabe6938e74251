package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"shelfwise/api/models"
)

var ErrProductNotFound = errors.New("product not found")

type ProductStore struct {
	db *sql.DB
}

func NewProductStore(db *sql.DB) *ProductStore {
	return &ProductStore{db: db}
}

func (s *ProductStore) CreateProduct(ctx context.Context, req *models.CreateProductRequest) (*models.Product, error) {
	product := &models.Product{}
	query := `
		INSERT INTO products (title, description, price, type, category, active)
		VALUES ($1, $2, $3, $4, $5, true)
		RETURNING id, title, description, price, type, category, active, created_at, updated_at;
	`
	err := s.db.QueryRowContext(ctx, query, req.Title, req.Description, req.Price, req.Type, req.Category).Scan(
		&product.ID,
		&product.Title,
		&product.Description,
		&product.Price,
		&product.Type,
		&product.Category,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	return product, nil
}

func (s *ProductStore) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	product := &models.Product{}
	query := `
		SELECT id, title, description, price, type, category, active, created_at, updated_at
		FROM products
		WHERE id = $1;
	`
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Title,
		&product.Description,
		&product.Price,
		&product.Type,
		&product.Category,
		&product.Active,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product by id: %w", err)
	}

	return product, nil
}

// ListProducts returns active products, optionally filtered by category and type.
func (s *ProductStore) ListProducts(ctx context.Context, category, productType string) ([]models.Product, error) {
	query := `
		SELECT id, title, description, price, type, category, active, created_at, updated_at
		FROM products
		WHERE active = true
	`
	var args []interface{}
	argN := 1
	if category != "" {
		query += fmt.Sprintf(" AND category = $%d", argN)
		args = append(args, category)
		argN++
	}
	if productType != "" {
		query += fmt.Sprintf(" AND type = $%d", argN)
		args = append(args, productType)
	}
	query += " ORDER BY created_at DESC;"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.Price, &p.Type, &p.Category, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during product list query: %w", err)
	}

	return products, nil
}

// GetTitlesByIDs resolves product ids to titles for read-side enrichment of
// analytics views. Missing ids are simply absent from the map.
func (s *ProductStore) GetTitlesByIDs(ctx context.Context, ids []int64) (map[int64]string, error) {
	titles := make(map[int64]string)
	if len(ids) == 0 {
		return titles, nil
	}

	query := `SELECT id, title FROM products WHERE id = ANY($1);`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to get product titles by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("failed to scan product title row: %w", err)
		}
		titles[id] = title
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during product title query: %w", err)
	}

	return titles, nil
}
