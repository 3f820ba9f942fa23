// Package postgres implements the productmedia repositories on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/storekit/product-media/pkg/productmedia"
)

// DBTX is an interface that allows us to use either a database connection or
// a transaction. Callers that wrap product, variant and image row mutations
// in one transaction hand the tx in here; object store operations never run
// inside it.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements productmedia.Repository and productmedia.ProductStore
// using PostgreSQL.
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "product_image") {
				return fmt.Errorf("image asset already exists")
			}
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("record not found")
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Image asset operations

func (r *Repository) CreateImageAssets(ctx context.Context, assets []*productmedia.ImageAsset) error {
	query := `
		INSERT INTO product_image (id, product_id, url, urls, alt_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	for _, asset := range assets {
		urls, err := json.Marshal(asset.URLs)
		if err != nil {
			return fmt.Errorf("marshal url map: %w", err)
		}

		_, err = r.db.Exec(ctx, query,
			asset.ID, asset.ProductID, asset.URL, urls, asset.AltText, asset.CreatedAt)
		if err != nil {
			return r.handlePostgresError("create image asset", err)
		}
	}

	return nil
}

func (r *Repository) ListImageAssetsByProduct(ctx context.Context, productID uuid.UUID) ([]*productmedia.ImageAsset, error) {
	query := `
		SELECT id, product_id, url, urls, alt_text, created_at
		FROM product_image
		WHERE product_id = $1
		ORDER BY created_at, id`

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, r.handlePostgresError("list image assets", err)
	}
	defer rows.Close()

	var assets []*productmedia.ImageAsset
	for rows.Next() {
		var asset productmedia.ImageAsset
		var urls []byte
		if err := rows.Scan(&asset.ID, &asset.ProductID, &asset.URL, &urls, &asset.AltText, &asset.CreatedAt); err != nil {
			return nil, r.handlePostgresError("scan image asset", err)
		}
		if len(urls) > 0 {
			if err := json.Unmarshal(urls, &asset.URLs); err != nil {
				return nil, fmt.Errorf("unmarshal url map: %w", err)
			}
		}
		assets = append(assets, &asset)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list image assets", err)
	}

	return assets, nil
}

func (r *Repository) DeleteImageAssets(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	query := `DELETE FROM product_image WHERE id = ANY($1)`
	if _, err := r.db.Exec(ctx, query, ids); err != nil {
		return r.handlePostgresError("delete image assets", err)
	}

	return nil
}

// Product operations (create-path compensation only)

func (r *Repository) CreateProduct(ctx context.Context, product *productmedia.Product) error {
	query := `INSERT INTO product (id, name, created_at) VALUES ($1, $2, $3)`

	if _, err := r.db.Exec(ctx, query, product.ID, product.Name, product.CreatedAt); err != nil {
		return r.handlePostgresError("create product", err)
	}

	return nil
}

// DeleteProduct hard-deletes the row; the compensating delete must leave no
// trace of the half-created product.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM product WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return r.handlePostgresError("delete product", err)
	}
	if tag.RowsAffected() == 0 {
		return productmedia.ErrProductNotFound
	}

	return nil
}
