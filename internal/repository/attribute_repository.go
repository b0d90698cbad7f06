package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lms-course-core/internal/models"
)

// AttributeRepository persists named values keyed by (object id, name).
type AttributeRepository struct {
	db *sqlx.DB
}

// NewAttributeRepository constructs the repository.
func NewAttributeRepository(db *sqlx.DB) *AttributeRepository {
	return &AttributeRepository{db: db}
}

// GetAll returns every attribute of the object.
func (r *AttributeRepository) GetAll(ctx context.Context, objectID int64) (map[string]string, error) {
	const query = `SELECT object_id, name, value FROM content_attributes WHERE object_id = $1 ORDER BY name ASC`
	var rows []models.Attribute
	if err := r.db.SelectContext(ctx, &rows, query, objectID); err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Name] = row.Value
	}
	return values, nil
}

// BulkUpsert writes the provided values within a transaction.
func (r *AttributeRepository) BulkUpsert(ctx context.Context, objectID int64, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attribute tx: %w", err)
	}
	const query = `INSERT INTO content_attributes (object_id, name, value)
VALUES (:object_id, :name, :value)
ON CONFLICT (object_id, name) DO UPDATE SET value = EXCLUDED.value`
	for _, name := range names {
		row := models.Attribute{ObjectID: objectID, Name: name, Value: values[name]}
		if _, err := tx.NamedExecContext(ctx, query, row); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("upsert attribute %s: %w", name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attribute tx: %w", err)
	}
	return nil
}

// DeleteNames removes the named attributes of the object.
func (r *AttributeRepository) DeleteNames(ctx context.Context, objectID int64, names []string) error {
	if len(names) == 0 {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM content_attributes WHERE object_id = $1 AND name = ANY($2)`, objectID, pq.Array(names)); err != nil {
		return fmt.Errorf("delete attributes: %w", err)
	}
	return nil
}

