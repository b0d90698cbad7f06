package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lms-course-core/internal/models"
)

// TermRepository manages classification terms and their object associations.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository creates a new repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

// ListByObject returns the terms of one kind attached to the object.
func (r *TermRepository) ListByObject(ctx context.Context, objectID int64, kind models.TermKind) ([]models.Term, error) {
	const query = `
SELECT t.id, t.kind, t.slug, t.name, t.parent_id
FROM terms t
JOIN term_relationships tr ON tr.term_id = t.id
WHERE tr.object_id = $1 AND tr.kind = $2
ORDER BY t.id ASC`
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, objectID, string(kind)); err != nil {
		return nil, fmt.Errorf("list object terms: %w", err)
	}
	return terms, nil
}

// Replace swaps the object's association set for one kind within a transaction.
func (r *TermRepository) Replace(ctx context.Context, objectID int64, kind models.TermKind, termIDs []int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace %s terms: %w", kind, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM term_relationships WHERE object_id = $1 AND kind = $2`, objectID, string(kind)); err != nil {
		return fmt.Errorf("clear %s terms: %w", kind, err)
	}

	for _, termID := range termIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO term_relationships (object_id, term_id, kind) VALUES ($1, $2, $3)`, objectID, termID, string(kind)); err != nil {
			return fmt.Errorf("insert %s term: %w", kind, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace %s terms: %w", kind, err)
	}
	return nil
}

// FindBySlugs returns the terms of a kind matching the slugs.
func (r *TermRepository) FindBySlugs(ctx context.Context, kind models.TermKind, slugs []string) ([]models.Term, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	const query = `SELECT id, kind, slug, name, parent_id FROM terms WHERE kind = $1 AND slug = ANY($2) ORDER BY id ASC`
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, string(kind), pq.Array(slugs)); err != nil {
		return nil, fmt.Errorf("find terms by slug: %w", err)
	}
	return terms, nil
}

// EnsureSlugs returns term ids for the slugs, creating missing terms.
func (r *TermRepository) EnsureSlugs(ctx context.Context, kind models.TermKind, slugs []string) ([]int64, error) {
	const query = `INSERT INTO terms (kind, slug, name, parent_id) VALUES ($1, $2, $2, 0)
ON CONFLICT (kind, slug) DO UPDATE SET slug = EXCLUDED.slug
RETURNING id`
	ids := make([]int64, 0, len(slugs))
	for _, slug := range slugs {
		var id int64
		if err := r.db.GetContext(ctx, &id, query, string(kind), slug); err != nil {
			return nil, fmt.Errorf("ensure %s term %s: %w", kind, slug, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

