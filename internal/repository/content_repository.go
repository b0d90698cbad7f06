package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/lms-course-core/internal/models"
)

const contentColumns = `id, content_type, title, slug, body, excerpt, status, parent_id, author_id, menu_order, password, comments_open, created_at, modified_at`

// likeEscaper makes LIKE treat wildcard characters in user input literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

const childColumns = `r.id, r.parent_id, r.content_type, r.title, r.status, r.author_id, r.menu_order`

// ContentRepository manages persistence for generic content records.
type ContentRepository struct {
	db *sqlx.DB
}

// NewContentRepository constructs a new content repository.
func NewContentRepository(db *sqlx.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// Create inserts a content record and returns its generated id.
func (r *ContentRepository) Create(ctx context.Context, record *models.ContentRecord) (int64, error) {
	const query = `INSERT INTO content_records (content_type, title, slug, body, excerpt, status, parent_id, author_id, menu_order, password, comments_open, created_at, modified_at)
VALUES (:content_type, :title, :slug, :body, :excerpt, :status, :parent_id, :author_id, :menu_order, :password, :comments_open, :created_at, :modified_at)
RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, query, record)
	if err != nil {
		return 0, fmt.Errorf("create content record: %w", err)
	}
	defer rows.Close()

	var id int64
	if rows.Next() {
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("scan content record id: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("create content record: %w", err)
	}
	record.ID = id
	return id, nil
}

// FindByID returns a content record by id.
func (r *ContentRepository) FindByID(ctx context.Context, id int64) (*models.ContentRecord, error) {
	query := `SELECT ` + contentColumns + ` FROM content_records WHERE id = $1`
	var record models.ContentRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		return nil, err
	}
	return &record, nil
}

// Update rewrites every primary column of the record.
func (r *ContentRepository) Update(ctx context.Context, record *models.ContentRecord) error {
	const query = `UPDATE content_records SET title = :title, slug = :slug, body = :body, excerpt = :excerpt, status = :status,
parent_id = :parent_id, author_id = :author_id, menu_order = :menu_order, password = :password,
comments_open = :comments_open, created_at = :created_at, modified_at = :modified_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("update content record: %w", err)
	}
	return nil
}

// Touch only bumps the modified timestamp.
func (r *ContentRepository) Touch(ctx context.Context, id int64, modifiedAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE content_records SET modified_at = $1 WHERE id = $2`, modifiedAt, id); err != nil {
		return fmt.Errorf("touch content record: %w", err)
	}
	return nil
}

// UpdateStatus flips the status of a record.
func (r *ContentRepository) UpdateStatus(ctx context.Context, id int64, status string, modifiedAt time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE content_records SET status = $1, modified_at = $2 WHERE id = $3`, status, modifiedAt, id); err != nil {
		return fmt.Errorf("update content status: %w", err)
	}
	return nil
}

// Delete permanently removes a record together with its attributes and term
// associations in one transaction. Deleting a missing record is not an error.
func (r *ContentRepository) Delete(ctx context.Context, id int64) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete content record: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM term_relationships WHERE object_id = $1`, id); err != nil {
		return fmt.Errorf("delete object terms: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM content_attributes WHERE object_id = $1`, id); err != nil {
		return fmt.Errorf("delete object attributes: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM content_records WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete content record: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete content record: %w", err)
	}
	return nil
}

// ReassignAuthorByCourse sets the author of every record associated with the
// course, and of every question under those records, in one statement.
func (r *ContentRepository) ReassignAuthorByCourse(ctx context.Context, courseID, authorID int64) (int64, error) {
	const query = `UPDATE content_records SET author_id = $1
WHERE id IN (SELECT object_id FROM content_attributes WHERE name = $2 AND value = $3)
   OR (content_type = $4 AND parent_id IN (SELECT object_id FROM content_attributes WHERE name = $2 AND value = $3))`
	res, err := r.db.ExecContext(ctx, query, authorID, models.AttrCourseID, strconv.FormatInt(courseID, 10), string(models.ContentTypeQuestion))
	if err != nil {
		return 0, fmt.Errorf("reassign course children author: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reassign course children author: %w", err)
	}
	return affected, nil
}

// ListByCourse returns child records whose course association equals courseID,
// in id order. An empty status matches every status.
func (r *ContentRepository) ListByCourse(ctx context.Context, courseID int64, types []models.ContentType, status string) ([]models.ChildRecord, error) {
	query := `SELECT ` + childColumns + `
FROM content_records r
JOIN content_attributes a ON a.object_id = r.id AND a.name = $1
WHERE a.value = $2 AND r.content_type = ANY($3)`
	args := []interface{}{models.AttrCourseID, strconv.FormatInt(courseID, 10), pq.Array(typeStrings(types))}
	if status != "" {
		query += ` AND r.status = $4`
		args = append(args, status)
	}
	query += ` ORDER BY r.id ASC`

	var records []models.ChildRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list course children: %w", err)
	}
	return records, nil
}

// ListByParents returns records of the given types whose parent is in parentIDs.
func (r *ContentRepository) ListByParents(ctx context.Context, parentIDs []int64, types []models.ContentType) ([]models.ChildRecord, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + childColumns + ` FROM content_records r WHERE r.parent_id = ANY($1) AND r.content_type = ANY($2) ORDER BY r.id ASC`
	var records []models.ChildRecord
	if err := r.db.SelectContext(ctx, &records, query, pq.Array(parentIDs), pq.Array(typeStrings(types))); err != nil {
		return nil, fmt.Errorf("list records by parent: %w", err)
	}
	return records, nil
}

// ListCourses returns course ids matching the filter plus the total match count.
func (r *ContentRepository) ListCourses(ctx context.Context, filter models.CourseFilter) ([]int64, int, error) {
	base := "FROM content_records r WHERE r.content_type = $1"
	args := []interface{}{string(models.ContentTypeCourse)}
	var conditions []string

	if len(filter.Statuses) > 0 {
		conditions = append(conditions, fmt.Sprintf("r.status = ANY($%d)", len(args)+1))
		args = append(args, pq.Array(filter.Statuses))
	}
	if filter.AuthorID > 0 {
		conditions = append(conditions, fmt.Sprintf("r.author_id = $%d", len(args)+1))
		args = append(args, filter.AuthorID)
	}
	if filter.ParentID != nil {
		conditions = append(conditions, fmt.Sprintf("r.parent_id = $%d", len(args)+1))
		args = append(args, *filter.ParentID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(r.title) LIKE $%d ESCAPE '\\' OR LOWER(r.excerpt) LIKE $%d ESCAPE '\\')", len(args)+1, len(args)+1))
		args = append(args, "%"+likeEscaper.Replace(strings.ToLower(filter.Search))+"%")
	}
	for _, group := range filter.TermGroups {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM term_relationships tr WHERE tr.object_id = r.id AND tr.term_id = ANY($%d))", len(args)+1))
		args = append(args, pq.Array(group))
	}
	if len(filter.ExcludeTermIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("NOT EXISTS (SELECT 1 FROM term_relationships tr WHERE tr.object_id = r.id AND tr.term_id = ANY($%d))", len(args)+1))
		args = append(args, pq.Array(filter.ExcludeTermIDs))
	}
	for _, match := range filter.AttributeMatches {
		conditions = append(conditions, fmt.Sprintf("EXISTS (SELECT 1 FROM content_attributes ca WHERE ca.object_id = r.id AND ca.name = $%d AND ca.value = $%d)", len(args)+1, len(args)+2))
		args = append(args, match.Name, match.Value)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"date":       "r.created_at",
		"modified":   "r.modified_at",
		"title":      "r.title",
		"menu_order": "r.menu_order",
		"price":      "COALESCE((SELECT NULLIF(pa.value, '')::numeric FROM content_attributes pa WHERE pa.object_id = r.id AND pa.name = 'price'), 0)",
	}
	sortExpr, ok := allowedSorts[filter.SortBy]
	if !ok {
		sortExpr = allowedSorts["date"]
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT r.id %s ORDER BY %s %s, r.id ASC LIMIT %d OFFSET %d", base, sortExpr, order, size, offset)
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return ids, total, nil
}

func typeStrings(types []models.ContentType) []string {
	out := make([]string, len(types))
	for i, t := range types {
		out[i] = string(t)
	}
	return out
}
