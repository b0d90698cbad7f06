package service

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"time"

	"github.com/noah-isme/lms-course-core/internal/models"
)

type fakeContentStore struct {
	items      map[int64]*models.ContentRecord
	nextID     int64
	attributes *fakeAttributeStore
	terms      *fakeTermStore
	failDelete map[int64]error

	updates   int
	touches   int
	reassigns int

	listIDs    []int64
	listTotal  int
	listCalls  int
	lastFilter models.CourseFilter
	deletedIDs []int64
}

func newFakeContentStore(attributes *fakeAttributeStore, terms *fakeTermStore) *fakeContentStore {
	return &fakeContentStore{items: make(map[int64]*models.ContentRecord), nextID: 100, attributes: attributes, terms: terms}
}

func (f *fakeContentStore) Create(ctx context.Context, record *models.ContentRecord) (int64, error) {
	f.nextID++
	cp := *record
	cp.ID = f.nextID
	f.items[cp.ID] = &cp
	return cp.ID, nil
}

func (f *fakeContentStore) FindByID(ctx context.Context, id int64) (*models.ContentRecord, error) {
	record, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *record
	return &cp, nil
}

func (f *fakeContentStore) Update(ctx context.Context, record *models.ContentRecord) error {
	f.updates++
	cp := *record
	f.items[cp.ID] = &cp
	return nil
}

func (f *fakeContentStore) Touch(ctx context.Context, id int64, modifiedAt time.Time) error {
	f.touches++
	if record, ok := f.items[id]; ok {
		record.ModifiedAt = modifiedAt
	}
	return nil
}

func (f *fakeContentStore) UpdateStatus(ctx context.Context, id int64, status string, modifiedAt time.Time) error {
	if record, ok := f.items[id]; ok {
		record.Status = status
		record.ModifiedAt = modifiedAt
	}
	return nil
}

func (f *fakeContentStore) Delete(ctx context.Context, id int64) error {
	if err := f.failDelete[id]; err != nil {
		return err
	}
	delete(f.items, id)
	delete(f.attributes.values, id)
	delete(f.terms.relations, id)
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func (f *fakeContentStore) ReassignAuthorByCourse(ctx context.Context, courseID, authorID int64) (int64, error) {
	f.reassigns++
	children, _ := f.ListByCourse(ctx, courseID, models.CurriculumTypes, "")
	parents := make(map[int64]bool, len(children))
	var affected int64
	for _, child := range children {
		parents[child.ID] = true
		f.items[child.ID].AuthorID = authorID
		affected++
	}
	for _, record := range f.items {
		if record.ContentType == models.ContentTypeQuestion && parents[record.ParentID] {
			record.AuthorID = authorID
			affected++
		}
	}
	return affected, nil
}

func (f *fakeContentStore) ListByCourse(ctx context.Context, courseID int64, types []models.ContentType, status string) ([]models.ChildRecord, error) {
	var out []models.ChildRecord
	for _, record := range f.sorted() {
		if f.attributes.values[record.ID][models.AttrCourseID] != strconv.FormatInt(courseID, 10) {
			continue
		}
		if !hasType(types, record.ContentType) || (status != "" && record.Status != status) {
			continue
		}
		out = append(out, toChild(record))
	}
	return out, nil
}

func (f *fakeContentStore) ListByParents(ctx context.Context, parentIDs []int64, types []models.ContentType) ([]models.ChildRecord, error) {
	parents := make(map[int64]bool, len(parentIDs))
	for _, id := range parentIDs {
		parents[id] = true
	}
	var out []models.ChildRecord
	for _, record := range f.sorted() {
		if parents[record.ParentID] && hasType(types, record.ContentType) {
			out = append(out, toChild(record))
		}
	}
	return out, nil
}

func (f *fakeContentStore) ListCourses(ctx context.Context, filter models.CourseFilter) ([]int64, int, error) {
	f.listCalls++
	f.lastFilter = filter
	return f.listIDs, f.listTotal, nil
}

// addChild stores a curriculum record. Questions are linked by parent only.
func (f *fakeContentStore) addChild(courseID int64, record models.ContentRecord) int64 {
	id, _ := f.Create(context.Background(), &record)
	if record.ContentType != models.ContentTypeQuestion {
		f.attributes.set(id, models.AttrCourseID, strconv.FormatInt(courseID, 10))
	}
	return id
}

func (f *fakeContentStore) sorted() []*models.ContentRecord {
	out := make([]*models.ContentRecord, 0, len(f.items))
	for _, record := range f.items {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func hasType(types []models.ContentType, t models.ContentType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func toChild(record *models.ContentRecord) models.ChildRecord {
	return models.ChildRecord{
		ID:          record.ID,
		ParentID:    record.ParentID,
		ContentType: record.ContentType,
		Title:       record.Title,
		Status:      record.Status,
		AuthorID:    record.AuthorID,
		MenuOrder:   record.MenuOrder,
	}
}

type fakeAttributeStore struct {
	values  map[int64]map[string]string
	writes  int
	deletes int
	written []map[string]string
}

func newFakeAttributeStore() *fakeAttributeStore {
	return &fakeAttributeStore{values: make(map[int64]map[string]string)}
}

func (f *fakeAttributeStore) set(id int64, name, value string) {
	if f.values[id] == nil {
		f.values[id] = make(map[string]string)
	}
	f.values[id][name] = value
}

func (f *fakeAttributeStore) GetAll(ctx context.Context, objectID int64) (map[string]string, error) {
	out := make(map[string]string, len(f.values[objectID]))
	for name, value := range f.values[objectID] {
		out[name] = value
	}
	return out, nil
}

func (f *fakeAttributeStore) BulkUpsert(ctx context.Context, objectID int64, values map[string]string) error {
	f.writes++
	f.written = append(f.written, values)
	for name, value := range values {
		f.set(objectID, name, value)
	}
	return nil
}

func (f *fakeAttributeStore) DeleteNames(ctx context.Context, objectID int64, names []string) error {
	f.deletes++
	for _, name := range names {
		delete(f.values[objectID], name)
	}
	return nil
}

func (f *fakeAttributeStore) reset() {
	f.writes = 0
	f.deletes = 0
	f.written = nil
}

type fakeTermStore struct {
	terms     []models.Term
	relations map[int64]map[models.TermKind][]int64
	replaced  map[models.TermKind]int
}

func newFakeTermStore() *fakeTermStore {
	return &fakeTermStore{
		relations: make(map[int64]map[models.TermKind][]int64),
		replaced:  make(map[models.TermKind]int),
	}
}

func (f *fakeTermStore) ListByObject(ctx context.Context, objectID int64, kind models.TermKind) ([]models.Term, error) {
	var out []models.Term
	for _, id := range f.relations[objectID][kind] {
		term := models.Term{ID: id, Kind: kind}
		for _, known := range f.terms {
			if known.ID == id {
				term = known
			}
		}
		out = append(out, term)
	}
	return out, nil
}

func (f *fakeTermStore) Replace(ctx context.Context, objectID int64, kind models.TermKind, termIDs []int64) error {
	f.replaced[kind]++
	if f.relations[objectID] == nil {
		f.relations[objectID] = make(map[models.TermKind][]int64)
	}
	f.relations[objectID][kind] = append([]int64{}, termIDs...)
	return nil
}

func (f *fakeTermStore) FindBySlugs(ctx context.Context, kind models.TermKind, slugs []string) ([]models.Term, error) {
	var out []models.Term
	for _, term := range f.terms {
		if term.Kind != kind {
			continue
		}
		for _, slug := range slugs {
			if term.Slug == slug {
				out = append(out, term)
			}
		}
	}
	return out, nil
}

func (f *fakeTermStore) EnsureSlugs(ctx context.Context, kind models.TermKind, slugs []string) ([]int64, error) {
	ids := make([]int64, 0, len(slugs))
	for _, slug := range slugs {
		found, _ := f.FindBySlugs(ctx, kind, []string{slug})
		if len(found) > 0 {
			ids = append(ids, found[0].ID)
			continue
		}
		term := models.Term{ID: int64(1000 + len(f.terms)), Kind: kind, Slug: slug, Name: slug}
		f.terms = append(f.terms, term)
		ids = append(ids, term.ID)
	}
	return ids, nil
}

func (f *fakeTermStore) resetCounts() {
	f.replaced = make(map[models.TermKind]int)
}
