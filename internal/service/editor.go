package service

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"time"

	"valour-site/internal/cache"
	"valour-site/internal/data"
	"valour-site/internal/logger"
	"valour-site/internal/richtext"
)

// PublicCachePrefix namespaces cached public reads. Any content write drops them.
const PublicCachePrefix = "public:"

var (
	// ErrNotCreatable is returned when inserting into a singleton or seeded collection.
	ErrNotCreatable = errors.New("records of this kind cannot be created")
	// ErrNotDeletable is returned when deleting from a singleton or seeded collection.
	ErrNotDeletable = errors.New("records of this kind cannot be deleted")
)

// Gateway is the table-scoped data access an Editor needs. *data.Table
// satisfies it.
type Gateway[T any] interface {
	Select(ctx context.Context, filter data.Filter, order ...data.Order) ([]T, error)
	First(ctx context.Context, filter data.Filter, order ...data.Order) (*T, error)
	Insert(ctx context.Context, v *T) error
	Update(ctx context.Context, filter data.Filter, patch data.Patch) (int64, error)
	Delete(ctx context.Context, filter data.Filter) (int64, error)
	HasColumn(column string) bool
}

// Schema describes how one entity is listed, edited and validated.
type Schema[T any] struct {
	Name        string // URL segment under /admin
	Title       string
	Singular    string
	Fields      []Field
	ListColumns []string
	Order       []data.Order
	Creatable   bool
	Deletable   bool
	// New returns the zero draft for a new record.
	New func() *T
	// Normalize tidies a draft before validation.
	Normalize func(*T)
	// Validate adds rules the struct tags cannot express.
	Validate func(*T, *Result)
	Label    func(*T) string
}

// Field returns the named field.
func (s Schema[T]) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// SaveOutcome reports what Save did.
type SaveOutcome struct {
	Created bool
	ID      string
	Result  Result
}

// FileDiscarder deletes an uploaded file by its public URL.
// *storage.Uploader satisfies it.
type FileDiscarder interface {
	Discard(ctx context.Context, publicURL string) error
}

// Editor is the generic resource editor: list, draft, validate, save and
// delete records of one table.
type Editor[T any] struct {
	schema Schema[T]
	gw     Gateway[T]
	cache  cache.Store
	files  FileDiscarder
	log    logger.Logger
	now    func() time.Time
}

// NewEditor creates an Editor. A nil cache disables invalidation.
func NewEditor[T any](schema Schema[T], gw Gateway[T], c cache.Store, log logger.Logger) *Editor[T] {
	return &Editor[T]{schema: schema, gw: gw, cache: c, log: log, now: time.Now}
}

// WithFiles makes the editor delete uploads that an update replaced or a
// delete orphaned.
func (e *Editor[T]) WithFiles(files FileDiscarder) *Editor[T] {
	e.files = files
	return e
}

// Schema returns the editor's schema.
func (e *Editor[T]) Schema() Schema[T] { return e.schema }

// List returns the collection in schema order.
func (e *Editor[T]) List(ctx context.Context) ([]T, error) {
	rows, err := e.gw.Select(ctx, nil, e.schema.Order...)
	if err != nil {
		e.log.Error(err, "Failed to list "+e.schema.Name)
		return nil, err
	}
	return rows, nil
}

// Singleton returns the first record in schema order, or nil.
func (e *Editor[T]) Singleton(ctx context.Context) (*T, error) {
	return e.gw.First(ctx, nil, e.schema.Order...)
}

// Draft returns an editable copy of the record, or a new draft when id is empty.
func (e *Editor[T]) Draft(ctx context.Context, id string) (*T, error) {
	if id == "" {
		if e.schema.New != nil {
			return e.schema.New(), nil
		}
		return new(T), nil
	}
	row, err := e.gw.First(ctx, data.ByID(id))
	if err != nil {
		e.log.Error(err, "Failed to load "+e.schema.Singular)
		return nil, err
	}
	if row == nil {
		return nil, ErrNotFound
	}
	return row, nil
}

// Decode applies submitted form values to draft.
func (e *Editor[T]) Decode(values url.Values, draft *T) Result {
	return Decode(e.schema.Fields, values, draft)
}

// Validate normalises draft and runs tag and schema rules.
func (e *Editor[T]) Validate(draft *T) Result {
	e.normalize(draft)
	res := Check(draft)
	if e.schema.Validate != nil {
		e.schema.Validate(draft, &res)
	}
	return res
}

func (e *Editor[T]) normalize(draft *T) {
	rv := reflect.ValueOf(draft).Elem()
	for _, f := range e.schema.Fields {
		if f.Kind != KindRichText {
			continue
		}
		if fv, ok := fieldByColumn(rv, f.Name); ok && fv.Kind() == reflect.String {
			fv.SetString(richtext.Sanitize(fv.String()))
		}
	}
	if e.schema.Normalize != nil {
		e.schema.Normalize(draft)
	}
}

// Save validates draft and writes it: an update of the changed fields when
// id is set, an insert otherwise. Invalid drafts never reach the gateway.
// The draft is left as submitted on failure so it can be shown again.
func (e *Editor[T]) Save(ctx context.Context, id string, draft *T) (SaveOutcome, error) {
	res := e.Validate(draft)
	if !res.Valid {
		return SaveOutcome{ID: id, Result: res}, nil
	}

	if id == "" {
		if !e.schema.Creatable {
			return SaveOutcome{Result: res}, ErrNotCreatable
		}
		row := *draft
		if err := e.gw.Insert(ctx, &row); err != nil {
			e.log.Error(err, "Failed to create "+e.schema.Singular)
			return SaveOutcome{Result: res}, err
		}
		e.invalidate(ctx)
		return SaveOutcome{Created: true, ID: idOf(&row), Result: res}, nil
	}

	current, err := e.gw.First(ctx, data.ByID(id))
	if err != nil {
		e.log.Error(err, "Failed to load "+e.schema.Singular)
		return SaveOutcome{ID: id, Result: res}, err
	}
	if current == nil {
		return SaveOutcome{ID: id, Result: res}, ErrNotFound
	}
	patch := e.changes(current, draft)
	if len(patch) > 0 && e.gw.HasColumn("updated_at") {
		patch["updated_at"] = e.now().UTC()
	}
	if _, err := e.gw.Update(ctx, data.ByID(id), patch); err != nil {
		e.log.Error(err, "Failed to update "+e.schema.Singular)
		return SaveOutcome{ID: id, Result: res}, err
	}
	e.invalidate(ctx)

	before, after := Encode(e.fileFields(), current), Encode(e.fileFields(), draft)
	for col, old := range before {
		if old != after[col] {
			e.discard(ctx, col, old)
		}
	}
	return SaveOutcome{ID: id, Result: res}, nil
}

// Delete removes the record.
func (e *Editor[T]) Delete(ctx context.Context, id string) error {
	if !e.schema.Deletable {
		return ErrNotDeletable
	}
	var row *T
	if e.files != nil {
		var err error
		if row, err = e.gw.First(ctx, data.ByID(id)); err != nil {
			e.log.Error(err, "Failed to load "+e.schema.Singular)
			return err
		}
	}
	if _, err := e.gw.Delete(ctx, data.ByID(id)); err != nil {
		e.log.Error(err, "Failed to delete "+e.schema.Singular)
		return err
	}
	e.invalidate(ctx)
	if row != nil {
		for col, url := range Encode(e.fileFields(), row) {
			e.discard(ctx, col, url)
		}
	}
	return nil
}

func (e *Editor[T]) fileFields() []Field {
	var out []Field
	for _, f := range e.schema.Fields {
		if f.Kind == KindImage || f.Kind == KindFile {
			out = append(out, f)
		}
	}
	return out
}

// discard deletes an upload no row of the table references any more. The
// record change has already committed, so failures are only logged.
func (e *Editor[T]) discard(ctx context.Context, col, url string) {
	if e.files == nil || url == "" {
		return
	}
	other, err := e.gw.First(ctx, data.Filter{data.Eq(col, url)})
	if err != nil {
		e.log.Error(err, "Failed to check file references")
		return
	}
	if other != nil {
		return
	}
	if err := e.files.Discard(ctx, url); err != nil {
		e.log.With(map[string]interface{}{"url": url}).Error(err, "Failed to delete replaced file")
	}
}

// changes builds a patch of the schema fields whose values differ.
func (e *Editor[T]) changes(current, draft *T) data.Patch {
	cur := reflect.ValueOf(current).Elem()
	next := reflect.ValueOf(draft).Elem()
	patch := data.Patch{}
	for _, f := range e.schema.Fields {
		a, ok := fieldByColumn(cur, f.Name)
		if !ok {
			continue
		}
		b, _ := fieldByColumn(next, f.Name)
		if !sameValue(a, b) {
			patch[f.Name] = b.Interface()
		}
	}
	return patch
}

func (e *Editor[T]) invalidate(ctx context.Context) {
	if e.cache == nil {
		return
	}
	if err := e.cache.DeletePrefix(ctx, PublicCachePrefix); err != nil {
		e.log.Error(err, "Failed to invalidate public cache")
	}
}

func sameValue(a, b reflect.Value) bool {
	if a.Kind() == reflect.Pointer {
		if a.IsNil() || b.IsNil() {
			return a.IsNil() == b.IsNil()
		}
		return sameValue(a.Elem(), b.Elem())
	}
	if a.Type() == timeType {
		return a.Interface().(time.Time).Equal(b.Interface().(time.Time))
	}
	return reflect.DeepEqual(a.Interface(), b.Interface())
}

// idOf reads the id column of a record.
func idOf(v any) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if fv, ok := fieldByColumn(rv, "id"); ok && fv.Kind() == reflect.String {
		return fv.String()
	}
	return ""
}

// IDOf exposes a record's id to templates and handlers.
func IDOf(v any) string { return idOf(v) }
