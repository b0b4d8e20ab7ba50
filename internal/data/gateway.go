package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrUnknownColumn is returned when a filter, order or patch names a column
// the table does not have. No SQL is issued in that case.
var ErrUnknownColumn = errors.New("unknown column")

// Cond is a single equality condition. A nil Value matches NULL.
type Cond struct {
	Column string
	Value  any
}

// Filter is a conjunction of conditions.
type Filter []Cond

// Eq builds a Cond.
func Eq(column string, value any) Cond {
	return Cond{Column: column, Value: value}
}

// ByID is the filter used for single-row updates and deletes.
func ByID(id string) Filter {
	return Filter{Eq("id", id)}
}

// Order is one ORDER BY term.
type Order struct {
	Column    string
	Desc      bool
	NullsLast bool
}

// Asc orders ascending.
func Asc(column string) Order { return Order{Column: column} }

// Desc orders descending.
func Desc(column string) Order { return Order{Column: column, Desc: true} }

// AscNullsLast orders ascending with NULLs after every value.
func AscNullsLast(column string) Order { return Order{Column: column, NullsLast: true} }

// Patch maps column names to new values.
type Patch map[string]any

// Table is a gateway scoped to one table whose rows scan into T.
type Table[T any] struct {
	db      *sqlx.DB
	name    string
	columns []string
	known   map[string]bool
}

// NewTable creates a gateway for the named table. Columns come from the db
// tags of T.
func NewTable[T any](db *sqlx.DB, name string) *Table[T] {
	cols := Columns[T]()
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c] = true
	}
	return &Table[T]{db: db, name: name, columns: cols, known: known}
}

// Columns lists the db tags of T's top-level fields in declaration order.
func Columns[T any]() []string {
	var zero T
	rt := reflect.TypeOf(zero)
	var cols []string
	for i := 0; i < rt.NumField(); i++ {
		tag := rt.Field(i).Tag.Get("db")
		if tag == "" || tag == "-" {
			continue
		}
		cols = append(cols, tag)
	}
	return cols
}

// Name returns the table name.
func (t *Table[T]) Name() string { return t.name }

// HasColumn reports whether the table has the column.
func (t *Table[T]) HasColumn(column string) bool { return t.known[column] }

// Select returns all rows matching filter in the given order.
func (t *Table[T]) Select(ctx context.Context, filter Filter, order ...Order) ([]T, error) {
	query, args, err := t.selectQuery(filter, order, 0)
	if err != nil {
		return nil, err
	}
	var rows []T
	if err := t.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select from %s: %w", t.name, err)
	}
	return rows, nil
}

// First returns the first matching row, or nil when nothing matches.
func (t *Table[T]) First(ctx context.Context, filter Filter, order ...Order) (*T, error) {
	query, args, err := t.selectQuery(filter, order, 1)
	if err != nil {
		return nil, err
	}
	var row T
	if err := t.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found is not an error
		}
		return nil, fmt.Errorf("failed to get from %s: %w", t.name, err)
	}
	return &row, nil
}

// Insert writes v, assigning an id and timestamps when they are unset.
func (t *Table[T]) Insert(ctx context.Context, v *T) error {
	return t.insert(ctx, t.db, v)
}

// InsertTx is Insert inside an existing transaction.
func (t *Table[T]) InsertTx(ctx context.Context, tx *sqlx.Tx, v *T) error {
	return t.insert(ctx, tx, v)
}

// Update applies patch to every row matching filter.
func (t *Table[T]) Update(ctx context.Context, filter Filter, patch Patch) (int64, error) {
	if len(patch) == 0 {
		return 0, nil
	}
	keys := make([]string, 0, len(patch))
	for k := range patch {
		if !t.known[k] {
			return 0, fmt.Errorf("%s.%s: %w", t.name, k, ErrUnknownColumn)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sets := make([]string, len(keys))
	args := make([]any, 0, len(keys)+len(filter))
	for i, k := range keys {
		sets[i] = quote(k) + " = ?"
		args = append(args, patch[k])
	}
	where, whereArgs, err := t.where(filter)
	if err != nil {
		return 0, err
	}
	query := "UPDATE " + quote(t.name) + " SET " + strings.Join(sets, ", ") + where
	res, err := t.db.ExecContext(ctx, query, append(args, whereArgs...)...)
	if err != nil {
		return 0, fmt.Errorf("failed to update %s: %w", t.name, err)
	}
	return res.RowsAffected()
}

// Delete removes every row matching filter. An empty filter is refused.
func (t *Table[T]) Delete(ctx context.Context, filter Filter) (int64, error) {
	if len(filter) == 0 {
		return 0, fmt.Errorf("refusing to delete from %s without a filter", t.name)
	}
	where, args, err := t.where(filter)
	if err != nil {
		return 0, err
	}
	res, err := t.db.ExecContext(ctx, "DELETE FROM "+quote(t.name)+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete from %s: %w", t.name, err)
	}
	return res.RowsAffected()
}

// Count returns the number of rows matching filter.
func (t *Table[T]) Count(ctx context.Context, filter Filter) (int, error) {
	where, args, err := t.where(filter)
	if err != nil {
		return 0, err
	}
	var n int
	if err := t.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM "+quote(t.name)+where, args...); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", t.name, err)
	}
	return n, nil
}

func (t *Table[T]) insert(ctx context.Context, ext sqlx.ExtContext, v *T) error {
	stamp(v, time.Now().UTC())

	names := make([]string, len(t.columns))
	binds := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = quote(c)
		binds[i] = ":" + c
	}
	query := "INSERT INTO " + quote(t.name) + " (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(binds, ", ") + ")"
	if _, err := sqlx.NamedExecContext(ctx, ext, query, v); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", t.name, err)
	}
	return nil
}

func (t *Table[T]) selectQuery(filter Filter, order []Order, limit int) (string, []any, error) {
	cols := make([]string, len(t.columns))
	for i, c := range t.columns {
		cols[i] = quote(c)
	}
	where, args, err := t.where(filter)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT " + strings.Join(cols, ", ") + " FROM " + quote(t.name) + where)
	if len(order) > 0 {
		terms := make([]string, 0, len(order))
		for _, o := range order {
			if !t.known[o.Column] {
				return "", nil, fmt.Errorf("%s.%s: %w", t.name, o.Column, ErrUnknownColumn)
			}
			col := quote(o.Column)
			if o.NullsLast {
				terms = append(terms, col+" IS NULL")
			}
			if o.Desc {
				col += " DESC"
			}
			terms = append(terms, col)
		}
		b.WriteString(" ORDER BY " + strings.Join(terms, ", "))
	}
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", limit)
	}
	return b.String(), args, nil
}

func (t *Table[T]) where(filter Filter) (string, []any, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}
	conds := make([]string, len(filter))
	args := make([]any, 0, len(filter))
	for i, c := range filter {
		if !t.known[c.Column] {
			return "", nil, fmt.Errorf("%s.%s: %w", t.name, c.Column, ErrUnknownColumn)
		}
		if c.Value == nil {
			conds[i] = quote(c.Column) + " IS NULL"
			continue
		}
		conds[i] = quote(c.Column) + " = ?"
		args = append(args, c.Value)
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// stamp fills the conventional id and timestamp fields when they are zero.
func stamp(v any, now time.Time) {
	rv := reflect.ValueOf(v).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		f := rv.Field(i)
		switch rt.Field(i).Tag.Get("db") {
		case "id":
			if f.Kind() == reflect.String && f.String() == "" {
				f.SetString(uuid.NewString())
			}
		case "created_at", "updated_at":
			if ts, ok := f.Interface().(time.Time); ok && ts.IsZero() {
				f.Set(reflect.ValueOf(now))
			}
		}
	}
}

func quote(ident string) string {
	return "`" + ident + "`"
}
