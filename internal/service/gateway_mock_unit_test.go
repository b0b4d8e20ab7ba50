//go:build unit

package service

import (
	"context"
	"reflect"

	"github.com/google/uuid"

	"valour-site/internal/data"
)

// mockGateway is an in-memory Gateway that records writes.
type mockGateway[T any] struct {
	rows      []T
	inserted  []T
	patches   []data.Patch
	deletes   int
	selectErr error
	insertErr error
	updateErr error
	deleteErr error
}

func (m *mockGateway[T]) Select(ctx context.Context, filter data.Filter, order ...data.Order) ([]T, error) {
	if m.selectErr != nil {
		return nil, m.selectErr
	}
	var out []T
	for _, r := range m.rows {
		if matches(&r, filter) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockGateway[T]) First(ctx context.Context, filter data.Filter, order ...data.Order) (*T, error) {
	rows, err := m.Select(ctx, filter, order...)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (m *mockGateway[T]) Insert(ctx context.Context, v *T) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if fv, ok := fieldByColumn(reflect.ValueOf(v).Elem(), "id"); ok && fv.String() == "" {
		fv.SetString(uuid.NewString())
	}
	m.inserted = append(m.inserted, *v)
	m.rows = append(m.rows, *v)
	return nil
}

func (m *mockGateway[T]) Update(ctx context.Context, filter data.Filter, patch data.Patch) (int64, error) {
	if m.updateErr != nil {
		return 0, m.updateErr
	}
	m.patches = append(m.patches, patch)
	var n int64
	for i := range m.rows {
		if !matches(&m.rows[i], filter) {
			continue
		}
		rv := reflect.ValueOf(&m.rows[i]).Elem()
		for col, val := range patch {
			fv, ok := fieldByColumn(rv, col)
			if !ok {
				continue
			}
			if val == nil {
				fv.Set(reflect.Zero(fv.Type()))
				continue
			}
			v := reflect.ValueOf(val)
			if v.Type().AssignableTo(fv.Type()) {
				fv.Set(v)
			} else if v.Type().ConvertibleTo(fv.Type()) {
				fv.Set(v.Convert(fv.Type()))
			}
		}
		n++
	}
	return n, nil
}

func (m *mockGateway[T]) Delete(ctx context.Context, filter data.Filter) (int64, error) {
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	m.deletes++
	kept := m.rows[:0]
	var n int64
	for _, r := range m.rows {
		if matches(&r, filter) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return n, nil
}

func (m *mockGateway[T]) HasColumn(column string) bool {
	for _, c := range data.Columns[T]() {
		if c == column {
			return true
		}
	}
	return false
}

func matches(row any, filter data.Filter) bool {
	rv := reflect.ValueOf(row).Elem()
	for _, c := range filter {
		fv, ok := fieldByColumn(rv, c.Column)
		if !ok {
			return false
		}
		if fv.Kind() == reflect.Pointer {
			if c.Value == nil {
				if !fv.IsNil() {
					return false
				}
				continue
			}
			if fv.IsNil() {
				return false
			}
			fv = fv.Elem()
		} else if c.Value == nil {
			return false
		}
		if !reflect.DeepEqual(fv.Interface(), c.Value) {
			return false
		}
	}
	return true
}
