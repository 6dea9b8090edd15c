package querybuilder

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

type modelLayout struct {
	columns []string
	fields  []int
}

var layouts sync.Map // reflect.Type -> modelLayout

// InsertModel renders a single-row INSERT from the exported db-tagged fields
// of model, followed by suffix (ON CONFLICT, RETURNING).
func InsertModel(table string, model any, suffix string) (string, []any, error) {
	if strings.TrimSpace(table) == "" {
		return "", nil, fmt.Errorf("insert table is required")
	}
	value := reflect.ValueOf(model)
	for value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return "", nil, fmt.Errorf("model cannot be nil")
		}
		value = value.Elem()
	}
	if value.Kind() != reflect.Struct {
		return "", nil, fmt.Errorf("model must be struct, got %s", value.Kind())
	}

	layout, err := layoutOf(value.Type())
	if err != nil {
		return "", nil, err
	}

	var b binder
	placeholders := make([]string, len(layout.fields))
	for i, idx := range layout.fields {
		placeholders[i] = b.bind(value.Field(idx).Interface())
	}

	query := "INSERT INTO " + table +
		" (" + strings.Join(layout.columns, ", ") + ")" +
		" VALUES (" + strings.Join(placeholders, ", ") + ")"
	if suffix = strings.TrimSpace(suffix); suffix != "" {
		query += " " + suffix
	}
	return query, b.args, nil
}

func layoutOf(typ reflect.Type) (modelLayout, error) {
	if cached, ok := layouts.Load(typ); ok {
		return cached.(modelLayout), nil
	}

	var layout modelLayout
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		col, _, _ := strings.Cut(field.Tag.Get("db"), ",")
		col = strings.TrimSpace(col)
		if col == "" || col == "-" {
			continue
		}
		layout.columns = append(layout.columns, col)
		layout.fields = append(layout.fields, i)
	}
	if len(layout.columns) == 0 {
		return modelLayout{}, fmt.Errorf("model %s has no db columns", typ)
	}

	layouts.Store(typ, layout)
	return layout, nil
}
