package validate

import (
	"reflect"
	"regexp"
	"time"
)

var emptyStringRegexp = regexp.MustCompile(`^\s*$`)

// emptier lets a value decide its own emptiness (entities, forms).
type emptier interface {
	IsEmpty() bool
}

// IsEmpty reports whether v counts as empty.
//
// nil and typed nil pointers are empty, strings made only of whitespace are
// empty, as are zero-length slices, arrays and maps and structs without
// fields. Time values are always empty. Functions and every other scalar are
// never empty.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return emptyStringRegexp.MatchString(t)
	case time.Time, *time.Time:
		return true
	case emptier:
		return isNilPointer(v) || t.IsEmpty()
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Func:
		return rv.IsNil()
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return IsEmpty(rv.Elem().Interface())
	case reflect.Slice, reflect.Map:
		return rv.IsNil() || rv.Len() == 0
	case reflect.Array:
		return rv.Len() == 0
	case reflect.Struct:
		return rv.NumField() == 0
	case reflect.String:
		return emptyStringRegexp.MatchString(rv.String())
	}
	return false
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
