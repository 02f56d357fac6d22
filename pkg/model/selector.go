package model

import (
	"reflect"
	"sort"
)

// Selector picks one item out of a collection
type Selector interface {
	pick(items []*Entity) *Entity
}

type selectorFunc func(items []*Entity) *Entity

func (f selectorFunc) pick(items []*Entity) *Entity { return f(items) }

// ByIndex selects the item at index
func ByIndex(index int) Selector {
	return selectorFunc(func(items []*Entity) *Entity {
		if index < 0 || index >= len(items) {
			return nil
		}
		return items[index]
	})
}

// ByField selects the first item whose field equals value. Numbers compare
// by value regardless of their Go type.
func ByField(field string, value any) Selector {
	return selectorFunc(func(items []*Entity) *Entity {
		for _, e := range items {
			if e == nil {
				continue
			}
			if v, ok := e.Get(field); ok && sameValue(v, value) {
				return e
			}
		}
		return nil
	})
}

// ByFunc selects the first item matching fn
func ByFunc(fn func(*Entity) bool) Selector {
	return selectorFunc(func(items []*Entity) *Entity {
		for _, e := range items {
			if fn(e) {
				return e
			}
		}
		return nil
	})
}

// ByPattern selects the first item whose fields equal the pattern values.
// Without matchAny every key must match; with it one key is enough.
func ByPattern(pattern map[string]any, matchAny bool) Selector {
	keys := make([]string, 0, len(pattern))
	for k := range pattern {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	return selectorFunc(func(items []*Entity) *Entity {
		for _, e := range items {
			if e == nil {
				continue
			}
			matched := !matchAny
			for _, k := range keys {
				v, _ := e.Get(k)
				eq := sameValue(v, pattern[k])
				if matchAny && eq {
					matched = true
					break
				}
				if !matchAny && !eq {
					matched = false
					break
				}
			}
			if matched {
				return e
			}
		}
		return nil
	})
}

// Target returns the item chosen by sel, or nil
func (c *Collection) Target(sel Selector) *Entity {
	if sel == nil {
		return nil
	}
	return sel.pick(c.Items())
}

// FindBy returns the first item whose field equals value
func (c *Collection) FindBy(field string, value any) *Entity {
	return c.Target(ByField(field, value))
}

func sameValue(a, b any) bool {
	if _, isStr := a.(string); !isStr {
		if af, ok := toFloat(a); ok {
			if _, isStr := b.(string); !isStr {
				if bf, ok := toFloat(b); ok {
					return af == bf
				}
			}
		}
	}
	return reflect.DeepEqual(a, b)
}
