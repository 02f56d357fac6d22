package validate

import (
	"fmt"
	"sort"
	"strings"
)

// Error is a single failed validator for a field
type Error struct {
	Field      string
	Value      any
	Rule       string
	Message    string
	RawRule    map[string]Options
	RawOptions Options
}

// Result maps field names to their failures. A nil Result means no errors;
// per-field lists are never empty.
type Result map[string][]Error

// Has reports whether field has at least one failure
func (r Result) Has(field string) bool {
	return len(r[field]) > 0
}

// Messages returns the failure messages for field in evaluation order
func (r Result) Messages(field string) []string {
	errs := r[field]
	if len(errs) == 0 {
		return nil
	}
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Message)
	}
	return messages
}

// Fields returns the failing field names in sorted order
func (r Result) Fields() []string {
	fields := make([]string, 0, len(r))
	for field := range r {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func (r Result) Error() string {
	if len(r) == 0 {
		return "validation failed"
	}

	var parts []string
	for _, field := range r.Fields() {
		for _, e := range r[field] {
			parts = append(parts, fmt.Sprintf("%s: %s", field, e.Message))
		}
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// prune drops empty per-field lists and collapses an empty result to nil
func prune(r Result) Result {
	out := make(Result, len(r))
	for field, errs := range r {
		if len(errs) > 0 {
			out[field] = errs
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
