// Package formdata builds multipart/form-data payloads from nested values.
package formdata

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/textproto"
	"reflect"
	"regexp"
	"sort"
	"strconv"
)

// File is a binary value appended to a form with its filename
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type field struct {
	name  string
	value string
	file  *File
}

// Form is an ordered multipart form. The zero value is not usable; call New.
type Form struct {
	fields   []field
	boundary string
}

// New creates an empty form with a random boundary
func New() *Form {
	return &Form{boundary: multipart.NewWriter(io.Discard).Boundary()}
}

// Add appends a text field
func (f *Form) Add(name, value string) {
	f.fields = append(f.fields, field{name: name, value: value})
}

// Set replaces every field called name with a single text field
func (f *Form) Set(name, value string) {
	f.Delete(name)
	f.Add(name, value)
}

// Delete removes every field called name
func (f *Form) Delete(name string) {
	kept := f.fields[:0]
	for _, fld := range f.fields {
		if fld.name != name {
			kept = append(kept, fld)
		}
	}
	f.fields = kept
}

// AddFile appends a file field
func (f *Form) AddFile(name string, file *File) {
	f.fields = append(f.fields, field{name: name, file: file})
}

// Get returns the first text value for name
func (f *Form) Get(name string) (string, bool) {
	for _, fld := range f.fields {
		if fld.name == name && fld.file == nil {
			return fld.value, true
		}
	}
	return "", false
}

// File returns the first file stored under name
func (f *Form) File(name string) (*File, bool) {
	for _, fld := range f.fields {
		if fld.name == name && fld.file != nil {
			return fld.file, true
		}
	}
	return nil, false
}

// Names returns the field names in insertion order
func (f *Form) Names() []string {
	names := make([]string, 0, len(f.fields))
	for _, fld := range f.fields {
		names = append(names, fld.name)
	}
	return names
}

// Len returns the number of fields
func (f *Form) Len() int {
	return len(f.fields)
}

// IsEmpty reports whether the form has no fields
func (f *Form) IsEmpty() bool {
	return len(f.fields) == 0
}

// Boundary returns the multipart boundary used by Encode
func (f *Form) Boundary() string {
	return f.boundary
}

// ContentType returns the Content-Type header value for the encoded form
func (f *Form) ContentType() string {
	return "multipart/form-data; boundary=" + f.boundary
}

// Encode writes the form as a multipart body
func (f *Form) Encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.SetBoundary(f.boundary); err != nil {
		return nil, "", fmt.Errorf("failed to set boundary: %w", err)
	}

	for _, fld := range f.fields {
		if fld.file == nil {
			if err := w.WriteField(fld.name, fld.value); err != nil {
				return nil, "", fmt.Errorf("failed to write field %s: %w", fld.name, err)
			}
			continue
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, fld.name, fld.file.Name))
		ct := fld.file.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)

		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create part %s: %w", fld.name, err)
		}
		if _, err := part.Write(fld.file.Data); err != nil {
			return nil, "", fmt.Errorf("failed to write part %s: %w", fld.name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// snapshotter is implemented by models that expose their attributes
type snapshotter interface {
	Snapshot() map[string]any
}

var dataURIRegexp = regexp.MustCompile(`^data:(\w)*/(\w)*;base64,`)

// ToMultipart flattens data into a form. Nested maps and slices become
// name[key][sub] paths. nil values, NaN, empty strings, base64 data URIs and
// keys listed in exclude are skipped. Map keys are visited in sorted order.
func ToMultipart(data map[string]any, exclude ...string) *Form {
	form := New()
	skip := make(map[string]bool, len(exclude))
	for _, k := range exclude {
		skip[k] = true
	}
	flatten(form, data, nil, skip)
	return form
}

func flatten(form *Form, value map[string]any, keys []string, skip map[string]bool) {
	names := make([]string, 0, len(value))
	for k := range value {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, key := range names {
		if skip[key] {
			continue
		}
		appendValue(form, value[key], append(keys[:len(keys):len(keys)], key), skip)
	}
}

func appendValue(form *Form, v any, path []string, skip map[string]bool) {
	name := fieldName(path)

	switch t := v.(type) {
	case nil:
		return
	case File:
		form.AddFile(name, &t)
		return
	case *File:
		if t != nil {
			form.AddFile(name, t)
		}
		return
	case map[string]any:
		flatten(form, t, path, skip)
		return
	case snapshotter:
		if rv := reflect.ValueOf(t); rv.Kind() == reflect.Pointer && rv.IsNil() {
			return
		}
		flatten(form, t.Snapshot(), path, skip)
		return
	case []any:
		for i, item := range t {
			appendValue(form, item, append(path[:len(path):len(path)], strconv.Itoa(i)), skip)
		}
		return
	case string:
		if t == "" || dataURIRegexp.MatchString(t) {
			return
		}
		form.Add(name, t)
		return
	case float64:
		if math.IsNaN(t) {
			return
		}
	case float32:
		if math.IsNaN(float64(t)) {
			return
		}
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return
		}
		appendValue(form, rv.Elem().Interface(), path, skip)
		return
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		m := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			m[iter.Key().String()] = iter.Value().Interface()
		}
		flatten(form, m, path, skip)
		return
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			form.AddFile(name, &File{Name: path[len(path)-1], Data: rv.Bytes()})
			return
		}
		for i := 0; i < rv.Len(); i++ {
			appendValue(form, rv.Index(i).Interface(), append(path[:len(path):len(path)], strconv.Itoa(i)), skip)
		}
		return
	}

	form.Add(name, fmt.Sprint(v))
}

// fieldName renders ["a", "b", "c"] as a[b][c]
func fieldName(path []string) string {
	var buf bytes.Buffer
	for i, k := range path {
		if i == 0 {
			buf.WriteString(k)
			continue
		}
		buf.WriteByte('[')
		buf.WriteString(k)
		buf.WriteByte(']')
	}
	return buf.String()
}
