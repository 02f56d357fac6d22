package model

import "fmt"

// Page is a list response split into records and pagination metadata
type Page struct {
	Records []map[string]any
	// Meta holds current_page, last_page, per_page and total when present
	Meta map[string]any
}

// Normalizer turns decoded list response data into a Page
type Normalizer func(data any) (Page, error)

// DefaultNormalizer accepts a bare array of records, or an object with the
// records under "data" and pagination either beside them or under "meta".
// nil data is an empty page.
func DefaultNormalizer(data any) (Page, error) {
	switch v := data.(type) {
	case nil:
		return Page{}, nil
	case []any:
		records, err := toRecords(v)
		return Page{Records: records}, err
	case []map[string]any:
		return Page{Records: v}, nil
	case map[string]any:
		page := Page{Meta: map[string]any{}}
		for k, item := range v {
			if k != "data" && k != "meta" {
				page.Meta[k] = item
			}
		}
		if meta, ok := getMap(v, "meta"); ok {
			for k, item := range meta {
				page.Meta[k] = item
			}
		}
		switch list := v["data"].(type) {
		case nil:
		case []any:
			records, err := toRecords(list)
			if err != nil {
				return Page{}, err
			}
			page.Records = records
		default:
			return Page{}, fmt.Errorf("%w: data is %T", ErrInvalidPayload, list)
		}
		return page, nil
	}
	return Page{}, fmt.Errorf("%w: %T", ErrInvalidPayload, data)
}

func toRecords(list []any) ([]map[string]any, error) {
	records := make([]map[string]any, 0, len(list))
	for i, item := range list {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: record %d is %T", ErrInvalidPayload, i, item)
		}
		records = append(records, rec)
	}
	return records, nil
}
