// Package tableschema fetches and parses the machine-readable table schema
// a distribution conforms to: ordered typed columns plus a primary key.
package tableschema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DateLayout is the fixed calendar date pattern for date-typed columns.
const DateLayout = "2006-01-02"

// Kind is the closed set of value kinds a column can cast to. Every declared
// datatype maps onto exactly one Kind; unrecognized datatypes degrade to
// KindText and are never an error.
type Kind int

const (
	KindText Kind = iota
	KindDate
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindNumber:
		return "number"
	default:
		return "text"
	}
}

// Cast converts one raw field value according to the kind. KindText is the
// identity; KindDate parses a calendar date; KindNumber parses a float.
func (k Kind) Cast(raw string) (any, error) {
	switch k {
	case KindDate:
		t, err := time.Parse(DateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("parse date %q: %w", raw, err)
		}
		return t, nil
	case KindNumber:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("parse number %q: %w", raw, err)
		}
		return f, nil
	default:
		return raw, nil
	}
}

// kindOf maps a declared datatype string onto a Kind. The lookup is total:
// anything outside the known set is text, preserving forward compatibility
// with schema evolution at the cost of weaker typing.
func kindOf(datatype string) Kind {
	switch datatype {
	case "date":
		return KindDate
	case "number":
		return KindNumber
	default:
		return KindText
	}
}

// Column describes one schema column. Name is the record key; column order
// in Schema.Columns is the canonical order.
type Column struct {
	Name        string
	Title       string
	Description string
	Required    bool
	Datatype    string
	Kind        Kind
}

// Schema is a parsed table schema document.
type Schema struct {
	PrimaryKey string
	Columns    []Column
}

// Column returns the column with the given name.
func (s *Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the column names in canonical order.
func (s *Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// PrimaryKeyValid reports whether the declared primary key names an existing
// column. A false result with a non-empty key is a data-quality finding to
// surface, not a parse failure.
func (s *Schema) PrimaryKeyValid() bool {
	if s.PrimaryKey == "" {
		return false
	}
	_, ok := s.Column(s.PrimaryKey)
	return ok
}

// Document renders columns as a JSON-schema-like object description: one
// property per column, required columns with a plain type, optional ones
// with a [type, "null"] union, dates carrying a date format marker. Stream
// handles and the line-protocol sink both announce schemas in this form.
func Document(cols []Column) map[string]any {
	props := make(map[string]any, len(cols))
	for _, col := range cols {
		prop := map[string]any{}

		base := "string"
		if col.Kind == KindNumber {
			base = "number"
		}
		if col.Required {
			prop["type"] = base
		} else {
			prop["type"] = []string{base, "null"}
		}
		if col.Kind == KindDate {
			prop["format"] = "date"
		}
		if col.Description != "" {
			prop["description"] = col.Description
		}
		props[col.Name] = prop
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}

// wireDocument mirrors the schema document shape. Only tableSchema is used;
// other top-level metadata keys are ignored.
type wireDocument struct {
	TableSchema *wireTableSchema `json:"tableSchema"`
}

type wireTableSchema struct {
	PrimaryKey string       `json:"primaryKey"`
	Columns    []wireColumn `json:"columns"`
}

type wireColumn struct {
	Name        string          `json:"name"`
	Titles      json.RawMessage `json:"titles"`
	Description string          `json:"dc:description"`
	Required    bool            `json:"required"`
	Datatype    string          `json:"datatype"`
}

// titleText extracts a display title from the flexible "titles" shapes seen
// in the wild: a plain string, a list, or a locale map.
func titleText(raw json.RawMessage, locale string) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	var byLocale map[string]string
	if err := json.Unmarshal(raw, &byLocale); err == nil {
		if t, ok := byLocale[locale]; ok {
			return t
		}
		for _, t := range byLocale {
			return t
		}
	}
	return ""
}

// Parse decodes a schema document. It fails with *MalformedError when the
// body is not valid JSON, lacks a tableSchema, or declares no usable columns.
func Parse(body []byte, locale string) (*Schema, error) {
	var doc wireDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, &MalformedError{Reason: "not valid JSON", Err: err}
	}
	if doc.TableSchema == nil {
		return nil, &MalformedError{Reason: "missing tableSchema"}
	}
	if len(doc.TableSchema.Columns) == 0 {
		return nil, &MalformedError{Reason: "no columns"}
	}

	cols := make([]Column, 0, len(doc.TableSchema.Columns))
	for i, wc := range doc.TableSchema.Columns {
		if wc.Name == "" {
			return nil, &MalformedError{Reason: fmt.Sprintf("column %d has no name", i)}
		}
		cols = append(cols, Column{
			Name:        wc.Name,
			Title:       titleText(wc.Titles, locale),
			Description: wc.Description,
			Required:    wc.Required,
			Datatype:    wc.Datatype,
			Kind:        kindOf(wc.Datatype),
		})
	}

	return &Schema{
		PrimaryKey: doc.TableSchema.PrimaryKey,
		Columns:    cols,
	}, nil
}
