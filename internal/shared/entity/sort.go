// Package entity holds listing conventions shared by the document and question stores.
package entity

import (
	"errors"
	"fmt"
	"strings"
)

// FieldCreatedDate is the default ordering field for every collection.
const FieldCreatedDate = "created_date"

// ErrInvalidSort is returned for sorts naming an unknown field.
var ErrInvalidSort = errors.New("invalid sort")

// Sort orders a listing by one field. A leading "-" in the raw form means descending.
type Sort struct {
	Field string
	Desc  bool
}

// NewestFirst is the default sort: -created_date.
var NewestFirst = Sort{Field: FieldCreatedDate, Desc: true}

// ParseSort parses values like "-created_date" or "title". Empty input yields NewestFirst.
func ParseSort(raw string, allowed ...string) (Sort, error) {
	field := strings.TrimSpace(raw)
	if field == "" {
		return NewestFirst, nil
	}
	s := Sort{}
	switch {
	case strings.HasPrefix(field, "-"):
		s.Desc = true
		field = field[1:]
	case strings.HasPrefix(field, "+"):
		field = field[1:]
	}
	s.Field = strings.ToLower(strings.TrimSpace(field))
	for _, a := range allowed {
		if a == s.Field {
			return s, nil
		}
	}
	return Sort{}, fmt.Errorf("%w: unknown field %q", ErrInvalidSort, s.Field)
}

// String renders the sort back into its raw form.
func (s Sort) String() string {
	if s.Field == "" {
		return NewestFirst.String()
	}
	if s.Desc {
		return "-" + s.Field
	}
	return s.Field
}

// OrElse returns s, or def when s is the zero value.
func (s Sort) OrElse(def Sort) Sort {
	if s.Field == "" {
		return def
	}
	return s
}
