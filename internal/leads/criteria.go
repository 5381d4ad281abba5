package leads

import (
	"fmt"
	"sort"
	"strings"
)

// StringSet is an unordered set of filter values.
type StringSet map[string]struct{}

// NewStringSet builds a set from values, skipping blanks.
func NewStringSet(values ...string) StringSet {
	set := make(StringSet, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

// Toggle removes value when present and adds it otherwise.
func (s *StringSet) Toggle(value string) {
	if *s == nil {
		*s = make(StringSet)
	}
	if _, ok := (*s)[value]; ok {
		delete(*s, value)
		return
	}
	(*s)[value] = struct{}{}
}

// Has reports membership.
func (s StringSet) Has(value string) bool {
	_, ok := s[value]
	return ok
}

// Len returns the number of values.
func (s StringSet) Len() int {
	return len(s)
}

// Sorted returns the values in byte order.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (s StringSet) Clone() StringSet {
	out := make(StringSet, len(s))
	for v := range s {
		out[v] = struct{}{}
	}
	return out
}

// FilterField names one of the multi-select filter fields.
type FilterField string

const (
	FieldSegments   FilterField = "segments"
	FieldCategories FilterField = "categories"
	FieldBanks      FilterField = "banks"
	FieldLoanTypes  FilterField = "loanTypes"
)

// FilterFields lists the multi-select fields in display order.
var FilterFields = []FilterField{FieldSegments, FieldCategories, FieldBanks, FieldLoanTypes}

// ParseFilterField maps a query or form key onto a FilterField.
func ParseFilterField(raw string) (FilterField, error) {
	for _, f := range FilterFields {
		if strings.EqualFold(raw, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("leads: unknown filter field %q", raw)
}

// FilterCriteria is the set of filters sent to the listing endpoint.
// MinAmount <= MaxAmount is not enforced here.
type FilterCriteria struct {
	Search     string
	Segments   StringSet
	Categories StringSet
	Banks      StringSet
	LoanTypes  StringSet
	MinAmount  *float64
	MaxAmount  *float64
}

// Set returns a pointer to the set backing field.
func (c *FilterCriteria) Set(field FilterField) *StringSet {
	switch field {
	case FieldSegments:
		return &c.Segments
	case FieldCategories:
		return &c.Categories
	case FieldBanks:
		return &c.Banks
	case FieldLoanTypes:
		return &c.LoanTypes
	}
	return nil
}

// Values returns the sorted values selected for field.
func (c FilterCriteria) Values(field FilterField) []string {
	set := c.Set(field)
	if set == nil {
		return nil
	}
	return set.Sorted()
}

// Clone deep-copies the criteria so snapshots never alias live state.
func (c FilterCriteria) Clone() FilterCriteria {
	out := FilterCriteria{
		Search:     c.Search,
		Segments:   c.Segments.Clone(),
		Categories: c.Categories.Clone(),
		Banks:      c.Banks.Clone(),
		LoanTypes:  c.LoanTypes.Clone(),
		MinAmount:  cloneAmount(c.MinAmount),
		MaxAmount:  cloneAmount(c.MaxAmount),
	}
	return out
}

// IsZero reports whether no filter is active.
func (c FilterCriteria) IsZero() bool {
	return strings.TrimSpace(c.Search) == "" &&
		c.Segments.Len() == 0 && c.Categories.Len() == 0 &&
		c.Banks.Len() == 0 && c.LoanTypes.Len() == 0 &&
		c.MinAmount == nil && c.MaxAmount == nil
}

// ActiveCount returns how many filter groups are set, for the filter badge.
func (c FilterCriteria) ActiveCount() int {
	n := 0
	for _, f := range FilterFields {
		if c.Set(f).Len() > 0 {
			n++
		}
	}
	if c.MinAmount != nil || c.MaxAmount != nil {
		n++
	}
	return n
}

func cloneAmount(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

// PageCursor is the pagination position.
type PageCursor struct {
	Page     int
	PageSize int
}
