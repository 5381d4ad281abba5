package leads

import (
	"fmt"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Record is one opaque listing row.
type Record map[string]any

// Field returns the display string for key, or "" when absent.
func (r Record) Field(key string) string {
	values := recordValues(r[key])
	return strings.Join(values, ", ")
}

// FilterOptionSet holds the values offered in the filter dropdowns.
// Each list is deduplicated and sorted.
type FilterOptionSet struct {
	Segments   []string `json:"segments"`
	Categories []string `json:"categories"`
	Banks      []string `json:"banks"`
	LoanTypes  []string `json:"loanTypes"`
}

// For returns the option list backing field.
func (o FilterOptionSet) For(field FilterField) []string {
	switch field {
	case FieldSegments:
		return o.Segments
	case FieldCategories:
		return o.Categories
	case FieldBanks:
		return o.Banks
	case FieldLoanTypes:
		return o.LoanTypes
	}
	return nil
}

// IsEmpty reports whether every list is empty.
func (o FilterOptionSet) IsEmpty() bool {
	return len(o.Segments) == 0 && len(o.Categories) == 0 && len(o.Banks) == 0 && len(o.LoanTypes) == 0
}

// Clone copies the option lists.
func (o FilterOptionSet) Clone() FilterOptionSet {
	return FilterOptionSet{
		Segments:   append([]string(nil), o.Segments...),
		Categories: append([]string(nil), o.Categories...),
		Banks:      append([]string(nil), o.Banks...),
		LoanTypes:  append([]string(nil), o.LoanTypes...),
	}
}

// normalized dedupes and sorts every list.
func (o FilterOptionSet) normalized() FilterOptionSet {
	return FilterOptionSet{
		Segments:   SortOptions(o.Segments),
		Categories: SortOptions(o.Categories),
		Banks:      SortOptions(o.Banks),
		LoanTypes:  SortOptions(o.LoanTypes),
	}
}

// Baseline lists values that locally derived options always include.
type Baseline struct {
	Segments   []string
	Categories []string
}

// DefaultBaseline is used when configuration leaves the baseline empty.
var DefaultBaseline = Baseline{
	Segments:   []string{"Salaried", "Self Employed"},
	Categories: []string{"CAT A", "CAT B", "CAT C", "Unlisted"},
}

// FieldMap names the record keys holding each filterable attribute.
type FieldMap map[FilterField]string

// DefaultFieldMap matches the listing endpoint's row keys.
var DefaultFieldMap = FieldMap{
	FieldSegments:   "segment",
	FieldCategories: "category",
	FieldBanks:      "bank",
	FieldLoanTypes:  "loanType",
}

// DeriveOptions builds options from the rows of the current page, seeded
// with the baseline. Values on other pages are necessarily missing.
func DeriveOptions(rows []Record, fields FieldMap, baseline Baseline) FilterOptionSet {
	if fields == nil {
		fields = DefaultFieldMap
	}
	collected := map[FilterField][]string{
		FieldSegments:   append([]string(nil), baseline.Segments...),
		FieldCategories: append([]string(nil), baseline.Categories...),
	}
	for _, row := range rows {
		for _, field := range FilterFields {
			key, ok := fields[field]
			if !ok || key == "" {
				continue
			}
			collected[field] = append(collected[field], recordValues(row[key])...)
		}
	}
	return FilterOptionSet{
		Segments:   collected[FieldSegments],
		Categories: collected[FieldCategories],
		Banks:      collected[FieldBanks],
		LoanTypes:  collected[FieldLoanTypes],
	}.normalized()
}

// SortOptions trims, dedupes and collates values case-insensitively.
func SortOptions(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	collate.New(language.English, collate.IgnoreCase).SortStrings(out)
	return out
}

func recordValues(v any) []string {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
		return nil
	case []any:
		var out []string
		for _, item := range val {
			out = append(out, recordValues(item)...)
		}
		return out
	case []string:
		var out []string
		for _, item := range val {
			out = append(out, recordValues(item)...)
		}
		return out
	case map[string]any:
		// nested objects are not filterable
		return nil
	default:
		return []string{fmt.Sprint(val)}
	}
}
