package leads

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Column is one displayed listing column.
type Column struct {
	Key    string
	Label  string
	Amount bool
}

// DefaultColumns are shown when configuration does not override them.
var DefaultColumns = []Column{
	{Key: "name", Label: "Name"},
	{Key: "mobile", Label: "Mobile"},
	{Key: "segment", Label: "Segment"},
	{Key: "category", Label: "Category"},
	{Key: "bank", Label: "Bank"},
	{Key: "loanType", Label: "Loan type"},
	{Key: "loanAmount", Label: "Amount", Amount: true},
	{Key: "status", Label: "Status"},
}

var fieldLabels = map[FilterField]string{
	FieldSegments:   "Segment",
	FieldCategories: "Category",
	FieldBanks:      "Bank",
	FieldLoanTypes:  "Loan type",
}

type tableRow struct {
	Cells []string
}

type optionItem struct {
	Value   string
	Checked bool
}

type filterGroup struct {
	Field   FilterField
	Label   string
	Options []optionItem
}

type amountFormatter struct {
	tag language.Tag
}

func newAmountFormatter(locale string) amountFormatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return amountFormatter{tag: tag}
}

func (f amountFormatter) format(raw any) string {
	var v float64
	switch val := raw.(type) {
	case float64:
		v = val
	case int:
		v = float64(val)
	case int64:
		v = float64(val)
	default:
		return Record{"v": raw}.Field("v")
	}
	return message.NewPrinter(f.tag).Sprint(number.Decimal(v, number.MaxFractionDigits(2)))
}

func buildTable(rows []Record, columns []Column, amounts amountFormatter) []tableRow {
	out := make([]tableRow, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			if col.Amount {
				if raw, ok := row[col.Key]; ok && raw != nil {
					cells[i] = amounts.format(raw)
				}
				continue
			}
			cells[i] = row.Field(col.Key)
		}
		out = append(out, tableRow{Cells: cells})
	}
	return out
}

// buildFilterGroups marks the options selected in criteria. Selected values
// absent from the option lists are still shown so they can be unticked.
func buildFilterGroups(options FilterOptionSet, criteria FilterCriteria) []filterGroup {
	groups := make([]filterGroup, 0, len(FilterFields))
	for _, field := range FilterFields {
		selected := criteria.Set(field)
		values := options.For(field)
		seen := make(map[string]struct{}, len(values))
		items := make([]optionItem, 0, len(values))
		for _, v := range values {
			seen[v] = struct{}{}
			items = append(items, optionItem{Value: v, Checked: selected.Has(v)})
		}
		for _, v := range selected.Sorted() {
			if _, ok := seen[v]; !ok {
				items = append(items, optionItem{Value: v, Checked: true})
			}
		}
		groups = append(groups, filterGroup{Field: field, Label: fieldLabels[field], Options: items})
	}
	return groups
}
