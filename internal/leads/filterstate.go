package leads

import "strings"

// FilterState holds the applied criteria, the pending draft edited in the
// filter modal, and the page cursor. It performs no I/O and is not safe
// for concurrent use; ResultView serialises access.
type FilterState struct {
	applied FilterCriteria
	draft   FilterCriteria
	editing bool
	cursor  PageCursor
}

// NewFilterState returns a state on page 1 with the given page size.
func NewFilterState(pageSize int) *FilterState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &FilterState{cursor: PageCursor{Page: 1, PageSize: pageSize}}
}

// Applied returns a copy of the criteria driving fetches.
func (s *FilterState) Applied() FilterCriteria {
	return s.applied.Clone()
}

// Draft returns a copy of the pending draft and whether an edit is open.
func (s *FilterState) Draft() (FilterCriteria, bool) {
	if !s.editing {
		return FilterCriteria{}, false
	}
	return s.draft.Clone(), true
}

// Editing reports whether a draft is open.
func (s *FilterState) Editing() bool {
	return s.editing
}

// Cursor returns the current page cursor.
func (s *FilterState) Cursor() PageCursor {
	return s.cursor
}

// BeginEdit copies the applied criteria into the draft, replacing any
// unsaved draft.
func (s *FilterState) BeginEdit() {
	s.draft = s.applied.Clone()
	s.editing = true
}

// CommitEdit makes the draft the applied criteria and always returns to
// page 1. It reports whether the applied criteria or the page changed.
func (s *FilterState) CommitEdit() bool {
	changed := s.cursor.Page != 1
	s.cursor.Page = 1
	if !s.editing {
		return changed
	}
	s.applied = s.draft
	s.draft = FilterCriteria{}
	s.editing = false
	return true
}

// DiscardEdit drops the draft without touching the applied criteria.
func (s *FilterState) DiscardEdit() {
	s.draft = FilterCriteria{}
	s.editing = false
}

// ClearPendingDraft empties the draft's list and range fields in place.
// Search text is kept. Nothing is applied until CommitEdit.
func (s *FilterState) ClearPendingDraft() {
	if !s.editing {
		s.BeginEdit()
	}
	s.draft.Segments = nil
	s.draft.Categories = nil
	s.draft.Banks = nil
	s.draft.LoanTypes = nil
	s.draft.MinAmount = nil
	s.draft.MaxAmount = nil
}

// Toggle flips value in the draft set for field. Opens a draft if needed.
func (s *FilterState) Toggle(field FilterField, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	if !s.editing {
		s.BeginEdit()
	}
	if set := s.draft.Set(field); set != nil {
		set.Toggle(value)
	}
}

// SetDraftSearch replaces the draft's search text.
func (s *FilterState) SetDraftSearch(text string) {
	if !s.editing {
		s.BeginEdit()
	}
	s.draft.Search = strings.TrimSpace(text)
}

// SetDraftRange replaces the draft's amount bounds.
func (s *FilterState) SetDraftRange(min, max *float64) {
	if !s.editing {
		s.BeginEdit()
	}
	s.draft.MinAmount = cloneAmount(min)
	s.draft.MaxAmount = cloneAmount(max)
}

// ReplaceDraft overwrites the whole draft, as submitted by the filter form.
func (s *FilterState) ReplaceDraft(c FilterCriteria) {
	s.draft = c.Clone()
	s.editing = true
}

// SetSearch applies search text directly and returns to page 1.
func (s *FilterState) SetSearch(text string) {
	s.applied.Search = strings.TrimSpace(text)
	s.cursor.Page = 1
}

// SetPage moves the cursor without bounds checks; callers clamp.
func (s *FilterState) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	s.cursor.Page = page
}

// SetPageSize changes the page size and returns to page 1.
func (s *FilterState) SetPageSize(size int) {
	if size <= 0 {
		return
	}
	s.cursor.PageSize = size
	s.cursor.Page = 1
}

// ClampPage bounds the page number to [1, totalPages].
func (s *FilterState) ClampPage(totalPages int) {
	if totalPages < 1 {
		totalPages = 1
	}
	if s.cursor.Page > totalPages {
		s.cursor.Page = totalPages
	}
	if s.cursor.Page < 1 {
		s.cursor.Page = 1
	}
}
