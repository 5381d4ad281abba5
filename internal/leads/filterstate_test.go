package leads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestNewFilterStateDefaults(t *testing.T) {
	s := NewFilterState(0)
	assert.Equal(t, PageCursor{Page: 1, PageSize: DefaultPageSize}, s.Cursor())
	assert.True(t, s.Applied().IsZero())
	assert.False(t, s.Editing())

	s = NewFilterState(25)
	assert.Equal(t, 25, s.Cursor().PageSize)
}

func TestFilterStateDraftIsolatedUntilCommit(t *testing.T) {
	s := NewFilterState(10)
	s.SetPage(3)

	s.BeginEdit()
	s.Toggle(FieldBanks, "HDFC")
	s.Toggle(FieldSegments, "Salaried")
	s.SetDraftRange(floatPtr(1000), nil)

	assert.True(t, s.Applied().IsZero(), "applied criteria must not change while editing")
	assert.Equal(t, 3, s.Cursor().Page)

	draft, editing := s.Draft()
	require.True(t, editing)
	assert.Equal(t, []string{"HDFC"}, draft.Values(FieldBanks))
	assert.Equal(t, 1000.0, *draft.MinAmount)

	require.True(t, s.CommitEdit())
	applied := s.Applied()
	assert.Equal(t, []string{"HDFC"}, applied.Values(FieldBanks))
	assert.Equal(t, []string{"Salaried"}, applied.Values(FieldSegments))
	assert.Equal(t, 1, s.Cursor().Page, "commit returns to the first page")
	assert.False(t, s.Editing())
}

func TestFilterStateCommitWithoutDraft(t *testing.T) {
	s := NewFilterState(10)
	s.Toggle(FieldBanks, "SBI")
	require.True(t, s.CommitEdit())
	s.SetPage(4)

	assert.True(t, s.CommitEdit(), "page moved back to 1")
	assert.Equal(t, 1, s.Cursor().Page)
	assert.Equal(t, []string{"SBI"}, s.Applied().Values(FieldBanks))

	assert.False(t, s.CommitEdit(), "nothing left to change")
	assert.Equal(t, 1, s.Cursor().Page)
}

func TestFilterStateDiscardKeepsApplied(t *testing.T) {
	s := NewFilterState(10)
	s.Toggle(FieldCategories, "CAT A")
	require.True(t, s.CommitEdit())

	s.BeginEdit()
	s.Toggle(FieldCategories, "CAT A")
	s.Toggle(FieldCategories, "CAT B")
	s.DiscardEdit()

	assert.Equal(t, []string{"CAT A"}, s.Applied().Values(FieldCategories))
	_, editing := s.Draft()
	assert.False(t, editing)
}

func TestFilterStateToggleTwiceRestores(t *testing.T) {
	s := NewFilterState(10)
	s.BeginEdit()
	s.Toggle(FieldLoanTypes, "Home")
	s.Toggle(FieldLoanTypes, "Home")
	draft, _ := s.Draft()
	assert.Empty(t, draft.Values(FieldLoanTypes))

	s.Toggle(FieldLoanTypes, "   ")
	draft, _ = s.Draft()
	assert.Empty(t, draft.Values(FieldLoanTypes), "blank values are ignored")
}

func TestFilterStateClearPendingDraft(t *testing.T) {
	s := NewFilterState(10)
	s.BeginEdit()
	s.SetDraftSearch("  ravi ")
	s.Toggle(FieldBanks, "SBI")
	s.SetDraftRange(floatPtr(1), floatPtr(2))
	require.True(t, s.CommitEdit())

	s.ClearPendingDraft()
	draft, editing := s.Draft()
	require.True(t, editing)
	assert.Equal(t, "ravi", draft.Search)
	assert.Empty(t, draft.Values(FieldBanks))
	assert.Nil(t, draft.MinAmount)
	assert.Nil(t, draft.MaxAmount)
	assert.Equal(t, []string{"SBI"}, s.Applied().Values(FieldBanks), "clearing the draft does not apply")
}

func TestFilterStateSearchAndPageSizeResetPage(t *testing.T) {
	s := NewFilterState(10)
	s.SetPage(4)
	s.SetSearch("  alpha ")
	assert.Equal(t, "alpha", s.Applied().Search)
	assert.Equal(t, 1, s.Cursor().Page)

	s.SetPage(4)
	s.SetPageSize(50)
	assert.Equal(t, PageCursor{Page: 1, PageSize: 50}, s.Cursor())

	s.SetPageSize(0)
	assert.Equal(t, 50, s.Cursor().PageSize)
}

func TestFilterStateClampPage(t *testing.T) {
	s := NewFilterState(10)
	s.SetPage(9)
	s.ClampPage(5)
	assert.Equal(t, 5, s.Cursor().Page)
	s.ClampPage(0)
	assert.Equal(t, 1, s.Cursor().Page)
}

func TestFilterStateSnapshotsDoNotAlias(t *testing.T) {
	s := NewFilterState(10)
	s.Toggle(FieldBanks, "Axis")
	require.True(t, s.CommitEdit())

	applied := s.Applied()
	applied.Banks.Toggle("ICICI")
	assert.Equal(t, []string{"Axis"}, s.Applied().Values(FieldBanks))
}

func TestFilterCriteriaActiveCount(t *testing.T) {
	c := FilterCriteria{
		Search:    "x",
		Banks:     NewStringSet("A", " ", "B"),
		MaxAmount: floatPtr(10),
	}
	assert.Equal(t, 2, c.ActiveCount())
	assert.Equal(t, 2, c.Banks.Len())
	assert.False(t, c.IsZero())
	assert.True(t, FilterCriteria{Search: "  "}.IsZero())
}

func TestParseFilterField(t *testing.T) {
	field, err := ParseFilterField("LOANTYPES")
	require.NoError(t, err)
	assert.Equal(t, FieldLoanTypes, field)

	_, err = ParseFilterField("status")
	assert.Error(t, err)
}
