package gitdict

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPage_Defaults(t *testing.T) {
	ctx := context.Background()
	notes := NewNotesStore(newMemStore())
	_, err := notes.Append(ctx, "**rebase** rewrites history")
	require.NoError(t, err)

	d := NewDictionary(DefaultCatalog(), notes, 50)
	page := d.BuildPage(ctx, NewViewState())

	assert.Equal(t, DefaultMaxItems, len(page.Terms))
	assert.Equal(t, page.HitCount, len(page.Terms))
	assert.False(t, page.NoResults)
	assert.Equal(t, DefaultTermID, page.Selected.ID)
	assert.NotEmpty(t, page.Related)
	assert.Equal(t, DefaultCatalog().Len(), page.TotalTerms)
	assert.Equal(t, 4, page.CategoryCount)
	assert.NotEmpty(t, page.Groups)

	require.Len(t, page.Notes, 1)
	assert.Contains(t, string(page.Notes[0].HTML), "<strong>rebase</strong>")
	assert.Empty(t, page.NotesError)
}

func TestBuildPage_NoResultsAndNameSort(t *testing.T) {
	d := NewDictionary(DefaultCatalog(), nil, 10)

	state := NewViewState()
	state.Filter.Query = "definitely not a git word"
	page := d.BuildPage(context.Background(), state)
	assert.True(t, page.NoResults)
	assert.Empty(t, page.Groups)

	state = NewViewState()
	state.Filter.Sort = SortByName
	state.Filter.MaxItems = 0
	page = d.BuildPage(context.Background(), state)
	assert.Nil(t, page.Groups)
	assert.Equal(t, SortTermsByName(page.Terms), page.Terms)
	assert.Equal(t, DefaultCatalog().Len(), page.HitCount)
}

func TestBuildPage_StaleSelectionFallsBack(t *testing.T) {
	state := NewViewState()
	state.Selection.Select("removed-term")
	page := NewDictionary(DefaultCatalog(), nil, 10).BuildPage(context.Background(), state)
	assert.Equal(t, DefaultCatalog().First().ID, page.Selected.ID)
}

func TestBuildPage_NotesFailureKeepsGlossary(t *testing.T) {
	repo := newMemStore()
	repo.setFail(true)
	d := NewDictionary(DefaultCatalog(), NewNotesStore(repo), 10)

	page := d.BuildPage(context.Background(), NewViewState())
	assert.NotEmpty(t, page.Terms)
	assert.NotEmpty(t, page.NotesError)
	assert.Empty(t, page.Notes)
}

func TestRenderMarkdown_DropsRawHTML(t *testing.T) {
	html, err := RenderMarkdown("use `git stash`<script>alert(1)</script>")
	require.NoError(t, err)
	assert.Contains(t, string(html), "<code>git stash</code>")
	assert.False(t, strings.Contains(string(html), "<script>"))
}
