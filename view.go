package gitdict

import (
	"context"
	"html/template"
)

// ViewState is the named input state of the dictionary page. Every user
// event changes one field and the page is rebuilt from scratch.
type ViewState struct {
	Filter    FilterConfig
	Selection Selection
}

// NewViewState returns the state of a fresh visit
func NewViewState() ViewState {
	return ViewState{
		Filter:    DefaultFilterConfig(),
		Selection: NewSelection(),
	}
}

// NoteView is a note prepared for the history list
type NoteView struct {
	LearningNote
	HTML template.HTML
}

// PageModel is everything the dictionary page renders
type PageModel struct {
	Filter        FilterConfig
	Terms         []Term
	Groups        []TermGroup
	HitCount      int
	NoResults     bool
	Selected      Term
	Related       []Term
	Notes         []NoteView
	NotesError    string
	TotalTerms    int
	CategoryCount int
	Categories    []Category
}

// Dictionary builds page models from the catalog and the notes log
type Dictionary struct {
	catalog    *Catalog
	notes      *NotesStore
	notesLimit int
}

// NewDictionary wires the page builder. notes may be nil, in which case the
// history is always empty.
func NewDictionary(catalog *Catalog, notes *NotesStore, notesLimit int) *Dictionary {
	return &Dictionary{catalog: catalog, notes: notes, notesLimit: notesLimit}
}

// Catalog returns the glossary the dictionary serves
func (d *Dictionary) Catalog() *Catalog {
	return d.catalog
}

// Notes returns the notes log, possibly nil
func (d *Dictionary) Notes() *NotesStore {
	return d.notes
}

// Search runs the filter over the catalog
func (d *Dictionary) Search(cfg FilterConfig) []Term {
	return Filter(d.catalog.Terms(), cfg)
}

// BuildPage recomputes every derived view from state. A failing notes store
// only blanks the history; the glossary still renders.
func (d *Dictionary) BuildPage(ctx context.Context, state ViewState) PageModel {
	terms := d.Search(state.Filter)
	selected := state.Selection.Resolve(d.catalog)

	page := PageModel{
		Filter:        state.Filter,
		Terms:         terms,
		HitCount:      len(terms),
		NoResults:     len(terms) == 0,
		Selected:      selected,
		Related:       d.catalog.Related(selected),
		TotalTerms:    d.catalog.Len(),
		CategoryCount: d.catalog.CategoryCount(),
		Categories:    Categories,
	}
	if state.Filter.Sort != SortByName {
		page.Groups = GroupByCategory(terms)
	}

	if d.notes == nil {
		return page
	}
	notes, err := d.notes.List(ctx, d.notesLimit)
	if err != nil {
		page.NotesError = "Notes are unavailable right now. Please try again."
		return page
	}
	page.Notes = make([]NoteView, 0, len(notes))
	for _, n := range notes {
		html, err := RenderMarkdown(n.Text)
		if err != nil {
			html = template.HTML(template.HTMLEscapeString(n.Text))
		}
		page.Notes = append(page.Notes, NoteView{LearningNote: n, HTML: html})
	}
	return page
}
