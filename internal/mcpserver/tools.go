package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"gitdict"
)

const defaultNotesLimit = 20

// TermTools serves read-only glossary lookups.
type TermTools struct {
	Dict *gitdict.Dictionary
}

// NoteTools serves the learning notes.
type NoteTools struct {
	Notes *gitdict.NotesStore
}

// QuizTools serves quiz questions.
type QuizTools struct {
	Quizzes *gitdict.QuizStore
}

// --- Input types ---

type SearchTermsInput struct {
	Category        string `json:"category,omitempty" jsonschema:"One of basic-concept, basic-operation, advanced-operation, troubleshooting or all. Empty means all"`
	Query           string `json:"query,omitempty" jsonschema:"Case-insensitive text matched against name and short description"`
	ExcludeAdvanced bool   `json:"exclude_advanced,omitempty" jsonschema:"Drop terms marked as advanced"`
	SortByName      bool   `json:"sort_by_name,omitempty" jsonschema:"Sort results alphabetically instead of by category"`
	Limit           int    `json:"limit,omitempty" jsonschema:"Maximum number of terms to return. 0 means all"`
}

type GetTermInput struct {
	ID string `json:"id" jsonschema:"Term id, for example commit or rebase"`
}

type AddNoteInput struct {
	Text string `json:"text" jsonschema:"Note text. Blank notes are rejected"`
}

type ListNotesInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of notes to return (default 20)"`
}

type ListQuestionsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Maximum number of questions to return (default 10)"`
}

// --- Output types ---

type termSearchResult struct {
	Count int            `json:"count"`
	Terms []gitdict.Term `json:"terms"`
}

type termDetail struct {
	Term    gitdict.Term   `json:"term"`
	Related []gitdict.Term `json:"related"`
}

// questionView hides the correct choice so an agent can quiz a learner
type questionView struct {
	ID      int64     `json:"id"`
	Text    string    `json:"question_text"`
	Choices [4]string `json:"choices"`
}

// --- Handlers ---

func (t *TermTools) SearchTerms(_ context.Context, _ *mcp.CallToolRequest, input SearchTermsInput) (*mcp.CallToolResult, any, error) {
	category, err := gitdict.ParseCategory(input.Category)
	if err != nil {
		return toolError("Invalid category: %v", err), nil, nil
	}
	cfg := gitdict.FilterConfig{
		Category:        category,
		IncludeAdvanced: !input.ExcludeAdvanced,
		Query:           input.Query,
		MaxItems:        input.Limit,
		Sort:            gitdict.SortByCategory,
	}
	if input.SortByName {
		cfg.Sort = gitdict.SortByName
	}

	terms := t.Dict.Search(cfg)
	if terms == nil {
		terms = []gitdict.Term{}
	}
	return toolJSON(termSearchResult{Count: len(terms), Terms: terms})
}

func (t *TermTools) GetTerm(_ context.Context, _ *mcp.CallToolRequest, input GetTermInput) (*mcp.CallToolResult, any, error) {
	if input.ID == "" {
		return toolError("Term id is required"), nil, nil
	}
	term, ok := t.Dict.Catalog().Lookup(input.ID)
	if !ok {
		return toolError("Term not found: %s", input.ID), nil, nil
	}
	related := t.Dict.Catalog().Related(term)
	if related == nil {
		related = []gitdict.Term{}
	}
	return toolJSON(termDetail{Term: term, Related: related})
}

func (t *NoteTools) AddNote(ctx context.Context, _ *mcp.CallToolRequest, input AddNoteInput) (*mcp.CallToolResult, any, error) {
	note, err := t.Notes.Append(ctx, input.Text)
	if err != nil {
		if gitdict.IsValidation(err) {
			return toolError("Note text is required"), nil, nil
		}
		return toolError("Failed to save note: %v", err), nil, nil
	}
	return toolJSON(note)
}

func (t *NoteTools) ListNotes(ctx context.Context, _ *mcp.CallToolRequest, input ListNotesInput) (*mcp.CallToolResult, any, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultNotesLimit
	}
	notes, err := t.Notes.List(ctx, limit)
	if err != nil {
		return toolError("Failed to list notes: %v", err), nil, nil
	}
	if notes == nil {
		notes = []gitdict.LearningNote{}
	}
	return toolJSON(notes)
}

func (t *QuizTools) ListQuestions(ctx context.Context, _ *mcp.CallToolRequest, input ListQuestionsInput) (*mcp.CallToolResult, any, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 10
	}
	questions, err := t.Quizzes.ListQuestions(ctx, limit)
	if err != nil {
		return toolError("Failed to list questions: %v", err), nil, nil
	}
	views := make([]questionView, 0, len(questions))
	for _, q := range questions {
		views = append(views, questionView{ID: q.ID, Text: q.Text, Choices: q.Choices})
	}
	return toolJSON(views)
}

// --- Helpers ---

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
