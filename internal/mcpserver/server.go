// Package mcpserver exposes the glossary, notes and quiz questions as MCP tools.
package mcpserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"gitdict"
)

// Version is reported to MCP clients during initialization.
const Version = "0.1.0"

// New creates an MCP server with every gitdict tool registered.
func New(dict *gitdict.Dictionary, quizzes *gitdict.QuizStore) *mcp.Server {
	tt := &TermTools{Dict: dict}
	nt := &NoteTools{Notes: dict.Notes()}
	qt := &QuizTools{Quizzes: quizzes}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "gitdict",
		Version: Version,
	}, nil)

	// Glossary
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_terms",
		Description: "Search the Git glossary by category, text query and difficulty",
	}, tt.SearchTerms)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_term",
		Description: "Get one Git term with its example command and related terms",
	}, tt.GetTerm)

	// Notes
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "add_note",
		Description: "Save a learning note (markdown allowed)",
	}, nt.AddNote)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_notes",
		Description: "List saved learning notes, newest first",
	}, nt.ListNotes)

	// Quiz
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_quiz_questions",
		Description: "List quiz questions without revealing which choice is correct",
	}, qt.ListQuestions)

	return srv
}
