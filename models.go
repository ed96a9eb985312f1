package gitdict

import (
	"fmt"
	"time"
)

// Category classifies a glossary term
type Category string

const (
	CategoryAll               Category = "all"
	CategoryBasicConcept      Category = "basic-concept"
	CategoryBasicOperation    Category = "basic-operation"
	CategoryAdvancedOperation Category = "advanced-operation"
	CategoryTroubleshooting   Category = "troubleshooting"
)

// Categories lists every concrete category in display order
var Categories = []Category{
	CategoryBasicConcept,
	CategoryBasicOperation,
	CategoryAdvancedOperation,
	CategoryTroubleshooting,
}

var categoryLabels = map[Category]string{
	CategoryAll:               "All",
	CategoryBasicConcept:      "Basic concepts",
	CategoryBasicOperation:    "Basic operations",
	CategoryAdvancedOperation: "Advanced operations",
	CategoryTroubleshooting:   "Troubleshooting",
}

// Label returns the human readable name of the category
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// Valid reports whether c is one of the concrete categories
func (c Category) Valid() bool {
	for _, cat := range Categories {
		if c == cat {
			return true
		}
	}
	return false
}

// Advanced reports whether c is hidden when advanced content is excluded
func (c Category) Advanced() bool {
	return c == CategoryAdvancedOperation || c == CategoryTroubleshooting
}

// ParseCategory accepts a concrete category or the "all" sentinel.
// An empty string is treated as "all".
func ParseCategory(s string) (Category, error) {
	if s == "" {
		return CategoryAll, nil
	}
	c := Category(s)
	if c == CategoryAll || c.Valid() {
		return c, nil
	}
	return "", fmt.Errorf("unknown category: %q", s)
}

// Term is a single glossary entry
type Term struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	Category         Category `json:"category" yaml:"category"`
	ShortDescription string   `json:"short_description" yaml:"short_description"`
	FullDescription  string   `json:"full_description" yaml:"full_description"`
	Examples         []string `json:"examples,omitempty" yaml:"examples"`
	RelatedTerms     []string `json:"related_terms,omitempty" yaml:"related_terms"`
}

// LearningNote is a free-text note persisted in the store
type LearningNote struct {
	ID        int64     `json:"id"`
	Text      string    `json:"note_text"`
	CreatedAt time.Time `json:"created_at"`
}

// QuizQuestion is a multiple choice question with exactly four choices
type QuizQuestion struct {
	ID            int64     `json:"id"`
	Text          string    `json:"question_text"`
	Choices       [4]string `json:"choices"`
	CorrectChoice int       `json:"correct_choice"` // 1-based, may be out of range in legacy rows
	Explanation   string    `json:"explanation,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// CorrectIndex returns the 0-based index of the correct choice after clamping
func (q QuizQuestion) CorrectIndex() int {
	return ClampChoice(q.CorrectChoice)
}

// CorrectText returns the text of the correct choice
func (q QuizQuestion) CorrectText() string {
	return q.Choices[q.CorrectIndex()]
}

// HasChoice reports whether choice is one of the question's choices
func (q QuizQuestion) HasChoice(choice string) bool {
	for _, c := range q.Choices {
		if c == choice {
			return true
		}
	}
	return false
}

// ClampChoice maps a 1-based correct choice onto a valid 0-based index
func ClampChoice(correctChoice int) int {
	idx := correctChoice - 1
	if idx < 0 {
		return 0
	}
	if idx > 3 {
		return 3
	}
	return idx
}
