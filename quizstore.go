package gitdict

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// QuestionOrder controls the order of a fetched question batch
type QuestionOrder string

const (
	OrderInsertion QuestionOrder = "insertion"
	OrderRandom    QuestionOrder = "random"
)

// ParseQuestionOrder accepts "insertion" or "random"; empty means insertion
func ParseQuestionOrder(s string) (QuestionOrder, error) {
	switch QuestionOrder(strings.ToLower(s)) {
	case "", OrderInsertion:
		return OrderInsertion, nil
	case OrderRandom:
		return OrderRandom, nil
	}
	return "", fmt.Errorf("unknown question order: %q", s)
}

// QuestionRepository is the persistence side of the quiz catalog
type QuestionRepository interface {
	InsertQuestion(ctx context.Context, q QuizQuestion) (QuizQuestion, error)
	ListQuestions(ctx context.Context, limit int, order QuestionOrder) ([]QuizQuestion, error)
}

// NewQuestion is the admin input for a quiz question
type NewQuestion struct {
	Text          string    `json:"question_text"`
	Choices       [4]string `json:"choices"`
	CorrectChoice int       `json:"correct_choice"`
	Explanation   string    `json:"explanation,omitempty"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field
func (n NewQuestion) Trimmed() NewQuestion {
	n.Text = strings.TrimSpace(n.Text)
	for i := range n.Choices {
		n.Choices[i] = strings.TrimSpace(n.Choices[i])
	}
	n.Explanation = strings.TrimSpace(n.Explanation)
	return n
}

// Validate checks the trimmed question and names every field that fails
func (n NewQuestion) Validate() error {
	n = n.Trimmed()
	var fields []string
	if n.Text == "" {
		fields = append(fields, "question_text")
	}
	for i, c := range n.Choices {
		if c == "" {
			fields = append(fields, fmt.Sprintf("choice_%d", i+1))
		}
	}
	if n.CorrectChoice < 1 || n.CorrectChoice > 4 {
		fields = append(fields, "correct_choice")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields, Message: "invalid quiz question"}
	}
	return nil
}

// QuizStore validates and persists quiz questions
type QuizStore struct {
	repo QuestionRepository
	opts *options
}

// NewQuizStore wraps repo
func NewQuizStore(repo QuestionRepository, opts ...Option) *QuizStore {
	return &QuizStore{repo: repo, opts: applyOptions(opts)}
}

// Order returns the configured batch order
func (s *QuizStore) Order() QuestionOrder {
	return s.opts.order
}

// InsertQuestion validates n and writes one row. Invalid input returns a
// *ValidationError and performs no write.
func (s *QuizStore) InsertQuestion(ctx context.Context, n NewQuestion) (QuizQuestion, error) {
	if err := n.Validate(); err != nil {
		return QuizQuestion{}, err
	}
	n = n.Trimmed()

	start := time.Now()
	q, err := s.repo.InsertQuestion(ctx, QuizQuestion{
		Text:          n.Text,
		Choices:       n.Choices,
		CorrectChoice: n.CorrectChoice,
		Explanation:   n.Explanation,
	})
	s.opts.metrics.observeStore("insert_question", start, err)
	if err != nil {
		s.opts.logger.Error("failed to insert quiz question", "error", err)
		return QuizQuestion{}, storeError("insert question", err)
	}

	s.opts.logger.Info("quiz question added", "question_id", q.ID)
	return q, nil
}

// ListQuestions returns up to limit questions in the configured order
func (s *QuizStore) ListQuestions(ctx context.Context, limit int) ([]QuizQuestion, error) {
	start := time.Now()
	questions, err := s.repo.ListQuestions(ctx, limit, s.opts.order)
	s.opts.metrics.observeStore("list_questions", start, err)
	if err != nil {
		s.opts.logger.Error("failed to list quiz questions", "limit", limit, "error", err)
		return nil, storeError("list questions", err)
	}
	if questions == nil {
		questions = []QuizQuestion{}
	}
	VerboseLog("listed %d quiz questions (limit %d, order %s)", len(questions), limit, s.opts.order)
	return questions, nil
}
