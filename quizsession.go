package gitdict

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// SessionState is the lifecycle state of a quiz attempt
type SessionState string

const (
	StateLoading     SessionState = "loading"
	StatePresenting  SessionState = "presenting"
	StateScored      SessionState = "scored"
	StateNoQuestions SessionState = "no_questions"
)

// QuizSession holds one attempt: the fixed question batch and the learner's
// answers. It is never written to the store.
type QuizSession struct {
	ID        string           `json:"id"`
	State     SessionState     `json:"state"`
	Questions []QuizQuestion   `json:"questions"`
	Answers   map[int64]string `json:"answers"`
	Result    *QuizResult      `json:"result,omitempty"`
	StartedAt time.Time        `json:"started_at"`
}

// QuestionResult is the graded view of one question
type QuestionResult struct {
	QuestionID  int64  `json:"question_id"`
	Text        string `json:"question_text"`
	Answer      string `json:"answer"`
	Answered    bool   `json:"answered"`
	CorrectText string `json:"correct_text"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation,omitempty"`
}

// QuizResult is the outcome of grading a session
type QuizResult struct {
	Score   int              `json:"score"`
	Total   int              `json:"total"`
	Results []QuestionResult `json:"results"`
}

// NewQuizSession creates an empty session in the loading state
func NewQuizSession() (*QuizSession, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate quiz session id: %w", err)
	}
	return &QuizSession{
		ID:        id,
		State:     StateLoading,
		Answers:   make(map[int64]string),
		StartedAt: time.Now(),
	}, nil
}

// StartQuiz fetches one batch from store and loads it into a new session.
// An empty batch yields a session in StateNoQuestions, not an error.
func StartQuiz(ctx context.Context, store *QuizStore, limit int) (*QuizSession, error) {
	sess, err := NewQuizSession()
	if err != nil {
		return nil, err
	}
	questions, err := store.ListQuestions(ctx, limit)
	if err != nil {
		return nil, err
	}
	if err := sess.Load(questions); err != nil {
		return nil, err
	}
	store.opts.logger.Info("quiz started", "session_id", sess.ID, "questions", len(sess.Questions), "state", sess.State)
	return sess, nil
}

// Load moves a loading session to presenting, or to no_questions when the
// batch is empty.
func (s *QuizSession) Load(questions []QuizQuestion) error {
	if s.State != StateLoading {
		return fmt.Errorf("%w: load from %s", ErrInvalidTransition, s.State)
	}
	if len(questions) == 0 {
		s.State = StateNoQuestions
		return nil
	}
	s.Questions = append([]QuizQuestion(nil), questions...)
	if s.Answers == nil {
		s.Answers = make(map[int64]string)
	}
	s.State = StatePresenting
	return nil
}

// Question finds a question of the batch by id
func (s *QuizSession) Question(id int64) (QuizQuestion, bool) {
	for _, q := range s.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return QuizQuestion{}, false
}

// Answer records or overwrites the learner's choice for a question
func (s *QuizSession) Answer(questionID int64, choice string) error {
	if s.State != StatePresenting {
		return fmt.Errorf("%w: answer in %s", ErrInvalidTransition, s.State)
	}
	q, ok := s.Question(questionID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownQuestion, questionID)
	}
	if !q.HasChoice(choice) {
		return &ValidationError{
			Fields:  []string{fmt.Sprintf("answer_%d", questionID)},
			Message: "answer is not one of the choices",
		}
	}
	s.Answers[questionID] = choice
	return nil
}

// AnswerFor returns the recorded answer for a question, if any
func (s *QuizSession) AnswerFor(questionID int64) (string, bool) {
	a, ok := s.Answers[questionID]
	return a, ok
}

// Grade scores the session and moves it to the terminal scored state
func (s *QuizSession) Grade() (*QuizResult, error) {
	if s.State != StatePresenting {
		return nil, fmt.Errorf("%w: grade in %s", ErrInvalidTransition, s.State)
	}
	result := Score(s.Questions, s.Answers)
	s.Result = &result
	s.State = StateScored
	return &result, nil
}

// Done reports whether the session reached a terminal state
func (s *QuizSession) Done() bool {
	return s.State == StateScored || s.State == StateNoQuestions
}

// Score compares answers with the correct choices. Unanswered questions
// count as incorrect and out of range correct choices are clamped.
func Score(questions []QuizQuestion, answers map[int64]string) QuizResult {
	result := QuizResult{
		Total:   len(questions),
		Results: make([]QuestionResult, 0, len(questions)),
	}
	for _, q := range questions {
		answer, answered := answers[q.ID]
		correct := q.CorrectText()
		isCorrect := answered && answer == correct
		if isCorrect {
			result.Score++
		}
		result.Results = append(result.Results, QuestionResult{
			QuestionID:  q.ID,
			Text:        q.Text,
			Answer:      answer,
			Answered:    answered,
			CorrectText: correct,
			IsCorrect:   isCorrect,
			Explanation: q.Explanation,
		})
	}
	return result
}

// Grade grades sess and records the outcome
func (s *QuizStore) Grade(sess *QuizSession) (*QuizResult, error) {
	result, err := sess.Grade()
	if err != nil {
		return nil, err
	}
	s.opts.metrics.observeGrade(result.Score, result.Total)
	s.opts.logger.Info("quiz graded", "session_id", sess.ID, "score", result.Score, "total", result.Total)
	return result, nil
}
