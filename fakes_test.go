package gitdict

import (
	"context"
	"errors"
	"sync"
	"time"
)

var errBackendDown = errors.New("connection refused")

// memStore is an in-memory Store that counts calls and can be told to fail
type memStore struct {
	mu        sync.Mutex
	notes     []LearningNote
	questions []QuizQuestion
	nextID    int64
	calls     map[string]int
	fail      bool
}

func newMemStore() *memStore {
	return &memStore{calls: make(map[string]int)}
}

func (m *memStore) count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *memStore) setFail(fail bool) {
	m.mu.Lock()
	m.fail = fail
	m.mu.Unlock()
}

func (m *memStore) InsertNote(_ context.Context, text string) (LearningNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["insert_note"]++
	if m.fail {
		return LearningNote{}, errBackendDown
	}
	m.nextID++
	n := LearningNote{ID: m.nextID, Text: text, CreatedAt: time.Now()}
	m.notes = append(m.notes, n)
	return n, nil
}

func (m *memStore) ListNotes(_ context.Context, limit int) ([]LearningNote, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["list_notes"]++
	if m.fail {
		return nil, errBackendDown
	}
	var out []LearningNote
	for i := len(m.notes) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.notes[i])
	}
	return out, nil
}

func (m *memStore) InsertQuestion(_ context.Context, q QuizQuestion) (QuizQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["insert_question"]++
	if m.fail {
		return QuizQuestion{}, errBackendDown
	}
	m.nextID++
	q.ID = m.nextID
	q.CreatedAt = time.Now()
	m.questions = append(m.questions, q)
	return q, nil
}

func (m *memStore) ListQuestions(_ context.Context, limit int, _ QuestionOrder) ([]QuizQuestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["list_questions"]++
	if m.fail {
		return nil, errBackendDown
	}
	out := m.questions
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return append([]QuizQuestion(nil), out...), nil
}

func (m *memStore) Close() error { return nil }
