package gitdict

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func abcd(id int64, correct int) QuizQuestion {
	return QuizQuestion{ID: id, Text: "pick", Choices: [4]string{"A", "B", "C", "D"}, CorrectChoice: correct}
}

func TestQuizStore_InsertValidation(t *testing.T) {
	repo := newMemStore()
	store := NewQuizStore(repo)

	_, err := store.InsertQuestion(context.Background(), NewQuestion{
		Text:          "  ",
		Choices:       [4]string{"a", "", "c", " "},
		CorrectChoice: 5,
	})
	require.Error(t, err)

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"question_text", "choice_2", "choice_4", "correct_choice"}, ve.Fields)
	assert.Zero(t, repo.count("insert_question"))

	_, err = store.InsertQuestion(context.Background(), NewQuestion{
		Text:          "q",
		Choices:       [4]string{"a", "b", "c", "d"},
		CorrectChoice: 0,
	})
	require.True(t, IsValidation(err))
	assert.Zero(t, repo.count("insert_question"))
}

func TestQuizStore_InsertTrimsAndAssignsID(t *testing.T) {
	store := NewQuizStore(newMemStore())
	q, err := store.InsertQuestion(context.Background(), NewQuestion{
		Text:          " What does git fetch do? ",
		Choices:       [4]string{" Downloads ", "Merges", "Pushes", "Deletes"},
		CorrectChoice: 1,
		Explanation:   " fetch never touches your branch ",
	})
	require.NoError(t, err)
	assert.NotZero(t, q.ID)
	assert.Equal(t, "What does git fetch do?", q.Text)
	assert.Equal(t, "Downloads", q.Choices[0])
	assert.Equal(t, "fetch never touches your branch", q.Explanation)
}

func TestQuizStore_StoreFailure(t *testing.T) {
	repo := newMemStore()
	repo.setFail(true)
	store := NewQuizStore(repo)

	_, err := store.InsertQuestion(context.Background(), NewQuestion{
		Text: "q", Choices: [4]string{"a", "b", "c", "d"}, CorrectChoice: 2,
	})
	assert.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = store.ListQuestions(context.Background(), 5)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestParseQuestionOrder(t *testing.T) {
	o, err := ParseQuestionOrder("")
	require.NoError(t, err)
	assert.Equal(t, OrderInsertion, o)

	o, err = ParseQuestionOrder("RANDOM")
	require.NoError(t, err)
	assert.Equal(t, OrderRandom, o)

	_, err = ParseQuestionOrder("newest")
	assert.Error(t, err)
}

func TestScore(t *testing.T) {
	questions := []QuizQuestion{abcd(1, 3), abcd(2, 3), abcd(3, 3)}

	result := Score(questions, map[int64]string{1: "C", 2: "B"})
	assert.Equal(t, 1, result.Score)
	assert.Equal(t, 3, result.Total)
	require.Len(t, result.Results, 3)

	assert.True(t, result.Results[0].IsCorrect)
	assert.Equal(t, "C", result.Results[0].CorrectText)

	assert.False(t, result.Results[1].IsCorrect)
	assert.Equal(t, "B", result.Results[1].Answer)

	assert.False(t, result.Results[2].IsCorrect)
	assert.False(t, result.Results[2].Answered)
}

func TestScore_ClampsCorrectChoice(t *testing.T) {
	assert.Equal(t, 0, ClampChoice(0))
	assert.Equal(t, 3, ClampChoice(7))
	assert.Equal(t, 0, ClampChoice(-2))

	result := Score([]QuizQuestion{abcd(1, 0), abcd(2, 7)}, map[int64]string{1: "A", 2: "D"})
	assert.Equal(t, 2, result.Score)
	assert.Equal(t, "A", result.Results[0].CorrectText)
	assert.Equal(t, "D", result.Results[1].CorrectText)
}

func TestQuizSession_StateMachine(t *testing.T) {
	sess, err := NewQuizSession()
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, StateLoading, sess.State)

	require.ErrorIs(t, sess.Answer(1, "A"), ErrInvalidTransition)
	_, err = sess.Grade()
	require.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, sess.Load([]QuizQuestion{abcd(1, 1), abcd(2, 2)}))
	assert.Equal(t, StatePresenting, sess.State)
	assert.ErrorIs(t, sess.Load(nil), ErrInvalidTransition)

	// answers may be overwritten while presenting
	require.NoError(t, sess.Answer(1, "C"))
	require.NoError(t, sess.Answer(1, "A"))
	a, ok := sess.AnswerFor(1)
	assert.True(t, ok)
	assert.Equal(t, "A", a)

	assert.ErrorIs(t, sess.Answer(99, "A"), ErrUnknownQuestion)
	err = sess.Answer(2, "Z")
	require.True(t, IsValidation(err))

	result, err := sess.Grade()
	require.NoError(t, err)
	assert.Equal(t, 1, result.Score)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, StateScored, sess.State)
	assert.True(t, sess.Done())

	assert.ErrorIs(t, sess.Answer(2, "B"), ErrInvalidTransition)
	_, err = sess.Grade()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestQuizSession_EmptyBatch(t *testing.T) {
	sess, err := StartQuiz(context.Background(), NewQuizStore(newMemStore()), 5)
	require.NoError(t, err)
	assert.Equal(t, StateNoQuestions, sess.State)
	assert.True(t, sess.Done())
	assert.Empty(t, sess.Questions)
}

func TestQuizSession_BatchIsHeldForTheAttempt(t *testing.T) {
	ctx := context.Background()
	repo := newMemStore()
	store := NewQuizStore(repo)
	for i := 0; i < 3; i++ {
		_, err := store.InsertQuestion(ctx, NewQuestion{
			Text: "q", Choices: [4]string{"a", "b", "c", "d"}, CorrectChoice: 1,
		})
		require.NoError(t, err)
	}

	sess, err := StartQuiz(ctx, store, 2)
	require.NoError(t, err)
	require.Len(t, sess.Questions, 2)
	snapshot := append([]QuizQuestion(nil), sess.Questions...)

	_, err = store.InsertQuestion(ctx, NewQuestion{
		Text: "late", Choices: [4]string{"a", "b", "c", "d"}, CorrectChoice: 1,
	})
	require.NoError(t, err)
	require.NoError(t, sess.Answer(snapshot[0].ID, "a"))

	assert.Equal(t, snapshot, sess.Questions)
	assert.Equal(t, 1, repo.count("list_questions"))
}

func TestQuiz_EndToEnd(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	store := NewQuizStore(newMemStore(), WithMetrics(metrics))

	q, err := store.InsertQuestion(ctx, NewQuestion{
		Text:          "Is Git distributed?",
		Choices:       [4]string{"Yes", "No", "Maybe", "Unknown"},
		CorrectChoice: 1,
	})
	require.NoError(t, err)

	sess, err := StartQuiz(ctx, store, 5)
	require.NoError(t, err)
	require.Equal(t, StatePresenting, sess.State)
	require.Len(t, sess.Questions, 1)

	require.NoError(t, sess.Answer(q.ID, "Yes"))
	result, err := store.Grade(sess)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Score)
	assert.Equal(t, 1, result.Total)
	assert.True(t, result.Results[0].IsCorrect)
	assert.Equal(t, "Yes", result.Results[0].CorrectText)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.QuizzesGraded))
}
