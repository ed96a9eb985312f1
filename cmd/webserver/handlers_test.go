package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"gitdict"

	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	server *httptest.Server
	client *http.Client
	store  *gitdict.SQLStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil, nil)
}

// newTestEnvWith builds a server with an optional drafter; configure, when
// set, adjusts the config first
func newTestEnvWith(t *testing.T, drafter *gitdict.QuestionDrafter, configure func(*gitdict.Config)) *testEnv {
	t.Helper()
	store, err := gitdict.OpenSQLStore("sqlite", filepath.Join(t.TempDir(), "gitdict.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sessionStore := sessions.NewFilesystemStore(t.TempDir(), []byte("test-secret-key-0123456789abcdef"))
	sessionStore.MaxLength(0)

	cfg := &gitdict.Config{
		QuizBatchSize:   5,
		QuizOrder:       gitdict.OrderInsertion,
		NotesLimit:      50,
		DefaultMaxItems: gitdict.DefaultMaxItems,
	}
	if configure != nil {
		configure(cfg)
	}

	srv, err := newServer(serverDeps{
		cfg:      cfg,
		store:    store,
		sessions: sessionStore,
		registry: prometheus.NewRegistry(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		drafter:  drafter,
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{server: ts, client: client, store: store}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.PostForm(e.server.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (e *testEnv) postJSON(t *testing.T, path, payload string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Post(e.server.URL+path, "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestIndex_Defaults(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.get(t, "/")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Contains(t, body, "<h2 id=\"detail\">Repository</h2>")
	assert.Contains(t, body, "20 matching terms")
	assert.Contains(t, body, "in 4 categories")
	assert.Contains(t, body, "No notes yet.")
	assert.Contains(t, body, "What is Git?")
}

func TestIndex_Filtering(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.get(t, "/?filtered=1&category=troubleshooting&advanced=on&max=50")
	assert.Contains(t, body, "term=reflog\"")
	assert.NotContains(t, body, "term=rebase\"")

	// unchecked advanced box hides troubleshooting entirely
	_, body = env.get(t, "/?filtered=1&category=troubleshooting&max=50")
	assert.Contains(t, body, "No terms match your search.")

	_, body = env.get(t, "/?q=COMMIT&max=50")
	assert.Contains(t, body, "term=commit\"")
	assert.NotContains(t, body, "term=fork\"")

	resp, _ := env.get(t, "/?category=wizardry")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIndex_SelectionIsRememberedAndFallsBack(t *testing.T) {
	env := newTestEnv(t)

	_, body := env.get(t, "/?term=rebase")
	assert.Contains(t, body, "<h2 id=\"detail\">Rebase</h2>")

	_, body = env.get(t, "/?q=merge")
	assert.Contains(t, body, "<h2 id=\"detail\">Rebase</h2>")

	_, body = env.get(t, "/?term=does-not-exist")
	assert.Contains(t, body, "<h2 id=\"detail\">Repository</h2>")
}

func TestNotes_SaveRedirectsAndShowsHistory(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.postForm(t, "/notes?filtered=1&category=all&max=20&advanced=on", url.Values{"note_text": {"  learned **rebase**  "}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	location := resp.Header.Get("Location")
	assert.True(t, strings.HasPrefix(location, "/?"), location)
	assert.True(t, strings.HasSuffix(location, "#notes"), location)

	_, body := env.get(t, strings.TrimSuffix(location, "#notes"))
	assert.Contains(t, body, "Note saved.")
	assert.Contains(t, body, "learned <strong>rebase</strong>")

	// flashes are shown once
	_, body = env.get(t, "/")
	assert.NotContains(t, body, "Note saved.")
}

func TestNotes_BlankIsRejected(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.postForm(t, "/notes", url.Values{"note_text": {"   "}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "Please write something before saving.")
}

func TestNotes_StoreFailureKeepsDraft(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Close())

	resp, body := env.postForm(t, "/notes", url.Values{"note_text": {"do not lose me"}})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "Could not save your note.")
	assert.Contains(t, body, ">do not lose me</textarea>")

	// the glossary still renders with the history blanked
	resp, body = env.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Notes are unavailable right now.")
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.get(t, "/export.csv?filtered=1&category=troubleshooting&advanced=on&max=50")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "git_terms.csv")
	assert.True(t, strings.HasPrefix(body, "\ufeffid,name,category,short_description\n"))
	assert.Contains(t, body, "reflog,Reflog,troubleshooting,")
	assert.NotContains(t, body, "basic-concept")
}

func TestExportXLSX(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.get(t, "/export.xlsx")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(body, "PK"))
}

func TestQuiz_NoQuestions(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.get(t, "/quiz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "There are no quiz questions yet.")
}

func TestQuiz_AdminAndGrading(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.postForm(t, "/quiz/admin", url.Values{
		"question_text":  {""},
		"choice_1":       {"Yes"},
		"choice_2":       {"No"},
		"choice_3":       {"Maybe"},
		"choice_4":       {"Unknown"},
		"correct_choice": {"9"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, `name="question_text" rows="3" cols="60" class="invalid"`)
	assert.Contains(t, body, `value="Yes"`)

	resp, _ = env.postForm(t, "/quiz/admin", url.Values{
		"question_text":  {"Is Git distributed?"},
		"choice_1":       {"Yes"},
		"choice_2":       {"No"},
		"choice_3":       {"Maybe"},
		"choice_4":       {"Unknown"},
		"correct_choice": {"1"},
		"explanation":    {"Every clone has the full history."},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/quiz/admin?added=1", resp.Header.Get("Location"))

	_, body = env.get(t, "/quiz?new=1")
	assert.Contains(t, body, "Is Git distributed?")
	assert.Contains(t, body, `name="answer_1" value="Yes"`)

	// results are not available before grading
	resp, _ = env.get(t, "/quiz/results")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	resp, body = env.postForm(t, "/quiz/grade", url.Values{"answer_1": {"Certainly"}})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "not a valid choice")

	resp, _ = env.postForm(t, "/quiz/grade", url.Values{"answer_1": {"Yes"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/quiz/results", resp.Header.Get("Location"))

	_, body = env.get(t, "/quiz/results")
	assert.Contains(t, body, "Score: 1 / 1 (100%)")
	assert.Contains(t, body, "Correct: Yes")
	assert.Contains(t, body, "Every clone has the full history.")

	// a scored attempt cannot be graded again
	resp, _ = env.postForm(t, "/quiz/grade", url.Values{"answer_1": {"No"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/quiz", resp.Header.Get("Location"))
}

func TestQuizAdmin_DraftingDisabledWithoutKey(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.postForm(t, "/quiz/admin/draft", url.Values{"term": {"fetch"}, "count": {"2"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// fakeDrafter answers submit_questions with two fetch drafts and every
// check_duplicate with "not a duplicate". calls counts the requests.
func fakeDrafter(t *testing.T) (*gitdict.QuestionDrafter, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		call := openai.FunctionCall{
			Name: "submit_questions",
			Arguments: `{"questions":[
				{"question_text":"What does git fetch do?","choices":["Downloads","Merges","Deletes","Tags"],"correct_choice":1,"explanation":""},
				{"question_text":"Which command downloads without merging?","choices":["git fetch","git pull","git push","git tag"],"correct_choice":1,"explanation":""}
			]}`,
		}
		if len(req.Tools) > 0 && req.Tools[0].Function.Name == "check_duplicate" {
			call = openai.FunctionCall{
				Name:      "check_duplicate",
				Arguments: `{"reason":"asks about a different aspect","is_duplicate":false,"duplicate_id":""}`,
			}
		}
		resp := openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{
					Role: openai.ChatMessageRoleAssistant,
					ToolCalls: []openai.ToolCall{{
						Type:     openai.ToolTypeFunction,
						Function: call,
					}},
				},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("test-key")
	cfg.BaseURL = srv.URL + "/v1"
	return gitdict.NewQuestionDrafter(openai.NewClientWithConfig(cfg), ""), &calls
}

func TestQuizAdmin_DraftDropsDuplicates(t *testing.T) {
	drafter, calls := fakeDrafter(t)
	env := newTestEnvWith(t, drafter, nil)

	_, err := gitdict.NewQuizStore(env.store).InsertQuestion(t.Context(), gitdict.NewQuestion{
		Text:          "What does git fetch do?",
		Choices:       [4]string{"Downloads", "Merges", "Deletes", "Tags"},
		CorrectChoice: 1,
	})
	require.NoError(t, err)

	resp, body := env.postForm(t, "/quiz/admin/draft", url.Values{"term": {"fetch"}, "count": {"2"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "1 drafts repeated existing questions and were dropped.")
	assert.Contains(t, body, "Which command downloads without merging?")
	assert.Equal(t, 1, strings.Count(body, "Draft about fetch"))

	// one drafting request, then one duplicate check for the draft that
	// did not repeat the stored text
	assert.Equal(t, int32(2), calls.Load())
}

func TestQuizAdmin_DraftNeedsQuestionStore(t *testing.T) {
	drafter, calls := fakeDrafter(t)
	env := newTestEnvWith(t, drafter, nil)
	require.NoError(t, env.store.Close())

	resp, body := env.postForm(t, "/quiz/admin/draft", url.Values{"term": {"fetch"}, "count": {"2"}})
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body, "The quiz store is unavailable right now.")
	assert.NotContains(t, body, "Draft about fetch")
	assert.Zero(t, calls.Load())
}

func TestAPI_Terms(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/api/terms?q=merge")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Count int            `json:"count"`
		Terms []gitdict.Term `json:"terms"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	assert.Equal(t, len(list.Terms), list.Count)
	require.NotEmpty(t, list.Terms)
	for _, term := range list.Terms {
		assert.Contains(t, strings.ToLower(term.Name+" "+term.ShortDescription), "merge")
	}

	resp, body = env.get(t, "/api/terms/tag")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail struct {
		Term    gitdict.Term   `json:"term"`
		Related []gitdict.Term `json:"related"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &detail))
	assert.Equal(t, "Tag", detail.Term.Name)
	require.Len(t, detail.Related, 1)
	assert.Equal(t, "commit", detail.Related[0].ID)

	resp, _ = env.get(t, "/api/terms/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_TermsMaxIsNotClamped(t *testing.T) {
	env := newTestEnv(t)
	count := func(path string) int {
		t.Helper()
		resp, body := env.get(t, path)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var list struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &list))
		return list.Count
	}

	// the page slider would snap these to 5
	assert.Equal(t, 3, count("/api/terms?max=3"))
	assert.Equal(t, 7, count("/api/terms?max=7"))
	assert.Equal(t, gitdict.DefaultCatalog().Len(), count("/api/terms"))
	assert.Equal(t, gitdict.DefaultCatalog().Len(), count("/api/terms?max=0"))
	assert.Equal(t, gitdict.DefaultCatalog().Len(), count("/api/terms?max=1000"))

	resp, _ := env.get(t, "/api/terms?max=lots")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_NotesAndQuestions(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.postJSON(t, "/api/notes", `{"note_text":"   "}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "note_text")

	resp, _ = env.postJSON(t, "/api/notes", `{"note_text":"first"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = env.postJSON(t, "/api/notes", `{"note_text":"second"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	_, body = env.get(t, "/api/notes?limit=10")
	var notes []gitdict.LearningNote
	require.NoError(t, json.Unmarshal([]byte(body), &notes))
	require.Len(t, notes, 2)
	assert.Equal(t, "second", notes[0].Text)

	resp, body = env.postJSON(t, "/api/quiz/questions", `{"question_text":"q","choices":["a","","c","d"],"correct_choice":2}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, "choice_2")

	resp, _ = env.postJSON(t, "/api/quiz/questions", `{"question_text":"q","choices":["a","b","c","d"],"correct_choice":2}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	_, body = env.get(t, "/api/quiz/questions")
	var questions []gitdict.QuizQuestion
	require.NoError(t, json.Unmarshal([]byte(body), &questions))
	require.Len(t, questions, 1)
	assert.Equal(t, "b", questions[0].CorrectText())

	require.NoError(t, env.store.Close())
	resp, _ = env.get(t, "/api/quiz/questions")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAPI_NotesLimitIsCapped(t *testing.T) {
	env := newTestEnvWith(t, nil, func(cfg *gitdict.Config) { cfg.NotesLimit = 2 })
	for _, text := range []string{"one", "two", "three"} {
		resp, _ := env.postJSON(t, "/api/notes", `{"note_text":"`+text+`"}`)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	listed := func(path string) []gitdict.LearningNote {
		t.Helper()
		resp, body := env.get(t, path)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var notes []gitdict.LearningNote
		require.NoError(t, json.Unmarshal([]byte(body), &notes))
		return notes
	}

	assert.Len(t, listed("/api/notes"), 2)
	assert.Len(t, listed("/api/notes?limit=100"), 2)
	assert.Len(t, listed("/api/notes?limit=0"), 2)
	notes := listed("/api/notes?limit=1")
	require.Len(t, notes, 1)
	assert.Equal(t, "three", notes[0].Text)

	resp, _ := env.get(t, "/api/notes?limit=many")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)

	env.postJSON(t, "/api/notes", `{"note_text":"counted"}`)
	_, body = env.get(t, "/metrics")
	assert.Contains(t, body, `gitdict_store_operations_total{op="insert_note",outcome="ok"} 1`)
}
