package main

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"gitdict"

	"github.com/gorilla/sessions"
)

// workflowSteps is the basic Git loop shown next to the glossary
var workflowSteps = []string{
	"Edit files in your working tree",
	"Stage the changes you want with git add",
	"Record them with git commit",
	"Share them with git push",
}

type indexData struct {
	Page        gitdict.PageModel
	FilterQuery template.URL
	NoteDraft   string
	NoteError   string
	Flashes     []string
	Workflow    []string
}

type quizData struct {
	Session *gitdict.QuizSession
	Error   string
}

type adminData struct {
	Form            gitdict.NewQuestion
	Fields          map[string]bool
	Error           string
	Added           string
	Drafts          []gitdict.NewQuestion
	DraftTerm       string
	DraftsDropped   int
	Terms           []gitdict.Term
	DraftingEnabled bool
	Questions       []gitdict.QuizQuestion

	storeDown bool
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, status int, data interface{}) {
	var buf bytes.Buffer
	if err := s.templates[name].ExecuteTemplate(&buf, "base.html", data); err != nil {
		requestLogger(r, s.logger).Error("template error", "template", name, "error", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// session returns the visitor's session. A cookie that no longer decodes
// yields a fresh session.
func (s *Server) session(r *http.Request) *sessions.Session {
	session, err := s.store.Get(r, sessionName)
	if err != nil {
		requestLogger(r, s.logger).Warn("discarding unreadable session", "error", err)
	}
	return session
}

func (s *Server) saveSession(w http.ResponseWriter, r *http.Request, session *sessions.Session) {
	if err := session.Save(r, w); err != nil {
		requestLogger(r, s.logger).Error("session save error", "error", err)
	}
}

// filterFromQuery reads the sidebar state from query parameters. The
// "filtered" marker tells an unchecked advanced box apart from a first visit.
func (s *Server) filterFromQuery(q url.Values) (gitdict.FilterConfig, error) {
	cfg := gitdict.DefaultFilterConfig()
	cfg.MaxItems = s.defaultMax

	category, err := gitdict.ParseCategory(q.Get("category"))
	if err != nil {
		return cfg, err
	}
	cfg.Category = category

	sortMode, err := gitdict.ParseSortMode(q.Get("sort"))
	if err != nil {
		return cfg, err
	}
	cfg.Sort = sortMode

	cfg.Query = strings.TrimSpace(q.Get("q"))

	if q.Has("filtered") {
		cfg.IncludeAdvanced = q.Get("advanced") == "on"
	} else if v := q.Get("advanced"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid advanced flag: %q", v)
		}
		cfg.IncludeAdvanced = b
	}

	if v := q.Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid max: %q", v)
		}
		cfg.MaxItems = gitdict.ClampMaxItems(n)
	}
	return cfg, nil
}

func encodeFilter(cfg gitdict.FilterConfig) string {
	q := url.Values{}
	q.Set("filtered", "1")
	q.Set("category", string(cfg.Category))
	q.Set("sort", string(cfg.Sort))
	q.Set("max", strconv.Itoa(cfg.MaxItems))
	if cfg.Query != "" {
		q.Set("q", cfg.Query)
	}
	if cfg.IncludeAdvanced {
		q.Set("advanced", "on")
	}
	return q.Encode()
}

func (s *Server) viewState(r *http.Request, session *sessions.Session) (gitdict.ViewState, error) {
	cfg, err := s.filterFromQuery(r.URL.Query())
	if err != nil {
		return gitdict.ViewState{}, err
	}
	state := gitdict.ViewState{Filter: cfg, Selection: gitdict.NewSelection()}
	if id, ok := session.Values["selected_term"].(string); ok {
		state.Selection.Select(id)
	}
	return state, nil
}

func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, status int, state gitdict.ViewState, data indexData) {
	data.Page = s.dict.BuildPage(r.Context(), state)
	data.FilterQuery = template.URL(encodeFilter(state.Filter))
	data.Workflow = workflowSteps
	s.render(w, r, "index", status, data)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	session := s.session(r)
	state, err := s.viewState(r, session)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if id := r.URL.Query().Get("term"); id != "" {
		state.Selection.Select(id)
		session.Values["selected_term"] = id
	}

	var flashes []string
	for _, f := range session.Flashes() {
		if msg, ok := f.(string); ok {
			flashes = append(flashes, msg)
		}
	}
	s.saveSession(w, r, session)

	s.renderIndex(w, r, http.StatusOK, state, indexData{Flashes: flashes})
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	session := s.session(r)
	state, err := s.viewState(r, session)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	text := r.PostForm.Get("note_text")
	note, err := s.dict.Notes().Append(r.Context(), text)
	if err != nil {
		// the draft is handed back so nothing typed is lost
		data := indexData{NoteDraft: text}
		status := http.StatusServiceUnavailable
		if gitdict.IsValidation(err) {
			status = http.StatusUnprocessableEntity
			data.NoteError = "Please write something before saving."
		} else {
			data.NoteError = "Could not save your note. It is kept below, please try again."
		}
		s.renderIndex(w, r, status, state, data)
		return
	}

	requestLogger(r, s.logger).Info("note saved", "note_id", note.ID)
	session.AddFlash("Note saved.")
	s.saveSession(w, r, session)
	http.Redirect(w, r, "/?"+encodeFilter(state.Filter)+"#notes", http.StatusSeeOther)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.filterFromQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var buf bytes.Buffer
	if err := gitdict.WriteCSV(&buf, s.dict.Search(cfg)); err != nil {
		requestLogger(r, s.logger).Error("csv export failed", "error", err)
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+gitdict.ExportFilename+`"`)
	buf.WriteTo(w)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.filterFromQuery(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var buf bytes.Buffer
	if err := gitdict.WriteXLSX(&buf, s.dict.Search(cfg)); err != nil {
		requestLogger(r, s.logger).Error("xlsx export failed", "error", err)
		http.Error(w, "Export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="git_terms.xlsx"`)
	buf.WriteTo(w)
}

func quizFromSession(session *sessions.Session) *gitdict.QuizSession {
	sess, _ := session.Values["quiz"].(*gitdict.QuizSession)
	return sess
}

// handleQuiz shows the attempt in progress, or starts one. The batch is
// fetched once per attempt so choices never reshuffle between requests.
func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	session := s.session(r)
	sess := quizFromSession(session)

	if sess == nil || sess.Done() || r.URL.Query().Has("new") {
		var err error
		sess, err = gitdict.StartQuiz(r.Context(), s.quizzes, s.batchSize)
		if err != nil {
			s.render(w, r, "quiz", http.StatusServiceUnavailable, quizData{
				Error: "The quiz store is unavailable right now. Please try again.",
			})
			return
		}
		session.Values["quiz"] = sess
		s.saveSession(w, r, session)
	}

	s.render(w, r, "quiz", http.StatusOK, quizData{Session: sess})
}

func (s *Server) handleGrade(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	session := s.session(r)
	sess := quizFromSession(session)
	if sess == nil || sess.State != gitdict.StatePresenting {
		http.Redirect(w, r, "/quiz", http.StatusSeeOther)
		return
	}

	for _, q := range sess.Questions {
		choice := r.PostForm.Get(fmt.Sprintf("answer_%d", q.ID))
		if choice == "" {
			continue
		}
		if err := sess.Answer(q.ID, choice); err != nil {
			s.render(w, r, "quiz", http.StatusUnprocessableEntity, quizData{
				Session: sess,
				Error:   "One of the answers is not a valid choice.",
			})
			return
		}
	}

	if _, err := s.quizzes.Grade(sess); err != nil {
		requestLogger(r, s.logger).Error("failed to grade quiz", "error", err)
		http.Redirect(w, r, "/quiz", http.StatusSeeOther)
		return
	}
	session.Values["quiz"] = sess
	s.saveSession(w, r, session)
	http.Redirect(w, r, "/quiz/results", http.StatusSeeOther)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	sess := quizFromSession(s.session(r))
	if sess == nil || sess.State != gitdict.StateScored {
		http.Redirect(w, r, "/quiz", http.StatusSeeOther)
		return
	}
	s.render(w, r, "quiz_results", http.StatusOK, quizData{Session: sess})
}

func (s *Server) adminData(r *http.Request) adminData {
	data := adminData{
		Form:            gitdict.NewQuestion{CorrectChoice: 1},
		Terms:           s.dict.Catalog().Terms(),
		DraftingEnabled: s.drafter != nil,
		Added:           r.URL.Query().Get("added"),
	}
	questions, err := s.quizzes.ListQuestions(r.Context(), 0)
	if err != nil {
		data.Error = "The quiz store is unavailable right now."
		data.storeDown = true
		return data
	}
	data.Questions = questions
	return data
}

func (s *Server) handleQuizAdmin(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "quiz_admin", http.StatusOK, s.adminData(r))
}

func questionFromForm(form url.Values) gitdict.NewQuestion {
	n := gitdict.NewQuestion{
		Text:        form.Get("question_text"),
		Explanation: form.Get("explanation"),
	}
	for i := range n.Choices {
		n.Choices[i] = form.Get(fmt.Sprintf("choice_%d", i+1))
	}
	// a non-numeric value stays 0 and fails validation
	n.CorrectChoice, _ = strconv.Atoi(form.Get("correct_choice"))
	return n
}

func (s *Server) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}
	form := questionFromForm(r.PostForm)

	q, err := s.quizzes.InsertQuestion(r.Context(), form)
	if err != nil {
		data := s.adminData(r)
		data.Form = form
		status := http.StatusServiceUnavailable
		var ve *gitdict.ValidationError
		if errors.As(err, &ve) {
			status = http.StatusUnprocessableEntity
			data.Fields = make(map[string]bool, len(ve.Fields))
			for _, f := range ve.Fields {
				data.Fields[f] = true
			}
			data.Error = "Fill in the question, all four choices and pick the correct one (1-4)."
		} else {
			data.Error = "Could not save the question. Please try again."
		}
		s.render(w, r, "quiz_admin", status, data)
		return
	}

	http.Redirect(w, r, "/quiz/admin?added="+strconv.FormatInt(q.ID, 10), http.StatusSeeOther)
}

func (s *Server) handleDraftQuestions(w http.ResponseWriter, r *http.Request) {
	if s.drafter == nil {
		http.NotFound(w, r)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	data := s.adminData(r)
	if data.storeDown {
		// without the stored questions there is nothing to dedupe against
		s.render(w, r, "quiz_admin", http.StatusServiceUnavailable, data)
		return
	}
	term, ok := s.dict.Catalog().Lookup(r.PostForm.Get("term"))
	if !ok {
		data.Error = "Pick a term to draft questions about."
		s.render(w, r, "quiz_admin", http.StatusUnprocessableEntity, data)
		return
	}
	count, err := strconv.Atoi(r.PostForm.Get("count"))
	if err != nil || count <= 0 {
		count = 1
	}
	if count > 5 {
		count = 5
	}

	drafts, err := s.drafter.DraftQuestions(r.Context(), term, count)
	if err != nil {
		requestLogger(r, s.logger).Error("failed to draft questions", "term", term.ID, "error", err)
		data.Error = "Drafting failed. Please try again."
		s.render(w, r, "quiz_admin", http.StatusBadGateway, data)
		return
	}
	data.Drafts, data.DraftsDropped = s.drafter.NewDedup(data.Questions).Filter(r.Context(), drafts)
	data.DraftTerm = term.ID
	s.render(w, r, "quiz_admin", http.StatusOK, data)
}
