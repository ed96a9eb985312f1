package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gitdict"
)

type apiError struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeStoreError maps validation failures to 422 and everything else to 503
func (s *Server) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *gitdict.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, http.StatusUnprocessableEntity, apiError{Error: ve.Message, Fields: ve.Fields})
		return
	}
	requestLogger(r, s.logger).Error("store request failed", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusServiceUnavailable, apiError{Error: "store unavailable"})
}

// limitParam reads the limit query value. Missing or non-positive values give
// def; a positive ceiling caps the result.
func limitParam(r *http.Request, def, ceiling int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return def, nil
	}
	if ceiling > 0 && n > ceiling {
		return ceiling, nil
	}
	return n, nil
}

func (s *Server) apiListTerms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cfg, err := s.filterFromQuery(q)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}
	// the API takes max as given, without the slider clamp, and is
	// unbounded without it
	cfg.MaxItems = 0
	if v := q.Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid max"})
			return
		}
		cfg.MaxItems = n
	}
	terms := s.dict.Search(cfg)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(terms),
		"terms": terms,
	})
}

func (s *Server) apiGetTerm(w http.ResponseWriter, r *http.Request) {
	term, ok := s.dict.Catalog().Lookup(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "term not found"})
		return
	}
	related := s.dict.Catalog().Related(term)
	if related == nil {
		related = []gitdict.Term{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"term":    term,
		"related": related,
	})
}

func (s *Server) apiListNotes(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, s.notesLimit, s.notesLimit)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid limit"})
		return
	}
	notes, err := s.dict.Notes().List(r.Context(), limit)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

func (s *Server) apiAddNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"note_text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid JSON body"})
		return
	}
	note, err := s.dict.Notes().Append(r.Context(), req.Text)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

func (s *Server) apiListQuestions(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r, s.batchSize, 0)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid limit"})
		return
	}
	questions, err := s.quizzes.ListQuestions(r.Context(), limit)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (s *Server) apiAddQuestion(w http.ResponseWriter, r *http.Request) {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	var req gitdict.NewQuestion
	if err := decoder.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid JSON body"})
		return
	}
	q, err := s.quizzes.InsertQuestion(r.Context(), req)
	if err != nil {
		s.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}
