package main

import (
	"embed"
	"encoding/gob"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"time"

	"gitdict"

	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
)

//go:embed templates/*.html
var templateFS embed.FS

const sessionName = "gitdict-session"

type Server struct {
	dict       *gitdict.Dictionary
	quizzes    *gitdict.QuizStore
	drafter    *gitdict.QuestionDrafter
	store      sessions.Store
	templates  map[string]*template.Template
	registry   *prometheus.Registry
	logger     *slog.Logger
	batchSize  int
	notesLimit int
	defaultMax int
	corsOrigin []string
}

func init() {
	gob.Register(&gitdict.QuizSession{})
}

func main() {
	cfg, err := gitdict.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.RequireSessionSecret(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	logger := gitdict.InitLogging(os.Stderr, cfg.Verbose, cfg.LogFormat)

	// Initialize database
	db, err := gitdict.OpenStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Quiz sessions hold a whole question batch, more than a cookie can carry
	sessionStore := sessions.NewFilesystemStore("", []byte(cfg.SessionSecret))
	sessionStore.MaxLength(0)
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	server, err := newServer(serverDeps{
		cfg:      cfg,
		store:    db,
		sessions: sessionStore,
		registry: registry,
		logger:   logger,
	})
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("starting server", "port", cfg.Port, "store", cfg.StoreDriver)
	if err := httpServer.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

type serverDeps struct {
	cfg      *gitdict.Config
	store    gitdict.Store
	sessions sessions.Store
	registry *prometheus.Registry
	logger   *slog.Logger
	drafter  *gitdict.QuestionDrafter
}

func newServer(d serverDeps) (*Server, error) {
	metrics := gitdict.NewMetrics(d.registry)
	opts := []gitdict.Option{
		gitdict.WithLogger(d.logger),
		gitdict.WithMetrics(metrics),
		gitdict.WithQuestionOrder(d.cfg.QuizOrder),
	}

	notes := gitdict.NewNotesStore(d.store, opts...)
	drafter := d.drafter
	if drafter == nil && d.cfg.OpenAIAPIKey != "" {
		drafter = gitdict.NewQuestionDrafterFromKey(d.cfg.OpenAIAPIKey, d.cfg.OpenAIModel, opts...)
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	return &Server{
		dict:       gitdict.NewDictionary(gitdict.DefaultCatalog(), notes, d.cfg.NotesLimit),
		quizzes:    gitdict.NewQuizStore(d.store, opts...),
		drafter:    drafter,
		store:      d.sessions,
		templates:  templates,
		registry:   d.registry,
		logger:     d.logger,
		batchSize:  d.cfg.QuizBatchSize,
		notesLimit: d.cfg.NotesLimit,
		defaultMax: d.cfg.DefaultMaxItems,
		corsOrigin: d.cfg.CORSOrigins,
	}, nil
}

func loadTemplates() (map[string]*template.Template, error) {
	funcMap := template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"formatTime": func(t time.Time) string {
			return t.Local().Format("2006-01-02 15:04")
		},
		"percent": func(score, total int) int {
			if total == 0 {
				return 0
			}
			return score * 100 / total
		},
		"maxOptions": func() []int {
			var opts []int
			for n := gitdict.MinMaxItems; n <= gitdict.MaxMaxItems; n += gitdict.MaxItemsStep {
				opts = append(opts, n)
			}
			return opts
		},
	}

	// Create template map
	templates := make(map[string]*template.Template)

	// Load each template with base.html
	templateFiles := []struct {
		name string
		file string
	}{
		{"index", "templates/index.html"},
		{"quiz", "templates/quiz.html"},
		{"quiz_results", "templates/quiz_results.html"},
		{"quiz_admin", "templates/quiz_admin.html"},
	}

	for _, tmpl := range templateFiles {
		t, err := template.New(tmpl.name).Funcs(funcMap).ParseFS(templateFS, "templates/base.html", tmpl.file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", tmpl.file, err)
		}
		templates[tmpl.name] = t
	}
	return templates, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Dictionary
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /notes", s.handleAddNote)
	mux.HandleFunc("GET /export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /export.xlsx", s.handleExportXLSX)

	// Quiz
	mux.HandleFunc("GET /quiz", s.handleQuiz)
	mux.HandleFunc("POST /quiz/grade", s.handleGrade)
	mux.HandleFunc("GET /quiz/results", s.handleResults)
	mux.HandleFunc("GET /quiz/admin", s.handleQuizAdmin)
	mux.HandleFunc("POST /quiz/admin", s.handleAddQuestion)
	mux.HandleFunc("POST /quiz/admin/draft", s.handleDraftQuestions)

	// JSON API
	api := http.NewServeMux()
	api.HandleFunc("GET /api/terms", s.apiListTerms)
	api.HandleFunc("GET /api/terms/{id}", s.apiGetTerm)
	api.HandleFunc("GET /api/notes", s.apiListNotes)
	api.HandleFunc("POST /api/notes", s.apiAddNote)
	api.HandleFunc("GET /api/quiz/questions", s.apiListQuestions)
	api.HandleFunc("POST /api/quiz/questions", s.apiAddQuestion)
	mux.Handle("/api/", s.withCORS(api))

	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	return s.requestID(s.logRequests(mux))
}

func (s *Server) withCORS(h http.Handler) http.Handler {
	if len(s.corsOrigin) == 0 {
		return h
	}
	return cors.New(cors.Options{
		AllowedOrigins: s.corsOrigin,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Accept", "Origin", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         86400,
	}).Handler(h)
}
