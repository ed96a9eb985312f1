package gitdict

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore keeps notes and quiz questions in SQLite or MySQL through
// hand-written SQL
type SQLStore struct {
	db      *sql.DB
	dialect string
}

var sqlSchemas = map[string][]string{
	"sqlite3": {
		`CREATE TABLE IF NOT EXISTS learning_notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			note_text TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS quiz_questions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			question_text TEXT NOT NULL,
			choice_1 TEXT NOT NULL,
			choice_2 TEXT NOT NULL,
			choice_3 TEXT NOT NULL,
			choice_4 TEXT NOT NULL,
			correct_choice INTEGER NOT NULL,
			explanation TEXT,
			created_at DATETIME NOT NULL
		)`,
	},
	"mysql": {
		`CREATE TABLE IF NOT EXISTS learning_notes (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			note_text TEXT NOT NULL,
			created_at DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS quiz_questions (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			question_text TEXT NOT NULL,
			choice_1 TEXT NOT NULL,
			choice_2 TEXT NOT NULL,
			choice_3 TEXT NOT NULL,
			choice_4 TEXT NOT NULL,
			correct_choice INT NOT NULL,
			explanation TEXT,
			created_at DATETIME(6) NOT NULL
		)`,
	},
}

// OpenSQLStore opens a new database connection and creates the tables.
// driver is "sqlite" (or "sqlite3") or "mysql".
func OpenSQLStore(driver, dsn string) (*SQLStore, error) {
	var dialect string
	switch driver {
	case "sqlite", "sqlite3":
		dialect = "sqlite3"
	case "mysql":
		dialect = "mysql"
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.Loc = time.UTC
		dsn = cfg.FormatDSN()
	default:
		return nil, fmt.Errorf("unsupported sql driver: %q", driver)
	}

	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == "sqlite3" {
		// SQLite allows a single writer
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetConnMaxIdleTime(1 * time.Minute)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLStore{db: db, dialect: dialect}
	if err := s.CreateTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// CreateTables creates the necessary tables if they don't exist
func (s *SQLStore) CreateTables() error {
	for _, query := range sqlSchemas[s.dialect] {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute %s: %w", query, err)
		}
	}
	return nil
}

// InsertNote appends a learning note
func (s *SQLStore) InsertNote(ctx context.Context, text string) (LearningNote, error) {
	createdAt := time.Now().UTC().Truncate(time.Microsecond)
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO learning_notes (note_text, created_at) VALUES (?, ?)",
		text, createdAt,
	)
	if err != nil {
		return LearningNote{}, fmt.Errorf("failed to insert note: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return LearningNote{}, fmt.Errorf("failed to read note id: %w", err)
	}
	return LearningNote{ID: id, Text: text, CreatedAt: createdAt}, nil
}

// ListNotes retrieves notes newest first, optionally limited by count
func (s *SQLStore) ListNotes(ctx context.Context, limit int) ([]LearningNote, error) {
	query := "SELECT id, note_text, created_at FROM learning_notes ORDER BY id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get notes: %w", err)
	}
	defer rows.Close()

	var notes []LearningNote
	for rows.Next() {
		var n LearningNote
		if err := rows.Scan(&n.ID, &n.Text, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, n)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notes: %w", err)
	}

	return notes, nil
}

// InsertQuestion stores a quiz question
func (s *SQLStore) InsertQuestion(ctx context.Context, q QuizQuestion) (QuizQuestion, error) {
	q.CreatedAt = time.Now().UTC().Truncate(time.Microsecond)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO quiz_questions (question_text, choice_1, choice_2, choice_3, choice_4, correct_choice, explanation, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.Text, q.Choices[0], q.Choices[1], q.Choices[2], q.Choices[3], q.CorrectChoice, nullString(q.Explanation), q.CreatedAt,
	)
	if err != nil {
		return QuizQuestion{}, fmt.Errorf("failed to create question: %w", err)
	}
	if q.ID, err = res.LastInsertId(); err != nil {
		return QuizQuestion{}, fmt.Errorf("failed to read question id: %w", err)
	}
	return q, nil
}

// ListQuestions retrieves up to limit questions
func (s *SQLStore) ListQuestions(ctx context.Context, limit int, order QuestionOrder) ([]QuizQuestion, error) {
	query := `SELECT id, question_text, choice_1, choice_2, choice_3, choice_4, correct_choice, explanation, created_at
		FROM quiz_questions`
	switch {
	case order == OrderRandom && s.dialect == "mysql":
		query += " ORDER BY RAND()"
	case order == OrderRandom:
		query += " ORDER BY RANDOM()"
	default:
		query += " ORDER BY id"
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}
	defer rows.Close()

	var questions []QuizQuestion
	for rows.Next() {
		var q QuizQuestion
		var explanation sql.NullString
		err := rows.Scan(&q.ID, &q.Text, &q.Choices[0], &q.Choices[1], &q.Choices[2], &q.Choices[3],
			&q.CorrectChoice, &explanation, &q.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		q.Explanation = explanation.String
		questions = append(questions, q)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}

	return questions, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
