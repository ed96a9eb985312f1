package gitdict

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type noteRow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	NoteText  string    `gorm:"column:note_text;type:text;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (noteRow) TableName() string { return "learning_notes" }

type questionRow struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	QuestionText  string    `gorm:"column:question_text;type:text;not null"`
	Choice1       string    `gorm:"column:choice_1;type:text;not null"`
	Choice2       string    `gorm:"column:choice_2;type:text;not null"`
	Choice3       string    `gorm:"column:choice_3;type:text;not null"`
	Choice4       string    `gorm:"column:choice_4;type:text;not null"`
	CorrectChoice int       `gorm:"column:correct_choice;not null"`
	Explanation   *string   `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (questionRow) TableName() string { return "quiz_questions" }

func (r questionRow) question() QuizQuestion {
	q := QuizQuestion{
		ID:            r.ID,
		Text:          r.QuestionText,
		Choices:       [4]string{r.Choice1, r.Choice2, r.Choice3, r.Choice4},
		CorrectChoice: r.CorrectChoice,
		CreatedAt:     r.CreatedAt,
	}
	if r.Explanation != nil {
		q.Explanation = *r.Explanation
	}
	return q
}

// GormStore keeps notes and quiz questions through GORM. It backs the hosted
// Postgres deployment and an ORM-managed SQLite file.
type GormStore struct {
	db      *gorm.DB
	dialect string
}

// OpenGormStore connects and migrates the schema. driver is "postgres" or
// "sqlite-gorm".
func OpenGormStore(driver, dsn string) (*GormStore, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite-gorm":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported gorm driver: %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if driver == "sqlite-gorm" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(&noteRow{}, &questionRow{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate database: %w", err)
	}
	return &GormStore{db: db, dialect: driver}, nil
}

// Close releases the underlying connection pool
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InsertNote appends a learning note
func (s *GormStore) InsertNote(ctx context.Context, text string) (LearningNote, error) {
	row := noteRow{NoteText: text, CreatedAt: time.Now().UTC().Truncate(time.Microsecond)}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return LearningNote{}, fmt.Errorf("failed to insert note: %w", err)
	}
	return LearningNote{ID: row.ID, Text: row.NoteText, CreatedAt: row.CreatedAt}, nil
}

// ListNotes retrieves notes newest first, optionally limited by count
func (s *GormStore) ListNotes(ctx context.Context, limit int) ([]LearningNote, error) {
	var rows []noteRow
	tx := s.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get notes: %w", err)
	}

	notes := make([]LearningNote, 0, len(rows))
	for _, r := range rows {
		notes = append(notes, LearningNote{ID: r.ID, Text: r.NoteText, CreatedAt: r.CreatedAt})
	}
	return notes, nil
}

// InsertQuestion stores a quiz question
func (s *GormStore) InsertQuestion(ctx context.Context, q QuizQuestion) (QuizQuestion, error) {
	row := questionRow{
		QuestionText:  q.Text,
		Choice1:       q.Choices[0],
		Choice2:       q.Choices[1],
		Choice3:       q.Choices[2],
		Choice4:       q.Choices[3],
		CorrectChoice: q.CorrectChoice,
		CreatedAt:     time.Now().UTC().Truncate(time.Microsecond),
	}
	if q.Explanation != "" {
		row.Explanation = &q.Explanation
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return QuizQuestion{}, fmt.Errorf("failed to create question: %w", err)
	}
	return row.question(), nil
}

// ListQuestions retrieves up to limit questions
func (s *GormStore) ListQuestions(ctx context.Context, limit int, order QuestionOrder) ([]QuizQuestion, error) {
	var rows []questionRow
	tx := s.db.WithContext(ctx)
	if order == OrderRandom {
		// RANDOM() exists in both Postgres and SQLite
		tx = tx.Order("RANDOM()")
	} else {
		tx = tx.Order("id")
	}
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get questions: %w", err)
	}

	questions := make([]QuizQuestion, 0, len(rows))
	for _, r := range rows {
		questions = append(questions, r.question())
	}
	return questions, nil
}
