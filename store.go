package gitdict

import "fmt"

// Store is a backend for both the notes log and the quiz catalog
type Store interface {
	NoteRepository
	QuestionRepository
	Close() error
}

var (
	_ Store = (*SQLStore)(nil)
	_ Store = (*GormStore)(nil)
)

// OpenStore opens the backend named by cfg.StoreDriver
func OpenStore(cfg *Config) (Store, error) {
	switch cfg.StoreDriver {
	case "sqlite", "sqlite3", "mysql":
		return OpenSQLStore(cfg.StoreDriver, cfg.StoreDSN)
	case "postgres", "sqlite-gorm":
		return OpenGormStore(cfg.StoreDriver, cfg.StoreDSN)
	}
	return nil, fmt.Errorf("unsupported store driver: %q", cfg.StoreDriver)
}
