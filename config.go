package gitdict

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds runtime settings shared by the web server, the CLI and the
// MCP server.
type Config struct {
	StoreDriver     string
	StoreDSN        string
	SessionSecret   string
	Port            string
	QuizBatchSize   int
	QuizOrder       QuestionOrder
	NotesLimit      int
	DefaultMaxItems int
	OpenAIAPIKey    string
	OpenAIModel     string
	CORSOrigins     []string
	LogFormat       string
	Verbose         bool
}

// LoadConfig reads the given .env files (or ".env" when none are named;
// missing files are ignored) and then the process environment.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	order, err := ParseQuestionOrder(getEnv("QUIZ_ORDER", string(OrderInsertion)))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		StoreDriver:     getEnv("STORE_DRIVER", "sqlite"),
		StoreDSN:        getEnv("STORE_DSN", ""),
		SessionSecret:   getEnv("SESSION_SECRET", ""),
		Port:            getEnv("PORT", "8180"),
		QuizBatchSize:   getIntEnv("QUIZ_BATCH_SIZE", 5),
		QuizOrder:       order,
		NotesLimit:      getIntEnv("NOTES_LIMIT", 50),
		DefaultMaxItems: ClampMaxItems(getIntEnv("DEFAULT_MAX_ITEMS", DefaultMaxItems)),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "")),
		LogFormat:       getEnv("LOG_FORMAT", "text"),
		Verbose:         getBoolEnv("VERBOSE", false),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings every entry point needs
func (c *Config) Validate() error {
	var fields []string
	if strings.TrimSpace(c.StoreDSN) == "" {
		fields = append(fields, "STORE_DSN")
	}
	switch c.StoreDriver {
	case "sqlite", "sqlite3", "sqlite-gorm", "postgres", "mysql":
	default:
		fields = append(fields, "STORE_DRIVER")
	}
	if c.QuizBatchSize <= 0 {
		fields = append(fields, "QUIZ_BATCH_SIZE")
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields, Message: "invalid configuration"}
	}
	return nil
}

// RequireSessionSecret reports a missing SESSION_SECRET. Only the web server
// keeps cookie sessions.
func (c *Config) RequireSessionSecret() error {
	if c.SessionSecret == "" {
		return &ValidationError{Fields: []string{"SESSION_SECRET"}, Message: "invalid configuration"}
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
