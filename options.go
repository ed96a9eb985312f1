package gitdict

import "log/slog"

// options holds the shared configuration of NotesStore and QuizStore.
type options struct {
	logger  *slog.Logger
	metrics *Metrics
	order   QuestionOrder
}

// Option configures a NotesStore or QuizStore.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		logger: slog.Default(),
		order:  OrderInsertion,
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger used for store activity.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records store round trips in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithQuestionOrder selects how QuizStore.ListQuestions orders its batch.
// Ignored by NotesStore.
func WithQuestionOrder(order QuestionOrder) Option {
	return func(o *options) {
		o.order = order
	}
}
