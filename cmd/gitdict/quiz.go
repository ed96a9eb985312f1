package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"gitdict"

	"github.com/spf13/cobra"
)

var choiceLetters = []string{"A", "B", "C", "D"}

func newQuizCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quiz",
		Short: "Manage and take multiple choice quizzes",
	}
	cmd.AddCommand(
		newQuizAddCmd(flags),
		newQuizListCmd(flags),
		newQuizTakeCmd(flags),
		newQuizDraftCmd(flags),
	)
	return cmd
}

func newQuizAddCmd(flags *rootFlags) *cobra.Command {
	var (
		question    string
		choices     []string
		correct     int
		explanation string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a quiz question",
		Example: `  gitdict quiz add -q "Which command records staged changes?" \
    --choice "git add" --choice "git commit" --choice "git push" --choice "git fetch" \
    --correct 2 --explanation "commit snapshots the index"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(choices) != 4 {
				return fmt.Errorf("exactly 4 --choice values are required, got %d", len(choices))
			}
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			n := gitdict.NewQuestion{
				Text:          question,
				CorrectChoice: correct,
				Explanation:   explanation,
			}
			copy(n.Choices[:], choices)

			q, err := a.quizzes.InsertQuestion(cmd.Context(), n)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Question %d added.\n", q.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "Question text")
	cmd.Flags().StringArrayVar(&choices, "choice", nil, "Answer choice, repeat 4 times")
	cmd.Flags().IntVar(&correct, "correct", 0, "Number of the correct choice (1-4)")
	cmd.Flags().StringVar(&explanation, "explanation", "", "Optional explanation shown after grading")
	return cmd
}

func newQuizListCmd(flags *rootFlags) *cobra.Command {
	var (
		limit    int
		jsonMode bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List quiz questions with their answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if limit <= 0 {
				limit = a.cfg.QuizBatchSize
			}
			questions, err := a.quizzes.ListQuestions(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonMode {
				return encodeJSON(out, questions)
			}
			if len(questions) == 0 {
				fmt.Fprintln(out, "There are no quiz questions yet.")
				return nil
			}
			for _, q := range questions {
				printQuestion(out, q, fmt.Sprintf("[%d]", q.ID))
				fmt.Fprintf(out, "Answer: %s) %s\n\n", choiceLetters[q.CorrectIndex()], q.CorrectText())
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of questions (default QUIZ_BATCH_SIZE)")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output in JSON format")
	return cmd
}

func newQuizTakeCmd(flags *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Take a quiz interactively",
		Long: `Take a quiz in the terminal. Answer each question with A, B, C or D.
An empty answer skips the question and counts as incorrect.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if limit <= 0 {
				limit = a.cfg.QuizBatchSize
			}
			return playQuiz(cmd.Context(), a.quizzes, limit, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of questions (default QUIZ_BATCH_SIZE)")
	return cmd
}

func playQuiz(ctx context.Context, quizzes *gitdict.QuizStore, limit int, in io.Reader, out io.Writer) error {
	sess, err := gitdict.StartQuiz(ctx, quizzes, limit)
	if err != nil {
		return err
	}
	if sess.State == gitdict.StateNoQuestions {
		fmt.Fprintln(out, "There are no quiz questions yet.")
		return nil
	}

	fmt.Fprintf(out, "🎯 Starting quiz: %d questions\n\n", len(sess.Questions))
	scanner := bufio.NewScanner(in)

	for i, q := range sess.Questions {
		printQuestion(out, q, fmt.Sprintf("Question %d/%d:", i+1, len(sess.Questions)))

		for {
			fmt.Fprint(out, "Your answer (A/B/C/D, empty to skip): ")
			if !scanner.Scan() {
				break
			}
			answer := strings.ToUpper(strings.TrimSpace(scanner.Text()))
			if answer == "" {
				break
			}
			idx := strings.Index("ABCD", answer)
			if len(answer) != 1 || idx < 0 {
				fmt.Fprintln(out, "Please enter A, B, C, or D")
				continue
			}
			if err := sess.Answer(q.ID, q.Choices[idx]); err != nil {
				return err
			}
			break
		}
		fmt.Fprintln(out)
	}

	result, err := quizzes.Grade(sess)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, strings.Repeat("─", 50))
	for _, r := range result.Results {
		switch {
		case r.IsCorrect:
			fmt.Fprintf(out, "✅ %s\n", r.Text)
		case !r.Answered:
			fmt.Fprintf(out, "❌ %s\n   Skipped. Correct: %s\n", r.Text, r.CorrectText)
		default:
			fmt.Fprintf(out, "❌ %s\n   Your answer: %s. Correct: %s\n", r.Text, r.Answer, r.CorrectText)
		}
		if r.Explanation != "" {
			fmt.Fprintf(out, "   💡 %s\n", r.Explanation)
		}
	}

	ratio := float64(result.Score) / float64(result.Total)
	fmt.Fprintf(out, "\n🎉 Score: %d / %d (%.0f%%)\n", result.Score, result.Total, ratio*100)
	switch {
	case ratio >= 0.8:
		fmt.Fprintln(out, "🌟 Outstanding performance!")
	case ratio >= 0.6:
		fmt.Fprintln(out, "👍 Well done!")
	default:
		fmt.Fprintln(out, "📚 Keep studying!")
	}
	return nil
}

func printQuestion(out io.Writer, q gitdict.QuizQuestion, heading string) {
	fmt.Fprintf(out, "%s %s\n", heading, q.Text)
	for i, c := range q.Choices {
		fmt.Fprintf(out, "  %s) %s\n", choiceLetters[i], c)
	}
}

func newQuizDraftCmd(flags *rootFlags) *cobra.Command {
	var (
		count int
		save  bool
	)
	cmd := &cobra.Command{
		Use:   "draft [term-id]",
		Short: "Draft quiz questions about a term with OpenAI",
		Long: `Ask the OpenAI model configured by OPENAI_MODEL to draft questions about a
glossary term. Drafts are printed for review and only stored with --save.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			term, ok := gitdict.DefaultCatalog().Lookup(args[0])
			if !ok {
				return fmt.Errorf("term not found: %s", args[0])
			}
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if a.cfg.OpenAIAPIKey == "" {
				return fmt.Errorf("OPENAI_API_KEY is required to draft questions")
			}
			count = max(1, min(count, 5))
			drafter := gitdict.NewQuestionDrafterFromKey(a.cfg.OpenAIAPIKey, a.cfg.OpenAIModel, a.opts...)

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			fmt.Fprintf(cmd.ErrOrStderr(), "⏳ Drafting %d questions about %s...\n", count, term.Name)
			drafts, err := drafter.DraftQuestions(ctx, term, count)
			if err != nil {
				return err
			}

			existing, err := a.quizzes.ListQuestions(ctx, 0)
			if err != nil {
				return err
			}
			drafts, dropped := drafter.NewDedup(existing).Filter(ctx, drafts)
			if dropped > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d drafts repeated existing questions and were dropped.\n", dropped)
			}

			out := cmd.OutOrStdout()
			for i, d := range drafts {
				q := gitdict.QuizQuestion{Text: d.Text, Choices: d.Choices, CorrectChoice: d.CorrectChoice, Explanation: d.Explanation}
				if save {
					saved, err := a.quizzes.InsertQuestion(ctx, d)
					if err != nil {
						return err
					}
					q = saved
				}
				printQuestion(out, q, fmt.Sprintf("Draft %d:", i+1))
				fmt.Fprintf(out, "Answer: %s) %s\n", choiceLetters[q.CorrectIndex()], q.CorrectText())
				if q.Explanation != "" {
					fmt.Fprintf(out, "💡 %s\n", q.Explanation)
				}
				if save {
					fmt.Fprintf(out, "Saved as question %d.\n", q.ID)
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 3, "Number of questions to draft (1-5)")
	cmd.Flags().BoolVar(&save, "save", false, "Store the drafts as quiz questions")
	return cmd
}
