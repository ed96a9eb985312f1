package main

import (
	"fmt"
	"os"

	"gitdict"

	"github.com/spf13/cobra"
)

// rootFlags are shared by every subcommand
type rootFlags struct {
	verbose bool
	envFile string
	driver  string
	dsn     string
}

// app is the store-backed part of the CLI, opened on demand
type app struct {
	cfg     *gitdict.Config
	store   gitdict.Store
	dict    *gitdict.Dictionary
	quizzes *gitdict.QuizStore
	opts    []gitdict.Option
}

func (a *app) Close() error {
	return a.store.Close()
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "gitdict",
		Short: "A Git glossary with learning notes and quizzes",
		Long: `gitdict browses a curated glossary of Git terms, keeps a log of
learning notes and runs multiple choice quizzes from the terminal.
It also serves the same data to AI agents over MCP.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			gitdict.InitLogging(cmd.ErrOrStderr(), flags.verbose, os.Getenv("LOG_FORMAT"))
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&flags.envFile, "env", ".env", "Path to a .env file (ignored when missing)")
	rootCmd.PersistentFlags().StringVar(&flags.driver, "driver", "", "Store driver, overrides STORE_DRIVER (sqlite, mysql, postgres, sqlite-gorm)")
	rootCmd.PersistentFlags().StringVar(&flags.dsn, "dsn", "", "Store DSN, overrides STORE_DSN")

	rootCmd.AddCommand(
		newTermsCmd(),
		newShowCmd(),
		newExportCmd(),
		newNotesCmd(flags),
		newQuizCmd(flags),
		newMCPCmd(flags),
		newVersionCmd(),
	)
	return rootCmd
}

// openApp loads the configuration and opens the store. Flags win over the
// environment.
func openApp(flags *rootFlags) (*app, error) {
	if flags.driver != "" {
		os.Setenv("STORE_DRIVER", flags.driver)
	}
	if flags.dsn != "" {
		os.Setenv("STORE_DSN", flags.dsn)
	}

	cfg, err := gitdict.LoadConfig(flags.envFile)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if flags.verbose {
		cfg.Verbose = true
	}

	store, err := gitdict.OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	opts := []gitdict.Option{gitdict.WithQuestionOrder(cfg.QuizOrder)}
	notes := gitdict.NewNotesStore(store, opts...)
	return &app{
		cfg:     cfg,
		store:   store,
		dict:    gitdict.NewDictionary(gitdict.DefaultCatalog(), notes, cfg.NotesLimit),
		quizzes: gitdict.NewQuizStore(store, opts...),
		opts:    opts,
	}, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of gitdict",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gitdict version %s\n", version)
		},
	}
}
