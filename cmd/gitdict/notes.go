package main

import (
	"fmt"
	"strings"

	"gitdict"

	"github.com/spf13/cobra"
)

func newNotesCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Add and list learning notes",
	}
	cmd.AddCommand(newNotesAddCmd(flags), newNotesListCmd(flags))
	return cmd
}

func newNotesAddCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add [text...]",
		Short: "Save a learning note",
		Long:  `Save a learning note. Markdown is allowed and rendered on the web page.`,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			note, err := a.dict.Notes().Append(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				if gitdict.IsValidation(err) {
					return fmt.Errorf("note text is empty")
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Note %d saved.\n", note.ID)
			return nil
		},
	}
}

func newNotesListCmd(flags *rootFlags) *cobra.Command {
	var (
		limit    int
		jsonMode bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List learning notes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(flags)
			if err != nil {
				return err
			}
			defer a.Close()

			if limit <= 0 {
				limit = a.cfg.NotesLimit
			}
			notes, err := a.dict.Notes().List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonMode {
				return encodeJSON(out, notes)
			}
			if len(notes) == 0 {
				fmt.Fprintln(out, "No notes yet.")
				return nil
			}
			for _, n := range notes {
				fmt.Fprintf(out, "[%d] %s\n%s\n\n", n.ID, n.CreatedAt.Local().Format("2006-01-02 15:04"), n.Text)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of notes (default NOTES_LIMIT)")
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output in JSON format")
	return cmd
}
