package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"gitdict"

	"github.com/spf13/cobra"
)

// filterFlags mirror the sidebar of the web page
type filterFlags struct {
	category   string
	query      string
	noAdvanced bool
	sort       string
	max        int
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.category, "category", "c", "all", "Category: all, basic-concept, basic-operation, advanced-operation, troubleshooting")
	cmd.Flags().StringVarP(&f.query, "query", "q", "", "Case-insensitive text to match in name or short description")
	cmd.Flags().BoolVar(&f.noAdvanced, "no-advanced", false, "Hide advanced operations and troubleshooting")
	cmd.Flags().StringVar(&f.sort, "sort", "category", "Sort order: category or name")
	cmd.Flags().IntVar(&f.max, "max", 0, "Maximum number of terms (0 shows all)")
}

func (f *filterFlags) config() (gitdict.FilterConfig, error) {
	category, err := gitdict.ParseCategory(f.category)
	if err != nil {
		return gitdict.FilterConfig{}, err
	}
	sort, err := gitdict.ParseSortMode(f.sort)
	if err != nil {
		return gitdict.FilterConfig{}, err
	}
	return gitdict.FilterConfig{
		Category:        category,
		IncludeAdvanced: !f.noAdvanced,
		Query:           f.query,
		MaxItems:        f.max,
		Sort:            sort,
	}, nil
}

func newTermsCmd() *cobra.Command {
	var (
		filter   filterFlags
		jsonMode bool
	)
	cmd := &cobra.Command{
		Use:   "terms",
		Short: "List glossary terms",
		Long:  `List glossary terms, optionally narrowed by category, text query and difficulty.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := filter.config()
			if err != nil {
				return err
			}
			terms := gitdict.Filter(gitdict.DefaultCatalog().Terms(), cfg)
			out := cmd.OutOrStdout()

			if jsonMode {
				if terms == nil {
					terms = []gitdict.Term{}
				}
				return encodeJSON(out, terms)
			}
			if len(terms) == 0 {
				fmt.Fprintln(out, "No terms match your search.")
				return nil
			}
			return printTerms(out, terms)
		},
	}
	filter.register(cmd)
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output in JSON format")
	return cmd
}

func printTerms(out io.Writer, terms []gitdict.Term) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tDESCRIPTION")
	for _, t := range terms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Category.Label(), t.ShortDescription)
	}
	return tw.Flush()
}

func newShowCmd() *cobra.Command {
	var jsonMode bool
	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Show one term with its examples and related terms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := gitdict.DefaultCatalog()
			term, ok := catalog.Lookup(args[0])
			if !ok {
				return fmt.Errorf("term not found: %s", args[0])
			}
			related := catalog.Related(term)
			out := cmd.OutOrStdout()

			if jsonMode {
				if related == nil {
					related = []gitdict.Term{}
				}
				return encodeJSON(out, map[string]interface{}{
					"term":    term,
					"related": related,
				})
			}

			fmt.Fprintf(out, "%s (%s)\n\n", term.Name, term.Category.Label())
			fmt.Fprintln(out, term.FullDescription)
			if len(term.Examples) > 0 {
				fmt.Fprintln(out, "\nExamples:")
				for _, ex := range term.Examples {
					fmt.Fprintf(out, "  $ %s\n", ex)
				}
			}
			if len(related) > 0 {
				names := make([]string, 0, len(related))
				for _, r := range related {
					names = append(names, fmt.Sprintf("%s (%s)", r.Name, r.ID))
				}
				fmt.Fprintf(out, "\nRelated: %s\n", strings.Join(names, ", "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Output in JSON format")
	return cmd
}

func newExportCmd() *cobra.Command {
	var (
		filter filterFlags
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export terms as CSV or XLSX",
		Long: `Export the filtered term list. CSV output starts with a UTF-8 byte order mark
so spreadsheet tools detect the encoding. Use -o - to write to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := filter.config()
			if err != nil {
				return err
			}
			var write func(io.Writer, []gitdict.Term) error
			switch format {
			case "csv":
				write = gitdict.WriteCSV
			case "xlsx":
				write = gitdict.WriteXLSX
			default:
				return fmt.Errorf("unknown export format: %q", format)
			}
			if output == "" {
				output = strings.TrimSuffix(gitdict.ExportFilename, ".csv") + "." + format
			}

			terms := gitdict.Filter(gitdict.DefaultCatalog().Terms(), cfg)
			if output == "-" {
				return write(cmd.OutOrStdout(), terms)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			if err := write(f, terms); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d terms to %s\n", len(terms), output)
			return nil
		},
	}
	filter.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Export format: csv or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default git_terms.<format>, - for stdout)")
	return cmd
}

func encodeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
