package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joonaspessi/site/content"
	"github.com/joonaspessi/site/internal/document"
	"github.com/joonaspessi/site/internal/render"
	"github.com/joonaspessi/site/internal/store"
)

var contentDir string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "contentctl",
		Short:        "Inspect and lint the site's documents",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&contentDir, "dir", "", "content directory (default: embedded documents)")

	rootCmd.AddCommand(lintCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(outlineCmd())
	return rootCmd
}

func sourceFS() fs.FS {
	if contentDir != "" {
		return os.DirFS(contentDir)
	}
	return content.FS
}

func lintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Check every document for well-formedness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			failures, err := lintFS(sourceFS(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if failures > 0 {
				return fmt.Errorf("%d problem(s) found", failures)
			}
			return nil
		},
	}
}

// lintFS parses and lints every top-level document, printing one line per
// issue. It returns the number of error-severity problems.
func lintFS(fsys fs.FS, w io.Writer) (int, error) {
	names, err := fs.Glob(fsys, "*.md")
	if err != nil {
		return 0, err
	}
	if len(names) == 0 {
		return 0, errors.New("no documents found")
	}

	failures := 0
	for _, name := range names {
		source, err := fs.ReadFile(fsys, name)
		if err != nil {
			return failures, err
		}
		doc, err := document.Parse(strings.TrimSuffix(path.Base(name), ".md"), source)
		if err != nil {
			fmt.Fprintf(w, "%s: error parse: %v\n", name, err)
			failures++
			continue
		}
		// Body lines are shifted by the front-matter block.
		offset := bodyOffset(source, doc.Body)
		for _, issue := range document.Lint(doc) {
			line := issue.Line
			if line > 0 {
				line += offset
			}
			fmt.Fprintf(w, "%s:%d: %s %s: %s\n", name, line, issue.Severity, issue.Rule, issue.Message)
			if issue.Severity == document.SeverityError {
				failures++
			}
		}
	}
	fmt.Fprintf(w, "%d document(s) checked, %d problem(s)\n", len(names), failures)
	return failures, nil
}

// bodyOffset counts the source lines that precede the body.
func bodyOffset(source []byte, body string) int {
	if !strings.HasSuffix(string(source), body) {
		return 0
	}
	return strings.Count(string(source[:len(source)-len(body)]), "\n")
}

func loadStore() (*store.Store, error) {
	return store.Load(sourceFS())
}

func showCmd() *cobra.Command {
	var withBody, withHTML bool

	cmd := &cobra.Command{
		Use:   "show [id]",
		Short: "Print a document's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			doc, err := s.Get(args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "ID:          %s\n", doc.ID)
			fmt.Fprintf(w, "Title:       %s\n", doc.Title)
			if doc.HasDate() {
				fmt.Fprintf(w, "Date:        %s\n", doc.DateString())
			}
			if doc.Author != "" {
				fmt.Fprintf(w, "Author:      %s\n", doc.Author)
			}
			if doc.Description != "" {
				fmt.Fprintf(w, "Description: %s\n", doc.Description)
			}
			if len(doc.Tags) > 0 {
				fmt.Fprintf(w, "Tags:        %s\n", strings.Join(doc.Tags, ", "))
			}

			if withBody {
				fmt.Fprintf(w, "\n%s", doc.Body)
			}
			if withHTML {
				out, err := render.New(render.Options{}).Document(doc)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "\n%s", out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&withBody, "body", false, "print the Markdown body")
	cmd.Flags().BoolVar(&withHTML, "html", false, "print the rendered HTML body")
	return cmd
}

func outlineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "outline [id]",
		Short: "Print a document's heading tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadStore()
			if err != nil {
				return err
			}
			doc, err := s.Get(args[0])
			if err != nil {
				return err
			}
			printOutline(cmd.OutOrStdout(), document.Outline(doc), 0)
			return nil
		},
	}
}

func printOutline(w io.Writer, sections []*document.Section, depth int) {
	for _, s := range sections {
		fmt.Fprintf(w, "%s%s %s\n", strings.Repeat("  ", depth), strings.Repeat("#", s.Level), s.Title)
		printOutline(w, s.Children, depth+1)
	}
}
