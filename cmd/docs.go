package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danpun9/memocore/internal/retrieval"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage stored documents",
}

var docsAddCmd = &cobra.Command{
	Use:   "add <file.md> [<file.md>...]",
	Short: "Ingest markdown files into the document store",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDocsAdd,
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE:  runDocsList,
}

var docsRmCmd = &cobra.Command{
	Use:   "rm <title>",
	Short: "Delete a stored document and its index",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsRm,
}

var docsShowCmd = &cobra.Command{
	Use:   "show <title>",
	Short: "Print a stored document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocsShow,
}

func init() {
	docsCmd.AddCommand(docsAddCmd, docsListCmd, docsRmCmd, docsShowCmd)
	rootCmd.AddCommand(docsCmd)
}

func docsContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runDocsAdd(cmd *cobra.Command, args []string) error {
	ctx := docsContext(cmd)
	app, err := setup(ctx)
	if err != nil {
		return err
	}
	defer app.cleanup()

	for _, path := range args {
		if !strings.EqualFold(filepath.Ext(path), retrieval.DocumentExtension) {
			return fmt.Errorf("only markdown files are supported, got %q", path)
		}

		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %q: %w", path, err)
		}

		fileName, err := app.docs.Create(ctx, filepath.Base(path), string(content))
		if err != nil {
			return fmt.Errorf("ingesting %q: %w", path, err)
		}
		fmt.Printf("added %s\n", fileName)
	}
	return nil
}

func runDocsList(cmd *cobra.Command, _ []string) error {
	ctx := docsContext(cmd)
	app, err := setup(ctx)
	if err != nil {
		return err
	}
	defer app.cleanup()

	count := 0
	for doc, err := range app.docs.List(ctx) {
		if err != nil {
			return err
		}
		fmt.Printf("%s\t%s\t%d bytes\n",
			doc.FileName, doc.AddedAt.Format("2006-01-02 15:04"), len(doc.Text))
		count++
	}
	if count == 0 {
		fmt.Println("No documents stored.")
	}
	return nil
}

func runDocsRm(cmd *cobra.Command, args []string) error {
	ctx := docsContext(cmd)
	app, err := setup(ctx)
	if err != nil {
		return err
	}
	defer app.cleanup()

	fileName, err := app.docs.Delete(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", fileName)
	return nil
}

func runDocsShow(cmd *cobra.Command, args []string) error {
	ctx := docsContext(cmd)
	app, err := setup(ctx)
	if err != nil {
		return err
	}
	defer app.cleanup()

	fileName := retrieval.ResolveFileName(args[0])
	text, found, err := app.docs.ReadDocument(ctx, fileName)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("document %q not found", fileName)
	}
	fmt.Println(text)
	return nil
}
