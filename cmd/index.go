package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"hunter/src/caseloader"
)

// documentIndexer is the piece of an evidence backend the index command
// needs. Both evidence indexes satisfy it.
type documentIndexer interface {
	IndexDocuments(ctx context.Context, documents []string) error
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the evidence index for a test case file",
	Long: `The index command chunks and indexes the reference documents of a test
case file into the configured evidence backend, so later evaluation runs
retrieve supporting passages instead of inlining whole documents.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().StringP("input", "i", "", "Test case file (.csv or .json)")
	indexCmd.MarkFlagRequired("input")
}

func runIndex(cmd *cobra.Command, args []string) error {
	inputPath, _ := cmd.Flags().GetString("input")

	retriever, err := buildRetriever()
	if err != nil {
		return err
	}
	if retriever == nil {
		return fmt.Errorf("no evidence backend configured; set evidence.backend to weaviate or elastic")
	}

	indexer, ok := retriever.(documentIndexer)
	if !ok {
		return fmt.Errorf("configured evidence backend does not support bulk indexing")
	}

	loaded, err := caseloader.LoadFile(inputPath)
	if err != nil {
		return err
	}
	for _, rej := range loaded.Rejected {
		fmt.Fprintf(os.Stderr, "skipping %s\n", rej)
	}

	// Deduplicate documents across cases before indexing.
	seen := make(map[string]struct{})
	var documents []string
	for _, tc := range loaded.Cases {
		for _, doc := range tc.ReferenceDocuments {
			if _, dup := seen[doc]; dup {
				continue
			}
			seen[doc] = struct{}{}
			documents = append(documents, doc)
		}
	}
	if len(documents) == 0 {
		return fmt.Errorf("no reference documents in %s", inputPath)
	}

	bar := progressbar.NewOptions(len(documents),
		progressbar.OptionSetDescription("indexing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	for _, doc := range documents {
		if err := indexer.IndexDocuments(cmd.Context(), []string{doc}); err != nil {
			return err
		}
		bar.Add(1)
	}

	fmt.Fprintf(os.Stderr, "indexed %d documents\n", len(documents))
	return nil
}
