package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"applicant-rag/internal/app"
	"applicant-rag/internal/domain"
)

var vectorizeTag string

var vectorizeCmd = &cobra.Command{
	Use:   "vectorize <file>...",
	Short: "Load, chunk and index files into the applicant's collection",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runVectorize,
}

func init() {
	vectorizeCmd.Flags().StringVarP(&vectorizeTag, "tag", "t", "", "document tag: research, reviews, awards or feedback")
	rootCmd.AddCommand(vectorizeCmd)
}

func runVectorize(cmd *cobra.Command, args []string) error {
	if err := requireOwner(); err != nil {
		return err
	}
	tag, err := parseTag(vectorizeTag)
	if err != nil {
		return err
	}
	results, err := vectorizeFiles(cmd, tag, args)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd, results)
	}
	failed := 0
	for _, r := range results {
		line := fmt.Sprintf("%-10s %s (%d chunks)", r.Status, r.Filename, r.ChunkCount)
		if r.Error != "" {
			line += ": " + r.Error
			failed++
		}
		cmd.Println(line)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(results))
	}
	return nil
}

func vectorizeFiles(cmd *cobra.Command, tag domain.Tag, paths []string) ([]app.IngestResult, error) {
	inputs := make([]app.VectorizeInput, len(paths))
	for i, p := range paths {
		inputs[i] = app.VectorizeInput{AttorneyID: attorneyID, ApplicantID: applicantID, Tag: tag, Path: p}
	}
	return ingestion.VectorizeFiles(cmd.Context(), inputs)
}
