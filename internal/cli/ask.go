package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"applicant-rag/internal/domain"
)

var (
	askDetail    string
	askTags      []string
	askFilenames []string
	ingestPaths  []string
	ingestTag    string
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer one question from the applicant's documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askDetail, "detail", "d", "moderate", "detail level: light, moderate, lengthy or heavy")
	askCmd.Flags().StringSliceVar(&askTags, "tags", nil, "restrict retrieval to these tags")
	askCmd.Flags().StringSliceVar(&askFilenames, "filenames", nil, "restrict retrieval to these files")
	addIngestFlags(askCmd)
	rootCmd.AddCommand(askCmd)
}

// addIngestFlags lets a command vectorize files first, which is the only
// way to populate a standalone in-memory store.
func addIngestFlags(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&ingestPaths, "ingest", nil, "vectorize these files before answering")
	cmd.Flags().StringVar(&ingestTag, "ingest-tag", "research", "tag for --ingest files")
}

func ingestFirst(cmd *cobra.Command) error {
	if len(ingestPaths) == 0 {
		return nil
	}
	tag, err := parseTag(ingestTag)
	if err != nil {
		return err
	}
	results, err := vectorizeFiles(cmd, tag, ingestPaths)
	if err != nil {
		return err
	}
	var errs []error
	for _, r := range results {
		if r.Error != "" {
			errs = append(errs, fmt.Errorf("%s: %s", r.Filename, r.Error))
		}
	}
	return errors.Join(errs...)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if err := requireOwner(); err != nil {
		return err
	}
	detail, err := domain.ParseDetailLevel(askDetail)
	if err != nil {
		return err
	}
	tags, err := domain.ParseTags(askTags)
	if err != nil {
		return err
	}
	if err := ingestFirst(cmd); err != nil {
		return err
	}

	qa, err := assist.Request(cmd.Context(), collection(), domain.Prompt{
		Question:    strings.TrimSpace(args[0]),
		DetailLevel: detail,
		Tags:        tags,
		Filenames:   askFilenames,
	})
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd, qa)
	}
	printQandA(cmd, *qa)
	return nil
}
