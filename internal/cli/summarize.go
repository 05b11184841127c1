package cli

import (
	"github.com/spf13/cobra"

	"applicant-rag/internal/app"
	"applicant-rag/internal/domain"
	"applicant-rag/internal/questionnaire"
)

var summarizeQuestionnaire string

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Answer a questionnaire for the applicant",
	Long: `Answers every question of a YAML questionnaire, or of the applicant's
stored questionnaire when --questionnaire is not given.`,
	Args: cobra.NoArgs,
	RunE: runSummarize,
}

func init() {
	summarizeCmd.Flags().StringVarP(&summarizeQuestionnaire, "questionnaire", "q", "", "YAML questionnaire file")
	addIngestFlags(summarizeCmd)
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, _ []string) error {
	if err := requireOwner(); err != nil {
		return err
	}
	var prompts []domain.Prompt
	if summarizeQuestionnaire != "" {
		var err error
		prompts, err = questionnaire.LoadFile(summarizeQuestionnaire)
		if err != nil {
			return err
		}
	}
	if err := ingestFirst(cmd); err != nil {
		return err
	}

	out, err := screening.Summarize(cmd.Context(), app.SummarizeInput{
		AttorneyID:  attorneyID,
		ApplicantID: applicantID,
		Prompts:     prompts,
	})
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd, out)
	}
	for i, qa := range out.Summary {
		if i > 0 {
			cmd.Println()
		}
		printQandA(cmd, qa)
	}
	return nil
}
