package cli

import (
	"github.com/spf13/cobra"

	"applicant-rag/internal/app"
	"applicant-rag/internal/questionnaire"
)

var evidenceQuestionnaire string

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Draft a cover letter from the applicant's screening",
	Long: `Drafts a cover letter from the applicant's latest stored screening. With
--questionnaire the questionnaire is answered first and the letter is drafted
from those answers, which works without a metadata store.`,
	Args: cobra.NoArgs,
	RunE: runEvidence,
}

func init() {
	evidenceCmd.Flags().StringVarP(&evidenceQuestionnaire, "questionnaire", "q", "", "YAML questionnaire file to answer first")
	addIngestFlags(evidenceCmd)
	rootCmd.AddCommand(evidenceCmd)
}

func runEvidence(cmd *cobra.Command, _ []string) error {
	if err := requireOwner(); err != nil {
		return err
	}
	if err := ingestFirst(cmd); err != nil {
		return err
	}

	letter, err := draftEvidence(cmd)
	if err != nil {
		return err
	}

	if jsonOutput {
		return printJSON(cmd, letter)
	}
	cmd.Println(letter.Letter)
	return nil
}

func draftEvidence(cmd *cobra.Command) (*app.EvidenceLetter, error) {
	if evidenceQuestionnaire == "" {
		return evidence.Generate(cmd.Context(), attorneyID, applicantID)
	}
	prompts, err := questionnaire.LoadFile(evidenceQuestionnaire)
	if err != nil {
		return nil, err
	}
	screened, err := screening.Summarize(cmd.Context(), app.SummarizeInput{
		AttorneyID:  attorneyID,
		ApplicantID: applicantID,
		Prompts:     prompts,
	})
	if err != nil {
		return nil, err
	}
	return evidence.GenerateFrom(cmd.Context(), screened)
}
