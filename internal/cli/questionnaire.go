package cli

import (
	"github.com/spf13/cobra"

	"applicant-rag/internal/questionnaire"
)

var questionnaireCmd = &cobra.Command{
	Use:   "questionnaire",
	Short: "Manage stored screening questionnaires",
}

var questionnaireImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Store a questionnaire as the applicant's default",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuestionnaireImport,
}

func init() {
	questionnaireCmd.AddCommand(questionnaireImportCmd)
	rootCmd.AddCommand(questionnaireCmd)
}

func runQuestionnaireImport(cmd *cobra.Command, args []string) error {
	if err := requireOwner(); err != nil {
		return err
	}
	prompts, err := questionnaire.LoadFile(args[0])
	if err != nil {
		return err
	}
	if err := screening.ImportQuestionnaire(cmd.Context(), attorneyID, applicantID, prompts); err != nil {
		return err
	}
	cmd.Printf("imported %d questions for %s\n", len(prompts), collection())
	return nil
}
