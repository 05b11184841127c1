package cli

import (
	"github.com/spf13/cobra"

	"applicant-rag/internal/app"
)

var (
	deleteTag      string
	deleteFilename string
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove every vector of one file from the applicant's collection",
	Args:  cobra.NoArgs,
	RunE:  runDelete,
}

func init() {
	deleteCmd.Flags().StringVarP(&deleteTag, "tag", "t", "", "document tag of the file")
	deleteCmd.Flags().StringVarP(&deleteFilename, "filename", "f", "", "file name as it was vectorized")
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, _ []string) error {
	if err := requireOwner(); err != nil {
		return err
	}
	tag, err := parseTag(deleteTag)
	if err != nil {
		return err
	}
	err = ingestion.DeleteFileVectors(cmd.Context(), app.DeleteInput{
		AttorneyID:  attorneyID,
		ApplicantID: applicantID,
		Tag:         tag,
		Filename:    deleteFilename,
	})
	if err != nil {
		return err
	}
	cmd.Printf("deleted %s (%s) from %s\n", deleteFilename, tag, collection())
	return nil
}
