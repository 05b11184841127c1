package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"applicant-rag/internal/domain"
)

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printQandA(cmd *cobra.Command, qa domain.QandA) {
	cmd.Printf("Q: %s\n", qa.Question)
	cmd.Printf("A: %s\n", qa.Answer)
	if qa.Source != "" {
		cmd.Printf("Source: %s\n", qa.Source)
	}
}
