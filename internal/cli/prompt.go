package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var promptQuestion string

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the prompt that would be sent to the LLM",
	Long: `Retrieve context for a question and render it with the prompt template,
without calling the LLM. Useful for tuning llm.prompt_template.

Examples:
  ragchat prompt -q "What causes anemia?"`,
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVarP(&promptQuestion, "question", "q", "", "question (required)")
	promptCmd.MarkFlagRequired("question")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()

	stack, err := newChatStack(cfg)
	if err != nil {
		return err
	}

	chunks, err := stack.retrieve.Search(cmd.Context(), promptQuestion, cfg.Retrieve.TopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	prompt, _, err := stack.prompts.Build(promptQuestion, chunks)
	if err != nil {
		return err
	}

	fmt.Println(prompt)
	return nil
}
