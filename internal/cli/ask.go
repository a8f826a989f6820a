package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	askQuestion string
	askSources  bool
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a single question from the indexed PDFs",
	Long: `Retrieve the most relevant chunks and ask the configured LLM.

Examples:
  ragchat ask -q "What is the first-line treatment for hypertension?"
  ragchat ask -q "Side effects of metformin" --sources`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuestion, "question", "q", "", "question to ask (required)")
	askCmd.Flags().BoolVar(&askSources, "sources", false, "print the chunks used for the answer")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.MarkFlagRequired("question")
}

type askOutput struct {
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Fallback bool           `json:"fallback"`
	Sources  []chunkSummary `json:"sources"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	stack, err := newChatStack(GetConfig())
	if err != nil {
		return err
	}

	result, err := stack.answer.Answer(cmd.Context(), askQuestion)
	if err != nil {
		return err
	}

	if askJSON {
		out := askOutput{
			Question: result.Question,
			Answer:   result.Answer,
			Fallback: result.Fallback,
			Sources:  summarize(result.Sources, 0),
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	fmt.Println(result.Answer)
	if askSources {
		fmt.Println()
		printChunks(summarize(result.Sources, 300))
	}
	return nil
}
