package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"weaklog/internal/synthesis"
)

// synthesizeCmd generates the deepening-question guide.
var synthesizeCmd = &cobra.Command{
	Use:   "synthesize <id>",
	Short: "Generate deepening questions for an adopted entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := app.orc.Synthesize(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Println()
		for i, q := range e.Guide.Questions {
			fmt.Printf("  %d. %s\n", i+1, q)
		}
		fmt.Printf("\nSuggested tone: %s\n", e.Guide.SuggestedTone)
		fmt.Printf("Next: weaklog draft %s\n", e.ID)
		return nil
	},
}

// draftCmd walks through the guide questions and generates the draft.
var draftCmd = &cobra.Command{
	Use:   "draft <id>",
	Short: "Answer the guide questions and generate a first draft",
	Long: `Walk through the synthesis guide one question at a time. Leave an
answer blank to skip the question; at least one answer is required.
The draft is appended to the entry document, which moves to the
synthesized stage for your editing.`,
	Args: cobra.ExactArgs(1),
	RunE: runDraft,
}

func runDraft(cmd *cobra.Command, args []string) error {
	e, err := app.store.Find(args[0])
	if err != nil {
		return err
	}
	if e == nil || e.Guide == nil {
		return fmt.Errorf("%s has no synthesis guide yet; run: weaklog synthesize %s", args[0], args[0])
	}

	bold := color.New(color.Bold)
	fmt.Println("Answer each question; leave blank to skip.")
	answers := make([]synthesis.QA, 0, len(e.Guide.Questions))
	for i, q := range e.Guide.Questions {
		bold.Printf("\n%d. %s\n", i+1, q)
		answer, err := readLine("> ")
		if err != nil {
			return err
		}
		answers = append(answers, synthesis.QA{Question: q, Answer: answer})
	}

	_, err = app.orc.GenerateDraft(cmd.Context(), args[0], answers)
	return err
}

// publishCmd finalizes an entry.
var publishCmd = &cobra.Command{
	Use:   "publish <id>",
	Short: "Mark a synthesized entry as published",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := app.orc.Publish(args[0])
		return err
	},
}
