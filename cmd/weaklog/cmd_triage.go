package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"weaklog/internal/entry"
)

// triageCmd runs the AI evaluation on a cooled entry.
var triageCmd = &cobra.Command{
	Use:   "triage <id>",
	Short: "Run the AI triage evaluation on a cooled entry",
	Long: `Evaluate a cooled entry against the four editorial checks. The
result is written into the entry but the entry stays where it is:
adopting, rejecting, or deferring is your call, made with the adopt,
reject, and later commands.`,
	Args: cobra.ExactArgs(1),
	RunE: runTriage,
}

func runTriage(cmd *cobra.Command, args []string) error {
	e, err := app.orc.Triage(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	printTriage(e)
	return nil
}

func printTriage(e *entry.Entry) {
	tr := e.Triage
	if tr == nil {
		return
	}
	pass := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()
	mark := func(c entry.Check) string {
		if c.Pass {
			return pass("pass") + "  " + c.Reason
		}
		return fail("fail") + "  " + c.Reason
	}

	fmt.Printf("\nCore question: %s\n\n", tr.CoreQuestion)
	fmt.Printf("  specifics      %s\n", mark(tr.Checks.HasSpecifics))
	fmt.Printf("  core phrase    %s\n", mark(tr.Checks.CanBeCorePhrase))
	fmt.Printf("  transferable   %s\n", mark(tr.Checks.IsTransferable))
	fmt.Printf("  non-harmful    %s\n", mark(tr.Checks.IsNonHarmful))
	fmt.Printf("\nScore %d/4, recommendation: %s\n", tr.Score, tr.Recommendation)
	fmt.Printf("Next: weaklog adopt %s | weaklog reject %s | weaklog later %s\n", e.ID, e.ID, e.ID)
}

// adoptCmd promotes a triaged entry toward synthesis.
var adoptCmd = &cobra.Command{
	Use:   "adopt <id>",
	Short: "Adopt a triaged entry for synthesis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := app.orc.Adopt(args[0])
		return err
	},
}

// rejectCmd archives an entry, history intact.
var rejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Archive an entry (nothing is deleted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := app.orc.Reject(args[0])
		return err
	},
}

// laterCmd defers the decision.
var laterCmd = &cobra.Command{
	Use:   "later <id>",
	Short: "Keep a triaged entry in cooling for a later decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.orc.ReviewLater(args[0])
	},
}
