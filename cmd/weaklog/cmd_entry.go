package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"weaklog/internal/entry"
)

var cooldownDays int

// newCmd captures a raw entry and starts its cooldown.
var newCmd = &cobra.Command{
	Use:   "new [text]",
	Short: "Capture a new entry and start its cooldown",
	Long: `Capture a new entry. Pass the text as an argument, or pipe or type
it on stdin (finish with Ctrl-D). The entry moves straight into the
cooling stage and unlocks for triage when its cooldown expires.`,
	RunE: runNew,
}

func runNew(cmd *cobra.Command, args []string) error {
	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read entry text: %w", err)
		}
		content = string(data)
	}

	days := cooldownDays
	if days == 0 {
		days = app.cfg.DefaultCooldown
	}
	_, err := app.orc.Create(content, days)
	return err
}

// statusCmd lists entries per stage.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List entries in every stage",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	byStage, err := app.orc.Status()
	if err != nil {
		return err
	}

	heading := color.New(color.Bold)
	for _, st := range []entry.Status{
		entry.StatusCooling, entry.StatusTriaged, entry.StatusSynthesized, entry.StatusPublished,
	} {
		list := byStage[st]
		heading.Printf("%s (%d)\n", strings.ToUpper(string(st)), len(list))
		for _, e := range list {
			line := fmt.Sprintf("  %s  %s", e.ID, entry.TruncateRunes(firstLine(e.Content), 60))
			if e.Triage != nil {
				line += fmt.Sprintf("  [%d/4 %s]", e.Triage.Score, e.Triage.Recommendation)
			}
			fmt.Println(line)
		}
	}
	return nil
}

// checkCmd reconciles the cooldown index and reports readiness.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check which entries have finished cooling",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := app.orc.CheckReadiness()
		return err
	},
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// readLine prompts and reads a single line from stdin.
func readLine(prompt string) (string, error) {
	fmt.Print(prompt)
	r := bufio.NewReader(os.Stdin)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func init() {
	newCmd.Flags().IntVar(&cooldownDays, "days", 0, "cooldown length in days (default from config)")
}
