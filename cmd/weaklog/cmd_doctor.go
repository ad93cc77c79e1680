package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"weaklog/internal/entry"
	"weaklog/internal/vault"
)

// doctorCmd verifies the local setup end to end.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check vault layout, cooldown index, and provider connectivity",
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ok := color.New(color.FgGreen).SprintFunc()
	bad := color.New(color.FgRed).SprintFunc()
	failures := 0
	report := func(name string, err error) {
		if err != nil {
			failures++
			fmt.Printf("  %s  %s: %v\n", bad("FAIL"), name, err)
			return
		}
		fmt.Printf("  %s    %s\n", ok("OK"), name)
	}

	fmt.Printf("Vault: %s\n", app.cfg.VaultDir)
	report("vault directory", checkDir(app.cfg.VaultDir))

	// Stage directories appear on demand; report what exists today.
	dirs := entry.DefaultDirs()
	fs, err := vault.NewOS(app.cfg.VaultDir)
	if err != nil {
		return err
	}
	present := 0
	for _, d := range []string{dirs.Raw, dirs.Cooling, dirs.Triaged, dirs.Synthesized, dirs.Published, dirs.Archive} {
		if fs.Exists(d) {
			present++
		}
	}
	fmt.Printf("  %s    stage directories (%d present)\n", ok("OK"), present)

	pruned, idxErr := checkIndex()
	idxName := "cooldown index"
	if idxErr == nil {
		idxName = fmt.Sprintf("cooldown index (%d stale record(s) pruned)", pruned)
	}
	report(idxName, idxErr)
	report("provider "+string(app.cfg.ProviderConfig().Type), app.client.TestConnection(cmd.Context()))

	if failures > 0 {
		return fmt.Errorf("%d check(s) failed", failures)
	}
	fmt.Println("All checks passed.")
	return nil
}

func checkDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// checkIndex reconciles the cooldown index against the vault, then
// verifies the index itself loads and saves.
func checkIndex() (int, error) {
	pruned, err := app.sched.ValidateAndClean(func(p string) bool {
		e, rerr := app.store.Read(p)
		return rerr == nil && e != nil
	})
	if err != nil {
		return 0, err
	}
	if _, err := app.sched.CheckStatus(); err != nil {
		return pruned, err
	}
	return pruned, nil
}

// modelsCmd lists models the configured provider offers.
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List models available from the configured provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		current := app.client.Model()
		for _, m := range app.client.AvailableModels(cmd.Context()) {
			marker := "  "
			if m == current {
				marker = "* "
			}
			fmt.Println(marker + m)
		}
		return nil
	},
}
