package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"weaklog/internal/config"
	"weaklog/internal/cooldown"
	"weaklog/internal/entry"
	"weaklog/internal/logging"
	"weaklog/internal/provider"
	"weaklog/internal/synthesis"
	"weaklog/internal/triage"
	"weaklog/internal/vault"
	"weaklog/internal/workflow"
)

var (
	// Global flags
	configPath string
	vaultDir   string
	debug      bool

	// Assembled per invocation by PersistentPreRunE
	app *application
)

// application bundles everything a command needs.
type application struct {
	cfg    *config.Config
	store  *entry.Store
	sched  *cooldown.Scheduler
	orc    *workflow.Orchestrator
	client provider.Client
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "weaklog",
	Short: "weaklog - slow-publishing pipeline for personal writing",
	Long: `weaklog captures raw personal entries and walks them through a
deliberate five-stage pipeline: raw, cooling, triage, synthesis,
publish.

Entries rest through a cooldown before an AI triage scores their
publication potential; adopted entries get AI-generated deepening
questions and a first draft. Nothing is ever auto-published and
nothing is ever deleted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; real environments set variables directly.
		_ = godotenv.Load()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := logging.Initialize(logging.Options{
			Dir:     cfg.LogDir,
			Debug:   cfg.Debug || debug,
			Console: cfg.Debug || debug,
		}); err != nil {
			return fmt.Errorf("initialize logging: %w", err)
		}

		fs, err := vault.NewOS(cfg.VaultDir)
		if err != nil {
			return err
		}
		store := entry.NewStore(fs, entry.DefaultDirs())
		sched := cooldown.New(cfg.CooldownIndex)

		client, err := provider.New(cfg.ProviderConfig())
		if err != nil {
			return err
		}

		orc := workflow.New(store, sched, triage.New(client), synthesis.New(client), cfg.Language)
		orc.SetNotifier(newColorNotifier())

		app = &application{cfg: cfg, store: store, sched: sched, orc: orc, client: client}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Close()
	},
}

func loadConfig() (*config.Config, error) {
	dir := vaultDir
	if dir == "" {
		if env := os.Getenv("WEAKLOG_VAULT"); env != "" {
			dir = env
		} else {
			wd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			dir = wd
		}
	}
	path := configPath
	if path == "" {
		path = filepath.Join(dir, config.DefaultFileName)
	}
	return config.LoadOrDefault(path, dir)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to weaklog.json (default: <vault>/weaklog.json)")
	rootCmd.PersistentFlags().StringVar(&vaultDir, "vault", "", "vault directory (default: $WEAKLOG_VAULT or the working directory)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose logging to stderr")

	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(triageCmd)
	rootCmd.AddCommand(adoptCmd)
	rootCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(laterCmd)
	rootCmd.AddCommand(synthesizeCmd)
	rootCmd.AddCommand(draftCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(modelsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
