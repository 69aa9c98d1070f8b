package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/pbaille/jot/internal/api"
	"github.com/pbaille/jot/internal/classify"
	"github.com/pbaille/jot/internal/fetch"
	"github.com/pbaille/jot/internal/journal"
	"github.com/pbaille/jot/internal/llm"
	"github.com/pbaille/jot/internal/router"
	"github.com/pbaille/jot/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	dbPath string
	model  string
	logger *zap.Logger
)

func main() {
	// Load .env file if present (don't error if missing)
	godotenv.Load()

	// Default database location
	home, _ := os.UserHomeDir()
	defaultDB := filepath.Join(home, ".jot", "jot.db")
	if env := os.Getenv("JOT_DB"); env != "" {
		defaultDB = env
	}

	rootCmd := &cobra.Command{
		Use:   "jot",
		Short: "Conversational personal-activity journal",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = newLogger()
			return err
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "database path")
	rootCmd.PersistentFlags().StringVar(&model, "model", os.Getenv("JOT_MODEL"), "collaborator model")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(entriesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if os.Getenv("JOT_DEBUG") != "" {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return config.Build()
}

func getMirror() (*store.Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.New(dbPath)
}

// buildRouter wires the full message pipeline. A missing API key degrades
// every collaborator call to its static fallback instead of failing startup.
func buildRouter(mirror *store.Store) *router.Router {
	var collab llm.Collaborator
	client, err := llm.New(model)
	if err != nil {
		logger.Warn("collaborator disabled", zap.Error(err))
		collab = llm.Unavailable(err.Error())
	} else {
		collab = client
	}

	journalStore := journal.New(mirror, logger)
	classifier := classify.New(collab, logger)

	opts := []router.Option{router.WithFetcher(fetch.New())}
	if persona := os.Getenv("JOT_PERSONA"); persona != "" {
		opts = append(opts, router.WithPersona(persona))
	}

	return router.New(journalStore, classifier, collab, logger, opts...)
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the message transport server",
		RunE: func(cmd *cobra.Command, args []string) error {
			mirror, err := getMirror()
			if err != nil {
				return err
			}
			// Note: don't defer mirror.Close() as server runs indefinitely

			server := api.New(buildRouter(mirror), mirror, addr, logger)
			return server.Run()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "server address")
	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the journal on stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			mirror, err := getMirror()
			if err != nil {
				return err
			}
			defer mirror.Close()

			r := buildRouter(mirror)
			scanner := bufio.NewScanner(os.Stdin)

			fmt.Println("jot is listening. Ctrl-D to quit.")
			for {
				fmt.Print("> ")
				if !scanner.Scan() {
					break
				}
				text := scanner.Text()
				if text == "" {
					continue
				}
				fmt.Println(r.Handle(context.Background(), text))
			}
			return scanner.Err()
		},
	}
}

func entriesCmd() *cobra.Command {
	var limit int
	var all bool

	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List mirrored entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			mirror, err := getMirror()
			if err != nil {
				return err
			}
			defer mirror.Close()

			entries, err := mirror.ListEntries(limit, 0)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("No entries yet. Use 'jot chat' or the server to create one.")
				return nil
			}

			for _, e := range entries {
				if e.Deleted && !all {
					continue
				}
				marker := " "
				if e.Deleted {
					marker = "x"
				}
				fmt.Printf("%s %-8s %s  %s\n", marker, shortID(e.ID), e.EventTimeDisplay, e.Summary)
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	cmd.Flags().BoolVar(&all, "all", false, "include deleted entries")
	return cmd
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
