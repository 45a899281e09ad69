package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	gmkit "go-gmkit"
	"go-gmkit/store"

	"github.com/eiannone/keyboard"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

var (
	dataDir     string
	databaseURL string
	tablePrefix string
	readyTTL    time.Duration
	community   string
	channel     string
)

func main() {
	cfg, err := gmkit.ParseConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var rootCmd = &cobra.Command{
		Use:   "gmkitctl",
		Short: "Inspect and drive a gmkit state directory",
		Long: `Gmkitctl operates directly on the durable state behind the chat bot:
per-holder item ledgers, the per-channel GM registry and enabled flag, and
ready statuses with automatic expiry. It is meant for operators and local
experimentation; the bot process itself embeds the same engine.`,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", cfg.DataDir, "Data directory for the file store")
	rootCmd.PersistentFlags().StringVar(&databaseURL, "db", cfg.DatabaseURL, "PostgreSQL connection URL (uses the file store when empty)")
	rootCmd.PersistentFlags().StringVar(&tablePrefix, "table-prefix", cfg.TablePrefix, "Table prefix for the Postgres store")
	rootCmd.PersistentFlags().DurationVar(&readyTTL, "ready-ttl", cfg.ReadyTTL, "Ready status time-to-live")
	rootCmd.PersistentFlags().StringVar(&community, "community", "local", "Community identifier")
	rootCmd.PersistentFlags().StringVar(&channel, "channel", "general", "Channel identifier")

	rootCmd.AddCommand(newAuthorityCmd(), newLedgerCmd(), newWatchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openEngine builds the configured store backend and a started engine on top.
// The returned cleanup stops the engine and closes the database if one was opened.
func openEngine(ctx context.Context) (*gmkit.Engine, func(), error) {
	var (
		st      store.Store
		cleanup = func() {}
	)

	if databaseURL != "" {
		db, err := sql.Open("postgres", databaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to ping database: %w", err)
		}
		if err := store.Migrate(db, tablePrefix); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}

		pg, err := store.NewPGStore(db, tablePrefix)
		if err != nil {
			db.Close()
			return nil, nil, err
		}

		st = pg
		cleanup = func() { db.Close() }
	} else {
		st = store.NewFileStore(dataDir)
	}

	var engine = gmkit.NewEngine(st,
		gmkit.WithReadyTTL(readyTTL),
		gmkit.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelWarn,
		}))),
	)

	if err := engine.Start(ctx); err != nil {
		cleanup()
		return nil, nil, err
	}

	var stop = func() {
		engine.Stop()
		cleanup()
	}

	return engine, stop, nil
}

func scope() gmkit.Scope {
	return gmkit.ResolveScope(community, gmkit.Channel{ID: channel})
}

func newAuthorityCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "authority",
		Short: "Manage the enabled flag and GM registration for a channel",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "toggle",
			Short: "Flip the ledger system on or off for the channel",
			RunE: func(cmd *cobra.Command, args []string) error {
				var ctx = cmd.Context()
				engine, stop, err := openEngine(ctx)
				if err != nil {
					return err
				}
				defer stop()

				enabled, err := engine.Toggle(ctx, scope())
				if err != nil {
					return err
				}

				if enabled {
					fmt.Println("ledger system enabled")
				} else {
					fmt.Println("ledger system disabled")
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "register <holder>",
			Short: "Register the channel's GM",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var ctx = cmd.Context()
				engine, stop, err := openEngine(ctx)
				if err != nil {
					return err
				}
				defer stop()

				if err := engine.RegisterGM(ctx, scope(), gmkit.Holder(args[0])); err != nil {
					return err
				}
				fmt.Printf("%s is now GM\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "unregister <holder>",
			Short: "Remove the channel's GM",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var ctx = cmd.Context()
				engine, stop, err := openEngine(ctx)
				if err != nil {
					return err
				}
				defer stop()

				if err := engine.UnregisterGM(ctx, scope(), gmkit.Holder(args[0])); err != nil {
					return err
				}
				fmt.Printf("%s is no longer GM\n", args[0])
				return nil
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show the enabled flag for the channel",
			RunE: func(cmd *cobra.Command, args []string) error {
				var ctx = cmd.Context()
				engine, stop, err := openEngine(ctx)
				if err != nil {
					return err
				}
				defer stop()

				enabled, err := engine.IsEnabled(ctx, scope())
				if err != nil {
					return err
				}
				fmt.Printf("enabled: %v\n", enabled)
				return nil
			},
		},
	)

	return cmd
}

func newLedgerCmd() *cobra.Command {
	var actor string

	var cmd = &cobra.Command{
		Use:   "ledger",
		Short: "Query and mutate holder ledgers",
	}
	cmd.PersistentFlags().StringVar(&actor, "as", "", "Acting holder; mutations require the channel's GM")

	// requireGM performs the caller-side authority check the bot router would
	// normally do before invoking a ledger mutation.
	var requireGM = func(ctx context.Context, engine *gmkit.Engine) error {
		enabled, err := engine.IsEnabled(ctx, scope())
		if err != nil {
			return err
		}
		if !enabled {
			return fmt.Errorf("ledger system is not enabled for this channel")
		}

		isGM, err := engine.IsGM(ctx, scope(), gmkit.Holder(actor))
		if err != nil {
			return err
		}
		if !isGM {
			return fmt.Errorf("holder %q is not the channel's GM", actor)
		}
		return nil
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show <holder>",
			Short: "Print a holder's ledger",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				var ctx = cmd.Context()
				engine, stop, err := openEngine(ctx)
				if err != nil {
					return err
				}
				defer stop()

				items, err := engine.Ledger(ctx, scope(), gmkit.Holder(args[0]))
				if err != nil {
					return err
				}
				printItems(items)
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <holder> <name=qty>...",
			Short: "Add items to a holder's ledger (GM only)",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				var ctx = cmd.Context()
				engine, stop, err := openEngine(ctx)
				if err != nil {
					return err
				}
				defer stop()

				if err := requireGM(ctx, engine); err != nil {
					return err
				}

				var items = gmkit.ParseItemTokens(args[1:])
				if len(items) == 0 {
					return fmt.Errorf("no valid name=qty tokens given")
				}
				return engine.AddItems(ctx, scope(), gmkit.Holder(args[0]), items)
			},
		},
		&cobra.Command{
			Use:   "remove <holder> <name=qty>...",
			Short: "Remove items from a holder's ledger (GM only)",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				var ctx = cmd.Context()
				engine, stop, err := openEngine(ctx)
				if err != nil {
					return err
				}
				defer stop()

				if err := requireGM(ctx, engine); err != nil {
					return err
				}

				var items = gmkit.ParseItemTokens(args[1:])
				if len(items) == 0 {
					return fmt.Errorf("no valid name=qty tokens given")
				}
				return engine.RemoveItems(ctx, scope(), gmkit.Holder(args[0]), items)
			},
		},
		&cobra.Command{
			Use:   "delete <holder> <name>...",
			Short: "Delete items outright regardless of quantity (GM only)",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				var ctx = cmd.Context()
				engine, stop, err := openEngine(ctx)
				if err != nil {
					return err
				}
				defer stop()

				if err := requireGM(ctx, engine); err != nil {
					return err
				}

				var names = gmkit.ParseItemNames(args[1:])
				if len(names) == 0 {
					return fmt.Errorf("no item names given")
				}
				return engine.DeleteItems(ctx, scope(), gmkit.Holder(args[0]), names)
			},
		},
		&cobra.Command{
			Use:   "give <to> <name=qty>...",
			Short: "Transfer items from the acting holder to another",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				var ctx = cmd.Context()
				engine, stop, err := openEngine(ctx)
				if err != nil {
					return err
				}
				defer stop()

				enabled, err := engine.IsEnabled(ctx, scope())
				if err != nil {
					return err
				}
				if !enabled {
					return fmt.Errorf("ledger system is not enabled for this channel")
				}
				if actor == "" {
					return fmt.Errorf("--as is required for give")
				}

				var items = gmkit.ParseItemTokens(args[1:])
				if len(items) == 0 {
					return fmt.Errorf("no valid name=qty tokens given")
				}
				return engine.Transfer(ctx, scope(), gmkit.Holder(actor), gmkit.Holder(args[0]), items)
			},
		},
	)

	return cmd
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Interactively watch ready statuses for a channel",
		RunE:  runWatch,
	}
}

func runWatch(cmd *cobra.Command, args []string) error {
	var ctx = cmd.Context()

	engine, stop, err := openEngine(ctx)
	if err != nil {
		return err
	}
	defer stop()

	printReady(ctx, engine)

	var ticker = time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	// Set up signal handling for graceful shutdown
	var sigCh = make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Initialize keyboard
	if err := keyboard.Open(); err != nil {
		return fmt.Errorf("failed to initialize keyboard: %w", err)
	}
	defer keyboard.Close()

	// Keyboard input channel
	var keyCh = make(chan rune)
	go func() {
		for {
			char, _, err := keyboard.GetKey()
			if err != nil {
				return
			}
			keyCh <- char
		}
	}()

	// Main loop
	for {
		select {
		case <-ticker.C:
			printReady(ctx, engine)
		case key := <-keyCh:
			switch key {
			case 'q', 'Q':
				fmt.Printf("\n\nShutting down...\n")
				return nil
			}
		case <-sigCh:
			fmt.Printf("\n\nShutting down...\n")
			return nil
		}
	}
}

func printReady(ctx context.Context, engine *gmkit.Engine) {
	fmt.Print("\033[2J\033[H") // Clear screen and move cursor to top
	fmt.Printf("Ready statuses for %s/%s\n\n", community, channel)

	labels, err := engine.CheckReady(ctx, scope())
	if err != nil {
		fmt.Printf("  error: %v\n", err)
	} else if len(labels) == 0 {
		fmt.Printf("  nobody is ready\n")
	} else {
		for _, label := range labels {
			fmt.Printf("  - %s\n", label)
		}
	}

	fmt.Printf("\nControls:\n")
	fmt.Printf("  [q] Quit\n")
}

func printItems(items gmkit.Items) {
	if len(items) == 0 {
		fmt.Println("ledger is empty")
		return
	}

	var names = make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("  %-24s %d\n", name, items[name])
	}
}
