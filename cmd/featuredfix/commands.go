package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/featuredfix"
	"github.com/eringen/featuredfix/migration"
)

// env bundles what every command needs.
type env struct {
	cfg   featuredfix.Config
	store *featuredfix.Store
}

func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := featuredfix.LoadConfig()
	if err != nil {
		return nil, err
	}
	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.DatabasePath = db
	}
	store, err := featuredfix.NewStore(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &env{cfg: cfg, store: store}, nil
}

func (e *env) controller(opts ...migration.ControllerOption) *migration.Controller {
	opts = append([]migration.ControllerOption{migration.WithLogger(featuredfix.NewLogger(e.cfg))}, opts...)
	return featuredfix.NewController(e.cfg, e.store, opts...)
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "featuredfix",
		Short:         "Remove duplicated featured images from post content",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("db", "", "SQLite database path (overrides FEATUREDFIX_DB)")
	root.AddCommand(
		newServeCmd(),
		newCountCmd(),
		newRunCmd(),
		newMigrateCmd(),
		newStatusCmd(),
		newInstallCmd(),
		newUninstallCmd(),
		newDismissCmd(),
		newImportCmd(),
		newVersionCmd(),
	)
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin UI and migration API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := featuredfix.LoadConfig()
			if err != nil {
				return err
			}
			if db, _ := cmd.Flags().GetString("db"); db != "" {
				cfg.DatabasePath = db
			}
			app := featuredfix.New(cfg)
			defer app.Close()
			return app.Start()
		},
	}
}

func newCountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of eligible posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.store.Close()
			total, err := e.controller().Count(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Println(total)
			return nil
		},
	}
}

func newRunCmd() *cobra.Command {
	var (
		offset   int
		pageSize int
		delay    time.Duration
		dryRun   bool
		quiet    bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Migrate all eligible posts page by page",
		Long: `Processes eligible posts in pages until a short page marks the end of the set.
Interrupting is safe: rerun with --offset set to the reported offset to resume.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.store.Close()
			if !cmd.Flags().Changed("page-size") {
				pageSize = e.cfg.PageSize
			}
			if !cmd.Flags().Changed("delay") {
				delay = e.cfg.PageDelay
			}
			if pageSize < 1 || pageSize > featuredfix.MaxPageSize {
				return fmt.Errorf("page size must be between 1 and %d", featuredfix.MaxPageSize)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			c := e.controller(migration.WithDryRun(dryRun))
			sum, err := migration.Run(ctx, c, migration.RunOptions{
				Offset:   offset,
				PageSize: pageSize,
				Delay:    delay,
				OnPage: func(page migration.PageResult, p migration.Progress) {
					if !quiet {
						for _, line := range page.Log {
							cmd.Println(line)
						}
					}
					cmd.Printf("Progress: %d%% (%d/%d)\n", p.Percent, p.Done, p.Total)
				},
			})
			cmd.Printf("Migrated %d, skipped %d, processed %d in %d pages.\n",
				sum.Stats.Migrated, sum.Stats.Skipped, sum.Processed, sum.Pages)
			if err != nil {
				return fmt.Errorf("stopped at offset %d: %w", sum.Offset, err)
			}
			cmd.Println("Migration complete.")
			return nil
		},
	}
	cmd.Flags().IntVar(&offset, "offset", 0, "offset to start or resume from")
	cmd.Flags().IntVar(&pageSize, "page-size", 20, "posts per page")
	cmd.Flags().DurationVar(&delay, "delay", 500*time.Millisecond, "pause between pages")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only print progress")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "migrate <post-id>",
		Short: "Migrate a single post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid post id %q", args[0])
			}
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.store.Close()
			o, err := e.controller(migration.WithDryRun(dryRun)).MigrateOne(cmd.Context(), id)
			if err != nil {
				return err
			}
			if o.Migrated {
				cmd.Printf("✓ Post %d: %s\n", id, o.Reason)
			} else {
				cmd.Printf("⊘ Post %d: %s\n", id, o.Reason)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would change without writing")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the migration flags and eligible post count",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.store.Close()
			c := e.controller()
			st, err := c.State(cmd.Context())
			if err != nil {
				return err
			}
			total, err := c.Count(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Eligible posts:     %d\n", total)
			cmd.Printf("Notice visible:     %t\n", st.NoticeVisible)
			cmd.Printf("Migration complete: %t\n", st.MigrationComplete)
			return nil
		},
	}
}

// flagCmd builds a command that runs one state transition on the store.
func flagCmd(use, short, done string, fn func(ctx context.Context, e *env) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.store.Close()
			if err := fn(cmd.Context(), e); err != nil {
				return err
			}
			cmd.Println(done)
			return nil
		},
	}
}

func newInstallCmd() *cobra.Command {
	return flagCmd("install", "Create the database and show the migration notice", "Installed.",
		func(ctx context.Context, e *env) error { return e.store.Install(ctx) })
}

func newUninstallCmd() *cobra.Command {
	return flagCmd("uninstall", "Remove the migration flags", "Uninstalled.",
		func(ctx context.Context, e *env) error { return e.store.Uninstall(ctx) })
}

func newDismissCmd() *cobra.Command {
	return flagCmd("dismiss", "Hide the migration notice", "Notice dismissed.",
		func(ctx context.Context, e *env) error { return e.controller().Dismiss(ctx) })
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Load posts from a JSON array into the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var docs []migration.Document
			if err := json.Unmarshal(data, &docs); err != nil {
				return fmt.Errorf("parse %s: %w", args[0], err)
			}
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.store.Close()
			for _, d := range docs {
				if err := e.store.SaveDocument(cmd.Context(), d); err != nil {
					return fmt.Errorf("save post %d: %w", d.ID, err)
				}
			}
			cmd.Printf("Imported %d posts.\n", len(docs))
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the featuredfix version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("featuredfix %s\n", version)
		},
	}
}
