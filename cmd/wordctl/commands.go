package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/playperu/wordrace/internal/database"
	"github.com/playperu/wordrace/internal/migrations"
	"github.com/playperu/wordrace/internal/store"
	"github.com/playperu/wordrace/internal/wordrace"
	"github.com/playperu/wordrace/internal/words"
)

type options struct {
	dbPath   string
	redisURL string
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "wordctl",
		Short:         "Administer the word race database.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(stdout)

	fs := cmd.PersistentFlags()
	fs.StringVar(&opts.dbPath, "db", envOr("DB_PATH", "data/wordrace.db"), "path to the sqlite database (env: DB_PATH)")
	fs.StringVar(&opts.redisURL, "redis-url", os.Getenv("REDIS_URL"), "redis url whose word cache is cleared after an import (env: REDIS_URL)")

	cmd.AddCommand(newMigrateCmd(opts), newImportCmd(opts), newStatsCmd(opts))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	return cmd
}

// openStore opens and migrates the database.
func openStore(ctx context.Context, opts *options) (*sql.DB, int, error) {
	db, err := database.Open(ctx, opts.dbPath)
	if err != nil {
		return nil, 0, err
	}
	applied, err := migrations.Run(ctx, db)
	if err != nil {
		db.Close()
		return nil, 0, fmt.Errorf("running migrations: %w", err)
	}
	return db, applied, nil
}

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, applied, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer db.Close()

			version, err := migrations.Version(ctx, db)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migrations, schema version %d\n", applied, version)
			return nil
		},
	}
}

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: `Append words from a JSON array of {"en": [...], "uz": [...]} objects.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			var list []wordrace.Word
			if err := json.Unmarshal(data, &list); err != nil {
				return fmt.Errorf("decoding %s: %w", args[0], err)
			}

			ctx := cmd.Context()
			db, _, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer db.Close()

			n, err := store.New(db).InsertWords(ctx, list)
			if err != nil {
				return fmt.Errorf("importing words: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d words\n", n)

			if opts.redisURL == "" {
				return nil
			}
			return invalidateCache(ctx, opts.redisURL)
		},
	}
}

// invalidateCache drops cached units so servers pick up the new words.
func invalidateCache(ctx context.Context, rawURL string) error {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return fmt.Errorf("parsing redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	defer rdb.Close()

	catalog := words.NewCatalog(words.Layout{}, nil, rdb, 0, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err := catalog.Invalidate(ctx); err != nil {
		return fmt.Errorf("clearing word cache: %w", err)
	}
	return nil
}

func newStatsCmd(opts *options) *cobra.Command {
	var layout words.Layout
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print dictionary and user counts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			db, _, err := openStore(ctx, opts)
			if err != nil {
				return err
			}
			defer db.Close()

			st := store.New(db)
			nWords, err := st.CountWords(ctx)
			if err != nil {
				return err
			}
			nUsers, err := st.CountUsers(ctx)
			if err != nil {
				return err
			}
			version, err := migrations.Version(ctx, db)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "schema version: %d\n", version)
			fmt.Fprintf(out, "users: %d\n", nUsers)
			fmt.Fprintf(out, "words: %d of %d\n", nWords, layout.WordsCount())
			if full := nWords / max(layout.WordsInUnit, 1); full < layout.UnitsInBook*layout.Books {
				fmt.Fprintf(out, "complete units: %d of %d\n", full, layout.UnitsInBook*layout.Books)
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&layout.WordsInUnit, "words-in-unit", 20, "words per unit")
	fs.IntVar(&layout.UnitsInBook, "units-in-book", 30, "units per book")
	fs.IntVar(&layout.Books, "books", 6, "number of books")
	return cmd
}
