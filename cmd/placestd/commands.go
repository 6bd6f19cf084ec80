package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"place-std/internal/check"
	"place-std/internal/config"
	"place-std/internal/ingest"
	"place-std/internal/migrate"
	"place-std/internal/standardize"
	"place-std/internal/store/backend"
	"place-std/internal/tokenize"
	"place-std/internal/utils"
)

// cliOptions：全局参数，缺省值来自环境变量
type cliOptions struct {
	settings config.Settings
	backend  string
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{settings: config.FromEnv()}
	root := &cobra.Command{
		Use:           "placestd",
		Short:         "Resolve free-form place names against a gazetteer",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.settings.Backend = config.Backend(strings.ToLower(opts.backend))
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.backend, "backend", string(opts.settings.Backend), "place store backend: local|postgres|cached")
	pf.StringVar(&opts.settings.LocalDir, "dir", opts.settings.LocalDir, "local gazetteer directory")
	pf.StringVar(&opts.settings.RulesPath, "rules", opts.settings.RulesPath, "standardizer rules YAML (embedded default when empty)")

	root.AddCommand(newResolveCmd(opts), newCheckCmd(opts), newBuildCmd(opts), newImportCmd(opts))
	return root
}

// open：加载规则并打开后端；返回的释放函数必须调用
func (o *cliOptions) open(ctx context.Context, h standardize.ErrorHandler) (*standardize.Standardizer, func(), error) {
	rules, err := config.Load(o.settings.RulesPath)
	if err != nil {
		return nil, nil, err
	}
	st, closeStore, err := backend.Open(ctx, o.settings)
	if err != nil {
		return nil, nil, err
	}
	return standardize.New(rules, st, standardize.WithErrorHandler(h)), closeStore, nil
}

func newResolveCmd(opts *cliOptions) *cobra.Command {
	var (
		country string
		mode    string
		n       int
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "resolve TEXT...",
		Short: "Resolve each argument and print the matched places",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := standardize.ParseMode(mode)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rec := &standardize.Recorder{}
			std, closeStore, err := opts.open(ctx, rec)
			if err != nil {
				return err
			}
			defer closeStore()
			out := cmd.OutOrStdout()
			for _, text := range args {
				before := len(rec.Diagnostics())
				res := std.Resolve(ctx, text, country, m, n)
				if len(res) == 0 {
					fmt.Fprintf(out, "%s\t-\n", text)
				}
				for _, ps := range res {
					fmt.Fprintf(out, "%s\t%d\t%s\t%.4f\n", text, ps.Place.ID, std.FullName(ctx, ps.Place), ps.Score)
				}
				if verbose {
					for _, d := range rec.Diagnostics()[before:] {
						fmt.Fprintf(out, "  %s level=%d ids=%v\n", d.Kind, d.Level, d.IDs)
					}
				}
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&country, "country", "", "default country hint")
	f.StringVar(&mode, "mode", "best", "match mode: best|required|new")
	f.IntVarP(&n, "num", "n", 1, "number of results")
	f.BoolVarP(&verbose, "verbose", "v", false, "print diagnostics")
	return cmd
}

func newCheckCmd(opts *cliOptions) *cobra.Command {
	var mapPath string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Replay a regression map of input to expected full name and print differences",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := check.LoadMap(mapPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			start := time.Now()
			std, closeStore, err := opts.open(ctx, standardize.NopHandler{})
			if err != nil {
				return err
			}
			defer closeStore()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Init: %.3f\n", time.Since(start).Seconds())
			rep, err := check.Run(ctx, std, m, out)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Identical: %d\tDiff: %d\tElapsed: %.3f\n", rep.Identical, rep.Diff, rep.Elapsed.Seconds())
			return nil
		},
	}
	cmd.Flags().StringVar(&mapPath, "map", "PlacesMap.json", "JSON object of input to expected full name")
	return cmd
}

func sourceFlags(cmd *cobra.Command, src *ingest.Sources) {
	f := cmd.Flags()
	f.StringVar(&src.Places, "places", "", "places.tsv path or URL (gzip accepted)")
	f.StringVar(&src.Words, "words", "", "place_words.tsv path or URL; derived from names when empty")
	_ = cmd.MarkFlagRequired("places")
}

func newBuildCmd(opts *cliOptions) *cobra.Command {
	var src ingest.Sources
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the local gazetteer directory from TSV dumps",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := config.Load(opts.settings.RulesPath)
			if err != nil {
				return err
			}
			return ingest.BuildLocal(opts.settings.LocalDir, src, rules, tokenize.New())
		},
	}
	sourceFlags(cmd, &src)
	return cmd
}

func newImportCmd(opts *cliOptions) *cobra.Command {
	var (
		src     ingest.Sources
		ifEmpty bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import TSV dumps into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules, err := config.Load(opts.settings.RulesPath)
			if err != nil {
				return err
			}
			db, err := utils.OpenDB(cmd.Context(), utils.PGOptionsFromEnv())
			if err != nil {
				return err
			}
			defer db.Close()
			if err := migrate.EnsureSchema(db); err != nil {
				return err
			}
			if ifEmpty {
				return ingest.ImportIfEmpty(cmd.Context(), db, src, rules, tokenize.New())
			}
			return ingest.ImportPostgres(cmd.Context(), db, src, rules, tokenize.New())
		},
	}
	sourceFlags(cmd, &src)
	cmd.Flags().BoolVar(&ifEmpty, "if-empty", false, "skip when the places table already has rows")
	return cmd
}
