package main

import (
	"time"

	"github.com/park285/pgn2gif/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagValues mirrors the command line; only flags the user set override
// the file and environment layers.
type flagValues struct {
	config     string
	input      string
	output     string
	player     string
	all        bool
	verbose    bool
	sequential bool
	workers    int
	delay      int
	renderURL  string
	comment    string
	timeout    time.Duration
	rateLimit  float64
	ledger     string
}

func newRootCommand(a *app) *cobra.Command {
	fv := &flagValues{}

	rootCmd := &cobra.Command{
		Use:           "pgn2gif",
		Short:         "Render PGN games to animated GIFs through a lila-gif service",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, fv)
			if err != nil {
				return err
			}
			return runConvert(cmd.Context(), a, cfg)
		},
	}
	rootCmd.SetIn(a.stdin)
	rootCmd.SetOut(a.stdout)
	rootCmd.SetErr(a.stderr)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&fv.config, "config", "c", "", "Configuration file (.yaml, .yml or .toml)")
	pf.StringVar(&fv.ledger, "ledger", "", "Run ledger DSN: postgres:// URL or SQLite file path")

	bindRunFlags(rootCmd.Flags(), fv)

	rootCmd.AddCommand(newHistoryCommand(a, fv))
	rootCmd.AddCommand(newVersionCommand(a))
	return rootCmd
}

func bindRunFlags(f *pflag.FlagSet, fv *flagValues) {
	f.StringVarP(&fv.input, "input", "i", "", "PGN file to read")
	f.StringVarP(&fv.output, "output", "o", "", "Existing directory for the GIF files")
	f.StringVarP(&fv.player, "player", "p", "", "Only render games where this name plays either side")
	f.BoolVar(&fv.all, "all", false, "Render every game regardless of --player")
	f.BoolVarP(&fv.verbose, "verbose", "v", false, "Log every written file")
	f.BoolVar(&fv.sequential, "sequential", false, "Render one game at a time in input order")
	f.IntVarP(&fv.workers, "workers", "w", config.DefaultWorkers, "Concurrent renders")
	f.IntVar(&fv.delay, "delay", config.DefaultFrameDelay, "Frame delay in milliseconds")
	f.StringVar(&fv.renderURL, "render-url", config.DefaultRenderURL, "lila-gif endpoint")
	f.StringVar(&fv.comment, "comment", config.DefaultComment, "Comment embedded in each GIF")
	f.DurationVar(&fv.timeout, "timeout", config.DefaultRenderTimeout.Std(), "Per-render timeout")
	f.Float64Var(&fv.rateLimit, "rate-limit", 0, "Maximum renders per second, 0 for no limit")
}

// loadConfig layers flags over config.Load (defaults, file, environment).
func loadConfig(cmd *cobra.Command, fv *flagValues) (*config.AppConfig, error) {
	cfg, err := config.Load(fv.config)
	if err != nil {
		return nil, err
	}
	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}

	if changed("input") {
		cfg.Input = fv.input
	}
	if changed("output") {
		cfg.Output = fv.output
	}
	if changed("player") {
		cfg.Filter.Player = fv.player
	}
	if changed("all") {
		cfg.Filter.All = fv.all
	}
	if changed("verbose") {
		cfg.Verbose = fv.verbose
	}
	if changed("sequential") {
		cfg.Mode = config.ModeConcurrent
		if fv.sequential {
			cfg.Mode = config.ModeSequential
		}
	}
	if changed("workers") {
		cfg.Workers = fv.workers
	}
	if changed("delay") {
		cfg.FrameDelay = fv.delay
	}
	if changed("render-url") {
		cfg.Render.URL = fv.renderURL
	}
	if changed("comment") {
		cfg.Render.Comment = fv.comment
	}
	if changed("timeout") {
		cfg.Render.Timeout = config.Duration(fv.timeout)
	}
	if changed("rate-limit") {
		cfg.Render.RateLimit = fv.rateLimit
	}
	if changed("ledger") {
		cfg.Ledger.DSN = fv.ledger
	}
	return cfg, nil
}
