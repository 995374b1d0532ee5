package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"promextract/catalog"
	"promextract/collector"
	"promextract/config"
	"promextract/logger"
	"promextract/render"
	"promextract/timerange"
)

var nowFn = time.Now

// usageError marks an invalid invocation. It maps to exit code 2.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...interface{}) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

// appValue is a pflag.Value restricted to the known applications.
type appValue catalog.App

func (a *appValue) String() string { return string(*a) }
func (a *appValue) Type() string   { return "app" }
func (a *appValue) Set(s string) error {
	app, err := catalog.ParseApp(s)
	if err != nil {
		return err
	}
	*a = appValue(app)
	return nil
}

type options struct {
	app      appValue
	compare  bool
	duration string
	start    string
	end      string
	format   render.Format
	output   string

	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &options{format: render.FormatMarkdown}

	cmd := &cobra.Command{
		Use:   "promextract",
		Short: "Extract Prometheus metrics from k6 load test runs",
		Long: `promextract queries Prometheus for the performance metrics of the
load-tested applications after a k6 run and prints them as markdown,
JSON or CSV.`,
		Example: `  # Extract from last 6 minutes
  promextract --app webflux --duration 6m --format markdown

  # Extract with specific time range
  promextract --app mvc --start "2026-01-30T14:00:00Z" --end "2026-01-30T14:06:00Z" --format json

  # Compare both apps
  promextract --compare --duration 6m --format markdown

  # Save to file
  promextract --app webflux --duration 6m --format markdown --output results.md`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageErrorf("unexpected arguments: %v", args)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	f := cmd.Flags()
	f.Var(&opts.app, "app", "application to extract metrics for: webflux or mvc (required unless --compare)")
	f.BoolVar(&opts.compare, "compare", false, "compare both WebFlux and MVC applications")
	f.StringVar(&opts.duration, "duration", "", "duration to look back (e.g. '6m', '1h', '30s')")
	f.StringVar(&opts.start, "start", "", "start time (ISO format: 2026-01-30T14:00:00Z)")
	f.StringVar(&opts.end, "end", "", "end time (ISO format: 2026-01-30T14:06:00Z)")
	f.Var(&opts.format, "format", "output format: json, csv or markdown")
	f.StringVarP(&opts.output, "output", "o", "", "output file (default: stdout)")

	f.StringVar(&opts.configPath, "config", "", "path to a yaml config file (default ./configs/config.yaml if present)")
	// Read through config.Load, which binds them into viper.
	f.String("prometheus-url", "", "Prometheus base URL (default http://localhost:9090)")
	f.String("log-level", "", "log level: debug, info, warn or error (default info)")

	return cmd
}

// validate checks flag combinations before anything touches the network.
func (o *options) validate() error {
	if o.app == "" && !o.compare {
		return usageErrorf("either --app or --compare must be specified")
	}
	if o.app != "" && o.compare {
		return usageErrorf("--app and --compare are mutually exclusive")
	}
	if o.duration != "" && (o.start != "" || o.end != "") {
		return usageErrorf("cannot specify both --duration and --start/--end")
	}
	if o.duration == "" && (o.start == "" || o.end == "") {
		return usageErrorf("must specify either --duration or both --start and --end")
	}
	if o.compare && o.format == render.FormatCSV {
		return &usageError{err: render.ErrCSVComparison}
	}
	return nil
}

func (o *options) window(now time.Time) (timerange.Window, error) {
	if o.duration != "" {
		return timerange.FromDuration(o.duration, now)
	}
	return timerange.Between(o.start, o.end)
}

func (o *options) apps() []catalog.App {
	if o.compare {
		return catalog.Apps()
	}
	return []catalog.App{catalog.App(o.app)}
}

func run(cmd *cobra.Command, opts *options) error {
	if err := opts.validate(); err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath, cmd.Flags())
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("setting up logger: %w", err)
	}
	defer logger.Flush(log.Logger)

	w, err := opts.window(nowFn())
	if err != nil {
		return fmt.Errorf("parsing time: %w", err)
	}
	log.Logger.Debug("resolved window", zap.Time("start", w.Start), zap.Time("end", w.End))

	ctx := cmd.Context()
	client := collector.NewClient(cfg.PrometheusURL, cfg.QueryTimeout, cfg.ProbeTimeout, log.Logger)
	if !client.Healthy(ctx) {
		return fmt.Errorf("cannot connect to Prometheus at %s\nMake sure Prometheus is running (try: docker-compose up -d)", cfg.PrometheusURL)
	}

	stderr := cmd.ErrOrStderr()
	var reports []*collector.Report
	for _, app := range opts.apps() {
		fmt.Fprintf(stderr, "Collecting %s metrics...\n", app.DisplayName())
		reports = append(reports, collector.Collect(ctx, client, app, w.End, log.Logger))
	}

	out, err := render.Render(opts.format, w, reports...)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), stderr, opts.output, out)
}

// writeOutput prints the report to stdout, or replaces the file at path.
func writeOutput(stdout, stderr io.Writer, path string, out []byte) error {
	if path == "" {
		_, err := fmt.Fprintln(stdout, string(out))
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	fmt.Fprintf(stderr, "Output written to %s\n", path)
	return nil
}
