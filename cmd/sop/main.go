// Command sop compiles and runs RDF quad-stream pipelines described on a
// single command line.
//
// A thin cobra.Command shell around panic recovery, slog setup, and
// config loading, with the actual work delegated to package-level
// engines. sop's own grammar (`STAGE (! STAGE)*`) is not a conventional
// flag/subcommand tree, so the root command parses only a small set of
// global flags itself and hands everything from the first stage name
// onward to package cli.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/sophia-cli/sop/cli"
	"github.com/sophia-cli/sop/config"
	"github.com/sophia-cli/sop/errs"
	"github.com/sophia-cli/sop/format"
	"github.com/sophia-cli/sop/jsonld"
	"github.com/sophia-cli/sop/metrics"
	"github.com/sophia-cli/sop/pipeline"
	"github.com/sophia-cli/sop/stage"

	// Register every stage kind via init().
	_ "github.com/sophia-cli/sop/stages"
)

const (
	version = "0.1.0"
	appName = "sop"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			fmt.Fprintf(os.Stderr, "panic: %v\n%s\n", r, buf[:n])
			os.Exit(1)
		}
	}()

	globals, tail, err := splitGlobalFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(2)
	}

	root := rootCmd(globals, tail)
	if len(tail) > 0 && (tail[0] == "-h" || tail[0] == "--help") {
		fmt.Print(root.UsageString())
		return
	}

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		os.Exit(errs.ExitCode(err))
	}
}

// globalFlags holds the handful of process-level options that sit in front
// of the pipeline grammar: sop's own, parsed before the pipeline token
// ever comes into play.
type globalFlags struct {
	verbosity     int
	configPath    string
	metricsAddr   string
	queryEndpoint string
	natsURL       string
}

// splitGlobalFlags scans argv for sop's own global flags up to the first
// token that isn't one of them — that token and everything after it is
// the pipeline tail, handed to package cli untouched. Stage flags like
// `-f`/`-m`/`-o` must never be consumed here, only the global flags sop
// itself defines.
func splitGlobalFlags(args []string) (globalFlags, []string, error) {
	var g globalFlags
	i := 0
	for i < len(args) {
		a := args[i]
		switch {
		case a == "-v" || a == "--verbose":
			g.verbosity++
			i++
		case a == "-vv":
			g.verbosity += 2
			i++
		case a == "--config":
			v, n, err := takeValue(args, i, "--config")
			if err != nil {
				return g, nil, err
			}
			g.configPath, i = v, n
		case a == "--metrics-addr":
			v, n, err := takeValue(args, i, "--metrics-addr")
			if err != nil {
				return g, nil, err
			}
			g.metricsAddr, i = v, n
		case a == "--query-endpoint":
			v, n, err := takeValue(args, i, "--query-endpoint")
			if err != nil {
				return g, nil, err
			}
			g.queryEndpoint, i = v, n
		case a == "--nats-url":
			v, n, err := takeValue(args, i, "--nats-url")
			if err != nil {
				return g, nil, err
			}
			g.natsURL, i = v, n
		default:
			return g, args[i:], nil
		}
	}
	return g, nil, nil
}

func takeValue(args []string, i int, flag string) (string, int, error) {
	if i+1 >= len(args) {
		return "", 0, fmt.Errorf("flag %q requires a value", flag)
	}
	return args[i+1], i + 2, nil
}

func rootCmd(globals globalFlags, tail []string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sop STAGE [! STAGE]...",
		Short:         "Compose RDF quad-stream pipelines",
		Long:          "sop treats an RDF quad stream as the universal interchange medium\nand composes pipelines of subcommands that produce, transform, or consume it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		// The pipeline tail has its own grammar; cobra must not
		// try to parse `-f`, `-m`, `-o`, etc. as its own flags.
		DisableFlagParsing: true,
		RunE: func(*cobra.Command, []string) error {
			return runPipeline(globals, tail)
		},
	}
	cmd.SetArgs(tail)
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(*cobra.Command, []string) {
			fmt.Printf("%s version %s\n", appName, version)
		},
	})
	return cmd
}

func runPipeline(globals globalFlags, tail []string) error {
	logger := newLogger(globals.verbosity)

	cfg, err := config.Resolve(globals.configPath)
	if err != nil {
		return errs.New(errs.KindIO, "config", err)
	}
	for alias, canonical := range cfg.FormatAliases {
		if err := format.RegisterAlias(alias, canonical); err != nil {
			return err
		}
	}

	deps := stage.Deps{
		Logger: logger,
		JSONLD: buildJSONLDLoader(cfg),
	}

	metricsAddr := globals.metricsAddr
	if metricsAddr == "" {
		metricsAddr = cfg.MetricsAddr
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if metricsAddr != "" {
		registry := metrics.New()
		deps.Metrics = registry
		srv := metrics.NewServer(metricsAddr, registry)
		go func() {
			if err := srv.Start(ctx); err != nil {
				logger.Warn("metrics server stopped", slog.String("error", err.Error()))
			}
		}()
		logger.Info("metrics listening", slog.String("addr", metricsAddr))
	}

	queryEndpoint := globals.queryEndpoint
	if queryEndpoint == "" {
		queryEndpoint = cfg.QueryEndpoint
	}
	if queryEndpoint != "" {
		natsURL := globals.natsURL
		if natsURL == "" {
			natsURL = cfg.NATSURL
		}
		if natsURL == "" {
			natsURL = nats.DefaultURL
		}
		conn, err := nats.Connect(natsURL)
		if err != nil {
			return errs.New(errs.KindIO, "nats-connect", err)
		}
		defer conn.Close()
		deps.QueryEndpoint = queryEndpoint
		deps.QueryConn = natsRequester{conn}
	}

	if len(tail) == 0 {
		return errs.Usagef("cli", "no stages given; usage: %s", "sop STAGE [! STAGE]...")
	}
	specs, entries, err := cli.ParseAll(tail)
	if err != nil {
		return err
	}
	plan, err := pipeline.Compile(specs, entries, deps)
	if err != nil {
		return err
	}
	return plan.Run()
}

// newLogger maps sop's counted -v flag to a slog level: silent by default
// is too quiet for a CLI pipeline tool, so the baseline is Warn, one -v
// raises it to Info, two or more to Debug (the original Rust tool used
// clap_verbosity's off/error/warn/info/debug/trace ladder; slog only has
// four levels, so sop collapses the ladder rather than inventing levels
// slog doesn't have).
func newLogger(verbosity int) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbosity >= 2:
		level = slog.LevelDebug
	case verbosity == 1:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

func buildJSONLDLoader(cfg *config.Config) jsonld.Loader {
	var l jsonld.Loader
	if cfg.JSONLDLocalRoot != "" {
		l.Local = &jsonld.LocalLoader{Root: cfg.JSONLDLocalRoot}
	}
	if cfg.JSONLDAllowRemote {
		l.URL = &jsonld.URLLoader{}
	}
	return l
}

// natsRequester adapts *nats.Conn to stage.QueryRequester so the stage
// package never imports nats.go directly: stage constructors depend only
// on the interfaces the registry defines.
type natsRequester struct {
	conn *nats.Conn
}

func (n natsRequester) Request(subject string, data []byte, timeout time.Duration) ([]byte, error) {
	msg, err := n.conn.Request(subject, data, timeout)
	if err != nil {
		return nil, err
	}
	return msg.Data, nil
}
