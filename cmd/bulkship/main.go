package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/bft-labs/bulkship/internal/adapters/log"
	"github.com/bft-labs/bulkship/internal/cliconfig"
	"github.com/bft-labs/bulkship/internal/spool"
	"github.com/bft-labs/bulkship/pkg/bulkship"
)

const longHelp = `Group newline-separated commands into blocks.

Every block is logged to stdout as "[<id>] bulk: a, b, c" and written to its
own file in the output directory. A line holding only "{" opens a dynamic
block that lasts until the matching "}" regardless of the block size.

By default stdin is read as a single connection. With --watch, every *.cmd
file dropped into the directory is processed as its own connection until the
process receives SIGINT or SIGTERM.`

var exampleUsage = strings.TrimSpace(`
  seq 1 10 | bulkship --block-size 3 --output-dir /tmp/blocks
  bulkship --watch /var/spool/bulkship --file-workers 4 --metrics-addr :9100
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	// replaced once the configured level and format are known
	log := logAdapter.NewConsoleLogger(os.Stderr)

	root := &cobra.Command{
		Use:          "bulkship",
		Short:        "Group commands into blocks and fan them out to logs and files",
		Long:         longHelp,
		Example:      exampleUsage,
		Version:      fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			// BULKSHIP_* override the file but not explicit flags
			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			log = cliconfig.NewLogger(cfg, os.Stderr)
			log.Info().Interface("config", cfg).Msg("configuration")

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, cfg, log, os.Stdin, os.Stdout)
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.bulkship/config.toml)")
	root.Flags().IntVar(&cfg.BlockSize, "block-size", cfg.BlockSize, "commands per static block")
	root.Flags().IntVar(&cfg.FileWorkers, "file-workers", cfg.FileWorkers, "file-writing goroutines per connection")
	root.Flags().StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "directory receiving one file per block")
	root.Flags().IntVar(&cfg.MaxLineBytes, "max-line-bytes", cfg.MaxLineBytes, "longest accepted input line")

	root.Flags().StringVar(&cfg.WatchDir, "watch", cfg.WatchDir, "ingest *.cmd files from this directory instead of stdin")
	root.Flags().DurationVar(&cfg.Debounce, "debounce", cfg.Debounce, "quiet period before a spool file is ingested")
	root.Flags().IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "read size for stdin and spool files")

	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	root.Flags().StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (console or json)")
	root.Flags().StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve Prometheus metrics on this address")

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("bulkship")
		os.Exit(1)
	}
}

// run wires the registry and drives it from stdin or the spool directory.
func run(ctx context.Context, cfg cliconfig.Config, log zerolog.Logger, in io.Reader, out io.Writer) error {
	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	logger := logAdapter.NewZerologAdapterWithLogger(log)
	reg, err := bulkship.New(bulkship.Config{
		FileWorkers:  cfg.FileWorkers,
		OutputDir:    cfg.OutputDir,
		MaxLineBytes: cfg.MaxLineBytes,
	},
		bulkship.WithLogger(logger),
		bulkship.WithSink(newSink(cfg, out)),
		bulkship.WithRegisterer(promReg),
	)
	if err != nil {
		return fmt.Errorf("create registry: %w", err)
	}
	defer reg.Close()

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		log.Info().Str("addr", cfg.MetricsAddr).Msg("serving metrics")
	}

	if cfg.WatchDir != "" {
		w := spool.New(spool.Config{
			Dir:           cfg.WatchDir,
			BlockSize:     cfg.BlockSize,
			ChunkSize:     cfg.ChunkSize,
			DebounceDelay: cfg.Debounce,
		}, reg, logger)
		if err := w.Run(ctx); err != nil {
			return err
		}
		log.Info().Msg("received signal, stopping...")
		return reg.Close()
	}

	return streamInput(ctx, reg, cfg, in)
}

// newSink renders reports as plain text, or as one JSON event per message
// when logs are JSON too.
func newSink(cfg cliconfig.Config, out io.Writer) bulkship.Sink {
	if cfg.LogFormat == cliconfig.FormatJSON {
		return logAdapter.NewZerologSink(logAdapter.NewJSONLogger(out))
	}
	return logAdapter.NewWriterSink(out)
}

type chunk struct {
	data []byte
	err  error
}

// streamInput feeds in as one connection until EOF or cancellation. The
// connection is disconnected either way, so its report is always written.
func streamInput(ctx context.Context, reg *bulkship.Registry, cfg cliconfig.Config, in io.Reader) error {
	h, err := reg.Connect(cfg.BlockSize)
	if err != nil {
		return err
	}
	defer reg.Disconnect(h)

	chunks := make(chan chunk)
	go readChunks(ctx, in, cfg.ChunkSize, chunks)

	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-chunks:
			if len(c.data) > 0 {
				reg.Receive(h, c.data)
			}
			if errors.Is(c.err, io.EOF) {
				return nil
			}
			if c.err != nil {
				return fmt.Errorf("read input: %w", c.err)
			}
		}
	}
}

// readChunks reads until an error and hands every read to out. A read
// blocked on idle input is abandoned when ctx is canceled.
func readChunks(ctx context.Context, in io.Reader, size int, out chan<- chunk) {
	for {
		buf := make([]byte, size)
		n, err := in.Read(buf)
		select {
		case out <- chunk{data: buf[:n], err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}
