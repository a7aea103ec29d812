package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/filetap/filetap/internal/config"
	"github.com/filetap/filetap/internal/endpoint"
	"github.com/filetap/filetap/internal/event"
	"github.com/filetap/filetap/internal/gfile"
	"github.com/filetap/filetap/internal/poller"
)

var version = "dev"

// optionFlag is a custom pflag.Value collecting repeated -o key=value
// pairs. They act as option defaults; the URI query always wins.
type optionFlag struct {
	opts map[string]string
}

var _ pflag.Value = (*optionFlag)(nil)

func (*optionFlag) String() string { return "" }
func (*optionFlag) Type() string   { return "key=value" }

func (f *optionFlag) Set(val string) error {
	key, value, ok := strings.Cut(val, "=")
	if !ok || key == "" {
		return fmt.Errorf("expected key=value, got %q", val)
	}
	f.opts[key] = value
	return nil
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		verbose   bool
		quiet     bool
		watchMode bool
		stableStr string
	)
	overrides := &optionFlag{opts: map[string]string{}}

	rootCmd := &cobra.Command{
		Use:           "filetap",
		Short:         "Consume files from a directory endpoint",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logLevel := slog.LevelWarn
			if verbose {
				logLevel = slog.LevelDebug
			} else if !quiet {
				logLevel = slog.LevelInfo
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
				Level: logLevel,
			}))
			slog.SetDefault(logger)
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "errors only")
	rootCmd.PersistentFlags().VarP(overrides, "option", "o", "default endpoint option (repeatable)")

	checkCmd := &cobra.Command{
		Use:   "check <uri>",
		Short: "Resolve an endpoint URI and print its configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ep, _, err := resolve(args[0], overrides.opts)
			if err != nil {
				return err
			}
			printEndpoint(ep)
			return nil
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch <uri>",
		Short: "Consume files from an endpoint until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ep, cfg, err := resolve(args[0], overrides.opts)
			if err != nil {
				return err
			}

			var stable time.Duration
			if stableStr != "" {
				stable, err = time.ParseDuration(stableStr)
				if err != nil {
					return fmt.Errorf("invalid --stable-interval: %w", err)
				}
			}

			if !cmd.Flags().Changed("notify") && cfg.Defaults.Watch != nil {
				watchMode = *cfg.Defaults.Watch
			}
			if stable == 0 && cfg.Defaults.StableInterval != nil {
				stable, err = time.ParseDuration(*cfg.Defaults.StableInterval)
				if err != nil {
					slog.Warn("invalid stable_interval in config", "error", err)
				}
			}

			events := make(chan event.Event, 256)
			done := make(chan struct{})
			go func() {
				defer close(done)
				logEvents(events)
			}()

			process := func(_ context.Context, file *gfile.GenericFile) error {
				fmt.Fprintln(os.Stdout, file.RelativePath)
				return nil
			}

			p, err := poller.New(ep, process, poller.Options{
				Events:         events,
				StableInterval: stable,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			slog.Info("consuming", "endpoint", ep.String(), "watch", watchMode)
			if watchMode {
				err = p.Watch(ctx)
			} else {
				err = p.Run(ctx)
			}
			close(events)
			<-done

			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	watchCmd.Flags().BoolVar(&watchMode, "notify", false, "use filesystem notifications instead of polling")
	watchCmd.Flags().StringVar(&stableStr, "stable-interval", "", "interval for the changed read lock (e.g. 200ms)")

	rootCmd.AddCommand(checkCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "filetap: %v\n", err)
		return 1
	}
	return 0
}

// resolve layers option defaults under the URI query: CLI -o pairs win
// over config-file defaults, and the URI wins over both.
func resolve(uri string, overrides map[string]string) (*endpoint.Endpoint, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config", "error", err)
	}

	defaults := cfg.EndpointDefaults()
	for key, value := range overrides {
		defaults[key] = value
	}
	ep, err := endpoint.ResolveWithDefaults(uri, defaults)
	return ep, cfg, err
}

func printEndpoint(ep *endpoint.Endpoint) {
	fmt.Printf("endpoint:  %s\n", ep.String())
	fmt.Printf("root:      %s\n", ep.RootPath)
	fmt.Printf("absolute:  %v\n", ep.IsAbsolute)
	fmt.Printf("recursive: %v\n", ep.Config.Recursive)
	fmt.Printf("delay:     %s (initial %s, fixed %v)\n",
		ep.Config.Delay, ep.Config.InitialDelay, ep.Config.UseFixedDelay)
	fmt.Printf("readLock:  %s\n", ep.Config.ReadLock)
	if ep.Config.Charset != "" {
		fmt.Printf("charset:   %s\n", ep.Config.Charset)
	}
	switch {
	case ep.Config.Noop:
		fmt.Println("post:      noop")
	case ep.Config.Delete:
		fmt.Println("post:      delete")
	case ep.Config.Move != "":
		fmt.Printf("post:      move to %s\n", ep.Config.Move)
	}
}

func logEvents(events <-chan event.Event) {
	for ev := range events {
		attrs := []slog.Attr{
			slog.String("type", ev.Type.String()),
		}
		if ev.Path != "" {
			attrs = append(attrs, slog.String("path", ev.Path))
		}
		if ev.Type == event.PollComplete {
			attrs = append(attrs, slog.Int("count", ev.Count))
		}
		if ev.Error != nil {
			attrs = append(attrs, slog.String("error", ev.Error.Error()))
		}
		level := slog.LevelDebug
		switch ev.Type {
		case event.FileCompleted:
			level = slog.LevelInfo
		case event.FileFailed:
			level = slog.LevelError
		}
		slog.LogAttrs(context.Background(), level, "filetap.event", attrs...)
	}
}
