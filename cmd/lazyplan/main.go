package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Joseda-hg/lazyplan/internal/record"
	"github.com/Joseda-hg/lazyplan/internal/tui"
)

type options struct {
	configPath string
	dataPath   string
	backend    string
	port       int
	web        bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:          "lazyplan",
		Short:        "Plan items, groups and their schedule from the terminal",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file path")
	flags.StringVar(&opts.dataPath, "data", "", "record file or sqlite db path")
	flags.StringVar(&opts.backend, "backend", "", "storage backend (file, sqlite, postgres, s3, memory)")
	flags.IntVar(&opts.port, "port", 0, "web server port")
	root.Flags().BoolVar(&opts.web, "web", false, "also run the web server")

	root.AddCommand(serveCmd(opts), exportCmd(opts), importCmd(opts))
	return root
}

func runTUI(ctx context.Context, opts *options) error {
	cfg, cfgPath, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logFile, err := os.OpenFile(logPath(cfgPath), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer logFile.Close()

	a, err := newApp(ctx, cfg, newLogger(cfg.LogLevel, logFile))
	if err != nil {
		return err
	}
	defer a.Close()

	var server *http.Server
	if cfg.WebEnabled {
		server = a.httpServer()
		go func() {
			a.log.Info("web server running", "address", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("web server error", "err", err)
			}
		}()
	}

	runErr := tui.Run(a.svc, a.log)

	if server != nil {
		shutdown(a, server)
	}
	if err := a.svc.Flush(context.Background()); err != nil {
		a.log.Error("flush on exit", "err", err)
	}
	return runErr
}

func serveCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server only",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, newLogger(cfg.LogLevel, os.Stderr))
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			server := a.httpServer()
			errCh := make(chan error, 1)
			go func() {
				a.log.Info("web server running", "address", server.Addr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				a.log.Info("shutdown requested")
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.log.Error("server stopped unexpectedly", "err", err)
					return err
				}
			}

			shutdown(a, server)
			return a.svc.Flush(context.Background())
		},
	}
}

func exportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the current state as a record file (stdout when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, newLogger(cfg.LogLevel, os.Stderr))
			if err != nil {
				return err
			}
			defer a.Close()

			snap := a.svc.Export(cmd.Context())
			if len(args) == 0 {
				return record.Encode(cmd.OutOrStdout(), snap)
			}
			return record.File{Path: args[0]}.Save(cmd.Context(), snap)
		},
	}
}

func importCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the stored state with a record file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(opts)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, newLogger(cfg.LogLevel, os.Stderr))
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := readRecordFile(args[0])
			if err != nil {
				return err
			}
			if err := a.svc.Replace(cmd.Context(), snap); err != nil {
				return err
			}
			counts := a.svc.Counts(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d items, %d groups, %d members\n", counts.Plain, counts.Groups, counts.Members)
			return nil
		},
	}
}
