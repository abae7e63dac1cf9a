package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/meimodev/activid-web-sub001/internal/httpapi"
	"github.com/meimodev/activid-web-sub001/internal/wish"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr           string
	InvitationsDir string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the invitation and wish API",
		Long: `Serve the invitation HTTP API until interrupted.

Settings come from --config, .env and ACTIVID_* environment variables;
--addr and --invitations override them when given.

Examples:
  activid serve
  activid serve --config activid.yaml --addr :9000`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&opts.InvitationsDir, "invitations", "", "invitations directory (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}
	if cmd.Flags().Changed("addr") {
		cfg.HTTP.Addr = opts.Addr
	}
	if cmd.Flags().Changed("invitations") {
		cfg.InvitationsDir = opts.InvitationsDir
	}
	if err := cfg.Validate(); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeConfig, err.Error(), nil)
	}

	ctx, stop := signal.NotifyContext(contextOf(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resolver, err := loadResolver(cfg.InvitationsDir, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, loadErrorCode(err), err.Error(), nil)
	}

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error(), nil)
	}
	defer func() {
		if err := b.Close(); err != nil {
			logger.Warn("close backend", "error", err)
		}
	}()

	lib, err := openPhotos(ctx, cfg)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodePhotos, err.Error(), nil)
	}

	srv := httpapi.New(
		resolver,
		b.service(logger),
		wish.NewFeed(b.repo, b.notifier, logger),
		lib,
		httpapi.Config{
			BaseURL:      cfg.HTTP.BaseURL,
			CORSOrigins:  cfg.HTTP.CORSOrigins,
			PollInterval: cfg.Live.PollInterval,
		},
		httpapi.WithLogger(logger),
	)

	logger.Info("starting", "store", cfg.Store.Driver, "live", cfg.Live.Driver)
	if err := srv.ListenAndServe(ctx, cfg.HTTP.Addr); err != nil && ctx.Err() == nil {
		return formatter.Fail(ExitFailure, ErrCodeServe, fmt.Sprintf("server stopped: %v", err), nil)
	}
	return nil
}

// contextOf returns cmd's context, or Background when cmd runs outside
// Execute.
func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
