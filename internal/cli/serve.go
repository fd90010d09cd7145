package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/muir/nkernel/internal/demo"
	"github.com/muir/nkernel/nconfig"
	"github.com/muir/nkernel/nlog"
	"github.com/muir/nkernel/nserve"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo application over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := nconfig.Load(rootOpts.ConfigPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

func runServe(ctx context.Context, cfg nconfig.Config) error {
	nlog.Configure(nlog.Config{Level: cfg.Log.Level, Service: cfg.Log.Service})
	log := nlog.WithComponent("cli")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app, err := demo.New(cfg, reg)
	if err != nil {
		return err
	}

	var opts []nserve.ServerOption
	if cfg.Metrics.Enabled {
		opts = append(opts, nserve.WithMetrics(cfg.Metrics.Path, reg))
	}
	srv := nserve.NewServer(cfg.Server, app, opts...)

	lifecycle := nserve.NewApp("nkernel")
	srv.Attach(lifecycle)
	if err := lifecycle.Do(ctx, nserve.Start); err != nil {
		return errors.Wrap(err, "start")
	}
	log.Info().
		Str("addr", srv.Addr().String()).
		Str("kernel", cfg.Kernel).
		Str("env", cfg.Env).
		Msg("serving")

	<-ctx.Done()
	log.Info().Msg("stopping")
	stopCtx := context.Background()
	err = lifecycle.Do(stopCtx, nserve.Stop)
	if sErr := lifecycle.Do(stopCtx, nserve.Shutdown); err == nil {
		err = sErr
	}
	return err
}
