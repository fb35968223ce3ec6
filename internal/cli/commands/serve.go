package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/schemawatch/schemawatch/internal/server"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Host string
	Port int
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the normalizer, differ, and graph builder over HTTP",
		Long: `Serve starts an HTTP server exposing the snapshot normalizer, differ,
and dependency graph builder, plus read access to stored snapshots.

The server runs until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Host, "host", "", "Host to bind (default from config)")
	cmd.Flags().IntVar(&opts.Port, "port", 0, "Port to bind (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	srvCfg := cmdCtx.Cfg.GetServer()
	if opts.Host != "" {
		srvCfg.Host = opts.Host
	}
	if opts.Port != 0 {
		srvCfg.Port = opts.Port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(server.Config{
		Host:   srvCfg.Host,
		Port:   srvCfg.Port,
		Store:  cmdCtx.Store,
		Logger: cmdCtx.Logger,
	})
	return srv.Serve(ctx)
}
