package main

import (
	"fmt"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/danmuck/seedbank/internal/config"
	"github.com/danmuck/seedbank/internal/mesh"
	"github.com/danmuck/seedbank/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRunServerCmd() *cobra.Command {
	var (
		configPath, host, contentDir string
		port                         int
	)
	cmd := &cobra.Command{
		Use:   "run-server",
		Short: "Run the local seedbank server for one node",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := defaultServerConfig()
			if configPath != "" {
				loaded, err := loadServerConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if cmd.Flags().Changed("host") || cmd.Flags().Changed("port") {
				h, p, _ := net.SplitHostPort(cfg.Addr)
				if cmd.Flags().Changed("host") {
					h = host
				}
				if cmd.Flags().Changed("port") {
					p = strconv.Itoa(port)
				}
				cfg.Addr = net.JoinHostPort(h, p)
			}
			if cmd.Flags().Changed("content") {
				cfg.ContentDir = contentDir
			}

			node, err := serverNode(cfg)
			if err != nil {
				return err
			}
			srv, err := server.New(node, server.Config{
				Addr:        cfg.Addr,
				ContentDir:  cfg.ContentDir,
				CorsOrigins: cfg.CorsOrigins,
			})
			if err != nil {
				return err
			}
			if cfg.ContentDir != "" {
				n, err := srv.PlantBundles(cfg.ContentDir)
				if err != nil {
					log.Warn().Err(err).Str("dir", cfg.ContentDir).Msg("some bundles could not be planted")
				}
				log.Info().Int("bundles", n).Str("dir", cfg.ContentDir).Msg("content bundles scanned")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			fmt.Fprintf(cmd.OutOrStdout(), "Starting seedbank server for %s on %s\n", node.ID(), cfg.Addr)
			return srv.Serve(ctx)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "server TOML config")
	flags.StringVar(&host, "host", "127.0.0.1", "host to listen on")
	flags.IntVar(&port, "port", 8080, "port to listen on")
	flags.StringVar(&contentDir, "content", "", "content directory served under /content")
	return cmd
}

// serverNode returns the node to serve: the configured node of a topology
// when one is set, otherwise a standalone gateway.
func serverNode(cfg serverConfig) (*mesh.Node, error) {
	if cfg.Topology == "" {
		return mesh.NewNode(cfg.NodeID, mesh.RoleGateway)
	}
	topo, err := config.LoadTopology(cfg.Topology)
	if err != nil {
		return nil, err
	}
	nw, err := config.Build(topo, mesh.WithName("server"))
	if err != nil {
		return nil, err
	}
	node, ok := nw.GetNode(cfg.NodeID)
	if !ok {
		return nil, fmt.Errorf("node %q not in topology %s", cfg.NodeID, cfg.Topology)
	}
	return node, nil
}
