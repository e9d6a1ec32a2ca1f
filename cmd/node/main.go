package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/niklaslong/snarkos-network/pkg/config"
	"github.com/niklaslong/snarkos-network/pkg/network"
)

// New builds the node cli.App: flag parsing, config loading, and
// delegation to runNode.
func New() *cli.App {
	app := cli.NewApp()
	app.Name = "node"
	app.Usage = "run the peer-to-peer networking core standalone"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "path to a YAML config file; defaults are used if omitted",
		},
		cli.StringFlag{
			Name:  "listen, l",
			Usage: "override LocalBindAddress, e.g. 0.0.0.0:4000",
		},
		cli.StringSliceFlag{
			Name:  "bootnode, b",
			Usage: "bootnode address (repeatable), e.g. 127.0.0.1:4001",
		},
		cli.BoolFlag{
			Name:  "is-bootnode",
			Usage: "run with bootnode inbound-routing and disconnect policy",
		},
	}
	app.Action = runNode
	return app
}

func main() {
	if err := New().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runNode loads configuration, constructs a network.Node with no
// consensus or storage collaborator attached, and runs it until
// SIGINT/SIGTERM. Without those collaborators the node does pure
// connectivity management, which is enough to exercise peer discovery
// and the maintenance policies standalone.
func runNode(c *cli.Context) error {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if listen := c.String("listen"); listen != "" {
		cfg.P2P.LocalBindAddress = listen
	}
	if boots := c.StringSlice("bootnode"); len(boots) > 0 {
		cfg.P2P.BootNodes = boots
	}
	if c.Bool("is-bootnode") {
		cfg.P2P.IsBootNode = true
	}

	log, err := cfg.Logger.NewLogger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	node, err := network.NewNode(log, cfg.P2P, nil, nil)
	if err != nil {
		return fmt.Errorf("construct node: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go logConnectivity(ctx, log, node)

	log.Info("starting node",
		zap.String("address", cfg.P2P.LocalBindAddress),
		zap.Bool("is_bootnode", cfg.P2P.IsBootNode),
	)
	return node.Run(ctx)
}

// logConnectivity periodically logs a one-line connectivity summary.
func logConnectivity(ctx context.Context, log *zap.Logger, node *network.Node) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			log.Info("connectivity",
				zap.Int("connected", node.Book.NumConnected()),
				zap.Int("connecting", node.Book.NumConnecting()),
				zap.Int("disconnected", node.Book.NumDisconnected()),
			)
		}
	}
}
