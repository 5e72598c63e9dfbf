// Package servecmder provides the serve command, which runs the factory API
// and MCP endpoint.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/papercomputeco/factory/api"
	"github.com/papercomputeco/factory/api/mcp"
	"github.com/papercomputeco/factory/pkg/config"
	"github.com/papercomputeco/factory/pkg/credentials"
	"github.com/papercomputeco/factory/pkg/logger"
	"github.com/papercomputeco/factory/pkg/project"
	"github.com/papercomputeco/factory/pkg/stack"
)

type ServeCommander struct {
	flags     serveFlags
	configDir string
	debug     bool
	cfg       *config.Config
	viper     *viper.Viper
	logger    *slog.Logger
}

// serveFlags holds flag targets. Values reach the config through viper, so
// these are never read directly.
type serveFlags struct {
	listen, owner                     string
	storageProvider, sqlite, postgres string
	blobRoot                          string
	vectorProvider, vectorTarget      string
	embeddingProvider                 string
	embeddingTarget, embeddingModel   string
	embeddingDims                     uint
	localTarget, eventsProvider       string
}

const serveLongDesc string = `Run the factory API server.

The server exposes the pipeline stages, project reads, memory operations and
an MCP endpoint at /mcp. Settings come from flags, FACTORY_* environment
variables, config.toml and built-in defaults, in that order.

Examples:
  factory serve
  factory serve --listen :9000 --storage-provider postgres --postgres-dsn postgres://...
  FACTORY_EVENTS_PROVIDER=kafka FACTORY_EVENTS_BROKERS=localhost:9092 factory serve`

const serveShortDesc string = "Run the factory API server"

var serveFlagKeys = []string{
	config.FlagListen,
	config.FlagOwner,
	config.FlagStorageProv,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagBlobRoot,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagLocalTarget,
	config.FlagEventsProv,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Registry, serveFlagKeys)
			cmder.viper = v

			cmder.cfg, err = config.FromViper(v)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	f := &cmder.flags
	config.AddStringFlag(cmd, config.Registry, config.FlagListen, &f.listen)
	config.AddStringFlag(cmd, config.Registry, config.FlagOwner, &f.owner)
	config.AddStringFlag(cmd, config.Registry, config.FlagStorageProv, &f.storageProvider)
	config.AddStringFlag(cmd, config.Registry, config.FlagSQLite, &f.sqlite)
	config.AddStringFlag(cmd, config.Registry, config.FlagPostgresDSN, &f.postgres)
	config.AddStringFlag(cmd, config.Registry, config.FlagBlobRoot, &f.blobRoot)
	config.AddStringFlag(cmd, config.Registry, config.FlagVectorStoreProv, &f.vectorProvider)
	config.AddStringFlag(cmd, config.Registry, config.FlagVectorStoreTgt, &f.vectorTarget)
	config.AddStringFlag(cmd, config.Registry, config.FlagEmbeddingProv, &f.embeddingProvider)
	config.AddStringFlag(cmd, config.Registry, config.FlagEmbeddingTgt, &f.embeddingTarget)
	config.AddStringFlag(cmd, config.Registry, config.FlagEmbeddingModel, &f.embeddingModel)
	config.AddUintFlag(cmd, config.Registry, config.FlagEmbeddingDims, &f.embeddingDims)
	config.AddStringFlag(cmd, config.Registry, config.FlagLocalTarget, &f.localTarget)
	config.AddStringFlag(cmd, config.Registry, config.FlagEventsProv, &f.eventsProvider)

	return cmd
}

// newLogger logs pretty to a terminal and JSON everywhere else.
func (c *ServeCommander) newLogger() *slog.Logger {
	tty := term.IsTerminal(int(os.Stdout.Fd()))
	return logger.New(
		logger.WithDebug(c.debug),
		logger.WithPretty(tty),
		logger.WithJSON(!tty),
		logger.WithWriter(os.Stdout),
	)
}

func (c *ServeCommander) run(ctx context.Context) error {
	c.logger = c.newLogger()

	creds, err := credentials.NewManager(c.configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}
	keys, err := creds.Resolve()
	if err != nil {
		return fmt.Errorf("resolving provider keys: %w", err)
	}

	s, err := stack.Build(ctx, stack.Options{
		Config:    c.cfg,
		ConfigDir: c.configDir,
		Keys:      keys,
		Logger:    c.logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			c.logger.Error("closing backends", "error", err)
		}
	}()

	c.watchConfig()

	owner := project.Owner(c.cfg.Server.DefaultOwner)

	mcpServer, err := mcp.NewServer(mcp.Config{
		Memory:       s.Memory,
		DefaultOwner: owner,
		Logger:       c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	apiServer, err := api.NewServer(api.Config{
		ListenAddr:   c.cfg.Server.Listen,
		DefaultOwner: owner,
		MCPHandler:   mcpServer.Handler(),
	}, s.Pipeline, s.Memory, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return apiServer.Shutdown()
	}
}

// watchConfig warns when config.toml changes while serving. Backends are
// built once, so changes only apply after a restart.
func (c *ServeCommander) watchConfig() {
	if c.viper == nil {
		return
	}
	config.Watch(c.viper, c.cfg,
		func(e fsnotify.Event, _ *config.Config, sections []string) {
			c.logger.Warn("config changed on disk, restart to apply",
				"file", e.Name,
				"sections", sections,
			)
		},
		func(err error) {
			c.logger.Error("reloading config", "error", err)
		},
	)
}
