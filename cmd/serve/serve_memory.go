package serve

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"golang.org/x/sync/errgroup"

	"github.com/pennyfx/penny/archive/memory"
	"github.com/pennyfx/penny/cmd/env"
	"github.com/pennyfx/penny/refresh"
	"github.com/pennyfx/penny/server"
)

type serveMemoryCfg struct {
	rootCfg *serveCfg
}

// newServeMemoryCmd creates the serve memory command.
func newServeMemoryCmd(rootCfg *serveCfg) *ffcli.Command {
	cfg := &serveMemoryCfg{
		rootCfg: rootCfg,
	}

	fs := flag.NewFlagSet("memory", flag.ExitOnError)
	cfg.rootCfg.registerFlags(fs)

	return &ffcli.Command{
		Name:       "memory",
		ShortUsage: "serve memory [flags]",
		LongHelp:   "Serves the penny backend, using an in-memory rate archive",
		FlagSet:    fs,
		Exec:       cfg.exec,
		Options: []ff.Option{
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}
}

func (c *serveMemoryCfg) exec(ctx context.Context, _ []string) error {
	// Read the server configuration, if any
	if err := c.rootCfg.loadConfig(); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Load .env
	if err := godotenv.Load(); err != nil {
		logger.Warn("unable to load .env file")
	}

	// Build the rate resolution pipeline
	stack, err := c.rootCfg.buildCoreStack(logger)
	if err != nil {
		return err
	}

	// Create an in-memory archive
	store := memory.NewArchive()

	// Create the refresh scheduler
	scheduler, err := c.rootCfg.buildScheduler(
		logger,
		stack.resolver,
		refresh.WithArchive(store),
	)
	if err != nil {
		return err
	}

	s, err := server.New(
		stack.resolver,
		stack.converter,
		server.WithLogger(logger),
		server.WithConfig(c.rootCfg.config),
		server.WithArchive(store),
		server.WithCache(stack.cache),
	)
	if err != nil {
		return fmt.Errorf("unable to create server, %w", err)
	}

	runCtx, cancelFn := signal.NotifyContext(
		ctx,
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer cancelFn()

	group, gCtx := errgroup.WithContext(runCtx)

	group.Go(func() error {
		return s.Serve(gCtx)
	})

	group.Go(func() error {
		return scheduler.Start(gCtx)
	})

	return group.Wait()
}
