package cache

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	ratecache "github.com/pennyfx/penny/cache"
	"github.com/pennyfx/penny/cmd/env"
)

// cacheCfg wraps the cache maintenance configuration
type cacheCfg struct {
	path string
}

// NewCacheCmd creates the cache subcommand
func NewCacheCmd() *ffcli.Command {
	cfg := &cacheCfg{}

	fs := flag.NewFlagSet("cache", flag.ExitOnError)
	cfg.registerFlags(fs)

	cmd := &ffcli.Command{
		Name:       "cache",
		ShortUsage: "cache <subcommand> [flags]",
		LongHelp:   "Manages the local encrypted rate cache",
		FlagSet:    fs,
		Exec: func(_ context.Context, _ []string) error {
			return flag.ErrHelp
		},
	}

	cmd.Subcommands = []*ffcli.Command{
		cfg.newStatsCmd(),
		cfg.newPruneCmd(),
		cfg.newClearCmd(),
	}

	return cmd
}

func (c *cacheCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.path,
		"cache-path",
		"",
		"the path to the encrypted rate cache file (defaults to the user cache dir)",
	)
}

func (c *cacheCfg) newStatsCmd() *ffcli.Command {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	c.registerFlags(fs)

	return &ffcli.Command{
		Name:       "stats",
		ShortUsage: "cache stats [flags]",
		LongHelp:   "Prints the cached record and pair counts",
		FlagSet:    fs,
		Exec:       c.execStats,
		Options:    cacheOptions(),
	}
}

func (c *cacheCfg) newPruneCmd() *ffcli.Command {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	c.registerFlags(fs)

	return &ffcli.Command{
		Name:       "prune",
		ShortUsage: "cache prune [flags]",
		LongHelp:   "Evicts cached records older than the retention window",
		FlagSet:    fs,
		Exec:       c.execPrune,
		Options:    cacheOptions(),
	}
}

func (c *cacheCfg) newClearCmd() *ffcli.Command {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	c.registerFlags(fs)

	return &ffcli.Command{
		Name:       "clear",
		ShortUsage: "cache clear [flags]",
		LongHelp:   "Wipes all cached records",
		FlagSet:    fs,
		Exec:       c.execClear,
		Options:    cacheOptions(),
	}
}

func cacheOptions() []ff.Option {
	return []ff.Option{
		// Allow using ENV variables
		ff.WithEnvVars(),
		ff.WithEnvVarPrefix(env.Prefix),
	}
}

func (c *cacheCfg) execStats(ctx context.Context, _ []string) error {
	rateCache, err := c.open()
	if err != nil {
		return err
	}

	records, err := rateCache.RecordCount(ctx)
	if err != nil {
		return err
	}

	pairs, err := rateCache.PairCount(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Cache file: %s\n", rateCache.Path())
	fmt.Printf("Records:    %d\n", records)
	fmt.Printf("Pairs:      %d\n", pairs)

	return nil
}

func (c *cacheCfg) execPrune(ctx context.Context, _ []string) error {
	rateCache, err := c.open()
	if err != nil {
		return err
	}

	evicted, err := rateCache.Prune(ctx, time.Now().UTC())
	if err != nil {
		return err
	}

	fmt.Printf("Evicted %d stale record(s)\n", evicted)

	return nil
}

func (c *cacheCfg) execClear(ctx context.Context, _ []string) error {
	rateCache, err := c.open()
	if err != nil {
		return err
	}

	if err := rateCache.Clear(ctx); err != nil {
		return err
	}

	fmt.Println("Cache cleared")

	return nil
}

// open creates the cache handle from the configured path and
// the ENV encryption key
func (c *cacheCfg) open() (*ratecache.Cache, error) {
	// Load .env
	_ = godotenv.Load()

	key, err := ratecache.ParseKey(os.Getenv(env.Prefix + env.CacheKeySuffix))
	if err != nil {
		return nil, fmt.Errorf(
			"invalid %s: %w",
			env.Prefix+env.CacheKeySuffix,
			err,
		)
	}

	cipher, err := ratecache.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return ratecache.New(c.path, cipher)
}
