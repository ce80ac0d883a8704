package serve

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"

	"github.com/pennyfx/penny/cache"
	"github.com/pennyfx/penny/cmd/env"
	"github.com/pennyfx/penny/convert"
	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/rate"
	"github.com/pennyfx/penny/refresh"
	"github.com/pennyfx/penny/resolver"
	"github.com/pennyfx/penny/server/config"
	"github.com/pennyfx/penny/source"
)

var errInvalidPair = errors.New("invalid pair (must be BASE/QUOTE)")

// serveCfg wraps the serve configuration
type serveCfg struct {
	config *config.Config

	configPath string

	providerName   string
	providerURL    string
	attemptTimeout time.Duration
	maxRetries     int

	cachePath     string
	keyEnv        string
	maxRecords    int
	retentionDays int

	pairs   string
	allowed string

	refreshInterval time.Duration
}

// NewServeCmd creates the serve subcommand
func NewServeCmd() *ffcli.Command {
	cfg := &serveCfg{
		config: config.DefaultConfig(),
	}

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg.registerFlags(fs)

	cmd := &ffcli.Command{
		Name:       "serve",
		ShortUsage: "serve <subcommand> [flags]",
		LongHelp:   "Serves the penny backend",
		FlagSet:    fs,
		Exec: func(_ context.Context, _ []string) error {
			return flag.ErrHelp
		},
		Options: []ff.Option{
			// Allow using ENV variables
			ff.WithEnvVars(),
			ff.WithEnvVarPrefix(env.Prefix),
		},
	}

	cmd.Subcommands = []*ffcli.Command{
		newServeSQLCmd(cfg),
		newServeMemoryCmd(cfg),
	}

	return cmd
}

func (c *serveCfg) registerFlags(fs *flag.FlagSet) {
	fs.StringVar(
		&c.config.ListenAddress,
		"listen",
		config.DefaultListenAddress,
		"the IP:PORT URL for the server",
	)

	fs.StringVar(
		&c.configPath,
		"config",
		"",
		"the path to the server TOML configuration, if any",
	)

	fs.StringVar(
		&c.providerName,
		"provider",
		frankfurterProvider,
		"the live rate provider (frankfurter | cbe)",
	)

	fs.StringVar(
		&c.providerURL,
		"provider-url",
		"",
		"the provider endpoint URL override, if any",
	)

	fs.StringVar(
		&c.cachePath,
		"cache-path",
		"",
		"the path to the encrypted rate cache file (defaults to the user cache dir)",
	)

	fs.StringVar(
		&c.pairs,
		"pairs",
		"USD/EGP",
		"the comma-separated pairs to keep refreshed (BASE/QUOTE)",
	)

	fs.StringVar(
		&c.allowed,
		"allowed",
		"",
		"the comma-separated currencies conversions are limited to (empty allows all)",
	)

	fs.DurationVar(
		&c.refreshInterval,
		"refresh-interval",
		time.Hour,
		"the interval at which registered pairs are refreshed",
	)
}

// loadConfig reads the TOML configuration, if a path was given,
// and maps its sections onto the serve settings
func (c *serveCfg) loadConfig() error {
	if c.configPath == "" {
		return nil
	}

	serverCfg, err := config.Read(c.configPath)
	if err != nil {
		return fmt.Errorf("unable to read server config, %w", err)
	}

	// Fields absent from the file keep their flag values
	if serverCfg.ListenAddress == "" {
		serverCfg.ListenAddress = c.config.ListenAddress
	}

	if serverCfg.CORSConfig == nil {
		serverCfg.CORSConfig = c.config.CORSConfig
	}

	c.config = serverCfg

	return c.applyConfig(serverCfg)
}

// applyConfig maps the TOML sections onto the serve settings.
// File values take precedence over flag defaults
func (c *serveCfg) applyConfig(cfg *config.Config) error {
	if p := cfg.ProviderConfig; p != nil {
		if p.Name != "" {
			c.providerName = p.Name
		}

		if p.URL != "" {
			c.providerURL = p.URL
		}

		if p.AttemptTimeout != "" {
			timeout, err := time.ParseDuration(p.AttemptTimeout)
			if err != nil {
				return fmt.Errorf("invalid provider attempt timeout: %w", err)
			}

			c.attemptTimeout = timeout
		}

		if p.MaxRetries > 0 {
			c.maxRetries = p.MaxRetries
		}
	}

	if cc := cfg.CacheConfig; cc != nil {
		if cc.Path != "" {
			c.cachePath = cc.Path
		}

		if cc.KeyEnv != "" {
			c.keyEnv = cc.KeyEnv
		}

		if cc.MaxRecords > 0 {
			c.maxRecords = cc.MaxRecords
		}

		if cc.RetentionDays > 0 {
			c.retentionDays = cc.RetentionDays
		}
	}

	if r := cfg.RefreshConfig; r != nil {
		if len(r.Pairs) > 0 {
			c.pairs = strings.Join(r.Pairs, ",")
		}

		if r.Interval != "" {
			interval, err := time.ParseDuration(r.Interval)
			if err != nil {
				return fmt.Errorf("invalid refresh interval: %w", err)
			}

			c.refreshInterval = interval
		}
	}

	if len(cfg.AllowedCurrencies) > 0 {
		c.allowed = strings.Join(cfg.AllowedCurrencies, ",")
	}

	return nil
}

// coreStack is the rate resolution pipeline shared by all
// serve variants
type coreStack struct {
	cache     *cache.Cache
	resolver  *resolver.Resolver
	converter *convert.Engine
}

// buildCoreStack wires the provider, source, cache, resolver
// and conversion engine
func (c *serveCfg) buildCoreStack(logger *slog.Logger) (*coreStack, error) {
	// Grab the cache encryption key
	keyEnv := c.keyEnv
	if keyEnv == "" {
		keyEnv = env.Prefix + env.CacheKeySuffix
	}

	key, err := cache.ParseKey(os.Getenv(keyEnv))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", keyEnv, err)
	}

	cipher, err := cache.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("unable to create cipher: %w", err)
	}

	// Create the encrypted rate cache
	cacheOpts := []cache.Option{cache.WithLogger(logger)}

	if c.maxRecords > 0 {
		cacheOpts = append(cacheOpts, cache.WithMaxRecords(c.maxRecords))
	}

	if c.retentionDays > 0 {
		cacheOpts = append(cacheOpts, cache.WithRetentionDays(c.retentionDays))
	}

	rateCache, err := cache.New(c.cachePath, cipher, cacheOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create cache: %w", err)
	}

	// Create the live rate source
	p, err := newProvider(c.providerName, c.providerURL)
	if err != nil {
		return nil, err
	}

	sourceOpts := []source.Option{source.WithLogger(logger)}

	if c.attemptTimeout > 0 {
		sourceOpts = append(sourceOpts, source.WithAttemptTimeout(c.attemptTimeout))
	}

	if c.maxRetries > 0 {
		sourceOpts = append(sourceOpts, source.WithMaxRetries(uint64(c.maxRetries)))
	}

	src := source.New(p, sourceOpts...)

	// Create the resolver
	res := resolver.New(src, rateCache, resolver.WithLogger(logger))

	// Create the conversion engine
	allowed, err := parseAllowed(c.allowed)
	if err != nil {
		return nil, err
	}

	engine := convert.New(
		res,
		convert.WithLogger(logger),
		convert.WithAllowedCurrencies(allowed),
	)

	return &coreStack{
		cache:     rateCache,
		resolver:  res,
		converter: engine,
	}, nil
}

// buildScheduler creates the background refresh scheduler and
// registers the configured pairs
func (c *serveCfg) buildScheduler(
	logger *slog.Logger,
	res refresh.RateResolver,
	opts ...refresh.Option,
) (*refresh.Scheduler, error) {
	pairs, err := parsePairs(c.pairs)
	if err != nil {
		return nil, err
	}

	opts = append(opts, refresh.WithLogger(logger))
	scheduler := refresh.New(res, opts...)

	for _, pair := range pairs {
		job := refresh.Job{
			Pair:     pair,
			Interval: c.refreshInterval,
		}

		if err := scheduler.Register(job); err != nil {
			return nil, fmt.Errorf(
				"unable to register refresh job for %s: %w",
				pair.String(),
				err,
			)
		}
	}

	return scheduler, nil
}

// parsePairs parses a comma-separated BASE/QUOTE pair list
func parsePairs(raw string) ([]rate.Pair, error) {
	var pairs []rate.Pair

	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		baseRaw, quoteRaw, found := strings.Cut(item, "/")
		if !found {
			return nil, fmt.Errorf("%w: %q", errInvalidPair, item)
		}

		base, err := currency.Parse(baseRaw)
		if err != nil {
			return nil, err
		}

		quote, err := currency.Parse(quoteRaw)
		if err != nil {
			return nil, err
		}

		pairs = append(pairs, rate.Pair{Base: base, Quote: quote})
	}

	return pairs, nil
}

// parseAllowed parses a comma-separated currency whitelist.
// An empty list allows every known currency
func parseAllowed(raw string) (currency.Set, error) {
	var codes []currency.Code

	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		code, err := currency.Parse(item)
		if err != nil {
			return nil, err
		}

		codes = append(codes, code)
	}

	if len(codes) == 0 {
		return nil, nil // allow all
	}

	return currency.NewSet(codes...), nil
}
