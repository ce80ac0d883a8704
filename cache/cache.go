package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/pennyfx/penny/currency"
	"github.com/pennyfx/penny/rate"
)

var (
	ErrNoCachedRate = errors.New("no cached rate")

	errNilCipher       = errors.New("nil cipher")
	errLockNotAcquired = errors.New("cache file lock not acquired")
)

var noopLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const (
	defaultMaxRecords    = 30
	defaultRetentionDays = 7

	lockRetryDelay = time.Millisecond * 50
)

// Cache is the encrypted, durable store of observed rates per currency pair.
// Every operation re-reads the store under a file lock, so any number of
// processes can share one cache file; writes replace the file atomically
type Cache struct {
	path   string
	cipher Cipher
	logger *slog.Logger

	maxRecords    int
	retentionDays int
	now           func() time.Time

	// mu serializes in-process access: shared for reads,
	// exclusive for writes. Cross-process exclusion is the
	// file lock's job
	mu       sync.RWMutex
	lockPath string

	// failMu guards the sticky decryption failure. Once the file
	// fails authentication the cache stays unusable, so tampering
	// is never masked as an empty cache
	failMu  sync.Mutex
	failErr error
}

// New creates a cache persisted at the given path.
// An empty path selects the platform cache directory
func New(path string, cipher Cipher, opts ...Option) (*Cache, error) {
	if cipher == nil {
		return nil, errNilCipher
	}

	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}

		path = defaultPath
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("unable to create cache directory: %w", err)
	}

	c := &Cache{
		path:          path,
		cipher:        cipher,
		logger:        noopLogger,
		maxRecords:    defaultMaxRecords,
		retentionDays: defaultRetentionDays,
		now:           time.Now,
		lockPath:      path + ".lock",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// DefaultPath returns the platform-appropriate cache file location
func DefaultPath() (string, error) {
	dir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("unable to resolve user cache dir: %w", err)
	}

	return filepath.Join(dir, "penny", "rates.cache"), nil
}

// Path returns the cache file location
func (c *Cache) Path() string {
	return c.path
}

// Record admits a new observation into the pair's history.
// A write matching an existing record's calendar day and rate value is a
// no-op; otherwise the record is inserted at its position in the
// day-ordered history and the oldest records are evicted until the
// history fits the configured bound
func (c *Cache) Record(ctx context.Context, rec *rate.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	if err := c.unusable(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fl, err := c.lockFile(ctx, true)
	if err != nil {
		return err
	}
	defer c.unlockFile(fl)

	store, err := c.load()
	if err != nil {
		return err
	}

	var (
		pair    = rec.Pair()
		history = store[pair]
		day     = rate.Day(rec.ObservedAt)
	)

	// Histories stay ordered by observation day. Writes usually
	// arrive in order, so search for the slot from the tail
	idx := len(history)
	for idx > 0 && history[idx-1].ObservedAt.After(day) {
		idx--
	}

	// Redundant write: the same day already holds this rate value
	for i := idx - 1; i >= 0 && history[i].ObservedAt.Equal(day); i-- {
		if history[i].Rate.Equal(rec.Rate) {
			return nil
		}
	}

	cp := *rec
	cp.ObservedAt = day

	history = append(history, nil)
	copy(history[idx+1:], history[idx:])
	history[idx] = &cp

	// Evict oldest first
	for len(history) > c.maxRecords {
		history = history[1:]
	}

	store[pair] = history

	return c.save(store)
}

// Latest returns the most recent record for the pair, failing when
// none exists or the newest one is outside the retention window
func (c *Cache) Latest(
	ctx context.Context,
	base currency.Code,
	quote currency.Code,
) (*rate.Record, error) {
	if err := c.unusable(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	fl, err := c.lockFile(ctx, false)
	if err != nil {
		return nil, err
	}
	defer c.unlockFile(fl)

	store, err := c.load()
	if err != nil {
		return nil, err
	}

	pair := rate.Pair{Base: base, Quote: quote}

	history := store[pair]
	if len(history) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoCachedRate, pair)
	}

	// Histories are ordered by observation day, so the tail is the
	// newest; if it is stale, every record for the pair is
	last := history[len(history)-1]
	if last.ObservedAt.Before(c.cutoff(c.now())) {
		return nil, fmt.Errorf("%w for %s: all records stale", ErrNoCachedRate, pair)
	}

	cp := *last
	cp.Origin = rate.OriginCache

	return &cp, nil
}

// Prune removes every record older than the retention window
// relative to the given time, across all pairs, and reports
// how many records were evicted
func (c *Cache) Prune(ctx context.Context, now time.Time) (int, error) {
	if err := c.unusable(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	fl, err := c.lockFile(ctx, true)
	if err != nil {
		return 0, err
	}
	defer c.unlockFile(fl)

	store, err := c.load()
	if err != nil {
		return 0, err
	}

	var (
		cutoff  = c.cutoff(now)
		evicted int
	)

	for pair, history := range store {
		kept := history[:0]

		for _, rec := range history {
			if rec.ObservedAt.Before(cutoff) {
				evicted++

				continue
			}

			kept = append(kept, rec)
		}

		if len(kept) == 0 {
			delete(store, pair)

			continue
		}

		store[pair] = kept
	}

	if evicted == 0 {
		return 0, nil
	}

	if err := c.save(store); err != nil {
		return 0, err
	}

	c.logger.Info(
		"pruned cache records",
		"evicted", evicted,
		"cutoff", cutoff.Format(dateLayout),
	)

	return evicted, nil
}

// Clear empties the entire store. As an explicit, operator-initiated
// destroy it also resets a sticky decryption failure
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	fl, err := c.lockFile(ctx, true)
	if err != nil {
		return err
	}
	defer c.unlockFile(fl)

	if err := c.save(make(map[rate.Pair][]*rate.Record)); err != nil {
		return err
	}

	c.failMu.Lock()
	c.failErr = nil
	c.failMu.Unlock()

	return nil
}

// RecordCount reports the total number of cached records
func (c *Cache) RecordCount(ctx context.Context) (int, error) {
	store, err := c.snapshot(ctx)
	if err != nil {
		return 0, err
	}

	var count int

	for _, history := range store {
		count += len(history)
	}

	return count, nil
}

// PairCount reports the number of currency pairs with cached history
func (c *Cache) PairCount(ctx context.Context) (int, error) {
	store, err := c.snapshot(ctx)
	if err != nil {
		return 0, err
	}

	return len(store), nil
}

// snapshot loads the store under a shared lock
func (c *Cache) snapshot(ctx context.Context) (map[rate.Pair][]*rate.Record, error) {
	if err := c.unusable(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	fl, err := c.lockFile(ctx, false)
	if err != nil {
		return nil, err
	}
	defer c.unlockFile(fl)

	return c.load()
}

// cutoff is the oldest observation day still within retention
func (c *Cache) cutoff(now time.Time) time.Time {
	return rate.Day(now).AddDate(0, 0, -c.retentionDays)
}

// load reads, decrypts and decodes the store file.
// A missing or empty file is an empty store; an authentication
// failure poisons the cache instance
func (c *Cache) load() (map[rate.Pair][]*rate.Record, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[rate.Pair][]*rate.Record), nil
		}

		return nil, fmt.Errorf("unable to read cache file: %w", err)
	}

	if len(data) == 0 {
		return make(map[rate.Pair][]*rate.Record), nil
	}

	plaintext, err := c.cipher.Decrypt(data)
	if err != nil {
		if errors.Is(err, ErrDecryptionFailed) {
			c.markUnusable(err)
		}

		return nil, err
	}

	return decodeStore(plaintext)
}

// save encodes, encrypts and atomically replaces the store file
func (c *Cache) save(store map[rate.Pair][]*rate.Record) error {
	plaintext, err := encodeStore(store)
	if err != nil {
		return err
	}

	ciphertext, err := c.cipher.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("unable to encrypt store: %w", err)
	}

	return c.writeAtomic(ciphertext)
}

// writeAtomic writes to a temporary file in the cache directory and
// renames it over the previous file, so a crash mid-write never
// leaves a partial cache behind
func (c *Cache) writeAtomic(data []byte) error {
	dir := filepath.Dir(c.path)

	tmp, err := os.CreateTemp(dir, ".rates-*.tmp")
	if err != nil {
		return fmt.Errorf("unable to create temp cache file: %w", err)
	}

	defer func() {
		// No-op after a successful rename
		_ = os.Remove(tmp.Name())
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("unable to write temp cache file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("unable to sync temp cache file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("unable to close temp cache file: %w", err)
	}

	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("unable to replace cache file: %w", err)
	}

	return nil
}

// lockFile acquires the cross-process file lock. Every operation
// holds its own lock handle, so one reader releasing its lock
// never drops the hold of another reader still mid-read
func (c *Cache) lockFile(ctx context.Context, exclusive bool) (*flock.Flock, error) {
	fl := flock.New(c.lockPath)

	var (
		locked bool
		err    error
	)

	if exclusive {
		locked, err = fl.TryLockContext(ctx, lockRetryDelay)
	} else {
		locked, err = fl.TryRLockContext(ctx, lockRetryDelay)
	}

	if err != nil {
		return nil, fmt.Errorf("unable to acquire cache file lock: %w", err)
	}

	if !locked {
		return nil, errLockNotAcquired
	}

	return fl, nil
}

func (c *Cache) unlockFile(fl *flock.Flock) {
	if err := fl.Unlock(); err != nil {
		c.logger.Error(
			"unable to release cache file lock",
			"err", err,
		)
	}
}

// unusable reports the sticky decryption failure, if any
func (c *Cache) unusable() error {
	c.failMu.Lock()
	defer c.failMu.Unlock()

	return c.failErr
}

func (c *Cache) markUnusable(err error) {
	c.failMu.Lock()
	defer c.failMu.Unlock()

	if c.failErr == nil {
		c.failErr = err

		c.logger.Error(
			"cache file failed authentication, cache disabled",
			"path", c.path,
			"err", err,
		)
	}
}
