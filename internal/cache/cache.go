// Package cache implements the on-disk, single-writer chunk cache described
// in original_source/src/chunk_cache.rs: content-addressed files named by
// the hex MD5 of their cache key, a state.json recording per-entry expiry
// and size, write-then-replace persistence, and admission-time pruning by
// both TTL and a total size budget. Reads bypass the writer goroutine
// entirely (same filesystem-is-already-thread-safe assumption the reference
// makes); writes are serialized through a single buffered channel consumer,
// the Go analogue of the reference's tokio mpsc-backed writer task.
package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"

	"github.com/stackhpc/reductionist-go/internal/cmn"
	"github.com/stackhpc/reductionist-go/internal/stats"
)

const stateFileName = "state.json"

// entryMeta mirrors the reference's Metadata: per-entry expiry (unix
// seconds) and size.
type entryMeta struct {
	Expires   int64 `json:"expires"`
	SizeBytes int64 `json:"size_bytes"`
}

// state mirrors the reference's State: the full metadata table, the
// running total size, and the next scheduled prune time.
type state struct {
	Metadata         map[string]entryMeta `json:"metadata"`
	CurrentSizeBytes int64                `json:"current_size_bytes"`
	NextPrune        int64                `json:"next_prune"`
}

func newState(pruneInterval time.Duration, now time.Time) *state {
	return &state{
		Metadata:  make(map[string]entryMeta),
		NextPrune: now.Add(pruneInterval).Unix(),
	}
}

// Options configures a Cache, one field per chunk_cache_* CLI/env flag.
type Options struct {
	Dir           string
	TTL           time.Duration
	PruneInterval time.Duration
	// MaxSize is the human-readable size limit (e.g. "100GB"), empty for
	// unbounded.
	MaxSize string
	// BufferSize bounds the writer channel; 0 means unbuffered (every
	// writer blocks until the write goroutine drains it).
	BufferSize int
}

// Cache wraps a content-addressed disk store behind a single writer
// goroutine, matching ChunkCache/SimpleDiskCache's split of responsibilities.
type Cache struct {
	dir           string
	ttl           time.Duration
	pruneInterval time.Duration
	maxSizeBytes  int64 // 0 means unbounded
	stats         *stats.Stats

	// mu serializes load/save of state.json; only the writer goroutine
	// mutates it, but Get also reads files directly without needing mu.
	mu sync.Mutex

	writes chan writeRequest
	done   chan struct{}
}

type writeRequest struct {
	key   string
	value []byte
	errCh chan error
}

// New creates the cache directory (it must not already exist, matching the
// reference's refusal to silently reuse a stale cache folder) and starts
// the single writer goroutine.
func New(opts Options, st *stats.Stats) (*Cache, error) {
	maxSize, err := parseMaxSize(opts.MaxSize)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(opts.Dir); err == nil {
		return nil, cmn.NewError(cmn.KindChunkCacheError, "chunk cache folder %s already exists", opts.Dir)
	}
	if err := os.Mkdir(opts.Dir, 0o755); err != nil {
		return nil, cmn.NewError(cmn.KindChunkCacheError, "creating chunk cache folder: %v", err)
	}

	c := &Cache{
		dir:           opts.Dir,
		ttl:           opts.TTL,
		pruneInterval: opts.PruneInterval,
		maxSizeBytes:  maxSize,
		stats:         st,
		writes:        make(chan writeRequest, opts.BufferSize),
		done:          make(chan struct{}),
	}
	go c.writerLoop()
	return c, nil
}

func parseMaxSize(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, cmn.NewError(cmn.KindValidationError, "invalid chunk_cache_size_limit %q: %v", s, err)
	}
	return int64(n), nil
}

// Close stops the writer goroutine once its queue drains.
func (c *Cache) Close() {
	close(c.writes)
	<-c.done
}

func (c *Cache) writerLoop() {
	defer close(c.done)
	for req := range c.writes {
		err := c.writeEntry(req.key, req.value)
		if req.errCh != nil {
			req.errCh <- err
		}
	}
}

// filenameFor converts a cache key to its on-disk filename: the hex MD5
// digest, avoiding filename-too-long errors on arbitrarily long URL-derived
// keys.
func filenameFor(key string) string {
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}

func (c *Cache) statePath() string { return filepath.Join(c.dir, stateFileName) }
func (c *Cache) entryPath(key string) string {
	return filepath.Join(c.dir, filenameFor(key))
}

// loadState must be called with c.mu held.
func (c *Cache) loadState() (*state, error) {
	data, err := os.ReadFile(c.statePath())
	if os.IsNotExist(err) {
		return newState(c.pruneInterval, time.Now()), nil
	}
	if err != nil {
		return nil, cmn.NewError(cmn.KindChunkCacheError, "reading cache state: %v", err)
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, cmn.NewError(cmn.KindChunkCacheError, "decoding cache state: %v", err)
	}
	return &st, nil
}

// saveState atomically replaces state.json via write-then-rename, so a
// reader never observes a partially written file. Must be called with c.mu
// held.
func (c *Cache) saveState(st *state) error {
	data, err := json.Marshal(st)
	if err != nil {
		return cmn.NewError(cmn.KindChunkCacheError, "encoding cache state: %v", err)
	}
	tmp := c.statePath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return cmn.NewError(cmn.KindChunkCacheError, "writing cache state: %v", err)
	}
	if err := os.Rename(tmp, c.statePath()); err != nil {
		return cmn.NewError(cmn.KindChunkCacheError, "committing cache state: %v", err)
	}
	return nil
}

// Get retrieves a chunk by key. A missing entry returns (nil, false, nil); it does
// not check expiry (mirroring the reference: stale-but-not-yet-pruned
// entries may still be served between expiry and the next prune).
func (c *Cache) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(c.entryPath(key))
	if os.IsNotExist(err) {
		if c.stats != nil {
			c.stats.IncCacheMiss("disk")
		}
		return nil, false, nil
	}
	if err != nil {
		return nil, false, cmn.NewError(cmn.KindChunkCacheError, "reading cache entry: %v", err)
	}
	if c.stats != nil {
		c.stats.IncCacheHit("disk")
	}
	return data, true, nil
}

// Set enqueues value for storage under key, blocking while the writer's
// buffer is full, and then waits for the writer goroutine to finish that
// write: it returns the write's error (for example a chunk larger than the
// size limit), so a nil result means the entry is on disk.
func (c *Cache) Set(key string, value []byte) error {
	errCh := make(chan error, 1)
	c.writes <- writeRequest{key: key, value: value, errCh: errCh}
	return <-errCh
}

// writeEntry performs the actual admission: prune, write the payload file,
// update and persist metadata. Only ever called from writerLoop, so no
// external synchronization is required around the payload write itself.
func (c *Cache) writeEntry(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := int64(len(value))
	if err := c.prune(size); err != nil {
		return err
	}

	if err := os.WriteFile(c.entryPath(key), value, 0o644); err != nil {
		return cmn.NewError(cmn.KindChunkCacheError, "writing cache entry: %v", err)
	}

	st, err := c.loadState()
	if err != nil {
		return err
	}
	st.Metadata[key] = entryMeta{Expires: time.Now().Add(c.ttl).Unix(), SizeBytes: size}
	st.CurrentSizeBytes += size
	return c.saveState(st)
}

// remove deletes a single entry's payload file and metadata. Must be called
// with c.mu held.
func (c *Cache) remove(st *state, key string) error {
	meta, ok := st.Metadata[key]
	if !ok {
		return nil
	}
	if err := os.Remove(c.entryPath(key)); err != nil && !os.IsNotExist(err) {
		return cmn.NewError(cmn.KindChunkCacheError, "removing cache entry: %v", err)
	}
	delete(st.Metadata, key)
	st.CurrentSizeBytes -= meta.SizeBytes
	return c.saveState(st)
}

// pruneExpired removes every entry whose TTL has passed. Must be called
// with c.mu held.
func (c *Cache) pruneExpired() error {
	st, err := c.loadState()
	if err != nil {
		return err
	}
	now := time.Now().Unix()
	for key, meta := range st.Metadata {
		if meta.Expires <= now {
			if err := c.remove(st, key); err != nil {
				return err
			}
		}
	}
	return nil
}

// pruneDiskSpace evicts entries oldest-expiry-first until current size plus
// headroom fits the configured budget. Must be called with c.mu held.
func (c *Cache) pruneDiskSpace(headroom int64) error {
	if c.maxSizeBytes == 0 {
		return nil
	}
	if headroom > c.maxSizeBytes {
		return cmn.NewError(cmn.KindChunkCacheError, "Chunk cannot fit within cache maximum size threshold")
	}
	st, err := c.loadState()
	if err != nil {
		return err
	}
	current := headroom
	for _, meta := range st.Metadata {
		current += meta.SizeBytes
	}
	if current < c.maxSizeBytes {
		return nil
	}

	type kv struct {
		key  string
		meta entryMeta
	}
	entries := make([]kv, 0, len(st.Metadata))
	for k, m := range st.Metadata {
		entries = append(entries, kv{k, m})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].meta.Expires < entries[j].meta.Expires })

	for _, e := range entries {
		if err := c.remove(st, e.key); err != nil {
			return err
		}
		// Repeat the size calculation here, outside of remove, to avoid
		// reloading state from disk on every eviction.
		current -= e.meta.SizeBytes
		if current < c.maxSizeBytes {
			break
		}
	}
	return nil
}

// prune is the admission check run before every write: prune by TTL and/or
// size when either threshold is crossed, then schedule the next periodic
// prune. Must be called with c.mu held.
func (c *Cache) prune(headroom int64) error {
	st, err := c.loadState()
	if err != nil {
		return err
	}

	needsPrune := c.maxSizeBytes > 0 && st.CurrentSizeBytes+headroom >= c.maxSizeBytes
	now := time.Now().Unix()
	needsPrune = needsPrune || st.NextPrune <= now

	if !needsPrune {
		return nil
	}

	if err := c.pruneExpired(); err != nil {
		return err
	}

	st, err = c.loadState()
	if err != nil {
		return err
	}
	if c.maxSizeBytes > 0 && st.CurrentSizeBytes+headroom >= c.maxSizeBytes {
		if err := c.pruneDiskSpace(headroom); err != nil {
			return err
		}
	}

	st, err = c.loadState()
	if err != nil {
		return err
	}
	st.NextPrune = now + int64(c.pruneInterval.Seconds())
	if err := c.saveState(st); err != nil {
		return err
	}
	glog.V(2).Infof("cache: pruned, next prune at %s", time.Unix(st.NextPrune, 0))
	return nil
}

// KeyTemplate substitutes the well-known cache key tokens into template.
// %auth is excluded unless explicitly present, per the resolved open
// question on cache-key/bypass-auth interaction (see DESIGN.md): operators
// who enable chunk_cache_bypass_auth should not also include %auth in their
// template, or they reintroduce a per-client cache.
func KeyTemplate(template string, tokens map[string]string) string {
	out := template
	for token, value := range tokens {
		out = strings.ReplaceAll(out, token, value)
	}
	return out
}
