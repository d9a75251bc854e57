// Package config defines the server's flat flag/env surface, one field per
// setting with a matching S3_ACTIVE_STORAGE_* environment variable. Grounded
// on original_source/src/cli.rs's clap(env = "...") convention: an explicit
// struct rather than a layered viper/cobra config tree, parsed here with
// spf13/pflag plus manual env-var defaulting (CLI flag wins when both are
// set, matching clap's precedence).
package config

import (
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/stackhpc/reductionist-go/internal/cmn"
)

// Config is the full set of server settings.
type Config struct {
	Host                    string
	Port                    uint16
	HTTPS                   bool
	CertFile                string
	KeyFile                 string
	GracefulShutdownTimeout uint64

	ConnectionLimitHTTP int64
	ConnectionLimitS3   int64
	MemoryLimit         int64
	ThreadLimit         int64

	UseChunkCache           bool
	ChunkCachePath          string
	ChunkCacheAge           uint64
	ChunkCachePruneInterval uint64
	ChunkCacheSizeLimit     string
	ChunkCacheBufferSize    int
	ChunkCacheKey           string
	ChunkCacheBypassAuth    bool

	LogLevel         string
	MetricsNamespace string
}

// Parse reads CLI flags (falling back to S3_ACTIVE_STORAGE_* environment
// variables for any flag not explicitly given) into a Config.
func Parse(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("reductionist", pflag.ContinueOnError)
	cfg := &Config{}

	fs.StringVar(&cfg.Host, "host", envString("S3_ACTIVE_STORAGE_HOST", "0.0.0.0"), "address to listen on")
	fs.Uint16Var(&cfg.Port, "port", envUint16("S3_ACTIVE_STORAGE_PORT", 8080), "port to listen on")
	fs.BoolVar(&cfg.HTTPS, "https", envBool("S3_ACTIVE_STORAGE_HTTPS", false), "serve over TLS")
	fs.StringVar(&cfg.CertFile, "cert-file", envString("S3_ACTIVE_STORAGE_CERT_FILE", "~/.config/s3-active-storage/certs/cert.pem"), "TLS certificate file")
	fs.StringVar(&cfg.KeyFile, "key-file", envString("S3_ACTIVE_STORAGE_KEY_FILE", "~/.config/s3-active-storage/certs/key.pem"), "TLS key file")
	fs.Uint64Var(&cfg.GracefulShutdownTimeout, "graceful-shutdown-timeout", envUint64("S3_ACTIVE_STORAGE_SHUTDOWN_TIMEOUT", 60), "seconds to wait for in-flight requests to drain")

	fs.Int64Var(&cfg.ConnectionLimitHTTP, "connection-limit-http", envInt64("S3_ACTIVE_STORAGE_CONNECTION_LIMIT_HTTP", 0), "max concurrent HTTP origin connections, 0 = unbounded")
	fs.Int64Var(&cfg.ConnectionLimitS3, "connection-limit-s3", envInt64("S3_ACTIVE_STORAGE_CONNECTION_LIMIT_S3", 0), "max concurrent S3 origin connections, 0 = unbounded")
	fs.Int64Var(&cfg.MemoryLimit, "memory-limit", envInt64("S3_ACTIVE_STORAGE_MEMORY_LIMIT", 0), "max resident chunk bytes, 0 = unbounded")
	fs.Int64Var(&cfg.ThreadLimit, "thread-limit", envInt64("S3_ACTIVE_STORAGE_THREAD_LIMIT", 0), "max concurrent reduction tasks, 0 = unbounded")

	fs.BoolVar(&cfg.UseChunkCache, "use-chunk-cache", envBool("S3_ACTIVE_STORAGE_USE_CHUNK_CACHE", false), "enable the on-disk chunk cache")
	fs.StringVar(&cfg.ChunkCachePath, "chunk-cache-path", envString("S3_ACTIVE_STORAGE_CHUNK_CACHE_PATH", ""), "directory to hold the chunk cache")
	fs.Uint64Var(&cfg.ChunkCacheAge, "chunk-cache-age", envUint64("S3_ACTIVE_STORAGE_CHUNK_CACHE_AGE", 60), "cache entry TTL in seconds")
	fs.Uint64Var(&cfg.ChunkCachePruneInterval, "chunk-cache-prune-interval", envUint64("S3_ACTIVE_STORAGE_CHUNK_CACHE_PRUNE_INTERVAL", 60), "periodic prune interval in seconds")
	fs.StringVar(&cfg.ChunkCacheSizeLimit, "chunk-cache-size-limit", envString("S3_ACTIVE_STORAGE_CHUNK_CACHE_SIZE_LIMIT", ""), "max total cache size (e.g. 10GB), empty = unbounded")
	fs.IntVar(&cfg.ChunkCacheBufferSize, "chunk-cache-buffer-size", envInt("S3_ACTIVE_STORAGE_CHUNK_CACHE_BUFFER_SIZE", 10), "pending cache-write queue depth")
	fs.StringVar(&cfg.ChunkCacheKey, "chunk-cache-key", envString("S3_ACTIVE_STORAGE_CHUNK_CACHE_KEY", "%url-%offset-%size"), "cache key template")
	fs.BoolVar(&cfg.ChunkCacheBypassAuth, "chunk-cache-bypass-auth", envBool("S3_ACTIVE_STORAGE_CHUNK_CACHE_BYPASS_AUTH", false), "serve cache hits without re-checking origin authorisation")

	fs.StringVar(&cfg.LogLevel, "log-level", envString("S3_ACTIVE_STORAGE_LOG_LEVEL", "info"), "log verbosity")
	fs.StringVar(&cfg.MetricsNamespace, "metrics-namespace", envString("S3_ACTIVE_STORAGE_METRICS_NAMESPACE", "reductionist"), "prometheus metric namespace")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field invariants the flag parser can't express on
// its own, e.g. clap's `required_if_eq` for chunk_cache_path.
func (c *Config) Validate() error {
	if c.UseChunkCache && c.ChunkCachePath == "" {
		return cmn.NewError(cmn.KindValidationError, "chunk-cache-path must be set when use-chunk-cache is enabled")
	}
	return nil
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envUint16(key string, def uint16) uint16 {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseUint(v, 10, 16); err == nil {
			return uint16(n)
		}
	}
	return def
}

func envUint64(key string, def uint64) uint64 {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envInt(key string, def int) int {
	return int(envInt64(key, int64(def)))
}
