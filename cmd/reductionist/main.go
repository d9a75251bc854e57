// Command reductionist runs the active-storage reduction proxy: it accepts
// POSTed reduction requests, fetches the referenced chunk from HTTP or S3,
// decompresses and de-filters it, and returns the reduced result. Grounded
// on original_source/src/main.rs's parse-args/build-state/serve shape.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/stackhpc/reductionist-go/internal/cache"
	"github.com/stackhpc/reductionist-go/internal/config"
	"github.com/stackhpc/reductionist-go/internal/fetch"
	"github.com/stackhpc/reductionist-go/internal/resource"
	"github.com/stackhpc/reductionist-go/internal/stats"
	"github.com/stackhpc/reductionist-go/internal/store"
	"github.com/stackhpc/reductionist-go/server"
)

func main() {
	defer glog.Flush()

	cfg, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	resources := resource.New(resource.Limits{
		ConnectionsHTTP: cfg.ConnectionLimitHTTP,
		ConnectionsS3:   cfg.ConnectionLimitS3,
		MemoryBytes:     cfg.MemoryLimit,
		Tasks:           cfg.ThreadLimit,
	})

	registry := prometheus.NewRegistry()
	metrics := stats.New(registry)

	httpDownloader := fetch.NewHTTPDownloader(resources)
	s3Downloader := fetch.NewS3Downloader(resources)

	var chunkCache *cache.Cache
	if cfg.UseChunkCache {
		chunkCache, err = cache.New(cache.Options{
			Dir:           filepath.Join(cfg.ChunkCachePath, "chunk_cache"),
			TTL:           time.Duration(cfg.ChunkCacheAge) * time.Second,
			PruneInterval: time.Duration(cfg.ChunkCachePruneInterval) * time.Second,
			MaxSize:       cfg.ChunkCacheSizeLimit,
			BufferSize:    cfg.ChunkCacheBufferSize,
		}, metrics)
		if err != nil {
			glog.Fatalf("reductionist: failed to initialize chunk cache: %v", err)
		}
		defer chunkCache.Close()
	}

	chunkStore := store.New(resources, httpDownloader, s3Downloader, store.Options{
		Cache:            chunkCache,
		CacheKeyTemplate: cfg.ChunkCacheKey,
		CacheBypassAuth:  cfg.ChunkCacheBypassAuth,
	})

	app := server.New(cfg, resources, chunkStore, metrics, registry)

	glog.Infof("reductionist: starting on %s:%d (chunk cache enabled=%v)", cfg.Host, cfg.Port, cfg.UseChunkCache)
	if err := server.Serve(context.Background(), app); err != nil {
		glog.Errorf("reductionist: server exited with error: %v", err)
		os.Exit(1)
	}
}
