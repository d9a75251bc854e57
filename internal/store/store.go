// Package store multiplexes chunk retrieval across HTTP/S3 origins and an
// optional on-disk cache. Grounded on original_source/src/chunk_store.rs:
// ChunkStore.get dispatches to cached_download when a cache is configured,
// otherwise straight to the scheme-appropriate downloader.
package store

import (
	"context"
	"strconv"

	"github.com/stackhpc/reductionist-go/internal/cache"
	"github.com/stackhpc/reductionist-go/internal/cmn"
	"github.com/stackhpc/reductionist-go/internal/fetch"
	"github.com/stackhpc/reductionist-go/internal/resource"
)

// Store retrieves the raw bytes of a chunk, transparently checking and
// populating the chunk cache when one is configured.
type Store struct {
	httpDownloader fetch.Downloader
	s3Downloader   fetch.Downloader
	resources      *resource.Manager

	cache            *cache.Cache
	cacheKeyTemplate string
	cacheBypassAuth  bool
}

// Options configures the optional cache-aside behaviour. Cache is nil to
// disable caching entirely, matching chunk_cache_enabled=false.
type Options struct {
	Cache            *cache.Cache
	CacheKeyTemplate string
	CacheBypassAuth  bool
}

func New(resources *resource.Manager, httpDownloader, s3Downloader fetch.Downloader, opts Options) *Store {
	return &Store{
		httpDownloader:   httpDownloader,
		s3Downloader:     s3Downloader,
		resources:        resources,
		cache:            opts.Cache,
		cacheKeyTemplate: opts.CacheKeyTemplate,
		cacheBypassAuth:  opts.CacheBypassAuth,
	}
}

// Get retrieves the requested byte range, either from origin or, when
// enabled, from the local cache.
func (s *Store) Get(ctx context.Context, req *cmn.RequestData, creds cmn.Credentials) ([]byte, error) {
	downloader := fetch.ForScheme(req.SourceURL.Scheme, s.httpDownloader, s.s3Downloader)
	if downloader == nil {
		return nil, cmn.NewError(cmn.KindUnsupportedInterfaceType, "unsupported interface type %q", req.SourceURL.Scheme)
	}
	if s.cache == nil {
		return downloader.Download(ctx, req, creds)
	}
	return s.cachedDownload(ctx, downloader, req, creds)
}

// cachedDownload checks the cache before falling back to origin, deferring
// client authorisation to the origin on a cache hit (so cached data can be
// shared across authorised clients) unless bypass-auth is configured.
func (s *Store) cachedDownload(ctx context.Context, downloader fetch.Downloader, req *cmn.RequestData, creds cmn.Credentials) ([]byte, error) {
	key := s.cacheKey(req, creds)

	data, hit, err := s.cache.Get(key)
	if err != nil {
		return nil, err
	}
	if hit {
		if !s.cacheBypassAuth {
			authorised, err := downloader.IsAuthorised(ctx, req, creds)
			if err != nil {
				return nil, err
			}
			if !authorised {
				return nil, cmn.ErrForbidden
			}
		}
		// The cache lookup needed no memory budget of its own; take a memory
		// permit for the cached bytes now that their size is known. The
		// permit is released when this function returns, so the bytes are
		// not counted against the budget in later pipeline stages.
		permit, err := s.resources.ReacquireMemory(ctx, &resource.Permit{}, int64(len(data)))
		if err != nil {
			return nil, err
		}
		defer permit.Release()
		return data, nil
	}

	data, err = downloader.Download(ctx, req, creds)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(key, data); err != nil {
		return nil, err
	}
	return data, nil
}

// cacheKey substitutes the well-known tokens into the configured template.
// %auth is included only when the template references it; operators who
// enable CacheBypassAuth should avoid it (see cache.KeyTemplate).
func (s *Store) cacheKey(req *cmn.RequestData, creds cmn.Credentials) string {
	tokens := map[string]string{
		"%url":         req.Source,
		"%offset":      optionalUint32(req.Offset),
		"%size":        optionalUint32(req.Size),
		"%dtype":       string(req.DType),
		"%byte_order":  string(req.EffectiveByteOrder()),
		"%compression": string(req.Compression),
		"%auth":        authToken(creds),
	}
	return cache.KeyTemplate(s.cacheKeyTemplate, tokens)
}

func optionalUint32(v *uint32) string {
	if v == nil {
		return "none"
	}
	return strconv.FormatUint(uint64(*v), 10)
}

func authToken(creds cmn.Credentials) string {
	if creds.Empty() {
		return "none"
	}
	return creds.Username
}
