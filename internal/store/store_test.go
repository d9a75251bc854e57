package store

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackhpc/reductionist-go/internal/cache"
	"github.com/stackhpc/reductionist-go/internal/cmn"
	"github.com/stackhpc/reductionist-go/internal/resource"
)

type fakeDownloader struct {
	authorised   bool
	authErr      error
	data         []byte
	downloadErr  error
	downloadHits int
	authHits     int
}

func (f *fakeDownloader) IsAuthorised(ctx context.Context, req *cmn.RequestData, creds cmn.Credentials) (bool, error) {
	f.authHits++
	return f.authorised, f.authErr
}

func (f *fakeDownloader) Download(ctx context.Context, req *cmn.RequestData, creds cmn.Credentials) ([]byte, error) {
	f.downloadHits++
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	return f.data, nil
}

func testRequest(t *testing.T, scheme string) *cmn.RequestData {
	t.Helper()
	u, err := url.Parse(scheme + "://example.invalid/bucket/object")
	require.NoError(t, err)
	return &cmn.RequestData{
		Source:      scheme + "://example.invalid/bucket/object",
		SourceURL:   u,
		DType:       cmn.Int32,
		Compression: "",
	}
}

func TestGetBypassesCacheWhenDisabled(t *testing.T) {
	http := &fakeDownloader{data: []byte{1, 2, 3, 4}}
	s := New(resource.New(resource.Limits{}), http, &fakeDownloader{}, Options{})

	data, err := s.Get(context.Background(), testRequest(t, "http"), cmn.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
	assert.Equal(t, 1, http.downloadHits)
}

func TestUnsupportedSchemeReturnsError(t *testing.T) {
	s := New(resource.New(resource.Limits{}), &fakeDownloader{}, &fakeDownloader{}, Options{})
	req := testRequest(t, "http")
	req.SourceURL.Scheme = "ftp"

	_, err := s.Get(context.Background(), req, cmn.Credentials{})
	require.Error(t, err)
	var cerr *cmn.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, cmn.KindUnsupportedInterfaceType, cerr.Kind)
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	dir := t.TempDir() + "/cache"
	c, err := cache.New(cache.Options{Dir: dir, TTL: 0, PruneInterval: 0, BufferSize: 1}, nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestCachedDownloadMissFetchesAndPopulatesCache(t *testing.T) {
	c := newTestCache(t)
	http := &fakeDownloader{data: []byte{9, 9, 9}}
	s := New(resource.New(resource.Limits{}), http, &fakeDownloader{}, Options{
		Cache: c, CacheKeyTemplate: "%url-%offset-%size",
	})

	data, err := s.Get(context.Background(), testRequest(t, "http"), cmn.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9, 9}, data)
	assert.Equal(t, 1, http.downloadHits)

	key := s.cacheKey(testRequest(t, "http"), cmn.Credentials{})
	cached, ok, err := c.Get(key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte{9, 9, 9}, cached)
}

func TestCachedDownloadHitSkipsDownloadButChecksAuth(t *testing.T) {
	c := newTestCache(t)
	http := &fakeDownloader{data: []byte{1, 2}, authorised: true}
	s := New(resource.New(resource.Limits{}), http, &fakeDownloader{}, Options{
		Cache: c, CacheKeyTemplate: "%url-%offset-%size",
	})

	req := testRequest(t, "http")
	require.NoError(t, c.Set(s.cacheKey(req, cmn.Credentials{}), []byte{7, 7}))

	data, err := s.Get(context.Background(), req, cmn.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, []byte{7, 7}, data)
	assert.Equal(t, 0, http.downloadHits)
	assert.Equal(t, 1, http.authHits)
}

func TestCachedDownloadHitForbiddenWhenUnauthorised(t *testing.T) {
	c := newTestCache(t)
	http := &fakeDownloader{authorised: false}
	s := New(resource.New(resource.Limits{}), http, &fakeDownloader{}, Options{
		Cache: c, CacheKeyTemplate: "%url-%offset-%size",
	})

	req := testRequest(t, "http")
	require.NoError(t, c.Set(s.cacheKey(req, cmn.Credentials{}), []byte{7, 7}))

	_, err := s.Get(context.Background(), req, cmn.Credentials{})
	require.ErrorIs(t, err, cmn.ErrForbidden)
	assert.Equal(t, 0, http.downloadHits)
}

func TestCacheBypassAuthSkipsAuthorisationCheck(t *testing.T) {
	c := newTestCache(t)
	http := &fakeDownloader{authorised: false}
	s := New(resource.New(resource.Limits{}), http, &fakeDownloader{}, Options{
		Cache: c, CacheKeyTemplate: "%url-%offset-%size", CacheBypassAuth: true,
	})

	req := testRequest(t, "http")
	require.NoError(t, c.Set(s.cacheKey(req, cmn.Credentials{}), []byte{3, 3}))

	data, err := s.Get(context.Background(), req, cmn.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 3}, data)
	assert.Equal(t, 0, http.authHits)
}

func TestCacheKeyDiffersByOffsetAndSize(t *testing.T) {
	s := New(resource.New(resource.Limits{}), &fakeDownloader{}, &fakeDownloader{}, Options{
		CacheKeyTemplate: "%url-%offset-%size-%dtype-%byte_order-%compression-%auth",
	})
	req1 := testRequest(t, "http")
	off, sz := uint32(0), uint32(4)
	req1.Offset, req1.Size = &off, &sz
	req2 := testRequest(t, "http")
	off2 := uint32(4)
	req2.Offset, req2.Size = &off2, &sz

	k1 := s.cacheKey(req1, cmn.Credentials{})
	k2 := s.cacheKey(req2, cmn.Credentials{})
	assert.NotEqual(t, k1, k2)
}
