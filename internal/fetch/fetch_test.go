package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackhpc/reductionist-go/internal/cmn"
	"github.com/stackhpc/reductionist-go/internal/resource"
)

func TestRangeHeaderCases(t *testing.T) {
	off, sz := uint32(1), uint32(2)
	assert.Equal(t, "", rangeHeader(nil, nil))
	assert.Equal(t, "bytes=1-2", rangeHeader(&off, &sz))
	assert.Equal(t, "bytes=1-", rangeHeader(&off, nil))
	assert.Equal(t, "bytes=0-1", rangeHeader(nil, &sz))
}

func TestHTTPDownloaderFetchesRangedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bytes=0-3", r.Header.Get("Range"))
		w.Header().Set("Content-Length", "4")
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte{1, 2, 3, 4})
	}))
	defer srv.Close()

	off, sz := uint32(0), uint32(4)
	req := &cmn.RequestData{Source: srv.URL, Offset: &off, Size: &sz}
	d := NewHTTPDownloader(resource.New(resource.Limits{}))
	data, err := d.Download(context.Background(), req, cmn.Credentials{})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
}

func TestHTTPDownloaderMissingContentLengthFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte{1, 2, 3})
		w.(http.Flusher).Flush()
	}))
	defer srv.Close()

	req := &cmn.RequestData{Source: srv.URL}
	d := NewHTTPDownloader(resource.New(resource.Limits{}))
	_, err := d.Download(context.Background(), req, cmn.Credentials{})
	require.Error(t, err)
}

func TestS3ClientPoolReusesClientForSameEndpointAndCreds(t *testing.T) {
	pool := newS3ClientPool()
	creds := cmn.Credentials{Username: "u", Password: "p"}
	c1, err := pool.get("https://s3.example.invalid", creds)
	require.NoError(t, err)
	c2, err := pool.get("https://s3.example.invalid", creds)
	require.NoError(t, err)
	assert.Same(t, c1, c2)

	c3, err := pool.get("https://s3.other.invalid", creds)
	require.NoError(t, err)
	assert.NotSame(t, c1, c3)
}

func TestS3DownloaderEndpointStripsPathFromSource(t *testing.T) {
	u, err := url.Parse("s3://s3.example.invalid:9000/ignored/path")
	require.NoError(t, err)
	req := &cmn.RequestData{SourceURL: u}
	d := NewS3Downloader(resource.New(resource.Limits{}))
	assert.Equal(t, "https://s3.example.invalid:9000", d.endpoint(req))
}
