package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/url"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/stackhpc/reductionist-go/internal/cmn"
	"github.com/stackhpc/reductionist-go/internal/resource"
)

// s3ClientPool is process-wide state: a map keyed by (endpoint,
// credential-hash), initialized lazily with double-checked insertion.
// Grounded on SPEC_FULL.md's §5 shared-resource policy and on src/s3_client.rs's
// S3Client; clients are never evicted, bounded by the number of distinct
// (endpoint, credential) pairs ever seen.
type s3ClientPool struct {
	mu      sync.RWMutex
	clients map[string]*s3.S3
}

func newS3ClientPool() *s3ClientPool {
	return &s3ClientPool{clients: make(map[string]*s3.S3)}
}

func poolKey(endpoint string, creds cmn.Credentials) string {
	h := sha256.Sum256([]byte(creds.Username + "\x00" + creds.Password))
	return endpoint + "|" + hex.EncodeToString(h[:])
}

func (p *s3ClientPool) get(endpoint string, creds cmn.Credentials) (*s3.S3, error) {
	key := poolKey(endpoint, creds)

	p.mu.RLock()
	client, ok := p.clients[key]
	p.mu.RUnlock()
	if ok {
		return client, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if client, ok := p.clients[key]; ok {
		return client, nil
	}

	var creds2 *credentials.Credentials
	if !creds.Empty() {
		creds2 = credentials.NewStaticCredentials(creds.Username, creds.Password, "")
	} else {
		creds2 = credentials.AnonymousCredentials
	}
	sess, err := session.NewSession(&aws.Config{
		Region:           aws.String("us-east-1"),
		Endpoint:         aws.String(endpoint),
		Credentials:      creds2,
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, cmn.NewError(cmn.KindS3GetObject, "constructing S3 session: %v", err)
	}
	client = s3.New(sess)
	p.clients[key] = client
	return client, nil
}

// S3Downloader fetches chunks from an S3-compatible object store. Grounded
// on original_source/src/chunk_downloader_s3.rs and src/s3_client.rs, using
// github.com/aws/aws-sdk-go the way the rest of the pack's S3-backed repos
// do (e.g. the freezer_remote_s3 implementation in other_examples).
type S3Downloader struct {
	pool      *s3ClientPool
	resources *resource.Manager
}

func NewS3Downloader(resources *resource.Manager) *S3Downloader {
	return &S3Downloader{pool: newS3ClientPool(), resources: resources}
}

func (d *S3Downloader) endpoint(req *cmn.RequestData) string {
	u := *req.SourceURL
	u.Path = ""
	u.RawQuery = ""
	return (&url.URL{Scheme: httpSchemeFor(u.Scheme), Host: u.Host}).String()
}

// httpSchemeFor maps the s3:// source scheme to the https scheme the SDK
// endpoint override expects; any other scheme is returned unchanged.
func httpSchemeFor(scheme string) string {
	if scheme == "s3" {
		return "https"
	}
	return scheme
}

func (d *S3Downloader) IsAuthorised(ctx context.Context, req *cmn.RequestData, creds cmn.Credentials) (bool, error) {
	client, err := d.pool.get(d.endpoint(req), creds)
	if err != nil {
		return false, err
	}
	_, err = client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(req.Bucket),
		Key:    aws.String(req.Object),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok {
			switch aerr.Code() {
			case "NotFound", "Forbidden", s3.ErrCodeNoSuchKey:
				return false, nil
			}
		}
		return false, nil
	}
	return true, nil
}

func (d *S3Downloader) Download(ctx context.Context, req *cmn.RequestData, creds cmn.Credentials) ([]byte, error) {
	connPermit, err := d.resources.AcquireS3Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer connPermit.Release()

	client, err := d.pool.get(d.endpoint(req), creds)
	if err != nil {
		return nil, err
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(req.Bucket),
		Key:    aws.String(req.Object),
	}
	if rng := rangeHeader(req.Offset, req.Size); rng != "" {
		input.Range = aws.String(rng)
	}

	out, err := client.GetObjectWithContext(ctx, input)
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, cmn.NewError(cmn.KindS3NoSuchKey, "object %s/%s not found", req.Bucket, req.Object)
		}
		return nil, cmn.NewError(cmn.KindS3GetObject, "GetObject failed: %v", err)
	}
	defer out.Body.Close()

	if out.ContentLength == nil {
		return nil, cmn.NewError(cmn.KindHTTPContentLengthMissing, "S3 response did not include a content length")
	}

	memPermit, err := d.resources.AcquireMemory(ctx, *out.ContentLength)
	if err != nil {
		return nil, err
	}
	defer memPermit.Release()

	buf := make([]byte, *out.ContentLength)
	if _, err := io.ReadFull(out.Body, buf); err != nil {
		return nil, cmn.NewError(cmn.KindS3ByteStream, "reading object body: %v", err)
	}
	return alignedCopy(buf), nil
}
