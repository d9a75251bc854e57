package filters

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/stackhpc/reductionist-go/internal/cmn"
)

// Decompress inverts the configured compression. An empty Compression is a
// no-op returning data unchanged. Corrupt streams surface as
// cmn.KindDecompression (400), since a malformed chunk is a client-supplied
// bad request, not a server fault.
func Decompress(c cmn.Compression, data []byte) ([]byte, error) {
	switch c {
	case "":
		return data, nil
	case cmn.CompressionGzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, cmn.NewError(cmn.KindDecompression, "corrupt gzip stream: %v", err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, cmn.NewError(cmn.KindDecompression, "corrupt gzip stream: %v", err)
		}
		return out, nil
	case cmn.CompressionZlib:
		r, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, cmn.NewError(cmn.KindDecompression, "corrupt zlib stream: %v", err)
		}
		defer r.Close()
		out, err := io.ReadAll(r)
		if err != nil {
			return nil, cmn.NewError(cmn.KindDecompression, "corrupt zlib stream: %v", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("filters: unsupported compression %q", c)
	}
}

// Compress is the forward operation, used only to build test fixtures (the
// server never compresses a response — compression is an input-side
// concept only).
func Compress(c cmn.Compression, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	switch c {
	case "":
		return data, nil
	case cmn.CompressionGzip:
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case cmn.CompressionZlib:
		w := zlib.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("filters: unsupported compression %q", c)
	}
}

// ApplyFilters runs the ordered de-filter chain (currently only shuffle)
// after decompression, per the pipeline's fixed decompress-then-unfilter
// order (§4.5).
func ApplyFilters(data []byte, chain []cmn.Filter) ([]byte, error) {
	for _, f := range chain {
		switch f.ID {
		case cmn.FilterShuffle:
			out, err := Deshuffle(data, f.ElementSize)
			if err != nil {
				return nil, cmn.NewError(cmn.KindFromBytes, "shuffle filter: %v", err)
			}
			data = out
		default:
			return nil, fmt.Errorf("filters: unsupported filter %q", f.ID)
		}
	}
	return data, nil
}
