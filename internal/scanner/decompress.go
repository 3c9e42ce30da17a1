package scanner

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
)

// Pools for decompression readers to reduce allocation overhead on bundle-heavy trees.
var (
	gzipReaderPool = sync.Pool{
		New: func() interface{} {
			// Allocated empty; Reset() always runs before use.
			return new(gzip.Reader)
		},
	}

	brotliReaderPool = sync.Pool{
		New: func() interface{} {
			return brotli.NewReader(nil)
		},
	}
)

// Shared empty reader used for safely resetting pooled readers.
var emptyReader = strings.NewReader("")

// ErrTooLarge is returned when content exceeds the configured size limit.
var ErrTooLarge = errors.New("file exceeds max_file_bytes")

// compressedSuffixes maps a file suffix to its encoding.
var compressedSuffixes = map[string]string{
	".gz": "gzip",
	".br": "br",
}

// splitCompressed returns the inner name and encoding of a compressed bundle name
// such as "app.js.br". Plain names return an empty encoding.
func splitCompressed(name string) (inner, encoding string) {
	ext := strings.ToLower(filepath.Ext(name))
	if enc, ok := compressedSuffixes[ext]; ok {
		return name[:len(name)-len(ext)], enc
	}
	return name, ""
}

func getGzipReader(r io.Reader) (*gzip.Reader, error) {
	zr := gzipReaderPool.Get().(*gzip.Reader)
	if err := zr.Reset(r); err != nil {
		// The reader is still reusable; the next Reset re-initializes it.
		gzipReaderPool.Put(zr)
		return nil, err
	}
	return zr, nil
}

func putGzipReader(zr *gzip.Reader) {
	// An empty reader instead of nil: Reset reads a header and returns io.EOF here.
	_ = zr.Reset(emptyReader)
	gzipReaderPool.Put(zr)
}

func getBrotliReader(r io.Reader) (*brotli.Reader, error) {
	br := brotliReaderPool.Get().(*brotli.Reader)
	if err := br.Reset(r); err != nil {
		brotliReaderPool.Put(br)
		return nil, err
	}
	return br, nil
}

func putBrotliReader(br *brotli.Reader) {
	_ = br.Reset(emptyReader)
	brotliReaderPool.Put(br)
}

// readAll reads r, decoding it first when encoding is set. It fails with ErrTooLarge
// once more than limit bytes of decoded content are produced.
func readAll(r io.Reader, encoding string, limit int64) ([]byte, error) {
	switch encoding {
	case "":
	case "gzip":
		zr, err := getGzipReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip initialization error: %w", err)
		}
		defer putGzipReader(zr)
		r = zr
	case "br":
		br, err := getBrotliReader(r)
		if err != nil {
			return nil, fmt.Errorf("brotli initialization error: %w", err)
		}
		defer putBrotliReader(br)
		r = br
	default:
		return nil, fmt.Errorf("unsupported encoding: %s", encoding)
	}

	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}
