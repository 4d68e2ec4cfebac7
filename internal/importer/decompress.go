package importer

import (
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/example/bettertactics/internal/apperror"
)

// zstdReadCloser adapts a zstd.Decoder to io.ReadCloser and releases
// its internal buffers on Close rather than relying on GC.
type zstdReadCloser struct {
	dec *zstd.Decoder
}

func (z *zstdReadCloser) Read(p []byte) (int, error) { return z.dec.Read(p) }
func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return nil
}

// Decompress wraps r in a streaming zstd decoder. Nothing is ever
// materialized fully in memory; callers read it like any other
// io.Reader.
func Decompress(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, apperror.ImportFailure("failed to create zstd decoder", err)
	}
	return &zstdReadCloser{dec: dec}, nil
}
