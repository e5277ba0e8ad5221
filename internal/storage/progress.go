package storage

import (
	"context"
	"io"
	"sync/atomic"
)

// progressCounter accumulates transferred bytes and reports them through a
// ProgressFunc. The running count is capped at total because SDK retries may
// re-read a part. Parts can be sent in parallel, so the count is atomic.
type progressCounter struct {
	total  int64
	loaded atomic.Int64
	fn     ProgressFunc
}

func newProgressCounter(total int64, fn ProgressFunc) *progressCounter {
	return &progressCounter{total: total, fn: fn}
}

func (p *progressCounter) add(n int) {
	if n <= 0 || p.fn == nil {
		return
	}
	loaded := p.loaded.Add(int64(n))
	if p.total > 0 && loaded > p.total {
		loaded = p.total
	}
	p.fn(loaded, p.total)
}

// Read satisfies the minio-go progress hook, which is handed every chunk
// read from the object body.
func (p *progressCounter) Read(b []byte) (int, error) {
	p.add(len(b))
	return len(b), nil
}

type progressKey struct{}

func withProgress(ctx context.Context, c *progressCounter) context.Context {
	return context.WithValue(ctx, progressKey{}, c)
}

func progressFrom(ctx context.Context) *progressCounter {
	c, _ := ctx.Value(progressKey{}).(*progressCounter)
	return c
}

// progressBody reports bytes as the transport consumes a request body.
type progressBody struct {
	io.ReadCloser
	c *progressCounter
}

func (b *progressBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	b.c.add(n)
	return n, err
}
