package tool

import (
	"context"
	"io"
)

const copyBufferSize = 256 * 1024

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// CopyWithContext copies src to dst and stops at the next read once ctx is done.
func CopyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	return io.CopyBuffer(dst, &ctxReader{ctx: ctx, r: src}, make([]byte, copyBufferSize))
}
