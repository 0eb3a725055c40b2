package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/moyoez/docconvert-go/tool"
)

// Download streams the combined artifact of a completed session into w.
func (c *Client) Download(ctx context.Context, sessionId string, w io.Writer) (int64, error) {
	url := c.DownloadURL(sessionId)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.do(ctx, req, "download")
	if err != nil {
		return 0, err
	}
	defer closeBody(resp)

	if !isSuccess(resp.StatusCode) {
		return 0, errorFromResponse(resp, readBody(resp), "Download failed")
	}
	n, err := tool.CopyWithContext(ctx, w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to save artifact: %w", err)
	}
	tool.DefaultLogger.Infof("[Download] Saved %d bytes for session %s", n, sessionId)
	return n, nil
}
